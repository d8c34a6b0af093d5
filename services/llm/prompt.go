package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
)

// buildDialogPrompt assembles the structured prompt for one turn: persona,
// client profile, grounding context, bounded history, the current dialog
// state and the actions legal from it.
func buildDialogPrompt(req models.CompletionRequest) string {
	var sb strings.Builder

	sb.WriteString("Ты — помощник салона красоты. Общайся дружелюбно и профессионально.\n")
	sb.WriteString("Помогай с записью на услуги и отвечай на вопросы о салоне.\n\n")

	if req.Profile != nil {
		sb.WriteString("Профиль клиента:\n")
		fmt.Fprintf(&sb, "- Имя: %s\n", req.Profile.DisplayName())
		fmt.Fprintf(&sb, "- Любимые услуги: %s\n", strings.Join(req.Profile.FavoriteServices, ", "))
		fmt.Fprintf(&sb, "- Любимые мастера: %s\n", strings.Join(req.Profile.FavoriteMasters, ", "))
		fmt.Fprintf(&sb, "- Предпочитаемое время: %s\n\n", strings.Join(req.Profile.PreferredTimeSlots, ", "))
	}

	if len(req.Context) > 0 {
		sb.WriteString("Информация из базы знаний салона:\n")
		for _, chunk := range req.Context {
			fmt.Fprintf(&sb, "**%s**\n%s\n\n", chunk.Title, chunk.Content)
		}
	}

	if len(req.History) > 0 {
		sb.WriteString("История разговора:\n")
		for _, turn := range req.History {
			role := "Клиент"
			if turn.Role == models.RoleBot {
				role = "Бот"
			}
			fmt.Fprintf(&sb, "%s: %s\n", role, turn.Content)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Текущий этап диалога: %s\n", req.State)
	sb.WriteString("Допустимые действия на этом этапе: ")
	if len(req.LegalActions) == 0 {
		sb.WriteString("нет (только ответ текстом)")
	} else {
		names := make([]string, len(req.LegalActions))
		for i, a := range req.LegalActions {
			names[i] = string(a)
		}
		sb.WriteString(strings.Join(names, ", "))
	}
	sb.WriteString("\n")

	if req.ErrorContext != "" {
		fmt.Fprintf(&sb, "Замечание к предыдущему ответу: %s\n", req.ErrorContext)
	}

	sb.WriteString(`
Ответь строго одним JSON-объектом вида:
{"reply": "текст ответа клиенту", "action": {"type": "propose_service|propose_master|propose_slot|confirm|cancel", "service_id": "...", "service_name": "...", "master_id": "...", "master_name": "...", "slot": "RFC3339"}}
Поле "action" указывай только если клиент явно выразил соответствующее намерение и действие допустимо на текущем этапе. Иначе верни только "reply".
`)
	return sb.String()
}

// buildFactPrompt asks for stable client preferences from recent history.
func buildFactPrompt(history []models.Turn) string {
	var sb strings.Builder

	sb.WriteString("Проанализируй разговор с клиентом салона красоты и извлеки полезную информацию.\n\n")
	for _, turn := range history {
		role := "Клиент"
		if turn.Role == models.RoleBot {
			role = "Бот"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, turn.Content)
	}
	sb.WriteString(`
Верни JSON:
{"favorite_services": [], "favorite_masters": [], "preferred_time_slots": [], "custom_notes": {}}
Если информация отсутствует, оставь поле пустым.
`)
	return sb.String()
}

func parseFacts(raw string) (*models.ClientFacts, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var facts models.ClientFacts
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		return nil, err
	}
	return &facts, nil
}
