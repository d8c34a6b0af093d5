package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/client"
	sessionRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/session"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/booking"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRemindAfterDays = 21

// Engine is the dialog service: it owns the session state machine, feeds
// the model, validates its proposals against the legal-action set and
// drives booking commits. All per-client work is serialized through lanes,
// so within one client turns never interleave.
type Engine struct {
	clients   clientRepo.ClientRepository
	sessions  sessionRepo.SessionRepository
	model     Completer
	retriever Retriever
	committer Committer
	catalog   Catalog
	dedup     Deduper
	lanes     *turnLanes
	opts      Options
	logger    *zap.Logger
}

// NewEngine wires the dialog engine.
func NewEngine(
	clients clientRepo.ClientRepository,
	sessions sessionRepo.SessionRepository,
	model Completer,
	retriever Retriever,
	committer Committer,
	catalog Catalog,
	dedup Deduper,
	opts Options,
	logger *zap.Logger,
) *Engine {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 4
	}
	return &Engine{
		clients:   clients,
		sessions:  sessions,
		model:     model,
		retriever: retriever,
		committer: committer,
		catalog:   catalog,
		dedup:     dedup,
		lanes:     newTurnLanes(opts.TurnQueueDepth),
		opts:      opts,
		logger:    logger,
	}
}

// HandleTurn processes one inbound message end to end and returns the
// bot's reply. The reply is composed only after the session document has
// been persisted.
func (e *Engine) HandleTurn(ctx context.Context, in Inbound) (*Reply, error) {
	if e.dedup != nil && in.MessageID != "" {
		seen, err := e.dedup.Seen(ctx, in.ChatID, in.MessageID)
		if err != nil {
			// Dedup is an optimization. When Redis is down we accept the
			// turn rather than drop a real message.
			e.logger.Warn("dedup unavailable, accepting message", zap.Error(err))
		} else if seen {
			return nil, ErrDuplicateInbound
		}
	}

	release, err := e.lanes.Acquire(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	defer release()

	client, err := e.getOrCreateClient(in)
	if err != nil {
		return nil, err
	}

	session, expiredNote, err := e.getOrCreateSession(client.ID)
	if err != nil {
		return nil, err
	}

	e.appendTurn(session, models.RoleClient, in.Text)

	var replyText string
	if session.State == models.StateCommitting {
		// A commit is in flight from a previous turn. The model has no say
		// until it resolves.
		replyText = e.resumeCommit(ctx, client, session)
	} else {
		replyText = e.runModelTurn(ctx, client, session, in.Text)
	}
	replyText = expiredNote + replyText

	e.appendTurn(session, models.RoleBot, replyText)
	if err := e.sessions.Save(session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	e.extractFacts(ctx, client, session)

	return &Reply{SessionID: session.ID, State: session.State, Text: replyText}, nil
}

func (e *Engine) getOrCreateClient(in Inbound) (*models.ClientProfile, error) {
	client, err := e.clients.GetByChatID(in.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if client == nil {
		now := time.Now()
		client = &models.ClientProfile{
			ID:              uuid.New().String(),
			ChatID:          in.ChatID,
			Username:        in.Username,
			FirstName:       in.FirstName,
			LastName:        in.LastName,
			RemindAfterDays: defaultRemindAfterDays,
			ReminderOptIn:   true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := e.clients.Create(client); err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		return client, nil
	}
	if (in.Username != "" && in.Username != client.Username) ||
		(in.FirstName != "" && in.FirstName != client.FirstName) {
		client.Username = in.Username
		client.FirstName = in.FirstName
		client.LastName = in.LastName
		client.UpdatedAt = time.Now()
		if err := e.clients.Update(client); err != nil {
			e.logger.Warn("failed to refresh client identity", zap.Error(err))
		}
	}
	return client, nil
}

// getOrCreateSession loads the client's active session, closing it first
// if it sat idle past the timeout. The profile survives expiry; only the
// dialog position resets.
func (e *Engine) getOrCreateSession(clientID string) (*models.Session, string, error) {
	session, err := e.sessions.GetActiveByClient(clientID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load session: %w", err)
	}

	var expiredNote string
	now := time.Now()
	if session != nil && session.Expired(e.opts.SessionTimeout, now) {
		session.State = models.StateAbandoned
		session.ClosedAt = &now
		if err := e.sessions.Save(session); err != nil {
			e.logger.Warn("failed to close expired session",
				zap.String("sessionId", session.ID), zap.Error(err))
		}
		session = nil
		expiredNote = sessionExpiredNote
	}

	if session == nil {
		session = &models.Session{
			ID:           uuid.New().String(),
			ClientID:     clientID,
			State:        models.StateIdle,
			CreatedAt:    now,
			LastActivity: now,
		}
	}
	return session, expiredNote, nil
}

func (e *Engine) appendTurn(session *models.Session, role models.TurnRole, content string) {
	turn := models.Turn{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	session.AppendTurn(turn, e.opts.HistoryLimit)
	if err := e.sessions.AppendAudit(&turn); err != nil {
		e.logger.Warn("failed to append audit turn", zap.Error(err))
	}
}

// runModelTurn consults the model once (plus one transport retry), checks
// the proposal against the legal-action set and applies it. A turn that
// cannot reach the model leaves the session state untouched.
func (e *Engine) runModelTurn(ctx context.Context, client *models.ClientProfile, session *models.Session, text string) string {
	var chunks []models.Chunk
	if e.retriever != nil && needsGrounding(session.State) {
		rctx, cancel := withTimeout(ctx, e.opts.RetrievalTimeout)
		found, err := e.retriever.Query(rctx, text, e.opts.RetrievalTopK)
		cancel()
		if err != nil {
			// Degraded turn: answer from the model alone.
			e.logger.Warn("knowledge base unavailable", zap.Error(err))
		} else {
			chunks = found
		}
	}

	req := models.CompletionRequest{
		ClientID:     client.ID,
		Profile:      client,
		History:      session.RecentTurns(e.opts.HistoryLimit),
		Context:      chunks,
		State:        session.State,
		LegalActions: LegalActions(session.State),
	}
	out, err := e.complete(ctx, req)
	if err != nil {
		e.logger.Error("model unavailable after retry", zap.Error(err))
		return replyApology
	}
	return e.handleOutput(ctx, client, session, req, out, true)
}

// complete invokes the model with one retry on transport failure.
func (e *Engine) complete(ctx context.Context, req models.CompletionRequest) (*models.ModelOutput, error) {
	mctx, cancel := withTimeout(ctx, e.opts.ModelTimeout)
	out, err := e.model.Complete(mctx, req)
	cancel()
	if err == nil {
		return out, nil
	}
	e.logger.Warn("model call failed, retrying once", zap.Error(err))

	mctx, cancel = withTimeout(ctx, e.opts.ModelTimeout)
	defer cancel()
	return e.model.Complete(mctx, req)
}

// handleOutput applies a decoded model output to the session. Illegal or
// unvalidatable proposals are sent back to the model once with an error
// note; a second offense keeps the reply text and drops the action.
func (e *Engine) handleOutput(ctx context.Context, client *models.ClientProfile, session *models.Session, req models.CompletionRequest, out *models.ModelOutput, allowRetry bool) string {
	action := out.Action
	if action == nil || action.Type == models.ActionUnrecognized {
		if session.State == models.StateIdle {
			session.State = models.StateCollectingIntent
		}
		if out.Reply == "" {
			return replyApology
		}
		return out.Reply
	}

	if !actionLegal(session.State, action.Type) {
		e.logger.Warn("model proposed illegal action",
			zap.String("sessionId", session.ID),
			zap.String("state", string(session.State)),
			zap.String("action", string(action.Type)))
		reason := fmt.Sprintf("Действие %q недопустимо на этапе %q. Ответь текстом или предложи допустимое действие.", action.Type, session.State)
		return e.rejectAndRetry(ctx, client, session, req, out, reason, allowRetry)
	}

	switch action.Type {
	case models.ActionProposeService:
		return e.applyProposeService(ctx, client, session, req, out, allowRetry)
	case models.ActionProposeMaster:
		return e.applyProposeMaster(ctx, client, session, req, out, allowRetry)
	case models.ActionProposeSlot:
		return e.applyProposeSlot(ctx, client, session, req, out, allowRetry)
	case models.ActionConfirm:
		return e.applyConfirm(ctx, client, session)
	case models.ActionCancel:
		return e.applyCancel(session, out)
	}
	return out.Reply
}

// rejectAndRetry discards the proposal and gives the model one corrective
// pass with the rejection reason in context.
func (e *Engine) rejectAndRetry(ctx context.Context, client *models.ClientProfile, session *models.Session, req models.CompletionRequest, out *models.ModelOutput, reason string, allowRetry bool) string {
	if !allowRetry {
		if out.Reply != "" {
			return out.Reply
		}
		return replyApology
	}
	req.ErrorContext = reason
	retried, err := e.complete(ctx, req)
	if err != nil {
		e.logger.Warn("corrective model pass failed", zap.Error(err))
		if out.Reply != "" {
			return out.Reply
		}
		return replyApology
	}
	return e.handleOutput(ctx, client, session, req, retried, false)
}

func (e *Engine) applyProposeService(ctx context.Context, client *models.ClientProfile, session *models.Session, req models.CompletionRequest, out *models.ModelOutput, allowRetry bool) string {
	action := out.Action
	service, ok := e.resolveService(ctx, action)
	if !ok {
		session.State = models.StateAwaitingServiceChoice
		reason := fmt.Sprintf("Услуга %q не найдена в каталоге. Предложи клиенту выбрать из доступных услуг.", action.ServiceName)
		return e.rejectAndRetry(ctx, client, session, req, out, reason, allowRetry)
	}

	// A new service proposal starts the booking over: the session holds at
	// most one pending action, replaced wholesale.
	session.Pending = &models.PendingAction{
		ServiceID:   service.ID,
		ServiceName: service.Title,
		UpdatedAt:   time.Now(),
	}
	session.State = models.StateAwaitingMasterChoice
	return out.Reply
}

func (e *Engine) applyProposeMaster(ctx context.Context, client *models.ClientProfile, session *models.Session, req models.CompletionRequest, out *models.ModelOutput, allowRetry bool) string {
	action := out.Action
	if session.Pending == nil || session.Pending.ServiceID == "" {
		reason := "Сначала нужно выбрать услугу, затем мастера."
		return e.rejectAndRetry(ctx, client, session, req, out, reason, allowRetry)
	}
	master, ok := e.resolveMaster(ctx, action)
	if !ok {
		reason := fmt.Sprintf("Мастер %q не найден. Предложи клиенту выбрать из работающих мастеров.", action.MasterName)
		return e.rejectAndRetry(ctx, client, session, req, out, reason, allowRetry)
	}

	session.Pending.MasterID = master.ID
	session.Pending.MasterName = master.FullName()
	session.Pending.UpdatedAt = time.Now()
	session.State = models.StateAwaitingSlotChoice
	return out.Reply
}

func (e *Engine) applyProposeSlot(ctx context.Context, client *models.ClientProfile, session *models.Session, req models.CompletionRequest, out *models.ModelOutput, allowRetry bool) string {
	action := out.Action
	if session.Pending == nil || session.Pending.MasterID == "" {
		reason := "Сначала нужно выбрать услугу и мастера, затем время."
		return e.rejectAndRetry(ctx, client, session, req, out, reason, allowRetry)
	}
	if _, err := time.Parse(time.RFC3339, action.Slot); err != nil {
		reason := fmt.Sprintf("Время %q не распознано, нужен формат RFC 3339.", action.Slot)
		return e.rejectAndRetry(ctx, client, session, req, out, reason, allowRetry)
	}
	if !e.slotOffered(ctx, session.Pending, action.Slot) {
		reason := fmt.Sprintf("Время %q недоступно у этого мастера. Предложи клиенту свободное время.", action.Slot)
		return e.rejectAndRetry(ctx, client, session, req, out, reason, allowRetry)
	}

	session.Pending.Slot = action.Slot
	session.Pending.UpdatedAt = time.Now()
	// The booking content is now complete; the commit token is fixed here
	// and survives retries and process restarts.
	session.Pending.IdempotencyToken = booking.IdempotencyToken(session.ID, session.Pending)
	session.State = models.StateAwaitingConfirmation
	return out.Reply
}

func (e *Engine) applyConfirm(ctx context.Context, client *models.ClientProfile, session *models.Session) string {
	if !session.Pending.Complete() {
		e.logger.Error("confirm reached with incomplete pending action",
			zap.String("sessionId", session.ID))
		return replyApology
	}
	session.State = models.StateCommitting
	// Persist the committing state before touching the booking API so a
	// crash mid-commit resumes instead of double booking.
	if err := e.sessions.Save(session); err != nil {
		e.logger.Error("failed to persist committing state", zap.Error(err))
		session.State = models.StateAwaitingConfirmation
		return replyBookingDown
	}
	return e.resumeCommit(ctx, client, session)
}

func (e *Engine) applyCancel(session *models.Session, out *models.ModelOutput) string {
	now := time.Now()
	session.Pending = nil
	session.State = models.StateAbandoned
	session.ClosedAt = &now
	if out.Reply != "" {
		return out.Reply
	}
	return replyCancelled
}

// resumeCommit drives (or re-drives) the booking commit for a session in
// the committing state and maps the outcome onto the state machine.
func (e *Engine) resumeCommit(ctx context.Context, client *models.ClientProfile, session *models.Session) string {
	bctx, cancel := withTimeout(ctx, e.opts.BookingTimeout)
	defer cancel()

	appointment, err := e.committer.Commit(bctx, client, session.ID, session.Pending)
	switch {
	case err == nil:
		return e.finishCommit(client, session, appointment)
	case booking.IsSlotUnavailable(err):
		// The slot is gone but the service and master choices stand.
		session.Pending.Slot = ""
		session.Pending.IdempotencyToken = ""
		session.Pending.UpdatedAt = time.Now()
		session.State = models.StateAwaitingSlotChoice
		return replySlotGone
	case booking.IsAuthFailure(err):
		now := time.Now()
		session.State = models.StateFailed
		session.ClosedAt = &now
		e.logger.Error("booking credentials rejected", zap.Error(err))
		return replyAuthFailed
	case booking.IsRejected(err):
		// The booking system refused this request outright. Retrying the
		// same pending action can never succeed, so start the flow over.
		session.Pending = nil
		session.State = models.StateCollectingIntent
		e.logger.Warn("booking request rejected, restarting flow",
			zap.String("sessionId", session.ID), zap.Error(err))
		return replyRejected
	default:
		// Transient and exhausted: hold position, the next turn retries
		// under the same token.
		e.logger.Warn("booking commit unresolved, staying in committing",
			zap.String("sessionId", session.ID), zap.Error(err))
		return replyHold
	}
}

func (e *Engine) finishCommit(client *models.ClientProfile, session *models.Session, appointment *models.Appointment) string {
	now := time.Now()
	session.Pending = nil
	session.State = models.StateCompleted
	session.ClosedAt = &now

	client.LastVisit = &appointment.StartAt
	client.FavoriteServices, _ = appendUnique(client.FavoriteServices, appointment.ServiceName)
	client.FavoriteMasters, _ = appendUnique(client.FavoriteMasters, appointment.MasterName)
	client.UpdatedAt = now
	if err := e.clients.Update(client); err != nil {
		e.logger.Warn("failed to update client after booking", zap.Error(err))
	}

	return fmt.Sprintf("Готово! Записала вас: %s, мастер %s, %s. Номер записи: %s. Ждём вас!",
		appointment.ServiceName,
		appointment.MasterName,
		appointment.StartAt.Format("02.01.2006 в 15:04"),
		appointment.ConfirmationID)
}

// extractFacts merges model-extracted preferences into the profile.
// Best effort: a failure here never affects the reply.
func (e *Engine) extractFacts(ctx context.Context, client *models.ClientProfile, session *models.Session) {
	mctx, cancel := withTimeout(ctx, e.opts.ModelTimeout)
	defer cancel()

	facts, err := e.model.ExtractFacts(mctx, client.ID, session.RecentTurns(e.opts.HistoryLimit))
	if err != nil {
		e.logger.Debug("fact extraction failed", zap.Error(err))
		return
	}
	if client.MergeFacts(facts) {
		client.UpdatedAt = time.Now()
		if err := e.clients.Update(client); err != nil {
			e.logger.Warn("failed to persist extracted facts", zap.Error(err))
		}
	}
}

// resolveService matches a proposal against the catalog by id or title.
// A catalog outage degrades to trusting the proposal.
func (e *Engine) resolveService(ctx context.Context, action *models.ProposedAction) (models.Service, bool) {
	services, err := e.catalog.ListServices(ctx)
	if err != nil {
		e.logger.Warn("catalog unavailable, accepting service proposal unverified", zap.Error(err))
		return models.Service{ID: action.ServiceID, Title: action.ServiceName}, action.ServiceID != "" || action.ServiceName != ""
	}
	for _, s := range services {
		if s.ID == action.ServiceID || equalFold(s.Title, action.ServiceName) {
			return s, true
		}
	}
	return models.Service{}, false
}

func (e *Engine) resolveMaster(ctx context.Context, action *models.ProposedAction) (models.Master, bool) {
	masters, err := e.catalog.ListMasters(ctx)
	if err != nil {
		e.logger.Warn("catalog unavailable, accepting master proposal unverified", zap.Error(err))
		return models.Master{ID: action.MasterID, Name: action.MasterName}, action.MasterID != "" || action.MasterName != ""
	}
	for _, m := range masters {
		if m.ID == action.MasterID || equalFold(m.FullName(), action.MasterName) || equalFold(m.Name, action.MasterName) {
			return m, true
		}
	}
	return models.Master{}, false
}

// slotOffered checks the proposed start time against the booking system's
// open slots. An unavailable catalog degrades to accepting the shape-valid
// proposal; the commit still fails safe if the slot is actually taken.
func (e *Engine) slotOffered(ctx context.Context, pending *models.PendingAction, slot string) bool {
	slots, err := e.catalog.ListSlots(ctx, pending.ServiceID, pending.MasterID)
	if err != nil {
		e.logger.Warn("slot listing unavailable, accepting slot proposal unverified", zap.Error(err))
		return true
	}
	for _, s := range slots {
		if s.StartAt == slot {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	return b != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func appendUnique(list []string, v string) ([]string, bool) {
	if v == "" {
		return list, false
	}
	for _, s := range list {
		if s == v {
			return list, false
		}
	}
	return append(list, v), true
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
