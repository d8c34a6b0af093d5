package dialog

import "errors"

var (
	// ErrDuplicateInbound marks a replayed message id inside the dedup window.
	ErrDuplicateInbound = errors.New("duplicate inbound message")
	// ErrTurnQueueFull marks a client whose turn lane already holds the
	// maximum number of waiting messages.
	ErrTurnQueueFull = errors.New("turn queue full for client")
)

// Templated replies for paths where the model is not (or can not be)
// consulted.
const (
	replyApology      = "Извините, у меня небольшие технические неполадки. Пожалуйста, повторите сообщение чуть позже."
	replyHold         = "Секундочку, подтверждаю вашу запись... Напишите мне через минуту, я проверю статус."
	replySlotGone     = "К сожалению, это время уже заняли. Давайте подберём другое — какое время вам удобно?"
	replyBookingDown  = "Не получается связаться с системой записи. Попробуйте, пожалуйста, ещё раз через несколько минут."
	replyAuthFailed   = "К сожалению, запись сейчас недоступна по техническим причинам. Администратор уже в курсе."
	replyRejected     = "К сожалению, система записи не приняла эту заявку. Давайте попробуем оформить её заново: какая услуга вас интересует?"
	replyCancelled    = "Хорошо, отменила. Если захотите записаться — просто напишите мне."
	sessionExpiredNote = "Прошло довольно много времени, начнём заново. "
)
