package invoice

import (
	"sync"

	"github.com/google/uuid"
)

// ConfirmAction действие, ожидающее двухшагового подтверждения.
type ConfirmAction string

const (
	ActionApprove ConfirmAction = "approve"
	ActionDecline ConfirmAction = "decline"
)

type pendingKey struct {
	invoiceID int
	action    ConfirmAction
}

// ConfirmRegistry хранит незавершенные подтверждения в памяти процесса.
// Записи живут до терминального перехода счета или рестарта, срока
// годности у них нет.
type ConfirmRegistry struct {
	mu      sync.Mutex
	pending map[pendingKey]string
}

// NewConfirmRegistry создает пустой реестр подтверждений.
func NewConfirmRegistry() *ConfirmRegistry {
	return &ConfirmRegistry{pending: make(map[pendingKey]string)}
}

// Request регистрирует ожидающее подтверждение и возвращает его токен.
// Повторный запрос того же действия возвращает уже выданный токен,
// новое приглашение при этом не создается.
func (r *ConfirmRegistry) Request(invoiceID int, action ConfirmAction) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pendingKey{invoiceID: invoiceID, action: action}
	if token, ok := r.pending[key]; ok {
		return token
	}
	token := uuid.NewString()
	r.pending[key] = token
	return token
}

// Check сообщает, совпадает ли токен с зарегистрированным подтверждением.
func (r *ConfirmRegistry) Check(invoiceID int, action ConfirmAction, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return token != "" && r.pending[pendingKey{invoiceID: invoiceID, action: action}] == token
}

// Clear снимает все ожидающие подтверждения счета. Вызывается после
// терминального перехода, дальше счет неизменяем.
func (r *ConfirmRegistry) Clear(invoiceID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, pendingKey{invoiceID: invoiceID, action: ActionApprove})
	delete(r.pending, pendingKey{invoiceID: invoiceID, action: ActionDecline})
}
