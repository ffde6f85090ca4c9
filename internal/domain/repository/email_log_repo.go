package repository

import "github.com/yourusername/krishcart-api/internal/domain/entity"

// EmailLogFilters — фильтры журнала отправки писем
type EmailLogFilters struct {
	Status string // success, failed, skipped
	Type   string // auth.otp, order.confirmation, ...
}

// EmailLogRepository — append-only журнал попыток отправки писем
type EmailLogRepository interface {
	Create(logEntry *entity.EmailLog) error
	GetByID(id uint) (*entity.EmailLog, error)
	List(filters EmailLogFilters, limit int) ([]entity.EmailLog, error)
}
