package repository

import (
	"time"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
)

// EmailOTPRepository хранит одноразовые коды подтверждения email
type EmailOTPRepository interface {
	Create(otp *entity.EmailOTP) error
	// GetLatestByEmail возвращает самую свежую запись для адреса,
	// независимо от того, использована она или нет (проверка кулдауна/блокировки)
	GetLatestByEmail(email string) (*entity.EmailOTP, error)
	// GetLatestActiveByEmail возвращает самую свежую неиспользованную запись (путь верификации)
	GetLatestActiveByEmail(email string) (*entity.EmailOTP, error)
	// IncrementAttempts атомарно увеличивает счётчик попыток
	IncrementAttempts(id uint) error
	// SetLockedUntil выставляет временную блокировку после исчерпания попыток
	SetLockedUntil(id uint, until time.Time) error
	MarkConsumed(id uint) error
}
