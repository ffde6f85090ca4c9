package entity

import "time"

// EmailOTP хранит хешированный одноразовый код подтверждения email.
// Актуальной считается самая свежая запись для адреса; повторная отправка
// создаёт новую запись, старая остаётся в таблице как журнал.
type EmailOTP struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"size:100;not null;index" json:"email"`
	OTPHash     string     `gorm:"size:100;not null" json:"-"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int        `gorm:"not null;default:5" json:"max_attempts"`
	ConsumedAt  *time.Time `gorm:"index" json:"consumed_at,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (EmailOTP) TableName() string {
	return "email_otps"
}

func (o *EmailOTP) IsConsumed() bool {
	return o.ConsumedAt != nil
}

func (o *EmailOTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsLocked возвращает true, пока действует блокировка после исчерпания попыток
func (o *EmailOTP) IsLocked(now time.Time) bool {
	return o.LockedUntil != nil && now.Before(*o.LockedUntil)
}

// LockRemaining возвращает остаток блокировки (0, если блокировки нет)
func (o *EmailOTP) LockRemaining(now time.Time) time.Duration {
	if !o.IsLocked(now) {
		return 0
	}
	return o.LockedUntil.Sub(now)
}
