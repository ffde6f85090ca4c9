package entity

import "time"

// Исходы отправки письма
const (
	EmailStatusSuccess = "success"
	EmailStatusFailed  = "failed"
	EmailStatusSkipped = "skipped" // провайдер не сконфигурирован
)

// EmailLog — append-only журнал попыток отправки писем.
// Строка создаётся после каждой попытки, независимо от исхода.
type EmailLog struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	To        string  `gorm:"size:100;not null;index" json:"to"`
	Subject   string  `gorm:"size:200;not null" json:"subject"`
	Text      string  `gorm:"type:text;not null;default:''" json:"text"`
	HTML      string  `gorm:"type:text;not null;default:''" json:"html"`
	Status    string  `gorm:"size:20;not null;index" json:"status"` // success, failed, skipped
	Error     string  `gorm:"size:500;not null;default:''" json:"error"`
	MessageID string  `gorm:"size:100;not null;default:''" json:"message_id"`
	Type      string  `gorm:"size:50;not null;default:'';index" json:"type"` // классификация: auth.otp, order.confirmation, ...
	RelatedID string  `gorm:"size:100;not null;default:''" json:"related_id"`
	Meta      JSONMap `gorm:"type:jsonb;not null" json:"meta"`
	Provider  string  `gorm:"size:20;not null;default:'resend'" json:"provider"`

	// Ссылка на запись, повтором которой является эта отправка
	RetryOf *uint `gorm:"index" json:"retry_of,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (EmailLog) TableName() string {
	return "email_logs"
}
