package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap - пользовательский тип для работы с JSONB-метаданными
type JSONMap map[string]interface{}

// Scan реализует интерфейс sql.Scanner для JSONMap
// Используется GORM для чтения JSONB данных из базы
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для JSONMap
// Используется GORM для записи JSONMap в JSONB в базе
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil || len(m) == 0 {
		return []byte("{}"), nil // Возвращаем пустой JSON объект вместо null
	}
	return json.Marshal(m)
}

// AdminActivity — append-only запись аудита привилегированных действий.
// Строки никогда не обновляются и не удаляются.
type AdminActivity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"size:50;not null;index" json:"action"` // например "order.status.update"
	ActorID    uint      `gorm:"not null;index" json:"actor_id"`
	Actor      User      `gorm:"foreignKey:ActorID" json:"-"`
	TargetType string    `gorm:"size:20;not null" json:"target_type"` // order, user, product
	TargetID   string    `gorm:"size:50;not null" json:"target_id"`
	Meta       JSONMap   `gorm:"type:jsonb;not null" json:"meta"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (AdminActivity) TableName() string {
	return "admin_activities"
}
