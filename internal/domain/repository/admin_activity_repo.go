package repository

import "github.com/yourusername/krishcart-api/internal/domain/entity"

// AdminActivityRepository — append-only журнал действий администраторов
type AdminActivityRepository interface {
	Create(activity *entity.AdminActivity) error
	// List возвращает записи от новых к старым, с подгруженным актором
	List(limit int) ([]entity.AdminActivity, error)
}
