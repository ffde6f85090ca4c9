package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
)

// AdminActivityRepo реализует repository.AdminActivityRepository
type AdminActivityRepo struct {
	db *gorm.DB
}

// NewAdminActivityRepo создает новый репозиторий аудита
func NewAdminActivityRepo(db *gorm.DB) *AdminActivityRepo {
	return &AdminActivityRepo{db: db}
}

func (r *AdminActivityRepo) Create(activity *entity.AdminActivity) error {
	return r.db.Create(activity).Error
}

// List возвращает записи аудита от новых к старым
func (r *AdminActivityRepo) List(limit int) ([]entity.AdminActivity, error) {
	var activities []entity.AdminActivity
	query := r.db.Preload("Actor").Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&activities).Error
	return activities, err
}
