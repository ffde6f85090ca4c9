package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

// EmailLogRepo реализует repository.EmailLogRepository
type EmailLogRepo struct {
	db *gorm.DB
}

// NewEmailLogRepo создает новый репозиторий журнала писем
func NewEmailLogRepo(db *gorm.DB) *EmailLogRepo {
	return &EmailLogRepo{db: db}
}

func (r *EmailLogRepo) Create(logEntry *entity.EmailLog) error {
	return r.db.Create(logEntry).Error
}

func (r *EmailLogRepo) GetByID(id uint) (*entity.EmailLog, error) {
	var logEntry entity.EmailLog
	err := r.db.First(&logEntry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &logEntry, nil
}

// List возвращает записи журнала от новых к старым с опциональными фильтрами
func (r *EmailLogRepo) List(filters repository.EmailLogFilters, limit int) ([]entity.EmailLog, error) {
	query := r.db.Order("created_at DESC")
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []entity.EmailLog
	err := query.Find(&logs).Error
	return logs, err
}
