package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

// EmailOTPRepo реализует repository.EmailOTPRepository
type EmailOTPRepo struct {
	db *gorm.DB
}

// NewEmailOTPRepo создает новый репозиторий OTP-кодов
func NewEmailOTPRepo(db *gorm.DB) *EmailOTPRepo {
	return &EmailOTPRepo{db: db}
}

func (r *EmailOTPRepo) Create(otp *entity.EmailOTP) error {
	return r.db.Create(otp).Error
}

// GetLatestByEmail возвращает самую свежую запись для адреса
// независимо от consumed_at. Единственный критерий "актуальности" —
// время создания по убыванию, без дополнительных tiebreak-ов.
func (r *EmailOTPRepo) GetLatestByEmail(email string) (*entity.EmailOTP, error) {
	var otp entity.EmailOTP
	err := r.db.
		Where("email = ?", email).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest otp record: %w", err)
	}
	return &otp, nil
}

// GetLatestActiveByEmail возвращает самую свежую неиспользованную запись
func (r *EmailOTPRepo) GetLatestActiveByEmail(email string) (*entity.EmailOTP, error) {
	var otp entity.EmailOTP
	err := r.db.
		Where("email = ? AND consumed_at IS NULL", email).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest active otp record: %w", err)
	}
	return &otp, nil
}

func (r *EmailOTPRepo) IncrementAttempts(id uint) error {
	return r.db.Model(&entity.EmailOTP{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (r *EmailOTPRepo) SetLockedUntil(id uint, until time.Time) error {
	return r.db.Model(&entity.EmailOTP{}).
		Where("id = ?", id).
		Update("locked_until", until).Error
}

func (r *EmailOTPRepo) MarkConsumed(id uint) error {
	now := time.Now()
	return r.db.Model(&entity.EmailOTP{}).
		Where("id = ?", id).
		Update("consumed_at", now).Error
}
