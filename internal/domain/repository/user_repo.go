package repository

import (
	"github.com/yourusername/krishcart-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	Update(user *entity.User) error
	// UpdateProfile обновляет только переданные поля, не затрагивая пароль
	UpdateProfile(userID uint, updates map[string]interface{}) error
	UpdatePassword(userID uint, newPassword string) error
	// MarkVerified выставляет флаг подтверждения и время подтверждения
	MarkVerified(userID uint) error
	List() ([]entity.User, error)
	Count() (int64, error)
}
