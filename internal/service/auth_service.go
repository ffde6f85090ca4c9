package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
	"github.com/yourusername/krishcart-api/pkg/auth"
)

// AuthService предоставляет методы регистрации, входа и работы с профилем
type AuthService struct {
	userRepo   repository.UserRepository
	otpService *OTPService
	jwtService *auth.JWTService
	adminEmail string // адрес, который при регистрации получает роль admin
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(
	userRepo repository.UserRepository,
	otpService *OTPService,
	jwtService *auth.JWTService,
	adminEmail string,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if otpService == nil {
		return nil, fmt.Errorf("OTPService is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	return &AuthService{
		userRepo:   userRepo,
		otpService: otpService,
		jwtService: jwtService,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword проверяет парольную политику:
// минимум 8 символов, хотя бы одна буква и одна цифра
func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrValidation)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must contain at least one letter and one digit", apperrors.ErrValidation)
	}
	return nil
}

// Register создает (или переиспользует неподтверждённого) пользователя
// и выпускает OTP-код. Сбой отправки первого письма проваливает регистрацию.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if !isValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email format", apperrors.ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(email)
	if err != nil && err != apperrors.ErrNotFound {
		return nil, err
	}
	if existing != nil && existing.IsVerified {
		return nil, ErrEmailTaken
	}

	role := entity.RoleUser
	if s.adminEmail != "" && email == s.adminEmail {
		role = entity.RoleAdmin
	}

	var user *entity.User
	if existing != nil {
		// Неподтверждённая регистрация переигрывается заново:
		// имя, пароль и роль перезаписываются, флаг сбрасывается
		existing.Name = name
		existing.Password = password // BeforeSave захеширует
		existing.Role = role
		existing.IsVerified = false
		existing.VerifiedAt = nil
		if err := s.userRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("failed to update unverified user: %w", err)
		}
		user = existing
	} else {
		user = &entity.User{
			Name:     name,
			Email:    email,
			Password: password, // BeforeSave захеширует
			Role:     role,
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	if err := s.otpService.Issue(ctx, email, name); err != nil {
		// Пользователь уже создан; клиент может запросить код повторно
		return nil, err
	}

	log.Printf("[AuthService] Пользователь %s зарегистрирован, код отправлен", email)
	return user, nil
}

// Login проверяет учётные данные и выпускает токен.
// Неподтверждённый email блокирует вход.
func (s *AuthService) Login(email, password string) (*entity.User, string, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.IsVerified {
		return nil, "", ErrEmailNotVerified
	}

	if !user.CheckPassword(password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// IssueToken выпускает токен для уже аутентифицированного пользователя
// (используется сразу после подтверждения OTP)
func (s *AuthService) IssueToken(user *entity.User) (string, error) {
	return s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
}

// Profile возвращает пользователя по ID
func (s *AuthService) Profile(userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}

// ProfileUpdateInput содержит изменяемые поля профиля.
// nil означает "не менять".
type ProfileUpdateInput struct {
	Name    *string
	Phone   *string
	Address *entity.Address
}

// UpdateProfile обновляет профиль с merge-семантикой:
// заданные поля перезаписываются, пустые поля адреса наследуют старые значения
func (s *AuthService) UpdateProfile(userID uint, input ProfileUpdateInput) (*entity.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		merged := mergeAddress(user.Address, *input.Address)
		updates["address_street"] = merged.Street
		updates["address_city"] = merged.City
		updates["address_state"] = merged.State
		updates["address_zip_code"] = merged.ZipCode
		updates["address_country"] = merged.Country
	}

	if len(updates) > 0 {
		if err := s.userRepo.UpdateProfile(userID, updates); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.userRepo.GetByID(userID)
}

func mergeAddress(current, incoming entity.Address) entity.Address {
	merged := current
	if incoming.Street != "" {
		merged.Street = incoming.Street
	}
	if incoming.City != "" {
		merged.City = incoming.City
	}
	if incoming.State != "" {
		merged.State = incoming.State
	}
	if incoming.ZipCode != "" {
		merged.ZipCode = incoming.ZipCode
	}
	if incoming.Country != "" {
		merged.Country = incoming.Country
	} else if merged.Country == "" {
		merged.Country = "India"
	}
	return merged
}

// ChangePassword меняет пароль после проверки текущего
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current and new passwords are required", apperrors.ErrValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(currentPassword) {
		return fmt.Errorf("%w: current password is incorrect", apperrors.ErrValidation)
	}

	return s.userRepo.UpdatePassword(userID, newPassword)
}
