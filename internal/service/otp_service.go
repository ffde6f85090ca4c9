package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math"
	"math/big"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// isValidEmail выполняет синтаксическую проверку адреса
func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// OTPService управляет жизненным циклом одноразовых кодов подтверждения email:
// выпуск, проверка, учёт попыток, кулдаун повторной отправки и блокировка.
type OTPService struct {
	userRepo     repository.UserRepository
	otpRepo      repository.EmailOTPRepository
	emailService *EmailService

	expiry         time.Duration
	resendCooldown time.Duration
	maxAttempts    int
	lockout        time.Duration
}

// NewOTPService создает новый сервис OTP и возвращает ошибку при проблемах
func NewOTPService(
	userRepo repository.UserRepository,
	otpRepo repository.EmailOTPRepository,
	emailService *EmailService,
	expiry time.Duration,
	resendCooldown time.Duration,
	maxAttempts int,
	lockout time.Duration,
) (*OTPService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for OTPService")
	}
	if otpRepo == nil {
		return nil, fmt.Errorf("EmailOTPRepository is required for OTPService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for OTPService")
	}
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}

	return &OTPService{
		userRepo:       userRepo,
		otpRepo:        otpRepo,
		emailService:   emailService,
		expiry:         expiry,
		resendCooldown: resendCooldown,
		maxAttempts:    maxAttempts,
		lockout:        lockout,
	}, nil
}

// generateOTP возвращает равномерно распределённый 6-значный код (100000-999999)
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func secondsRemaining(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// Issue выпускает новый код для адреса и отправляет его письмом.
// Вызывается при регистрации и при повторной отправке. Сбой доставки
// возвращается наружу, но уже созданная запись не откатывается.
func (s *OTPService) Issue(ctx context.Context, email, name string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if !isValidEmail(email) {
		return fmt.Errorf("%w: invalid email format", apperrors.ErrValidation)
	}

	now := time.Now()

	// Проверка кулдауна и блокировки идёт по самой свежей записи,
	// независимо от того, использована она или нет
	latest, err := s.otpRepo.GetLatestByEmail(email)
	if err != nil && err != apperrors.ErrNotFound {
		return err
	}
	if err == nil && latest != nil {
		if latest.IsLocked(now) {
			return &OTPLockedError{RetryAfterSeconds: secondsRemaining(latest.LockRemaining(now))}
		}
		if sinceIssued := now.Sub(latest.CreatedAt); sinceIssued < s.resendCooldown {
			return &ResendCooldownError{RetryAfterSeconds: secondsRemaining(s.resendCooldown - sinceIssued)}
		}
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	// Код хешируется тем же примитивом и с той же стоимостью, что и пароли
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}

	record := &entity.EmailOTP{
		Email:       email,
		OTPHash:     string(hash),
		ExpiresAt:   now.Add(s.expiry),
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
	}
	if err := s.otpRepo.Create(record); err != nil {
		return fmt.Errorf("failed to create otp record: %w", err)
	}

	// Запись уже создана: отправка "хотя бы выпущено", откат не делается
	expiryMinutes := int(s.expiry.Minutes())
	if err := s.emailService.SendOTP(ctx, email, name, code, expiryMinutes); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	return nil
}

// Resend повторно отправляет код по запросу пользователя.
// В отличие от Issue, требует существующий неподтверждённый аккаунт:
// для чужих адресов коды не выпускаются.
func (s *OTPService) Resend(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if !isValidEmail(email) {
		return fmt.Errorf("%w: invalid email format", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	return s.Issue(ctx, email, user.Name)
}

// Verify проверяет код для адреса. При успехе запись помечается
// использованной, пользователь получает флаг подтверждения.
func (s *OTPService) Verify(ctx context.Context, email, code string) (*entity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	code = strings.TrimSpace(code)
	if !isValidEmail(email) || code == "" {
		return nil, fmt.Errorf("%w: email and otp are required", apperrors.ErrValidation)
	}

	// Путь верификации смотрит только на неиспользованные записи;
	// повторная отправка молча вытесняет код, введённый по старому письму
	record, err := s.otpRepo.GetLatestActiveByEmail(email)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return nil, ErrOTPNotFound
		}
		return nil, err
	}

	now := time.Now()
	if record.IsExpired(now) {
		return nil, ErrOTPExpired
	}
	if record.IsLocked(now) {
		// Активная блокировка не расходует попытку
		return nil, &OTPLockedError{RetryAfterSeconds: secondsRemaining(record.LockRemaining(now))}
	}
	if record.Attempts >= record.MaxAttempts {
		// Дублирующая проверка на случай гонки между параллельными запросами
		return nil, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(record.OTPHash), []byte(code)) != nil {
		// Инкремент фиксируется в базе до ответа клиенту
		if err := s.otpRepo.IncrementAttempts(record.ID); err != nil {
			return nil, fmt.Errorf("failed to increment otp attempts: %w", err)
		}
		if record.Attempts+1 >= record.MaxAttempts {
			lockedUntil := now.Add(s.lockout)
			if err := s.otpRepo.SetLockedUntil(record.ID, lockedUntil); err != nil {
				return nil, fmt.Errorf("failed to lock otp record: %w", err)
			}
			return nil, &OTPLockedError{RetryAfterSeconds: secondsRemaining(s.lockout)}
		}
		return nil, ErrInvalidOTP
	}

	if err := s.otpRepo.MarkConsumed(record.ID); err != nil {
		return nil, fmt.Errorf("failed to mark otp consumed: %w", err)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		// Регистрация всегда создаёт пользователя раньше кода,
		// так что сюда попадать не должны
		log.Printf("[OTPService] Код подтверждён, но пользователь %s не найден", email)
		return nil, err
	}

	if err := s.userRepo.MarkVerified(user.ID); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}

	verifiedAt := now
	user.IsVerified = true
	user.VerifiedAt = &verifiedAt
	return user, nil
}
