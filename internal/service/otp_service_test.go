package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев, общие для тестов сервисов
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(userID uint, newPassword string) error {
	args := m.Called(userID, newPassword)
	return args.Error(0)
}

func (m *MockUserRepository) MarkVerified(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepository) List() ([]entity.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

func (m *MockUserRepository) Count() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// MockEmailOTPRepository реализует repository.EmailOTPRepository
type MockEmailOTPRepository struct {
	mock.Mock
}

func (m *MockEmailOTPRepository) Create(otp *entity.EmailOTP) error {
	args := m.Called(otp)
	return args.Error(0)
}

func (m *MockEmailOTPRepository) GetLatestByEmail(email string) (*entity.EmailOTP, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailOTP), args.Error(1)
}

func (m *MockEmailOTPRepository) GetLatestActiveByEmail(email string) (*entity.EmailOTP, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailOTP), args.Error(1)
}

func (m *MockEmailOTPRepository) IncrementAttempts(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockEmailOTPRepository) SetLockedUntil(id uint, until time.Time) error {
	args := m.Called(id, until)
	return args.Error(0)
}

func (m *MockEmailOTPRepository) MarkConsumed(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockEmailLogRepository реализует repository.EmailLogRepository
type MockEmailLogRepository struct {
	mock.Mock
}

func (m *MockEmailLogRepository) Create(logEntry *entity.EmailLog) error {
	args := m.Called(logEntry)
	return args.Error(0)
}

func (m *MockEmailLogRepository) GetByID(id uint) (*entity.EmailLog, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailLog), args.Error(1)
}

func (m *MockEmailLogRepository) List(filters repository.EmailLogFilters, limit int) ([]entity.EmailLog, error) {
	args := m.Called(filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.EmailLog), args.Error(1)
}

// createTestEmailService собирает EmailService на NoopSender:
// письма не уходят, но журнал пишется
func createTestEmailService(t *testing.T) (*EmailService, *MockEmailLogRepository) {
	t.Helper()
	logRepo := new(MockEmailLogRepository)
	logRepo.On("Create", mock.AnythingOfType("*entity.EmailLog")).Return(nil).Maybe()
	emailService, err := NewEmailService(&NoopSender{}, logRepo)
	require.NoError(t, err)
	return emailService, logRepo
}

func createTestOTPService(t *testing.T, userRepo *MockUserRepository, otpRepo *MockEmailOTPRepository) *OTPService {
	t.Helper()
	emailService, _ := createTestEmailService(t)
	svc, err := NewOTPService(userRepo, otpRepo, emailService, 10*time.Minute, 60*time.Second, 5, 15*time.Minute)
	require.NoError(t, err)
	return svc
}

func hashOTP(t *testing.T, code string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	require.NoError(t, err)
	return string(hash)
}

// ============================================================================
// Тесты для OTPService
// ============================================================================

func TestOTPService_Resend_UnknownEmail(t *testing.T) {
	// Arrange: адрес без аккаунта
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	mockUserRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	// Act
	err := svc.Resend(context.Background(), "ghost@example.com")

	// Assert: код не выпускается для чужих адресов
	require.ErrorIs(t, err, apperrors.ErrNotFound, "Повторная отправка требует существующий аккаунт")
	mockOTPRepo.AssertNotCalled(t, "Create", mock.Anything)
	mockUserRepo.AssertCalled(t, "GetByEmail", "ghost@example.com")
}

func TestOTPService_Resend_AlreadyVerified(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	mockUserRepo.On("GetByEmail", "done@example.com").Return(&entity.User{
		ID: 7, Email: "done@example.com", Name: "Анна", IsVerified: true,
	}, nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	err := svc.Resend(context.Background(), "done@example.com")

	require.ErrorIs(t, err, ErrAlreadyVerified, "Подтверждённому аккаунту коды не нужны")
	mockOTPRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOTPService_Resend_UnverifiedUserGetsFreshCode(t *testing.T) {
	// Arrange: неподтверждённый аккаунт без активного кулдауна
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	mockUserRepo.On("GetByEmail", "pending@example.com").Return(&entity.User{
		ID: 3, Email: "pending@example.com", Name: "Борис", IsVerified: false,
	}, nil)
	mockOTPRepo.On("GetLatestByEmail", "pending@example.com").Return(nil, apperrors.ErrNotFound)

	var created *entity.EmailOTP
	mockOTPRepo.On("Create", mock.AnythingOfType("*entity.EmailOTP")).Run(func(args mock.Arguments) {
		created = args.Get(0).(*entity.EmailOTP)
	}).Return(nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	// Act
	err := svc.Resend(context.Background(), "Pending@Example.com")

	// Assert
	require.NoError(t, err, "Повторная отправка для неподтверждённого аккаунта успешна")
	require.NotNil(t, created, "Должна появиться новая запись кода")
	assert.Equal(t, "pending@example.com", created.Email, "Адрес нормализован")
	assert.Equal(t, 0, created.Attempts)
}

func TestOTPService_Issue_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	mockOTPRepo.On("GetLatestByEmail", "new@example.com").Return(nil, apperrors.ErrNotFound)

	var created *entity.EmailOTP
	mockOTPRepo.On("Create", mock.AnythingOfType("*entity.EmailOTP")).Run(func(args mock.Arguments) {
		created = args.Get(0).(*entity.EmailOTP)
	}).Return(nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	// Act
	err := svc.Issue(context.Background(), "New@Example.com", "Новый")

	// Assert
	require.NoError(t, err, "Выпуск кода должен быть успешным")
	require.NotNil(t, created, "Запись кода должна быть создана")
	assert.Equal(t, "new@example.com", created.Email, "Адрес должен быть нормализован")
	assert.Equal(t, 0, created.Attempts, "Свежая запись начинается с нуля попыток")
	assert.Equal(t, 5, created.MaxAttempts)
	assert.NotEmpty(t, created.OTPHash, "Код хранится только в виде хеша")
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), created.ExpiresAt, 5*time.Second)
	mockOTPRepo.AssertExpectations(t)
}

func TestOTPService_Issue_InvalidEmail(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)
	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	err := svc.Issue(context.Background(), "not-an-email", "x")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockOTPRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOTPService_Issue_ResendCooldown(t *testing.T) {
	// Arrange: последняя запись выпущена 10 секунд назад
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	latest := &entity.EmailOTP{
		ID:        7,
		Email:     "new@example.com",
		CreatedAt: time.Now().Add(-10 * time.Second),
		ExpiresAt: time.Now().Add(9 * time.Minute),
	}
	mockOTPRepo.On("GetLatestByEmail", "new@example.com").Return(latest, nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	// Act
	err := svc.Issue(context.Background(), "new@example.com", "x")

	// Assert
	var cooldownErr *ResendCooldownError
	require.ErrorAs(t, err, &cooldownErr, "Внутри кулдауна повторная отправка запрещена")
	assert.InDelta(t, 50, cooldownErr.RetryAfterSeconds, 2, "Остаток кулдауна ~50 секунд")
	mockOTPRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOTPService_Issue_CooldownAppliesToConsumedRecord(t *testing.T) {
	// Кулдаун считается по самой свежей записи, даже уже использованной
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	consumedAt := time.Now().Add(-5 * time.Second)
	latest := &entity.EmailOTP{
		ID:         8,
		Email:      "new@example.com",
		CreatedAt:  time.Now().Add(-20 * time.Second),
		ExpiresAt:  time.Now().Add(9 * time.Minute),
		ConsumedAt: &consumedAt,
	}
	mockOTPRepo.On("GetLatestByEmail", "new@example.com").Return(latest, nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	err := svc.Issue(context.Background(), "new@example.com", "x")

	var cooldownErr *ResendCooldownError
	assert.ErrorAs(t, err, &cooldownErr)
}

func TestOTPService_Issue_Locked(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	lockedUntil := time.Now().Add(10 * time.Minute)
	latest := &entity.EmailOTP{
		ID:          9,
		Email:       "new@example.com",
		CreatedAt:   time.Now().Add(-5 * time.Minute),
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		LockedUntil: &lockedUntil,
	}
	mockOTPRepo.On("GetLatestByEmail", "new@example.com").Return(latest, nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	err := svc.Issue(context.Background(), "new@example.com", "x")

	var lockedErr *OTPLockedError
	require.ErrorAs(t, err, &lockedErr, "Во время блокировки новые коды не выпускаются")
	assert.InDelta(t, 600, lockedErr.RetryAfterSeconds, 2)
	mockOTPRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOTPService_Verify_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	record := &entity.EmailOTP{
		ID:          5,
		Email:       "user@example.com",
		OTPHash:     hashOTP(t, "123456"),
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		Attempts:    0,
		MaxAttempts: 5,
	}
	user := &entity.User{ID: 3, Email: "user@example.com", Name: "Пользователь"}

	mockOTPRepo.On("GetLatestActiveByEmail", "user@example.com").Return(record, nil)
	mockOTPRepo.On("MarkConsumed", uint(5)).Return(nil)
	mockUserRepo.On("GetByEmail", "user@example.com").Return(user, nil)
	mockUserRepo.On("MarkVerified", uint(3)).Return(nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	// Act
	verified, err := svc.Verify(context.Background(), "User@Example.com", "123456")

	// Assert
	require.NoError(t, err, "Верный код должен проходить")
	require.NotNil(t, verified)
	assert.True(t, verified.IsVerified, "Пользователь получает флаг подтверждения")
	assert.NotNil(t, verified.VerifiedAt)
	mockOTPRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}

func TestOTPService_Verify_ReplayAfterConsume(t *testing.T) {
	// Использованная запись невидима для пути верификации
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	mockOTPRepo.On("GetLatestActiveByEmail", "user@example.com").Return(nil, apperrors.ErrNotFound)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	_, err := svc.Verify(context.Background(), "user@example.com", "123456")

	assert.ErrorIs(t, err, ErrOTPNotFound, "Повторное использование кода должно отклоняться")
}

func TestOTPService_Verify_Expired(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	record := &entity.EmailOTP{
		ID:          5,
		Email:       "user@example.com",
		OTPHash:     hashOTP(t, "123456"),
		ExpiresAt:   time.Now().Add(-time.Minute),
		MaxAttempts: 5,
	}
	mockOTPRepo.On("GetLatestActiveByEmail", "user@example.com").Return(record, nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	_, err := svc.Verify(context.Background(), "user@example.com", "123456")

	assert.ErrorIs(t, err, ErrOTPExpired)
	mockOTPRepo.AssertNotCalled(t, "IncrementAttempts", mock.Anything)
}

func TestOTPService_Verify_WrongCodeIncrementsAttempts(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	record := &entity.EmailOTP{
		ID:          5,
		Email:       "user@example.com",
		OTPHash:     hashOTP(t, "123456"),
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		Attempts:    0,
		MaxAttempts: 5,
	}
	mockOTPRepo.On("GetLatestActiveByEmail", "user@example.com").Return(record, nil)
	mockOTPRepo.On("IncrementAttempts", uint(5)).Return(nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	_, err := svc.Verify(context.Background(), "user@example.com", "000000")

	assert.ErrorIs(t, err, ErrInvalidOTP)
	mockOTPRepo.AssertCalled(t, "IncrementAttempts", uint(5))
	mockOTPRepo.AssertNotCalled(t, "SetLockedUntil", mock.Anything, mock.Anything)
}

func TestOTPService_Verify_FifthFailureLocks(t *testing.T) {
	// Arrange: уже четыре неудачные попытки, пятая должна блокировать
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	record := &entity.EmailOTP{
		ID:          5,
		Email:       "user@example.com",
		OTPHash:     hashOTP(t, "123456"),
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		Attempts:    4,
		MaxAttempts: 5,
	}
	mockOTPRepo.On("GetLatestActiveByEmail", "user@example.com").Return(record, nil)
	mockOTPRepo.On("IncrementAttempts", uint(5)).Return(nil)
	mockOTPRepo.On("SetLockedUntil", uint(5), mock.AnythingOfType("time.Time")).Return(nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	// Act
	_, err := svc.Verify(context.Background(), "user@example.com", "000000")

	// Assert
	var lockedErr *OTPLockedError
	require.ErrorAs(t, err, &lockedErr, "Исчерпание попыток включает блокировку")
	assert.Equal(t, 900, lockedErr.RetryAfterSeconds, "Блокировка на полные 15 минут")
	mockOTPRepo.AssertExpectations(t)
}

func TestOTPService_Verify_LockedDoesNotConsumeAttempt(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)

	lockedUntil := time.Now().Add(10 * time.Minute)
	record := &entity.EmailOTP{
		ID:          5,
		Email:       "user@example.com",
		OTPHash:     hashOTP(t, "123456"),
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		Attempts:    5,
		MaxAttempts: 5,
		LockedUntil: &lockedUntil,
	}
	mockOTPRepo.On("GetLatestActiveByEmail", "user@example.com").Return(record, nil)

	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	_, err := svc.Verify(context.Background(), "user@example.com", "123456")

	var lockedErr *OTPLockedError
	require.ErrorAs(t, err, &lockedErr)
	assert.InDelta(t, 600, lockedErr.RetryAfterSeconds, 2, "Остаток блокировки ~10 минут")
	// Во время блокировки попытки не расходуются даже на верный код
	mockOTPRepo.AssertNotCalled(t, "IncrementAttempts", mock.Anything)
	mockOTPRepo.AssertNotCalled(t, "MarkConsumed", mock.Anything)
}

func TestOTPService_Verify_ValidationError(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockOTPRepo := new(MockEmailOTPRepository)
	svc := createTestOTPService(t, mockUserRepo, mockOTPRepo)

	_, err := svc.Verify(context.Background(), "user@example.com", "")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = svc.Verify(context.Background(), "bad-email", "123456")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
