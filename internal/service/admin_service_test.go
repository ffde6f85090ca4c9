package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

type adminServiceMocks struct {
	userRepo     *MockUserRepository
	orderRepo    *MockOrderRepository
	productRepo  *MockProductRepository
	activityRepo *MockAdminActivityRepository
	emailLogRepo *MockEmailLogRepository
	cache        *fakeCache
	sender       *fakeSender
}

func createTestAdminService(t *testing.T) (*AdminService, *adminServiceMocks) {
	t.Helper()
	mocks := &adminServiceMocks{
		userRepo:     new(MockUserRepository),
		orderRepo:    new(MockOrderRepository),
		productRepo:  new(MockProductRepository),
		activityRepo: new(MockAdminActivityRepository),
		emailLogRepo: new(MockEmailLogRepository),
		cache:        newFakeCache(),
		sender:       &fakeSender{result: SendResult{Delivered: true, MessageID: "retry-1"}},
	}
	emailService, err := NewEmailService(mocks.sender, mocks.emailLogRepo)
	require.NoError(t, err)
	svc, err := NewAdminService(
		mocks.userRepo, mocks.orderRepo, mocks.productRepo,
		mocks.activityRepo, mocks.emailLogRepo, mocks.cache, emailService,
	)
	require.NoError(t, err)
	return svc, mocks
}

// ============================================================================
// Тесты для AdminService
// ============================================================================

func TestAdminService_Stats_AggregatesAndCaches(t *testing.T) {
	// Arrange
	svc, mocks := createTestAdminService(t)

	mocks.userRepo.On("Count").Return(int64(10), nil).Once()
	mocks.orderRepo.On("Count").Return(int64(4), nil).Once()
	mocks.productRepo.On("Count").Return(int64(25), nil).Once()
	mocks.orderRepo.On("TotalRevenue").Return(1500.0, nil).Once()
	mocks.orderRepo.On("List", 5).Return([]entity.Order{{ID: 1}, {ID: 2}}, nil).Once()

	// Act
	stats, err := svc.Stats()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalUsers)
	assert.Equal(t, int64(4), stats.TotalOrders)
	assert.Equal(t, int64(25), stats.TotalProducts)
	assert.Equal(t, 1500.0, stats.TotalRevenue)
	assert.Len(t, stats.RecentOrders, 2)

	// Повторный вызов обслуживается из кеша (моки настроены на один вызов)
	cached, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, stats.TotalRevenue, cached.TotalRevenue)
	mocks.orderRepo.AssertNumberOfCalls(t, "Count", 1)
}

func TestAdminService_UpdateUserRole_Success(t *testing.T) {
	svc, mocks := createTestAdminService(t)

	user := &entity.User{ID: 3, Email: "user@example.com", Role: entity.RoleUser}
	mocks.userRepo.On("GetByID", uint(3)).Return(user, nil)
	mocks.userRepo.On("Update", mock.AnythingOfType("*entity.User")).Return(nil)

	var activity *entity.AdminActivity
	mocks.activityRepo.On("Create", mock.AnythingOfType("*entity.AdminActivity")).Run(func(args mock.Arguments) {
		activity = args.Get(0).(*entity.AdminActivity)
	}).Return(nil)

	updated, err := svc.UpdateUserRole(3, entity.RoleAdmin, 7)

	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, updated.Role)
	require.NotNil(t, activity)
	assert.Equal(t, "user.role.update", activity.Action)
	assert.Equal(t, entity.RoleUser, activity.Meta["from"])
	assert.Equal(t, entity.RoleAdmin, activity.Meta["to"])
}

func TestAdminService_UpdateUserRole_SelfDemotionBlocked(t *testing.T) {
	svc, mocks := createTestAdminService(t)

	_, err := svc.UpdateUserRole(7, entity.RoleUser, 7)

	assert.ErrorIs(t, err, ErrSelfDemotion, "Администратор не может разжаловать себя")
	mocks.userRepo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestAdminService_UpdateUserRole_InvalidRole(t *testing.T) {
	svc, _ := createTestAdminService(t)

	_, err := svc.UpdateUserRole(3, "superuser", 7)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAdminService_UpdateUserRole_NoOpWhenUnchanged(t *testing.T) {
	svc, mocks := createTestAdminService(t)

	user := &entity.User{ID: 3, Role: entity.RoleAdmin}
	mocks.userRepo.On("GetByID", uint(3)).Return(user, nil)

	_, err := svc.UpdateUserRole(3, entity.RoleAdmin, 7)

	require.NoError(t, err)
	mocks.userRepo.AssertNotCalled(t, "Update", mock.Anything)
	mocks.activityRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAdminService_Summary_ComputesGrowth(t *testing.T) {
	// Arrange: два заказа в текущем окне, один в предыдущем
	svc, mocks := createTestAdminService(t)

	now := time.Now()
	orders := []entity.Order{
		{ID: 1, TotalPrice: 300, CreatedAt: now.Add(-24 * time.Hour), Items: []entity.OrderItem{{Quantity: 2}}},
		{ID: 2, TotalPrice: 100, CreatedAt: now.Add(-48 * time.Hour), Items: []entity.OrderItem{{Quantity: 1}}},
		{ID: 3, TotalPrice: 200, CreatedAt: now.Add(-40 * 24 * time.Hour), Items: []entity.OrderItem{{Quantity: 3}}},
	}
	mocks.orderRepo.On("ListSince", mock.AnythingOfType("time.Time")).Return(orders, nil)

	// Act
	summary, err := svc.Summary(30)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 400.0, summary.Revenue)
	assert.Equal(t, int64(2), summary.Orders)
	assert.Equal(t, int64(3), summary.ItemsSold)
	assert.Equal(t, 200.0, summary.AvgOrderValue)
	require.NotNil(t, summary.RevenueGrowth, "Есть база для сравнения с предыдущим окном")
	assert.InDelta(t, 100.0, *summary.RevenueGrowth, 0.01, "Рост выручки 200 -> 400 = +100%")
}

func TestAdminService_Summary_NoGrowthBaseline(t *testing.T) {
	// В предыдущем окне заказов не было: рост не определён
	svc, mocks := createTestAdminService(t)

	orders := []entity.Order{
		{ID: 1, TotalPrice: 300, CreatedAt: time.Now().Add(-24 * time.Hour)},
	}
	mocks.orderRepo.On("ListSince", mock.AnythingOfType("time.Time")).Return(orders, nil)

	summary, err := svc.Summary(30)

	require.NoError(t, err)
	assert.Nil(t, summary.RevenueGrowth)
	assert.Nil(t, summary.OrdersGrowth)
}

func TestAdminService_RetryEmail_CreatesLinkedLog(t *testing.T) {
	// Arrange: исходная неудачная запись
	svc, mocks := createTestAdminService(t)

	original := &entity.EmailLog{
		ID:     11,
		To:     "user@example.com",
		Type:   EmailTypeOrderConfirmation,
		Status: entity.EmailStatusFailed,
	}
	mocks.emailLogRepo.On("GetByID", uint(11)).Return(original, nil)
	mocks.emailLogRepo.On("Create", mock.AnythingOfType("*entity.EmailLog")).Return(nil)
	mocks.activityRepo.On("Create", mock.AnythingOfType("*entity.AdminActivity")).Return(nil)

	// Act
	retried, err := svc.RetryEmail(context.Background(), 11, 7)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, retried.RetryOf)
	assert.Equal(t, uint(11), *retried.RetryOf)
	mocks.activityRepo.AssertCalled(t, "Create", mock.AnythingOfType("*entity.AdminActivity"))
}

func TestAdminService_RetryEmail_MissingLog(t *testing.T) {
	svc, mocks := createTestAdminService(t)

	mocks.emailLogRepo.On("GetByID", uint(99)).Return(nil, apperrors.ErrNotFound)

	_, err := svc.RetryEmail(context.Background(), 99, 7)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAdminService_EmailLogs_DefaultLimit(t *testing.T) {
	svc, mocks := createTestAdminService(t)

	mocks.emailLogRepo.On("List", repository.EmailLogFilters{Status: "failed"}, 100).Return([]entity.EmailLog{}, nil)

	_, err := svc.EmailLogs(repository.EmailLogFilters{Status: "failed"}, 0)

	require.NoError(t, err)
	mocks.emailLogRepo.AssertCalled(t, "List", repository.EmailLogFilters{Status: "failed"}, 100)
}

func TestAdminService_AuditLog_DefaultLimit(t *testing.T) {
	svc, mocks := createTestAdminService(t)

	mocks.activityRepo.On("List", 100).Return([]entity.AdminActivity{}, nil)

	_, err := svc.AuditLog(-1)

	require.NoError(t, err)
	mocks.activityRepo.AssertCalled(t, "List", 100)
}
