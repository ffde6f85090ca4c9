package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

const (
	adminStatsCacheKey = "admin:stats"
	adminStatsCacheTTL = 30 * time.Second

	defaultAnalyticsDays = 30
	defaultTopProducts   = 5
	defaultAuditLimit    = 100
	defaultEmailLogLimit = 100
)

// ErrSelfDemotion запрещает администратору снимать роль с самого себя
var ErrSelfDemotion = fmt.Errorf("%w: admins cannot demote themselves", apperrors.ErrForbidden)

// DashboardStats — сводка для главной страницы админки
type DashboardStats struct {
	TotalUsers    int64          `json:"total_users"`
	TotalOrders   int64          `json:"total_orders"`
	TotalProducts int64          `json:"total_products"`
	TotalRevenue  float64        `json:"total_revenue"`
	RecentOrders  []entity.Order `json:"recent_orders"`
}

// AnalyticsSummary — агрегаты за окно с ростом к предыдущему окну.
// Рост в процентах; nil, когда в предыдущем окне не было данных
type AnalyticsSummary struct {
	Days          int      `json:"days"`
	Revenue       float64  `json:"revenue"`
	Orders        int64    `json:"orders"`
	ItemsSold     int64    `json:"items_sold"`
	AvgOrderValue float64  `json:"avg_order_value"`
	RevenueGrowth *float64 `json:"revenue_growth"`
	OrdersGrowth  *float64 `json:"orders_growth"`
}

// AdminService обслуживает панель администратора: сводку, пользователей,
// аудит, журнал писем и аналитику продаж
type AdminService struct {
	userRepo     repository.UserRepository
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	activityRepo repository.AdminActivityRepository
	emailLogRepo repository.EmailLogRepository
	cacheRepo    repository.CacheRepository
	emailService *EmailService
}

// NewAdminService создает новый сервис админки и возвращает ошибку при проблемах
func NewAdminService(
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	activityRepo repository.AdminActivityRepository,
	emailLogRepo repository.EmailLogRepository,
	cacheRepo repository.CacheRepository,
	emailService *EmailService,
) (*AdminService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AdminService")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("OrderRepository is required for AdminService")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("ProductRepository is required for AdminService")
	}
	if activityRepo == nil {
		return nil, fmt.Errorf("AdminActivityRepository is required for AdminService")
	}
	if emailLogRepo == nil {
		return nil, fmt.Errorf("EmailLogRepository is required for AdminService")
	}
	if cacheRepo == nil {
		return nil, fmt.Errorf("CacheRepository is required for AdminService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for AdminService")
	}
	return &AdminService{
		userRepo:     userRepo,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		activityRepo: activityRepo,
		emailLogRepo: emailLogRepo,
		cacheRepo:    cacheRepo,
		emailService: emailService,
	}, nil
}

// Stats возвращает сводку для дашборда. Результат кешируется в Redis
// на короткое время, недоступность кеша не ломает сводку
func (s *AdminService) Stats() (*DashboardStats, error) {
	var cached DashboardStats
	if err := s.cacheRepo.GetJSON(adminStatsCacheKey, &cached); err == nil {
		return &cached, nil
	}

	users, err := s.userRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	orders, err := s.orderRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	products, err := s.productRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	revenue, err := s.orderRepo.TotalRevenue()
	if err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	recent, err := s.orderRepo.List(5)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}

	stats := &DashboardStats{
		TotalUsers:    users,
		TotalOrders:   orders,
		TotalProducts: products,
		TotalRevenue:  revenue,
		RecentOrders:  recent,
	}

	if err := s.cacheRepo.SetJSON(adminStatsCacheKey, stats, adminStatsCacheTTL); err != nil {
		log.Printf("[AdminService] Не удалось закешировать сводку: %v", err)
	}

	return stats, nil
}

// Users возвращает всех пользователей (пароли скрыты сериализацией)
func (s *AdminService) Users() ([]entity.User, error) {
	return s.userRepo.List()
}

// Orders возвращает заказы от новых к старым; limit <= 0 — все
func (s *AdminService) Orders(limit int) ([]entity.Order, error) {
	return s.orderRepo.List(limit)
}

// Order возвращает заказ с данными покупателя
func (s *AdminService) Order(orderID uint) (*entity.Order, error) {
	return s.orderRepo.GetByIDWithUser(orderID)
}

// UpdateUserRole меняет роль пользователя. Администратор не может снять
// роль с самого себя. Неизменённая роль — тихий no-op без аудита
func (s *AdminService) UpdateUserRole(userID uint, role string, actorID uint) (*entity.User, error) {
	if role != entity.RoleUser && role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: invalid role %q", apperrors.ErrValidation, role)
	}
	if userID == actorID && role != entity.RoleAdmin {
		return nil, ErrSelfDemotion
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	previous := user.Role
	if previous == role {
		return user, nil
	}

	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	s.logActivity(actorID, "user.role.update", "user", fmt.Sprintf("%d", userID), entity.JSONMap{
		"from": previous,
		"to":   role,
	})

	return user, nil
}

// AuditLog возвращает журнал действий администраторов, новые первыми
func (s *AdminService) AuditLog(limit int) ([]entity.AdminActivity, error) {
	if limit < 1 {
		limit = defaultAuditLimit
	}
	return s.activityRepo.List(limit)
}

// EmailLogs возвращает журнал отправки писем с фильтрами по статусу и типу
func (s *AdminService) EmailLogs(filters repository.EmailLogFilters, limit int) ([]entity.EmailLog, error) {
	if limit < 1 {
		limit = defaultEmailLogLimit
	}
	return s.emailLogRepo.List(filters, limit)
}

// RetryEmail повторно отправляет письмо из журнала. Новая запись журнала
// ссылается на исходную через retry_of
func (s *AdminService) RetryEmail(ctx context.Context, logID uint, actorID uint) (*entity.EmailLog, error) {
	original, err := s.emailLogRepo.GetByID(logID)
	if err != nil {
		return nil, err
	}

	retried, sendErr := s.emailService.Retry(ctx, original)

	s.logActivity(actorID, "email.retry", "email_log", fmt.Sprintf("%d", logID), entity.JSONMap{
		"to":   original.To,
		"type": original.Type,
	})

	if sendErr != nil {
		return retried, sendErr
	}
	return retried, nil
}

func growth(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	g := (current - previous) / previous * 100
	return &g
}

// Summary считает выручку, заказы, средний чек и количество позиций за окно
// в days дней, с ростом к предыдущему окну той же длины
func (s *AdminService) Summary(days int) (*AnalyticsSummary, error) {
	if days < 1 {
		days = defaultAnalyticsDays
	}

	now := time.Now()
	windowStart := now.AddDate(0, 0, -days)
	previousStart := windowStart.AddDate(0, 0, -days)

	orders, err := s.orderRepo.ListSince(previousStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for analytics: %w", err)
	}

	summary := &AnalyticsSummary{Days: days}
	var prevRevenue float64
	var prevOrders int64

	for i := range orders {
		order := &orders[i]
		if order.CreatedAt.Before(windowStart) {
			prevRevenue += order.TotalPrice
			prevOrders++
			continue
		}
		summary.Revenue += order.TotalPrice
		summary.Orders++
		for _, item := range order.Items {
			summary.ItemsSold += int64(item.Quantity)
		}
	}

	if summary.Orders > 0 {
		summary.AvgOrderValue = summary.Revenue / float64(summary.Orders)
	}
	summary.RevenueGrowth = growth(summary.Revenue, prevRevenue)
	summary.OrdersGrowth = growth(float64(summary.Orders), float64(prevOrders))

	return summary, nil
}

// RevenueTrend возвращает подневную выручку за последние days дней
func (s *AdminService) RevenueTrend(days int) ([]repository.RevenuePoint, error) {
	if days < 1 {
		days = defaultAnalyticsDays
	}
	since := time.Now().AddDate(0, 0, -days)
	return s.orderRepo.RevenueTrend(since)
}

// TopProducts возвращает товары с наибольшим числом продаж
func (s *AdminService) TopProducts(limit int) ([]repository.ProductSales, error) {
	if limit < 1 {
		limit = defaultTopProducts
	}
	return s.orderRepo.TopProducts(limit)
}

// CategoryBreakdown возвращает продажи в разрезе категорий
func (s *AdminService) CategoryBreakdown() ([]repository.CategorySales, error) {
	return s.orderRepo.CategoryBreakdown()
}

func (s *AdminService) logActivity(actorID uint, action, targetType, targetID string, meta entity.JSONMap) {
	activity := &entity.AdminActivity{
		Action:     action,
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   targetID,
		Meta:       meta,
	}
	if err := s.activityRepo.Create(activity); err != nil {
		log.Printf("[AdminService] Не удалось записать аудит %s для %s %s: %v", action, targetType, targetID, err)
	}
}
