package repository

import (
	"time"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
)

// RevenuePoint — агрегат выручки за один день
type RevenuePoint struct {
	Day     string  `json:"day"` // YYYY-MM-DD
	Revenue float64 `json:"revenue"`
	Orders  int64   `json:"orders"`
}

// ProductSales — агрегат продаж по товару
type ProductSales struct {
	CatalogID    int64   `json:"catalog_id"`
	Title        string  `json:"title"`
	TotalSold    int64   `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

// CategorySales — агрегат продаж по категории
type CategorySales struct {
	Category     string  `json:"category"`
	TotalSold    int64   `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
	Orders       int64   `json:"orders"`
}

// OrderRepository определяет методы для работы с заказами
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями
	Create(order *entity.Order) error
	GetByID(id uint) (*entity.Order, error)
	// GetByIDWithUser дополнительно подгружает покупателя (имя, email)
	GetByIDWithUser(id uint) (*entity.Order, error)
	Update(order *entity.Order) error
	ListByUser(userID uint) ([]entity.Order, error)
	// List возвращает заказы от новых к старым; limit <= 0 — без ограничения
	List(limit int) ([]entity.Order, error)
	ListSince(since time.Time) ([]entity.Order, error)
	Count() (int64, error)
	TotalRevenue() (float64, error)

	// Агрегаты для аналитики админки
	RevenueTrend(since time.Time) ([]RevenuePoint, error)
	TopProducts(limit int) ([]ProductSales, error)
	CategoryBreakdown() ([]CategorySales, error)
}
