package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

// OrderRepo реализует repository.OrderRepository
type OrderRepo struct {
	db *gorm.DB
}

// NewOrderRepo создает новый репозиторий заказов
func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create сохраняет заказ вместе с позициями (gorm создаёт order_items каскадно)
func (r *OrderRepo) Create(order *entity.Order) error {
	return r.db.Create(order).Error
}

func (r *OrderRepo) GetByID(id uint) (*entity.Order, error) {
	var order entity.Order
	err := r.db.Preload("Items").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDWithUser дополнительно подгружает покупателя для писем и инвойсов
func (r *OrderRepo) GetByIDWithUser(id uint) (*entity.Order, error) {
	var order entity.Order
	err := r.db.Preload("Items").Preload("User").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) Update(order *entity.Order) error {
	// Save с ненулевым первичным ключом обновляет запись;
	// позиции заказа неизменяемы после создания и не пересохраняются
	return r.db.Omit("Items", "User").Save(order).Error
}

func (r *OrderRepo) ListByUser(userID uint) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.
		Preload("Items").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

// List возвращает заказы от новых к старым; limit <= 0 означает без ограничения
func (r *OrderRepo) List(limit int) ([]entity.Order, error) {
	query := r.db.Preload("Items").Preload("User").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var orders []entity.Order
	err := query.Find(&orders).Error
	return orders, err
}

func (r *OrderRepo) ListSince(since time.Time) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.
		Preload("Items").
		Where("created_at >= ?", since).
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepo) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entity.Order{}).Count(&count).Error
	return count, err
}

// TotalRevenue возвращает суммарную выручку по всем заказам
func (r *OrderRepo) TotalRevenue() (float64, error) {
	var revenue float64
	err := r.db.Model(&entity.Order{}).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&revenue).Error
	return revenue, err
}

// RevenueTrend возвращает выручку и число заказов по дням начиная с since
func (r *OrderRepo) RevenueTrend(since time.Time) ([]repository.RevenuePoint, error) {
	var trend []repository.RevenuePoint
	err := r.db.Model(&entity.Order{}).
		Select("to_char(created_at, 'YYYY-MM-DD') AS day, COALESCE(SUM(total_price), 0) AS revenue, COUNT(*) AS orders").
		Where("created_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&trend).Error
	return trend, err
}

// TopProducts возвращает товары по убыванию проданного количества
func (r *OrderRepo) TopProducts(limit int) ([]repository.ProductSales, error) {
	var sales []repository.ProductSales
	err := r.db.Model(&entity.OrderItem{}).
		Select("catalog_id, MIN(title) AS title, SUM(quantity) AS total_sold, SUM(price * quantity) AS total_revenue").
		Group("catalog_id").
		Order("total_sold DESC").
		Limit(limit).
		Scan(&sales).Error
	return sales, err
}

// CategoryBreakdown возвращает продажи в разрезе категорий, по убыванию выручки
func (r *OrderRepo) CategoryBreakdown() ([]repository.CategorySales, error) {
	var breakdown []repository.CategorySales
	err := r.db.Model(&entity.OrderItem{}).
		Select("category, SUM(quantity) AS total_sold, SUM(price * quantity) AS total_revenue, COUNT(DISTINCT order_id) AS orders").
		Group("category").
		Order("total_revenue DESC").
		Scan(&breakdown).Error
	return breakdown, err
}
