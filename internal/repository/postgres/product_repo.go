package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

// ProductRepo реализует repository.ProductRepository
type ProductRepo struct {
	db *gorm.DB
}

// NewProductRepo создает новый репозиторий каталога
func NewProductRepo(db *gorm.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

// Create вставляет товар. Unique index на catalog_id закрывает гонку
// между проверкой дубликата в сервисе и вставкой.
func (r *ProductRepo) Create(product *entity.Product) error {
	err := r.db.Create(product).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.ErrConflict
	}
	return err
}

// isUniqueViolation проверяет Postgres unique violation (23505) от pgx-драйвера
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *ProductRepo) GetByID(id uint) (*entity.Product, error) {
	var product entity.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepo) GetByCatalogID(catalogID int64) (*entity.Product, error) {
	var product entity.Product
	err := r.db.Where("catalog_id = ?", catalogID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetByCatalogIDOrTitle используется для проверки дубликатов при создании товара
func (r *ProductRepo) GetByCatalogIDOrTitle(catalogID int64, title string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.Where("catalog_id = ? OR title = ?", catalogID, title).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepo) Update(product *entity.Product) error {
	return r.db.Save(product).Error
}

func (r *ProductRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.Product{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает страницу каталога под фильтром и общее число товаров.
// Сортировка всегда по catalog_id по возрастанию.
func (r *ProductRepo) List(filters repository.ProductFilters, limit, offset int) ([]entity.Product, int64, error) {
	query := r.db.Model(&entity.Product{})

	if search := strings.TrimSpace(filters.Search); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}
	if category := strings.TrimSpace(filters.Category); category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", category)
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []entity.Product
	err := query.
		Order("catalog_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepo) ListAll() ([]entity.Product, error) {
	var products []entity.Product
	err := r.db.Order("catalog_id ASC").Find(&products).Error
	return products, err
}

// ListLowStock возвращает товары с остатком ниже порога, скудные первыми
func (r *ProductRepo) ListLowStock(threshold int) ([]entity.Product, error) {
	var products []entity.Product
	err := r.db.
		Where("stock < ?", threshold).
		Order("stock ASC").
		Find(&products).Error
	return products, err
}

func (r *ProductRepo) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entity.Product{}).Count(&count).Error
	return count, err
}
