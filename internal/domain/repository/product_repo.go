package repository

import "github.com/yourusername/krishcart-api/internal/domain/entity"

// ProductFilters — фильтры каталога из query-параметров листинга
type ProductFilters struct {
	Search   string   // подстрока в названии, без учёта регистра
	Category string   // точное совпадение категории, без учёта регистра
	MinPrice *float64 // нижняя граница цены
	MaxPrice *float64 // верхняя граница цены
}

// ProductRepository определяет методы для работы с каталогом товаров
type ProductRepository interface {
	Create(product *entity.Product) error
	GetByID(id uint) (*entity.Product, error)
	GetByCatalogID(catalogID int64) (*entity.Product, error)
	GetByCatalogIDOrTitle(catalogID int64, title string) (*entity.Product, error)
	Update(product *entity.Product) error
	Delete(id uint) error
	// List возвращает страницу каталога и общее число товаров под фильтром
	List(filters ProductFilters, limit, offset int) ([]entity.Product, int64, error)
	ListAll() ([]entity.Product, error)
	// ListLowStock возвращает товары с остатком ниже порога, от меньшего к большему
	ListLowStock(threshold int) ([]entity.Product, error)
	Count() (int64, error)
}
