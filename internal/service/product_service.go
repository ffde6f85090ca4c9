package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

const (
	productPageCachePrefix = "products:page:"
	productPageCacheTTL    = 60 * time.Second

	defaultPageLimit = 24
	maxPageLimit     = 100

	defaultLowStockThreshold = 10
)

// ErrProductExists возвращается при попытке создать дубликат товара
var ErrProductExists = fmt.Errorf("%w: product with this catalog id or title already exists", apperrors.ErrConflict)

// ProductListParams — параметры листинга каталога
type ProductListParams struct {
	Page     int
	Limit    int
	Search   string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// ProductPage — страница каталога с метаданными пагинации
type ProductPage struct {
	Items   []entity.Product `json:"items"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	HasMore bool             `json:"has_more"`
}

// ProductInput — данные товара из админки
type ProductInput struct {
	CatalogID   int64    `json:"catalog_id"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Stock       *int     `json:"stock"`
	Description string   `json:"description"`
}

// ProductService обслуживает публичный каталог и админские операции над ним
type ProductService struct {
	productRepo  repository.ProductRepository
	cacheRepo    repository.CacheRepository
	activityRepo repository.AdminActivityRepository
}

// NewProductService создает новый сервис каталога и возвращает ошибку при проблемах
func NewProductService(
	productRepo repository.ProductRepository,
	cacheRepo repository.CacheRepository,
	activityRepo repository.AdminActivityRepository,
) (*ProductService, error) {
	if productRepo == nil {
		return nil, fmt.Errorf("ProductRepository is required for ProductService")
	}
	if cacheRepo == nil {
		return nil, fmt.Errorf("CacheRepository is required for ProductService")
	}
	if activityRepo == nil {
		return nil, fmt.Errorf("AdminActivityRepository is required for ProductService")
	}
	return &ProductService{
		productRepo:  productRepo,
		cacheRepo:    cacheRepo,
		activityRepo: activityRepo,
	}, nil
}

func normalizeListParams(params ProductListParams) ProductListParams {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = defaultPageLimit
	}
	if params.Limit > maxPageLimit {
		params.Limit = maxPageLimit
	}
	params.Search = strings.TrimSpace(params.Search)
	params.Category = strings.TrimSpace(params.Category)
	return params
}

func (s *ProductService) pageCacheKey(params ProductListParams) string {
	minPrice, maxPrice := "", ""
	if params.MinPrice != nil {
		minPrice = fmt.Sprintf("%.2f", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		maxPrice = fmt.Sprintf("%.2f", *params.MaxPrice)
	}
	return fmt.Sprintf("%sp=%d:l=%d:s=%s:c=%s:min=%s:max=%s",
		productPageCachePrefix, params.Page, params.Limit,
		strings.ToLower(params.Search), strings.ToLower(params.Category),
		minPrice, maxPrice)
}

// List возвращает страницу каталога. Страницы кешируются в Redis с коротким
// TTL; кеш сквозной — его недоступность не ломает листинг
func (s *ProductService) List(params ProductListParams) (*ProductPage, error) {
	params = normalizeListParams(params)
	cacheKey := s.pageCacheKey(params)

	var cached ProductPage
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	filters := repository.ProductFilters{
		Search:   params.Search,
		Category: params.Category,
		MinPrice: params.MinPrice,
		MaxPrice: params.MaxPrice,
	}
	offset := (params.Page - 1) * params.Limit
	items, total, err := s.productRepo.List(filters, params.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	page := &ProductPage{
		Items:   items,
		Total:   total,
		Page:    params.Page,
		Limit:   params.Limit,
		HasMore: int64(offset+len(items)) < total,
	}

	if err := s.cacheRepo.SetJSON(cacheKey, page, productPageCacheTTL); err != nil {
		log.Printf("[ProductService] Не удалось закешировать страницу каталога: %v", err)
	}

	return page, nil
}

// GetByCatalogID возвращает товар по внешнему идентификатору каталога
func (s *ProductService) GetByCatalogID(catalogID int64) (*entity.Product, error) {
	return s.productRepo.GetByCatalogID(catalogID)
}

// Create добавляет товар в каталог (админка)
func (s *ProductService) Create(input ProductInput, actorID uint) (*entity.Product, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if input.CatalogID <= 0 {
		return nil, fmt.Errorf("%w: catalog_id must be positive", apperrors.ErrValidation)
	}

	if existing, err := s.productRepo.GetByCatalogIDOrTitle(input.CatalogID, title); err == nil && existing != nil {
		return nil, ErrProductExists
	} else if err != nil && err != apperrors.ErrNotFound {
		return nil, err
	}

	product := &entity.Product{
		CatalogID:   input.CatalogID,
		Title:       title,
		Category:    strings.TrimSpace(input.Category),
		Image:       strings.TrimSpace(input.Image),
		Description: strings.TrimSpace(input.Description),
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if product.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
	}
	if product.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", apperrors.ErrValidation)
	}

	if err := s.productRepo.Create(product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidatePageCache()
	s.logActivity(actorID, "product.create", product.ID, entity.JSONMap{
		"catalog_id": product.CatalogID,
		"title":      product.Title,
	})

	return product, nil
}

// Update изменяет товар и пишет в аудит только реально изменившиеся поля
func (s *ProductService) Update(productID uint, input ProductInput, actorID uint) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}

	changes := entity.JSONMap{}

	if title := strings.TrimSpace(input.Title); title != "" && title != product.Title {
		changes["title"] = entity.JSONMap{"from": product.Title, "to": title}
		product.Title = title
	}
	if category := strings.TrimSpace(input.Category); category != "" && category != product.Category {
		changes["category"] = entity.JSONMap{"from": product.Category, "to": category}
		product.Category = category
	}
	if image := strings.TrimSpace(input.Image); image != "" && image != product.Image {
		changes["image"] = entity.JSONMap{"from": product.Image, "to": image}
		product.Image = image
	}
	if description := strings.TrimSpace(input.Description); description != "" && description != product.Description {
		changes["description"] = entity.JSONMap{"from": product.Description, "to": description}
		product.Description = description
	}
	if input.Price != nil && *input.Price != product.Price {
		if *input.Price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
		}
		changes["price"] = entity.JSONMap{"from": product.Price, "to": *input.Price}
		product.Price = *input.Price
	}
	if input.Stock != nil && *input.Stock != product.Stock {
		if *input.Stock < 0 {
			return nil, fmt.Errorf("%w: stock must not be negative", apperrors.ErrValidation)
		}
		changes["stock"] = entity.JSONMap{"from": product.Stock, "to": *input.Stock}
		product.Stock = *input.Stock
	}

	if len(changes) == 0 {
		return product, nil
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidatePageCache()
	s.logActivity(actorID, "product.update", product.ID, changes)

	return product, nil
}

// Delete удаляет товар из каталога (админка)
func (s *ProductService) Delete(productID uint, actorID uint) error {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.invalidatePageCache()
	s.logActivity(actorID, "product.delete", productID, entity.JSONMap{
		"catalog_id": product.CatalogID,
		"title":      product.Title,
	})

	return nil
}

// ListAll возвращает весь каталог для админки, без пагинации и кеша
func (s *ProductService) ListAll() ([]entity.Product, error) {
	return s.productRepo.ListAll()
}

// LowStock возвращает товары с остатком ниже порога, самые дефицитные первыми
func (s *ProductService) LowStock(threshold int) ([]entity.Product, error) {
	if threshold < 1 {
		threshold = defaultLowStockThreshold
	}
	return s.productRepo.ListLowStock(threshold)
}

func (s *ProductService) invalidatePageCache() {
	if err := s.cacheRepo.DeleteByPattern(productPageCachePrefix + "*"); err != nil {
		log.Printf("[ProductService] Не удалось сбросить кеш каталога: %v", err)
	}
}

func (s *ProductService) logActivity(actorID uint, action string, productID uint, meta entity.JSONMap) {
	activity := &entity.AdminActivity{
		Action:     action,
		ActorID:    actorID,
		TargetType: "product",
		TargetID:   fmt.Sprintf("%d", productID),
		Meta:       meta,
	}
	if err := s.activityRepo.Create(activity); err != nil {
		log.Printf("[ProductService] Не удалось записать аудит %s для товара %d: %v", action, productID, err)
	}
}
