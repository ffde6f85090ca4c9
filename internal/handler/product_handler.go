package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/krishcart-api/internal/service"
)

// ProductHandler обрабатывает запросы каталога товаров
type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler создает новый обработчик каталога
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func parseFloatQuery(c *gin.Context, name string) *float64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// List возвращает страницу каталога с фильтрами и пагинацией
func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "24"))

	result, err := h.productService.List(service.ProductListParams{
		Page:     page,
		Limit:    limit,
		Search:   c.Query("search"),
		Category: c.Query("category"),
		MinPrice: parseFloatQuery(c, "minPrice"),
		MaxPrice: parseFloatQuery(c, "maxPrice"),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get возвращает один товар по идентификатору каталога
func (h *ProductHandler) Get(c *gin.Context) {
	catalogID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id", "error_type": "validation_error"})
		return
	}

	product, err := h.productService.GetByCatalogID(catalogID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// ListAll возвращает весь каталог без пагинации (админка)
func (h *ProductHandler) ListAll(c *gin.Context) {
	products, err := h.productService.ListAll()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Create добавляет товар (админка)
func (h *ProductHandler) Create(c *gin.Context) {
	actorID := c.MustGet("user_id").(uint)

	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	product, err := h.productService.Create(req, actorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// Update изменяет товар (админка)
func (h *ProductHandler) Update(c *gin.Context) {
	actorID := c.MustGet("user_id").(uint)

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id", "error_type": "validation_error"})
		return
	}

	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	product, err := h.productService.Update(uint(productID), req, actorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Delete удаляет товар (админка)
func (h *ProductHandler) Delete(c *gin.Context) {
	actorID := c.MustGet("user_id").(uint)

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id", "error_type": "validation_error"})
		return
	}

	if err := h.productService.Delete(uint(productID), actorID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted."})
}

// LowStock возвращает товары с остатком ниже порога (админка)
func (h *ProductHandler) LowStock(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.DefaultQuery("threshold", "10"))

	products, err := h.productService.LowStock(threshold)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}
