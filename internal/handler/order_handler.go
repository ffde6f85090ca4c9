package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
	"github.com/yourusername/krishcart-api/internal/service"
)

// OrderHandler обрабатывает запросы оформления и просмотра заказов
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrderRequest представляет запрос на оформление заказа
type PlaceOrderRequest struct {
	Items         []service.OrderItemInput `json:"items" binding:"required"`
	TotalPrice    float64                  `json:"total_price" binding:"required,gt=0"`
	TotalItems    int                      `json:"total_items" binding:"required,gt=0"`
	Date          string                   `json:"date" binding:"omitempty"`
	Address       entity.Address           `json:"address" binding:"omitempty"`
	PaymentMethod string                   `json:"payment_method" binding:"omitempty"`
	PaymentRef    string                   `json:"payment_ref" binding:"omitempty"`
	PaymentNote   string                   `json:"payment_note" binding:"omitempty,max=500"`
	PaymentStatus string                   `json:"payment_status" binding:"omitempty"`
}

// Place оформляет заказ из корзины текущего пользователя
func (h *OrderHandler) Place(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), userID, service.PlaceOrderInput{
		Items:         req.Items,
		TotalPrice:    req.TotalPrice,
		TotalItems:    req.TotalItems,
		Date:          req.Date,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		PaymentRef:    req.PaymentRef,
		PaymentNote:   req.PaymentNote,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	log.Printf("[OrderHandler] Пользователь ID=%d оформил заказ ID=%d", userID, order.ID)
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// MyOrders возвращает заказы текущего пользователя
func (h *OrderHandler) MyOrders(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	orders, err := h.orderService.UserOrders(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Get возвращает один заказ текущего пользователя
func (h *OrderHandler) Get(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id", "error_type": "validation_error"})
		return
	}

	order, err := h.orderService.Get(uint(orderID))
	if err != nil {
		respondWithError(c, err)
		return
	}
	if order.UserID != userID {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Invoice отдаёт PDF-счёт по заказу текущего пользователя
func (h *OrderHandler) Invoice(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id", "error_type": "validation_error"})
		return
	}

	pdf, invoiceNumber, err := h.orderService.DownloadInvoice(c.Request.Context(), uint(orderID), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", invoiceNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// CreatePaymentIntentRequest представляет запрос на создание платёжного интента
type CreatePaymentIntentRequest struct {
	Amount float64 `json:"amount" binding:"omitempty,gte=0"`
}

// CreatePaymentIntent имитирует инициализацию платежа.
// Реальный платёжный шлюз не подключён: клиент получает фиктивный
// clientSecret и подтверждает оплату ссылкой на транзакцию при заказе.
func (h *OrderHandler) CreatePaymentIntent(c *gin.Context) {
	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clientSecret": "fake_client_secret",
		"success":      true,
	})
}
