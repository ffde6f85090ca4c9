package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/krishcart-api/internal/domain/repository"
	"github.com/yourusername/krishcart-api/internal/service"
)

// AdminHandler обрабатывает запросы панели администратора
type AdminHandler struct {
	adminService   *service.AdminService
	orderService   *service.OrderService
	productService *service.ProductService
}

// NewAdminHandler создает новый обработчик админки
func NewAdminHandler(adminService *service.AdminService, orderService *service.OrderService, productService *service.ProductService) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		orderService:   orderService,
		productService: productService,
	}
}

// UpdateOrderStatusRequest представляет запрос на смену статуса заказа
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePaymentStatusRequest представляет запрос на смену статуса оплаты
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// UpdateUserRoleRequest представляет запрос на смену роли пользователя
type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Stats возвращает сводку для дашборда
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Users возвращает список всех пользователей
func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.adminService.Users()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateUserRole меняет роль пользователя
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	actorID := c.MustGet("user_id").(uint)

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id", "error_type": "validation_error"})
		return
	}

	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.adminService.UpdateUserRole(uint(userID), req.Role, actorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	log.Printf("[AdminHandler] Администратор ID=%d сменил роль пользователя ID=%d на %s", actorID, userID, req.Role)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Orders возвращает заказы для админки
func (h *AdminHandler) Orders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	orders, err := h.adminService.Orders(limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Order возвращает один заказ с данными покупателя
func (h *AdminHandler) Order(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id", "error_type": "validation_error"})
		return
	}

	order, err := h.adminService.Order(uint(orderID))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus меняет статус заказа
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	actorID := c.MustGet("user_id").(uint)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id", "error_type": "validation_error"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), uint(orderID), req.Status, actorID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdatePaymentStatus меняет статус оплаты заказа
func (h *AdminHandler) UpdatePaymentStatus(c *gin.Context) {
	actorID := c.MustGet("user_id").(uint)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id", "error_type": "validation_error"})
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	order, err := h.orderService.UpdatePaymentStatus(c.Request.Context(), uint(orderID), req.PaymentStatus, actorID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// OrderInvoice отдаёт PDF-счёт по любому заказу (без проверки владельца)
func (h *AdminHandler) OrderInvoice(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id", "error_type": "validation_error"})
		return
	}

	// requestingUserID=0 пропускает проверку владельца
	pdf, invoiceNumber, err := h.orderService.DownloadInvoice(c.Request.Context(), uint(orderID), 0)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", invoiceNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// AuditLog возвращает журнал действий администраторов
func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	activities, err := h.adminService.AuditLog(limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// EmailLogs возвращает журнал отправки писем
func (h *AdminHandler) EmailLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.adminService.EmailLogs(repository.EmailLogFilters{
		Status: c.Query("status"),
		Type:   c.Query("type"),
	}, limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// RetryEmail повторно отправляет письмо из журнала
func (h *AdminHandler) RetryEmail(c *gin.Context) {
	actorID := c.MustGet("user_id").(uint)

	logID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log id", "error_type": "validation_error"})
		return
	}

	logEntry, err := h.adminService.RetryEmail(c.Request.Context(), uint(logID), actorID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": logEntry})
}

// AnalyticsSummary возвращает агрегаты продаж за окно с ростом
func (h *AdminHandler) AnalyticsSummary(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	summary, err := h.adminService.Summary(days)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RevenueTrend возвращает подневную выручку
func (h *AdminHandler) RevenueTrend(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	trend, err := h.adminService.RevenueTrend(days)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trend": trend})
}

// TopProducts возвращает самые продаваемые товары
func (h *AdminHandler) TopProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	products, err := h.adminService.TopProducts(limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CategoryBreakdown возвращает продажи по категориям
func (h *AdminHandler) CategoryBreakdown(c *gin.Context) {
	categories, err := h.adminService.CategoryBreakdown()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ExportOrders выгружает все заказы в Excel с использованием StreamWriter
func (h *AdminHandler) ExportOrders(c *gin.Context) {
	orders, err := h.adminService.Orders(0)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("orders_%s", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Заказы"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AdminHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal_server_error"})
		return
	}

	headers := []interface{}{"ID", "Покупатель", "Email", "Сумма", "Позиций", "Статус", "Оплата", "Метод", "Счёт", "Создан"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AdminHandler] Ошибка записи заголовков: %v", err)
	}

	for i, order := range orders {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{
			order.ID,
			sanitizeForExcel(order.User.Name),
			sanitizeForExcel(order.User.Email),
			order.TotalPrice,
			order.TotalItems,
			order.Status,
			order.PaymentStatus,
			order.PaymentMethod,
			order.InvoiceNumber,
			order.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AdminHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AdminHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AdminHandler] Ошибка записи файла в ответ: %v", err)
	}
}

// sanitizeForExcel экранирует значения, которые Excel принял бы за формулу
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
