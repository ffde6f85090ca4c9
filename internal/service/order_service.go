package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
	"github.com/yourusername/krishcart-api/internal/pkg/invoice"
)

// Ошибки оформления заказа
var (
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", apperrors.ErrValidation)
	ErrInvalidPaymentRef = fmt.Errorf("%w: payment reference must be at least 6 characters", apperrors.ErrValidation)
)

// ProductNotFoundError указывает на несуществующий товар в корзине
type ProductNotFoundError struct {
	Ref string // ссылка на товар из запроса
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.Ref)
}

// InsufficientStockError указывает на нехватку остатка по конкретному товару
type InsufficientStockError struct {
	CatalogID int64
	Title     string
	Available int
	Required  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, required %d",
		e.Title, e.Available, e.Required)
}

// OrderItemInput — позиция корзины из запроса
type OrderItemInput struct {
	ProductID uint  `json:"product_id"` // внутренний id, опционально
	CatalogID int64 `json:"catalog_id"`
	Quantity  int   `json:"quantity"`
}

// PlaceOrderInput — полные данные оформления заказа
type PlaceOrderInput struct {
	Items         []OrderItemInput
	TotalPrice    float64
	TotalItems    int
	Date          string
	Address       entity.Address
	PaymentMethod string
	PaymentRef    string
	PaymentNote   string
	PaymentStatus string
}

// OrderService превращает корзину в сохранённый заказ со списанием остатков
// и управляет статусами заказа
type OrderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	userRepo     repository.UserRepository
	activityRepo repository.AdminActivityRepository
	emailService *EmailService
}

// NewOrderService создает новый сервис заказов и возвращает ошибку при проблемах
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	activityRepo repository.AdminActivityRepository,
	emailService *EmailService,
) (*OrderService, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("OrderRepository is required for OrderService")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("ProductRepository is required for OrderService")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for OrderService")
	}
	if activityRepo == nil {
		return nil, fmt.Errorf("AdminActivityRepository is required for OrderService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for OrderService")
	}
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		emailService: emailService,
	}, nil
}

// resolveProduct находит товар по внутреннему id, если он задан,
// иначе по внешнему catalog id
func (s *OrderService) resolveProduct(item OrderItemInput) (*entity.Product, string, error) {
	if item.ProductID != 0 {
		ref := fmt.Sprintf("id=%d", item.ProductID)
		product, err := s.productRepo.GetByID(item.ProductID)
		return product, ref, err
	}
	ref := fmt.Sprintf("catalog_id=%d", item.CatalogID)
	product, err := s.productRepo.GetByCatalogID(item.CatalogID)
	return product, ref, err
}

// PlaceOrder валидирует корзину, списывает остатки и сохраняет заказ.
//
// Списание идёт последовательно по мере валидации позиций и НЕ оборачивается
// транзакцией: если падает поздняя позиция, ранние списания не откатываются.
// Подтверждающее письмо — best-effort: его сбой не влияет на результат.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, input PlaceOrderInput) (*entity.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]entity.OrderItem, 0, len(input.Items))
	for _, itemInput := range input.Items {
		quantity := itemInput.Quantity
		if quantity < 1 {
			quantity = 1
		}

		product, ref, err := s.resolveProduct(itemInput)
		if err != nil {
			if err == apperrors.ErrNotFound {
				return nil, &ProductNotFoundError{Ref: ref}
			}
			return nil, err
		}

		if !product.HasStock(quantity) {
			return nil, &InsufficientStockError{
				CatalogID: product.CatalogID,
				Title:     product.Title,
				Available: product.Stock,
				Required:  quantity,
			}
		}

		product.Stock -= quantity
		if err := s.productRepo.Update(product); err != nil {
			return nil, fmt.Errorf("failed to decrement stock for %q: %w", product.Title, err)
		}

		items = append(items, entity.OrderItem{
			CatalogID: product.CatalogID,
			Title:     product.Title,
			Category:  product.Category,
			Price:     product.Price,
			Quantity:  quantity,
		})
	}

	paymentMethod := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if paymentMethod == "" {
		paymentMethod = entity.PaymentMethodDefault
	}
	paymentRef := strings.TrimSpace(input.PaymentRef)
	if paymentMethod == entity.PaymentMethodDefault && paymentRef != "" && len(paymentRef) < 6 {
		return nil, ErrInvalidPaymentRef
	}

	paymentStatus := entity.NormalizePaymentStatus(strings.ToLower(strings.TrimSpace(input.PaymentStatus)))
	status := entity.OrderStatusPending
	if paymentStatus == entity.PaymentStatusPaid {
		status = entity.OrderStatusPaid
	}

	order := &entity.Order{
		UserID:        userID,
		Items:         items,
		TotalPrice:    input.TotalPrice,
		TotalItems:    input.TotalItems,
		Date:          input.Date,
		Status:        status,
		PaymentStatus: paymentStatus,
		PaymentMethod: paymentMethod,
		PaymentRef:    paymentRef,
		PaymentNote:   strings.TrimSpace(input.PaymentNote),
		Address:       input.Address,
	}
	if paymentStatus == entity.PaymentStatusPaid {
		now := time.Now()
		order.PaymentVerifiedAt = &now
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Заказ завершён с момента сохранения; уведомление не влияет на исход
	s.sendOrderConfirmation(ctx, userID, order)

	return order, nil
}

func (s *OrderService) sendOrderConfirmation(ctx context.Context, userID uint, order *entity.Order) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		log.Printf("[OrderService] Не удалось найти покупателя для подтверждения заказа %d: %v", order.ID, err)
		return
	}
	if !isValidEmail(user.Email) {
		return
	}
	if err := s.emailService.SendOrderConfirmation(ctx, user.Email, user.Name, order.ID, order.TotalPrice); err != nil {
		log.Printf("[OrderService] Письмо о заказе %d не отправлено: %v", order.ID, err)
	}
}

// UserOrders возвращает заказы пользователя, новые первыми
func (s *OrderService) UserOrders(userID uint) ([]entity.Order, error) {
	return s.orderRepo.ListByUser(userID)
}

// Get возвращает заказ по ID
func (s *OrderService) Get(orderID uint) (*entity.Order, error) {
	return s.orderRepo.GetByID(orderID)
}

// DownloadInvoice возвращает PDF-счёт по заказу.
// Номер счёта присваивается при первом запросе и сохраняется; повторные
// скачивания переиспользуют его (идемпотентно). Сбой отрисовки не трогает
// уже сохранённый номер.
func (s *OrderService) DownloadInvoice(ctx context.Context, orderID, requestingUserID uint) ([]byte, string, error) {
	order, err := s.orderRepo.GetByIDWithUser(orderID)
	if err != nil {
		return nil, "", err
	}

	if requestingUserID != 0 && order.UserID != requestingUserID {
		return nil, "", apperrors.ErrForbidden
	}

	if order.InvoiceNumber == "" {
		now := time.Now()
		order.InvoiceNumber = invoice.GenerateNumber()
		order.InvoiceGeneratedAt = &now
		if err := s.orderRepo.Update(order); err != nil {
			return nil, "", fmt.Errorf("failed to persist invoice number: %w", err)
		}
	}

	data, err := invoice.Render(order, order.InvoiceNumber)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate invoice: %w", err)
	}
	return data, order.InvoiceNumber, nil
}

// UpdateStatus меняет статус заказа (админка).
// Неизменённое значение — тихий no-op без записи аудита и письма.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string, actorID uint) (*entity.Order, error) {
	if !entity.IsValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: invalid status %q", apperrors.ErrValidation, status)
	}

	order, err := s.orderRepo.GetByIDWithUser(orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if previous == status {
		return order, nil
	}

	order.Status = status
	if err := s.orderRepo.Update(order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logActivity(actorID, "order.status.update", "order", order.ID, entity.JSONMap{
		"from": previous,
		"to":   status,
	})

	// Смена статуса (в отличие от смены статуса оплаты) уведомляет покупателя
	if isValidEmail(order.User.Email) {
		if err := s.emailService.SendOrderStatusUpdate(ctx, order.User.Email, order.User.Name, order.ID, status); err != nil {
			log.Printf("[OrderService] Письмо о смене статуса заказа %d не отправлено: %v", order.ID, err)
		}
	}

	return order, nil
}

// UpdatePaymentStatus меняет статус оплаты (админка).
// Перевод в paid дополнительно ставит payment_verified_at и продвигает
// статус заказа pending -> paid, никогда не понижая более поздние статусы.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID uint, paymentStatus string, actorID uint) (*entity.Order, error) {
	if !entity.IsValidPaymentStatus(paymentStatus) {
		return nil, fmt.Errorf("%w: invalid payment status %q", apperrors.ErrValidation, paymentStatus)
	}

	order, err := s.orderRepo.GetByIDWithUser(orderID)
	if err != nil {
		return nil, err
	}

	previous := order.PaymentStatus
	if previous == "" {
		previous = entity.PaymentStatusPending
	}
	if previous == paymentStatus {
		return order, nil
	}

	order.PaymentStatus = paymentStatus
	if paymentStatus == entity.PaymentStatusPaid {
		now := time.Now()
		order.PaymentVerifiedAt = &now
		if order.Status == entity.OrderStatusPending {
			order.Status = entity.OrderStatusPaid
		}
	}
	if err := s.orderRepo.Update(order); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	s.logActivity(actorID, "order.payment.update", "order", order.ID, entity.JSONMap{
		"from": previous,
		"to":   paymentStatus,
	})

	return order, nil
}

func (s *OrderService) logActivity(actorID uint, action, targetType string, targetID uint, meta entity.JSONMap) {
	activity := &entity.AdminActivity{
		Action:     action,
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   fmt.Sprintf("%d", targetID),
		Meta:       meta,
	}
	if err := s.activityRepo.Create(activity); err != nil {
		log.Printf("[OrderService] Не удалось записать аудит %s для %s %d: %v", action, targetType, targetID, err)
	}
}
