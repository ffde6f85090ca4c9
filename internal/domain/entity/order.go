package entity

import "time"

// Статусы заказа (логистика)
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Статусы оплаты — отслеживаются отдельно от статуса заказа
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// PaymentMethodDefault — способ оплаты по умолчанию
const PaymentMethodDefault = "upi"

// Order представляет оформленный заказ
type Order struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Позиции заказа — снапшоты товаров на момент покупки, а не живые ссылки
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	TotalPrice float64 `gorm:"not null" json:"total_price"`
	TotalItems int     `gorm:"not null" json:"total_items"`
	Date       string  `gorm:"size:50;not null" json:"date"` // дата в свободном формате от клиента

	Status        string `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaymentStatus string `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	PaymentMethod string `gorm:"size:20;not null;default:'upi'" json:"payment_method"`
	PaymentRef    string `gorm:"size:100;not null;default:''" json:"payment_ref"`
	PaymentNote   string `gorm:"size:500;not null;default:''" json:"payment_note"`

	PaymentVerifiedAt *time.Time `json:"payment_verified_at,omitempty"`

	// Снапшот адреса доставки на момент оформления
	Address Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`

	// Номер счёта присваивается лениво при первом скачивании и больше не меняется
	InvoiceNumber      string     `gorm:"size:50;not null;default:''" json:"invoice_number,omitempty"`
	InvoiceGeneratedAt *time.Time `json:"invoice_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem — позиция заказа, принадлежит исключительно заказу
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"not null;index" json:"-"`
	CatalogID int64   `gorm:"not null" json:"catalog_id"`
	Title     string  `gorm:"size:200;not null" json:"title"`
	Category  string  `gorm:"size:100;not null;default:''" json:"category"`
	Price     float64 `gorm:"not null" json:"price"`
	Quantity  int     `gorm:"not null" json:"quantity"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// IsValidOrderStatus проверяет значение статуса заказа
func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentStatus проверяет значение статуса оплаты
func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// NormalizePaymentStatus приводит статус оплаты к одному из допустимых,
// незнакомые значения трактуются как pending
func NormalizePaymentStatus(status string) string {
	if IsValidPaymentStatus(status) {
		return status
	}
	return PaymentStatusPending
}
