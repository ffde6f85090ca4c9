package entity

import "time"

// Product представляет товар каталога.
// CatalogID — внешний числовой идентификатор товара (из фида каталога),
// он не совпадает с первичным ключом таблицы.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CatalogID   int64     `gorm:"not null;uniqueIndex" json:"catalog_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Price       float64   `gorm:"not null" json:"price"`
	Category    string    `gorm:"size:100;not null;index" json:"category"`
	Image       string    `gorm:"size:500;not null;default:''" json:"image"`
	Stock       int       `gorm:"not null;default:0" json:"stock"` // не может уходить в минус
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// HasStock проверяет, хватает ли остатка под запрошенное количество
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
