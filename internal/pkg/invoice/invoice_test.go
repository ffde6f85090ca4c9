package invoice

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
)

func TestGenerateNumber_Format(t *testing.T) {
	number := GenerateNumber()
	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "INV", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.NotEmpty(t, parts[2])
}

func TestRender_ProducesPDF(t *testing.T) {
	order := &entity.Order{
		ID:            7,
		TotalPrice:    250,
		TotalItems:    2,
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStatusPaid,
		PaymentMethod: "upi",
		PaymentRef:    "TXN123456",
		CreatedAt:     time.Now(),
		User: entity.User{
			Name:  "Alice",
			Email: "alice@example.com",
		},
		Address: entity.Address{
			Street:  "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			ZipCode: "560001",
			Country: "India",
		},
		Items: []entity.OrderItem{
			{CatalogID: 1, Title: "Cotton Shirt", Price: 100, Quantity: 2},
			{CatalogID: 2, Title: "Leather Belt", Price: 50, Quantity: 1},
		},
	}

	data, err := Render(order, "INV-1700000000000-42")
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// PDF-файл начинается с сигнатуры %PDF
	assert.True(t, strings.HasPrefix(string(data[:4]), "%PDF"))
}
