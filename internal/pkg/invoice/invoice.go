package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
)

// GenerateNumber формирует номер счёта вида INV-<unix-ms>-<случайный суффикс>.
// Номер присваивается заказу один раз и дальше переиспользуется.
func GenerateNumber() string {
	return fmt.Sprintf("INV-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func formatMoney(value float64) string {
	return fmt.Sprintf("Rs. %.2f", value)
}

// Render отрисовывает PDF-счёт по заказу и возвращает готовый байтовый поток
func Render(order *entity.Order, invoiceNumber string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - left - right

	divider := func() {
		x, y := pdf.GetXY()
		pdf.Line(left, y, pageWidth-right, y)
		pdf.SetXY(x, y+3)
	}

	// Шапка
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(contentWidth, 10, "INVOICE", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth, 5, "KrishCart E-Commerce", "", 1, "C", false, 0, "")
	pdf.CellFormat(contentWidth, 5, "www.KrishCart.com | support@KrishCart.com", "", 1, "C", false, 0, "")
	pdf.CellFormat(contentWidth, 5, "GST: 18AABCT1234H1Z5", "", 1, "C", false, 0, "")
	pdf.Ln(3)
	divider()

	// Реквизиты счёта
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentWidth/2, 6, fmt.Sprintf("Invoice #: %s", invoiceNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 6, fmt.Sprintf("Date: %s", order.CreatedAt.Format("02/01/2006")), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentWidth, 6, fmt.Sprintf("Order ID: %d", order.ID), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Адрес покупателя
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentWidth, 6, "BILL TO:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	addr := order.Address
	if order.User.Name != "" {
		pdf.CellFormat(contentWidth, 5, order.User.Name, "", 1, "L", false, 0, "")
	}
	if order.User.Email != "" {
		pdf.CellFormat(contentWidth, 5, order.User.Email, "", 1, "L", false, 0, "")
	}
	if addr.Street != "" {
		pdf.CellFormat(contentWidth, 5, addr.Street, "", 1, "L", false, 0, "")
	}
	cityLine := addr.City
	if cityLine != "" && addr.State != "" {
		cityLine += ", "
	}
	cityLine += addr.State
	if addr.ZipCode != "" {
		cityLine += " " + addr.ZipCode
	}
	if cityLine != "" {
		pdf.CellFormat(contentWidth, 5, cityLine, "", 1, "L", false, 0, "")
	}
	if addr.Country != "" {
		pdf.CellFormat(contentWidth, 5, addr.Country, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	divider()

	// Таблица позиций
	colItem := contentWidth * 0.50
	colQty := contentWidth * 0.12
	colPrice := contentWidth * 0.18
	colAmount := contentWidth * 0.20

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colItem, 7, "Item", "", 0, "L", false, 0, "")
	pdf.CellFormat(colQty, 7, "Qty", "", 0, "R", false, 0, "")
	pdf.CellFormat(colPrice, 7, "Price", "", 0, "R", false, 0, "")
	pdf.CellFormat(colAmount, 7, "Amount", "", 1, "R", false, 0, "")
	divider()

	pdf.SetFont("Helvetica", "", 9)
	var subtotal float64
	for _, item := range order.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		amount := float64(quantity) * item.Price
		subtotal += amount

		pdf.CellFormat(colItem, 6, item.Title, "", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, 6, fmt.Sprintf("%d", quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(colPrice, 6, formatMoney(item.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(colAmount, 6, formatMoney(amount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)
	divider()

	// Итоги: GST 18% сверх суммы позиций
	gst := float64(int((subtotal*0.18)*100+0.5)) / 100
	total := subtotal + gst

	totalsLabel := colItem + colQty
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(totalsLabel, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(colPrice, 6, "Subtotal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colAmount, 6, formatMoney(subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(totalsLabel, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(colPrice, 6, "GST (18%):", "", 0, "R", false, 0, "")
	pdf.CellFormat(colAmount, 6, formatMoney(gst), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(totalsLabel, 7, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(colPrice, 7, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colAmount, 7, formatMoney(total), "", 1, "R", false, 0, "")
	pdf.Ln(5)

	// Платёжная информация
	pdf.SetFont("Helvetica", "", 9)
	paymentStatus := "PENDING"
	if order.PaymentStatus == entity.PaymentStatusPaid {
		paymentStatus = "PAID"
	}
	pdf.CellFormat(contentWidth, 5, fmt.Sprintf("Payment Status: %s", paymentStatus), "", 1, "L", false, 0, "")
	method := order.PaymentMethod
	if method == "" {
		method = entity.PaymentMethodDefault
	}
	pdf.CellFormat(contentWidth, 5, fmt.Sprintf("Payment Method: %s", method), "", 1, "L", false, 0, "")
	if order.PaymentRef != "" {
		pdf.CellFormat(contentWidth, 5, fmt.Sprintf("Transaction ID: %s", order.PaymentRef), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
	divider()

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentWidth, 5, "Thank you for your purchase! For support, contact support@KrishCart.com", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
