package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/domain/repository"
)

// Классификация транзакционных писем в журнале
const (
	EmailTypeOTP               = "auth.otp"
	EmailTypeOrderConfirmation = "order.confirmation"
	EmailTypeOrderStatusUpdate = "order.status.update"
)

// EmailMessage описывает одно исходящее письмо
type EmailMessage struct {
	To        string
	Subject   string
	Text      string
	HTML      string
	Type      string
	RelatedID string
	Meta      entity.JSONMap
	RetryOf   *uint
}

// SendResult — результат попытки доставки у провайдера
type SendResult struct {
	Delivered bool
	Skipped   bool // провайдер не сконфигурирован
	MessageID string
	Err       string
}

// EmailSender абстрагирует провайдера доставки.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) SendResult
}

// NoopSender используется, когда ключ провайдера не задан: письма не уходят,
// но каждая попытка всё равно фиксируется в журнале со статусом skipped.
type NoopSender struct{}

func (s *NoopSender) Send(ctx context.Context, msg EmailMessage) SendResult {
	log.Printf("[EmailSender] noop: провайдер не сконфигурирован, письмо для %s пропущено", msg.To)
	return SendResult{Skipped: true, Err: "email provider not configured"}
}

// ResendSender отправляет письма через Resend REST API.
type ResendSender struct {
	from   string
	client *resend.Client
}

func NewResendSender(apiKey, from string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendSender{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) SendResult {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		sent, err := s.client.Emails.SendWithContext(ctx, params)
		if err == nil {
			return SendResult{Delivered: true, MessageID: sent.Id}
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return SendResult{Err: ctx.Err().Error()}
			case <-time.After(wait):
				continue
			}
		}

		return SendResult{Err: err.Error()}
	}

	return SendResult{Err: fmt.Sprintf("resend send failed after retries: %v", lastErr)}
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}

// ErrEmailDeliveryFailed возвращается, когда провайдер отказал в доставке.
// Пропуск (skipped) ошибкой не считается.
var ErrEmailDeliveryFailed = errors.New("email delivery failed")

// EmailService оборачивает провайдера: каждая попытка отправки, успешная
// или нет, добавляет ровно одну запись в email_logs.
type EmailService struct {
	sender       EmailSender
	emailLogRepo repository.EmailLogRepository
	provider     string
}

// NewEmailService создает сервис отправки писем
func NewEmailService(sender EmailSender, emailLogRepo repository.EmailLogRepository) (*EmailService, error) {
	if sender == nil {
		return nil, fmt.Errorf("EmailSender is required for EmailService")
	}
	if emailLogRepo == nil {
		return nil, fmt.Errorf("EmailLogRepository is required for EmailService")
	}
	return &EmailService{
		sender:       sender,
		emailLogRepo: emailLogRepo,
		provider:     "resend",
	}, nil
}

// Send отправляет письмо и фиксирует исход в журнале.
// Возвращает ErrEmailDeliveryFailed только при отказе провайдера.
func (s *EmailService) Send(ctx context.Context, msg EmailMessage) (*entity.EmailLog, error) {
	result := s.sender.Send(ctx, msg)

	status := entity.EmailStatusFailed
	switch {
	case result.Delivered:
		status = entity.EmailStatusSuccess
	case result.Skipped:
		status = entity.EmailStatusSkipped
	}

	meta := msg.Meta
	if meta == nil {
		meta = entity.JSONMap{}
	}

	logEntry := &entity.EmailLog{
		To:        msg.To,
		Subject:   msg.Subject,
		Text:      msg.Text,
		HTML:      msg.HTML,
		Status:    status,
		Error:     result.Err,
		MessageID: result.MessageID,
		Type:      msg.Type,
		RelatedID: msg.RelatedID,
		Meta:      meta,
		Provider:  s.provider,
		RetryOf:   msg.RetryOf,
	}
	if err := s.emailLogRepo.Create(logEntry); err != nil {
		// Сбой журнала не должен ломать отправку
		log.Printf("[EmailService] Не удалось записать email_log для %s: %v", msg.To, err)
	}

	if status == entity.EmailStatusFailed {
		log.Printf("[EmailService] Доставка для %s не удалась: %s", msg.To, result.Err)
		return logEntry, fmt.Errorf("%w: %s", ErrEmailDeliveryFailed, result.Err)
	}
	return logEntry, nil
}

// SendOTP отправляет письмо с кодом подтверждения
func (s *EmailService) SendOTP(ctx context.Context, email, name, code string, expiryMinutes int) error {
	if name == "" {
		name = "Customer"
	}
	msg := EmailMessage{
		To:      email,
		Subject: "Verify your email - KrishCart",
		Text: fmt.Sprintf(
			"Hello %s,\n\nYour verification code is: %s\nThis code will expire in %d minutes.\n\nIf you did not request this, please ignore this email.",
			name, code, expiryMinutes),
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your verification code is:</p><h2>%s</h2><p>This code will expire in %d minutes.</p><p>If you did not request this, please ignore this email.</p>",
			name, code, expiryMinutes),
		Type:      EmailTypeOTP,
		RelatedID: email,
		Meta:      entity.JSONMap{"channel": "email"},
	}
	_, err := s.Send(ctx, msg)
	return err
}

// SendOrderConfirmation отправляет подтверждение оформления заказа
func (s *EmailService) SendOrderConfirmation(ctx context.Context, email, name string, orderID uint, totalPrice float64) error {
	if name == "" {
		name = "Customer"
	}
	msg := EmailMessage{
		To:      email,
		Subject: "Order Confirmed - KrishCart",
		Text: fmt.Sprintf(
			"Hello %s,\n\nYour order has been placed.\nOrder ID: %d\nTotal: Rs. %.2f\n\nThank you for shopping with us.",
			name, orderID, totalPrice),
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your order has been placed.</p><p><strong>Order ID:</strong> %d</p><p><strong>Total:</strong> Rs. %.2f</p><p>Thank you for shopping with us.</p>",
			name, orderID, totalPrice),
		Type:      EmailTypeOrderConfirmation,
		RelatedID: fmt.Sprintf("%d", orderID),
		Meta:      entity.JSONMap{"total_price": totalPrice},
	}
	_, err := s.Send(ctx, msg)
	return err
}

// SendOrderStatusUpdate отправляет уведомление о смене статуса заказа
func (s *EmailService) SendOrderStatusUpdate(ctx context.Context, email, name string, orderID uint, status string) error {
	if name == "" {
		name = "Customer"
	}
	msg := EmailMessage{
		To:      email,
		Subject: "Order Status Updated - KrishCart",
		Text: fmt.Sprintf(
			"Hello %s,\n\nYour order status has been updated.\nOrder ID: %d\nStatus: %s\n\nThank you for shopping with us.",
			name, orderID, status),
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your order status has been updated.</p><p><strong>Order ID:</strong> %d</p><p><strong>Status:</strong> %s</p><p>Thank you for shopping with us.</p>",
			name, orderID, status),
		Type:      EmailTypeOrderStatusUpdate,
		RelatedID: fmt.Sprintf("%d", orderID),
		Meta:      entity.JSONMap{"status": status},
	}
	_, err := s.Send(ctx, msg)
	return err
}

// Retry повторяет отправку письма из записи журнала.
// Новая запись журнала ссылается на исходную через retry_of.
func (s *EmailService) Retry(ctx context.Context, original *entity.EmailLog) (*entity.EmailLog, error) {
	meta := entity.JSONMap{"retry": true}
	for k, v := range original.Meta {
		if k != "retry" {
			meta[k] = v
		}
	}
	originalID := original.ID
	msg := EmailMessage{
		To:        original.To,
		Subject:   original.Subject,
		Text:      original.Text,
		HTML:      original.HTML,
		Type:      original.Type,
		RelatedID: original.RelatedID,
		Meta:      meta,
		RetryOf:   &originalID,
	}
	return s.Send(ctx, msg)
}
