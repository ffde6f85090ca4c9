package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
	"github.com/yourusername/krishcart-api/internal/service"
)

// respondWithError переводит ошибки сервисного слоя в HTTP-ответы.
// Тело всегда содержит error и error_type; для временных блокировок
// добавляется retry_after_seconds.
func respondWithError(c *gin.Context, err error) {
	var lockedErr *service.OTPLockedError
	if errors.As(err, &lockedErr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               "Too many attempts. Try again later.",
			"error_type":          "otp_locked",
			"retry_after_seconds": lockedErr.RetryAfterSeconds,
		})
		return
	}

	var cooldownErr *service.ResendCooldownError
	if errors.As(err, &cooldownErr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               "Please wait before requesting a new code.",
			"error_type":          "otp_resend_cooldown",
			"retry_after_seconds": cooldownErr.RetryAfterSeconds,
		})
		return
	}

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      stockErr.Error(),
			"error_type": "insufficient_stock",
			"product":    stockErr.Title,
			"available":  stockErr.Available,
			"required":   stockErr.Required,
		})
		return
	}

	var productErr *service.ProductNotFoundError
	if errors.As(err, &productErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": productErr.Error(), "error_type": "product_not_found"})
		return
	}

	switch {
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered", "error_type": "email_taken"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password", "error_type": "invalid_credentials"})
	case errors.Is(err, service.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "Email is not verified", "error_type": "email_not_verified"})
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already verified", "error_type": "already_verified"})
	case errors.Is(err, service.ErrInvalidOTP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code", "error_type": "otp_invalid"})
	case errors.Is(err, service.ErrOTPNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No active verification code. Request a new one.", "error_type": "otp_not_found"})
	case errors.Is(err, service.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification code has expired. Request a new one.", "error_type": "otp_expired"})
	case errors.Is(err, service.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Request a new code.", "error_type": "otp_attempts_exhausted"})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty", "error_type": "empty_cart"})
	case errors.Is(err, service.ErrInvalidPaymentRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment reference must be at least 6 characters", "error_type": "invalid_payment_ref"})
	case errors.Is(err, service.ErrEmailDeliveryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send email. Please try again.", "error_type": "email_delivery_failed"})
	case errors.Is(err, apperrors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Try again later.", "error_type": "rate_limited"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied", "error_type": "forbidden"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	default:
		log.Printf("[Handler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
