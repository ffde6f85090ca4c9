package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/krishcart-api/internal/domain/entity"
	"github.com/yourusername/krishcart-api/internal/service"
)

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService *service.AuthService
	otpService  *service.OTPService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, otpService *service.OTPService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		otpService:  otpService,
	}
}

// Структуры запросов и ответов

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyOTPRequest представляет запрос на проверку кода подтверждения
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

// ResendOTPRequest представляет запрос на повторную отправку кода.
// Имя для письма берётся из аккаунта, а не из запроса.
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AuthResponse — пользователь с токеном доступа
type AuthResponse struct {
	User      *entity.User `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
}

// UpdateProfileRequest представляет запрос на обновление профиля
type UpdateProfileRequest struct {
	Name    *string         `json:"name" binding:"omitempty,min=2,max=100"`
	Phone   *string         `json:"phone" binding:"omitempty,max=20"`
	Address *entity.Address `json:"address" binding:"omitempty"`
}

// ChangePasswordRequest представляет запрос на смену пароля
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// Register обрабатывает запрос на регистрацию.
// Аккаунт создаётся неподтверждённым; код отправляется на email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d (%s) зарегистрирован, ожидает подтверждения", user.ID, user.Email)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Check your email for the verification code.",
		"user":    user,
	})
}

// Login обрабатывает запрос на вход
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d выполнил вход", user.ID)
	c.JSON(http.StatusOK, AuthResponse{User: user, Token: token, TokenType: "Bearer"})
}

// VerifyOTP проверяет код подтверждения email.
// Успешная проверка сразу выпускает токен: отдельный вход не нужен.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.otpService.Verify(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	log.Printf("[AuthHandler] Email пользователя ID=%d подтверждён", user.ID)
	c.JSON(http.StatusOK, AuthResponse{User: user, Token: token, TokenType: "Bearer"})
}

// ResendOTP повторно отправляет код подтверждения
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if err := h.otpService.Resend(c.Request.Context(), req.Email); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent."})
}

// Profile возвращает профиль текущего пользователя
func (h *AuthHandler) Profile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	user, err := h.authService.Profile(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile обновляет профиль текущего пользователя
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.authService.UpdateProfile(userID, service.ProfileUpdateInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ChangePassword меняет пароль текущего пользователя
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if err := h.authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondWithError(c, err)
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d сменил пароль", userID)
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully."})
}
