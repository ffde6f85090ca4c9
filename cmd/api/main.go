package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/krishcart-api/internal/config"
	"github.com/yourusername/krishcart-api/internal/handler"
	"github.com/yourusername/krishcart-api/internal/middleware"
	pgRepo "github.com/yourusername/krishcart-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/krishcart-api/internal/repository/redis"
	"github.com/yourusername/krishcart-api/internal/service"
	"github.com/yourusername/krishcart-api/pkg/auth"
	"github.com/yourusername/krishcart-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	otpRepo := pgRepo.NewEmailOTPRepo(db)
	productRepo := pgRepo.NewProductRepo(db)
	orderRepo := pgRepo.NewOrderRepo(db)
	activityRepo := pgRepo.NewAdminActivityRepo(db)
	emailLogRepo := pgRepo.NewEmailLogRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT-сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Выбираем провайдера почты: без API-ключа письма не уходят,
	// но каждая попытка журналируется со статусом skipped
	var emailSender service.EmailSender
	if cfg.Email.ResendAPIKey != "" {
		emailSender, err = service.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize ResendSender: %v", err)
			os.Exit(1)
		}
		log.Println("Email provider: resend")
	} else {
		emailSender = &service.NoopSender{}
		log.Println("Email provider not configured: outgoing mail will be skipped")
	}

	// Инициализируем сервисы
	emailService, err := service.NewEmailService(emailSender, emailLogRepo)
	if err != nil {
		log.Printf("Failed to initialize EmailService: %v", err)
		os.Exit(1)
	}

	otpService, err := service.NewOTPService(
		userRepo, otpRepo, emailService,
		cfg.OTP.ExpiryDuration(), cfg.OTP.ResendCooldown(), cfg.OTP.MaxAttempts, cfg.OTP.LockoutDuration(),
	)
	if err != nil {
		log.Printf("Failed to initialize OTPService: %v", err)
		os.Exit(1)
	}

	authService, err := service.NewAuthService(userRepo, otpService, jwtService, cfg.Admin.Email)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	productService, err := service.NewProductService(productRepo, cacheRepo, activityRepo)
	if err != nil {
		log.Printf("Failed to initialize ProductService: %v", err)
		os.Exit(1)
	}

	orderService, err := service.NewOrderService(orderRepo, productRepo, userRepo, activityRepo, emailService)
	if err != nil {
		log.Printf("Failed to initialize OrderService: %v", err)
		os.Exit(1)
	}

	adminService, err := service.NewAdminService(userRepo, orderRepo, productRepo, activityRepo, emailLogRepo, cacheRepo, emailService)
	if err != nil {
		log.Printf("Failed to initialize AdminService: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики и middleware
	authHandler := handler.NewAuthHandler(authService, otpService)
	productHandler := handler.NewProductHandler(productService)
	orderHandler := handler.NewOrderHandler(orderService)
	adminHandler := handler.NewAdminHandler(adminService, orderService, productService)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	router := gin.Default()

	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://krishcart.vercel.app", "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(rateLimiter.LimitByIP(middleware.DefaultAPIRateLimitConfig()))
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			strict := rateLimiter.Limit(middleware.StrictAuthRateLimitConfig())
			authGroup.POST("/register", strict, authHandler.Register)
			authGroup.POST("/login", strict, authHandler.Login)
			authGroup.POST("/verify-otp", strict, authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", strict, authHandler.ResendOTP)

			authed := authGroup.Group("/")
			authed.Use(authMiddleware.RequireAuth())
			{
				authed.GET("/profile", authHandler.Profile)
				authed.PUT("/profile", authHandler.UpdateProfile)
				authed.POST("/change-password", authHandler.ChangePassword)
			}
		}

		// Публичный каталог
		products := api.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}

		// Заказы текущего пользователя
		orders := api.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		{
			orders.POST("", orderHandler.Place)
			orders.GET("", orderHandler.MyOrders)
			orders.GET("/:id", orderHandler.Get)
			orders.GET("/:id/invoice", orderHandler.Invoice)
		}

		// Платежи: фиктивный интент, реальный шлюз не подключён
		api.POST("/payment/create-payment-intent", orderHandler.CreatePaymentIntent)

		// Панель администратора
		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			admin.GET("/stats", adminHandler.Stats)

			admin.GET("/users", adminHandler.Users)
			admin.PATCH("/users/:id/role", adminHandler.UpdateUserRole)

			admin.GET("/orders", adminHandler.Orders)
			admin.GET("/orders/export", adminHandler.ExportOrders)
			admin.GET("/orders/:id", adminHandler.Order)
			admin.PATCH("/orders/:id/status", adminHandler.UpdateOrderStatus)
			admin.PATCH("/orders/:id/payment", adminHandler.UpdatePaymentStatus)
			admin.GET("/orders/:id/invoice", adminHandler.OrderInvoice)

			admin.GET("/products", productHandler.ListAll)
			admin.POST("/products", productHandler.Create)
			admin.PUT("/products/:id", productHandler.Update)
			admin.DELETE("/products/:id", productHandler.Delete)
			admin.GET("/products/low-stock", productHandler.LowStock)

			admin.GET("/audit", adminHandler.AuditLog)
			admin.GET("/email-logs", adminHandler.EmailLogs)
			admin.POST("/email-logs/:id/retry", adminHandler.RetryEmail)

			analytics := admin.Group("/analytics")
			{
				analytics.GET("/summary", adminHandler.AnalyticsSummary)
				analytics.GET("/revenue-trend", adminHandler.RevenueTrend)
				analytics.GET("/top-products", adminHandler.TopProducts)
				analytics.GET("/categories", adminHandler.CategoryBreakdown)
			}
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	// Ждём сигнала остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
