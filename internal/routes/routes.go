package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	adminhandler "wave_back_end/internal/handlers/admin"
	orderhandler "wave_back_end/internal/handlers/order"
	paymenthandler "wave_back_end/internal/handlers/payment"
	producthandler "wave_back_end/internal/handlers/product"
	userhandler "wave_back_end/internal/handlers/user"
	"wave_back_end/internal/middleware"
	ordersvc "wave_back_end/internal/order"
	paymentsvc "wave_back_end/internal/payment"
)

// Setup branche toutes les routes de l'API et leurs middlewares
func Setup(r *gin.Engine) {
	allowedOrigins := []string{"http://localhost:3000"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}

	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Assemblage des services sur leurs stores ScyllaDB
	productStore := ordersvc.NewScyllaProductStore()
	orderStore := ordersvc.NewScyllaOrderStore()
	orderService := ordersvc.NewService(orderStore, productStore)

	paymentStore := paymentsvc.NewScyllaStore()
	paymentService := paymentsvc.NewService(paymentStore, orderService, paymentsvc.VerifierFromEnv())

	orders := orderhandler.NewHandler(orderService)
	payments := paymenthandler.NewHandler(paymentService, paymentStore, orderService)
	admin := adminhandler.NewHandler(orderStore, paymentService)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.APIRateLimit())

	// Authentification
	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RegisterRateLimit(), userhandler.Register)
		auth.POST("/login", middleware.LoginRateLimit(), userhandler.Login)
		auth.GET("/me", middleware.AuthRequired(), userhandler.Me)
	}

	// Catalogue public
	products := api.Group("/products")
	{
		products.GET("", producthandler.GetProducts)
		products.GET("/:id", producthandler.GetProduct)
		products.GET("/:id/reviews", producthandler.GetReviews)
		products.POST("/:id/reviews", middleware.AuthRequired(), producthandler.CreateReview)
	}

	// Commandes : le checkout est ouvert, le reste demande une session
	orderRoutes := api.Group("/orders")
	{
		orderRoutes.POST("", orders.Create)
		orderRoutes.GET("", middleware.AuthRequired(), orders.List)
		orderRoutes.GET("/:id", middleware.AuthRequired(), orders.Get)
		orderRoutes.DELETE("/:id", middleware.AuthRequired(), orders.Cancel)
	}

	// Paiements par virement bancaire
	paymentRoutes := api.Group("/payments")
	{
		paymentRoutes.POST("/create", payments.Create)
		paymentRoutes.GET("/status/:orderId", payments.Status)
		paymentRoutes.GET("/qr/:orderId", payments.TransferQR)
		paymentRoutes.POST("/verify", middleware.VerifyRateLimit(), payments.Verify)
	}

	// Back-office
	adminRoutes := api.Group("/admin")
	adminRoutes.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adminRoutes.GET("/analytics", admin.Analytics)
		adminRoutes.GET("/dashboard", admin.Dashboard)
		adminRoutes.GET("/users", admin.Users)
		adminRoutes.PUT("/users/:id", admin.UpdateUserRole)
		adminRoutes.DELETE("/users/:id", admin.DeleteUser)

		adminRoutes.GET("/products", producthandler.GetAllProducts)
		adminRoutes.POST("/products", producthandler.CreateProduct)
		adminRoutes.PUT("/products/:id", producthandler.UpdateProduct)
		adminRoutes.DELETE("/products/:id", producthandler.DeleteProduct)

		adminRoutes.GET("/orders", orders.List)
		adminRoutes.PUT("/orders/:id", orders.Update)
		adminRoutes.GET("/orders/:id/invoice", admin.Invoice)

		adminRoutes.GET("/payments", payments.AdminList)
		adminRoutes.POST("/payments/verify", payments.AdminResolve)
		adminRoutes.GET("/payments/:id/logs", payments.AdminLogs)
	}
}
