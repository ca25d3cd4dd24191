package routes

import (
	"storefront-api/handlers"
	"storefront-api/middleware"
	"storefront-api/models"
	"storefront-api/orders"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup registers all route groups against constructed handlers.
func Setup(r *gin.Engine, db *gorm.DB, auth *middleware.Auth, svc *orders.Service) {
	authHandler := &handlers.AuthHandler{DB: db, Auth: auth}
	customerHandler := &handlers.CustomerHandler{DB: db, Orders: svc}
	sellerHandler := &handlers.SellerHandler{DB: db, Orders: svc}
	deliveryHandler := &handlers.DeliveryHandler{DB: db, Orders: svc}
	adminHandler := &handlers.AdminHandler{DB: db, Orders: svc}

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(auth.Required())
	{
		authed.GET("/profile", authHandler.GetProfile)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(auth.Required(), middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", customerHandler.Checkout)
		customer.GET("/orders", customerHandler.GetMyOrders)
		customer.GET("/orders/:id", customerHandler.GetOrderDetail)
		customer.PUT("/orders/:id/address", customerHandler.UpdateAddress)
		customer.PUT("/orders/:id/cancel", customerHandler.CancelOrder)
	}

	// ── Seller back-office routes ──────────────────────────────────
	seller := r.Group("/api/seller")
	seller.Use(auth.Required(), middleware.RoleRequired(models.RoleSeller))
	{
		// Store management
		seller.POST("/store", sellerHandler.CreateStore)
		seller.GET("/store", sellerHandler.GetMyStore)
		seller.PUT("/store", sellerHandler.UpdateStore)

		// Product management
		seller.POST("/products", sellerHandler.AddProduct)
		seller.PUT("/products/:productId", sellerHandler.UpdateProduct)
		seller.DELETE("/products/:productId", sellerHandler.DeleteProduct)

		// Order management
		seller.GET("/orders", sellerHandler.GetStoreOrders)
		seller.PUT("/orders/:id/status", sellerHandler.UpdateOrderStatus)
		seller.PUT("/orders/:id/items/:itemId/pack", sellerHandler.PackItem)
	}

	// ── Delivery partner routes ────────────────────────────────────
	delivery := r.Group("/api/delivery")
	delivery.Use(auth.Required(), middleware.RoleRequired(models.RoleDelivery))
	{
		delivery.GET("/orders", deliveryHandler.GetActiveDeliveries)
		delivery.PUT("/orders/:id/status", deliveryHandler.UpdateOrderStatus)
		delivery.POST("/orders/:id/otp", deliveryHandler.GenerateOtp)
		delivery.POST("/orders/:id/verify-otp", deliveryHandler.VerifyOtp)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(auth.Required(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", adminHandler.GetAllOrders)
		admin.PUT("/orders/:id/status", adminHandler.UpdateOrderStatus)
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.GET("/stores", adminHandler.GetAllStores)
		admin.GET("/transitions", adminHandler.GetTransitions)
	}
}
