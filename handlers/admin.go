package handlers

import (
	"net/http"

	"storefront-api/lifecycle"
	"storefront-api/models"
	"storefront-api/orders"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	DB     *gorm.DB
	Orders *orders.Service
}

// GetAllOrders returns every order on the platform, optionally filtered
// by status or store.
func (h *AdminHandler) GetAllOrders(c *gin.Context) {
	var list []models.Order
	query := h.DB.Preload("Items").Preload("Customer").Preload("Store")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if storeID := c.Query("store_id"); storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}
	query.Order("created_at desc").Find(&list)
	c.JSON(http.StatusOK, gin.H{"count": len(list), "orders": list})
}

// UpdateOrderStatus lets an admin drive any transition the lifecycle
// table allows. The same validation applies: admins cannot write a
// status absent from the table.
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// GetAllUsers returns all registered users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	var users []models.User
	h.DB.Order("created_at desc").Find(&users)
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// GetAllStores returns all seller stores
func (h *AdminHandler) GetAllStores(c *gin.Context) {
	var stores []models.Store
	h.DB.Preload("Owner").Order("created_at desc").Find(&stores)
	c.JSON(http.StatusOK, gin.H{"count": len(stores), "stores": stores})
}

// GetTransitions exposes the lifecycle table for docs and dashboards
func (h *AdminHandler) GetTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transitions": lifecycle.All()})
}
