package handlers

import (
	"net/http"
	"time"

	"storefront-api/middleware"
	"storefront-api/models"
	"storefront-api/orders"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SellerHandler struct {
	DB     *gorm.DB
	Orders *orders.Service
}

type StoreRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required,lowercase"`
	Description string `json:"description"`
}

// CreateStore spins up the seller's mini-store
func (h *SellerHandler) CreateStore(c *gin.Context) {
	ownerID := middleware.GetUserID(c)

	var req StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Store
	if result := h.DB.Where("owner_id = ?", ownerID).First(&existing); result.Error == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have a store"})
		return
	}

	store := models.Store{
		OwnerID:     ownerID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsActive:    true,
	}
	if err := h.DB.Create(&store).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create store"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Store created", "store": store})
}

// GetMyStore returns the seller's store with its products
func (h *SellerHandler) GetMyStore(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}
	h.DB.Preload("Products").First(store, store.ID)
	c.JSON(http.StatusOK, gin.H{"store": store})
}

type UpdateStoreRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// UpdateStore edits store details
func (h *SellerHandler) UpdateStore(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}

	var req UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		store.Name = req.Name
	}
	if req.Description != "" {
		store.Description = req.Description
	}
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}
	if err := h.DB.Save(store).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update store"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Store updated", "store": store})
}

type ProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Sizes       string  `json:"sizes"`
	ImageURL    string  `json:"image_url"`
}

// AddProduct adds a product to the seller's store
func (h *SellerHandler) AddProduct(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := models.Product{
		StoreID:     store.ID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Sizes:       req.Sizes,
		ImageURL:    req.ImageURL,
		InStock:     true,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add product"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product added", "product": product})
}

type UpdateProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Sizes       string   `json:"sizes"`
	ImageURL    string   `json:"image_url"`
	InStock     *bool    `json:"in_stock"`
}

// UpdateProduct edits a product in the seller's store
func (h *SellerHandler) UpdateProduct(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND store_id = ?", c.Param("productId"), store.ID).
		First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found in your store"})
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Sizes != "" {
		product.Sizes = req.Sizes
	}
	if req.ImageURL != "" {
		product.ImageURL = req.ImageURL
	}
	if req.InStock != nil {
		product.InStock = *req.InStock
	}
	if err := h.DB.Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": product})
}

// DeleteProduct removes a product from the seller's store
func (h *SellerHandler) DeleteProduct(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}

	result := h.DB.Where("id = ? AND store_id = ?", c.Param("productId"), store.ID).
		Delete(&models.Product{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found in your store"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// GetStoreOrders returns all orders for the seller's store, optionally
// filtered by status, with a per-status dashboard summary.
func (h *SellerHandler) GetStoreOrders(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}

	var list []models.Order
	query := h.DB.Preload("Items").Preload("Customer").
		Where("store_id = ?", store.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	query.Order("created_at desc").Find(&list)

	summary := map[string]int{}
	for _, o := range list {
		summary[string(o.Status)]++
	}

	c.JSON(http.StatusOK, gin.H{
		"store":         store.Name,
		"order_summary": summary,
		"count":         len(list),
		"orders":        list,
	})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus handles the seller's state transitions (confirm,
// ship, cancel) through the central updater.
func (h *SellerHandler) UpdateOrderStatus(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}

	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}
	if !h.storeOwnsOrder(c, orderID, store.ID) {
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

// PackItem marks one line item as packed. Packing is part of the seller
// confirmation flow and stamps packed_at once.
func (h *SellerHandler) PackItem(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	store, ok := h.myStore(c, ownerID)
	if !ok {
		return
	}

	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}
	if !h.storeOwnsOrder(c, orderID, store.ID) {
		return
	}

	var item models.OrderItem
	if err := h.DB.Where("id = ? AND order_id = ?", c.Param("itemId"), orderID).
		First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order item not found"})
		return
	}

	if !item.Packed {
		now := time.Now()
		h.DB.Model(&item).Updates(map[string]interface{}{
			"packed":    true,
			"packed_at": now,
		})
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item packed", "item": item})
}

func (h *SellerHandler) myStore(c *gin.Context, ownerID uint) (*models.Store, bool) {
	var store models.Store
	if err := h.DB.Where("owner_id = ?", ownerID).First(&store).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No store found for your account"})
		return nil, false
	}
	return &store, true
}

func (h *SellerHandler) storeOwnsOrder(c *gin.Context, orderID, storeID uint) bool {
	var order models.Order
	if err := h.DB.Select("id", "store_id").First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return false
	}
	if order.StoreID != storeID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to your store"})
		return false
	}
	return true
}
