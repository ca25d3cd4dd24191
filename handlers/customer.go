package handlers

import (
	"net/http"
	"strconv"

	"storefront-api/middleware"
	"storefront-api/models"
	"storefront-api/orders"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerHandler struct {
	DB     *gorm.DB
	Orders *orders.Service
}

type AddressRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	Pincode string `json:"pincode" binding:"required"`
}

func (a AddressRequest) toModel() models.Address {
	return models.Address{
		Name:    a.Name,
		Phone:   a.Phone,
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Pincode: a.Pincode,
	}
}

type CheckoutRequest struct {
	StoreID     uint               `json:"store_id" binding:"required"`
	Address     AddressRequest     `json:"address" binding:"required"`
	PaymentMode models.PaymentMode `json:"payment_mode" binding:"required,oneof=COD PREPAID"`
	Items       []struct {
		ProductID uint   `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required,min=1"`
		Size      string `json:"size"`
	} `json:"items" binding:"required,min=1"`
}

// Checkout creates a new order (customer only). The shipping address is
// snapshotted onto the order; product name and price are snapshotted onto
// each line item.
func (h *CustomerHandler) Checkout(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var store models.Store
	if err := h.DB.First(&store, req.StoreID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
		return
	}
	if !store.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Store is not accepting orders"})
		return
	}

	var orderItems []models.OrderItem
	var total float64

	for _, reqItem := range req.Items {
		var product models.Product
		if err := h.DB.First(&product, reqItem.ProductID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product not found: " + strconv.Itoa(int(reqItem.ProductID))})
			return
		}
		if product.StoreID != req.StoreID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product does not belong to this store"})
			return
		}
		if !product.InStock {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product '" + product.Name + "' is out of stock"})
			return
		}
		total += product.Price * float64(reqItem.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  reqItem.Quantity,
			Size:      reqItem.Size,
			ImageURL:  product.ImageURL,
		})
	}

	order := models.Order{
		OrderNumber: uuid.NewString(),
		CustomerID:  customerID,
		StoreID:     req.StoreID,
		Status:      models.StatusPending,
		TotalAmount: total,
		PaymentMode: req.PaymentMode,
		Address:     req.Address.toModel(),
		Items:       orderItems,
	}

	if err := h.DB.Create(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		return
	}

	h.DB.Preload("Items").Preload("Store").First(&order, order.ID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func (h *CustomerHandler) GetMyOrders(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	var list []models.Order
	h.DB.Preload("Items").Preload("Store").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&list)
	c.JSON(http.StatusOK, gin.H{"count": len(list), "orders": list})
}

// GetOrderDetail returns a single order's full detail
func (h *CustomerHandler) GetOrderDetail(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var order models.Order
	if err := h.DB.Preload("Items").Preload("Store").
		First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateAddress replaces the shipping address while the order is still
// PENDING; later edits are rejected by the address lock.
func (h *CustomerHandler) UpdateAddress(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.ownsOrder(c, orderID, customerID) {
		return
	}

	order, err := h.Orders.UpdateAddress(c.Request.Context(), orderID, req.toModel())
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// CancelOrder moves the order to CANCELLED through the regular updater,
// so the customer gets the cancellation notification like any other
// transition.
func (h *CustomerHandler) CancelOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}

	if !h.ownsOrder(c, orderID, customerID) {
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), orderID, models.StatusCancelled)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *CustomerHandler) ownsOrder(c *gin.Context, orderID, customerID uint) bool {
	var order models.Order
	if err := h.DB.Select("id", "customer_id").First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return false
	}
	if order.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return false
	}
	return true
}

func parseOrderID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return 0, err
	}
	return uint(id), nil
}
