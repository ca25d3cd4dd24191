package handlers

import (
	"net/http"

	"storefront-api/models"
	"storefront-api/orders"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DeliveryHandler struct {
	DB     *gorm.DB
	Orders *orders.Service
}

// GetActiveDeliveries lists orders currently in the delivery leg
func (h *DeliveryHandler) GetActiveDeliveries(c *gin.Context) {
	var list []models.Order
	h.DB.Preload("Items").Preload("Customer").
		Where("status IN ?", []models.OrderStatus{models.StatusShipped, models.StatusOutForDelivery}).
		Order("created_at asc").
		Find(&list)
	c.JSON(http.StatusOK, gin.H{"count": len(list), "orders": list})
}

// UpdateOrderStatus lets the delivery partner move an order along the
// delivery leg (SHIPPED -> OUT_FOR_DELIVERY). The final DELIVERED
// transition is gated behind OTP verification instead.
func (h *DeliveryHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == models.StatusDelivered {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Delivery must be confirmed with the customer's OTP"})
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// GenerateOtp issues the handoff code and sends it to the customer
func (h *DeliveryHandler) GenerateOtp(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}

	if err := h.Orders.GenerateDeliveryOtp(c.Request.Context(), orderID); err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to customer"})
}

type VerifyOtpRequest struct {
	Otp string `json:"otp" binding:"required"`
}

// VerifyOtp checks the code collected from the customer and completes
// delivery on match.
func (h *DeliveryHandler) VerifyOtp(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		return
	}

	var req VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Orders.VerifyDeliveryOtp(c.Request.Context(), orderID, req.Otp)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Order delivered successfully",
		"order":   order,
	})
}
