package handlers

import (
	"errors"
	"log"
	"net/http"

	"storefront-api/lifecycle"
	"storefront-api/orders"

	"github.com/gin-gonic/gin"
)

// respondOrderError maps the order service's error taxonomy onto HTTP
// responses. Anything unrecognized is a persistence failure: logged,
// surfaced as a bare 500 with no internals leaked.
func respondOrderError(c *gin.Context, err error) {
	var invalid *lifecycle.InvalidTransitionError
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, orders.ErrAddressLocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Address cannot be edited after order is shipped"})
	case errors.Is(err, orders.ErrNoOtpPending):
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP not generated"})
	case errors.Is(err, orders.ErrOtpMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP. Please try again"})
	case errors.Is(err, orders.ErrOtpExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired. Please request a new one"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid state transition",
			"reason": invalid.Error(),
		})
	default:
		log.Printf("order operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
