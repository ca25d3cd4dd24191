package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name, raw, want string
	}{
		{"bare local number gets country code", "9876543210", "919876543210"},
		{"spaces and dashes stripped", "98765-432 10", "919876543210"},
		{"plus prefix stripped, code kept", "+919876543210", "919876543210"},
		{"already prefixed untouched", "919876543210", "919876543210"},
		{"parenthesised", "(987) 654-3210", "919876543210"},
		{"short number left as-is", "12345", "12345"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePhone(tc.raw, "91"))
		})
	}
}

func TestComposeBody(t *testing.T) {
	body := composeBody(StatusUpdate{
		CustomerName: "Asha Rao",
		OrderNumber:  "ord-42",
		StatusCode:   "ORDER_SHIPPED",
		TotalAmount:  2998,
		PaymentMode:  "COD",
		Items: []ItemSummary{
			{Name: "Linen Shirt", Quantity: 2, UnitPrice: 1499, Size: "M"},
			{Name: "Tote Bag", Quantity: 1, UnitPrice: 299},
		},
	})

	assert.Contains(t, body, "Asha Rao")
	assert.Contains(t, body, "your order has been shipped")
	assert.Contains(t, body, "ord-42")
	assert.Contains(t, body, "2x Linen Shirt (M)")
	assert.Contains(t, body, "1x Tote Bag")
	assert.Contains(t, body, "Total: 2998.00 (COD)")
}

func TestComposeBodyUnknownCode(t *testing.T) {
	body := composeBody(StatusUpdate{CustomerName: "A", StatusCode: "SOMETHING_NEW"})
	assert.Contains(t, body, "your order status is now SOMETHING_NEW")
}
