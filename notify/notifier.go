package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
)

// ItemSummary is one line item as shown to the customer.
type ItemSummary struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Size      string  `json:"size,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// StatusUpdate is a fully composed order-status notification. Both the
// email and messaging channels render from this one request.
type StatusUpdate struct {
	Email        string
	Phone        string // digits only, country code included
	CustomerName string
	OrderNumber  string
	Items        []ItemSummary
	TotalAmount  float64
	PaymentMode  string
	StatusCode   string
}

// DeliveryCode carries a handoff OTP to the customer.
type DeliveryCode struct {
	Email        string
	Phone        string
	CustomerName string
	OrderNumber  string
	Code         string
}

// Channel is one independent delivery channel. Failures are logged by the
// dispatcher and never surfaced to the caller that triggered the send.
type Channel interface {
	Name() string
	NotifyStatus(ctx context.Context, u StatusUpdate) error
	SendDeliveryCode(ctx context.Context, c DeliveryCode) error
}

// NormalizePhone strips every non-digit from a raw phone number and
// prefixes the default country code when the result is a bare local
// number (10 digits).
func NormalizePhone(raw, defaultCountryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return defaultCountryCode + digits
	}
	return digits
}

// statusLine maps external notification codes to customer-facing copy.
var statusLine = map[string]string{
	"ORDER_CONFIRMED":  "your order has been confirmed",
	"ORDER_SHIPPED":    "your order has been shipped",
	"OUT_FOR_DELIVERY": "your order is out for delivery",
	"ORDER_DELIVERED":  "your order has been delivered",
	"ORDER_CANCELLED":  "your order has been cancelled",
	"ORDER_RETURNED":   "your return has been registered",
}

func composeBody(u StatusUpdate) string {
	var b strings.Builder
	line, ok := statusLine[u.StatusCode]
	if !ok {
		line = "your order status is now " + u.StatusCode
	}
	fmt.Fprintf(&b, "Hi %s, %s.\n\nOrder %s\n", u.CustomerName, line, u.OrderNumber)
	for _, it := range u.Items {
		fmt.Fprintf(&b, "  %dx %s", it.Quantity, it.Name)
		if it.Size != "" {
			fmt.Fprintf(&b, " (%s)", it.Size)
		}
		fmt.Fprintf(&b, " - %.2f\n", it.UnitPrice)
	}
	fmt.Fprintf(&b, "\nTotal: %.2f (%s)\n", u.TotalAmount, u.PaymentMode)
	return b.String()
}

// EmailChannel sends transactional mail through a plain SMTP relay.
type EmailChannel struct {
	Addr string
	From string
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) NotifyStatus(ctx context.Context, u StatusUpdate) error {
	subject := "Order " + u.OrderNumber + ": " + u.StatusCode
	return e.send(ctx, u.Email, subject, composeBody(u))
}

func (e *EmailChannel) SendDeliveryCode(ctx context.Context, c DeliveryCode) error {
	subject := "Delivery code for order " + c.OrderNumber
	body := fmt.Sprintf("Hi %s, your delivery confirmation code is %s.\nShare it with the delivery partner at handoff.\n", c.CustomerName, c.Code)
	return e.send(ctx, c.Email, subject, body)
}

func (e *EmailChannel) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := []byte("From: " + e.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)
	return smtp.SendMail(e.Addr, nil, e.From, []string{to}, msg)
}

// WhatsAppChannel posts template messages to a business-messaging API.
type WhatsAppChannel struct {
	URL    string
	Token  string
	Client *http.Client
}

func (w *WhatsAppChannel) Name() string { return "whatsapp" }

type waPayload struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
}

func (w *WhatsAppChannel) NotifyStatus(ctx context.Context, u StatusUpdate) error {
	return w.post(ctx, waPayload{
		To:       u.Phone,
		Template: "order_status_update",
		Params: map[string]string{
			"name":         u.CustomerName,
			"order_number": u.OrderNumber,
			"status":       u.StatusCode,
			"total":        fmt.Sprintf("%.2f", u.TotalAmount),
			"payment_mode": u.PaymentMode,
		},
	})
}

func (w *WhatsAppChannel) SendDeliveryCode(ctx context.Context, c DeliveryCode) error {
	return w.post(ctx, waPayload{
		To:       c.Phone,
		Template: "delivery_otp",
		Params: map[string]string{
			"name":         c.CustomerName,
			"order_number": c.OrderNumber,
			"code":         c.Code,
		},
	})
}

func (w *WhatsAppChannel) post(ctx context.Context, p waPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.Token)

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp API returned %s", resp.Status)
	}
	return nil
}
