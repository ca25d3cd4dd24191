package models

import "time"

// OrderStatus represents all possible states of an order's fulfillment lifecycle
type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusShipped        OrderStatus = "SHIPPED"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
	StatusReturned       OrderStatus = "RETURNED"
)

// PaymentMode is how the customer pays for the order
type PaymentMode string

const (
	PaymentCOD     PaymentMode = "COD"
	PaymentPrepaid PaymentMode = "PREPAID"
)

// Address is the shipping snapshot captured at checkout.
// Editable only while the order is still PENDING.
type Address struct {
	Name    string `json:"name" gorm:"column:addr_name"`
	Phone   string `json:"phone" gorm:"column:addr_phone"`
	Street  string `json:"street" gorm:"column:addr_street"`
	City    string `json:"city" gorm:"column:addr_city"`
	State   string `json:"state" gorm:"column:addr_state"`
	Pincode string `json:"pincode" gorm:"column:addr_pincode"`
}

type Order struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	OrderNumber string      `json:"order_number" gorm:"uniqueIndex;not null"`
	CustomerID  uint        `json:"customer_id" gorm:"not null"`
	Customer    User        `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	StoreID     uint        `json:"store_id" gorm:"not null"`
	Store       Store       `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Status      OrderStatus `json:"status" gorm:"not null;default:'PENDING'"`
	TotalAmount float64     `json:"total_amount"`
	PaymentMode PaymentMode `json:"payment_mode" gorm:"not null;default:'COD'"`
	Address     Address     `json:"address" gorm:"embedded"`

	// One nullable timestamp per forward status, stamped the first
	// time the order enters that status and never overwritten.
	ConfirmedAt      *time.Time `json:"confirmed_at"`
	ShippedAt        *time.Time `json:"shipped_at"`
	OutForDeliveryAt *time.Time `json:"out_for_delivery_at"`
	DeliveredAt      *time.Time `json:"delivered_at"`

	// Delivery handoff code, present only while a handoff is pending.
	DeliveryOtp          *string    `json:"-"`
	DeliveryOtpExpiresAt *time.Time `json:"-"`

	Items     []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	OrderID   uint       `json:"order_id" gorm:"not null"`
	ProductID uint       `json:"product_id" gorm:"not null"`
	Product   Product    `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Name      string     `json:"name"` // snapshot name at time of order
	UnitPrice float64    `json:"unit_price" gorm:"not null"`
	Quantity  int        `json:"quantity" gorm:"not null"`
	Size      string     `json:"size"`
	ImageURL  string     `json:"image_url"`
	Packed    bool       `json:"packed" gorm:"default:false"`
	PackedAt  *time.Time `json:"packed_at"`
}
