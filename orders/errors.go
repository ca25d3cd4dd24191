package orders

import "errors"

// Sentinel errors for the order lifecycle. Handlers map these onto HTTP
// status codes; anything else coming out of the service is a persistence
// failure and surfaces as a 500.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrAddressLocked = errors.New("address cannot be edited after order has left pending")
	ErrNoOtpPending  = errors.New("OTP not generated")
	ErrOtpMismatch   = errors.New("invalid OTP")
	ErrOtpExpired    = errors.New("OTP has expired")
)
