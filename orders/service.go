package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storefront-api/lifecycle"
	"storefront-api/models"
	"storefront-api/notify"

	"gorm.io/gorm"
)

const otpTTL = 10 * time.Minute

// Notifier is the slice of the dispatcher the service needs. Sends are
// best-effort: they happen after the database write commits and their
// failures never reach the caller.
type Notifier interface {
	EnqueueStatus(notify.StatusUpdate)
	EnqueueDeliveryCode(notify.DeliveryCode)
}

// Service orchestrates order status transitions, the shipping-address
// lock, and the delivery OTP handoff.
type Service struct {
	db          *gorm.DB
	notifier    Notifier
	countryCode string
	now         func() time.Time
}

func NewService(db *gorm.DB, notifier Notifier, defaultCountryCode string) *Service {
	return &Service{
		db:          db,
		notifier:    notifier,
		countryCode: defaultCountryCode,
		now:         time.Now,
	}
}

// UpdateStatus moves an order to the target status: validates the
// transition against the lifecycle table, persists status plus the mapped
// timestamp in one write, and queues the customer notification. The write
// is a compare-and-swap on the loaded status so a concurrent transition
// cannot be silently overwritten. Re-requesting the current status is an
// idempotent no-op.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, target models.OrderStatus) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	plan, err := lifecycle.Build(order, target, s.now())
	if err != nil {
		return nil, err
	}
	if plan.Noop {
		return order, nil
	}

	updates := plan.Updates()
	// A handoff code only lives between generation and consumption;
	// delivery or a terminal exit makes it meaningless, so these
	// transitions clear it in the same write.
	switch target {
	case models.StatusDelivered, models.StatusCancelled, models.StatusReturned:
		updates["delivery_otp"] = nil
		updates["delivery_otp_expires_at"] = nil
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race: reload so the error names the winning status.
		fresh, loadErr := s.load(ctx, orderID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, &lifecycle.InvalidTransitionError{From: fresh.Status, To: target}
	}

	updated, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notifier.EnqueueStatus(s.statusUpdateFor(updated, plan.NotifyCode))
	return updated, nil
}

// UpdateAddress replaces the shipping snapshot. Orders that have left
// PENDING are locked: fulfillment has started and the address can no
// longer be tampered with.
func (s *Service) UpdateAddress(ctx context.Context, orderID uint, addr models.Address) (*models.Order, error) {
	var current models.Order
	if err := s.db.WithContext(ctx).Select("id", "status").First(&current, orderID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	if current.Status != models.StatusPending {
		return nil, ErrAddressLocked
	}

	updates := map[string]interface{}{
		"addr_name":    addr.Name,
		"addr_phone":   addr.Phone,
		"addr_street":  addr.Street,
		"addr_city":    addr.City,
		"addr_state":   addr.State,
		"addr_pincode": addr.Pincode,
		"updated_at":   s.now(),
	}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.load(ctx, orderID)
}

// GenerateDeliveryOtp creates a fresh 4-digit handoff code, stores it on
// the order with a short expiry, and sends it to the customer. A new code
// replaces any earlier one. Generation is only allowed while DELIVERED is
// actually reachable from the order's current status.
func (s *Service) GenerateDeliveryOtp(ctx context.Context, orderID uint) error {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	plan, err := lifecycle.Build(order, models.StatusDelivered, s.now())
	if err != nil {
		return err
	}
	if plan.Noop {
		return &lifecycle.InvalidTransitionError{From: order.Status, To: models.StatusDelivered}
	}

	code, err := randomOtp()
	if err != nil {
		return err
	}
	expires := s.now().Add(otpTTL)
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"delivery_otp":            code,
			"delivery_otp_expires_at": expires,
			"updated_at":              s.now(),
		}).Error; err != nil {
		return err
	}

	s.notifier.EnqueueDeliveryCode(notify.DeliveryCode{
		Email:        order.Customer.Email,
		Phone:        notify.NormalizePhone(order.Customer.Phone, s.countryCode),
		CustomerName: order.Customer.Name,
		OrderNumber:  order.OrderNumber,
		Code:         code,
	})
	return nil
}

// VerifyDeliveryOtp checks the submitted code against the stored one and,
// on match, completes delivery: status, the delivered_at stamp, and the
// OTP clear land in one write, so a verified code can never be replayed.
func (s *Service) VerifyDeliveryOtp(ctx context.Context, orderID uint, submitted string) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.DeliveryOtp == nil {
		return nil, ErrNoOtpPending
	}
	if order.DeliveryOtpExpiresAt != nil && s.now().After(*order.DeliveryOtpExpiresAt) {
		return nil, ErrOtpExpired
	}
	if strings.TrimSpace(submitted) != *order.DeliveryOtp {
		return nil, ErrOtpMismatch
	}

	plan, err := lifecycle.Build(order, models.StatusDelivered, s.now())
	if err != nil {
		return nil, err
	}
	updates := plan.Updates()
	if plan.Noop {
		// Already delivered through the general updater while a code
		// was still outstanding; consume the code without touching the
		// status or re-notifying.
		updates = map[string]interface{}{"updated_at": s.now()}
	}
	updates["delivery_otp"] = nil
	updates["delivery_otp_expires_at"] = nil

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		fresh, loadErr := s.load(ctx, orderID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, &lifecycle.InvalidTransitionError{From: fresh.Status, To: models.StatusDelivered}
	}

	updated, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !plan.Noop {
		s.notifier.EnqueueStatus(s.statusUpdateFor(updated, plan.NotifyCode))
	}
	return updated, nil
}

func (s *Service) load(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Customer").
		First(&order, orderID).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &order, nil
}

func (s *Service) statusUpdateFor(order *models.Order, code string) notify.StatusUpdate {
	items := make([]notify.ItemSummary, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, notify.ItemSummary{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Size:      it.Size,
			ImageURL:  it.ImageURL,
		})
	}
	return notify.StatusUpdate{
		Email:        order.Customer.Email,
		Phone:        notify.NormalizePhone(order.Customer.Phone, s.countryCode),
		CustomerName: order.Customer.Name,
		OrderNumber:  order.OrderNumber,
		Items:        items,
		TotalAmount:  order.TotalAmount,
		PaymentMode:  string(order.PaymentMode),
		StatusCode:   code,
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	return err
}

func randomOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
