package orders

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"storefront-api/config"
	"storefront-api/lifecycle"
	"storefront-api/models"
	"storefront-api/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recorder captures everything the service hands to the dispatcher.
type recorder struct {
	statuses []notify.StatusUpdate
	codes    []notify.DeliveryCode
}

func (r *recorder) EnqueueStatus(u notify.StatusUpdate)       { r.statuses = append(r.statuses, u) }
func (r *recorder) EnqueueDeliveryCode(c notify.DeliveryCode) { r.codes = append(r.codes, c) }

func newTestService(t *testing.T) (*Service, *gorm.DB, *recorder) {
	t.Helper()
	db, err := config.OpenDB(filepath.Join(t.TempDir(), "orders_test.db"))
	require.NoError(t, err)
	rec := &recorder{}
	return NewService(db, rec, "91"), db, rec
}

var seedSeq int

func seedOrder(t *testing.T, db *gorm.DB, status models.OrderStatus) *models.Order {
	t.Helper()
	seedSeq++
	customer := models.User{
		Name:         "Asha Rao",
		Email:        fmt.Sprintf("asha%d@example.com", seedSeq),
		PasswordHash: "x",
		Role:         models.RoleCustomer,
		Phone:        "98765-43210",
	}
	require.NoError(t, db.Create(&customer).Error)

	owner := models.User{
		Name:         "Vik Seller",
		Email:        fmt.Sprintf("vik%d@example.com", seedSeq),
		PasswordHash: "x",
		Role:         models.RoleSeller,
	}
	require.NoError(t, db.Create(&owner).Error)

	store := models.Store{OwnerID: owner.ID, Name: "Vik Threads", Slug: fmt.Sprintf("vik-threads-%d", seedSeq)}
	require.NoError(t, db.Create(&store).Error)

	product := models.Product{StoreID: store.ID, Name: "Linen Shirt", Price: 1499, InStock: true}
	require.NoError(t, db.Create(&product).Error)

	order := models.Order{
		OrderNumber: uuid.NewString(),
		CustomerID:  customer.ID,
		StoreID:     store.ID,
		Status:      status,
		TotalAmount: 2998,
		PaymentMode: models.PaymentCOD,
		Address: models.Address{
			Name: "Asha Rao", Phone: "9876543210",
			Street: "14 Lake Rd", City: "Pune", State: "MH", Pincode: "411001",
		},
		Items: []models.OrderItem{
			{ProductID: product.ID, Name: "Linen Shirt", UnitPrice: 1499, Quantity: 2, Size: "M"},
		},
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, id).Error)
	return &order
}

func TestUpdateStatusConfirmsPendingOrder(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusPending)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed)
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, updated.Status)
	require.NotNil(t, updated.ConfirmedAt)
	assert.False(t, updated.ConfirmedAt.Before(updated.CreatedAt))
	assert.Nil(t, updated.ShippedAt)
	assert.Nil(t, updated.OutForDeliveryAt)
	assert.Nil(t, updated.DeliveredAt)

	require.Len(t, rec.statuses, 1)
	sent := rec.statuses[0]
	assert.Equal(t, "ORDER_CONFIRMED", sent.StatusCode)
	assert.Equal(t, order.OrderNumber, sent.OrderNumber)
	assert.Equal(t, "919876543210", sent.Phone, "phone must be normalized with country code")
	assert.Equal(t, "COD", sent.PaymentMode)
	require.Len(t, sent.Items, 1)
	assert.Equal(t, "Linen Shirt", sent.Items[0].Name)
	assert.Equal(t, 2, sent.Items[0].Quantity)
}

func TestUpdateStatusRepeatIsIdempotentNoop(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusPending)

	first, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed)
	require.NoError(t, err)
	stamped := *first.ConfirmedAt

	second, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed)
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, second.Status)
	require.NotNil(t, second.ConfirmedAt)
	assert.WithinDuration(t, stamped, *second.ConfirmedAt, time.Millisecond,
		"repeat transition must not re-stamp confirmed_at")
	assert.Len(t, rec.statuses, 1, "no-op must not notify again")
}

func TestUpdateStatusRejectsSkippedTransition(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusPending)

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusDelivered)
	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	fresh := reload(t, db, order.ID)
	assert.Equal(t, models.StatusPending, fresh.Status)
	assert.Nil(t, fresh.DeliveredAt)
	assert.Empty(t, rec.statuses)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.UpdateStatus(context.Background(), 9999, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusHappyPathStampsEveryTimestamp(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusPending)

	path := []models.OrderStatus{
		models.StatusConfirmed,
		models.StatusShipped,
		models.StatusOutForDelivery,
		models.StatusDelivered,
	}
	for _, target := range path {
		_, err := svc.UpdateStatus(context.Background(), order.ID, target)
		require.NoError(t, err, "transition to %s", target)
	}

	fresh := reload(t, db, order.ID)
	require.NotNil(t, fresh.ConfirmedAt)
	require.NotNil(t, fresh.ShippedAt)
	require.NotNil(t, fresh.OutForDeliveryAt)
	require.NotNil(t, fresh.DeliveredAt)
	assert.False(t, fresh.ShippedAt.Before(*fresh.ConfirmedAt))
	assert.False(t, fresh.OutForDeliveryAt.Before(*fresh.ShippedAt))
	assert.False(t, fresh.DeliveredAt.Before(*fresh.OutForDeliveryAt))
	assert.Len(t, rec.statuses, 4, "one notification per transition")
}

func TestCancelStampsNoForwardTimestamp(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusConfirmed)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Nil(t, updated.ShippedAt)
	assert.Nil(t, updated.DeliveredAt)
	require.Len(t, rec.statuses, 1)
	assert.Equal(t, "ORDER_CANCELLED", rec.statuses[0].StatusCode)
}

func TestUpdateAddressWhilePending(t *testing.T) {
	svc, db, _ := newTestService(t)
	order := seedOrder(t, db, models.StatusPending)

	next := models.Address{
		Name: "Asha Rao", Phone: "9876543210",
		Street: "7 Hill View", City: "Mumbai", State: "MH", Pincode: "400001",
	}
	updated, err := svc.UpdateAddress(context.Background(), order.ID, next)
	require.NoError(t, err)
	assert.Equal(t, next, updated.Address, "stored address must equal the submitted payload exactly")
}

func TestUpdateAddressLockedAfterPending(t *testing.T) {
	svc, db, _ := newTestService(t)

	for _, status := range []models.OrderStatus{
		models.StatusConfirmed, models.StatusShipped,
		models.StatusOutForDelivery, models.StatusDelivered,
		models.StatusCancelled, models.StatusReturned,
	} {
		order := seedOrder(t, db, status)
		_, err := svc.UpdateAddress(context.Background(), order.ID, models.Address{
			Name: "Mallory", Phone: "1", Street: "x", City: "x", State: "x", Pincode: "x",
		})
		require.ErrorIs(t, err, ErrAddressLocked, "status %s must lock the address", status)

		fresh := reload(t, db, order.ID)
		assert.Equal(t, order.Address, fresh.Address, "address must be unchanged for %s", status)
	}
}

func TestDeliveryOtpHappyPathAndReplay(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	require.NoError(t, svc.GenerateDeliveryOtp(context.Background(), order.ID))
	require.Len(t, rec.codes, 1)
	code := rec.codes[0].Code
	assert.Len(t, code, 4)

	stored := reload(t, db, order.ID)
	require.NotNil(t, stored.DeliveryOtp)
	assert.Equal(t, code, *stored.DeliveryOtp)

	updated, err := svc.VerifyDeliveryOtp(context.Background(), order.ID, code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)
	require.NotNil(t, updated.DeliveredAt, "OTP delivery must stamp delivered_at like the regular updater")
	assert.Nil(t, updated.DeliveryOtp, "verification must clear the code")

	require.Len(t, rec.statuses, 1)
	assert.Equal(t, "ORDER_DELIVERED", rec.statuses[0].StatusCode)

	// Replay with the same code must fail now that it is consumed
	_, err = svc.VerifyDeliveryOtp(context.Background(), order.ID, code)
	assert.ErrorIs(t, err, ErrNoOtpPending)
}

func TestDeliveredViaUpdaterClearsPendingOtp(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	require.NoError(t, svc.GenerateDeliveryOtp(context.Background(), order.ID))
	code := rec.codes[0].Code

	// Admin drives the final transition through the general updater
	// while the handoff code is still outstanding.
	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)

	fresh := reload(t, db, order.ID)
	assert.Nil(t, fresh.DeliveryOtp, "delivery must consume the outstanding code")
	assert.Nil(t, fresh.DeliveryOtpExpiresAt)

	_, err = svc.VerifyDeliveryOtp(context.Background(), order.ID, code)
	assert.ErrorIs(t, err, ErrNoOtpPending)
}

func TestCancelClearsPendingOtp(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	require.NoError(t, svc.GenerateDeliveryOtp(context.Background(), order.ID))
	require.Len(t, rec.codes, 1)

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusCancelled)
	require.NoError(t, err)

	fresh := reload(t, db, order.ID)
	assert.Nil(t, fresh.DeliveryOtp, "cancellation must clear the outstanding code")
	assert.Nil(t, fresh.DeliveryOtpExpiresAt)
}

func TestVerifyOtpWhenOrderAlreadyDelivered(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusDelivered)

	// A stale code left on a delivered order (written before delivery
	// started clearing codes) must be consumed, not crash the verify.
	expires := time.Now().Add(otpTTL)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"delivery_otp":            "4821",
			"delivery_otp_expires_at": expires,
		}).Error)

	updated, err := svc.VerifyDeliveryOtp(context.Background(), order.ID, "4821")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)
	assert.Nil(t, updated.DeliveryOtp, "verification must consume the stale code")
	assert.Empty(t, rec.statuses, "order was already delivered; no second notification")

	_, err = svc.VerifyDeliveryOtp(context.Background(), order.ID, "4821")
	assert.ErrorIs(t, err, ErrNoOtpPending)
}

func TestUpdateStatusRejectsStaleConcurrentTransition(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusPending)

	// Flip the row underneath the updater after it has loaded the
	// order but before it writes: the clock hook runs exactly there.
	svc.now = func() time.Time {
		db.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", models.StatusCancelled)
		return time.Now()
	}

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed)
	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid, "compare-and-swap must reject the stale transition")
	assert.Equal(t, models.StatusCancelled, invalid.From, "error must name the winning status")

	fresh := reload(t, db, order.ID)
	assert.Equal(t, models.StatusCancelled, fresh.Status, "the concurrent write must survive")
	assert.Nil(t, fresh.ConfirmedAt)
	assert.Empty(t, rec.statuses)
}

func TestVerifyOtpRejectsStaleConcurrentTransition(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	require.NoError(t, svc.GenerateDeliveryOtp(context.Background(), order.ID))
	code := rec.codes[0].Code

	svc.now = func() time.Time {
		db.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", models.StatusCancelled)
		return time.Now()
	}

	_, err := svc.VerifyDeliveryOtp(context.Background(), order.ID, code)
	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.StatusCancelled, invalid.From)

	fresh := reload(t, db, order.ID)
	assert.Equal(t, models.StatusCancelled, fresh.Status)
	assert.Empty(t, rec.statuses, "a lost race must not notify")
}

func TestVerifyOtpMismatchLeavesOrderUntouched(t *testing.T) {
	svc, db, _ := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	require.NoError(t, svc.GenerateDeliveryOtp(context.Background(), order.ID))
	_, err := svc.VerifyDeliveryOtp(context.Background(), order.ID, "0000x")
	assert.ErrorIs(t, err, ErrOtpMismatch)

	fresh := reload(t, db, order.ID)
	assert.Equal(t, models.StatusOutForDelivery, fresh.Status)
	assert.NotNil(t, fresh.DeliveryOtp, "stored code must survive a failed attempt")
}

func TestVerifyOtpWithoutGeneration(t *testing.T) {
	svc, db, _ := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	_, err := svc.VerifyDeliveryOtp(context.Background(), order.ID, "1234")
	assert.ErrorIs(t, err, ErrNoOtpPending)
}

func TestVerifyOtpExpired(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	require.NoError(t, svc.GenerateDeliveryOtp(context.Background(), order.ID))
	svc.now = func() time.Time { return time.Now().Add(otpTTL + time.Minute) }

	_, err := svc.VerifyDeliveryOtp(context.Background(), order.ID, rec.codes[0].Code)
	assert.ErrorIs(t, err, ErrOtpExpired)

	fresh := reload(t, db, order.ID)
	assert.Equal(t, models.StatusOutForDelivery, fresh.Status)
}

func TestVerifyOtpTrimsSubmittedCode(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusOutForDelivery)

	require.NoError(t, svc.GenerateDeliveryOtp(context.Background(), order.ID))
	updated, err := svc.VerifyDeliveryOtp(context.Background(), order.ID, "  "+rec.codes[0].Code+" \n")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)
}

func TestGenerateOtpRequiresDeliverableState(t *testing.T) {
	svc, db, rec := newTestService(t)
	order := seedOrder(t, db, models.StatusPending)

	err := svc.GenerateDeliveryOtp(context.Background(), order.ID)
	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, rec.codes)

	delivered := seedOrder(t, db, models.StatusDelivered)
	err = svc.GenerateDeliveryOtp(context.Background(), delivered.ID)
	require.ErrorAs(t, err, &invalid, "no OTP for an order that is already delivered")
	assert.Empty(t, rec.codes)
}

// failingChannel always errors, standing in for a broken provider.
type failingChannel struct{}

func (failingChannel) Name() string { return "broken" }
func (failingChannel) NotifyStatus(context.Context, notify.StatusUpdate) error {
	return errors.New("boom")
}
func (failingChannel) SendDeliveryCode(context.Context, notify.DeliveryCode) error {
	return errors.New("boom")
}

func TestNotificationFailureDoesNotFailUpdate(t *testing.T) {
	db, err := config.OpenDB(filepath.Join(t.TempDir(), "orders_test.db"))
	require.NoError(t, err)

	dispatcher := notify.NewDispatcher(4, failingChannel{})
	svc := NewService(db, dispatcher, "91")
	order := seedOrder(t, db, models.StatusPending)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed)
	require.NoError(t, err, "a broken channel must never fail the status write")
	assert.Equal(t, models.StatusConfirmed, updated.Status)

	fresh := reload(t, db, order.ID)
	assert.Equal(t, models.StatusConfirmed, fresh.Status)
}
