package lifecycle

import (
	"testing"
	"time"

	"storefront-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOrder() *models.Order {
	return &models.Order{ID: 1, Status: models.StatusPending, CreatedAt: time.Now().Add(-time.Hour)}
}

func TestBuildStampsExactlyOneTimestamp(t *testing.T) {
	now := time.Now()
	stampCols := map[models.OrderStatus]string{
		models.StatusConfirmed:      "confirmed_at",
		models.StatusShipped:        "shipped_at",
		models.StatusOutForDelivery: "out_for_delivery_at",
		models.StatusDelivered:      "delivered_at",
	}

	for _, tr := range All() {
		order := pendingOrder()
		order.Status = tr.From[0]

		plan, err := Build(order, tr.To, now)
		require.NoError(t, err, "transition to %s", tr.To)
		require.False(t, plan.Noop)

		updates := plan.Updates()
		assert.Equal(t, tr.To, updates["status"])
		assert.Equal(t, now, updates["updated_at"])

		if col, ok := stampCols[tr.To]; ok {
			assert.Equal(t, now, updates[col], "expected %s stamped for %s", col, tr.To)
			assert.Len(t, updates, 3, "%s must stamp exactly one timestamp", tr.To)
		} else {
			// terminal exits stamp no forward timestamp
			assert.Len(t, updates, 2, "%s must stamp no timestamp", tr.To)
		}
	}
}

func TestBuildRejectsUnknownTarget(t *testing.T) {
	_, err := Build(pendingOrder(), models.OrderStatus("ARCHIVED"), time.Now())
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.True(t, invalid.Unknown)

	// PENDING is never a target: orders are created in it, not moved to it
	_, err = Build(&models.Order{Status: models.StatusDelivered}, models.StatusPending, time.Now())
	require.ErrorAs(t, err, &invalid)
	assert.True(t, invalid.Unknown)
}

func TestBuildRejectsSkippedAndBackwardTransitions(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
	}{
		{models.StatusPending, models.StatusShipped},
		{models.StatusPending, models.StatusDelivered},
		{models.StatusShipped, models.StatusConfirmed},
		{models.StatusDelivered, models.StatusCancelled},
		{models.StatusCancelled, models.StatusConfirmed},
		{models.StatusPending, models.StatusReturned},
	}
	for _, tc := range cases {
		order := pendingOrder()
		order.Status = tc.from
		_, err := Build(order, tc.to, time.Now())
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "%s -> %s must be rejected", tc.from, tc.to)
		assert.False(t, invalid.Unknown)
	}
}

func TestBuildRepeatTargetIsNoop(t *testing.T) {
	order := pendingOrder()
	order.Status = models.StatusConfirmed
	stamped := time.Now().Add(-time.Minute)
	order.ConfirmedAt = &stamped

	plan, err := Build(order, models.StatusConfirmed, time.Now())
	require.NoError(t, err)
	assert.True(t, plan.Noop)
	assert.Nil(t, plan.Updates())
}

func TestBuildDoesNotRestampExistingTimestamp(t *testing.T) {
	// Re-entering a status is impossible through the table, but an
	// already-set stamp must also survive a legal transition that maps
	// to it (delivered_at set by an earlier OTP path, for example).
	order := pendingOrder()
	order.Status = models.StatusOutForDelivery
	earlier := time.Now().Add(-time.Minute)
	order.DeliveredAt = &earlier

	plan, err := Build(order, models.StatusDelivered, time.Now())
	require.NoError(t, err)
	_, restamped := plan.Updates()["delivered_at"]
	assert.False(t, restamped, "existing delivered_at must not be overwritten")
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusConfirmed, models.StatusCancelled},
		ValidTransitionsFrom(models.StatusPending))
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusReturned},
		ValidTransitionsFrom(models.StatusDelivered))
	assert.Empty(t, ValidTransitionsFrom(models.StatusCancelled))
	assert.Empty(t, ValidTransitionsFrom(models.StatusReturned))
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := &InvalidTransitionError{From: models.StatusCancelled, To: models.StatusShipped}
	assert.Contains(t, err.Error(), "CANCELLED")
	assert.Contains(t, err.Error(), "terminal state")
}
