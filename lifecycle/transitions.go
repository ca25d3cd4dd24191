package lifecycle

import (
	"time"

	"storefront-api/models"
)

// Transition defines one reachable target status: which statuses may
// precede it, the external notification code sent to the customer, and
// the order column stamped the first time the status is entered.
type Transition struct {
	To         models.OrderStatus   `json:"to"`
	From       []models.OrderStatus `json:"from"`
	NotifyCode string               `json:"notify_code"`
	StampCol   string               `json:"stamp_column,omitempty"`
}

// transitions is the authoritative lifecycle definition. No mutation may
// write a status value absent from this table.
var transitions = []Transition{
	{To: models.StatusConfirmed, From: []models.OrderStatus{models.StatusPending},
		NotifyCode: "ORDER_CONFIRMED", StampCol: "confirmed_at"},
	{To: models.StatusShipped, From: []models.OrderStatus{models.StatusConfirmed},
		NotifyCode: "ORDER_SHIPPED", StampCol: "shipped_at"},
	{To: models.StatusOutForDelivery, From: []models.OrderStatus{models.StatusShipped},
		NotifyCode: "OUT_FOR_DELIVERY", StampCol: "out_for_delivery_at"},
	{To: models.StatusDelivered, From: []models.OrderStatus{models.StatusOutForDelivery},
		NotifyCode: "ORDER_DELIVERED", StampCol: "delivered_at"},
	// Terminal exits: cancellation before handoff, return after delivery.
	{To: models.StatusCancelled, From: []models.OrderStatus{
		models.StatusPending, models.StatusConfirmed,
		models.StatusShipped, models.StatusOutForDelivery},
		NotifyCode: "ORDER_CANCELLED"},
	{To: models.StatusReturned, From: []models.OrderStatus{models.StatusDelivered},
		NotifyCode: "ORDER_RETURNED"},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

// Build lookup maps for O(1) validation
var (
	byTarget = func() map[models.OrderStatus]Transition {
		m := make(map[models.OrderStatus]Transition)
		for _, t := range transitions {
			m[t.To] = t
		}
		return m
	}()

	allowed = func() map[transitionKey]bool {
		m := make(map[transitionKey]bool)
		for _, t := range transitions {
			for _, from := range t.From {
				m[transitionKey{from, t.To}] = true
			}
		}
		return m
	}()
)

// Lookup returns the table entry for a target status.
func Lookup(target models.OrderStatus) (Transition, bool) {
	t, ok := byTarget[target]
	return t, ok
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range transitions {
		for _, from := range t.From {
			if from == status {
				nexts = append(nexts, t.To)
				break
			}
		}
	}
	return nexts
}

// Plan is the update payload for one validated transition.
type Plan struct {
	Target     models.OrderStatus
	NotifyCode string
	// Noop is set when the order already occupies the target status;
	// callers must write nothing and notify nobody.
	Noop bool

	updates map[string]interface{}
}

// Updates returns the column set to persist: status, updated_at, and the
// mapped timestamp when the table provides one and it is still unset.
func (p Plan) Updates() map[string]interface{} {
	return p.updates
}

// Build validates a requested transition against the table and the order's
// current state, and produces the update payload. An unknown target or a
// disallowed predecessor yields a descriptive error; re-requesting the
// current status yields an idempotent no-op plan.
func Build(order *models.Order, target models.OrderStatus, now time.Time) (Plan, error) {
	entry, ok := byTarget[target]
	if !ok {
		return Plan{}, &InvalidTransitionError{From: order.Status, To: target, Unknown: true}
	}

	if order.Status == target {
		return Plan{Target: target, NotifyCode: entry.NotifyCode, Noop: true}, nil
	}

	if !allowed[transitionKey{order.Status, target}] {
		return Plan{}, &InvalidTransitionError{From: order.Status, To: target}
	}

	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	if entry.StampCol != "" && stampValue(order, entry.StampCol) == nil {
		updates[entry.StampCol] = now
	}

	return Plan{Target: target, NotifyCode: entry.NotifyCode, updates: updates}, nil
}

func stampValue(order *models.Order, col string) *time.Time {
	switch col {
	case "confirmed_at":
		return order.ConfirmedAt
	case "shipped_at":
		return order.ShippedAt
	case "out_for_delivery_at":
		return order.OutForDeliveryAt
	case "delivered_at":
		return order.DeliveredAt
	}
	return nil
}

// All returns the full lifecycle table for documentation endpoints.
func All() []Transition {
	return transitions
}

// InvalidTransitionError reports a rejected status change with the valid
// next states, so callers can surface an actionable message.
type InvalidTransitionError struct {
	From    models.OrderStatus
	To      models.OrderStatus
	Unknown bool
}

func (e *InvalidTransitionError) Error() string {
	if e.Unknown {
		return "unknown order status '" + string(e.To) + "'"
	}
	msg := "invalid transition: " + string(e.From) + " -> " + string(e.To) +
		". Valid transitions from " + string(e.From) + " are: "
	nexts := ValidTransitionsFrom(e.From)
	if len(nexts) == 0 {
		return msg + "none (terminal state)"
	}
	for i, s := range nexts {
		if i > 0 {
			msg += ", "
		}
		msg += string(s)
	}
	return msg
}
