package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	maxAttempts    = 3
	attemptTimeout = 5 * time.Second
	retryBackoff   = 500 * time.Millisecond
)

type task struct {
	status *StatusUpdate
	code   *DeliveryCode
}

// Dispatcher decouples notification delivery from the request/response
// lifecycle. Sends are queued after the authoritative database write has
// committed and processed by a single background worker; enqueueing never
// blocks, and a full queue drops the message rather than stalling the
// caller. Each channel gets an independent bounded-retry attempt, and
// failures are logged and swallowed.
type Dispatcher struct {
	channels []Channel
	queue    chan task
	wg       sync.WaitGroup
	once     sync.Once
}

func NewDispatcher(queueSize int, channels ...Channel) *Dispatcher {
	d := &Dispatcher{
		channels: channels,
		queue:    make(chan task, queueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// EnqueueStatus queues an order-status notification. Best effort: a full
// queue logs and drops.
func (d *Dispatcher) EnqueueStatus(u StatusUpdate) {
	d.enqueue(task{status: &u}, u.OrderNumber)
}

// EnqueueDeliveryCode queues a handoff-OTP message.
func (d *Dispatcher) EnqueueDeliveryCode(c DeliveryCode) {
	d.enqueue(task{code: &c}, c.OrderNumber)
}

func (d *Dispatcher) enqueue(t task, orderNumber string) {
	select {
	case d.queue <- t:
	default:
		log.Printf("notify: queue full, dropping notification for order %s", orderNumber)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for t := range d.queue {
		for _, ch := range d.channels {
			d.deliver(ch, t)
		}
	}
}

// deliver attempts one channel with bounded retry. A channel failure never
// affects the other channel or the committed status change.
func (d *Dispatcher) deliver(ch Channel, t task) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
		if t.status != nil {
			lastErr = ch.NotifyStatus(ctx, *t.status)
		} else {
			lastErr = ch.SendDeliveryCode(ctx, *t.code)
		}
		cancel()
		if lastErr == nil {
			return
		}
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * retryBackoff)
		}
	}
	if t.status != nil {
		log.Printf("notify: %s channel failed for order %s (%s): %v",
			ch.Name(), t.status.OrderNumber, t.status.StatusCode, lastErr)
	} else {
		log.Printf("notify: %s channel failed to send delivery code for order %s: %v",
			ch.Name(), t.code.OrderNumber, lastErr)
	}
}
