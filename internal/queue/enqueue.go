// Package queue moves post-checkout work (receipts) onto asynq workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-checkout/internal/events"
)

// TypeReceiptSend is the asynq task type carrying a confirmed order receipt.
const TypeReceiptSend = "receipt:send"

// DefaultQueue is the asynq queue receipts are placed on.
const DefaultQueue = "receipts"

// ReceiptPayload is the task body for TypeReceiptSend.
type ReceiptPayload struct {
	EventID string                `json:"eventId"`
	Order   events.OrderConfirmed `json:"order"`
}

// TaskClient is the subset of *asynq.Client used by Enqueuer.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer turns order.confirmed events into receipt tasks. It implements
// events.Notifier and ignores every other topic.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	MaxRetry int
	Timeout  time.Duration
}

// NewReceiptTask builds the asynq task for an order confirmation.
func NewReceiptTask(eventID string, order events.OrderConfirmed) (*asynq.Task, error) {
	payload, err := json.Marshal(ReceiptPayload{EventID: eventID, Order: order})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReceiptSend, payload), nil
}

// Notify implements events.Notifier.
func (e Enqueuer) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicOrderConfirmed {
		return nil
	}
	if e.Client == nil {
		return errors.New("queue: task client not configured")
	}
	var order events.OrderConfirmed
	if err := ev.Decode(&order); err != nil {
		QueueEnqueuedTotal.WithLabelValues(TypeReceiptSend, "invalid").Inc()
		return fmt.Errorf("queue: decode order: %w", err)
	}
	task, err := NewReceiptTask(ev.ID, order)
	if err != nil {
		return fmt.Errorf("queue: build task: %w", err)
	}
	_, err = e.Client.EnqueueContext(ctx, task, e.options(ev.ID)...)
	switch {
	case err == nil:
		QueueEnqueuedTotal.WithLabelValues(TypeReceiptSend, "ok").Inc()
		return nil
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		// the same event was already queued
		QueueEnqueuedTotal.WithLabelValues(TypeReceiptSend, "duplicate").Inc()
		return nil
	default:
		QueueEnqueuedTotal.WithLabelValues(TypeReceiptSend, "error").Inc()
		return fmt.Errorf("queue: enqueue receipt: %w", err)
	}
}

func (e Enqueuer) options(taskID string) []asynq.Option {
	queue := e.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	maxRetry := e.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
		asynq.TaskID(taskID),
	}
}
