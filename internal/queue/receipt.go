package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// RecentReceiptsKey is the Redis list holding the newest rendered receipts.
const RecentReceiptsKey = "receipts:recent"

const thankYouMessage = "Obrigado pela compra!"

// Receipt is the rendered confirmation sent to the shopper.
type Receipt struct {
	EventID      string        `json:"eventId"`
	SessionID    string        `json:"sessionId"`
	Message      string        `json:"message"`
	Total        pricing.Money `json:"total"`
	TotalDisplay string        `json:"totalDisplay"`
	Units        int           `json:"units"`
	ConfirmedAt  time.Time     `json:"confirmedAt"`
}

// ReceiptHandler processes TypeReceiptSend tasks.
type ReceiptHandler struct {
	Logger zerolog.Logger
	Symbol string
	// Redis, when set, keeps the latest receipts for inspection.
	Redis *redis.Client
	Keep  int64
}

// Render builds the receipt for payload.
func (h ReceiptHandler) Render(p ReceiptPayload) Receipt {
	return Receipt{
		EventID:      p.EventID,
		SessionID:    p.Order.SessionID,
		Message:      thankYouMessage,
		Total:        p.Order.Total,
		TotalDisplay: pricing.Format(p.Order.Total, h.Symbol),
		Units:        p.Order.Units,
		ConfirmedAt:  p.Order.ConfirmedAt,
	}
}

// ProcessTask implements asynq.Handler.
func (h ReceiptHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		QueueProcessedTotal.WithLabelValues(TypeReceiptSend, "invalid").Inc()
		return fmt.Errorf("decode receipt payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.Order.SessionID == "" {
		QueueProcessedTotal.WithLabelValues(TypeReceiptSend, "invalid").Inc()
		return fmt.Errorf("receipt payload without session: %w", asynq.SkipRetry)
	}
	receipt := h.Render(p)
	if h.Redis != nil {
		if err := h.store(ctx, receipt); err != nil {
			QueueProcessedTotal.WithLabelValues(TypeReceiptSend, "retry").Inc()
			return fmt.Errorf("store receipt: %w", err)
		}
	}
	h.Logger.Info().
		Str("event_id", receipt.EventID).
		Str("session_id", receipt.SessionID).
		Int64("total", receipt.Total).
		Str("total_display", receipt.TotalDisplay).
		Msg(receipt.Message)
	QueueProcessedTotal.WithLabelValues(TypeReceiptSend, "ok").Inc()
	return nil
}

func (h ReceiptHandler) store(ctx context.Context, r Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	keep := h.Keep
	if keep <= 0 {
		keep = 100
	}
	_, err = h.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, RecentReceiptsKey, data)
		pipe.LTrim(ctx, RecentReceiptsKey, 0, keep-1)
		return nil
	})
	return err
}

// NewServeMux routes receipt tasks to h.
func NewServeMux(h ReceiptHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeReceiptSend, h)
	return mux
}
