// Package session keeps one checkout flow per shopper and applies intents to
// it one at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-checkout/internal/cart"
	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/events"
	"github.com/noah-isme/toko-checkout/internal/obs"
)

// Publisher emits domain events. *events.Bus satisfies it.
type Publisher interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Command is one user intent addressed to a session.
type Command struct {
	Intent    checkout.Intent
	ProductID string
}

// View is the read-only state returned to clients after every command.
type View struct {
	SessionID string          `json:"sessionId"`
	State     checkout.State  `json:"state"`
	Cart      cart.Snapshot   `json:"cart"`
	Order     *checkout.Order `json:"order,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type entry struct {
	mu        sync.Mutex
	flow      *checkout.Flow
	createdAt time.Time
	touchedAt time.Time
	// removed is set by Sweep once the entry has left the registry.
	removed bool
}

// Config wires a Service.
type Config struct {
	Catalog  checkout.Catalog
	Events   Publisher
	TTL      time.Duration
	Currency string
	Now      func() time.Time
	Logger   zerolog.Logger
}

// Service owns the in-memory sessions.
type Service struct {
	catalog  checkout.Catalog
	events   Publisher
	ttl      time.Duration
	currency string
	now      func() time.Time
	logger   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewService constructs a session service.
func NewService(cfg Config) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog:  cfg.Catalog,
		events:   cfg.Events,
		ttl:      ttl,
		currency: cfg.Currency,
		now:      now,
		logger:   cfg.Logger,
		sessions: make(map[string]*entry),
	}
}

// TTL is the idle lifetime of a session.
func (s *Service) TTL() time.Duration { return s.ttl }

// Start opens a new session in Browsing with an empty cart.
func (s *Service) Start(ctx context.Context) (View, error) {
	if s == nil || s.catalog == nil {
		return View{}, errors.New("session service not configured")
	}
	now := s.now()
	id := uuid.NewString()
	e := &entry{
		flow:      checkout.NewFlow(s.catalog, checkout.WithClock(s.now)),
		createdAt: now,
		touchedAt: now,
	}
	s.mu.Lock()
	s.sessions[id] = e
	n := len(s.sessions)
	s.mu.Unlock()
	if obs.DomainMetricsRegistered() {
		obs.ActiveSessions.Set(float64(n))
	}

	s.publish(ctx, events.TopicSessionStarted, id, events.SessionStarted{SessionID: id, StartedAt: now.UTC()})
	s.logger.Debug().Str("session_id", id).Msg("session started")
	return s.view(id, e), nil
}

// View returns the current state of session id without mutating it.
func (s *Service) View(_ context.Context, id string) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()
	return s.view(id, e), nil
}

// Apply runs cmd against session id. Intents on the same session are
// serialised; each runs to completion before the next starts.
func (s *Service) Apply(ctx context.Context, id string, cmd Command) (View, error) {
	ctx, span := otel.Tracer("checkout.session").Start(ctx, "session."+string(cmd.Intent))
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.String("checkout.intent", string(cmd.Intent)),
	)

	e, err := s.lookup(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return View{}, err
	}

	order, err := apply(e.flow, cmd)
	e.touchedAt = s.now()
	v := s.view(id, e)
	e.mu.Unlock()

	recordIntent(cmd.Intent, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return v, err
	}
	span.SetAttributes(attribute.String("checkout.state", v.State.String()))

	if order != nil {
		if obs.DomainMetricsRegistered() {
			obs.OrdersConfirmedTotal.Inc()
			obs.OrderTotalMinor.Observe(float64(order.Total))
		}
		s.publish(ctx, events.TopicOrderConfirmed, id, events.OrderConfirmed{
			SessionID:   id,
			Total:       order.Total,
			Units:       order.Units,
			Currency:    s.currency,
			ConfirmedAt: order.ConfirmedAt,
		})
	}
	return v, nil
}

func apply(f *checkout.Flow, cmd Command) (*checkout.Order, error) {
	var err error
	switch cmd.Intent {
	case checkout.IntentSelect:
		_, err = f.SelectProduct(cmd.ProductID)
	case checkout.IntentSelectAll:
		_, err = f.SelectAll()
	case checkout.IntentIncrease:
		_, err = f.Increase(cmd.ProductID)
	case checkout.IntentConfirm:
		order, cerr := f.Confirm()
		if cerr != nil {
			return nil, cerr
		}
		return &order, nil
	case checkout.IntentAcknowledge:
		err = f.Acknowledge()
	case checkout.IntentBrowse:
		err = f.Browse()
	case checkout.IntentViewCart:
		_, err = f.ViewCart()
	default:
		err = unknownIntentError(string(cmd.Intent))
	}
	return nil, err
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		expired := now.Sub(e.touchedAt) > s.ttl
		if expired {
			e.removed = true
			delete(s.sessions, id)
			removed++
		}
		e.mu.Unlock()
	}
	if obs.DomainMetricsRegistered() {
		obs.ActiveSessions.Set(float64(len(s.sessions)))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// lookup returns the live entry for id with e.mu held. The caller unlocks.
func (s *Service) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFoundError(id)
	}
	if err := s.hold(id, e); err != nil {
		return nil, err
	}
	return e, nil
}

// hold locks e and checks it was neither swept nor expired while unlocked.
func (s *Service) hold(id string, e *entry) error {
	e.mu.Lock()
	if e.removed || s.now().Sub(e.touchedAt) > s.ttl {
		e.mu.Unlock()
		return notFoundError(id)
	}
	return nil
}

// view must be called with e.mu held.
func (s *Service) view(id string, e *entry) View {
	v := View{
		SessionID: id,
		State:     e.flow.State(),
		Cart:      e.flow.Snapshot(),
		ExpiresAt: e.touchedAt.Add(s.ttl).UTC(),
	}
	if order, ok := e.flow.LastOrder(); ok {
		v.Order = &order
	}
	return v
}

func (s *Service) publish(ctx context.Context, topic, id string, payload any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, id, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Str("session_id", id).Msg("publish event")
	}
}

func recordIntent(intent checkout.Intent, err error) {
	if !obs.DomainMetricsRegistered() {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrEmptyCart):
		result = "empty_cart"
		obs.EmptyCartRejectionsTotal.Inc()
	case errors.Is(err, checkout.ErrInvalidTransition):
		result = "invalid_transition"
	case errors.Is(err, checkout.ErrUnknownProduct):
		result = "unknown_product"
	default:
		result = "error"
	}
	obs.CheckoutIntentsTotal.WithLabelValues(string(intent), result).Inc()
}
