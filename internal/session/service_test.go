package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/events"
	"github.com/noah-isme/toko-checkout/internal/session"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Emit(_ context.Context, topic, aggregateID string, payload any) (events.Event, error) {
	bus := events.Bus{}
	ev, err := bus.Emit(context.Background(), topic, aggregateID, payload)
	if err != nil {
		return ev, err
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return ev, nil
}

func (c *capturePublisher) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Topic)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T, pub session.Publisher, clock *fakeClock) *session.Service {
	t.Helper()
	return session.NewService(session.Config{
		Catalog:  catalog.MustNew(catalog.DefaultProducts()),
		Events:   pub,
		TTL:      10 * time.Minute,
		Currency: "BRL",
		Now:      clock.Now,
	})
}

func TestServiceScenarioTotals(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := newService(t, pub, clock)

	v, err := svc.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, checkout.Browsing, v.State)
	require.True(t, v.Cart.IsEmpty())
	id := v.SessionID

	v, err = svc.Apply(ctx, id, session.Command{Intent: checkout.IntentSelect, ProductID: "1"})
	require.NoError(t, err)
	require.EqualValues(t, 1999, v.Cart.Total)

	v, err = svc.Apply(ctx, id, session.Command{Intent: checkout.IntentBrowse})
	require.NoError(t, err)
	v, err = svc.Apply(ctx, id, session.Command{Intent: checkout.IntentSelect, ProductID: "1"})
	require.NoError(t, err)
	require.EqualValues(t, 3998, v.Cart.Total)

	_, err = svc.Apply(ctx, id, session.Command{Intent: checkout.IntentBrowse})
	require.NoError(t, err)
	v, err = svc.Apply(ctx, id, session.Command{Intent: checkout.IntentSelect, ProductID: "2"})
	require.NoError(t, err)
	require.EqualValues(t, 7997, v.Cart.Total)
	require.Len(t, v.Cart.Lines, 2)

	v, err = svc.Apply(ctx, id, session.Command{Intent: checkout.IntentConfirm})
	require.NoError(t, err)
	require.Equal(t, checkout.Confirmed, v.State)
	require.NotNil(t, v.Order)
	require.EqualValues(t, 7997, v.Order.Total)
	require.True(t, v.Cart.IsEmpty())

	require.Equal(t, []string{events.TopicSessionStarted, events.TopicOrderConfirmed}, pub.topics())
	var confirmed events.OrderConfirmed
	require.NoError(t, pub.events[1].Decode(&confirmed))
	require.Equal(t, id, confirmed.SessionID)
	require.EqualValues(t, 7997, confirmed.Total)
	require.Equal(t, "BRL", confirmed.Currency)

	v, err = svc.Apply(ctx, id, session.Command{Intent: checkout.IntentAcknowledge})
	require.NoError(t, err)
	require.Equal(t, checkout.Browsing, v.State)
	require.Nil(t, v.Order)
}

func TestServiceEmptyCartConfirm(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	svc := newService(t, pub, &fakeClock{t: time.Now()})

	v, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, v.SessionID, session.Command{Intent: checkout.IntentViewCart})
	require.NoError(t, err)

	v, err = svc.Apply(ctx, v.SessionID, session.Command{Intent: checkout.IntentConfirm})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
	require.Equal(t, checkout.Editing, v.State)
	require.Equal(t, []string{events.TopicSessionStarted}, pub.topics())
}

func TestServiceSelectAll(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, &fakeClock{t: time.Now()})
	v, err := svc.Start(ctx)
	require.NoError(t, err)
	v, err = svc.Apply(ctx, v.SessionID, session.Command{Intent: checkout.IntentSelectAll})
	require.NoError(t, err)
	require.EqualValues(t, 11997, v.Cart.Total)
	require.Equal(t, 3, v.Cart.Units)
}

func TestServiceRejectsUnknownSessionAndIntent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, &fakeClock{t: time.Now()})

	_, err := svc.Apply(ctx, "missing", session.Command{Intent: checkout.IntentSelectAll})
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = svc.View(ctx, "missing")
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	v, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, v.SessionID, session.Command{Intent: "teleport"})
	require.ErrorIs(t, err, session.ErrUnknownIntent)

	_, err = svc.Apply(ctx, v.SessionID, session.Command{Intent: checkout.IntentConfirm})
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)
}

func TestServiceSweepExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := newService(t, nil, clock)

	idle, err := svc.Start(ctx)
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)
	active, err := svc.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, svc.Len())

	clock.Advance(5 * time.Minute)
	_, err = svc.View(ctx, idle.SessionID)
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	require.Equal(t, 1, svc.Sweep(clock.Now()))
	require.Equal(t, 1, svc.Len())
	_, err = svc.View(ctx, active.SessionID)
	require.NoError(t, err)
}

func TestServiceSerialisesIntentsPerSession(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, &fakeClock{t: time.Now()})
	v, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, v.SessionID, session.Command{Intent: checkout.IntentSelect, ProductID: "1"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Apply(ctx, v.SessionID, session.Command{Intent: checkout.IntentIncrease, ProductID: "1"})
		}()
	}
	wg.Wait()

	v, err = svc.View(ctx, v.SessionID)
	require.NoError(t, err)
	require.Equal(t, 51, v.Cart.Lines[0].Quantity)
	require.EqualValues(t, 51*1999, v.Cart.Total)
}
