// Package controller keeps one role's order list fresh and carries out the
// actions that role may take on it.
//
// A Controller fetches on Start and then every POLL_INTERVAL, and again
// after every successful mutation. Each fetch is numbered; a response that
// resolves after a newer one has been applied is dropped. Subscribers get
// a Snapshot after every applied fetch.
//
//	ctl, _ := controller.New(client, role.Delivery)
//	off := ctl.Subscribe(func(s controller.Snapshot) { render(s) })
//	ctl.Start(ctx)
//	defer ctl.Stop()
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/event"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/metrics"
	"github.com/shashiranjanraj/platter/pkg/rbac"
	"github.com/shashiranjanraj/platter/pkg/schedule"
)

var (
	ErrUnknownRole          = errors.New("controller: no order list for this role")
	ErrWrongRole            = errors.New("controller: action not available for this role")
	ErrAlreadyReviewed      = errors.New("you have already reviewed this order")
	ErrTransitionNotAllowed = errors.New("controller: status change not allowed")
	ErrProfileNotLoaded     = errors.New("delivery staff information not loaded")
	ErrInvalidOrder         = errors.New("invalid order")
)

// Snapshot is the list state after one applied fetch.
type Snapshot struct {
	Role role.Role `json:"role"`
	Seq  uint64    `json:"seq"`

	// Orders is the main list: active orders for customers, the available
	// pool for couriers, every order for restaurants.
	Orders []order.Order `json:"orders"`

	// History holds a customer's delivered orders.
	History []order.Order `json:"history,omitempty"`

	// Accepted holds the courier's own orders.
	Accepted []order.Order `json:"accepted,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// Find looks an order up across every list in the snapshot.
func (s Snapshot) Find(orderID int) (order.Order, bool) {
	for _, list := range [][]order.Order{s.Orders, s.Accepted, s.History} {
		for _, o := range list {
			if o.OrderID == orderID {
				return o, true
			}
		}
	}
	return order.Order{}, false
}

type strategy interface {
	fetch(ctx context.Context, c *Controller, now time.Time) (Snapshot, error)
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Controller struct {
	role     role.Role
	client   *api.Client
	strat    strategy
	bus      *event.Bus
	interval time.Duration
	now      func() time.Time
	sleep    SleepFunc

	issued  atomic.Uint64
	applied uint64

	mu      sync.Mutex
	snap    Snapshot
	lastErr error
	job     *schedule.Job
	offAuth func()

	// delivery only
	staff      *order.Staff
	profileErr error
}

type Option func(*Controller)

// WithInterval overrides POLL_INTERVAL.
func WithInterval(d time.Duration) Option { return func(c *Controller) { c.interval = d } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithSleep replaces the waits used by the profile retry.
func WithSleep(fn SleepFunc) Option { return func(c *Controller) { c.sleep = fn } }

// New builds the controller for r. Role None has no list.
func New(client *api.Client, r role.Role, opts ...Option) (*Controller, error) {
	c := &Controller{
		role:     r,
		client:   client,
		interval: config.PollInterval(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	switch r {
	case role.Customer:
		c.strat = customerList{}
	case role.Delivery:
		c.strat = deliveryList{}
	case role.Restaurant:
		c.strat = restaurantList{}
	default:
		return nil, ErrUnknownRole
	}
	if bus := client.Session().Bus(); bus != nil {
		c.bus = bus
	} else {
		c.bus = event.New()
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Controller) Role() role.Role { return c.role }

// EventName is the bus event carrying this role's snapshots.
func EventName(r role.Role) string { return "orders." + string(r) }

// Subscribe calls fn with every applied snapshot until the returned func
// is called.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	return c.bus.Listen(EventName(c.role), func(p interface{}) {
		if s, ok := p.(Snapshot); ok {
			fn(s)
		}
	})
}

// Snapshot returns the last applied state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Err is the error of the most recent fetch, nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Refresh fetches the list now. When a newer fetch has already been
// applied the result is dropped and the current snapshot is returned.
func (c *Controller) Refresh(ctx context.Context) (Snapshot, error) {
	seq := c.issued.Add(1)
	snap, err := c.strat.fetch(ctx, c, c.now())

	c.mu.Lock()
	if err != nil {
		c.lastErr = err
		cur := c.snap
		c.mu.Unlock()
		metrics.PollFetches.WithLabelValues(string(c.role), "failed").Inc()
		logger.WithCtx(ctx).Warn("controller: fetch failed", "role", c.role, "seq", seq, "error", err)
		return cur, err
	}
	if seq < c.applied {
		cur := c.snap
		c.mu.Unlock()
		metrics.PollFetches.WithLabelValues(string(c.role), "stale").Inc()
		logger.WithCtx(ctx).Debug("controller: dropped stale response", "role", c.role, "seq", seq, "applied", cur.Seq)
		return cur, nil
	}
	snap.Role = c.role
	snap.Seq = seq
	c.applied = seq
	c.snap = snap
	c.lastErr = nil
	c.mu.Unlock()

	metrics.PollFetches.WithLabelValues(string(c.role), "applied").Inc()
	c.bus.Fire(EventName(c.role), snap)
	return snap, nil
}

// Start begins polling. It is a no-op while already running. Polling ends
// on Stop, when ctx is cancelled, or when the session is cleared.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job != nil {
		select {
		case <-c.job.Done():
		default:
			return
		}
	}
	c.job = schedule.Interval(c.interval).
		Name("orders:" + string(c.role)).
		WithoutOverlapping().
		Start(ctx, func(ctx context.Context) {
			_, _ = c.Refresh(ctx)
		})

	if c.offAuth == nil {
		c.offAuth = c.client.Session().OnClear(func(reason string) {
			logger.Info("controller: session cleared, polling stopped", "role", c.role, "reason", reason)
			c.halt()
		})
	}
}

// halt cancels polling without waiting. The session can be cleared from
// inside a running fetch, so this must not block on the job.
func (c *Controller) halt() {
	c.mu.Lock()
	job := c.job
	c.job = nil
	c.snap = Snapshot{Role: c.role}
	// Anything still in flight was issued for the old session.
	c.applied = c.issued.Load() + 1
	c.staff = nil
	c.mu.Unlock()
	if job != nil {
		job.Cancel()
	}
}

// Stop ends polling and waits for an in-flight fetch to return.
func (c *Controller) Stop() {
	c.mu.Lock()
	job, off := c.job, c.offAuth
	c.job, c.offAuth = nil, nil
	c.mu.Unlock()

	if off != nil {
		off()
	}
	if job != nil {
		job.Stop()
	}
}

func (c *Controller) require(r role.Role) error {
	if c.role != r {
		return fmt.Errorf("%w: %s", ErrWrongRole, c.role)
	}
	return nil
}

// transition resolves action against the shared table for this role.
func (c *Controller) transition(action rbac.Action, o order.Order) (order.Status, error) {
	if o.OrderID == 0 {
		return "", ErrInvalidOrder
	}
	to, err := rbac.Check(string(c.role), action, string(o.Status))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransitionNotAllowed, err)
	}
	return order.Status(to), nil
}

// mutated re-fetches after a successful write. The write already
// succeeded, so a failed re-fetch is only logged.
func (c *Controller) mutated(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil {
		logger.WithCtx(ctx).Warn("controller: refresh after update failed", "role", c.role, "error", err)
	}
}
