package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/earnings"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/collection"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/rbac"
)

// Profile load waits: up to tokenWaits pauses of tokenWait for a token to
// appear, then a single retry after retryWait on a non-auth failure.
const (
	tokenWaits = 3
	tokenWait  = time.Second
	retryWait  = 2 * time.Second
)

type deliveryList struct{}

// The pool and the courier's own orders are fetched together.
func (deliveryList) fetch(ctx context.Context, c *Controller, now time.Time) (Snapshot, error) {
	var pool, mine []api.RawOrder
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pool, err = c.client.PendingOrders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = c.client.DeliveryStaffOrders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	available := collection.Filter(order.NormalizeAll(pool, now), func(o order.Order) bool {
		return acceptable(o.Status) && !o.Assigned()
	})
	return Snapshot{
		Orders:    sortForCourier(available),
		Accepted:  sortForCourier(order.NormalizeAll(mine, now)),
		FetchedAt: now,
	}, nil
}

// acceptable reports whether a courier may pick the order up.
func acceptable(s order.Status) bool {
	_, err := rbac.Check(string(role.Delivery), rbac.Accept, string(s))
	return err == nil
}

func inProgress(s order.Status) bool {
	return s == order.Accepted || s == order.Delivering || s == order.OutForDelivery
}

// sortForCourier floats acceptable and in-progress orders to the top and
// keeps the server's order otherwise.
func sortForCourier(orders []order.Order) []order.Order {
	return collection.SortStableBy(orders, func(o order.Order) int {
		if acceptable(o.Status) || inProgress(o.Status) {
			return 0
		}
		return 1
	})
}

// ProfileError explains why the courier profile could not be loaded. It
// matches ErrProfileNotLoaded.
type ProfileError struct {
	Message string
	Err     error
}

func (e *ProfileError) Error() string { return e.Message }

func (e *ProfileError) Unwrap() error { return e.Err }

func (e *ProfileError) Is(target error) bool { return target == ErrProfileNotLoaded }

func profileError(base string, err error) *ProfileError {
	var ne *api.NetworkError
	switch {
	case errors.As(err, &ne) && ne.Timeout:
		return &ProfileError{"Connection timeout. Please check your network and try again.", err}
	case errors.As(err, &ne):
		return &ProfileError{"Cannot connect to server. Please ensure the backend is running on " + base, err}
	case errors.Is(err, api.ErrUnauthorized):
		return &ProfileError{"Session expired. Please log in again.", err}
	case errors.Is(err, api.ErrNotFound):
		return &ProfileError{"API endpoint not found. Please restart the backend server.", err}
	}
	status := "Unknown error"
	if s := api.StatusOf(err); s != 0 {
		status = strconv.Itoa(s)
	}
	return &ProfileError{fmt.Sprintf("Failed to load profile (%s). Please refresh the page.", status), err}
}

// Staff returns the loaded courier profile, or nil.
func (c *Controller) Staff() *order.Staff {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staff
}

// ProfileErr is the reason the last profile load failed, or nil.
func (c *Controller) ProfileErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profileErr
}

// LoadProfile fetches the courier's profile. Without a token it waits for
// one to appear; on a failure other than 401 it tries once more, unless it
// already had to wait for the token.
func (c *Controller) LoadProfile(ctx context.Context) (*order.Staff, error) {
	if err := c.require(role.Delivery); err != nil {
		return nil, err
	}
	sess := c.client.Session()

	waits := 0
	for sess.Token() == "" {
		if waits == tokenWaits {
			return nil, c.setProfile(nil, &ProfileError{Message: "Please log in again. Token not found."})
		}
		logger.WithCtx(ctx).Debug("controller: no token yet, waiting", "attempt", waits+1)
		if err := c.sleep(ctx, tokenWait); err != nil {
			return nil, err
		}
		waits++
	}

	p, err := c.client.DeliveryProfile(ctx)
	if err != nil && waits == 0 && !errors.Is(err, api.ErrUnauthorized) {
		logger.WithCtx(ctx).Warn("controller: profile load failed, retrying", "error", err)
		if serr := c.sleep(ctx, retryWait); serr != nil {
			return nil, serr
		}
		p, err = c.client.DeliveryProfile(ctx)
	}
	if err != nil {
		return nil, c.setProfile(nil, profileError(c.client.BaseURL(), err))
	}

	staff := &order.Staff{ID: strconv.Itoa(p.StaffID), Name: p.Name, Phone: p.Phone}
	return staff, c.setProfile(staff, nil)
}

func (c *Controller) setProfile(staff *order.Staff, perr *ProfileError) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staff = staff
	if perr == nil {
		c.profileErr = nil
		return nil
	}
	c.profileErr = perr
	return perr
}

// Accept assigns o to the signed-in courier. The profile is loaded first
// if it is not yet known.
func (c *Controller) Accept(ctx context.Context, o order.Order) error {
	if err := c.require(role.Delivery); err != nil {
		return err
	}
	if c.Staff() == nil {
		if _, err := c.LoadProfile(ctx); err != nil {
			return fmt.Errorf("cannot accept order: %w", err)
		}
	}
	if _, err := c.transition(rbac.Accept, o); err != nil {
		return err
	}
	if err := c.client.AcceptOrder(ctx, o.OrderID); err != nil {
		return fmt.Errorf("failed to accept order: %w", err)
	}
	c.mutated(ctx)
	return nil
}

// MarkDelivered completes an order the courier is carrying.
func (c *Controller) MarkDelivered(ctx context.Context, o order.Order) error {
	if err := c.require(role.Delivery); err != nil {
		return err
	}
	to, err := c.transition(rbac.Deliver, o)
	if err != nil {
		return err
	}
	if err := c.client.UpdateOrderStatus(ctx, o.OrderID, string(to)); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	c.mutated(ctx)
	return nil
}

// Release hands an accepted order back to the pool.
func (c *Controller) Release(ctx context.Context, o order.Order) error {
	if err := c.require(role.Delivery); err != nil {
		return err
	}
	if _, err := c.transition(rbac.Release, o); err != nil {
		return err
	}
	if err := c.client.CancelOrder(ctx, o.OrderID); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	c.mutated(ctx)
	return nil
}

// Earnings sums commission over the courier's own orders.
func (c *Controller) Earnings() earnings.Summary {
	return earnings.Compute(c.Snapshot().Accepted, c.now())
}
