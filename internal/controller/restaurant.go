package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/rbac"
)

type restaurantList struct{}

func (restaurantList) fetch(ctx context.Context, c *Controller, now time.Time) (Snapshot, error) {
	raws, err := c.client.RestaurantOrders(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Orders: order.NormalizeAll(raws, now), FetchedAt: now}, nil
}

// Confirm moves a pending order into preparation.
func (c *Controller) Confirm(ctx context.Context, o order.Order) error {
	return c.restaurantAction(ctx, rbac.Confirm, o)
}

// Cancel cancels a pending or preparing order.
func (c *Controller) Cancel(ctx context.Context, o order.Order) error {
	return c.restaurantAction(ctx, rbac.Cancel, o)
}

func (c *Controller) restaurantAction(ctx context.Context, action rbac.Action, o order.Order) error {
	if err := c.require(role.Restaurant); err != nil {
		return err
	}
	to, err := c.transition(action, o)
	if err != nil {
		return err
	}
	return c.writeStatus(ctx, o.OrderID, to)
}

// UpdateStatus writes an explicit target status. Anything outside the
// restaurant's rows of the transition table is refused before a request
// is sent.
func (c *Controller) UpdateStatus(ctx context.Context, o order.Order, to order.Status) error {
	if err := c.require(role.Restaurant); err != nil {
		return err
	}
	if o.OrderID == 0 {
		return ErrInvalidOrder
	}
	if !rbac.CanWrite(string(role.Restaurant), string(o.Status), string(to)) {
		return fmt.Errorf("%w: %w: restaurant cannot move an order from %s to %s",
			ErrTransitionNotAllowed, rbac.ErrNotAllowed, o.Status, to)
	}
	return c.writeStatus(ctx, o.OrderID, to)
}

func (c *Controller) writeStatus(ctx context.Context, orderID int, to order.Status) error {
	if err := c.client.UpdateRestaurantOrderStatus(ctx, orderID, string(to)); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	c.mutated(ctx)
	return nil
}

// Menu lists the restaurant's own items.
func (c *Controller) Menu(ctx context.Context) ([]api.MenuItem, error) {
	if err := c.require(role.Restaurant); err != nil {
		return nil, err
	}
	return c.client.OwnMenu(ctx)
}
