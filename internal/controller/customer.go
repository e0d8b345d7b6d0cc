package controller

import (
	"context"
	"time"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/chat"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/collection"
	"github.com/shashiranjanraj/platter/pkg/validate"
)

type customerList struct{}

// Delivered orders leave the active list and show up in History.
func (customerList) fetch(ctx context.Context, c *Controller, now time.Time) (Snapshot, error) {
	raws, err := c.client.CustomerOrders(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	all := order.NormalizeAll(raws, now)
	delivered := func(o order.Order) bool { return o.Status == order.Delivered }
	return Snapshot{
		Orders:    collection.Reject(all, delivered),
		History:   collection.Filter(all, delivered),
		FetchedAt: now,
	}, nil
}

// RequestRefund opens a customer service chat about o.
func (c *Controller) RequestRefund(o order.Order, opts ...chat.Option) (*chat.Dialog, error) {
	if err := c.require(role.Customer); err != nil {
		return nil, err
	}
	return chat.Open(chat.CustomerService, o.OrderID, opts...), nil
}

// ContactDeliveryStaff opens a chat with the courier carrying o.
func (c *Controller) ContactDeliveryStaff(o order.Order, opts ...chat.Option) (*chat.Dialog, error) {
	if err := c.require(role.Customer); err != nil {
		return nil, err
	}
	return chat.Open(chat.DeliveryStaff, o.OrderID, opts...), nil
}

// Review returns the existing review for an order, or nil.
func (c *Controller) Review(ctx context.Context, orderID int) (*api.Review, error) {
	return c.client.OrderReview(ctx, orderID)
}

// SubmitReview validates the ratings, refuses a second review for the same
// order, and re-fetches on success.
func (c *Controller) SubmitReview(ctx context.Context, orderID int, req api.ReviewRequest) (*api.Review, error) {
	if err := c.require(role.Customer); err != nil {
		return nil, err
	}
	if orderID <= 0 {
		return nil, ErrInvalidOrder
	}
	if err := validate.Check(req); err != nil {
		return nil, err
	}

	existing, err := c.client.OrderReview(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrAlreadyReviewed
	}

	rev, err := c.client.SubmitReview(ctx, orderID, req)
	if err != nil {
		return nil, err
	}
	c.mutated(ctx)
	return rev, nil
}
