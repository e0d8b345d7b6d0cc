package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ── auth ────────────────────────────────────────────────────────────────────

// Login authenticates and, on success, signs the session in.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.call(ctx, "POST", "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "login failed"
		}
		return &resp, &APIError{Method: "POST", Endpoint: "/auth/login", Status: 401, Message: msg}
	}
	if resp.User == nil {
		resp.User = map[string]interface{}{}
	}
	if _, ok := resp.User["userType"]; !ok && req.UserType != "" {
		resp.User["userType"] = req.UserType
	}
	if err := c.sess.SignIn(ctx, resp.Token, resp.User); err != nil {
		return &resp, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.call(ctx, "POST", "/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ── profiles ────────────────────────────────────────────────────────────────

func (c *Client) CustomerProfile(ctx context.Context) (*CustomerProfile, error) {
	var p CustomerProfile
	if err := c.call(ctx, "GET", "/customer/profile", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateCustomerProfile sends only the non-empty fields; the backend keeps
// the rest.
func (c *Client) UpdateCustomerProfile(ctx context.Context, p CustomerProfile) (*CustomerProfile, error) {
	var out CustomerProfile
	if err := c.call(ctx, "PUT", "/customer/profile", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeliveryProfile(ctx context.Context) (*DeliveryStaffProfile, error) {
	var p DeliveryStaffProfile
	if err := c.call(ctx, "GET", "/delivery/profile", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) RestaurantProfile(ctx context.Context) (*RestaurantProfile, error) {
	var p RestaurantProfile
	if err := c.call(ctx, "GET", "/restaurant/profile", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ── catalog ─────────────────────────────────────────────────────────────────

func (c *Client) Restaurants(ctx context.Context) ([]Restaurant, error) {
	var out []Restaurant
	if c.catalog != nil && c.catalog.Get(ctx, "restaurants", &out) {
		return out, nil
	}
	if err := c.call(ctx, "GET", "/restaurants", nil, nil, &out); err != nil {
		return nil, err
	}
	c.remember(ctx, "restaurants", out)
	return out, nil
}

// Menu lists a restaurant's items.
func (c *Client) Menu(ctx context.Context, restID int) ([]MenuItem, error) {
	key := "menu:" + strconv.Itoa(restID)
	var out []MenuItem
	if c.catalog != nil && c.catalog.Get(ctx, key, &out) {
		return out, nil
	}
	if err := c.call(ctx, "GET", "/restaurants/{id}/menu", []int{restID}, nil, &out); err != nil {
		return nil, err
	}
	c.remember(ctx, key, out)
	return out, nil
}

// OwnMenu lists the signed-in restaurant's items. Never cached.
func (c *Client) OwnMenu(ctx context.Context) ([]MenuItem, error) {
	var out []MenuItem
	if err := c.call(ctx, "GET", "/restaurant/menu", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) remember(ctx context.Context, key string, v interface{}) {
	if c.catalog == nil {
		return
	}
	_ = c.catalog.Set(ctx, key, v, catalogTTL)
}

// ── orders ──────────────────────────────────────────────────────────────────

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RawOrder, error) {
	var o RawOrder
	if err := c.call(ctx, "POST", "/orders/create", nil, req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// PendingOrders is the shared delivery pool.
func (c *Client) PendingOrders(ctx context.Context) ([]RawOrder, error) {
	return c.orders(ctx, "/orders/pending")
}

func (c *Client) CustomerOrders(ctx context.Context) ([]RawOrder, error) {
	return c.orders(ctx, "/orders/customer")
}

func (c *Client) RestaurantOrders(ctx context.Context) ([]RawOrder, error) {
	return c.orders(ctx, "/restaurant/orders")
}

// DeliveryStaffOrders lists orders assigned to the signed-in courier.
func (c *Client) DeliveryStaffOrders(ctx context.Context) ([]RawOrder, error) {
	return c.orders(ctx, "/orders/delivery-staff")
}

func (c *Client) orders(ctx context.Context, tmpl string) ([]RawOrder, error) {
	var out []RawOrder
	if err := c.call(ctx, "GET", tmpl, nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []RawOrder{}
	}
	return out, nil
}

// UpdateOrderStatus is the generic status write used by couriers.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int, status string) error {
	return c.call(ctx, "PUT", "/orders/{id}/status", []int{orderID}, statusUpdate{Status: status}, nil)
}

// UpdateRestaurantOrderStatus is the restaurant-scoped status write.
func (c *Client) UpdateRestaurantOrderStatus(ctx context.Context, orderID int, status string) error {
	return c.call(ctx, "PUT", "/restaurant/orders/{id}/status", []int{orderID}, statusUpdate{Status: status}, nil)
}

// AcceptOrder assigns an order from the pool to the signed-in courier.
func (c *Client) AcceptOrder(ctx context.Context, orderID int) error {
	return c.call(ctx, "PUT", "/orders/{id}/accept", []int{orderID}, nil, nil)
}

func (c *Client) CancelOrder(ctx context.Context, orderID int) error {
	return c.call(ctx, "PUT", "/orders/{id}/cancel", []int{orderID}, nil, nil)
}

// ── reviews ─────────────────────────────────────────────────────────────────

// OrderReview returns the review for an order, or nil when there is none.
func (c *Client) OrderReview(ctx context.Context, orderID int) (*Review, error) {
	var r Review
	err := c.call(ctx, "GET", "/orders/{id}/review", []int{orderID}, nil, &r)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) SubmitReview(ctx context.Context, orderID int, req ReviewRequest) (*Review, error) {
	var r Review
	if err := c.call(ctx, "POST", "/orders/{id}/review", []int{orderID}, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ── addresses ───────────────────────────────────────────────────────────────

func (c *Client) Addresses(ctx context.Context) ([]Address, error) {
	var out []Address
	if err := c.call(ctx, "GET", "/customer/addresses", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultAddress asks the backend for the flagged address; nil when the
// customer has none.
func (c *Client) DefaultAddress(ctx context.Context) (*Address, error) {
	var out Address
	err := c.call(ctx, "GET", "/customer/addresses/default", nil, nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddAddress(ctx context.Context, a Address) (*Address, error) {
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	var out Address
	if err := c.call(ctx, "POST", "/customer/addresses", nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAddress(ctx context.Context, a Address) (*Address, error) {
	if a.AddressID == 0 {
		return nil, fmt.Errorf("api: update address: missing id")
	}
	var out Address
	if err := c.call(ctx, "PUT", "/customer/addresses/{id}", []int{a.AddressID}, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAddress(ctx context.Context, id int) error {
	return c.call(ctx, "DELETE", "/customer/addresses/{id}", []int{id}, nil, nil)
}

func (c *Client) SetDefaultAddress(ctx context.Context, id int) error {
	return c.call(ctx, "PUT", "/customer/addresses/{id}/default", []int{id}, nil, nil)
}
