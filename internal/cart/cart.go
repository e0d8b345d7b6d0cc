// Package cart is the local basket a customer fills from one restaurant's
// menu and turns into an order at checkout. It is never persisted.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/session"
)

var (
	ErrEmpty            = errors.New("cart: your cart is empty")
	ErrNoRestaurant     = errors.New("cart: restaurant not found, please try again")
	ErrMixedRestaurants = errors.New("cart: items must come from a single restaurant")
	ErrUnavailable      = errors.New("cart: item is not available")
	ErrNoPaymentMethod  = errors.New("cart: please select a payment method")
	ErrCardRequired     = errors.New("cart: please add your card information before placing an order")
)

// NoAddress is sent when the customer has no saved address.
const NoAddress = "Address not set"

type Item struct {
	ItemID      int             `json:"itemId"`
	RestID      int             `json:"restid"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is safe for concurrent use.
type Cart struct {
	mu             sync.Mutex
	restID         int
	restaurantName string
	items          []Item
}

func New(restID int, restaurantName string) *Cart {
	return &Cart{restID: restID, restaurantName: restaurantName}
}

func (c *Cart) RestID() int { return c.restID }

func (c *Cart) RestaurantName() string { return c.restaurantName }

// Add puts qty of m in the cart, merging with an existing line.
func (c *Cart) Add(m api.MenuItem, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("cart: quantity must be positive, got %d", qty)
	}
	if !m.Available() {
		return fmt.Errorf("%w: %s", ErrUnavailable, m.ItemName)
	}
	if m.RestID != 0 && c.restID != 0 && m.RestID != c.restID {
		return ErrMixedRestaurants
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ItemID == m.ItemID {
			c.items[i].Quantity += qty
			return nil
		}
	}
	c.items = append(c.items, Item{
		ItemID:      m.ItemID,
		RestID:      c.restID,
		Name:        m.ItemName,
		Description: m.Description,
		Price:       m.Price,
		Quantity:    qty,
	})
	return nil
}

// SetQuantity changes a line's quantity; zero or less removes it.
func (c *Cart) SetQuantity(itemID, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ItemID != itemID {
			continue
		}
		if qty <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Quantity = qty
		}
		return
	}
}

func (c *Cart) Remove(itemID int) { c.SetQuantity(itemID, 0) }

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items() {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items() {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Empty() bool { return c.Count() == 0 }

// Checkout holds what the customer chose on the checkout page.
type Checkout struct {
	PaymentMethod   string
	CardOnFile      bool
	Addresses       []api.Address
	ShippingAddress string
	Remark          string
}

// Request builds the order-creation request. Cash is sent as
// cash_on_delivery; the address is the default one, else the first, else
// none.
func (c *Cart) Request(co Checkout) (api.CreateOrderRequest, error) {
	items := c.Items()
	switch {
	case len(items) == 0:
		return api.CreateOrderRequest{}, ErrEmpty
	case c.restID == 0:
		return api.CreateOrderRequest{}, ErrNoRestaurant
	case co.PaymentMethod == "":
		return api.CreateOrderRequest{}, ErrNoPaymentMethod
	case IsCard(co.PaymentMethod) && !co.CardOnFile:
		return api.CreateOrderRequest{}, ErrCardRequired
	}

	req := api.CreateOrderRequest{
		RestID:          c.restID,
		RestaurantName:  c.restaurantName,
		ShippingAddress: co.ShippingAddress,
		PaymentMethod:   BackendPaymentMethod(co.PaymentMethod),
		Remark:          co.Remark,
		Items:           make([]api.OrderItemRequest, 0, len(items)),
	}
	if addr := api.PickDefault(co.Addresses); addr != nil {
		id := addr.AddressID
		req.AddressID = &id
		if req.ShippingAddress == "" {
			req.ShippingAddress = addr.Line()
		}
	}
	if req.ShippingAddress == "" {
		req.ShippingAddress = NoAddress
	}
	for _, it := range items {
		req.Items = append(req.Items, api.OrderItemRequest{
			ItemID:      it.ItemID,
			ItemName:    it.Name,
			Description: it.Description,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}
	return req, nil
}

// Place submits the cart, remembers the payment method for this user and
// empties the cart. Address lookup failures are logged and the order goes
// out without an address id.
func (c *Cart) Place(ctx context.Context, client *api.Client, co Checkout, now time.Time) (order.Order, error) {
	if co.Addresses == nil {
		addrs, err := client.Addresses(ctx)
		if err != nil {
			logger.WithCtx(ctx).Warn("cart: could not fetch addresses, ordering without one", "error", err)
		}
		co.Addresses = addrs
	}

	req, err := c.Request(co)
	if err != nil {
		return order.Order{}, err
	}
	raw, err := client.CreateOrder(ctx, req)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to place order: %w", err)
	}

	sess := client.Session()
	if id := role.StorageID(sess); id != "" {
		if err := sess.Set(ctx, session.PaymentMethodKey(id), co.PaymentMethod); err != nil {
			logger.WithCtx(ctx).Warn("cart: remember payment method", "error", err)
		}
	}
	c.Clear()

	if len(raw.Items) == 0 {
		// The create endpoint may answer without echoing the lines.
		raw.Items = toRawItems(req.Items)
	}
	if raw.RestaurantName == "" {
		raw.RestaurantName = req.RestaurantName
	}
	o := order.Normalize(*raw, now)
	if o.EstimatedDelivery == nil {
		w := EstimatedDelivery(now)
		o.EstimatedDelivery = &w
	}
	return o, nil
}

func toRawItems(items []api.OrderItemRequest) []api.RawItem {
	out := make([]api.RawItem, 0, len(items))
	for _, it := range items {
		out = append(out, api.RawItem{
			ItemID:      it.ItemID,
			ItemName:    it.ItemName,
			Description: it.Description,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}
	return out
}

// EstimatedDelivery is the window shown at checkout: ten to twenty
// minutes from now, as HH:MM.
func EstimatedDelivery(now time.Time) order.DeliveryWindow {
	return order.DeliveryWindow{
		Start: now.Add(10 * time.Minute).Format("15:04"),
		End:   now.Add(20 * time.Minute).Format("15:04"),
	}
}

func IsCard(method string) bool {
	return method == order.PaymentCreditCard || method == order.PaymentDebitCard
}

// BackendPaymentMethod maps the UI's "cash" onto the backend's value.
func BackendPaymentMethod(method string) string {
	if method == order.PaymentCash {
		return order.PaymentCashOnDelivery
	}
	return method
}

func PaymentLabel(method string) string {
	switch method {
	case order.PaymentCreditCard:
		return "Credit Card"
	case order.PaymentDebitCard:
		return "Debit Card"
	case order.PaymentCash, order.PaymentCashOnDelivery:
		return "Cash on Delivery"
	}
	return method
}

// SavedPaymentMethod returns the method remembered for the signed-in user,
// or def.
func SavedPaymentMethod(sess *session.Session, def string) string {
	if id := role.StorageID(sess); id != "" {
		if v, ok := sess.Get(session.PaymentMethodKey(id)); ok && v != "" {
			return v
		}
	}
	return def
}
