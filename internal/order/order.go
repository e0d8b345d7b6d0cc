// Package order holds the canonical client-side order and the normalizer
// that builds it from whatever shape the backend sent.
package order

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/platter/internal/api"
)

// Status is open-ended: the backend may send values outside the constants.
type Status string

const (
	Pending        Status = "pending"
	Accepted       Status = "accepted"
	Preparing      Status = "preparing"
	Ready          Status = "ready"
	Delivering     Status = "delivering"
	OutForDelivery Status = "out_for_delivery"
	Delivered      Status = "delivered"
	Cancelled      Status = "cancelled"
)

// Payment methods the backend understands. Cash is the UI default and is
// sent to the backend as CashOnDelivery.
const (
	PaymentCash           = "cash"
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentCreditCard     = "credit_card"
	PaymentDebitCard      = "debit_card"
)

const (
	UnknownRestaurant    = "Unknown Restaurant"
	DefaultStaffName     = "Delivery Staff"
	DefaultPaymentMethod = PaymentCash
)

type Item struct {
	ItemID      int             `json:"itemId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Subtotal is price × quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Staff struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// DeliveryWindow is the one shape an ETA takes once normalized. End is
// empty when the backend only sent a single free-form value.
type DeliveryWindow struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

func (w DeliveryWindow) String() string {
	if w.End == "" {
		return w.Start
	}
	return w.Start + " - " + w.End
}

type Order struct {
	OrderID           int             `json:"orderid"`
	ID                string          `json:"id"`
	RestID            int             `json:"restid,omitempty"`
	RestaurantName    string          `json:"restaurantName"`
	CustomerName      string          `json:"customerName,omitempty"`
	Items             []Item          `json:"items"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	PaymentMethod     string          `json:"paymentMethod"`
	Status            Status          `json:"status"`
	Remark            string          `json:"remark,omitempty"`
	EstimatedDelivery *DeliveryWindow `json:"estimatedDelivery,omitempty"`
	DeliveryStaff     *Staff          `json:"deliveryStaff,omitempty"`
	OrderDate         time.Time       `json:"orderDate"`
	StartedAt         *time.Time      `json:"startedAt,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	ShippingAddress   string          `json:"shippingAddress,omitempty"`
}

// TotalAmount is the backend's name for TotalPrice.
func (o Order) TotalAmount() decimal.Decimal { return o.TotalPrice }

// Assigned reports whether a courier holds the order.
func (o Order) Assigned() bool { return o.DeliveryStaff != nil }

// AssignedTo reports whether the courier with staffID holds the order.
func (o Order) AssignedTo(staffID string) bool {
	return o.DeliveryStaff != nil && staffID != "" && o.DeliveryStaff.ID == staffID
}

// Normalize maps a backend order onto Order. It never fails: missing
// optional fields get defaults, and missing dates fall back to now.
func Normalize(raw api.RawOrder, now time.Time) Order {
	items := make([]Item, 0, len(raw.Items))
	sum := decimal.Zero
	for _, ri := range raw.Items {
		it := Item{
			ItemID:      ri.ItemID,
			Name:        firstNonEmpty(ri.ItemName, ri.Name),
			Description: ri.Description,
			Price:       ri.Price,
			Quantity:    ri.Quantity,
		}
		sum = sum.Add(it.Subtotal())
		items = append(items, it)
	}

	total := sum
	if raw.TotalAmount.Valid && !raw.TotalAmount.Decimal.IsZero() {
		total = raw.TotalAmount.Decimal
	}

	o := Order{
		OrderID:           raw.OrderID,
		ID:                "ORDER-" + strconv.Itoa(raw.OrderID),
		RestID:            raw.RestID,
		RestaurantName:    firstNonEmpty(raw.RestaurantName, UnknownRestaurant),
		CustomerName:      raw.CustomerName,
		Items:             items,
		TotalPrice:        total,
		PaymentMethod:     firstNonEmpty(raw.PaymentMethod, DefaultPaymentMethod),
		Status:            Status(raw.Status),
		Remark:            raw.Remark,
		EstimatedDelivery: parseWindow(raw.EstimatedDeliveryTime),
		OrderDate:         now,
		StartedAt:         raw.StartDeliverTime.Ptr(),
		CompletedAt:       raw.EndDeliverTime.Ptr(),
		ShippingAddress:   raw.ShippingAddress,
	}
	if !raw.CreatedTime.IsZero() {
		o.OrderDate = raw.CreatedTime.Time
	}
	if raw.DeliverManID != nil && *raw.DeliverManID != 0 {
		o.DeliveryStaff = &Staff{
			ID:    strconv.Itoa(*raw.DeliverManID),
			Name:  firstNonEmpty(raw.DeliveryStaffName, DefaultStaffName),
			Phone: raw.DeliveryStaffPhone,
		}
	}
	return o
}

// NormalizeAll normalizes every order with the same now.
func NormalizeAll(raws []api.RawOrder, now time.Time) []Order {
	out := make([]Order, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r, now))
	}
	return out
}

// parseWindow accepts either "HH:MM - HH:MM" (or any free text) or
// {"start": ..., "end": ...}.
func parseWindow(raw json.RawMessage) *DeliveryWindow {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var w DeliveryWindow
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &w); err != nil || (w.Start == "" && w.End == "") {
			return nil
		}
		return &w
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if start, end, ok := strings.Cut(s, " - "); ok {
		return &DeliveryWindow{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	}
	return &DeliveryWindow{Start: s}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
