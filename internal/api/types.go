package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/platter/pkg/logger"
)

func init() {
	// The backend binds prices to Double; send numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Timestamp accepts the backend's epoch-millisecond numbers as well as
// ISO-8601 strings with or without a zone. The zero value means absent.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if b[0] != '"' {
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("api: timestamp %s: %w", b, err)
		}
		t.Time = time.UnixMilli(ms)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// Left zero so the order still decodes; the normalizer falls back to now.
	logger.Debug("api: unrecognised timestamp", "value", s)
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Ptr returns nil for the zero value.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// RawOrder is an order as the backend sends it. Every optional field may be
// missing; order.Normalize turns it into the canonical shape.
type RawOrder struct {
	OrderID               int                 `json:"orderid"`
	CustID                int                 `json:"custid,omitempty"`
	RestID                int                 `json:"restid,omitempty"`
	RestaurantName        string              `json:"restaurantName,omitempty"`
	CustomerName          string              `json:"customerName,omitempty"`
	ShippingAddress       string              `json:"shippingAddress,omitempty"`
	DeliverManID          *int                `json:"deliverManId,omitempty"`
	DeliveryStaffName     string              `json:"deliveryStaffName,omitempty"`
	DeliveryStaffPhone    string              `json:"deliveryStaffPhone,omitempty"`
	StartDeliverTime      Timestamp           `json:"startDeliverTime"`
	EndDeliverTime        Timestamp           `json:"endDeliverTime"`
	Status                string              `json:"status"`
	Remark                string              `json:"remark,omitempty"`
	TotalAmount           decimal.NullDecimal `json:"totalAmount"`
	DiscountAmount        decimal.NullDecimal `json:"discountAmount"`
	CreatedTime           Timestamp           `json:"createdTime"`
	Items                 []RawItem           `json:"items"`
	PaymentMethod         string              `json:"paymentMethod,omitempty"`
	EstimatedDeliveryTime json.RawMessage     `json:"estimatedDeliveryTime,omitempty"`
}

type RawItem struct {
	ItemID      int                 `json:"itemId"`
	ItemName    string              `json:"itemName"`
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Quantity    int                 `json:"quantity"`
	Price       decimal.Decimal     `json:"price"`
	Subtotal    decimal.NullDecimal `json:"subtotal"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"userType" validate:"required,oneof=customer restaurant delivery"`
}

type LoginResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	User      map[string]interface{} `json:"user"`
	Token     string                 `json:"token"`
	ExpiresAt int64                  `json:"expiresAt"`
}

// RegisterRequest carries the common account fields plus the role-specific
// ones; unused fields are omitted on the wire.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email"    validate:"required,email"`
	Phone    string `json:"phone"    validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	UserType string `json:"userType" validate:"required,oneof=customer restaurant delivery"`
	Location string `json:"location,omitempty"`
	Name     string `json:"name"     validate:"required"`

	AddressLine1 string `json:"addressLine1,omitempty" validate:"required_if=UserType customer"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`

	RestName    string `json:"restname,omitempty"    validate:"required_if=UserType restaurant"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"     validate:"required_if=UserType restaurant"`
	Cuisine     string `json:"cuisine,omitempty"`

	VehicleType   string `json:"vehicleType,omitempty"   validate:"required_if=UserType delivery"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
}

type CustomerProfile struct {
	CustID   int    `json:"custid,omitempty"`
	CustName string `json:"custname,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Icon     string `json:"icon,omitempty"`
}

type DeliveryStaffProfile struct {
	StaffID int    `json:"staffId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

type RestaurantProfile struct {
	RestID      int    `json:"restid"`
	RestName    string `json:"restname"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

type Restaurant struct {
	RestID      int                 `json:"restid"`
	RestName    string              `json:"restname"`
	Description string              `json:"description,omitempty"`
	Address     string              `json:"address,omitempty"`
	Cuisine     string              `json:"cuisine,omitempty"`
	Icon        string              `json:"icon,omitempty"`
	Rating      decimal.NullDecimal `json:"rating"`
}

// MenuItem accepts both the entity names (item_ID, item_name) sent by the
// public menu listing and the camelCase names of the restaurant's own menu.
type MenuItem struct {
	ItemID      int             `json:"itemId"`
	RestID      int             `json:"restid,omitempty"`
	ItemName    string          `json:"itemName"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	Status      string          `json:"status,omitempty"`
}

func (m *MenuItem) UnmarshalJSON(b []byte) error {
	type plain MenuItem
	var aux struct {
		plain
		EntityID   *int   `json:"item_ID"`
		EntityName string `json:"item_name"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*m = MenuItem(aux.plain)
	if aux.EntityID != nil && m.ItemID == 0 {
		m.ItemID = *aux.EntityID
	}
	if aux.EntityName != "" && m.ItemName == "" {
		m.ItemName = aux.EntityName
	}
	return nil
}

// Available reports whether the item can be added to a cart.
func (m MenuItem) Available() bool {
	switch strings.ToLower(m.Status) {
	case "", "active", "available":
		return true
	}
	return false
}

type OrderItemRequest struct {
	ItemID      int             `json:"itemId"`
	ItemName    string          `json:"itemName"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	RestID          int                `json:"restid"`
	RestaurantName  string             `json:"restaurantName"`
	AddressID       *int               `json:"addressid,omitempty"`
	ShippingAddress string             `json:"shippingAddress,omitempty"`
	PaymentMethod   string             `json:"paymentMethod"`
	Remark          string             `json:"remark,omitempty"`
	Items           []OrderItemRequest `json:"items"`
}

type Address struct {
	AddressID    int    `json:"addressid,omitempty"`
	CustID       int    `json:"custid,omitempty"`
	AddressLine1 string `json:"address_line1"           validate:"required"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"                    validate:"required"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
	IsDefault    bool   `json:"is_default"`
}

// DefaultCountry is filled in when an address has none.
const DefaultCountry = "Hong Kong"

// Line renders the address on one line for shippingAddress.
func (a Address) Line() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.AddressLine1, a.AddressLine2, a.City, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// PickDefault tolerates zero or several flagged addresses: the first
// flagged one wins, then the first address, then nil.
func PickDefault(addrs []Address) *Address {
	for i := range addrs {
		if addrs[i].IsDefault {
			return &addrs[i]
		}
	}
	if len(addrs) > 0 {
		return &addrs[0]
	}
	return nil
}

type Review struct {
	ReviewID       int    `json:"reviewId"`
	OrderID        int    `json:"orderId"`
	RestRating     int    `json:"restRating"`
	DeliveryRating int    `json:"deliveryRating"`
	Comment        string `json:"comment,omitempty"`
}

type ReviewRequest struct {
	RestRating     int    `json:"restRating"     validate:"required,min=1,max=5"`
	DeliveryRating int    `json:"deliveryRating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment,omitempty" validate:"max=500"`
}

type statusUpdate struct {
	Status string `json:"status"`
}
