package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/cart"
	"github.com/shashiranjanraj/platter/pkg/session"
	"github.com/shashiranjanraj/platter/pkg/testkit"
)

func menuItem(id int, price string) api.MenuItem {
	return api.MenuItem{ItemID: id, ItemName: "item", Price: decimal.RequireFromString(price), Status: "active"}
}

func TestTotalsAndQuantities(t *testing.T) {
	c := cart.New(7, "Noodle Bar")
	require.NoError(t, c.Add(menuItem(1, "25.00"), 1))
	require.NoError(t, c.Add(menuItem(1, "25.00"), 1))
	require.NoError(t, c.Add(menuItem(2, "10.50"), 1))

	assert.Equal(t, "60.50", c.Total().StringFixed(2))
	assert.Equal(t, 3, c.Count())

	c.SetQuantity(2, 3)
	assert.Equal(t, "81.50", c.Total().StringFixed(2))
	c.Remove(1)
	assert.Len(t, c.Items(), 1)
	c.SetQuantity(2, 0)
	assert.True(t, c.Empty())
}

func TestAddRejects(t *testing.T) {
	c := cart.New(7, "Noodle Bar")
	assert.Error(t, c.Add(menuItem(1, "1"), 0))

	sold := menuItem(2, "1")
	sold.Status = "out_of_stock"
	assert.ErrorIs(t, c.Add(sold, 1), cart.ErrUnavailable)

	other := menuItem(3, "1")
	other.RestID = 8
	assert.ErrorIs(t, c.Add(other, 1), cart.ErrMixedRestaurants)
}

func TestRequestValidation(t *testing.T) {
	c := cart.New(7, "Noodle Bar")
	_, err := c.Request(cart.Checkout{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, cart.ErrEmpty)

	require.NoError(t, c.Add(menuItem(1, "5"), 1))
	_, err = c.Request(cart.Checkout{})
	assert.ErrorIs(t, err, cart.ErrNoPaymentMethod)

	_, err = c.Request(cart.Checkout{PaymentMethod: "credit_card"})
	assert.ErrorIs(t, err, cart.ErrCardRequired)

	_, err = c.Request(cart.Checkout{PaymentMethod: "debit_card", CardOnFile: true})
	assert.NoError(t, err)

	noRest := cart.New(0, "")
	require.NoError(t, noRest.Add(menuItem(1, "5"), 1))
	_, err = noRest.Request(cart.Checkout{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, cart.ErrNoRestaurant)
}

func TestRequestPicksAddressAndMapsCash(t *testing.T) {
	c := cart.New(7, "Noodle Bar")
	require.NoError(t, c.Add(menuItem(1, "5"), 2))

	req, err := c.Request(cart.Checkout{
		PaymentMethod: "cash",
		Addresses: []api.Address{
			{AddressID: 1, AddressLine1: "1 A St", City: "X"},
			{AddressID: 2, AddressLine1: "2 B St", City: "Y", IsDefault: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cash_on_delivery", req.PaymentMethod)
	require.NotNil(t, req.AddressID)
	assert.Equal(t, 2, *req.AddressID)
	assert.Equal(t, "2 B St, Y", req.ShippingAddress)

	req, err = c.Request(cart.Checkout{PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Nil(t, req.AddressID)
	assert.Equal(t, cart.NoAddress, req.ShippingAddress)
}

func TestEstimatedDelivery(t *testing.T) {
	w := cart.EstimatedDelivery(time.Date(2024, 1, 1, 23, 45, 0, 0, time.UTC))
	assert.Equal(t, "23:55", w.Start)
	assert.Equal(t, "00:05", w.End)
}

func TestPaymentLabels(t *testing.T) {
	assert.Equal(t, "Credit Card", cart.PaymentLabel("credit_card"))
	assert.Equal(t, "Debit Card", cart.PaymentLabel("debit_card"))
	assert.Equal(t, "Cash on Delivery", cart.PaymentLabel("cash"))
	assert.Equal(t, "bitcoin", cart.PaymentLabel("bitcoin"))
}

func TestPlaceScenario(t *testing.T) {
	ctx := context.Background()
	sess, err := session.New(ctx, session.NewMemoryStore(), nil)
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(ctx, "tok", map[string]any{"custid": 12}))

	mt := testkit.NewMockTransport("/api")
	defer mt.Install()()
	mt.On("GET", "/customer/addresses").Reply(200, []map[string]any{
		{"addressid": 5, "address_line1": "8 Nathan Rd", "city": "Kowloon", "is_default": true},
	})
	mt.On("POST", "/orders/create").Reply(200, map[string]any{"orderid": 99, "status": "pending"})

	client := api.New(sess, api.WithBaseURL("http://backend.test/api"))
	c := cart.New(7, "Noodle Bar")
	require.NoError(t, c.Add(menuItem(1, "25.00"), 2))
	require.NoError(t, c.Add(menuItem(2, "10.50"), 1))

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local)
	o, err := c.Place(ctx, client, cart.Checkout{PaymentMethod: "cash"}, now)
	require.NoError(t, err)

	assert.Equal(t, "ORDER-99", o.ID)
	assert.Equal(t, "60.50", o.TotalPrice.StringFixed(2))
	assert.Equal(t, "12:10 - 12:20", o.EstimatedDelivery.String())
	assert.True(t, c.Empty())

	var sent api.CreateOrderRequest
	testkit.DecodeLast(t, mt, "POST", "/orders/create", &sent)
	assert.Equal(t, 7, sent.RestID)
	assert.Equal(t, 5, *sent.AddressID)
	assert.Equal(t, "cash_on_delivery", sent.PaymentMethod)

	assert.Equal(t, "cash", cart.SavedPaymentMethod(sess, "credit_card"))
}
