package order_test

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/order"
)

var now = time.Date(2024, 5, 10, 14, 0, 0, 0, time.Local)

func decode(t *testing.T, payload string) api.RawOrder {
	t.Helper()
	var raw api.RawOrder
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return raw
}

func TestNormalizeDefaults(t *testing.T) {
	o := order.Normalize(decode(t, `{"orderid": 42, "status": "pending"}`), now)

	assert.Equal(t, "ORDER-42", o.ID)
	assert.Equal(t, order.UnknownRestaurant, o.RestaurantName)
	assert.Equal(t, order.PaymentCash, o.PaymentMethod)
	assert.Equal(t, now, o.OrderDate)
	assert.Nil(t, o.DeliveryStaff)
	assert.Nil(t, o.CompletedAt)
	assert.Nil(t, o.EstimatedDelivery)
	assert.Empty(t, o.Items)
	assert.True(t, o.TotalPrice.IsZero())
}

func TestNormalizeComputesMissingTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		var items []map[string]any
		want := decimal.Zero
		count := rng.Intn(6)
		for i := 0; i < count; i++ {
			price := decimal.New(int64(rng.Intn(10000)), -2)
			qty := rng.Intn(5) + 1
			items = append(items, map[string]any{"itemId": i, "itemName": fmt.Sprint("item", i), "price": price, "quantity": qty})
			want = want.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}
		body, err := json.Marshal(map[string]any{"orderid": n, "items": items})
		require.NoError(t, err)

		o := order.Normalize(decode(t, string(body)), now)
		assert.True(t, want.Equal(o.TotalPrice), "order %d: want %s got %s", n, want, o.TotalPrice)
	}
}

func TestNormalizeZeroTotalIsRecomputed(t *testing.T) {
	o := order.Normalize(decode(t, `{"orderid": 1, "totalAmount": 0,
		"items": [{"itemId": 1, "itemName": "Tea", "price": 3.5, "quantity": 2}]}`), now)
	assert.Equal(t, "7", o.TotalPrice.String())

	o = order.Normalize(decode(t, `{"orderid": 1, "totalAmount": 9.99,
		"items": [{"itemId": 1, "itemName": "Tea", "price": 3.5, "quantity": 2}]}`), now)
	assert.Equal(t, "9.99", o.TotalPrice.String())
	assert.Equal(t, o.TotalPrice, o.TotalAmount())
}

func TestNormalizeStaffPlaceholder(t *testing.T) {
	o := order.Normalize(decode(t, `{"orderid": 3, "deliverManId": 17, "status": "delivering"}`), now)
	require.NotNil(t, o.DeliveryStaff)
	assert.Equal(t, order.Staff{ID: "17", Name: order.DefaultStaffName, Phone: ""}, *o.DeliveryStaff)
	assert.True(t, o.AssignedTo("17"))
	assert.False(t, o.AssignedTo("18"))

	o = order.Normalize(decode(t, `{"orderid": 3, "deliverManId": 17,
		"deliveryStaffName": "Ming", "deliveryStaffPhone": "5555 0000"}`), now)
	assert.Equal(t, "Ming", o.DeliveryStaff.Name)
	assert.Equal(t, "5555 0000", o.DeliveryStaff.Phone)
}

func TestNormalizeDatesAndWindow(t *testing.T) {
	o := order.Normalize(decode(t, `{"orderid": 5, "createdTime": "2024-05-10T09:15:00",
		"endDeliverTime": 1715335200000, "estimatedDeliveryTime": "14:10 - 14:20"}`), now)

	assert.Equal(t, 9, o.OrderDate.Hour())
	require.NotNil(t, o.CompletedAt)
	assert.Equal(t, int64(1715335200000), o.CompletedAt.UnixMilli())
	assert.Equal(t, &order.DeliveryWindow{Start: "14:10", End: "14:20"}, o.EstimatedDelivery)

	o = order.Normalize(decode(t, `{"orderid": 5, "estimatedDeliveryTime": {"start": "10:00", "end": "10:30"}}`), now)
	assert.Equal(t, "10:00 - 10:30", o.EstimatedDelivery.String())

	o = order.Normalize(decode(t, `{"orderid": 5, "estimatedDeliveryTime": "about 20 minutes"}`), now)
	assert.Equal(t, "about 20 minutes", o.EstimatedDelivery.String())
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := decode(t, `{"orderid": 8, "restaurantName": "Dim Sum House", "deliverManId": 2,
		"createdTime": 1715300000000, "estimatedDeliveryTime": {"start": "12:00", "end": "12:10"},
		"items": [{"itemId": 1, "itemName": "Har Gow", "price": 38, "quantity": 1}]}`)

	a := order.Normalize(raw, now)
	b := order.Normalize(raw, now)
	assert.Equal(t, a, b)

	a.Items[0].Name = "mutated"
	c := order.Normalize(raw, now)
	assert.Equal(t, "Har Gow", c.Items[0].Name)
}
