package view_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/internal/view"
	"github.com/shashiranjanraj/platter/pkg/rbac"
)

func TestCompose(t *testing.T) {
	cases := []struct {
		path     string
		role     role.Role
		kind     view.Kind
		title    string
		redirect string
	}{
		{"/dashboard", role.Customer, view.Restaurants, "Restaurants", ""},
		{"/dashboard/", role.Restaurant, view.Restaurants, "Restaurants", ""},
		{"/dashboard", role.Delivery, view.Orders, "Available Orders", "/dashboard/orders"},
		{"/dashboard/orders/", role.Restaurant, view.Orders, "Restaurant Orders", ""},
		{"/dashboard/orders", role.Customer, view.Orders, "My Orders", ""},
		{"/dashboard/order-history", role.Customer, view.OrderHistory, "Order History", ""},
		{"/dashboard/order-information", role.Delivery, view.OrderInformation, "Order Information", ""},
		{"/dashboard/delivery", role.Delivery, view.DeliveryStatus, "Delivery Status", ""},
		{"/dashboard/profile", role.Restaurant, view.Profile, "My Profile", ""},
		{"/dashboard/nowhere", role.Customer, view.Restaurants, "Restaurants", ""},
		{"/dashboard/nowhere", role.Delivery, view.Orders, "Available Orders", ""},
		{"/dashboard/orders/extra", role.Customer, view.Restaurants, "Restaurants", ""},
	}
	for _, c := range cases {
		t.Run(c.path+"/"+string(c.role), func(t *testing.T) {
			p := view.Compose(c.path, c.role)
			assert.Equal(t, c.kind, p.Kind)
			assert.Equal(t, c.title, p.Title)
			assert.Equal(t, c.redirect, p.Redirect)
			assert.True(t, p.Authenticated)
		})
	}
}

func TestComposePublicAndSignedOut(t *testing.T) {
	assert.Equal(t, view.Home, view.Compose("/", role.None).Kind)
	assert.Equal(t, view.Register, view.Compose("/register/", role.None).Kind)
	assert.False(t, view.Compose("/login", role.Customer).Authenticated)

	p := view.Compose("/dashboard/orders", role.None)
	assert.Equal(t, view.Login, p.Kind)
	assert.Equal(t, "/login", p.Redirect)
}

func labels(items []view.Nav) []string {
	var out []string
	for _, it := range items {
		if it.Type == view.NavItem {
			out = append(out, it.Label)
		}
	}
	return out
}

func TestNavigation(t *testing.T) {
	assert.Equal(t,
		[]string{"Restaurants", "My Orders", "Order Information", "Order History", "My Profile", "Logout"},
		labels(view.Navigation(role.Customer)))
	assert.Equal(t,
		[]string{"Restaurants", "Order Information", "Order History", "My Profile", "Logout"},
		labels(view.Navigation(role.Restaurant)))

	courier := view.Navigation(role.Delivery)
	assert.Equal(t,
		[]string{"Order Management", "Order Information", "Order History", "My Profile", "Logout"},
		labels(courier))
	assert.Equal(t, view.NavHeader, courier[0].Type)
	assert.Equal(t, "Orders", courier[0].Label)
	assert.Len(t, courier[1].Children, 2)
	assert.Equal(t, "/dashboard/delivery", courier[1].Children[1].Path)

	assert.Equal(t,
		[]string{"My Orders", "Order Information", "Order History", "My Profile", "Logout"},
		labels(view.Navigation(role.None)))
}

func TestActions(t *testing.T) {
	assert.Equal(t, []rbac.Action{rbac.Confirm, rbac.Cancel},
		view.Actions(role.Restaurant, order.Order{Status: order.Pending}))
	assert.Empty(t, view.Actions(role.Restaurant, order.Order{Status: order.Delivering}))
	assert.Equal(t, []rbac.Action{rbac.Accept},
		view.Actions(role.Delivery, order.Order{Status: order.Ready}))

	assigned := order.Order{Status: order.Delivering, DeliveryStaff: &order.Staff{ID: "4"}}
	assert.Equal(t, []rbac.Action{view.RequestRefund, view.ContactStaff}, view.Actions(role.Customer, assigned))
	assert.Equal(t, []rbac.Action{view.RequestRefund, view.WriteReview},
		view.Actions(role.Customer, order.Order{Status: order.Delivered}))
	assert.Empty(t, view.Actions(role.Customer, order.Order{Status: order.Cancelled}))
}
