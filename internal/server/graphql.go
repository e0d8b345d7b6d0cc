package server

import (
	"fmt"
	"time"

	gql "github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/earnings"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/internal/view"
	"github.com/shashiranjanraj/platter/pkg/graphql"
)

var staffType = gql.NewObject(gql.ObjectConfig{
	Name: "DeliveryStaff",
	Fields: gql.Fields{
		"id":    &gql.Field{Type: gql.String},
		"name":  &gql.Field{Type: gql.String},
		"phone": &gql.Field{Type: gql.String},
	},
})

var itemType = gql.NewObject(gql.ObjectConfig{
	Name: "OrderItem",
	Fields: gql.Fields{
		"itemId":   &gql.Field{Type: gql.Int, Resolve: field(func(i order.Item) interface{} { return i.ItemID })},
		"name":     &gql.Field{Type: gql.String, Resolve: field(func(i order.Item) interface{} { return i.Name })},
		"quantity": &gql.Field{Type: gql.Int, Resolve: field(func(i order.Item) interface{} { return i.Quantity })},
		"price":    &gql.Field{Type: gql.String, Resolve: field(func(i order.Item) interface{} { return i.Price.StringFixed(2) })},
	},
})

var orderType = gql.NewObject(gql.ObjectConfig{
	Name: "Order",
	Fields: gql.Fields{
		"id":             &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} { return o.ID })},
		"orderId":        &gql.Field{Type: gql.Int, Resolve: field(func(o order.Order) interface{} { return o.OrderID })},
		"restaurant":     &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} { return o.RestaurantName })},
		"status":         &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} { return string(o.Status) })},
		"statusLabel":    &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} { return o.Status.Label() })},
		"total":          &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} { return o.TotalPrice.StringFixed(2) })},
		"paymentMethod":  &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} { return o.PaymentMethod })},
		"orderDate":      &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} { return o.OrderDate.Format(time.RFC3339) })},
		"items":          &gql.Field{Type: gql.NewList(itemType), Resolve: field(func(o order.Order) interface{} { return o.Items })},
		"deliveryStaff":  &gql.Field{Type: staffType, Resolve: field(func(o order.Order) interface{} { return o.DeliveryStaff })},
		"estimatedDelivery": &gql.Field{Type: gql.String, Resolve: field(func(o order.Order) interface{} {
			if o.EstimatedDelivery == nil {
				return nil
			}
			return o.EstimatedDelivery.String()
		})},
	},
})

var earningsType = gql.NewObject(gql.ObjectConfig{
	Name: "Earnings",
	Fields: gql.Fields{
		"today":     &gql.Field{Type: gql.String, Resolve: field(func(e earnings.Summary) interface{} { return e.Today.StringFixed(2) })},
		"thisWeek":  &gql.Field{Type: gql.String, Resolve: field(func(e earnings.Summary) interface{} { return e.ThisWeek.StringFixed(2) })},
		"thisMonth": &gql.Field{Type: gql.String, Resolve: field(func(e earnings.Summary) interface{} { return e.ThisMonth.StringFixed(2) })},
		"delivered": &gql.Field{Type: gql.Int, Resolve: field(func(e earnings.Summary) interface{} { return e.Delivered })},
	},
})

var pageType = gql.NewObject(gql.ObjectConfig{
	Name: "Page",
	Fields: gql.Fields{
		"kind":          &gql.Field{Type: gql.String, Resolve: field(func(p view.Page) interface{} { return string(p.Kind) })},
		"title":         &gql.Field{Type: gql.String, Resolve: field(func(p view.Page) interface{} { return p.Title })},
		"path":          &gql.Field{Type: gql.String, Resolve: field(func(p view.Page) interface{} { return p.Path })},
		"redirect":      &gql.Field{Type: gql.String, Resolve: field(func(p view.Page) interface{} { return p.Redirect })},
		"authenticated": &gql.Field{Type: gql.Boolean, Resolve: field(func(p view.Page) interface{} { return p.Authenticated })},
	},
})

// field resolves a scalar from a typed source. Sources arrive as values or
// pointers depending on the parent.
func field[T any](get func(T) interface{}) gql.FieldResolveFn {
	return func(p gql.ResolveParams) (interface{}, error) {
		switch src := p.Source.(type) {
		case T:
			return get(src), nil
		case *T:
			if src == nil {
				return nil, nil
			}
			return get(*src), nil
		}
		return nil, fmt.Errorf("graphql: unexpected source %T", p.Source)
	}
}

// buildSchema exposes the signed-in role's lists read-only.
func (s *Server) buildSchema() (gql.Schema, error) {
	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"role": &gql.Field{
				Type: gql.String,
				Resolve: func(gql.ResolveParams) (interface{}, error) {
					return string(role.Resolve(s.sess)), nil
				},
			},
			"orders": &gql.Field{
				Type:        gql.NewList(orderType),
				Description: "One of the current lists: orders, accepted or history.",
				Args: gql.FieldConfigArgument{
					"list": &gql.ArgumentConfig{Type: gql.String, DefaultValue: "orders"},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					snap, err := s.graphSnapshot(p)
					if err != nil {
						return nil, err
					}
					switch list, _ := p.Args["list"].(string); list {
					case "", "orders":
						return snap.Orders, nil
					case "accepted":
						return snap.Accepted, nil
					case "history":
						return snap.History, nil
					default:
						return nil, fmt.Errorf("unknown list %q", list)
					}
				},
			},
			"earnings": &gql.Field{
				Type: earningsType,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					snap, err := s.graphSnapshot(p)
					if err != nil {
						return nil, err
					}
					if snap.Role != role.Delivery {
						return nil, controller.ErrWrongRole
					}
					return earnings.Compute(snap.Accepted, s.now()), nil
				},
			},
			"page": &gql.Field{
				Type: pageType,
				Args: gql.FieldConfigArgument{
					"path": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					path, _ := p.Args["path"].(string)
					return view.Compose(path, role.Resolve(s.sess)), nil
				},
			},
		},
	})
	return graphql.NewSchema(query)
}

func (s *Server) graphSnapshot(p gql.ResolveParams) (controller.Snapshot, error) {
	ctrl, err := s.controller()
	if err != nil {
		return controller.Snapshot{}, err
	}
	return s.snapshot(p.Context, ctrl)
}
