package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/cart"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/collection"
)

// platter restaurants
var restaurantsCmd = &cobra.Command{
	Use:   "restaurants",
	Short: "List restaurants",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		rests, err := a.client.Restaurants(ctx)
		if err != nil {
			return err
		}
		if jsonFlag {
			return a.printJSON(rests)
		}
		w := a.table()
		fmt.Fprintln(w, "ID\tNAME\tCUISINE\tRATING\tADDRESS")
		for _, r := range rests {
			rating := "-"
			if r.Rating.Valid {
				rating = r.Rating.Decimal.StringFixed(1)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.RestID, r.RestName, r.Cuisine, rating, r.Address)
		}
		return w.Flush()
	}),
}

// platter menu [restaurant-id]
var menuCmd = &cobra.Command{
	Use:   "menu [restaurant-id]",
	Short: "Show a restaurant's menu; restaurants see their own without an id",
	Args:  cobra.MaximumNArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		var (
			items []api.MenuItem
			err   error
		)
		switch {
		case len(args) == 1:
			id, perr := parseID(args[0])
			if perr != nil {
				return perr
			}
			items, err = a.client.Menu(ctx, id)
		case a.role() == role.Restaurant:
			ctl, cerr := a.controller()
			if cerr != nil {
				return cerr
			}
			items, err = ctl.Menu(ctx)
		default:
			return fmt.Errorf("a restaurant id is required")
		}
		if err != nil {
			return err
		}
		if jsonFlag {
			return a.printJSON(items)
		}
		w := a.table()
		fmt.Fprintln(w, "ID\tITEM\tCATEGORY\tPRICE\tAVAILABLE")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", it.ItemID, it.ItemName, it.Category, it.Price.StringFixed(2), it.Available())
		}
		return w.Flush()
	}),
}

var (
	checkoutRest    int
	checkoutItems   []string
	checkoutPayment string
	checkoutCard    bool
	checkoutAddress string
	checkoutRemark  string
	checkoutDryRun  bool
)

// platter checkout
var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Build a cart from one restaurant's menu and place the order",
	Example: `  platter checkout --restaurant 3 --item 12:2 --item 15
  platter checkout --restaurant 3 --item 12 --payment credit_card --card-on-file`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if a.role() != role.Customer {
			return fmt.Errorf("only customers can place orders")
		}
		c, err := buildCart(ctx, a.client, checkoutRest, checkoutItems)
		if err != nil {
			return err
		}

		payment := checkoutPayment
		if payment == "" {
			payment = cart.SavedPaymentMethod(a.sess, order.DefaultPaymentMethod)
		}
		co := cart.Checkout{
			PaymentMethod:   payment,
			CardOnFile:      checkoutCard,
			ShippingAddress: checkoutAddress,
			Remark:          checkoutRemark,
		}

		if checkoutDryRun {
			addrs, err := a.client.Addresses(ctx)
			if err != nil {
				return err
			}
			co.Addresses = addrs
			req, err := c.Request(co)
			if err != nil {
				return err
			}
			return a.printJSON(req)
		}

		o, err := c.Place(ctx, a.client, co, time.Now())
		if err != nil {
			return err
		}
		if jsonFlag {
			return a.printJSON(o)
		}
		a.printf("✅  Placed %s at %s: %s, %s\n", o.ID, o.RestaurantName, o.TotalPrice.StringFixed(2), cart.PaymentLabel(payment))
		if o.EstimatedDelivery != nil {
			a.printf("   Estimated delivery %s\n", o.EstimatedDelivery)
		}
		return nil
	}),
}

// buildCart resolves "itemID[:qty]" specs against the restaurant's menu.
func buildCart(ctx context.Context, client *api.Client, restID int, specs []string) (*cart.Cart, error) {
	if restID <= 0 {
		return nil, fmt.Errorf("--restaurant is required")
	}
	rests, err := client.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	name := order.UnknownRestaurant
	if r, ok := collection.First(rests, func(r api.Restaurant) bool { return r.RestID == restID }); ok {
		name = r.RestName
	}
	menu, err := client.Menu(ctx, restID)
	if err != nil {
		return nil, err
	}

	c := cart.New(restID, name)
	for _, spec := range specs {
		id, qty, err := parseItemSpec(spec)
		if err != nil {
			return nil, err
		}
		item, ok := collection.First(menu, func(m api.MenuItem) bool { return m.ItemID == id })
		if !ok {
			return nil, fmt.Errorf("item %d is not on the menu of %s", id, name)
		}
		if err := c.Add(item, qty); err != nil {
			return nil, fmt.Errorf("item %d: %w", id, err)
		}
	}
	return c, nil
}

func parseItemSpec(spec string) (id, qty int, err error) {
	idPart, qtyPart, hasQty := strings.Cut(spec, ":")
	if id, err = parseID(idPart); err != nil {
		return 0, 0, err
	}
	qty = 1
	if hasQty {
		if qty, err = strconv.Atoi(qtyPart); err != nil || qty <= 0 {
			return 0, 0, fmt.Errorf("invalid quantity in %q", spec)
		}
	}
	return id, qty, nil
}

func init() {
	f := checkoutCmd.Flags()
	f.IntVar(&checkoutRest, "restaurant", 0, "restaurant id")
	f.StringArrayVar(&checkoutItems, "item", nil, "menu item as id or id:quantity (repeatable)")
	f.StringVar(&checkoutPayment, "payment", "", "cash, credit_card or debit_card (default: last used, else cash)")
	f.BoolVar(&checkoutCard, "card-on-file", false, "card details are saved for card payments")
	f.StringVar(&checkoutAddress, "ship-to", "", "shipping address text (default: saved default address)")
	f.StringVar(&checkoutRemark, "remark", "", "note for the restaurant")
	f.BoolVar(&checkoutDryRun, "dry-run", false, "print the order request without placing it")
}
