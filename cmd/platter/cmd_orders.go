package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/chat"
	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/export"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/internal/view"
	"github.com/shashiranjanraj/platter/pkg/rbac"
	"github.com/shashiranjanraj/platter/pkg/storage"
)

var ordersList string

// platter orders
var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders for the signed-in role",
	Long: `Customers see active orders (--list history for delivered ones).
Restaurants see every order. Couriers see the available pool and, with
--list accepted, the orders they hold.`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		ctl, err := a.controller()
		if err != nil {
			return err
		}
		snap, err := ctl.Refresh(ctx)
		if err != nil {
			return err
		}
		list, err := pickList(snap, ordersList)
		if err != nil {
			return err
		}
		if jsonFlag {
			return a.printJSON(list)
		}
		return printOrders(a.out, snap.Role, list)
	}),
}

func pickList(snap controller.Snapshot, name string) ([]order.Order, error) {
	switch name {
	case "", "orders":
		return snap.Orders, nil
	case "accepted":
		return snap.Accepted, nil
	case "history":
		return snap.History, nil
	}
	return nil, fmt.Errorf("unknown list %q: use orders, accepted or history", name)
}

func printOrders(out io.Writer, r role.Role, list []order.Order) error {
	if len(list) == 0 {
		fmt.Fprintln(out, "No orders.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ORDER\tRESTAURANT\tSTATUS\tTOTAL\tITEMS\tCOURIER\tACTIONS")
	for _, o := range list {
		courier := "-"
		if o.DeliveryStaff != nil {
			courier = o.DeliveryStaff.Name
		}
		actions := make([]string, 0, 3)
		for _, act := range view.Actions(r, o) {
			actions = append(actions, string(act))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.RestaurantName, o.Status.Label(), o.TotalPrice.StringFixed(2),
			len(o.Items), courier, strings.Join(actions, ","))
	}
	return w.Flush()
}

var watchInterval time.Duration

// platter watch
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the order list and print every change until interrupted",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		interval := watchInterval
		if interval <= 0 {
			interval = config.PollInterval()
		}
		ctl, err := a.controller(controller.WithInterval(interval))
		if err != nil {
			return err
		}

		off := ctl.Subscribe(func(snap controller.Snapshot) {
			if jsonFlag {
				_ = a.printJSON(snap)
				return
			}
			a.printf("\n── %s · %s ──\n", snap.FetchedAt.Format("15:04:05"), view.Compose(view.Root+"/orders", snap.Role).Title)
			_ = printOrders(a.out, snap.Role, snap.Orders)
			if len(snap.Accepted) > 0 {
				a.printf("\nYour deliveries\n")
				_ = printOrders(a.out, snap.Role, snap.Accepted)
			}
		})
		defer off()

		signedOut := make(chan string, 1)
		defer a.sess.OnClear(func(reason string) {
			select {
			case signedOut <- reason:
			default:
			}
		})()

		a.printf("🕐 Watching %s orders every %s. Press Ctrl+C to stop.\n", ctl.Role(), interval)
		// The first run fetches immediately.
		ctl.Start(ctx)
		defer ctl.Stop()

		select {
		case <-ctx.Done():
			a.printf("\nStopped.\n")
		case reason := <-signedOut:
			a.printf("\nSession ended (%s). Run `platter login` to continue.\n", reason)
		}
		return nil
	}),
}

// orderAction runs fn against the order with the id in args[0], taken from
// a fresh list.
func orderAction(verb string, fn func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, args []string) error) func(*cobra.Command, []string) error {
	return run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctl, err := a.controller()
		if err != nil {
			return err
		}
		snap, err := ctl.Refresh(ctx)
		if err != nil {
			return err
		}
		o, ok := snap.Find(id)
		if !ok {
			return fmt.Errorf("order %d not found in your %s list", id, snap.Role)
		}
		if err := fn(ctx, a, ctl, o, args[1:]); err != nil {
			return err
		}
		if cur, ok := ctl.Snapshot().Find(id); ok {
			a.printf("✅  %s %s: now %s\n", verb, o.ID, cur.Status.Label())
		} else {
			a.printf("✅  %s %s\n", verb, o.ID)
		}
		return nil
	})
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <order-id>",
	Short: "Restaurant: start preparing a pending order",
	Args:  cobra.ExactArgs(1),
	RunE: orderAction("Confirmed", func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, _ []string) error {
		return ctl.Confirm(ctx, o)
	}),
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Restaurant: cancel a pending or preparing order",
	Args:  cobra.ExactArgs(1),
	RunE: orderAction("Cancelled", func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, _ []string) error {
		return ctl.Cancel(ctx, o)
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status <order-id> <status>",
	Short: "Restaurant: set an order's status explicitly",
	Args:  cobra.ExactArgs(2),
	RunE: orderAction("Updated", func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, args []string) error {
		to := order.Status(args[0])
		if targets := rbac.Targets(string(ctl.Role()), string(o.Status)); len(targets) > 0 && !rbac.CanWrite(string(ctl.Role()), string(o.Status), string(to)) {
			return fmt.Errorf("%w: %s can move to %s", controller.ErrTransitionNotAllowed, o.Status.Label(), strings.Join(targets, ", "))
		}
		return ctl.UpdateStatus(ctx, o, to)
	}),
}

var acceptCmd = &cobra.Command{
	Use:   "accept <order-id>",
	Short: "Courier: take an order from the pool",
	Args:  cobra.ExactArgs(1),
	RunE: orderAction("Accepted", func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, _ []string) error {
		return ctl.Accept(ctx, o)
	}),
}

var deliverCmd = &cobra.Command{
	Use:   "deliver <order-id>",
	Short: "Courier: mark an order delivered",
	Args:  cobra.ExactArgs(1),
	RunE: orderAction("Delivered", func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, _ []string) error {
		return ctl.MarkDelivered(ctx, o)
	}),
}

var releaseCmd = &cobra.Command{
	Use:   "release <order-id>",
	Short: "Courier: hand an order back to the pool",
	Args:  cobra.ExactArgs(1),
	RunE: orderAction("Released", func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, _ []string) error {
		return ctl.Release(ctx, o)
	}),
}

var reviewReq api.ReviewRequest

// platter review <order-id>
var reviewCmd = &cobra.Command{
	Use:   "review <order-id>",
	Short: "Customer: show an order's review, or leave one with --restaurant and --delivery",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctl, err := a.controller()
		if err != nil {
			return err
		}

		submit := cmd.Flags().Changed("restaurant") || cmd.Flags().Changed("delivery")
		var rev *api.Review
		if submit {
			rev, err = ctl.SubmitReview(ctx, id, reviewReq)
		} else {
			rev, err = ctl.Review(ctx, id)
		}
		switch {
		case errors.Is(err, controller.ErrAlreadyReviewed):
			a.printf("You have already reviewed this order.\n")
		case err != nil:
			return err
		case rev == nil:
			a.printf("No review yet for ORDER-%d.\n", id)
			return nil
		case submit:
			a.printf("✅  Thanks for your review.\n")
		}
		if rev == nil {
			return nil
		}
		if jsonFlag {
			return a.printJSON(rev)
		}
		a.printf("Restaurant %d/5 · Delivery %d/5\n", rev.RestRating, rev.DeliveryRating)
		if rev.Comment != "" {
			a.printf("%q\n", rev.Comment)
		}
		return nil
	}),
}

var chatCourier bool

// platter chat <order-id> <message>
var chatCmd = &cobra.Command{
	Use:   "chat <order-id> <message>",
	Short: "Customer: ask customer service for a refund, or message the courier with --courier",
	Args:  cobra.MinimumNArgs(2),
	RunE: orderAction("Sent message about", func(ctx context.Context, a *app, ctl *controller.Controller, o order.Order, args []string) error {
		var (
			dl  *chat.Dialog
			err error
		)
		if chatCourier {
			dl, err = ctl.ContactDeliveryStaff(o)
		} else {
			dl, err = ctl.RequestRefund(o)
		}
		if err != nil {
			return err
		}
		defer dl.Close()

		replied := make(chan chat.Message, 1)
		dl.OnReply(func(m chat.Message) { replied <- m })
		if _, err := dl.Send(strings.Join(args, " ")); err != nil {
			return err
		}

		select {
		case m := <-replied:
			a.printf("[%s] %s: %s\n", dl.Title(), m.Sender, m.Text)
		case <-time.After(chat.ReplyDelay + 2*time.Second):
			a.printf("[%s] no reply yet\n", dl.Title())
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}),
}

// platter earnings
var earningsCmd = &cobra.Command{
	Use:   "earnings",
	Short: "Courier: commission for today, the last 7 days and the last 30 days",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if a.role() != role.Delivery {
			return controller.ErrWrongRole
		}
		ctl, err := a.controller()
		if err != nil {
			return err
		}
		if _, err := ctl.Refresh(ctx); err != nil {
			return err
		}
		sum := ctl.Earnings()
		if jsonFlag {
			return a.printJSON(sum)
		}

		staff, perr := ctl.LoadProfile(ctx)
		w := a.table()
		if perr != nil {
			fmt.Fprintf(w, "Courier\t%v\n", perr)
		} else {
			fmt.Fprintf(w, "Courier\t%s (%s)\n", staff.Name, staff.Phone)
		}
		fmt.Fprintf(w, "Today\t%s\n", sum.Today.StringFixed(2))
		fmt.Fprintf(w, "Last 7 days\t%s\n", sum.ThisWeek.StringFixed(2))
		fmt.Fprintf(w, "Last 30 days\t%s\n", sum.ThisMonth.StringFixed(2))
		fmt.Fprintf(w, "Delivered\t%d\n", sum.Delivered)
		return w.Flush()
	}),
}

var (
	exportFormat string
	exportDisk   string
)

// platter export
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the current order lists to the configured disk",
	Example: `  platter export --format csv
  STORAGE_DISK=s3 S3_BUCKET=platter-exports platter export --format yaml`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		f, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		driver := exportDisk
		if driver == "" {
			driver = config.Get("STORAGE_DISK", "local")
		}
		disk, err := storage.Open(ctx, driver)
		if err != nil {
			return err
		}

		ctl, err := a.controller()
		if err != nil {
			return err
		}
		snap, err := ctl.Refresh(ctx)
		if err != nil {
			return err
		}
		path, err := export.Write(ctx, disk, snap, f, time.Now())
		if err != nil {
			return err
		}
		a.printf("✅  Exported %d orders to %s\n", len(export.Rows(snap)), disk.URL(path))
		return nil
	}),
}

func init() {
	ordersCmd.Flags().StringVar(&ordersList, "list", "orders", "which list: orders, accepted (couriers) or history (customers)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default POLL_INTERVAL)")

	f := reviewCmd.Flags()
	f.IntVar(&reviewReq.RestRating, "restaurant", 0, "restaurant rating, 1-5")
	f.IntVar(&reviewReq.DeliveryRating, "delivery", 0, "delivery rating, 1-5")
	f.StringVar(&reviewReq.Comment, "comment", "", "optional comment")

	chatCmd.Flags().BoolVar(&chatCourier, "courier", false, "message the courier instead of customer service")

	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.JSON), "json, yaml or csv")
	exportCmd.Flags().StringVar(&exportDisk, "disk", "", "local or s3 (default STORAGE_DISK)")
}
