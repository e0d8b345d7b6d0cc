package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/platter/internal/api"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/session"
	"github.com/shashiranjanraj/platter/pkg/validate"
)

var errNotSignedIn = errors.New("not signed in, run `platter login` first")

var (
	loginEmail    string
	loginPassword string
	loginAs       string
)

// platter login
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Example: `  platter login --email sam@example.com --as delivery
  PLATTER_PASSWORD=secret platter login --email amy@example.com`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if loginPassword == "" {
			loginPassword = os.Getenv("PLATTER_PASSWORD")
		}
		req := api.LoginRequest{Email: loginEmail, Password: loginPassword, UserType: loginAs}
		if err := validate.Check(req); err != nil {
			return err
		}
		if _, err := a.client.Login(ctx, req); err != nil {
			return err
		}
		a.printf("✅  Signed in as %s (%s)\n", loginEmail, a.role())
		return nil
	}),
}

var reg api.RegisterRequest

// platter register
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if reg.Password == "" {
			reg.Password = os.Getenv("PLATTER_PASSWORD")
		}
		if _, err := a.client.Register(ctx, reg); err != nil {
			return err
		}
		a.printf("✅  Registered %s as %s\n", reg.Email, reg.UserType)
		return nil
	}),
}

// platter logout
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if err := a.sess.Clear(ctx, session.ReasonLogout); err != nil {
			return err
		}
		a.printf("Signed out.\n")
		return nil
	}),
}

// platter whoami
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and role",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if !a.sess.Authenticated() {
			return errNotSignedIn
		}
		out := map[string]interface{}{
			"role":      a.role(),
			"storageId": role.StorageID(a.sess),
			"user":      a.sess.User(),
			"backend":   a.client.BaseURL(),
		}
		if jsonFlag {
			return a.printJSON(out)
		}
		w := a.table()
		fmt.Fprintf(w, "Role\t%s\n", out["role"])
		fmt.Fprintf(w, "User id\t%s\n", out["storageId"])
		fmt.Fprintf(w, "Backend\t%s\n", out["backend"])
		keys := make([]string, 0, len(a.sess.User()))
		for k := range a.sess.User() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%v\n", k, a.sess.User()[k])
		}
		return w.Flush()
	}),
}

var profileUpdate api.CustomerProfile

// platter profile
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the profile for the signed-in role; customers can update theirs",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		var (
			p   interface{}
			err error
		)
		switch a.role() {
		case role.Customer:
			if cmd.Flags().Changed("name") || cmd.Flags().Changed("phone") || cmd.Flags().Changed("email") {
				p, err = a.client.UpdateCustomerProfile(ctx, profileUpdate)
			} else {
				p, err = a.client.CustomerProfile(ctx)
			}
		case role.Restaurant:
			p, err = a.client.RestaurantProfile(ctx)
		case role.Delivery:
			p, err = a.client.DeliveryProfile(ctx)
		default:
			return errNotSignedIn
		}
		if err != nil {
			return err
		}
		return a.printJSON(p)
	}),
}

// platter theme [light|dark]
var themeCmd = &cobra.Command{
	Use:       "theme [light|dark]",
	Short:     "Show or set the theme preference",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"light", "dark"},
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := a.sess.SetThemeMode(ctx, args[0]); err != nil {
				return err
			}
		}
		a.printf("%s\n", a.sess.ThemeMode())
		return nil
	}),
}

// ── addresses ───────────────────────────────────────────────────────────────

var addressesCmd = &cobra.Command{
	Use:     "addresses",
	Aliases: []string{"address"},
	Short:   "List and manage delivery addresses",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		addrs, err := a.client.Addresses(ctx)
		if err != nil {
			return err
		}
		if jsonFlag {
			return a.printJSON(addrs)
		}
		if len(addrs) == 0 {
			a.printf("No saved addresses.\n")
			return nil
		}
		w := a.table()
		fmt.Fprintln(w, "ID\tDEFAULT\tADDRESS")
		for _, ad := range addrs {
			def := ""
			if ad.IsDefault {
				def = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", ad.AddressID, def, ad.Line())
		}
		return w.Flush()
	}),
}

var newAddress api.Address

var addressAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a new address",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		saved, err := a.client.AddAddress(ctx, newAddress)
		if err != nil {
			return err
		}
		a.printf("✅  Saved address %d: %s\n", saved.AddressID, saved.Line())
		return nil
	}),
}

var addressUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a saved address",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		newAddress.AddressID = id
		saved, err := a.client.UpdateAddress(ctx, newAddress)
		if err != nil {
			return err
		}
		a.printf("✅  Updated address %d: %s\n", saved.AddressID, saved.Line())
		return nil
	}),
}

var addressDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved address",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.client.DeleteAddress(ctx, id); err != nil {
			return err
		}
		a.printf("Deleted address %d.\n", id)
		return nil
	}),
}

var addressDefaultCmd = &cobra.Command{
	Use:   "default <id>",
	Short: "Make an address the default for checkout",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.client.SetDefaultAddress(ctx, id); err != nil {
			return err
		}
		a.printf("Address %d is now the default.\n", id)
		return nil
	}),
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func addressFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&newAddress.AddressLine1, "line1", "", "first address line")
	f.StringVar(&newAddress.AddressLine2, "line2", "", "second address line")
	f.StringVar(&newAddress.City, "city", "", "city")
	f.StringVar(&newAddress.PostalCode, "postal-code", "", "postal code")
	f.StringVar(&newAddress.Country, "country", "", "country (default "+api.DefaultCountry+")")
	f.BoolVar(&newAddress.IsDefault, "default", false, "make it the default address")
}

func init() {
	f := loginCmd.Flags()
	f.StringVar(&loginEmail, "email", "", "account email")
	f.StringVar(&loginPassword, "password", "", "password (or PLATTER_PASSWORD)")
	f.StringVar(&loginAs, "as", string(role.Customer), "account type: customer, restaurant or delivery")

	f = registerCmd.Flags()
	f.StringVar(&reg.UserType, "as", string(role.Customer), "account type: customer, restaurant or delivery")
	f.StringVar(&reg.Username, "username", "", "user name")
	f.StringVar(&reg.Name, "name", "", "display name")
	f.StringVar(&reg.Email, "email", "", "email")
	f.StringVar(&reg.Phone, "phone", "", "phone number")
	f.StringVar(&reg.Password, "password", "", "password (or PLATTER_PASSWORD)")
	f.StringVar(&reg.AddressLine1, "address-line1", "", "customer: first address line")
	f.StringVar(&reg.AddressLine2, "address-line2", "", "customer: second address line")
	f.StringVar(&reg.City, "city", "", "customer: city")
	f.StringVar(&reg.PostalCode, "postal-code", "", "customer: postal code")
	f.StringVar(&reg.Country, "country", "", "customer: country")
	f.StringVar(&reg.RestName, "restaurant-name", "", "restaurant: name")
	f.StringVar(&reg.Address, "address", "", "restaurant: street address")
	f.StringVar(&reg.Cuisine, "cuisine", "", "restaurant: cuisine")
	f.StringVar(&reg.Description, "description", "", "restaurant: description")
	f.StringVar(&reg.VehicleType, "vehicle", "", "delivery: vehicle type")
	f.StringVar(&reg.LicenseNumber, "license", "", "delivery: license number")

	f = profileCmd.Flags()
	f.StringVar(&profileUpdate.CustName, "name", "", "customer: new display name")
	f.StringVar(&profileUpdate.Phone, "phone", "", "customer: new phone number")
	f.StringVar(&profileUpdate.Email, "email", "", "customer: new email")

	addressFlags(addressAddCmd)
	addressFlags(addressUpdateCmd)
	addressesCmd.AddCommand(addressAddCmd, addressUpdateCmd, addressDeleteCmd, addressDefaultCmd)
}
