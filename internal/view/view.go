// Package view decides what the authenticated shell shows: which page a
// path maps to for a role, the navigation for that role, and which actions
// to offer on an order.
package view

import (
	"strings"

	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/rbac"
)

type Kind string

const (
	Home             Kind = "home"
	Login            Kind = "login"
	Register         Kind = "register"
	Restaurants      Kind = "dashboard"
	Orders           Kind = "orders"
	OrderHistory     Kind = "order-history"
	OrderInformation Kind = "order-information"
	DeliveryStatus   Kind = "delivery"
	Profile          Kind = "profile"
)

const (
	Root       = "/dashboard"
	LoginPath  = "/login"
	LogoutPath = "/logout"
)

// Page is the composed result for one path.
type Page struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Path  string `json:"path"`

	// Redirect is set when the browser should move to another path.
	Redirect string `json:"redirect,omitempty"`

	// Authenticated pages live under /dashboard.
	Authenticated bool `json:"authenticated"`
}

// Normalize drops one trailing slash, leaving "/" alone.
func Normalize(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

var publicPages = map[string]Kind{
	"/":         Home,
	"/login":    Login,
	"/register": Register,
}

var dashboardPages = map[string]Kind{
	Root + "/orders":            Orders,
	Root + "/order-history":     OrderHistory,
	Root + "/order-information": OrderInformation,
	Root + "/delivery":          DeliveryStatus,
	Root + "/profile":           Profile,
}

// Compose maps path onto a page for r. Paths are matched exactly after
// Normalize. Couriers have no restaurant page, so the dashboard root and
// unknown paths give them their order list.
func Compose(path string, r role.Role) Page {
	p := Normalize(path)
	if k, ok := publicPages[p]; ok {
		return Page{Kind: k, Title: title(k, r), Path: p}
	}
	if !strings.HasPrefix(p, Root) || r == role.None {
		return Page{Kind: Login, Title: title(Login, r), Path: LoginPath, Redirect: LoginPath}
	}

	page := Page{Path: p, Authenticated: true}
	if k, ok := dashboardPages[p]; ok {
		page.Kind = k
	} else if r == role.Delivery {
		page.Kind = Orders
		if p == Root {
			page.Redirect = Root + "/orders"
		}
	} else {
		page.Kind = Restaurants
	}
	page.Title = title(page.Kind, r)
	return page
}

func title(k Kind, r role.Role) string {
	switch k {
	case Home:
		return "Welcome"
	case Login:
		return "Login"
	case Register:
		return "Register"
	case Restaurants:
		return "Restaurants"
	case Orders:
		switch r {
		case role.Delivery:
			return "Available Orders"
		case role.Restaurant:
			return "Restaurant Orders"
		}
		return "My Orders"
	case OrderHistory:
		return "Order History"
	case OrderInformation:
		return "Order Information"
	case DeliveryStatus:
		return "Delivery Status"
	case Profile:
		return "My Profile"
	}
	return string(k)
}

// ── navigation ──────────────────────────────────────────────────────────────

type NavType string

const (
	NavHeader  NavType = "header"
	NavItem    NavType = "item"
	NavDivider NavType = "divider"
)

type Nav struct {
	Type     NavType `json:"type"`
	Label    string  `json:"label,omitempty"`
	Path     string  `json:"path,omitempty"`
	Children []Nav   `json:"children,omitempty"`
}

func item(label, path string) Nav { return Nav{Type: NavItem, Label: label, Path: path} }

func header(label string) Nav { return Nav{Type: NavHeader, Label: label} }

// Navigation builds the sidebar for r. An unknown role gets the customer's
// order entries without the restaurant section.
func Navigation(r role.Role) []Nav {
	var items []Nav
	if r == role.Customer || r == role.Restaurant {
		items = append(items, header("Restaurant"), item("Restaurants", Root))
	}

	items = append(items, header("Orders"))
	switch r {
	case role.Delivery:
		items = append(items, Nav{
			Type:  NavItem,
			Label: "Order Management",
			Children: []Nav{
				item("Orders", Root+"/orders"),
				item("Delivery Status", Root+"/delivery"),
			},
		})
	case role.Customer, role.None:
		items = append(items, item("My Orders", Root+"/orders"))
	}
	items = append(items,
		item("Order Information", Root+"/order-information"),
		item("Order History", Root+"/order-history"),
		header("Settings"),
		item("My Profile", Root+"/profile"),
		Nav{Type: NavDivider},
		item("Logout", LogoutPath),
	)
	return items
}

// ── actions ─────────────────────────────────────────────────────────────────

// Customer-side actions. They open dialogs and never write a status, so
// they are not part of the transition table.
const (
	RequestRefund rbac.Action = "refund"
	ContactStaff  rbac.Action = "contact"
	WriteReview   rbac.Action = "review"
)

// Actions lists what r may do with o. Status changes come straight from
// the transition table.
func Actions(r role.Role, o order.Order) []rbac.Action {
	if r != role.Customer {
		return rbac.Actions(string(r), string(o.Status))
	}
	var out []rbac.Action
	if o.Status != order.Cancelled {
		out = append(out, RequestRefund)
	}
	if o.Assigned() && o.Status != order.Delivered {
		out = append(out, ContactStaff)
	}
	if o.Status == order.Delivered {
		out = append(out, WriteReview)
	}
	return out
}
