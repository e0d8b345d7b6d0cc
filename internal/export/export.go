// Package export writes an order list snapshot to a storage disk as JSON,
// YAML or CSV.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/earnings"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/logger"
	"github.com/shashiranjanraj/platter/pkg/storage"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, YAML, CSV:
		return f, nil
	case "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("export: unknown format %q (want json, yaml or csv)", s)
}

// Row is the flat per-order record every format is built from.
type Row struct {
	OrderID       string `json:"orderId" yaml:"orderId"`
	Restaurant    string `json:"restaurant" yaml:"restaurant"`
	Status        string `json:"status" yaml:"status"`
	StatusLabel   string `json:"statusLabel" yaml:"statusLabel"`
	Total         string `json:"total" yaml:"total"`
	PaymentMethod string `json:"paymentMethod" yaml:"paymentMethod"`
	Items         int    `json:"items" yaml:"items"`
	DeliveryStaff string `json:"deliveryStaff,omitempty" yaml:"deliveryStaff,omitempty"`
	OrderDate     string `json:"orderDate" yaml:"orderDate"`
	CompletedAt   string `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	List          string `json:"list" yaml:"list"`
}

// Document is what JSON and YAML exports contain.
type Document struct {
	Role       string            `json:"role" yaml:"role"`
	ExportedAt string            `json:"exportedAt" yaml:"exportedAt"`
	Orders     []Row             `json:"orders" yaml:"orders"`
	Earnings   *earnings.Summary `json:"earnings,omitempty" yaml:"earnings,omitempty"`
}

func toRow(o order.Order, list string) Row {
	r := Row{
		OrderID:       o.ID,
		Restaurant:    o.RestaurantName,
		Status:        string(o.Status),
		StatusLabel:   o.Status.Label(),
		Total:         o.TotalPrice.StringFixed(2),
		PaymentMethod: o.PaymentMethod,
		Items:         len(o.Items),
		OrderDate:     o.OrderDate.Format(time.RFC3339),
		List:          list,
	}
	if o.DeliveryStaff != nil {
		r.DeliveryStaff = o.DeliveryStaff.Name
	}
	if o.CompletedAt != nil {
		r.CompletedAt = o.CompletedAt.Format(time.RFC3339)
	}
	return r
}

// Rows flattens every list in the snapshot, tagging each row with its list.
func Rows(s controller.Snapshot) []Row {
	var rows []Row
	for _, l := range []struct {
		name   string
		orders []order.Order
	}{{"orders", s.Orders}, {"accepted", s.Accepted}, {"history", s.History}} {
		for _, o := range l.orders {
			rows = append(rows, toRow(o, l.name))
		}
	}
	return rows
}

// Encode renders the snapshot in format f. Couriers also get their
// earnings summary in JSON and YAML.
func Encode(s controller.Snapshot, f Format, now time.Time) ([]byte, error) {
	rows := Rows(s)
	doc := Document{Role: string(s.Role), ExportedAt: now.Format(time.RFC3339), Orders: rows}
	if doc.Orders == nil {
		doc.Orders = []Row{}
	}
	if s.Role == role.Delivery {
		sum := earnings.Compute(s.Accepted, now)
		doc.Earnings = &sum
	}

	switch f {
	case JSON:
		return json.MarshalIndent(doc, "", "  ")
	case YAML:
		return yaml.Marshal(doc)
	case CSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"order_id", "restaurant", "status", "status_label", "total", "payment_method", "items", "delivery_staff", "order_date", "completed_at", "list"})
		for _, r := range rows {
			_ = w.Write([]string{r.OrderID, r.Restaurant, r.Status, r.StatusLabel, r.Total, r.PaymentMethod,
				fmt.Sprint(r.Items), r.DeliveryStaff, r.OrderDate, r.CompletedAt, r.List})
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	}
	return nil, fmt.Errorf("export: unknown format %q", f)
}

// Path is where an export taken at now is stored.
func Path(r role.Role, f Format, now time.Time) string {
	name := string(r)
	if name == "" {
		name = "guest"
	}
	return fmt.Sprintf("exports/%s/%s.%s", name, now.Format("20060102-150405"), f)
}

// Write encodes the snapshot and puts it on disk. It returns the stored
// path.
func Write(ctx context.Context, disk storage.Disk, s controller.Snapshot, f Format, now time.Time) (string, error) {
	data, err := Encode(s, f, now)
	if err != nil {
		return "", err
	}
	path := Path(s.Role, f, now)
	if err := disk.Put(ctx, path, data); err != nil {
		return "", err
	}
	logger.WithCtx(ctx).Info("export: written", "disk", disk.Driver(), "path", path, "orders", len(s.Orders)+len(s.Accepted)+len(s.History))
	return path, nil
}
