package export_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shashiranjanraj/platter/internal/controller"
	"github.com/shashiranjanraj/platter/internal/export"
	"github.com/shashiranjanraj/platter/internal/order"
	"github.com/shashiranjanraj/platter/internal/role"
	"github.com/shashiranjanraj/platter/pkg/storage"
)

var now = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func snapshot() controller.Snapshot {
	done := now.Add(-time.Hour)
	return controller.Snapshot{
		Role: role.Delivery,
		Orders: []order.Order{{
			ID: "ORDER-1", RestaurantName: "Pasta Place", Status: order.Pending,
			TotalPrice: decimal.RequireFromString("20"), PaymentMethod: "cash", OrderDate: now,
		}},
		Accepted: []order.Order{{
			ID: "ORDER-2", RestaurantName: "Pasta Place", Status: order.Delivered,
			TotalPrice: decimal.RequireFromString("60.50"), PaymentMethod: "credit_card",
			DeliveryStaff: &order.Staff{ID: "4", Name: "Sam"}, OrderDate: now.Add(-2 * time.Hour), CompletedAt: &done,
		}},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, export.YAML, f)

	_, err = export.ParseFormat("xml")
	assert.Error(t, err)
}

func TestEncodeJSONIncludesEarnings(t *testing.T) {
	data, err := export.Encode(snapshot(), export.JSON, now)
	require.NoError(t, err)

	var doc struct {
		Role     string
		Orders   []export.Row
		Earnings struct{ Today json.Number }
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "delivery", doc.Role)
	require.Len(t, doc.Orders, 2)
	assert.Equal(t, "accepted", doc.Orders[1].List)
	assert.Equal(t, "Sam", doc.Orders[1].DeliveryStaff)
	assert.Equal(t, "6.05", doc.Earnings.Today.String())
}

func TestEncodeYAML(t *testing.T) {
	s := snapshot()
	s.Role = role.Customer
	data, err := export.Encode(s, export.YAML, now)
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "customer", doc.Role)
	assert.Nil(t, doc.Earnings)
	assert.Equal(t, "60.50", doc.Orders[1].Total)
}

func TestEncodeCSV(t *testing.T) {
	data, err := export.Encode(snapshot(), export.CSV, now)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "order_id", records[0][0])
	assert.Equal(t, []string{"ORDER-1", "Pasta Place", "pending", "Pending", "20.00", "cash", "0", "", now.Format(time.RFC3339), "", "orders"}, records[1])
}

func TestWriteStoresUnderRole(t *testing.T) {
	disk := storage.NewLocal(t.TempDir(), "")
	path, err := export.Write(context.Background(), disk, snapshot(), export.CSV, now)
	require.NoError(t, err)
	assert.Equal(t, "exports/delivery/20240510-150000.csv", path)

	files, err := disk.Files(context.Background(), "exports/delivery")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)

	assert.Equal(t, "exports/guest/20240510-150000.json", export.Path(role.None, export.JSON, now))
}
