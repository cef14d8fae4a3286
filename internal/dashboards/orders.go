package dashboards

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// OrderStatuses is the order status vocabulary.
var OrderStatuses = []string{"confirmed", "processing", "pending", "shipped", "delivered"}

// Orders are customer orders. Read-only.
func Orders() *shell.Definition {
	return &shell.Definition{
		Name:   "orders",
		Title:  "Orders",
		Source: store.Source{Path: "v3/order", Keys: []string{"orders"}},
		Search: []string{"address.fullName", "orderId", "items.title"},
		Columns: []export.Column{
			{Header: "Order", Path: "orderId", Width: 14},
			{Header: "Customer", Path: "address.fullName", Width: 20},
			{Header: "Items", Path: "items.title", Width: 36},
			{Header: "Total", Path: "totalamount", Width: 8},
			{Header: "Payment", Path: "paymentMethod", Width: 8},
			{Header: "Status", Path: "status", Width: 10},
			{Header: "Date", Value: date("createdAt"), Width: 10},
		},
		Filters: []shell.NamedFilter{equalsFilter("status", "status", OrderStatuses...)},
		Stats:   orderStats,
	}
}

func orderStats(list []entity.Record, now time.Time) []store.Stat {
	out := []store.Stat{
		total(list),
		count("This month", list, store.SameMonth("createdAt", now)),
	}
	by := store.CountBy(list, "status")
	seen := map[string]bool{}
	for _, st := range OrderStatuses {
		seen[st] = true
		out = append(out, store.Stat{Label: titleCase(st), Value: itoa(by[st])})
	}
	var other []string
	for st := range by {
		if !seen[st] && st != "" {
			other = append(other, st)
		}
	}
	sort.Strings(other)
	for _, st := range other {
		out = append(out, store.Stat{Label: titleCase(st), Value: itoa(by[st])})
	}
	if avg, ok := store.Average(list, "totalamount"); ok {
		out = append(out, store.Stat{Label: "Average order", Value: fmt.Sprintf("%.2f", avg)})
	}
	return out
}

// Shipping charge endpoints.
const (
	ShippingGetPath = "v1/shipping-charges"
	ShippingSetPath = "v3/shipping-charges"
)

// Shipping is the store-wide shipping rule.
type Shipping struct {
	MinimumOrderValue float64 `json:"minimumordervalue"`
	Charges           float64 `json:"shippingcharges"`
}

// FetchShipping returns the current rule; ok is false when none is set.
func FetchShipping(ctx context.Context, c store.Requester) (Shipping, bool, error) {
	env, err := c.Request(ctx, http.MethodGet, ShippingGetPath, nil)
	if err != nil {
		return Shipping{}, false, err
	}
	rec, err := env.Record()
	if err != nil || rec == nil {
		return Shipping{}, false, err
	}
	minimum, ok1 := rec.Float("minimumordervalue")
	charges, ok2 := rec.Float("shippingcharges")
	if !ok1 && !ok2 {
		return Shipping{}, false, nil
	}
	return Shipping{MinimumOrderValue: minimum, Charges: charges}, true, nil
}

// SaveShipping replaces the rule and returns the server's message.
func SaveShipping(ctx context.Context, c store.Requester, s Shipping) (string, error) {
	if s.MinimumOrderValue < 0 || s.Charges < 0 {
		return "", fmt.Errorf("shipping values must not be negative")
	}
	env, err := c.Request(ctx, http.MethodPost, ShippingSetPath, s)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func itoa(n int) string { return fmt.Sprint(n) }

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
