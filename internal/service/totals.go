package service

import (
	"log"
	"sort"

	"github.com/homedeliver/api/internal/catalog"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/shopspring/decimal"
)

// PriceLookup resolves catalog entries by id.
// Satisfied by *catalog.Catalog.
type PriceLookup interface {
	Item(id string) (catalog.Entry, bool)
	BoxType(id string) (catalog.Entry, bool)
}

// Totals is the monetary total and item count of a configuration.
type Totals struct {
	Value decimal.Decimal
	Items int
}

// Equal compares at cent precision.
func (t Totals) Equal(o Totals) bool {
	return t.Items == o.Items && t.Value.Round(2).Equal(o.Value.Round(2))
}

func (t *Totals) add(o Totals) {
	t.Value = t.Value.Add(o.Value)
	t.Items += o.Items
}

// CalculateTotals recomputes a configuration's totals from the catalog.
// Caller-supplied totals are never consulted.
func CalculateTotals(lookup PriceLookup, cfg orderconfig.Configuration) Totals {
	total := Totals{Value: decimal.Zero}

	switch c := cfg.(type) {
	case *orderconfig.FoodConfig:
		for _, sel := range c.VendorSelections {
			total.add(selectionTotals(lookup, sel.Items))
		}
		for _, day := range sortedKeys(c.DeliveryDayOrders) {
			for _, sel := range c.DeliveryDayOrders[day].VendorSelections {
				total.add(selectionTotals(lookup, sel.Items))
			}
		}
		for _, meal := range sortedKeys(c.MealSelections) {
			total.add(selectionTotals(lookup, c.MealSelections[meal].Items))
		}
	case *orderconfig.BoxesConfig:
		for _, b := range c.BoxOrders {
			total.Value = total.Value.Add(boxLineTotal(lookup, b))
			total.Items += b.Boxes()
		}
	case *orderconfig.CustomConfig:
		total.Value = c.Price()
		total.Items = 1
	}

	return total
}

// selectionTotals sums price×quantity. Items missing from the catalog are
// skipped with a warning.
func selectionTotals(lookup PriceLookup, items orderconfig.Quantities) Totals {
	t := Totals{Value: decimal.Zero}
	for _, id := range sortedKeys(items) {
		qty := items[id]
		if qty <= 0 {
			continue
		}
		entry, ok := lookup.Item(id)
		if !ok {
			log.Printf("WARN: totals: item %s not in catalog, skipped", id)
			continue
		}
		t.Value = t.Value.Add(entry.Price().Mul(decimal.NewFromInt(int64(qty))))
		t.Items += qty
	}
	return t
}

// boxLineTotal prefers explicit item prices. When they contribute nothing it
// falls back to the box type price times the number of boxes.
func boxLineTotal(lookup PriceLookup, b orderconfig.BoxOrder) decimal.Decimal {
	explicit := decimal.Zero
	for id, qty := range b.Items {
		price, ok := b.ItemPrices[id]
		if !ok || qty <= 0 {
			continue
		}
		explicit = explicit.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	if explicit.IsPositive() {
		return explicit
	}
	if b.BoxTypeID == "" {
		return decimal.Zero
	}
	bt, ok := lookup.BoxType(b.BoxTypeID)
	if !ok {
		log.Printf("WARN: totals: box type %s not in catalog, skipped", b.BoxTypeID)
		return decimal.Zero
	}
	return bt.Price().Mul(decimal.NewFromInt(int64(b.Boxes())))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
