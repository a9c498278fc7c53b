package orderconfig

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/homedeliver/api/internal/enum"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CanonicalDay title-cases a weekday name ("monday" -> "Monday"). ok is false
// when s is not a weekday name.
func CanonicalDay(s string) (string, bool) {
	day := cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == day {
			return day, true
		}
	}
	return "", false
}

// Normalize strips doc down to the fields legal for serviceType. Empty
// collections and non-positive quantities are omitted, so presence of a key
// means it has content. The only error is an unknown service type.
//
// Normalize is idempotent: Normalize(c.Raw(), c.Type()) equals c.
func Normalize(doc RawDocument, serviceType string) (Configuration, error) {
	common := Common{
		CaseID: strings.TrimSpace(doc.CaseID),
		Notes:  strings.TrimSpace(doc.Notes),
	}

	switch serviceType {
	case enum.ServiceTypeFood, enum.ServiceTypeMeal:
		return &FoodConfig{
			ServiceType:       serviceType,
			Common:            common,
			VendorSelections:  normalizeSelections(doc.VendorSelections),
			DeliveryDayOrders: normalizeDayOrders(doc.DeliveryDayOrders),
			MealSelections:    normalizeMeals(doc.MealSelections),
		}, nil

	case enum.ServiceTypeBoxes:
		boxes := doc.BoxOrders
		if len(boxes) == 0 {
			if legacy, ok := LegacyBoxOrder(doc); ok {
				boxes = []BoxOrder{legacy}
			}
		}
		return &BoxesConfig{
			Common:    common,
			BoxOrders: normalizeBoxes(boxes),
		}, nil

	case enum.ServiceTypeCustom:
		c := &CustomConfig{
			Common:     common,
			VendorID:   strings.TrimSpace(doc.VendorID),
			CustomName: strings.TrimSpace(doc.CustomName),
		}
		if day, ok := CanonicalDay(doc.DeliveryDay); ok {
			c.DeliveryDay = day
		}
		if doc.CustomPrice != nil {
			p := *doc.CustomPrice
			c.CustomPrice = &p
		}
		return c, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownServiceType, serviceType)
}

func normalizeSelections(in []VendorSelection) []VendorSelection {
	var out []VendorSelection
	for _, vs := range in {
		sel := VendorSelection{
			VendorID:  strings.TrimSpace(vs.VendorID),
			Items:     positiveQuantities(vs.Items),
			ItemNotes: nonEmptyNotes(vs.ItemNotes),
		}
		if sel.VendorID == "" && len(sel.Items) == 0 {
			continue
		}
		out = append(out, sel)
	}
	return out
}

// normalizeDayOrders canonicalizes weekday keys. Keys that collapse onto the
// same weekday are merged in sorted key order.
func normalizeDayOrders(in map[string]DayOrder) map[string]DayOrder {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out map[string]DayOrder
	for _, k := range keys {
		day, ok := CanonicalDay(k)
		if !ok {
			continue
		}
		sels := normalizeSelections(in[k].VendorSelections)
		if len(sels) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]DayOrder)
		}
		existing := out[day]
		existing.VendorSelections = append(existing.VendorSelections, sels...)
		out[day] = existing
	}
	return out
}

// normalizeMeals trims meal keys. Keys that collapse onto the same meal are
// merged in sorted key order: quantities add up, the first vendor and note
// win.
func normalizeMeals(in map[string]MealSelection) map[string]MealSelection {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out map[string]MealSelection
	for _, k := range keys {
		key := strings.TrimSpace(k)
		m := in[k]
		items := positiveQuantities(m.Items)
		if key == "" || len(items) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]MealSelection)
		}
		existing, ok := out[key]
		if !ok {
			out[key] = MealSelection{
				VendorID:  strings.TrimSpace(m.VendorID),
				Items:     items,
				ItemNotes: nonEmptyNotes(m.ItemNotes),
			}
			continue
		}
		if existing.VendorID == "" {
			existing.VendorID = strings.TrimSpace(m.VendorID)
		}
		for id, q := range items {
			existing.Items[id] += q
		}
		for id, note := range nonEmptyNotes(m.ItemNotes) {
			if existing.ItemNotes == nil {
				existing.ItemNotes = make(map[string]string)
			}
			if _, taken := existing.ItemNotes[id]; !taken {
				existing.ItemNotes[id] = note
			}
		}
		out[key] = existing
	}
	return out
}

func normalizeBoxes(in []BoxOrder) []BoxOrder {
	var out []BoxOrder
	for _, b := range in {
		box := BoxOrder{
			BoxTypeID: strings.TrimSpace(b.BoxTypeID),
			VendorID:  strings.TrimSpace(b.VendorID),
			Items:     positiveQuantities(b.Items),
			ItemNotes: nonEmptyNotes(b.ItemNotes),
		}
		if b.Quantity > 0 {
			box.Quantity = b.Quantity
		}
		for id, p := range b.ItemPrices {
			if _, ok := box.Items[id]; !ok {
				continue
			}
			if box.ItemPrices == nil {
				box.ItemPrices = make(map[string]decimal.Decimal)
			}
			box.ItemPrices[id] = p
		}
		if box.BoxTypeID == "" && box.VendorID == "" && len(box.Items) == 0 {
			continue
		}
		out = append(out, box)
	}
	return out
}

func positiveQuantities(in Quantities) Quantities {
	var out Quantities
	for id, qty := range in {
		if id == "" || qty <= 0 {
			continue
		}
		if out == nil {
			out = make(Quantities)
		}
		out[id] = qty
	}
	return out
}

func nonEmptyNotes(in map[string]string) map[string]string {
	var out map[string]string
	for id, note := range in {
		note = strings.TrimSpace(note)
		if id == "" || note == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[id] = note
	}
	return out
}
