// Package catalog is the read-only pricing lookup across menu items, meal
// items and box types, plus the vendor directory.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/schedule"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Entry is one priced catalog row. Any of the three price columns may be null.
type Entry struct {
	ID         string
	Name       string
	VendorID   string
	PriceEach  *decimal.Decimal
	Value      *decimal.Decimal
	QuotaValue *decimal.Decimal
}

// Price resolves priceEach, then value, then quotaValue, then zero.
func (e Entry) Price() decimal.Decimal {
	switch {
	case e.PriceEach != nil:
		return *e.PriceEach
	case e.Value != nil:
		return *e.Value
	case e.QuotaValue != nil:
		return *e.QuotaValue
	}
	return decimal.Zero
}

// Vendor is a supplier and the weekdays it delivers on.
type Vendor struct {
	ID           string
	Name         string
	DeliveryDays []string
	Active       bool
}

// Weekdays returns the parsed delivery days.
func (v Vendor) Weekdays() []time.Weekday {
	return schedule.ParseWeekdays(v.DeliveryDays)
}

// DeliversOn reports whether day (any case) is one of the vendor's days.
func (v Vendor) DeliversOn(day string) bool {
	for _, d := range v.DeliveryDays {
		if strings.EqualFold(strings.TrimSpace(d), strings.TrimSpace(day)) {
			return true
		}
	}
	return false
}

// Catalog is an immutable snapshot.
type Catalog struct {
	menu    map[string]Entry
	meals   map[string]Entry
	boxes   map[string]Entry
	vendors map[string]Vendor
}

// New builds a snapshot from already-loaded rows.
func New(menu, meals, boxes []Entry, vendors []Vendor) *Catalog {
	c := &Catalog{
		menu:    make(map[string]Entry, len(menu)),
		meals:   make(map[string]Entry, len(meals)),
		boxes:   make(map[string]Entry, len(boxes)),
		vendors: make(map[string]Vendor, len(vendors)),
	}
	for _, e := range menu {
		c.menu[e.ID] = e
	}
	for _, e := range meals {
		c.meals[e.ID] = e
	}
	for _, e := range boxes {
		c.boxes[e.ID] = e
	}
	for _, v := range vendors {
		c.vendors[v.ID] = v
	}
	return c
}

// Item looks up a menu item, falling back to the meal catalog.
func (c *Catalog) Item(id string) (Entry, bool) {
	if e, ok := c.menu[id]; ok {
		return e, true
	}
	e, ok := c.meals[id]
	return e, ok
}

func (c *Catalog) BoxType(id string) (Entry, bool) {
	e, ok := c.boxes[id]
	return e, ok
}

func (c *Catalog) Vendor(id string) (Vendor, bool) {
	v, ok := c.vendors[id]
	return v, ok
}

// Vendors returns every vendor sorted by name.
func (c *Catalog) Vendors() []Vendor {
	out := make([]Vendor, 0, len(c.vendors))
	for _, v := range c.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// VendorName returns the vendor's name, or the id when unknown.
func (c *Catalog) VendorName(id string) string {
	if v, ok := c.vendors[id]; ok {
		return v.Name
	}
	return id
}

// Source defines the DB methods needed to load a catalog.
// Satisfied by *database.Queries.
type Source interface {
	ListMenuItems(ctx context.Context) ([]database.CatalogItem, error)
	ListMealItems(ctx context.Context) ([]database.CatalogItem, error)
	ListBoxTypes(ctx context.Context) ([]database.BoxType, error)
	ListVendors(ctx context.Context) ([]database.Vendor, error)
}

// Load reads all four tables concurrently.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	var (
		menu, meals []database.CatalogItem
		boxes       []database.BoxType
		vendors     []database.Vendor
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if menu, err = src.ListMenuItems(gctx); err != nil {
			return fmt.Errorf("list menu items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if meals, err = src.ListMealItems(gctx); err != nil {
			return fmt.Errorf("list meal items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if boxes, err = src.ListBoxTypes(gctx); err != nil {
			return fmt.Errorf("list box types: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if vendors, err = src.ListVendors(gctx); err != nil {
			return fmt.Errorf("list vendors: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	menuEntries := make([]Entry, 0, len(menu))
	for _, m := range menu {
		menuEntries = append(menuEntries, itemEntry(m))
	}
	mealEntries := make([]Entry, 0, len(meals))
	for _, m := range meals {
		mealEntries = append(mealEntries, itemEntry(m))
	}
	boxEntries := make([]Entry, 0, len(boxes))
	for _, b := range boxes {
		boxEntries = append(boxEntries, Entry{
			ID:        b.ID.String(),
			Name:      b.Name,
			VendorID:  uuidString(b.VendorID),
			PriceEach: nullableDecimal(b.PriceEach),
		})
	}
	vendorList := make([]Vendor, 0, len(vendors))
	for _, v := range vendors {
		vendorList = append(vendorList, Vendor{
			ID:           v.ID.String(),
			Name:         v.Name,
			DeliveryDays: v.DeliveryDays,
			Active:       v.IsActive,
		})
	}

	return New(menuEntries, mealEntries, boxEntries, vendorList), nil
}

func itemEntry(m database.CatalogItem) Entry {
	return Entry{
		ID:         m.ID.String(),
		Name:       m.Name,
		VendorID:   uuidString(m.VendorID),
		PriceEach:  nullableDecimal(m.PriceEach),
		Value:      nullableDecimal(m.Value),
		QuotaValue: nullableDecimal(m.QuotaValue),
	}
}

func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func nullableDecimal(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return nil
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return nil
	}
	return &d
}
