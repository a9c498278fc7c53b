package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/catalog"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/enum"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ScheduledStore defines the DB methods needed to upsert scheduled orders.
// Satisfied by *database.Queries.
type ScheduledStore interface {
	GetScheduledOrderByKey(ctx context.Context, arg database.GetScheduledOrderByKeyParams) (database.ScheduledOrder, error)
	InsertScheduledOrder(ctx context.Context, arg database.InsertScheduledOrderParams) (database.ScheduledOrder, error)
	UpdateScheduledOrder(ctx context.Context, arg database.UpdateScheduledOrderParams) (database.ScheduledOrder, error)
	UpdateScheduledOrderTotals(ctx context.Context, arg database.UpdateScheduledOrderTotalsParams) error
	DeleteScheduledItems(ctx context.Context, scheduledOrderID uuid.UUID) error
	DeleteScheduledVendorSelections(ctx context.Context, scheduledOrderID uuid.UUID) error
	DeleteScheduledBoxSelections(ctx context.Context, scheduledOrderID uuid.UUID) error
	InsertScheduledVendorSelection(ctx context.Context, arg database.InsertScheduledVendorSelectionParams) (database.ScheduledOrderVendorSelection, error)
	InsertScheduledItem(ctx context.Context, arg database.InsertScheduledItemParams) (database.ScheduledOrderItem, error)
	InsertScheduledBoxSelection(ctx context.Context, arg database.InsertScheduledBoxSelectionParams) (database.ScheduledOrderBoxSelection, error)
}

// UpsertRequest is one scheduled header and the configuration slice it carries.
type UpsertRequest struct {
	ClientID              uuid.UUID
	DeliveryDay           string // "" stores NULL
	MealType              string
	Config                orderconfig.Configuration
	TakeEffectDate        time.Time
	ScheduledDeliveryDate time.Time
	UpdatedBy             string
}

// UpsertResult is the saved header with the totals persisted on it.
type UpsertResult struct {
	Order  database.ScheduledOrder
	Totals Totals
	// Corrected is true when the persisted children disagreed with the
	// pre-computed totals and the header was rewritten.
	Corrected bool
}

// ScheduledOrderRepository keeps one scheduled header per
// (client, delivery day, meal type) and replaces its children on every save.
type ScheduledOrderRepository struct {
	store   ScheduledStore
	history *HistoryAppender
	clock   Clock
}

func NewScheduledOrderRepository(store ScheduledStore, history *HistoryAppender, clock Clock) *ScheduledOrderRepository {
	if clock == nil {
		clock = time.Now
	}
	return &ScheduledOrderRepository{store: store, history: history, clock: clock}
}

// Upsert writes the header, replaces its children and corrects totals.
// It is not atomic: a failed child insert leaves the header with partial
// children, and the next save clears them first.
func (r *ScheduledOrderRepository) Upsert(ctx context.Context, cat *catalog.Catalog, req UpsertRequest) (*UpsertResult, error) {
	mealType := strings.TrimSpace(req.MealType)
	shared := req.Config.Shared()
	totals := CalculateTotals(cat, req.Config)

	// --- Header ---
	existing, err := r.store.GetScheduledOrderByKey(ctx, database.GetScheduledOrderByKeyParams{
		ClientID:    req.ClientID,
		DeliveryDay: textOrNull(req.DeliveryDay),
		MealType:    mealType,
	})
	var header database.ScheduledOrder
	switch {
	case err == nil:
		header, err = r.store.UpdateScheduledOrder(ctx, database.UpdateScheduledOrderParams{
			ID:                    existing.ID,
			ServiceType:           req.Config.Type(),
			CaseID:                textOrNull(shared.CaseID),
			TotalValue:            decimalToNumeric(totals.Value),
			TotalItems:            int32(totals.Items),
			Notes:                 textOrNull(shared.Notes),
			TakeEffectDate:        dateOf(req.TakeEffectDate),
			ScheduledDeliveryDate: dateOf(req.ScheduledDeliveryDate),
			LastUpdatedBy:         textOrNull(req.UpdatedBy),
		})
		if err != nil {
			return nil, fmt.Errorf("update scheduled order: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		header, err = r.store.InsertScheduledOrder(ctx, database.InsertScheduledOrderParams{
			ClientID:              req.ClientID,
			ServiceType:           req.Config.Type(),
			CaseID:                textOrNull(shared.CaseID),
			DeliveryDay:           textOrNull(req.DeliveryDay),
			MealType:              mealType,
			TotalValue:            decimalToNumeric(totals.Value),
			TotalItems:            int32(totals.Items),
			Notes:                 textOrNull(shared.Notes),
			TakeEffectDate:        dateOf(req.TakeEffectDate),
			ScheduledDeliveryDate: dateOf(req.ScheduledDeliveryDate),
			LastUpdatedBy:         textOrNull(req.UpdatedBy),
		})
		if err != nil {
			return nil, fmt.Errorf("insert scheduled order: %w", err)
		}
	default:
		return nil, fmt.Errorf("get scheduled order: %w", err)
	}

	// --- Children ---
	persisted, err := r.replaceChildren(ctx, cat, header.ID, req.Config)
	if err != nil {
		return nil, err
	}

	// --- Totals correction ---
	result := &UpsertResult{Order: header, Totals: persisted}
	if !persisted.Equal(totals) {
		log.Printf("WARN: scheduled order %s totals corrected from %s/%d to %s/%d",
			header.ID, totals.Value.StringFixed(2), totals.Items, persisted.Value.StringFixed(2), persisted.Items)
		if err := r.store.UpdateScheduledOrderTotals(ctx, database.UpdateScheduledOrderTotalsParams{
			ID:         header.ID,
			TotalValue: decimalToNumeric(persisted.Value),
			TotalItems: int32(persisted.Items),
		}); err != nil {
			return nil, fmt.Errorf("correct scheduled order totals: %w", err)
		}
		result.Order.TotalValue = decimalToNumeric(persisted.Value)
		result.Order.TotalItems = int32(persisted.Items)
		result.Corrected = true
	}

	// --- Audit ---
	details := BuildOrderDetails(cat, req.Config)
	details.DeliveryDay = req.DeliveryDay
	details.MealType = mealType
	details.TotalValue = persisted.Value
	details.TotalItems = persisted.Items
	r.history.appendBestEffort(ctx, req.ClientID, HistoryEntry{
		Type:         enum.HistoryTypeConfigSaved,
		OrderID:      header.ID.String(),
		ServiceType:  req.Config.Type(),
		Timestamp:    r.clock(),
		Who:          req.UpdatedBy,
		OrderDetails: details,
	})

	return result, nil
}

// replaceChildren deletes every child row of the header and reinserts the
// configuration slice. It returns totals summed from the inserted rows.
func (r *ScheduledOrderRepository) replaceChildren(ctx context.Context, cat *catalog.Catalog, headerID uuid.UUID, cfg orderconfig.Configuration) (Totals, error) {
	if err := r.store.DeleteScheduledItems(ctx, headerID); err != nil {
		return Totals{}, fmt.Errorf("delete scheduled items: %w", err)
	}
	if err := r.store.DeleteScheduledVendorSelections(ctx, headerID); err != nil {
		return Totals{}, fmt.Errorf("delete scheduled vendor selections: %w", err)
	}
	if err := r.store.DeleteScheduledBoxSelections(ctx, headerID); err != nil {
		return Totals{}, fmt.Errorf("delete scheduled box selections: %w", err)
	}

	switch c := cfg.(type) {
	case *orderconfig.FoodConfig:
		return r.insertSelections(ctx, cat, headerID, foodSelections(c))
	case *orderconfig.BoxesConfig:
		return r.insertBoxes(ctx, cat, headerID, c.BoxOrders)
	case *orderconfig.CustomConfig:
		return r.insertCustom(ctx, headerID, c)
	}
	return Totals{Value: decimal.Zero}, nil
}

func (r *ScheduledOrderRepository) insertSelections(ctx context.Context, cat *catalog.Catalog, headerID uuid.UUID, sels []orderconfig.VendorSelection) (Totals, error) {
	total := Totals{Value: decimal.Zero}
	for _, sel := range MergeVendorSelections(sels) {
		vs, err := r.store.InsertScheduledVendorSelection(ctx, database.InsertScheduledVendorSelectionParams{
			ScheduledOrderID: headerID,
			VendorID:         uuidOrNull(sel.VendorID),
		})
		if err != nil {
			return Totals{}, fmt.Errorf("insert scheduled vendor selection: %w", err)
		}

		for _, itemID := range sortedKeys(sel.Items) {
			qty := sel.Items[itemID]
			id := uuidOrNull(itemID)
			if !id.Valid {
				log.Printf("WARN: scheduled order %s: item id %q is not a uuid, skipped", headerID, itemID)
				continue
			}
			unit := decimal.Zero
			entry, priced := cat.Item(itemID)
			if priced {
				unit = entry.Price()
			}
			line := unit.Mul(decimal.NewFromInt(int64(qty)))
			if _, err := r.store.InsertScheduledItem(ctx, database.InsertScheduledItemParams{
				ScheduledOrderID:  headerID,
				VendorSelectionID: vs.ID,
				ItemID:            id,
				Quantity:          int32(qty),
				UnitValue:         decimalToNumeric(unit),
				TotalValue:        decimalToNumeric(line),
				Notes:             textOrNull(sel.ItemNotes[itemID]),
			}); err != nil {
				return Totals{}, fmt.Errorf("insert scheduled item: %w", err)
			}
			if priced {
				total.Value = total.Value.Add(line)
				total.Items += qty
			}
		}
	}
	return total, nil
}

func (r *ScheduledOrderRepository) insertBoxes(ctx context.Context, cat *catalog.Catalog, headerID uuid.UUID, boxes []orderconfig.BoxOrder) (Totals, error) {
	total := Totals{Value: decimal.Zero}
	for _, b := range boxes {
		items, err := orderconfig.EncodeBoxItems(b.Items, b.ItemPrices)
		if err != nil {
			return Totals{}, fmt.Errorf("encode box items: %w", err)
		}
		vendorID := b.VendorID
		if vendorID == "" {
			if bt, ok := cat.BoxType(b.BoxTypeID); ok {
				vendorID = bt.VendorID
			}
		}
		line := boxLineTotal(cat, b)
		count := decimal.NewFromInt(int64(b.Boxes()))
		if _, err := r.store.InsertScheduledBoxSelection(ctx, database.InsertScheduledBoxSelectionParams{
			ScheduledOrderID: headerID,
			BoxTypeID:        uuidOrNull(b.BoxTypeID),
			VendorID:         uuidOrNull(vendorID),
			Quantity:         int32(b.Boxes()),
			Items:            items,
			ItemNotes:        jsonOrNil(b.ItemNotes),
			UnitValue:        decimalToNumeric(line.Div(count)),
			TotalValue:       decimalToNumeric(line),
		}); err != nil {
			return Totals{}, fmt.Errorf("insert scheduled box selection: %w", err)
		}
		total.Value = total.Value.Add(line)
		total.Items += b.Boxes()
	}
	return total, nil
}

func (r *ScheduledOrderRepository) insertCustom(ctx context.Context, headerID uuid.UUID, c *orderconfig.CustomConfig) (Totals, error) {
	vs, err := r.store.InsertScheduledVendorSelection(ctx, database.InsertScheduledVendorSelectionParams{
		ScheduledOrderID: headerID,
		VendorID:         uuidOrNull(c.VendorID),
	})
	if err != nil {
		return Totals{}, fmt.Errorf("insert scheduled vendor selection: %w", err)
	}
	price := c.Price()
	if _, err := r.store.InsertScheduledItem(ctx, database.InsertScheduledItemParams{
		ScheduledOrderID:  headerID,
		VendorSelectionID: vs.ID,
		CustomName:        textOrNull(c.CustomName),
		CustomPrice:       decimalToNumeric(price),
		Quantity:          1,
		UnitValue:         decimalToNumeric(price),
		TotalValue:        decimalToNumeric(price),
	}); err != nil {
		return Totals{}, fmt.Errorf("insert scheduled custom item: %w", err)
	}
	return Totals{Value: price, Items: 1}, nil
}

// foodSelections flattens every selection a Food/Meal slice carries.
func foodSelections(c *orderconfig.FoodConfig) []orderconfig.VendorSelection {
	out := append([]orderconfig.VendorSelection(nil), c.VendorSelections...)
	for _, day := range sortedKeys(c.DeliveryDayOrders) {
		out = append(out, c.DeliveryDayOrders[day].VendorSelections...)
	}
	for _, meal := range sortedKeys(c.MealSelections) {
		m := c.MealSelections[meal]
		out = append(out, orderconfig.VendorSelection{VendorID: m.VendorID, Items: m.Items, ItemNotes: m.ItemNotes})
	}
	return out
}

// MergeVendorSelections collapses selections that share a vendor id (the
// empty id included) into one, summing quantities and joining notes.
// First-seen order is kept.
func MergeVendorSelections(sels []orderconfig.VendorSelection) []orderconfig.VendorSelection {
	index := make(map[string]int, len(sels))
	var out []orderconfig.VendorSelection
	for _, sel := range sels {
		key := strings.TrimSpace(sel.VendorID)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, orderconfig.VendorSelection{VendorID: key})
			i = len(out) - 1
		}
		merged := &out[i]
		for id, qty := range sel.Items {
			if qty <= 0 {
				continue
			}
			if merged.Items == nil {
				merged.Items = make(orderconfig.Quantities)
			}
			merged.Items[id] += qty
		}
		for id, note := range sel.ItemNotes {
			if note == "" {
				continue
			}
			if merged.ItemNotes == nil {
				merged.ItemNotes = make(map[string]string)
			}
			if prev := merged.ItemNotes[id]; prev != "" && prev != note {
				note = prev + "; " + note
			}
			merged.ItemNotes[id] = note
		}
	}
	return out
}
