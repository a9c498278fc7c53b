package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/catalog"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HistoryCap is the number of entries kept per client, newest first.
const HistoryCap = 50

// HistoryEntry is one audit record in a client's order history.
type HistoryEntry struct {
	Type         string       `json:"type"`
	OrderID      string       `json:"orderId,omitempty"`
	ServiceType  string       `json:"serviceType"`
	Timestamp    time.Time    `json:"timestamp"`
	Who          string       `json:"who,omitempty"`
	OrderDetails OrderDetails `json:"orderDetails"`
}

// OrderDetails is a human-readable snapshot with names resolved.
type OrderDetails struct {
	OrderNumber int64           `json:"orderNumber,omitempty"`
	CaseID      string          `json:"caseId,omitempty"`
	DeliveryDay string          `json:"deliveryDay,omitempty"`
	MealType    string          `json:"mealType,omitempty"`
	Vendors     []VendorDetail  `json:"vendors,omitempty"`
	Boxes       []BoxDetail     `json:"boxes,omitempty"`
	CustomName  string          `json:"customName,omitempty"`
	TotalValue  decimal.Decimal `json:"totalValue"`
	TotalItems  int             `json:"totalItems"`
	Notes       string          `json:"notes,omitempty"`
}

type VendorDetail struct {
	VendorID   string       `json:"vendorId,omitempty"`
	VendorName string       `json:"vendorName,omitempty"`
	Day        string       `json:"day,omitempty"`
	Meal       string       `json:"meal,omitempty"`
	Items      []ItemDetail `json:"items"`
}

type ItemDetail struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
	Note     string          `json:"note,omitempty"`
}

type BoxDetail struct {
	BoxTypeID   string          `json:"boxTypeId,omitempty"`
	BoxTypeName string          `json:"boxTypeName,omitempty"`
	VendorName  string          `json:"vendorName,omitempty"`
	Quantity    int             `json:"quantity"`
	Items       []ItemDetail    `json:"items,omitempty"`
	Total       decimal.Decimal `json:"total"`
}

// BuildOrderDetails resolves vendor and item names for cfg.
func BuildOrderDetails(cat *catalog.Catalog, cfg orderconfig.Configuration) OrderDetails {
	totals := CalculateTotals(cat, cfg)
	d := OrderDetails{
		CaseID:     cfg.Shared().CaseID,
		Notes:      cfg.Shared().Notes,
		TotalValue: totals.Value,
		TotalItems: totals.Items,
	}

	switch c := cfg.(type) {
	case *orderconfig.FoodConfig:
		for _, sel := range c.VendorSelections {
			d.Vendors = append(d.Vendors, vendorDetail(cat, sel.VendorID, "", sel.Items, sel.ItemNotes))
		}
		for _, day := range sortedKeys(c.DeliveryDayOrders) {
			for _, sel := range c.DeliveryDayOrders[day].VendorSelections {
				vd := vendorDetail(cat, sel.VendorID, "", sel.Items, sel.ItemNotes)
				vd.Day = day
				d.Vendors = append(d.Vendors, vd)
			}
		}
		for _, meal := range sortedKeys(c.MealSelections) {
			m := c.MealSelections[meal]
			d.Vendors = append(d.Vendors, vendorDetail(cat, m.VendorID, meal, m.Items, m.ItemNotes))
		}
	case *orderconfig.BoxesConfig:
		for _, b := range c.BoxOrders {
			bd := BoxDetail{
				BoxTypeID: b.BoxTypeID,
				Quantity:  b.Boxes(),
				Total:     boxLineTotal(cat, b),
			}
			vendorID := b.VendorID
			if bt, ok := cat.BoxType(b.BoxTypeID); ok {
				bd.BoxTypeName = bt.Name
				if vendorID == "" {
					vendorID = bt.VendorID
				}
			}
			if vendorID != "" {
				bd.VendorName = cat.VendorName(vendorID)
			}
			bd.Items = itemDetails(cat, b.Items, b.ItemNotes)
			d.Boxes = append(d.Boxes, bd)
		}
	case *orderconfig.CustomConfig:
		d.CustomName = c.CustomName
		d.DeliveryDay = c.DeliveryDay
		if c.VendorID != "" {
			d.Vendors = []VendorDetail{{VendorID: c.VendorID, VendorName: cat.VendorName(c.VendorID), Items: []ItemDetail{}}}
		}
	}
	return d
}

func vendorDetail(cat *catalog.Catalog, vendorID, meal string, items orderconfig.Quantities, notes map[string]string) VendorDetail {
	vd := VendorDetail{VendorID: vendorID, Meal: meal, Items: itemDetails(cat, items, notes)}
	if vendorID != "" {
		vd.VendorName = cat.VendorName(vendorID)
	}
	return vd
}

func itemDetails(cat *catalog.Catalog, items orderconfig.Quantities, notes map[string]string) []ItemDetail {
	out := make([]ItemDetail, 0, len(items))
	for _, id := range sortedKeys(items) {
		qty := items[id]
		it := ItemDetail{ItemID: id, Name: id, Quantity: qty, Price: decimal.Zero, Total: decimal.Zero, Note: notes[id]}
		if e, ok := cat.Item(id); ok {
			it.Name = e.Name
			it.Price = e.Price()
			it.Total = e.Price().Mul(decimal.NewFromInt(int64(qty)))
		}
		out = append(out, it)
	}
	return out
}

// HistoryStore defines the DB methods needed to maintain order history.
// Satisfied by *database.Queries.
type HistoryStore interface {
	AppendOrderHistory(ctx context.Context, arg database.AppendOrderHistoryParams) error
	GetClientOrderHistory(ctx context.Context, id uuid.UUID) ([]byte, error)
	SetClientOrderHistory(ctx context.Context, arg database.SetClientOrderHistoryParams) error
}

// HistoryAppender maintains the capped per-client audit log.
type HistoryAppender struct {
	store HistoryStore
}

func NewHistoryAppender(store HistoryStore) *HistoryAppender {
	return &HistoryAppender{store: store}
}

// Append prepends entry to the client's history. It tries the atomic SQL
// function first and falls back to read-prepend-truncate-write. The fallback
// can lose an entry when two writers race; callers treat history as best
// effort.
func (h *HistoryAppender) Append(ctx context.Context, clientID uuid.UUID, entry HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	err = h.store.AppendOrderHistory(ctx, database.AppendOrderHistoryParams{
		ClientID: clientID,
		Entry:    data,
		Cap:      HistoryCap,
	})
	if err == nil {
		return nil
	}
	log.Printf("WARN: atomic history append for client %s failed, using fallback: %v", clientID, err)

	current, err := h.store.GetClientOrderHistory(ctx, clientID)
	if err != nil {
		return fmt.Errorf("read order history: %w", err)
	}
	var entries []json.RawMessage
	if len(current) > 0 {
		if err := json.Unmarshal(current, &entries); err != nil {
			log.Printf("WARN: order history for client %s is not an array, resetting: %v", clientID, err)
			entries = nil
		}
	}

	entries = append([]json.RawMessage{data}, entries...)
	if len(entries) > HistoryCap {
		entries = entries[:HistoryCap]
	}
	merged, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal order history: %w", err)
	}
	if err := h.store.SetClientOrderHistory(ctx, database.SetClientOrderHistoryParams{
		ID:           clientID,
		OrderHistory: merged,
	}); err != nil {
		return fmt.Errorf("write order history: %w", err)
	}
	return nil
}

// List returns the client's history, newest first.
func (h *HistoryAppender) List(ctx context.Context, clientID uuid.UUID) ([]HistoryEntry, error) {
	data, err := h.store.GetClientOrderHistory(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("read order history: %w", err)
	}
	entries := []HistoryEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode order history: %w", err)
	}
	return entries, nil
}

// appendBestEffort logs instead of failing the caller.
func (h *HistoryAppender) appendBestEffort(ctx context.Context, clientID uuid.UUID, entry HistoryEntry) {
	if h == nil {
		return
	}
	if err := h.Append(ctx, clientID, entry); err != nil {
		log.Printf("WARN: order history for client %s not recorded: %v", clientID, err)
	}
}
