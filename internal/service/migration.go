package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/catalog"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/enum"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// DefaultMigrationPageSize matches the row cap of the client listing.
const DefaultMigrationPageSize = 1000

var (
	ErrNoMigrationData = errors.New("no order data to migrate after merging sources")
	ErrInvalidDay      = errors.New("invalid delivery day")
)

// ScheduledSource is one legacy scheduled header with its children decoded.
type ScheduledSource struct {
	ServiceType string
	CaseID      string
	DeliveryDay string
	MealType    string
	Selections  []orderconfig.VendorSelection
	Boxes       []orderconfig.BoxOrder
}

// LegacySources holds every place a client's order may have been kept
// before the configuration document existed.
type LegacySources struct {
	ServiceType string
	Scheduled   []ScheduledSource
	ActiveOrder []byte
	Food        *database.ClientFoodOrder
	Meal        *database.ClientMealOrder
	Boxes       []database.ClientBoxOrder
}

// Names lists the sources that hold anything, for display.
func (s LegacySources) Names() []string {
	var out []string
	if len(s.Scheduled) > 0 {
		out = append(out, "Scheduled orders")
	}
	if len(s.ActiveOrder) > 0 && string(s.ActiveOrder) != "null" && string(s.ActiveOrder) != "{}" {
		out = append(out, "Active order")
	}
	if s.Food != nil {
		out = append(out, "Food orders")
	}
	if s.Meal != nil {
		out = append(out, "Meal orders")
	}
	if len(s.Boxes) > 0 {
		out = append(out, "Box orders")
	}
	return out
}

// BuildMergedConfig merges the legacy sources into one document. Sources
// are applied in order (scheduled tables, active order, food, meal and box
// tables, custom fields) and each only overwrites the keys it defines. It
// returns nil when no source contributes anything.
func BuildMergedConfig(src LegacySources) *orderconfig.RawDocument {
	doc := mergeScheduled(src.Scheduled)
	if doc.ServiceType == "" {
		doc.ServiceType = src.ServiceType
	}

	// --- Active order document ---
	var active orderconfig.RawDocument
	if len(src.ActiveOrder) > 0 {
		parsed, err := orderconfig.Parse(src.ActiveOrder)
		if err != nil {
			log.Printf("WARN: migration: active order unreadable: %v", err)
		} else {
			active = parsed
			overlayDocument(&doc, active)
		}
	}

	// --- Legacy per-service tables ---
	if f := src.Food; f != nil {
		var days map[string]orderconfig.DayOrder
		if len(f.DeliveryDayOrders) > 0 {
			if err := json.Unmarshal(f.DeliveryDayOrders, &days); err != nil {
				log.Printf("WARN: migration: food orders for client %s unreadable: %v", f.ClientID, err)
			}
		}
		if len(days) > 0 {
			doc.ServiceType = enum.ServiceTypeFood
			doc.DeliveryDayOrders = days
		}
		if f.CaseID.Valid && f.CaseID.String != "" {
			doc.CaseID = f.CaseID.String
			if len(doc.DeliveryDayOrders) == 0 {
				doc.ServiceType = enum.ServiceTypeFood
			}
		}
	}

	if m := src.Meal; m != nil {
		var meals map[string]orderconfig.MealSelection
		if len(m.MealSelections) > 0 {
			if err := json.Unmarshal(m.MealSelections, &meals); err != nil {
				log.Printf("WARN: migration: meal orders for client %s unreadable: %v", m.ClientID, err)
			}
		}
		if len(meals) > 0 {
			doc.MealSelections = meals
			if src.ServiceType == enum.ServiceTypeMeal || src.ServiceType == enum.ServiceTypeFood {
				doc.ServiceType = src.ServiceType
			}
		}
		if m.CaseID.Valid && m.CaseID.String != "" {
			doc.CaseID = m.CaseID.String
			if len(doc.MealSelections) == 0 {
				doc.ServiceType = enum.ServiceTypeMeal
			}
		}
	}

	if len(src.Boxes) > 0 {
		doc.ServiceType = enum.ServiceTypeBoxes
		doc.BoxOrders = legacyBoxOrders(src.Boxes)
		if c := src.Boxes[0].CaseID; c.Valid && c.String != "" {
			doc.CaseID = c.String
		}
	} else if src.ServiceType == enum.ServiceTypeBoxes && doc.CaseID != "" {
		doc.ServiceType = enum.ServiceTypeBoxes
	}

	// --- Custom fields live only on the active order ---
	if src.ServiceType == enum.ServiceTypeCustom && (active.CustomName != "" || active.CustomPrice != nil) {
		doc.ServiceType = enum.ServiceTypeCustom
		doc.CustomName = active.CustomName
		doc.CustomPrice = active.CustomPrice
		doc.DeliveryDay = active.DeliveryDay
		doc.VendorID = active.VendorID
	}

	if !doc.HasContent() && !(doc.CaseID != "" && doc.ServiceType != "") {
		return nil
	}
	return &doc
}

// mergeScheduled folds legacy scheduled headers into a document: meal
// headers into mealSelections, day headers into deliveryDayOrders, the rest
// into the flat selections and box orders.
func mergeScheduled(headers []ScheduledSource) orderconfig.RawDocument {
	var doc orderconfig.RawDocument
	for _, h := range headers {
		if doc.ServiceType == "" {
			doc.ServiceType = h.ServiceType
		}
		if doc.CaseID == "" {
			doc.CaseID = h.CaseID
		}
		if len(h.Boxes) > 0 {
			doc.BoxOrders = append(doc.BoxOrders, h.Boxes...)
		}
		if len(h.Selections) == 0 {
			continue
		}
		switch {
		case h.MealType != enum.MealTypeDefault:
			if doc.MealSelections == nil {
				doc.MealSelections = make(map[string]orderconfig.MealSelection)
			}
			for k, v := range mealSelectionsFrom(h.MealType, h.Selections) {
				doc.MealSelections[k] = v
			}
		case h.DeliveryDay != "":
			if doc.DeliveryDayOrders == nil {
				doc.DeliveryDayOrders = make(map[string]orderconfig.DayOrder)
			}
			day := doc.DeliveryDayOrders[h.DeliveryDay]
			day.VendorSelections = append(day.VendorSelections, h.Selections...)
			doc.DeliveryDayOrders[h.DeliveryDay] = day
		default:
			doc.VendorSelections = append(doc.VendorSelections, h.Selections...)
		}
	}
	return doc
}

// overlayDocument copies every key src defines onto dst.
func overlayDocument(dst *orderconfig.RawDocument, src orderconfig.RawDocument) {
	if dst.ServiceType == "" {
		dst.ServiceType = src.ServiceType
	}
	if src.CaseID != "" {
		dst.CaseID = src.CaseID
	}
	if src.Notes != "" {
		dst.Notes = src.Notes
	}
	if len(src.VendorSelections) > 0 {
		dst.VendorSelections = src.VendorSelections
	}
	if len(src.DeliveryDayOrders) > 0 {
		dst.DeliveryDayOrders = src.DeliveryDayOrders
	}
	if len(src.MealSelections) > 0 {
		dst.MealSelections = src.MealSelections
	}
	if len(src.BoxOrders) > 0 {
		dst.BoxOrders = src.BoxOrders
	}
	if src.VendorID != "" {
		dst.VendorID = src.VendorID
	}
	if src.DeliveryDay != "" {
		dst.DeliveryDay = src.DeliveryDay
	}
	if src.CustomName != "" {
		dst.CustomName = src.CustomName
	}
	if src.CustomPrice != nil {
		dst.CustomPrice = src.CustomPrice
	}
	if src.BoxTypeID != "" {
		dst.BoxTypeID = src.BoxTypeID
	}
	if src.BoxQuantity > 0 {
		dst.BoxQuantity = src.BoxQuantity
	}
	if len(src.Items) > 0 {
		dst.Items = src.Items
	}
	if len(src.ItemPrices) > 0 {
		dst.ItemPrices = src.ItemPrices
	}
}

func legacyBoxOrders(rows []database.ClientBoxOrder) []orderconfig.BoxOrder {
	out := make([]orderconfig.BoxOrder, 0, len(rows))
	for _, r := range rows {
		decoded, err := orderconfig.DecodeBoxItems(r.Items)
		if err != nil {
			log.Printf("WARN: migration: box order %s items unreadable: %v", r.ID, err)
		}
		qty, prices := orderconfig.SplitBoxItems(decoded)
		b := orderconfig.BoxOrder{
			BoxTypeID:  uuidString(r.BoxTypeID),
			VendorID:   uuidString(r.VendorID),
			Items:      qty,
			ItemPrices: prices,
		}
		if r.Quantity.Valid {
			b.Quantity = int(r.Quantity.Int32)
		}
		if len(r.ItemNotes) > 0 {
			var notes map[string]string
			if err := json.Unmarshal(r.ItemNotes, &notes); err == nil {
				b.ItemNotes = notes
			}
		}
		out = append(out, b)
	}
	return out
}

// DayFix describes an invalid delivery day and the days the vendor serves.
type DayFix struct {
	BadDay        string   `json:"bad_day"`
	VendorID      string   `json:"vendor_id"`
	VendorName    string   `json:"vendor_name"`
	AvailableDays []string `json:"available_days"`
}

// Validation is the outcome of validating a migration candidate.
type Validation struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Fix     *DayFix `json:"invalid_day_fix,omitempty"`
}

func validationOK() Validation {
	return Validation{Status: enum.ValidationValid, Message: "Ready to migrate"}
}

// ValidateCandidate checks that every vendor the document references exists
// and delivers on the days it is scheduled for.
func ValidateCandidate(doc *orderconfig.RawDocument, serviceType string, cat *catalog.Catalog) Validation {
	if doc == nil {
		return Validation{Status: enum.ValidationNoOrderData, Message: "No order content after merging sources"}
	}
	if doc.ServiceType != "" {
		serviceType = doc.ServiceType
	}
	cfg, err := orderconfig.Normalize(*doc, serviceType)
	if err != nil {
		return Validation{Status: enum.ValidationNoOrderData, Message: err.Error()}
	}
	caseOnly := cfg.Shared().CaseID != ""

	switch c := cfg.(type) {
	case *orderconfig.BoxesConfig:
		if len(c.BoxOrders) == 0 {
			if caseOnly {
				return validationOK()
			}
			return Validation{Status: enum.ValidationNoOrderData, Message: "Service is Boxes but no box orders found"}
		}
		for _, b := range c.BoxOrders {
			if b.VendorID == "" {
				continue
			}
			if _, ok := cat.Vendor(b.VendorID); !ok {
				return invalidVendor(b.VendorID)
			}
		}
		return validationOK()

	case *orderconfig.FoodConfig:
		sels := foodSelections(c)
		if len(sels) == 0 {
			if caseOnly {
				return validationOK()
			}
			return Validation{Status: enum.ValidationNoOrderData, Message: fmt.Sprintf("Service is %s but no order data found", c.Type())}
		}
		hasVendor := false
		for _, sel := range sels {
			if sel.VendorID == "" {
				continue
			}
			hasVendor = true
			if _, ok := cat.Vendor(sel.VendorID); !ok {
				return invalidVendor(sel.VendorID)
			}
		}
		if !hasVendor && !caseOnly {
			return Validation{Status: enum.ValidationMissingVendor, Message: "No vendor selected"}
		}
		for _, day := range sortedKeys(c.DeliveryDayOrders) {
			for _, sel := range c.DeliveryDayOrders[day].VendorSelections {
				if v, ok := cat.Vendor(sel.VendorID); ok && !servesDay(v, day) {
					return invalidDay(v, day)
				}
			}
		}
		return validationOK()

	case *orderconfig.CustomConfig:
		if c.CustomName == "" && c.CustomPrice == nil && !caseOnly {
			return Validation{Status: enum.ValidationNoOrderData, Message: "Custom order has no name or price"}
		}
		if c.VendorID == "" {
			return validationOK()
		}
		v, ok := cat.Vendor(c.VendorID)
		if !ok {
			return Validation{Status: enum.ValidationInvalidVendor, Message: "Custom order vendor not found"}
		}
		if c.DeliveryDay != "" && !servesDay(v, c.DeliveryDay) {
			return invalidDay(v, c.DeliveryDay)
		}
		return validationOK()
	}
	return validationOK()
}

// servesDay is true when the vendor delivers on day or has no days on file.
func servesDay(v catalog.Vendor, day string) bool {
	return len(v.DeliveryDays) == 0 || v.DeliversOn(day)
}

func invalidVendor(id string) Validation {
	return Validation{Status: enum.ValidationInvalidVendor, Message: fmt.Sprintf("Vendor %s not found", id)}
}

func invalidDay(v catalog.Vendor, day string) Validation {
	return Validation{
		Status:  enum.ValidationInvalidDay,
		Message: fmt.Sprintf("Vendor %s does not deliver on %s", v.Name, day),
		Fix: &DayFix{
			BadDay:        day,
			VendorID:      v.ID,
			VendorName:    v.Name,
			AvailableDays: append([]string{}, v.DeliveryDays...),
		},
	}
}

// DayRename replaces one delivery day key during migration.
type DayRename struct {
	BadDay string `json:"bad_day"`
	NewDay string `json:"new_day"`
}

// applyDayRename moves the bad day's selections under the new day, merging
// with any selections already there. Custom documents carry the day at the
// top level instead.
func applyDayRename(doc *orderconfig.RawDocument, r DayRename) error {
	newDay, ok := orderconfig.CanonicalDay(r.NewDay)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDay, r.NewDay)
	}
	bad := strings.TrimSpace(r.BadDay)

	if len(doc.DeliveryDayOrders) > 0 {
		next := make(map[string]orderconfig.DayOrder, len(doc.DeliveryDayOrders))
		for _, day := range sortedKeys(doc.DeliveryDayOrders) {
			key := day
			if strings.EqualFold(strings.TrimSpace(day), bad) {
				key = newDay
			}
			merged := next[key]
			merged.VendorSelections = append(merged.VendorSelections, doc.DeliveryDayOrders[day].VendorSelections...)
			next[key] = merged
		}
		doc.DeliveryDayOrders = next
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(doc.DeliveryDay), bad) {
		doc.DeliveryDay = newDay
	}
	return nil
}

// MigrationCandidate is one client whose legacy data can be migrated.
type MigrationCandidate struct {
	ClientID    uuid.UUID                 `json:"client_id"`
	ClientName  string                    `json:"client_name"`
	ServiceType string                    `json:"service_type"`
	Sources     []string                  `json:"sources_read"`
	Validation  Validation                `json:"validation"`
	Preview     orderconfig.Configuration `json:"preview"`
	Details     *OrderDetails             `json:"order_details,omitempty"`
}

// MigrationStore defines the DB methods needed to read legacy order data.
// Satisfied by *database.Queries.
type MigrationStore interface {
	GetClient(ctx context.Context, id uuid.UUID) (database.Client, error)
	ListClientsPage(ctx context.Context, arg database.ListClientsPageParams) ([]database.Client, error)
	ListActiveScheduledOrdersForClients(ctx context.Context, clientIds []uuid.UUID) ([]database.ScheduledOrder, error)
	ListScheduledItemsForOrders(ctx context.Context, scheduledOrderIds []uuid.UUID) ([]database.ListScheduledItemsForOrdersRow, error)
	ListScheduledBoxSelectionsForOrders(ctx context.Context, scheduledOrderIds []uuid.UUID) ([]database.ScheduledOrderBoxSelection, error)
	ListClientFoodOrders(ctx context.Context, clientIds []uuid.UUID) ([]database.ClientFoodOrder, error)
	ListClientMealOrders(ctx context.Context, clientIds []uuid.UUID) ([]database.ClientMealOrder, error)
	ListClientBoxOrders(ctx context.Context, clientIds []uuid.UUID) ([]database.ClientBoxOrder, error)
}

// MigrationService reconciles legacy order data into configuration documents.
type MigrationService struct {
	store    MigrationStore
	configs  *ConfigService
	catalog  *catalog.Cache
	pageSize int
}

func NewMigrationService(store MigrationStore, configs *ConfigService, cat *catalog.Cache, pageSize int) *MigrationService {
	if pageSize <= 0 {
		pageSize = DefaultMigrationPageSize
	}
	return &MigrationService{store: store, configs: configs, catalog: cat, pageSize: pageSize}
}

// GetMigrationCandidates pages through every client and reports the ones
// without a saved configuration.
func (s *MigrationService) GetMigrationCandidates(ctx context.Context) ([]MigrationCandidate, error) {
	cat, err := s.catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	candidates := []MigrationCandidate{}
	for offset := 0; ; offset += s.pageSize {
		page, err := s.store.ListClientsPage(ctx, database.ListClientsPageParams{
			Limit:  int32(s.pageSize),
			Offset: int32(offset),
		})
		if err != nil {
			return nil, fmt.Errorf("list clients: %w", err)
		}

		var pending []database.Client
		for _, c := range page {
			if !hasSavedConfig(c) {
				pending = append(pending, c)
			}
		}
		if len(pending) > 0 {
			sources, err := s.loadSources(ctx, pending)
			if err != nil {
				return nil, err
			}
			for _, c := range pending {
				candidates = append(candidates, buildCandidate(cat, c, sources[c.ID]))
			}
		}

		if len(page) < s.pageSize {
			break
		}
	}
	return candidates, nil
}

func buildCandidate(cat *catalog.Catalog, c database.Client, src LegacySources) MigrationCandidate {
	doc := BuildMergedConfig(src)
	cand := MigrationCandidate{
		ClientID:    c.ID,
		ClientName:  c.FullName,
		ServiceType: c.ServiceType,
		Sources:     src.Names(),
		Validation:  ValidateCandidate(doc, c.ServiceType, cat),
	}
	if cand.Sources == nil {
		cand.Sources = []string{}
	}
	if doc == nil {
		return cand
	}
	serviceType := doc.ServiceType
	if serviceType == "" {
		serviceType = c.ServiceType
	}
	if cfg, err := orderconfig.Normalize(*doc, serviceType); err == nil {
		cand.Preview = cfg
		details := BuildOrderDetails(cat, cfg)
		cand.Details = &details
	}
	return cand
}

// ApplyMigration merges the client's legacy data, optionally renames one
// delivery day, and saves the result as the client's configuration.
func (s *MigrationService) ApplyMigration(ctx context.Context, clientID uuid.UUID, rename *DayRename, actor string) (*SaveResult, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	sources, err := s.loadSources(ctx, []database.Client{client})
	if err != nil {
		return nil, err
	}
	doc := BuildMergedConfig(sources[client.ID])
	if doc == nil {
		return nil, ErrNoMigrationData
	}
	if rename != nil {
		if err := applyDayRename(doc, *rename); err != nil {
			return nil, err
		}
	}
	if doc.ServiceType == "" {
		doc.ServiceType = client.ServiceType
	}

	return s.configs.SaveConfiguration(ctx, SaveRequest{ClientID: clientID, Document: *doc, Actor: actor})
}

// loadSources fetches every legacy table for the clients concurrently.
func (s *MigrationService) loadSources(ctx context.Context, clients []database.Client) (map[uuid.UUID]LegacySources, error) {
	ids := make([]uuid.UUID, len(clients))
	for i, c := range clients {
		ids[i] = c.ID
	}

	var (
		headers   []database.ScheduledOrder
		items     []database.ListScheduledItemsForOrdersRow
		boxSels   []database.ScheduledOrderBoxSelection
		food      []database.ClientFoodOrder
		meals     []database.ClientMealOrder
		boxOrders []database.ClientBoxOrder
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		headers, err = s.store.ListActiveScheduledOrdersForClients(gctx, ids)
		if err != nil {
			return fmt.Errorf("list scheduled orders: %w", err)
		}
		if len(headers) == 0 {
			return nil
		}
		headerIDs := make([]uuid.UUID, len(headers))
		for i, h := range headers {
			headerIDs[i] = h.ID
		}
		if items, err = s.store.ListScheduledItemsForOrders(gctx, headerIDs); err != nil {
			return fmt.Errorf("list scheduled items: %w", err)
		}
		if boxSels, err = s.store.ListScheduledBoxSelectionsForOrders(gctx, headerIDs); err != nil {
			return fmt.Errorf("list scheduled box selections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if food, err = s.store.ListClientFoodOrders(gctx, ids); err != nil {
			return fmt.Errorf("list client food orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if meals, err = s.store.ListClientMealOrders(gctx, ids); err != nil {
			return fmt.Errorf("list client meal orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if boxOrders, err = s.store.ListClientBoxOrders(gctx, ids); err != nil {
			return fmt.Errorf("list client box orders: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]LegacySources, len(clients))
	for _, c := range clients {
		out[c.ID] = LegacySources{ServiceType: c.ServiceType, ActiveOrder: c.ActiveOrder}
	}

	itemsByHeader := make(map[uuid.UUID][]childItem)
	for _, it := range items {
		itemsByHeader[it.ScheduledOrderID] = append(itemsByHeader[it.ScheduledOrderID], childItem{
			vendorID: uuidString(it.VendorID),
			itemID:   uuidString(it.ItemID),
			quantity: int(it.Quantity),
			note:     it.Notes.String,
		})
	}
	boxesByHeader := make(map[uuid.UUID][]database.ScheduledOrderBoxSelection)
	for _, b := range boxSels {
		boxesByHeader[b.ScheduledOrderID] = append(boxesByHeader[b.ScheduledOrderID], b)
	}
	for _, h := range headers {
		src := out[h.ClientID]
		src.Scheduled = append(src.Scheduled, ScheduledSource{
			ServiceType: h.ServiceType,
			CaseID:      h.CaseID.String,
			DeliveryDay: h.DeliveryDay.String,
			MealType:    h.MealType,
			Selections:  selectionsFromItems(itemsByHeader[h.ID]),
			Boxes:       boxOrdersFromRows(boxesByHeader[h.ID]),
		})
		out[h.ClientID] = src
	}
	for i := range food {
		src := out[food[i].ClientID]
		if src.Food == nil {
			src.Food = &food[i]
		}
		out[food[i].ClientID] = src
	}
	for i := range meals {
		src := out[meals[i].ClientID]
		if src.Meal == nil {
			src.Meal = &meals[i]
		}
		out[meals[i].ClientID] = src
	}
	for _, b := range boxOrders {
		src := out[b.ClientID]
		src.Boxes = append(src.Boxes, b)
		out[b.ClientID] = src
	}
	return out, nil
}

// hasSavedConfig reports whether the client already has a configuration
// document with any content.
func hasSavedConfig(c database.Client) bool {
	if len(c.OrderConfig) == 0 {
		return false
	}
	doc, err := orderconfig.Parse(c.OrderConfig)
	if err != nil {
		return false
	}
	return doc.ServiceType != "" || doc.CaseID != "" || doc.HasContent()
}
