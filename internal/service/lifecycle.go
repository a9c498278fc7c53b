package service

import (
	"context"
	"encoding/json"
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
	"github.com/homedeliver/api/internal/schedule"
	"github.com/homedeliver/api/internal/ws"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	maxOrderNumberRetries = 3
	orderNumberFloor      = 100000
	lifecycleActor        = "System"
)

// errAlreadyProcessed means another sweep marked the header first.
var errAlreadyProcessed = errors.New("scheduled order already processed")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LifecycleStore defines the DB methods needed to place scheduled orders.
// Satisfied by *database.Queries (and its WithTx variant).
type LifecycleStore interface {
	SettingsStore
	BillingStore
	ListDueScheduledOrders(ctx context.Context, today pgtype.Date) ([]database.ScheduledOrder, error)
	GetMaxCreationBatchID(ctx context.Context) (int64, error)
	GetMaxOrderNumber(ctx context.Context) (int64, error)
	FindPlacedOrderByCase(ctx context.Context, arg database.FindPlacedOrderByCaseParams) (database.Order, error)
	InsertOrder(ctx context.Context, arg database.InsertOrderParams) (database.Order, error)
	SetOrderNumber(ctx context.Context, arg database.SetOrderNumberParams) (database.Order, error)
	ListScheduledVendorSelections(ctx context.Context, scheduledOrderID uuid.UUID) ([]database.ScheduledOrderVendorSelection, error)
	ListScheduledItems(ctx context.Context, scheduledOrderID uuid.UUID) ([]database.ScheduledOrderItem, error)
	ListScheduledBoxSelections(ctx context.Context, scheduledOrderID uuid.UUID) ([]database.ScheduledOrderBoxSelection, error)
	InsertOrderVendorSelection(ctx context.Context, arg database.InsertOrderVendorSelectionParams) (database.OrderVendorSelection, error)
	InsertOrderItem(ctx context.Context, arg database.InsertOrderItemParams) (database.OrderItem, error)
	InsertOrderBoxSelection(ctx context.Context, arg database.InsertOrderBoxSelectionParams) (database.OrderBoxSelection, error)
	MarkScheduledOrderProcessed(ctx context.Context, arg database.MarkScheduledOrderProcessedParams) (int64, error)
}

// NewLifecycleStore creates a LifecycleStore from a DBTX (pool or tx).
type NewLifecycleStore func(db database.DBTX) LifecycleStore

// Broadcaster pushes events to connected vendor dashboards.
type Broadcaster interface {
	BroadcastToVendor(vendorID uuid.UUID, event ws.Event)
}

// Mailer sends plain-text mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SweepResult is the outcome of one lifecycle run.
type SweepResult struct {
	ProcessedCount int              `json:"processed_count"`
	Errors         []string         `json:"errors"`
	BatchID        int64            `json:"creation_batch_id,omitempty"`
	Orders         []database.Order `json:"-"`
}

// placedOrder is one committed promotion.
type placedOrder struct {
	order     database.Order
	scheduled database.ScheduledOrder
	cfg       orderconfig.Configuration
	vendors   []uuid.UUID
	reused    bool
}

// LifecycleProcessor promotes due scheduled orders into placed orders.
type LifecycleProcessor struct {
	pool     TxBeginner
	newStore NewLifecycleStore
	catalog  *catalog.Cache
	history  *HistoryAppender
	defaults AppSettings
	clock    Clock
	hub      Broadcaster
	mailer   Mailer
}

func NewLifecycleProcessor(pool TxBeginner, newStore NewLifecycleStore, cat *catalog.Cache, history *HistoryAppender, defaults AppSettings, clock Clock) *LifecycleProcessor {
	if clock == nil {
		clock = time.Now
	}
	return &LifecycleProcessor{
		pool:     pool,
		newStore: newStore,
		catalog:  cat,
		history:  history,
		defaults: defaults,
		clock:    clock,
	}
}

// WithBroadcaster enables the per-vendor "order.placed" feed.
func (p *LifecycleProcessor) WithBroadcaster(b Broadcaster) *LifecycleProcessor {
	p.hub = b
	return p
}

// WithMailer enables the emailed sweep report.
func (p *LifecycleProcessor) WithMailer(m Mailer) *LifecycleProcessor {
	p.mailer = m
	return p
}

// RunSweep places every scheduled order whose take-effect date has arrived.
// Orders are processed independently: a failure is recorded in Errors and
// the sweep moves on. Only the initial reads can fail the whole run.
func (p *LifecycleProcessor) RunSweep(ctx context.Context) (*SweepResult, error) {
	reader := p.newStore(dbOf(p.pool))
	settings := LoadAppSettings(ctx, reader, p.defaults)
	now := p.clock()

	due, err := reader.ListDueScheduledOrders(ctx, dateOf(localTime(settings.Schedule, now)))
	if err != nil {
		return nil, fmt.Errorf("list due scheduled orders: %w", err)
	}
	result := &SweepResult{Errors: []string{}}
	if len(due) == 0 {
		return result, nil
	}

	maxBatch, err := reader.GetMaxCreationBatchID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get creation batch id: %w", err)
	}
	result.BatchID = maxBatch + 1

	cat, err := p.catalog.Get(ctx)
	if err != nil {
		log.Printf("WARN: lifecycle: catalog unavailable, history will lack names: %v", err)
		cat = catalog.New(nil, nil, nil, nil)
	}

	for _, so := range due {
		placed, err := p.processWithRetry(ctx, so, result.BatchID, now)
		if errors.Is(err, errAlreadyProcessed) {
			log.Printf("WARN: lifecycle: scheduled order %s was processed concurrently, skipped", so.ID)
			continue
		}
		if err != nil {
			msg := fmt.Sprintf("scheduled order %s (client %s): %v", so.ID, so.ClientID, err)
			log.Printf("ERROR: lifecycle: %s", msg)
			result.Errors = append(result.Errors, msg)
			continue
		}
		result.ProcessedCount++
		result.Orders = append(result.Orders, placed.order)
		p.announce(ctx, cat, placed, now)
	}

	log.Printf("lifecycle sweep batch %d: %d placed, %d errors", result.BatchID, result.ProcessedCount, len(result.Errors))
	p.sendReport(ctx, settings.ReportEmail, result, now)
	return result, nil
}

// processWithRetry retries on order_number unique violations, which happen
// when the floor correction races another writer.
func (p *LifecycleProcessor) processWithRetry(ctx context.Context, so database.ScheduledOrder, batchID int64, now time.Time) (*placedOrder, error) {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		placed, err := p.processTx(ctx, so, batchID, now)
		if err == nil {
			return placed, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// processTx promotes one scheduled order in a single transaction.
func (p *LifecycleProcessor) processTx(ctx context.Context, so database.ScheduledOrder, batchID int64, now time.Time) (*placedOrder, error) {
	// --- Begin transaction ---
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := p.newStore(tx)

	// --- Read scheduled children ---
	sels, err := store.ListScheduledVendorSelections(ctx, so.ID)
	if err != nil {
		return nil, fmt.Errorf("list vendor selections: %w", err)
	}
	items, err := store.ListScheduledItems(ctx, so.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	boxes, err := store.ListScheduledBoxSelections(ctx, so.ID)
	if err != nil {
		return nil, fmt.Errorf("list box selections: %w", err)
	}

	deliveryDate := placedDeliveryDate(so, now)
	placed := &placedOrder{
		scheduled: so,
		cfg:       configFromChildren(so, sels, items, boxes),
		vendors:   childVendors(sels, boxes),
	}

	// --- Case-id dedup ---
	// Keyed by the header slot too: one case id spans every slice of a
	// client's document, and each slice is its own placed order.
	if so.CaseID.Valid && so.CaseID.String != "" {
		existing, err := store.FindPlacedOrderByCase(ctx, database.FindPlacedOrderByCaseParams{
			ClientID:              so.ClientID,
			CaseID:                so.CaseID,
			ServiceType:           so.ServiceType,
			ScheduledDeliveryDate: dateOf(deliveryDate),
			DeliveryDay:           so.DeliveryDay,
			MealType:              so.MealType,
		})
		switch {
		case err == nil:
			placed.order, placed.reused = existing, true
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return nil, fmt.Errorf("find placed order by case: %w", err)
		}
	}

	if !placed.reused {
		// --- Insert placed order ---
		order, err := store.InsertOrder(ctx, database.InsertOrderParams{
			ClientID:              so.ClientID,
			ServiceType:           so.ServiceType,
			CaseID:                so.CaseID,
			DeliveryDay:           so.DeliveryDay,
			MealType:              so.MealType,
			ScheduledDeliveryDate: dateOf(deliveryDate),
			TotalValue:            so.TotalValue,
			TotalItems:            so.TotalItems,
			Notes:                 so.Notes,
			CreationBatchID:       pgtype.Int8{Int64: batchID, Valid: true},
			ScheduledOrderID:      pgtype.UUID{Bytes: so.ID, Valid: true},
		})
		if err != nil {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		order, err = ensureOrderNumberFloor(ctx, store, order)
		if err != nil {
			return nil, err
		}
		placed.order = order

		// --- Clone children ---
		if err := cloneChildren(ctx, store, order.ID, sels, items, boxes); err != nil {
			return nil, err
		}
	}

	// --- Billing ---
	if _, err := ensureBillingRecord(ctx, store, placed.order, lifecycleActor); err != nil {
		return nil, err
	}

	// --- Mark processed ---
	n, err := store.MarkScheduledOrderProcessed(ctx, database.MarkScheduledOrderProcessedParams{
		ID:               so.ID,
		ProcessedOrderID: pgtype.UUID{Bytes: placed.order.ID, Valid: true},
		ProcessedAt:      pgtype.Timestamptz{Time: now, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("mark scheduled order processed: %w", err)
	}
	if n == 0 {
		return nil, errAlreadyProcessed
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return placed, nil
}

// ensureOrderNumberFloor lifts an order number below the floor to
// max(existing)+1, and at least the floor.
func ensureOrderNumberFloor(ctx context.Context, store LifecycleStore, order database.Order) (database.Order, error) {
	if order.OrderNumber >= orderNumberFloor {
		return order, nil
	}
	maxNum, err := store.GetMaxOrderNumber(ctx)
	if err != nil {
		return order, fmt.Errorf("get max order number: %w", err)
	}
	next := maxNum + 1
	if next < orderNumberFloor {
		next = orderNumberFloor
	}
	updated, err := store.SetOrderNumber(ctx, database.SetOrderNumberParams{ID: order.ID, OrderNumber: next})
	if err != nil {
		return order, fmt.Errorf("set order number: %w", err)
	}
	return updated, nil
}

func cloneChildren(ctx context.Context, store LifecycleStore, orderID uuid.UUID,
	sels []database.ScheduledOrderVendorSelection, items []database.ScheduledOrderItem, boxes []database.ScheduledOrderBoxSelection) error {
	selMap := make(map[uuid.UUID]uuid.UUID, len(sels))
	for _, sel := range sels {
		ovs, err := store.InsertOrderVendorSelection(ctx, database.InsertOrderVendorSelectionParams{
			OrderID:  orderID,
			VendorID: sel.VendorID,
		})
		if err != nil {
			return fmt.Errorf("insert order vendor selection: %w", err)
		}
		selMap[sel.ID] = ovs.ID
	}

	for _, it := range items {
		selID, ok := selMap[it.VendorSelectionID]
		if !ok {
			log.Printf("WARN: lifecycle: item %s has no vendor selection, skipped", it.ID)
			continue
		}
		if _, err := store.InsertOrderItem(ctx, database.InsertOrderItemParams{
			OrderID:           orderID,
			VendorSelectionID: selID,
			ItemID:            it.ItemID,
			CustomName:        it.CustomName,
			CustomPrice:       it.CustomPrice,
			Quantity:          it.Quantity,
			UnitValue:         it.UnitValue,
			TotalValue:        it.TotalValue,
			Notes:             it.Notes,
		}); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for _, b := range boxes {
		if _, err := store.InsertOrderBoxSelection(ctx, database.InsertOrderBoxSelectionParams{
			OrderID:    orderID,
			BoxTypeID:  b.BoxTypeID,
			VendorID:   b.VendorID,
			Quantity:   b.Quantity,
			Items:      b.Items,
			ItemNotes:  b.ItemNotes,
			UnitValue:  b.UnitValue,
			TotalValue: b.TotalValue,
		}); err != nil {
			return fmt.Errorf("insert order box selection: %w", err)
		}
	}
	return nil
}

// placedDeliveryDate resolves the delivery date for a placed order: the next
// occurrence of the header's delivery day, then the stored scheduled date,
// then Undated.
func placedDeliveryDate(so database.ScheduledOrder, now time.Time) time.Time {
	if so.DeliveryDay.Valid {
		if wd, ok := schedule.ParseWeekday(so.DeliveryDay.String); ok {
			if d, ok := schedule.NextDeliveryDate([]time.Weekday{wd}, now, schedule.DefaultHorizonDays); ok {
				return d
			}
		}
	}
	if so.ScheduledDeliveryDate.Valid {
		return so.ScheduledDeliveryDate.Time
	}
	return schedule.Undated
}

// childVendors lists distinct vendor ids across selections and boxes.
func childVendors(sels []database.ScheduledOrderVendorSelection, boxes []database.ScheduledOrderBoxSelection) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	add := func(u pgtype.UUID) {
		if !u.Valid || seen[u.Bytes] {
			return
		}
		seen[u.Bytes] = true
		out = append(out, u.Bytes)
	}
	for _, s := range sels {
		add(s.VendorID)
	}
	for _, b := range boxes {
		add(b.VendorID)
	}
	return out
}

// configFromChildren rebuilds the configuration slice a header was saved from.
func configFromChildren(so database.ScheduledOrder, sels []database.ScheduledOrderVendorSelection,
	items []database.ScheduledOrderItem, boxes []database.ScheduledOrderBoxSelection) orderconfig.Configuration {
	common := orderconfig.Common{CaseID: so.CaseID.String, Notes: so.Notes.String}

	switch so.ServiceType {
	case enum.ServiceTypeBoxes:
		return &orderconfig.BoxesConfig{Common: common, BoxOrders: boxOrdersFromRows(boxes)}

	case enum.ServiceTypeCustom:
		c := &orderconfig.CustomConfig{Common: common, DeliveryDay: so.DeliveryDay.String}
		if len(sels) > 0 {
			c.VendorID = uuidString(sels[0].VendorID)
		}
		for _, it := range items {
			if it.ItemID.Valid {
				continue
			}
			c.CustomName = it.CustomName.String
			price := numericToDecimal(it.CustomPrice)
			c.CustomPrice = &price
			break
		}
		return c
	}

	vendorOf := make(map[uuid.UUID]string, len(sels))
	for _, s := range sels {
		vendorOf[s.ID] = uuidString(s.VendorID)
	}
	children := make([]childItem, 0, len(items))
	for _, it := range items {
		if !it.ItemID.Valid {
			continue
		}
		children = append(children, childItem{
			vendorID: vendorOf[it.VendorSelectionID],
			itemID:   uuidString(it.ItemID),
			quantity: int(it.Quantity),
			note:     it.Notes.String,
		})
	}
	selections := selectionsFromItems(children)

	fc := &orderconfig.FoodConfig{ServiceType: so.ServiceType, Common: common}
	switch {
	case so.MealType != enum.MealTypeDefault:
		fc.MealSelections = mealSelectionsFrom(so.MealType, selections)
	case so.DeliveryDay.Valid && so.DeliveryDay.String != "":
		fc.DeliveryDayOrders = map[string]orderconfig.DayOrder{
			so.DeliveryDay.String: {VendorSelections: selections},
		}
	default:
		fc.VendorSelections = selections
	}
	return fc
}

// childItem is one item row flattened with its vendor.
type childItem struct {
	vendorID string
	itemID   string
	quantity int
	note     string
}

// selectionsFromItems groups item rows into vendor selections, keeping the
// order vendors first appear in.
func selectionsFromItems(items []childItem) []orderconfig.VendorSelection {
	var out []orderconfig.VendorSelection
	index := make(map[string]int)
	for _, it := range items {
		if it.quantity <= 0 || it.itemID == "" {
			continue
		}
		i, ok := index[it.vendorID]
		if !ok {
			i = len(out)
			index[it.vendorID] = i
			out = append(out, orderconfig.VendorSelection{VendorID: it.vendorID, Items: orderconfig.Quantities{}})
		}
		out[i].Items[it.itemID] += it.quantity
		if it.note != "" {
			if out[i].ItemNotes == nil {
				out[i].ItemNotes = make(map[string]string)
			}
			out[i].ItemNotes[it.itemID] = it.note
		}
	}
	return out
}

// mealSelectionsFrom folds selections for one meal key. A meal holds a
// single vendor, so later vendors' items are merged into the first.
func mealSelectionsFrom(meal string, sels []orderconfig.VendorSelection) map[string]orderconfig.MealSelection {
	if len(sels) == 0 {
		return nil
	}
	m := orderconfig.MealSelection{VendorID: sels[0].VendorID, Items: orderconfig.Quantities{}}
	for _, s := range sels {
		for id, qty := range s.Items {
			m.Items[id] += qty
		}
		for id, note := range s.ItemNotes {
			if m.ItemNotes == nil {
				m.ItemNotes = make(map[string]string)
			}
			m.ItemNotes[id] = note
		}
	}
	return map[string]orderconfig.MealSelection{meal: m}
}

// boxOrdersFromRows decodes stored box selections.
func boxOrdersFromRows(rows []database.ScheduledOrderBoxSelection) []orderconfig.BoxOrder {
	out := make([]orderconfig.BoxOrder, 0, len(rows))
	for _, r := range rows {
		decoded, err := orderconfig.DecodeBoxItems(r.Items)
		if err != nil {
			log.Printf("WARN: box selection %s has unreadable items: %v", r.ID, err)
		}
		qty, prices := orderconfig.SplitBoxItems(decoded)
		b := orderconfig.BoxOrder{
			BoxTypeID:  uuidString(r.BoxTypeID),
			VendorID:   uuidString(r.VendorID),
			Quantity:   int(r.Quantity),
			Items:      qty,
			ItemPrices: prices,
		}
		if len(r.ItemNotes) > 0 {
			var notes map[string]string
			if err := json.Unmarshal(r.ItemNotes, &notes); err == nil && len(notes) > 0 {
				b.ItemNotes = notes
			}
		}
		out = append(out, b)
	}
	return out
}

// orderPlacedPayload is the websocket payload for "order.placed".
type orderPlacedPayload struct {
	OrderID               uuid.UUID `json:"order_id"`
	OrderNumber           int64     `json:"order_number"`
	ClientID              uuid.UUID `json:"client_id"`
	ServiceType           string    `json:"service_type"`
	DeliveryDay           string    `json:"delivery_day,omitempty"`
	MealType              string    `json:"meal_type"`
	ScheduledDeliveryDate string    `json:"scheduled_delivery_date,omitempty"`
	TotalValue            string    `json:"total_value"`
	TotalItems            int32     `json:"total_items"`
}

// announce records the order_created history entry and notifies vendors.
// Both are best effort.
func (p *LifecycleProcessor) announce(ctx context.Context, cat *catalog.Catalog, placed *placedOrder, now time.Time) {
	order := placed.order

	details := BuildOrderDetails(cat, placed.cfg)
	details.OrderNumber = order.OrderNumber
	details.DeliveryDay = order.DeliveryDay.String
	details.MealType = order.MealType
	details.TotalValue = numericToDecimal(order.TotalValue)
	details.TotalItems = int(order.TotalItems)
	p.history.appendBestEffort(ctx, order.ClientID, HistoryEntry{
		Type:         enum.HistoryTypeOrderCreated,
		OrderID:      order.ID.String(),
		ServiceType:  order.ServiceType,
		Timestamp:    now,
		Who:          lifecycleActor,
		OrderDetails: details,
	})

	if p.hub == nil || placed.reused {
		return
	}
	payload := orderPlacedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ClientID:    order.ClientID,
		ServiceType: order.ServiceType,
		DeliveryDay: order.DeliveryDay.String,
		MealType:    order.MealType,
		TotalValue:  numericToDecimal(order.TotalValue).StringFixed(2),
		TotalItems:  order.TotalItems,
	}
	if order.ScheduledDeliveryDate.Valid {
		payload.ScheduledDeliveryDate = order.ScheduledDeliveryDate.Time.Format("2006-01-02")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WARN: lifecycle: marshal order event: %v", err)
		return
	}
	for _, vendorID := range placed.vendors {
		p.hub.BroadcastToVendor(vendorID, ws.Event{Type: ws.EventOrderPlaced, Payload: data})
	}
}

// sendReport mails a summary of the run. Empty runs are not reported.
func (p *LifecycleProcessor) sendReport(ctx context.Context, to string, result *SweepResult, now time.Time) {
	if p.mailer == nil || to == "" {
		return
	}
	if result.ProcessedCount == 0 && len(result.Errors) == 0 {
		return
	}

	total := decimal.Zero
	var b strings.Builder
	fmt.Fprintf(&b, "Lifecycle sweep %s, batch %d\n\n", now.Format(time.RFC3339), result.BatchID)
	fmt.Fprintf(&b, "Placed orders: %d\n", result.ProcessedCount)
	for _, o := range result.Orders {
		v := numericToDecimal(o.TotalValue)
		total = total.Add(v)
		fmt.Fprintf(&b, "  #%d  %-7s  %s  %s\n", o.OrderNumber, o.ServiceType, dateString(o.ScheduledDeliveryDate), v.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total value: %s\n", total.StringFixed(2))
	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	subject := fmt.Sprintf("Order sweep: %d placed, %d errors", result.ProcessedCount, len(result.Errors))
	if err := p.mailer.Send(ctx, to, subject, b.String()); err != nil {
		log.Printf("WARN: lifecycle: sweep report not sent: %v", err)
	}
}

func dateString(d pgtype.Date) string {
	if !d.Valid {
		return "undated"
	}
	return d.Time.Format("2006-01-02")
}

// localTime moves t into the schedule's location so date math uses the
// business calendar.
func localTime(s schedule.Settings, t time.Time) time.Time {
	if s.Location == nil {
		return t
	}
	return t.In(s.Location)
}

// dbOf returns the pool for reads outside a transaction.
func dbOf(pool TxBeginner) database.DBTX {
	if db, ok := pool.(database.DBTX); ok {
		return db
	}
	return nil
}
