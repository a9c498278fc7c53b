package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/catalog"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/enum"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/homedeliver/api/internal/schedule"
	"github.com/jackc/pgx/v5"
)

var ErrClientNotFound = errors.New("client not found")

// ConfigStore defines the DB methods needed to save a client's configuration.
// Satisfied by *database.Queries.
type ConfigStore interface {
	SettingsStore
	GetClient(ctx context.Context, id uuid.UUID) (database.Client, error)
	UpdateClientOrderConfig(ctx context.Context, arg database.UpdateClientOrderConfigParams) error
	ListActiveScheduledOrdersByClient(ctx context.Context, clientID uuid.UUID) ([]database.ScheduledOrder, error)
	DeleteScheduledOrder(ctx context.Context, id uuid.UUID) error
}

// SaveRequest is a configuration save from a user or the migration tool.
type SaveRequest struct {
	ClientID uuid.UUID
	Document orderconfig.RawDocument
	Actor    string
}

// SaveResult is the normalized document and every header it produced.
type SaveResult struct {
	Config  orderconfig.Configuration
	Headers []UpsertResult
	Removed int
}

// ConfigService is the entry point for saving a client's order configuration.
type ConfigService struct {
	store    ConfigStore
	repo     *ScheduledOrderRepository
	catalog  *catalog.Cache
	defaults AppSettings
	clock    Clock
	docs     *documentCache
}

func NewConfigService(store ConfigStore, repo *ScheduledOrderRepository, cat *catalog.Cache, defaults AppSettings, clock Clock) *ConfigService {
	if clock == nil {
		clock = time.Now
	}
	return &ConfigService{
		store:    store,
		repo:     repo,
		catalog:  cat,
		defaults: defaults,
		clock:    clock,
		docs:     newDocumentCache(),
	}
}

// SaveConfiguration normalizes the document, stores it on the client and
// syncs one scheduled header per delivery day / meal type.
func (s *ConfigService) SaveConfiguration(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	client, err := s.store.GetClient(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	serviceType := req.Document.ServiceType
	if serviceType == "" {
		serviceType = client.ServiceType
	}
	cfg, err := orderconfig.Normalize(req.Document, serviceType)
	if err != nil {
		return nil, err
	}

	// --- Persist the document ---
	doc, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal order config: %w", err)
	}
	if err := s.store.UpdateClientOrderConfig(ctx, database.UpdateClientOrderConfigParams{
		ID:          req.ClientID,
		OrderConfig: doc,
		ServiceType: cfg.Type(),
	}); err != nil {
		return nil, fmt.Errorf("update client order config: %w", err)
	}
	s.docs.invalidate(req.ClientID)

	// --- Sync scheduled headers ---
	cat, err := s.catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if hasUnknownRefs(cat, cfg) {
		// The snapshot may predate a vendor or item added since; reload once.
		s.catalog.Invalidate()
		if cat, err = s.catalog.Get(ctx); err != nil {
			return nil, fmt.Errorf("reload catalog: %w", err)
		}
	}
	settings := LoadAppSettings(ctx, s.store, s.defaults)
	now := s.clock()
	takeEffect := schedule.TakeEffectDate(settings.Schedule, now)

	result := &SaveResult{Config: cfg}
	keep := make(map[headerKey]bool)
	for _, slice := range splitHeaders(cfg) {
		scheduled, effective := schedule.Undated, schedule.Undated
		if d, ok := scheduledDate(cat, slice, now); ok {
			scheduled, effective = d, takeEffect
		}
		res, err := s.repo.Upsert(ctx, cat, UpsertRequest{
			ClientID:              req.ClientID,
			DeliveryDay:           slice.key.day,
			MealType:              slice.key.meal,
			Config:                slice.cfg,
			TakeEffectDate:        effective,
			ScheduledDeliveryDate: scheduled,
			UpdatedBy:             req.Actor,
		})
		if err != nil {
			return nil, err
		}
		keep[slice.key] = true
		result.Headers = append(result.Headers, *res)
	}

	// --- Drop headers the new document no longer produces ---
	active, err := s.store.ListActiveScheduledOrdersByClient(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled orders: %w", err)
	}
	for _, so := range active {
		if keep[headerKey{day: so.DeliveryDay.String, meal: so.MealType}] {
			continue
		}
		if err := s.store.DeleteScheduledOrder(ctx, so.ID); err != nil {
			return nil, fmt.Errorf("delete stale scheduled order: %w", err)
		}
		result.Removed++
	}

	return result, nil
}

// GetConfiguration returns the client's normalized document, or nil when
// none has been saved.
func (s *ConfigService) GetConfiguration(ctx context.Context, clientID uuid.UUID) (orderconfig.Configuration, error) {
	if cfg, ok := s.docs.get(clientID); ok {
		return cfg, nil
	}

	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	if len(client.OrderConfig) == 0 {
		return nil, nil
	}
	doc, err := orderconfig.Parse(client.OrderConfig)
	if err != nil {
		return nil, err
	}
	serviceType := doc.ServiceType
	if serviceType == "" {
		serviceType = client.ServiceType
	}
	cfg, err := orderconfig.Normalize(doc, serviceType)
	if err != nil {
		return nil, err
	}
	s.docs.put(clientID, cfg)
	return cfg, nil
}

type headerKey struct {
	day  string
	meal string
}

type headerSlice struct {
	key headerKey
	cfg orderconfig.Configuration
}

// splitHeaders cuts a configuration into the slices stored as separate
// scheduled headers: one per delivery day, one per meal type, and one for
// everything not keyed by either.
func splitHeaders(cfg orderconfig.Configuration) []headerSlice {
	switch c := cfg.(type) {
	case *orderconfig.FoodConfig:
		var out []headerSlice
		byKey := make(map[headerKey]*orderconfig.FoodConfig)
		slice := func(k headerKey) *orderconfig.FoodConfig {
			if fc, ok := byKey[k]; ok {
				return fc
			}
			fc := &orderconfig.FoodConfig{ServiceType: c.ServiceType, Common: c.Common}
			byKey[k] = fc
			out = append(out, headerSlice{key: k, cfg: fc})
			return fc
		}

		if len(c.VendorSelections) > 0 {
			fc := slice(headerKey{meal: enum.MealTypeDefault})
			fc.VendorSelections = c.VendorSelections
		}
		for _, day := range sortedKeys(c.DeliveryDayOrders) {
			fc := slice(headerKey{day: day, meal: enum.MealTypeDefault})
			fc.VendorSelections = c.DeliveryDayOrders[day].VendorSelections
		}
		for _, meal := range sortedKeys(c.MealSelections) {
			fc := slice(headerKey{meal: meal})
			if fc.MealSelections == nil {
				fc.MealSelections = make(map[string]orderconfig.MealSelection)
			}
			fc.MealSelections[meal] = c.MealSelections[meal]
		}
		return out
	case *orderconfig.BoxesConfig:
		if len(c.BoxOrders) == 0 {
			return nil
		}
		return []headerSlice{{key: headerKey{meal: enum.MealTypeDefault}, cfg: c}}
	case *orderconfig.CustomConfig:
		if c.CustomName == "" && c.CustomPrice == nil {
			return nil
		}
		return []headerSlice{{key: headerKey{day: c.DeliveryDay, meal: enum.MealTypeDefault}, cfg: c}}
	}
	return nil
}

// scheduledDate resolves the first delivery date for a slice. ok is false
// when no vendor can be resolved, which leaves the header undated.
func scheduledDate(cat *catalog.Catalog, slice headerSlice, now time.Time) (time.Time, bool) {
	vendorID := firstVendor(cat, slice.cfg)
	if vendorID == "" {
		return time.Time{}, false
	}
	if slice.key.day != "" {
		if wd, ok := schedule.ParseWeekday(slice.key.day); ok {
			return schedule.NextDeliveryDate([]time.Weekday{wd}, now, schedule.DefaultHorizonDays)
		}
	}
	v, ok := cat.Vendor(vendorID)
	if !ok {
		return time.Time{}, false
	}
	return schedule.NextDeliveryDate(v.Weekdays(), now, schedule.DefaultHorizonDays)
}

// firstVendor returns the first vendor id the slice references. Boxes fall
// back to the box type's vendor.
func firstVendor(cat *catalog.Catalog, cfg orderconfig.Configuration) string {
	switch c := cfg.(type) {
	case *orderconfig.FoodConfig:
		for _, sel := range foodSelections(c) {
			if sel.VendorID != "" {
				return sel.VendorID
			}
		}
	case *orderconfig.BoxesConfig:
		for _, b := range c.BoxOrders {
			if b.VendorID != "" {
				return b.VendorID
			}
			if bt, ok := cat.BoxType(b.BoxTypeID); ok && bt.VendorID != "" {
				return bt.VendorID
			}
		}
	case *orderconfig.CustomConfig:
		return c.VendorID
	}
	return ""
}

// hasUnknownRefs reports whether cfg names a vendor, item or box type the
// catalog does not know.
func hasUnknownRefs(cat *catalog.Catalog, cfg orderconfig.Configuration) bool {
	knownVendor := func(id string) bool {
		_, ok := cat.Vendor(id)
		return id == "" || ok
	}
	switch c := cfg.(type) {
	case *orderconfig.FoodConfig:
		for _, sel := range foodSelections(c) {
			if !knownVendor(sel.VendorID) {
				return true
			}
			for id := range sel.Items {
				if _, ok := cat.Item(id); !ok {
					return true
				}
			}
		}
	case *orderconfig.BoxesConfig:
		for _, b := range c.BoxOrders {
			if !knownVendor(b.VendorID) {
				return true
			}
			if _, ok := cat.BoxType(b.BoxTypeID); b.BoxTypeID != "" && !ok {
				return true
			}
		}
	case *orderconfig.CustomConfig:
		return !knownVendor(c.VendorID)
	}
	return false
}

// documentCache holds normalized documents for reads. Saves invalidate the
// client's entry.
type documentCache struct {
	mu   sync.Mutex
	docs map[uuid.UUID]orderconfig.Configuration
}

func newDocumentCache() *documentCache {
	return &documentCache{docs: make(map[uuid.UUID]orderconfig.Configuration)}
}

func (c *documentCache) get(id uuid.UUID) (orderconfig.Configuration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.docs[id]
	return cfg, ok
}

func (c *documentCache) put(id uuid.UUID, cfg orderconfig.Configuration) {
	c.mu.Lock()
	c.docs[id] = cfg
	c.mu.Unlock()
}

func (c *documentCache) invalidate(id uuid.UUID) {
	c.mu.Lock()
	delete(c.docs, id)
	c.mu.Unlock()
}
