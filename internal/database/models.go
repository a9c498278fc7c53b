package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type AppSetting struct {
	ID               int32       `json:"id"`
	WeeklyCutoffDay  string      `json:"weekly_cutoff_day"`
	WeeklyCutoffTime string      `json:"weekly_cutoff_time"`
	ReportEmail      pgtype.Text `json:"report_email"`
}

type BillingRecord struct {
	ID        uuid.UUID          `json:"id"`
	ClientID  uuid.UUID          `json:"client_id"`
	OrderID   uuid.UUID          `json:"order_id"`
	Amount    pgtype.Numeric     `json:"amount"`
	Status    string             `json:"status"`
	Navigator pgtype.Text        `json:"navigator"`
	Remarks   pgtype.Text        `json:"remarks"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type BoxType struct {
	ID        uuid.UUID      `json:"id"`
	VendorID  pgtype.UUID    `json:"vendor_id"`
	Name      string         `json:"name"`
	PriceEach pgtype.Numeric `json:"price_each"`
	IsActive  bool           `json:"is_active"`
}

type Client struct {
	ID               uuid.UUID          `json:"id"`
	ClientNumber     int64              `json:"client_number"`
	FullName         string             `json:"full_name"`
	ServiceType      string             `json:"service_type"`
	NavigatorID      pgtype.UUID        `json:"navigator_id"`
	AuthorizedAmount pgtype.Numeric     `json:"authorized_amount"`
	OrderConfig      []byte             `json:"order_config"`
	ActiveOrder      []byte             `json:"active_order"`
	OrderHistory     []byte             `json:"order_history"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

type ClientBoxOrder struct {
	ID        uuid.UUID   `json:"id"`
	ClientID  uuid.UUID   `json:"client_id"`
	CaseID    pgtype.Text `json:"case_id"`
	BoxTypeID pgtype.UUID `json:"box_type_id"`
	VendorID  pgtype.UUID `json:"vendor_id"`
	Quantity  pgtype.Int4 `json:"quantity"`
	Items     []byte      `json:"items"`
	ItemNotes []byte      `json:"item_notes"`
}

type ClientFoodOrder struct {
	ClientID          uuid.UUID   `json:"client_id"`
	CaseID            pgtype.Text `json:"case_id"`
	DeliveryDayOrders []byte      `json:"delivery_day_orders"`
}

type ClientMealOrder struct {
	ClientID       uuid.UUID   `json:"client_id"`
	CaseID         pgtype.Text `json:"case_id"`
	MealSelections []byte      `json:"meal_selections"`
}

// CatalogItem is a row of menu_items or meal_items.
type CatalogItem struct {
	ID         uuid.UUID      `json:"id"`
	VendorID   pgtype.UUID    `json:"vendor_id"`
	Name       string         `json:"name"`
	Value      pgtype.Numeric `json:"value"`
	PriceEach  pgtype.Numeric `json:"price_each"`
	QuotaValue pgtype.Numeric `json:"quota_value"`
	IsActive   bool           `json:"is_active"`
}

type Order struct {
	ID                    uuid.UUID          `json:"id"`
	OrderNumber           int64              `json:"order_number"`
	ClientID              uuid.UUID          `json:"client_id"`
	ServiceType           string             `json:"service_type"`
	CaseID                pgtype.Text        `json:"case_id"`
	Status                string             `json:"status"`
	DeliveryDay           pgtype.Text        `json:"delivery_day"`
	MealType              string             `json:"meal_type"`
	ScheduledDeliveryDate pgtype.Date        `json:"scheduled_delivery_date"`
	ActualDeliveryDate    pgtype.Date        `json:"actual_delivery_date"`
	TotalValue            pgtype.Numeric     `json:"total_value"`
	TotalItems            int32              `json:"total_items"`
	Notes                 pgtype.Text        `json:"notes"`
	CreationBatchID       pgtype.Int8        `json:"creation_batch_id"`
	ScheduledOrderID      pgtype.UUID        `json:"scheduled_order_id"`
	DeliveryProofUrl      pgtype.Text        `json:"delivery_proof_url"`
	CreatedAt             pgtype.Timestamptz `json:"created_at"`
	UpdatedAt             pgtype.Timestamptz `json:"updated_at"`
}

type OrderBoxSelection struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	BoxTypeID  pgtype.UUID    `json:"box_type_id"`
	VendorID   pgtype.UUID    `json:"vendor_id"`
	Quantity   int32          `json:"quantity"`
	Items      []byte         `json:"items"`
	ItemNotes  []byte         `json:"item_notes"`
	UnitValue  pgtype.Numeric `json:"unit_value"`
	TotalValue pgtype.Numeric `json:"total_value"`
}

type OrderItem struct {
	ID                uuid.UUID      `json:"id"`
	OrderID           uuid.UUID      `json:"order_id"`
	VendorSelectionID uuid.UUID      `json:"vendor_selection_id"`
	ItemID            pgtype.UUID    `json:"item_id"`
	CustomName        pgtype.Text    `json:"custom_name"`
	CustomPrice       pgtype.Numeric `json:"custom_price"`
	Quantity          int32          `json:"quantity"`
	UnitValue         pgtype.Numeric `json:"unit_value"`
	TotalValue        pgtype.Numeric `json:"total_value"`
	Notes             pgtype.Text    `json:"notes"`
}

type OrderVendorSelection struct {
	ID       uuid.UUID   `json:"id"`
	OrderID  uuid.UUID   `json:"order_id"`
	VendorID pgtype.UUID `json:"vendor_id"`
}

type ScheduledOrder struct {
	ID                    uuid.UUID          `json:"id"`
	ClientID              uuid.UUID          `json:"client_id"`
	ServiceType           string             `json:"service_type"`
	CaseID                pgtype.Text        `json:"case_id"`
	Status                string             `json:"status"`
	DeliveryDay           pgtype.Text        `json:"delivery_day"`
	MealType              string             `json:"meal_type"`
	TotalValue            pgtype.Numeric     `json:"total_value"`
	TotalItems            int32              `json:"total_items"`
	Notes                 pgtype.Text        `json:"notes"`
	TakeEffectDate        pgtype.Date        `json:"take_effect_date"`
	ScheduledDeliveryDate pgtype.Date        `json:"scheduled_delivery_date"`
	LastUpdatedBy         pgtype.Text        `json:"last_updated_by"`
	ProcessedOrderID      pgtype.UUID        `json:"processed_order_id"`
	ProcessedAt           pgtype.Timestamptz `json:"processed_at"`
	CreatedAt             pgtype.Timestamptz `json:"created_at"`
	UpdatedAt             pgtype.Timestamptz `json:"updated_at"`
}

type ScheduledOrderBoxSelection struct {
	ID               uuid.UUID      `json:"id"`
	ScheduledOrderID uuid.UUID      `json:"scheduled_order_id"`
	BoxTypeID        pgtype.UUID    `json:"box_type_id"`
	VendorID         pgtype.UUID    `json:"vendor_id"`
	Quantity         int32          `json:"quantity"`
	Items            []byte         `json:"items"`
	ItemNotes        []byte         `json:"item_notes"`
	UnitValue        pgtype.Numeric `json:"unit_value"`
	TotalValue       pgtype.Numeric `json:"total_value"`
}

type ScheduledOrderItem struct {
	ID                uuid.UUID      `json:"id"`
	ScheduledOrderID  uuid.UUID      `json:"scheduled_order_id"`
	VendorSelectionID uuid.UUID      `json:"vendor_selection_id"`
	ItemID            pgtype.UUID    `json:"item_id"`
	CustomName        pgtype.Text    `json:"custom_name"`
	CustomPrice       pgtype.Numeric `json:"custom_price"`
	Quantity          int32          `json:"quantity"`
	UnitValue         pgtype.Numeric `json:"unit_value"`
	TotalValue        pgtype.Numeric `json:"total_value"`
	Notes             pgtype.Text    `json:"notes"`
}

type ScheduledOrderVendorSelection struct {
	ID               uuid.UUID   `json:"id"`
	ScheduledOrderID uuid.UUID   `json:"scheduled_order_id"`
	VendorID         pgtype.UUID `json:"vendor_id"`
}

type User struct {
	ID             uuid.UUID          `json:"id"`
	Email          string             `json:"email"`
	FullName       string             `json:"full_name"`
	HashedPassword string             `json:"hashed_password"`
	Role           string             `json:"role"`
	VendorID       pgtype.UUID        `json:"vendor_id"`
	IsActive       bool               `json:"is_active"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
}

type Vendor struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	DeliveryDays []string           `json:"delivery_days"`
	IsActive     bool               `json:"is_active"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}
