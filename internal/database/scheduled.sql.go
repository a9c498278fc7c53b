package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const scheduledOrderColumns = `id, client_id, service_type, case_id, status, delivery_day, meal_type,
       total_value, total_items, notes, take_effect_date, scheduled_delivery_date,
       last_updated_by, processed_order_id, processed_at, created_at, updated_at`

func scanScheduledOrder(row interface{ Scan(...any) error }, i *ScheduledOrder) error {
	return row.Scan(
		&i.ID,
		&i.ClientID,
		&i.ServiceType,
		&i.CaseID,
		&i.Status,
		&i.DeliveryDay,
		&i.MealType,
		&i.TotalValue,
		&i.TotalItems,
		&i.Notes,
		&i.TakeEffectDate,
		&i.ScheduledDeliveryDate,
		&i.LastUpdatedBy,
		&i.ProcessedOrderID,
		&i.ProcessedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

func (q *Queries) listScheduledOrders(ctx context.Context, query string, args ...interface{}) ([]ScheduledOrder, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ScheduledOrder{}
	for rows.Next() {
		var i ScheduledOrder
		if err := scanScheduledOrder(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getScheduledOrderByKey = `-- name: GetScheduledOrderByKey :one
SELECT ` + scheduledOrderColumns + `
FROM scheduled_orders
WHERE client_id = $1
  AND delivery_day IS NOT DISTINCT FROM $2
  AND meal_type = $3
  AND status = 'scheduled'
`

type GetScheduledOrderByKeyParams struct {
	ClientID    uuid.UUID   `json:"client_id"`
	DeliveryDay pgtype.Text `json:"delivery_day"`
	MealType    string      `json:"meal_type"`
}

func (q *Queries) GetScheduledOrderByKey(ctx context.Context, arg GetScheduledOrderByKeyParams) (ScheduledOrder, error) {
	row := q.db.QueryRow(ctx, getScheduledOrderByKey, arg.ClientID, arg.DeliveryDay, arg.MealType)
	var i ScheduledOrder
	err := scanScheduledOrder(row, &i)
	return i, err
}

const insertScheduledOrder = `-- name: InsertScheduledOrder :one
INSERT INTO scheduled_orders (
    client_id, service_type, case_id, status, delivery_day, meal_type,
    total_value, total_items, notes, take_effect_date, scheduled_delivery_date, last_updated_by
) VALUES ($1, $2, $3, 'scheduled', $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + scheduledOrderColumns

type InsertScheduledOrderParams struct {
	ClientID              uuid.UUID      `json:"client_id"`
	ServiceType           string         `json:"service_type"`
	CaseID                pgtype.Text    `json:"case_id"`
	DeliveryDay           pgtype.Text    `json:"delivery_day"`
	MealType              string         `json:"meal_type"`
	TotalValue            pgtype.Numeric `json:"total_value"`
	TotalItems            int32          `json:"total_items"`
	Notes                 pgtype.Text    `json:"notes"`
	TakeEffectDate        pgtype.Date    `json:"take_effect_date"`
	ScheduledDeliveryDate pgtype.Date    `json:"scheduled_delivery_date"`
	LastUpdatedBy         pgtype.Text    `json:"last_updated_by"`
}

func (q *Queries) InsertScheduledOrder(ctx context.Context, arg InsertScheduledOrderParams) (ScheduledOrder, error) {
	row := q.db.QueryRow(ctx, insertScheduledOrder,
		arg.ClientID,
		arg.ServiceType,
		arg.CaseID,
		arg.DeliveryDay,
		arg.MealType,
		arg.TotalValue,
		arg.TotalItems,
		arg.Notes,
		arg.TakeEffectDate,
		arg.ScheduledDeliveryDate,
		arg.LastUpdatedBy,
	)
	var i ScheduledOrder
	err := scanScheduledOrder(row, &i)
	return i, err
}

const updateScheduledOrder = `-- name: UpdateScheduledOrder :one
UPDATE scheduled_orders
SET service_type = $2,
    case_id = $3,
    status = 'scheduled',
    total_value = $4,
    total_items = $5,
    notes = $6,
    take_effect_date = $7,
    scheduled_delivery_date = $8,
    last_updated_by = $9,
    updated_at = now()
WHERE id = $1
RETURNING ` + scheduledOrderColumns

type UpdateScheduledOrderParams struct {
	ID                    uuid.UUID      `json:"id"`
	ServiceType           string         `json:"service_type"`
	CaseID                pgtype.Text    `json:"case_id"`
	TotalValue            pgtype.Numeric `json:"total_value"`
	TotalItems            int32          `json:"total_items"`
	Notes                 pgtype.Text    `json:"notes"`
	TakeEffectDate        pgtype.Date    `json:"take_effect_date"`
	ScheduledDeliveryDate pgtype.Date    `json:"scheduled_delivery_date"`
	LastUpdatedBy         pgtype.Text    `json:"last_updated_by"`
}

func (q *Queries) UpdateScheduledOrder(ctx context.Context, arg UpdateScheduledOrderParams) (ScheduledOrder, error) {
	row := q.db.QueryRow(ctx, updateScheduledOrder,
		arg.ID,
		arg.ServiceType,
		arg.CaseID,
		arg.TotalValue,
		arg.TotalItems,
		arg.Notes,
		arg.TakeEffectDate,
		arg.ScheduledDeliveryDate,
		arg.LastUpdatedBy,
	)
	var i ScheduledOrder
	err := scanScheduledOrder(row, &i)
	return i, err
}

const updateScheduledOrderTotals = `-- name: UpdateScheduledOrderTotals :exec
UPDATE scheduled_orders SET total_value = $2, total_items = $3, updated_at = now() WHERE id = $1
`

type UpdateScheduledOrderTotalsParams struct {
	ID         uuid.UUID      `json:"id"`
	TotalValue pgtype.Numeric `json:"total_value"`
	TotalItems int32          `json:"total_items"`
}

func (q *Queries) UpdateScheduledOrderTotals(ctx context.Context, arg UpdateScheduledOrderTotalsParams) error {
	_, err := q.db.Exec(ctx, updateScheduledOrderTotals, arg.ID, arg.TotalValue, arg.TotalItems)
	return err
}

const listActiveScheduledOrdersByClient = `-- name: ListActiveScheduledOrdersByClient :many
SELECT ` + scheduledOrderColumns + `
FROM scheduled_orders
WHERE client_id = $1 AND status = 'scheduled'
ORDER BY delivery_day NULLS FIRST, meal_type
`

func (q *Queries) ListActiveScheduledOrdersByClient(ctx context.Context, clientID uuid.UUID) ([]ScheduledOrder, error) {
	return q.listScheduledOrders(ctx, listActiveScheduledOrdersByClient, clientID)
}

const listActiveScheduledOrdersForClients = `-- name: ListActiveScheduledOrdersForClients :many
SELECT ` + scheduledOrderColumns + `
FROM scheduled_orders
WHERE client_id = ANY($1::uuid[]) AND status = 'scheduled'
ORDER BY client_id, delivery_day NULLS FIRST, meal_type
`

func (q *Queries) ListActiveScheduledOrdersForClients(ctx context.Context, clientIds []uuid.UUID) ([]ScheduledOrder, error) {
	return q.listScheduledOrders(ctx, listActiveScheduledOrdersForClients, clientIds)
}

const listDueScheduledOrders = `-- name: ListDueScheduledOrders :many
SELECT ` + scheduledOrderColumns + `
FROM scheduled_orders
WHERE status = 'scheduled' AND take_effect_date <= $1
ORDER BY take_effect_date, created_at
`

func (q *Queries) ListDueScheduledOrders(ctx context.Context, today pgtype.Date) ([]ScheduledOrder, error) {
	return q.listScheduledOrders(ctx, listDueScheduledOrders, today)
}

const deleteScheduledOrder = `-- name: DeleteScheduledOrder :exec
DELETE FROM scheduled_orders WHERE id = $1 AND status = 'scheduled'
`

// DeleteScheduledOrder never removes processed headers.
func (q *Queries) DeleteScheduledOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteScheduledOrder, id)
	return err
}

const markScheduledOrderProcessed = `-- name: MarkScheduledOrderProcessed :execrows
UPDATE scheduled_orders
SET status = 'processed', processed_order_id = $2, processed_at = $3, updated_at = now()
WHERE id = $1 AND status = 'scheduled'
`

type MarkScheduledOrderProcessedParams struct {
	ID               uuid.UUID          `json:"id"`
	ProcessedOrderID pgtype.UUID        `json:"processed_order_id"`
	ProcessedAt      pgtype.Timestamptz `json:"processed_at"`
}

func (q *Queries) MarkScheduledOrderProcessed(ctx context.Context, arg MarkScheduledOrderProcessedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markScheduledOrderProcessed, arg.ID, arg.ProcessedOrderID, arg.ProcessedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// ── Children ──

const deleteScheduledItems = `-- name: DeleteScheduledItems :exec
DELETE FROM scheduled_order_items WHERE scheduled_order_id = $1
`

func (q *Queries) DeleteScheduledItems(ctx context.Context, scheduledOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteScheduledItems, scheduledOrderID)
	return err
}

const deleteScheduledVendorSelections = `-- name: DeleteScheduledVendorSelections :exec
DELETE FROM scheduled_order_vendor_selections WHERE scheduled_order_id = $1
`

func (q *Queries) DeleteScheduledVendorSelections(ctx context.Context, scheduledOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteScheduledVendorSelections, scheduledOrderID)
	return err
}

const deleteScheduledBoxSelections = `-- name: DeleteScheduledBoxSelections :exec
DELETE FROM scheduled_order_box_selections WHERE scheduled_order_id = $1
`

func (q *Queries) DeleteScheduledBoxSelections(ctx context.Context, scheduledOrderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteScheduledBoxSelections, scheduledOrderID)
	return err
}

const insertScheduledVendorSelection = `-- name: InsertScheduledVendorSelection :one
INSERT INTO scheduled_order_vendor_selections (scheduled_order_id, vendor_id)
VALUES ($1, $2)
RETURNING id, scheduled_order_id, vendor_id
`

type InsertScheduledVendorSelectionParams struct {
	ScheduledOrderID uuid.UUID   `json:"scheduled_order_id"`
	VendorID         pgtype.UUID `json:"vendor_id"`
}

func (q *Queries) InsertScheduledVendorSelection(ctx context.Context, arg InsertScheduledVendorSelectionParams) (ScheduledOrderVendorSelection, error) {
	row := q.db.QueryRow(ctx, insertScheduledVendorSelection, arg.ScheduledOrderID, arg.VendorID)
	var i ScheduledOrderVendorSelection
	err := row.Scan(&i.ID, &i.ScheduledOrderID, &i.VendorID)
	return i, err
}

const insertScheduledItem = `-- name: InsertScheduledItem :one
INSERT INTO scheduled_order_items (
    scheduled_order_id, vendor_selection_id, item_id, custom_name, custom_price,
    quantity, unit_value, total_value, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, scheduled_order_id, vendor_selection_id, item_id, custom_name, custom_price,
          quantity, unit_value, total_value, notes
`

type InsertScheduledItemParams struct {
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

func (q *Queries) InsertScheduledItem(ctx context.Context, arg InsertScheduledItemParams) (ScheduledOrderItem, error) {
	row := q.db.QueryRow(ctx, insertScheduledItem,
		arg.ScheduledOrderID,
		arg.VendorSelectionID,
		arg.ItemID,
		arg.CustomName,
		arg.CustomPrice,
		arg.Quantity,
		arg.UnitValue,
		arg.TotalValue,
		arg.Notes,
	)
	var i ScheduledOrderItem
	err := scanScheduledItem(row, &i)
	return i, err
}

func scanScheduledItem(row interface{ Scan(...any) error }, i *ScheduledOrderItem) error {
	return row.Scan(
		&i.ID,
		&i.ScheduledOrderID,
		&i.VendorSelectionID,
		&i.ItemID,
		&i.CustomName,
		&i.CustomPrice,
		&i.Quantity,
		&i.UnitValue,
		&i.TotalValue,
		&i.Notes,
	)
}

const insertScheduledBoxSelection = `-- name: InsertScheduledBoxSelection :one
INSERT INTO scheduled_order_box_selections (
    scheduled_order_id, box_type_id, vendor_id, quantity, items, item_notes, unit_value, total_value
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, scheduled_order_id, box_type_id, vendor_id, quantity, items, item_notes, unit_value, total_value
`

type InsertScheduledBoxSelectionParams struct {
	ScheduledOrderID uuid.UUID      `json:"scheduled_order_id"`
	BoxTypeID        pgtype.UUID    `json:"box_type_id"`
	VendorID         pgtype.UUID    `json:"vendor_id"`
	Quantity         int32          `json:"quantity"`
	Items            []byte         `json:"items"`
	ItemNotes        []byte         `json:"item_notes"`
	UnitValue        pgtype.Numeric `json:"unit_value"`
	TotalValue       pgtype.Numeric `json:"total_value"`
}

func (q *Queries) InsertScheduledBoxSelection(ctx context.Context, arg InsertScheduledBoxSelectionParams) (ScheduledOrderBoxSelection, error) {
	row := q.db.QueryRow(ctx, insertScheduledBoxSelection,
		arg.ScheduledOrderID,
		arg.BoxTypeID,
		arg.VendorID,
		arg.Quantity,
		arg.Items,
		arg.ItemNotes,
		arg.UnitValue,
		arg.TotalValue,
	)
	var i ScheduledOrderBoxSelection
	err := scanScheduledBoxSelection(row, &i)
	return i, err
}

func scanScheduledBoxSelection(row interface{ Scan(...any) error }, i *ScheduledOrderBoxSelection) error {
	return row.Scan(
		&i.ID,
		&i.ScheduledOrderID,
		&i.BoxTypeID,
		&i.VendorID,
		&i.Quantity,
		&i.Items,
		&i.ItemNotes,
		&i.UnitValue,
		&i.TotalValue,
	)
}

const listScheduledVendorSelections = `-- name: ListScheduledVendorSelections :many
SELECT id, scheduled_order_id, vendor_id
FROM scheduled_order_vendor_selections
WHERE scheduled_order_id = $1
`

func (q *Queries) ListScheduledVendorSelections(ctx context.Context, scheduledOrderID uuid.UUID) ([]ScheduledOrderVendorSelection, error) {
	rows, err := q.db.Query(ctx, listScheduledVendorSelections, scheduledOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ScheduledOrderVendorSelection{}
	for rows.Next() {
		var i ScheduledOrderVendorSelection
		if err := rows.Scan(&i.ID, &i.ScheduledOrderID, &i.VendorID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listScheduledItems = `-- name: ListScheduledItems :many
SELECT id, scheduled_order_id, vendor_selection_id, item_id, custom_name, custom_price,
       quantity, unit_value, total_value, notes
FROM scheduled_order_items
WHERE scheduled_order_id = $1
`

func (q *Queries) ListScheduledItems(ctx context.Context, scheduledOrderID uuid.UUID) ([]ScheduledOrderItem, error) {
	rows, err := q.db.Query(ctx, listScheduledItems, scheduledOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ScheduledOrderItem{}
	for rows.Next() {
		var i ScheduledOrderItem
		if err := scanScheduledItem(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listScheduledBoxSelections = `-- name: ListScheduledBoxSelections :many
SELECT id, scheduled_order_id, box_type_id, vendor_id, quantity, items, item_notes, unit_value, total_value
FROM scheduled_order_box_selections
WHERE scheduled_order_id = $1
`

func (q *Queries) ListScheduledBoxSelections(ctx context.Context, scheduledOrderID uuid.UUID) ([]ScheduledOrderBoxSelection, error) {
	return q.listScheduledBoxSelections(ctx, listScheduledBoxSelections, scheduledOrderID)
}

const listScheduledBoxSelectionsForOrders = `-- name: ListScheduledBoxSelectionsForOrders :many
SELECT id, scheduled_order_id, box_type_id, vendor_id, quantity, items, item_notes, unit_value, total_value
FROM scheduled_order_box_selections
WHERE scheduled_order_id = ANY($1::uuid[])
`

func (q *Queries) ListScheduledBoxSelectionsForOrders(ctx context.Context, scheduledOrderIds []uuid.UUID) ([]ScheduledOrderBoxSelection, error) {
	return q.listScheduledBoxSelections(ctx, listScheduledBoxSelectionsForOrders, scheduledOrderIds)
}

func (q *Queries) listScheduledBoxSelections(ctx context.Context, query string, arg interface{}) ([]ScheduledOrderBoxSelection, error) {
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ScheduledOrderBoxSelection{}
	for rows.Next() {
		var i ScheduledOrderBoxSelection
		if err := scanScheduledBoxSelection(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listScheduledItemsForOrders = `-- name: ListScheduledItemsForOrders :many
SELECT i.scheduled_order_id, vs.vendor_id, i.item_id, i.quantity, i.notes
FROM scheduled_order_items i
JOIN scheduled_order_vendor_selections vs ON vs.id = i.vendor_selection_id
WHERE i.scheduled_order_id = ANY($1::uuid[])
  AND i.item_id IS NOT NULL
`

type ListScheduledItemsForOrdersRow struct {
	ScheduledOrderID uuid.UUID   `json:"scheduled_order_id"`
	VendorID         pgtype.UUID `json:"vendor_id"`
	ItemID           pgtype.UUID `json:"item_id"`
	Quantity         int32       `json:"quantity"`
	Notes            pgtype.Text `json:"notes"`
}

func (q *Queries) ListScheduledItemsForOrders(ctx context.Context, scheduledOrderIds []uuid.UUID) ([]ListScheduledItemsForOrdersRow, error) {
	rows, err := q.db.Query(ctx, listScheduledItemsForOrders, scheduledOrderIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListScheduledItemsForOrdersRow{}
	for rows.Next() {
		var i ListScheduledItemsForOrdersRow
		if err := rows.Scan(
			&i.ScheduledOrderID,
			&i.VendorID,
			&i.ItemID,
			&i.Quantity,
			&i.Notes,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
