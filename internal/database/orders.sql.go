package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, client_id, service_type, case_id, status, delivery_day, meal_type,
       scheduled_delivery_date, actual_delivery_date, total_value, total_items, notes,
       creation_batch_id, scheduled_order_id, delivery_proof_url, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, i *Order) error {
	return row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.ClientID,
		&i.ServiceType,
		&i.CaseID,
		&i.Status,
		&i.DeliveryDay,
		&i.MealType,
		&i.ScheduledDeliveryDate,
		&i.ActualDeliveryDate,
		&i.TotalValue,
		&i.TotalItems,
		&i.Notes,
		&i.CreationBatchID,
		&i.ScheduledOrderID,
		&i.DeliveryProofUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const findPlacedOrderByCase = `-- name: FindPlacedOrderByCase :one
SELECT ` + orderColumns + `
FROM orders
WHERE client_id = $1
  AND case_id = $2
  AND service_type = $3
  AND scheduled_delivery_date = $4
  AND delivery_day IS NOT DISTINCT FROM $5
  AND meal_type = $6
ORDER BY created_at
LIMIT 1
`

type FindPlacedOrderByCaseParams struct {
	ClientID              uuid.UUID   `json:"client_id"`
	CaseID                pgtype.Text `json:"case_id"`
	ServiceType           string      `json:"service_type"`
	ScheduledDeliveryDate pgtype.Date `json:"scheduled_delivery_date"`
	DeliveryDay           pgtype.Text `json:"delivery_day"`
	MealType              string      `json:"meal_type"`
}

func (q *Queries) FindPlacedOrderByCase(ctx context.Context, arg FindPlacedOrderByCaseParams) (Order, error) {
	row := q.db.QueryRow(ctx, findPlacedOrderByCase,
		arg.ClientID,
		arg.CaseID,
		arg.ServiceType,
		arg.ScheduledDeliveryDate,
		arg.DeliveryDay,
		arg.MealType,
	)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const getMaxCreationBatchID = `-- name: GetMaxCreationBatchID :one
SELECT COALESCE(MAX(creation_batch_id), 0)::bigint FROM orders
`

func (q *Queries) GetMaxCreationBatchID(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, getMaxCreationBatchID)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const getMaxOrderNumber = `-- name: GetMaxOrderNumber :one
SELECT COALESCE(MAX(order_number), 0)::bigint FROM orders
`

func (q *Queries) GetMaxOrderNumber(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, getMaxOrderNumber)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const setOrderNumber = `-- name: SetOrderNumber :one
UPDATE orders SET order_number = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type SetOrderNumberParams struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber int64     `json:"order_number"`
}

func (q *Queries) SetOrderNumber(ctx context.Context, arg SetOrderNumberParams) (Order, error) {
	row := q.db.QueryRow(ctx, setOrderNumber, arg.ID, arg.OrderNumber)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const insertOrder = `-- name: InsertOrder :one
INSERT INTO orders (
    client_id, service_type, case_id, status, delivery_day, meal_type,
    scheduled_delivery_date, total_value, total_items, notes,
    creation_batch_id, scheduled_order_id
) VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

type InsertOrderParams struct {
	ClientID              uuid.UUID      `json:"client_id"`
	ServiceType           string         `json:"service_type"`
	CaseID                pgtype.Text    `json:"case_id"`
	DeliveryDay           pgtype.Text    `json:"delivery_day"`
	MealType              string         `json:"meal_type"`
	ScheduledDeliveryDate pgtype.Date    `json:"scheduled_delivery_date"`
	TotalValue            pgtype.Numeric `json:"total_value"`
	TotalItems            int32          `json:"total_items"`
	Notes                 pgtype.Text    `json:"notes"`
	CreationBatchID       pgtype.Int8    `json:"creation_batch_id"`
	ScheduledOrderID      pgtype.UUID    `json:"scheduled_order_id"`
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, insertOrder,
		arg.ClientID,
		arg.ServiceType,
		arg.CaseID,
		arg.DeliveryDay,
		arg.MealType,
		arg.ScheduledDeliveryDate,
		arg.TotalValue,
		arg.TotalItems,
		arg.Notes,
		arg.CreationBatchID,
		arg.ScheduledOrderID,
	)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const insertOrderVendorSelection = `-- name: InsertOrderVendorSelection :one
INSERT INTO order_vendor_selections (order_id, vendor_id)
VALUES ($1, $2)
RETURNING id, order_id, vendor_id
`

type InsertOrderVendorSelectionParams struct {
	OrderID  uuid.UUID   `json:"order_id"`
	VendorID pgtype.UUID `json:"vendor_id"`
}

func (q *Queries) InsertOrderVendorSelection(ctx context.Context, arg InsertOrderVendorSelectionParams) (OrderVendorSelection, error) {
	row := q.db.QueryRow(ctx, insertOrderVendorSelection, arg.OrderID, arg.VendorID)
	var i OrderVendorSelection
	err := row.Scan(&i.ID, &i.OrderID, &i.VendorID)
	return i, err
}

const insertOrderItem = `-- name: InsertOrderItem :one
INSERT INTO order_items (
    order_id, vendor_selection_id, item_id, custom_name, custom_price,
    quantity, unit_value, total_value, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, order_id, vendor_selection_id, item_id, custom_name, custom_price,
          quantity, unit_value, total_value, notes
`

type InsertOrderItemParams struct {
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

func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, insertOrderItem,
		arg.OrderID,
		arg.VendorSelectionID,
		arg.ItemID,
		arg.CustomName,
		arg.CustomPrice,
		arg.Quantity,
		arg.UnitValue,
		arg.TotalValue,
		arg.Notes,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.VendorSelectionID,
		&i.ItemID,
		&i.CustomName,
		&i.CustomPrice,
		&i.Quantity,
		&i.UnitValue,
		&i.TotalValue,
		&i.Notes,
	)
	return i, err
}

const insertOrderBoxSelection = `-- name: InsertOrderBoxSelection :one
INSERT INTO order_box_selections (
    order_id, box_type_id, vendor_id, quantity, items, item_notes, unit_value, total_value
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, order_id, box_type_id, vendor_id, quantity, items, item_notes, unit_value, total_value
`

type InsertOrderBoxSelectionParams struct {
	OrderID    uuid.UUID      `json:"order_id"`
	BoxTypeID  pgtype.UUID    `json:"box_type_id"`
	VendorID   pgtype.UUID    `json:"vendor_id"`
	Quantity   int32          `json:"quantity"`
	Items      []byte         `json:"items"`
	ItemNotes  []byte         `json:"item_notes"`
	UnitValue  pgtype.Numeric `json:"unit_value"`
	TotalValue pgtype.Numeric `json:"total_value"`
}

func (q *Queries) InsertOrderBoxSelection(ctx context.Context, arg InsertOrderBoxSelectionParams) (OrderBoxSelection, error) {
	row := q.db.QueryRow(ctx, insertOrderBoxSelection,
		arg.OrderID,
		arg.BoxTypeID,
		arg.VendorID,
		arg.Quantity,
		arg.Items,
		arg.ItemNotes,
		arg.UnitValue,
		arg.TotalValue,
	)
	var i OrderBoxSelection
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.BoxTypeID,
		&i.VendorID,
		&i.Quantity,
		&i.Items,
		&i.ItemNotes,
		&i.UnitValue,
		&i.TotalValue,
	)
	return i, err
}

const updateOrderProof = `-- name: UpdateOrderProof :one
UPDATE orders
SET delivery_proof_url = $2, actual_delivery_date = $3, status = 'billing_pending', updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderProofParams struct {
	ID                 uuid.UUID   `json:"id"`
	DeliveryProofUrl   pgtype.Text `json:"delivery_proof_url"`
	ActualDeliveryDate pgtype.Date `json:"actual_delivery_date"`
}

func (q *Queries) UpdateOrderProof(ctx context.Context, arg UpdateOrderProofParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderProof, arg.ID, arg.DeliveryProofUrl, arg.ActualDeliveryDate)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

// ── Billing ──

const billingColumns = `id, client_id, order_id, amount, status, navigator, remarks, created_at`

func scanBillingRecord(row interface{ Scan(...any) error }, i *BillingRecord) error {
	return row.Scan(
		&i.ID,
		&i.ClientID,
		&i.OrderID,
		&i.Amount,
		&i.Status,
		&i.Navigator,
		&i.Remarks,
		&i.CreatedAt,
	)
}

const insertBillingRecord = `-- name: InsertBillingRecord :one
INSERT INTO billing_records (client_id, order_id, amount, status, navigator, remarks)
VALUES ($1, $2, $3, 'pending', $4, $5)
ON CONFLICT (order_id) DO NOTHING
RETURNING ` + billingColumns

type InsertBillingRecordParams struct {
	ClientID  uuid.UUID      `json:"client_id"`
	OrderID   uuid.UUID      `json:"order_id"`
	Amount    pgtype.Numeric `json:"amount"`
	Navigator pgtype.Text    `json:"navigator"`
	Remarks   pgtype.Text    `json:"remarks"`
}

// InsertBillingRecord returns pgx.ErrNoRows when the order already has one.
func (q *Queries) InsertBillingRecord(ctx context.Context, arg InsertBillingRecordParams) (BillingRecord, error) {
	row := q.db.QueryRow(ctx, insertBillingRecord,
		arg.ClientID,
		arg.OrderID,
		arg.Amount,
		arg.Navigator,
		arg.Remarks,
	)
	var i BillingRecord
	err := scanBillingRecord(row, &i)
	return i, err
}

const getBillingRecordByOrder = `-- name: GetBillingRecordByOrder :one
SELECT ` + billingColumns + `
FROM billing_records
WHERE order_id = $1
`

func (q *Queries) GetBillingRecordByOrder(ctx context.Context, orderID uuid.UUID) (BillingRecord, error) {
	row := q.db.QueryRow(ctx, getBillingRecordByOrder, orderID)
	var i BillingRecord
	err := scanBillingRecord(row, &i)
	return i, err
}

const updateBillingStatusByOrder = `-- name: UpdateBillingStatusByOrder :exec
UPDATE billing_records SET status = $2 WHERE order_id = $1
`

type UpdateBillingStatusByOrderParams struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

func (q *Queries) UpdateBillingStatusByOrder(ctx context.Context, arg UpdateBillingStatusByOrderParams) error {
	_, err := q.db.Exec(ctx, updateBillingStatusByOrder, arg.OrderID, arg.Status)
	return err
}

const listOrderVendorIDs = `-- name: ListOrderVendorIDs :many
SELECT vendor_id FROM order_vendor_selections WHERE order_id = $1 AND vendor_id IS NOT NULL
UNION
SELECT vendor_id FROM order_box_selections WHERE order_id = $1 AND vendor_id IS NOT NULL
`

func (q *Queries) ListOrderVendorIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listOrderVendorIDs, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
