package database

import (
	"context"

	"github.com/google/uuid"
)

const listClientFoodOrders = `-- name: ListClientFoodOrders :many
SELECT client_id, case_id, delivery_day_orders
FROM client_food_orders
WHERE client_id = ANY($1::uuid[])
`

func (q *Queries) ListClientFoodOrders(ctx context.Context, clientIds []uuid.UUID) ([]ClientFoodOrder, error) {
	rows, err := q.db.Query(ctx, listClientFoodOrders, clientIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ClientFoodOrder{}
	for rows.Next() {
		var i ClientFoodOrder
		if err := rows.Scan(&i.ClientID, &i.CaseID, &i.DeliveryDayOrders); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listClientMealOrders = `-- name: ListClientMealOrders :many
SELECT client_id, case_id, meal_selections
FROM client_meal_orders
WHERE client_id = ANY($1::uuid[])
`

func (q *Queries) ListClientMealOrders(ctx context.Context, clientIds []uuid.UUID) ([]ClientMealOrder, error) {
	rows, err := q.db.Query(ctx, listClientMealOrders, clientIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ClientMealOrder{}
	for rows.Next() {
		var i ClientMealOrder
		if err := rows.Scan(&i.ClientID, &i.CaseID, &i.MealSelections); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listClientBoxOrders = `-- name: ListClientBoxOrders :many
SELECT id, client_id, case_id, box_type_id, vendor_id, quantity, items, item_notes
FROM client_box_orders
WHERE client_id = ANY($1::uuid[])
ORDER BY client_id, id
`

func (q *Queries) ListClientBoxOrders(ctx context.Context, clientIds []uuid.UUID) ([]ClientBoxOrder, error) {
	rows, err := q.db.Query(ctx, listClientBoxOrders, clientIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ClientBoxOrder{}
	for rows.Next() {
		var i ClientBoxOrder
		if err := rows.Scan(
			&i.ID,
			&i.ClientID,
			&i.CaseID,
			&i.BoxTypeID,
			&i.VendorID,
			&i.Quantity,
			&i.Items,
			&i.ItemNotes,
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
