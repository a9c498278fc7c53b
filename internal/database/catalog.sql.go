package database

import (
	"context"
)

const getAppSettings = `-- name: GetAppSettings :one
SELECT id, weekly_cutoff_day, weekly_cutoff_time, report_email
FROM app_settings
WHERE id = 1
`

func (q *Queries) GetAppSettings(ctx context.Context) (AppSetting, error) {
	row := q.db.QueryRow(ctx, getAppSettings)
	var i AppSetting
	err := row.Scan(
		&i.ID,
		&i.WeeklyCutoffDay,
		&i.WeeklyCutoffTime,
		&i.ReportEmail,
	)
	return i, err
}

const listVendors = `-- name: ListVendors :many
SELECT id, name, delivery_days, is_active, created_at
FROM vendors
ORDER BY name
`

func (q *Queries) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := q.db.Query(ctx, listVendors)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Vendor{}
	for rows.Next() {
		var i Vendor
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.DeliveryDays,
			&i.IsActive,
			&i.CreatedAt,
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

const listMenuItems = `-- name: ListMenuItems :many
SELECT id, vendor_id, name, value, price_each, quota_value, is_active
FROM menu_items
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]CatalogItem, error) {
	return q.listCatalogItems(ctx, listMenuItems)
}

const listMealItems = `-- name: ListMealItems :many
SELECT id, vendor_id, name, value, price_each, quota_value, is_active
FROM meal_items
`

func (q *Queries) ListMealItems(ctx context.Context) ([]CatalogItem, error) {
	return q.listCatalogItems(ctx, listMealItems)
}

func (q *Queries) listCatalogItems(ctx context.Context, query string) ([]CatalogItem, error) {
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CatalogItem{}
	for rows.Next() {
		var i CatalogItem
		if err := rows.Scan(
			&i.ID,
			&i.VendorID,
			&i.Name,
			&i.Value,
			&i.PriceEach,
			&i.QuotaValue,
			&i.IsActive,
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

const listBoxTypes = `-- name: ListBoxTypes :many
SELECT id, vendor_id, name, price_each, is_active
FROM box_types
`

func (q *Queries) ListBoxTypes(ctx context.Context) ([]BoxType, error) {
	rows, err := q.db.Query(ctx, listBoxTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BoxType{}
	for rows.Next() {
		var i BoxType
		if err := rows.Scan(
			&i.ID,
			&i.VendorID,
			&i.Name,
			&i.PriceEach,
			&i.IsActive,
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
