package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const clientColumns = `id, client_number, full_name, service_type, navigator_id, authorized_amount,
       order_config, active_order, order_history, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }, i *Client) error {
	return row.Scan(
		&i.ID,
		&i.ClientNumber,
		&i.FullName,
		&i.ServiceType,
		&i.NavigatorID,
		&i.AuthorizedAmount,
		&i.OrderConfig,
		&i.ActiveOrder,
		&i.OrderHistory,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

const getClient = `-- name: GetClient :one
SELECT ` + clientColumns + `
FROM clients
WHERE id = $1
`

func (q *Queries) GetClient(ctx context.Context, id uuid.UUID) (Client, error) {
	row := q.db.QueryRow(ctx, getClient, id)
	var i Client
	err := scanClient(row, &i)
	return i, err
}

const nextClientNumber = `-- name: NextClientNumber :one
SELECT GREATEST(nextval('client_number_seq'), $1::bigint)::bigint
`

// NextClientNumber draws the next value from client_number_seq, raised to floor.
func (q *Queries) NextClientNumber(ctx context.Context, floor int64) (int64, error) {
	row := q.db.QueryRow(ctx, nextClientNumber, floor)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const getMaxClientNumber = `-- name: GetMaxClientNumber :one
SELECT COALESCE(MAX(client_number), 0)::bigint FROM clients
`

func (q *Queries) GetMaxClientNumber(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, getMaxClientNumber)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const insertClient = `-- name: InsertClient :one
INSERT INTO clients (client_number, full_name, service_type, navigator_id, authorized_amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + clientColumns

type InsertClientParams struct {
	ClientNumber     int64          `json:"client_number"`
	FullName         string         `json:"full_name"`
	ServiceType      string         `json:"service_type"`
	NavigatorID      pgtype.UUID    `json:"navigator_id"`
	AuthorizedAmount pgtype.Numeric `json:"authorized_amount"`
}

func (q *Queries) InsertClient(ctx context.Context, arg InsertClientParams) (Client, error) {
	row := q.db.QueryRow(ctx, insertClient,
		arg.ClientNumber,
		arg.FullName,
		arg.ServiceType,
		arg.NavigatorID,
		arg.AuthorizedAmount,
	)
	var i Client
	err := scanClient(row, &i)
	return i, err
}

const listClientsPage = `-- name: ListClientsPage :many
SELECT ` + clientColumns + `
FROM clients
ORDER BY client_number, id
LIMIT $1 OFFSET $2
`

type ListClientsPageParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListClientsPage(ctx context.Context, arg ListClientsPageParams) ([]Client, error) {
	rows, err := q.db.Query(ctx, listClientsPage, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Client{}
	for rows.Next() {
		var i Client
		if err := scanClient(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateClientOrderConfig = `-- name: UpdateClientOrderConfig :exec
UPDATE clients
SET order_config = $2, service_type = $3, updated_at = now()
WHERE id = $1
`

type UpdateClientOrderConfigParams struct {
	ID          uuid.UUID `json:"id"`
	OrderConfig []byte    `json:"order_config"`
	ServiceType string    `json:"service_type"`
}

func (q *Queries) UpdateClientOrderConfig(ctx context.Context, arg UpdateClientOrderConfigParams) error {
	_, err := q.db.Exec(ctx, updateClientOrderConfig, arg.ID, arg.OrderConfig, arg.ServiceType)
	return err
}

const deductClientAuthorizedAmount = `-- name: DeductClientAuthorizedAmount :exec
UPDATE clients
SET authorized_amount = GREATEST(0, authorized_amount - $2), updated_at = now()
WHERE id = $1 AND authorized_amount IS NOT NULL
`

type DeductClientAuthorizedAmountParams struct {
	ID     uuid.UUID      `json:"id"`
	Amount pgtype.Numeric `json:"amount"`
}

func (q *Queries) DeductClientAuthorizedAmount(ctx context.Context, arg DeductClientAuthorizedAmountParams) error {
	_, err := q.db.Exec(ctx, deductClientAuthorizedAmount, arg.ID, arg.Amount)
	return err
}

const appendOrderHistory = `-- name: AppendOrderHistory :exec
SELECT append_order_history($1, $2, $3)
`

type AppendOrderHistoryParams struct {
	ClientID uuid.UUID `json:"client_id"`
	Entry    []byte    `json:"entry"`
	Cap      int32     `json:"cap"`
}

func (q *Queries) AppendOrderHistory(ctx context.Context, arg AppendOrderHistoryParams) error {
	_, err := q.db.Exec(ctx, appendOrderHistory, arg.ClientID, arg.Entry, arg.Cap)
	return err
}

const getClientOrderHistory = `-- name: GetClientOrderHistory :one
SELECT order_history FROM clients WHERE id = $1
`

func (q *Queries) GetClientOrderHistory(ctx context.Context, id uuid.UUID) ([]byte, error) {
	row := q.db.QueryRow(ctx, getClientOrderHistory, id)
	var history []byte
	err := row.Scan(&history)
	return history, err
}

const setClientOrderHistory = `-- name: SetClientOrderHistory :exec
UPDATE clients SET order_history = $2, updated_at = now() WHERE id = $1
`

type SetClientOrderHistoryParams struct {
	ID           uuid.UUID `json:"id"`
	OrderHistory []byte    `json:"order_history"`
}

func (q *Queries) SetClientOrderHistory(ctx context.Context, arg SetClientOrderHistoryParams) error {
	_, err := q.db.Exec(ctx, setClientOrderHistory, arg.ID, arg.OrderHistory)
	return err
}
