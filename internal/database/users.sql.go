package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, email, full_name, hashed_password, role, vendor_id, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }, i *User) error {
	return row.Scan(
		&i.ID,
		&i.Email,
		&i.FullName,
		&i.HashedPassword,
		&i.Role,
		&i.VendorID,
		&i.IsActive,
		&i.CreatedAt,
	)
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + `
FROM users
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var i User
	err := scanUser(row, &i)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + `
FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := scanUser(row, &i)
	return i, err
}
