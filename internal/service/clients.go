package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/enum"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const maxClientNumberRetries = 3

var (
	ErrClientNameRequired = errors.New("full_name is required")
	ErrInvalidServiceType = errors.New("invalid service_type")
	ErrNegativeAmount     = errors.New("authorized_amount must be >= 0")
)

// ClientStore defines the DB methods needed to create clients.
// Satisfied by *database.Queries.
type ClientStore interface {
	NextClientNumber(ctx context.Context, floor int64) (int64, error)
	GetMaxClientNumber(ctx context.Context) (int64, error)
	InsertClient(ctx context.Context, arg database.InsertClientParams) (database.Client, error)
}

type CreateClientRequest struct {
	FullName         string
	ServiceType      string
	NavigatorID      string
	AuthorizedAmount decimal.Decimal
}

type ClientService struct {
	store ClientStore
}

func NewClientService(store ClientStore) *ClientService {
	return &ClientService{store: store}
}

// CreateClient allocates a client number and inserts the client. A number
// that collides with an existing client is retried with the floor raised
// past both the collided value and the current maximum.
func (s *ClientService) CreateClient(ctx context.Context, req CreateClientRequest) (*database.Client, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, ErrClientNameRequired
	}
	if !enum.IsServiceType(req.ServiceType) {
		return nil, ErrInvalidServiceType
	}
	if req.AuthorizedAmount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	var floor int64
	var lastErr error
	for attempt := 0; attempt < maxClientNumberRetries; attempt++ {
		num, err := s.store.NextClientNumber(ctx, floor)
		if err != nil {
			return nil, fmt.Errorf("next client number: %w", err)
		}

		client, err := s.store.InsertClient(ctx, database.InsertClientParams{
			ClientNumber:     num,
			FullName:         name,
			ServiceType:      req.ServiceType,
			NavigatorID:      uuidOrNull(req.NavigatorID),
			AuthorizedAmount: decimalToNumeric(req.AuthorizedAmount),
		})
		if err == nil {
			return &client, nil
		}
		if !isClientNumberConflict(err) {
			return nil, fmt.Errorf("insert client: %w", err)
		}

		lastErr = err
		floor = num + 1
		if maxNum, err := s.store.GetMaxClientNumber(ctx); err == nil && maxNum+1 > floor {
			floor = maxNum + 1
		}
		log.Printf("WARN: client number %d taken, retrying from %d", num, floor)
	}
	return nil, fmt.Errorf("allocate client number: %w", lastErr)
}

// isClientNumberConflict checks if the error is a unique constraint
// violation on the client number (pgconn error code 23505).
func isClientNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "clients_client_number_key"
	}
	return false
}
