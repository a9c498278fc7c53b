package service

import (
	"context"
	"errors"
	"testing"

	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/enum"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// mockClientStore implements ClientStore.
type mockClientStore struct {
	nextFn   func(ctx context.Context, floor int64) (int64, error)
	maxFn    func(ctx context.Context) (int64, error)
	insertFn func(ctx context.Context, arg database.InsertClientParams) (database.Client, error)
}

func (m *mockClientStore) NextClientNumber(ctx context.Context, floor int64) (int64, error) {
	return m.nextFn(ctx, floor)
}
func (m *mockClientStore) GetMaxClientNumber(ctx context.Context) (int64, error) {
	return m.maxFn(ctx)
}
func (m *mockClientStore) InsertClient(ctx context.Context, arg database.InsertClientParams) (database.Client, error) {
	return m.insertFn(ctx, arg)
}

var clientNumberConflict = &pgconn.PgError{Code: "23505", ConstraintName: "clients_client_number_key"}

func TestCreateClient_RetriesPastTakenNumber(t *testing.T) {
	var floors []int64
	store := &mockClientStore{
		nextFn: func(ctx context.Context, floor int64) (int64, error) {
			floors = append(floors, floor)
			if floor == 0 {
				return 500, nil
			}
			return floor, nil
		},
		maxFn: func(ctx context.Context) (int64, error) { return 612, nil },
		insertFn: func(ctx context.Context, arg database.InsertClientParams) (database.Client, error) {
			if arg.ClientNumber == 500 {
				return database.Client{}, clientNumberConflict
			}
			return database.Client{ClientNumber: arg.ClientNumber, FullName: arg.FullName}, nil
		},
	}

	c, err := NewClientService(store).CreateClient(context.Background(), CreateClientRequest{
		FullName:         "  Grace Hopper ",
		ServiceType:      enum.ServiceTypeFood,
		AuthorizedAmount: decimal.RequireFromString("250"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ClientNumber != 613 {
		t.Errorf("client number = %d, want 613", c.ClientNumber)
	}
	if c.FullName != "Grace Hopper" {
		t.Errorf("name = %q", c.FullName)
	}
	if len(floors) != 2 || floors[1] != 613 {
		t.Errorf("floors = %v, want [0 613]", floors)
	}
}

func TestCreateClient_GivesUpAfterRetries(t *testing.T) {
	calls := 0
	store := &mockClientStore{
		nextFn: func(ctx context.Context, floor int64) (int64, error) { return floor + 1, nil },
		maxFn:  func(ctx context.Context) (int64, error) { return 0, errors.New("timeout") },
		insertFn: func(ctx context.Context, arg database.InsertClientParams) (database.Client, error) {
			calls++
			return database.Client{}, clientNumberConflict
		},
	}
	_, err := NewClientService(store).CreateClient(context.Background(), CreateClientRequest{
		FullName: "Ada", ServiceType: enum.ServiceTypeBoxes,
	})
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("err = %v, want wrapped unique violation", err)
	}
	if calls != maxClientNumberRetries {
		t.Errorf("attempts = %d, want %d", calls, maxClientNumberRetries)
	}
}

func TestCreateClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateClientRequest
		wantErr error
	}{
		{"blank name", CreateClientRequest{FullName: "  ", ServiceType: enum.ServiceTypeFood}, ErrClientNameRequired},
		{"bad service type", CreateClientRequest{FullName: "Ada", ServiceType: "Groceries"}, ErrInvalidServiceType},
		{"negative amount", CreateClientRequest{FullName: "Ada", ServiceType: enum.ServiceTypeFood, AuthorizedAmount: decimal.NewFromInt(-1)}, ErrNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClientService(&mockClientStore{}).CreateClient(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateClient_OtherInsertErrorIsNotRetried(t *testing.T) {
	calls := 0
	store := &mockClientStore{
		nextFn: func(ctx context.Context, floor int64) (int64, error) { return 1, nil },
		insertFn: func(ctx context.Context, arg database.InsertClientParams) (database.Client, error) {
			calls++
			return database.Client{}, &pgconn.PgError{Code: "23503", ConstraintName: "clients_navigator_id_fkey"}
		},
	}
	_, err := NewClientService(store).CreateClient(context.Background(), CreateClientRequest{FullName: "Ada", ServiceType: enum.ServiceTypeCustom})
	if err == nil || calls != 1 {
		t.Fatalf("err = %v after %d calls, want error after 1", err, calls)
	}
}
