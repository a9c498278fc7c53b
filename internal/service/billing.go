package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/enum"
	"github.com/jackc/pgx/v5"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyProof           = errors.New("delivery proof file is empty")
	ErrInvalidBillingStatus = errors.New("invalid billing status")
	ErrBillingTransition    = errors.New("order is not awaiting billing")
	ErrVendorMismatch       = errors.New("order is not assigned to this vendor")
	ErrProofStorageDisabled = errors.New("delivery proof storage is not configured")
)

// BillingStore defines the DB methods needed to create billing records.
// Satisfied by *database.Queries (and its WithTx variant).
type BillingStore interface {
	InsertBillingRecord(ctx context.Context, arg database.InsertBillingRecordParams) (database.BillingRecord, error)
	DeductClientAuthorizedAmount(ctx context.Context, arg database.DeductClientAuthorizedAmountParams) error
}

// ensureBillingRecord creates the order's billing record if it has none and
// deducts the amount from the client's authorized balance. The deduction
// only happens on the call that created the record.
func ensureBillingRecord(ctx context.Context, store BillingStore, order database.Order, who string) (bool, error) {
	_, err := store.InsertBillingRecord(ctx, database.InsertBillingRecordParams{
		ClientID:  order.ClientID,
		OrderID:   order.ID,
		Amount:    order.TotalValue,
		Navigator: textOrNull(who),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert billing record: %w", err)
	}

	if err := store.DeductClientAuthorizedAmount(ctx, database.DeductClientAuthorizedAmountParams{
		ID:     order.ClientID,
		Amount: order.TotalValue,
	}); err != nil {
		return true, fmt.Errorf("deduct authorized amount: %w", err)
	}
	return true, nil
}

// BlobStore stores bytes and returns a public URL.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// OrderStore defines the DB methods needed for delivery proof and billing.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	BillingStore
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderProof(ctx context.Context, arg database.UpdateOrderProofParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateBillingStatusByOrder(ctx context.Context, arg database.UpdateBillingStatusByOrderParams) error
	ListOrderVendorIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// ProofUpload is a delivery photo for a placed order.
type ProofUpload struct {
	OrderID     uuid.UUID
	Filename    string
	ContentType string
	Data        []byte
	Actor       string
	// VendorID restricts the upload to orders of one vendor. uuid.Nil
	// skips the check.
	VendorID uuid.UUID
}

// OrderService records delivery proof and moves placed orders through billing.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	blobs    BlobStore
	clock    Clock
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, blobs BlobStore, clock Clock) *OrderService {
	if clock == nil {
		clock = time.Now
	}
	return &OrderService{pool: pool, newStore: newStore, blobs: blobs, clock: clock}
}

// RecordDeliveryProof stores the photo, stamps the order billing_pending and
// creates its billing record if the lifecycle sweep did not.
func (s *OrderService) RecordDeliveryProof(ctx context.Context, up ProofUpload) (*database.Order, error) {
	if len(up.Data) == 0 {
		return nil, ErrEmptyProof
	}
	if s.blobs == nil {
		return nil, ErrProofStorageDisabled
	}

	// Reject unknown orders before paying for the upload.
	reader := s.newStore(dbOf(s.pool))
	order, err := reader.GetOrder(ctx, up.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if up.VendorID != uuid.Nil {
		vendors, err := reader.ListOrderVendorIDs(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order vendors: %w", err)
		}
		if !containsUUID(vendors, up.VendorID) {
			return nil, ErrVendorMismatch
		}
	}

	now := s.clock()
	name := fmt.Sprintf("delivery-proofs/%d/%s-%d%s", order.OrderNumber, order.ID, now.Unix(), path.Ext(up.Filename))
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := s.blobs.Put(ctx, name, contentType, bytes.Clone(up.Data))
	if err != nil {
		return nil, fmt.Errorf("store delivery proof: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	updated, err := store.UpdateOrderProof(ctx, database.UpdateOrderProofParams{
		ID:                 order.ID,
		DeliveryProofUrl:   textOrNull(url),
		ActualDeliveryDate: dateOf(now),
	})
	if err != nil {
		return nil, fmt.Errorf("update order proof: %w", err)
	}
	if _, err := ensureBillingRecord(ctx, store, updated, up.Actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// UpdateBillingStatus settles a billing_pending order as successful or failed
// and mirrors the status onto its billing record.
func (s *OrderService) UpdateBillingStatus(ctx context.Context, orderID uuid.UUID, status string) (*database.Order, error) {
	var orderStatus string
	switch status {
	case enum.BillingStatusSuccessful:
		orderStatus = enum.OrderStatusBillingSuccessful
	case enum.BillingStatusFailed:
		orderStatus = enum.OrderStatusBillingFailed
	default:
		return nil, ErrInvalidBillingStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusBillingPending {
		return nil, fmt.Errorf("%w: status is %s", ErrBillingTransition, order.Status)
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: orderID, Status: orderStatus})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := store.UpdateBillingStatusByOrder(ctx, database.UpdateBillingStatusByOrderParams{
		OrderID: orderID,
		Status:  status,
	}); err != nil {
		return nil, fmt.Errorf("update billing record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	log.Printf("order %d billing %s", updated.OrderNumber, status)
	return &updated, nil
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
