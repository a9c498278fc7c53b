package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/enum"
	"github.com/jackc/pgx/v5"
)

// mockOrderStore implements OrderStore.
type mockOrderStore struct {
	getOrderFn      func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateProofFn   func(ctx context.Context, arg database.UpdateOrderProofParams) (database.Order, error)
	updateStatusFn  func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	updateBillingFn func(ctx context.Context, arg database.UpdateBillingStatusByOrderParams) error
	vendorIDsFn     func(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	insertBillingFn func(ctx context.Context, arg database.InsertBillingRecordParams) (database.BillingRecord, error)
	deductions      []database.DeductClientAuthorizedAmountParams
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderProof(ctx context.Context, arg database.UpdateOrderProofParams) (database.Order, error) {
	return m.updateProofFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateStatusFn(ctx, arg)
}
func (m *mockOrderStore) UpdateBillingStatusByOrder(ctx context.Context, arg database.UpdateBillingStatusByOrderParams) error {
	return m.updateBillingFn(ctx, arg)
}
func (m *mockOrderStore) ListOrderVendorIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	return m.vendorIDsFn(ctx, orderID)
}
func (m *mockOrderStore) InsertBillingRecord(ctx context.Context, arg database.InsertBillingRecordParams) (database.BillingRecord, error) {
	return m.insertBillingFn(ctx, arg)
}
func (m *mockOrderStore) DeductClientAuthorizedAmount(ctx context.Context, arg database.DeductClientAuthorizedAmountParams) error {
	m.deductions = append(m.deductions, arg)
	return nil
}

// mockBlobStore records uploads.
type mockBlobStore struct {
	name, contentType string
	data              []byte
	err               error
}

func (m *mockBlobStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	m.name, m.contentType, m.data = name, contentType, data
	if m.err != nil {
		return "", m.err
	}
	return "https://storage.example.com/proofs/" + name, nil
}

func testOrder() database.Order {
	return database.Order{
		ID:          uuid.New(),
		OrderNumber: 100042,
		ClientID:    uuid.New(),
		Status:      enum.OrderStatusPending,
		TotalValue:  makeNumeric("30.00"),
	}
}

func newTestOrderService(store *mockOrderStore, blobs BlobStore, tx *mockTx) *OrderService {
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(&mockTxBeginner{tx: tx}, newStore, blobs, fixedClock)
}

func TestRecordDeliveryProof(t *testing.T) {
	order := testOrder()
	var proof database.UpdateOrderProofParams
	var billing database.InsertBillingRecordParams
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) { return order, nil },
		vendorIDsFn: func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
			return []uuid.UUID{vendorV1}, nil
		},
		updateProofFn: func(ctx context.Context, arg database.UpdateOrderProofParams) (database.Order, error) {
			proof = arg
			updated := order
			updated.Status = enum.OrderStatusBillingPending
			updated.DeliveryProofUrl = arg.DeliveryProofUrl
			return updated, nil
		},
		insertBillingFn: func(ctx context.Context, arg database.InsertBillingRecordParams) (database.BillingRecord, error) {
			billing = arg
			return database.BillingRecord{ID: uuid.New()}, nil
		},
	}
	blobs := &mockBlobStore{}
	tx := &mockTx{}

	got, err := newTestOrderService(store, blobs, tx).RecordDeliveryProof(context.Background(), ProofUpload{
		OrderID:  order.ID,
		Filename: "door.jpg",
		Data:     []byte("jpeg"),
		Actor:    "driver@vendor.example",
		VendorID: vendorV1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(blobs.name, "delivery-proofs/100042/") || !strings.HasSuffix(blobs.name, ".jpg") {
		t.Errorf("blob name = %q", blobs.name)
	}
	if blobs.contentType != "application/octet-stream" {
		t.Errorf("content type = %q", blobs.contentType)
	}
	if !strings.HasSuffix(proof.DeliveryProofUrl.String, blobs.name) {
		t.Errorf("proof url = %q", proof.DeliveryProofUrl.String)
	}
	if !proof.ActualDeliveryDate.Time.Equal(dateOf(fixedNow).Time) {
		t.Errorf("delivery date = %v", proof.ActualDeliveryDate.Time)
	}
	if billing.OrderID != order.ID || billing.Navigator.String != "driver@vendor.example" {
		t.Errorf("billing = %+v", billing)
	}
	if len(store.deductions) != 1 || !numericEquals(store.deductions[0].Amount, "30.00") {
		t.Errorf("deductions = %+v", store.deductions)
	}
	if tx.commits != 1 {
		t.Errorf("commits = %d, want 1", tx.commits)
	}
	if got.Status != enum.OrderStatusBillingPending {
		t.Errorf("status = %s", got.Status)
	}
}

func TestRecordDeliveryProof_ExistingBillingRecord(t *testing.T) {
	order := testOrder()
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) { return order, nil },
		updateProofFn: func(ctx context.Context, arg database.UpdateOrderProofParams) (database.Order, error) {
			return order, nil
		},
		insertBillingFn: func(ctx context.Context, arg database.InsertBillingRecordParams) (database.BillingRecord, error) {
			return database.BillingRecord{}, pgx.ErrNoRows
		},
	}

	_, err := newTestOrderService(store, &mockBlobStore{}, &mockTx{}).RecordDeliveryProof(context.Background(), ProofUpload{
		OrderID: order.ID, Filename: "p.png", ContentType: "image/png", Data: []byte("png"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.deductions) != 0 {
		t.Error("existing billing record must not deduct again")
	}
}

func TestRecordDeliveryProof_Rejections(t *testing.T) {
	order := testOrder()
	tests := []struct {
		name    string
		up      ProofUpload
		getErr  error
		wantErr error
	}{
		{"empty file", ProofUpload{OrderID: order.ID}, nil, ErrEmptyProof},
		{"unknown order", ProofUpload{OrderID: order.ID, Data: []byte("x")}, pgx.ErrNoRows, ErrOrderNotFound},
		{"other vendor", ProofUpload{OrderID: order.ID, Data: []byte("x"), VendorID: vendorV2}, nil, ErrVendorMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockOrderStore{
				getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) { return order, tt.getErr },
				vendorIDsFn: func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
					return []uuid.UUID{vendorV1}, nil
				},
			}
			blobs := &mockBlobStore{}
			_, err := newTestOrderService(store, blobs, &mockTx{}).RecordDeliveryProof(context.Background(), tt.up)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if blobs.name != "" {
				t.Error("nothing should be uploaded")
			}
		})
	}
}

func TestRecordDeliveryProof_StorageDisabled(t *testing.T) {
	store := &mockOrderStore{}
	_, err := newTestOrderService(store, nil, &mockTx{}).RecordDeliveryProof(context.Background(), ProofUpload{
		OrderID: uuid.New(),
		Data:    []byte("x"),
	})
	if !errors.Is(err, ErrProofStorageDisabled) {
		t.Fatalf("err = %v, want ErrProofStorageDisabled", err)
	}
}

func TestUpdateBillingStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    string
		status     string
		wantOrder  string
		wantErr    error
		wantCommit bool
	}{
		{"successful", enum.OrderStatusBillingPending, enum.BillingStatusSuccessful, enum.OrderStatusBillingSuccessful, nil, true},
		{"failed", enum.OrderStatusBillingPending, enum.BillingStatusFailed, enum.OrderStatusBillingFailed, nil, true},
		{"not awaiting billing", enum.OrderStatusPending, enum.BillingStatusSuccessful, "", ErrBillingTransition, false},
		{"bad status", enum.OrderStatusBillingPending, "refunded", "", ErrInvalidBillingStatus, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder()
			order.Status = tt.current
			var billingStatus string
			store := &mockOrderStore{
				getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) { return order, nil },
				updateStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
					o := order
					o.Status = arg.Status
					return o, nil
				},
				updateBillingFn: func(ctx context.Context, arg database.UpdateBillingStatusByOrderParams) error {
					billingStatus = arg.Status
					return nil
				},
			}
			tx := &mockTx{}

			got, err := newTestOrderService(store, nil, tx).UpdateBillingStatus(context.Background(), order.ID, tt.status)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if tx.commits != 0 {
					t.Error("nothing should be committed")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.wantOrder || billingStatus != tt.status {
				t.Errorf("order %s / billing %s, want %s / %s", got.Status, billingStatus, tt.wantOrder, tt.status)
			}
			if tx.commits != 1 {
				t.Errorf("commits = %d, want 1", tx.commits)
			}
		})
	}
}
