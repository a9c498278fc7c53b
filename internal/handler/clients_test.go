package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/handler"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/homedeliver/api/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mocks ---

type mockClientService struct {
	createFn func(ctx context.Context, req service.CreateClientRequest) (*database.Client, error)
}

func (m *mockClientService) CreateClient(ctx context.Context, req service.CreateClientRequest) (*database.Client, error) {
	return m.createFn(ctx, req)
}

type mockConfigService struct {
	saveFn func(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error)
	getFn  func(ctx context.Context, clientID uuid.UUID) (orderconfig.Configuration, error)
}

func (m *mockConfigService) SaveConfiguration(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error) {
	return m.saveFn(ctx, req)
}

func (m *mockConfigService) GetConfiguration(ctx context.Context, clientID uuid.UUID) (orderconfig.Configuration, error) {
	return m.getFn(ctx, clientID)
}

type mockHistoryLister struct {
	listFn func(ctx context.Context, clientID uuid.UUID) ([]service.HistoryEntry, error)
}

func (m *mockHistoryLister) List(ctx context.Context, clientID uuid.UUID) ([]service.HistoryEntry, error) {
	return m.listFn(ctx, clientID)
}

func newClientRouter(clients handler.ClientServicer, configs handler.ConfigServicer, history handler.HistoryLister) chi.Router {
	h := handler.NewClientHandler(clients, configs, history)
	r := chi.NewRouter()
	r.Route("/clients", h.RegisterRoutes)
	return r
}

func numeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

// --- Create ---

func TestCreateClient_Success(t *testing.T) {
	var got service.CreateClientRequest
	svc := &mockClientService{createFn: func(ctx context.Context, req service.CreateClientRequest) (*database.Client, error) {
		got = req
		return &database.Client{
			ID:               uuid.New(),
			ClientNumber:     613,
			FullName:         req.FullName,
			ServiceType:      req.ServiceType,
			AuthorizedAmount: numeric(t, "250.5"),
		}, nil
	}}

	rr := postJSON(t, newClientRouter(svc, nil, nil), "/clients", map[string]string{
		"full_name":         "Ada Lovelace",
		"service_type":      "Food",
		"authorized_amount": "250.50",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if !got.AuthorizedAmount.Equal(decimal.RequireFromString("250.50")) {
		t.Errorf("authorized amount passed: got %s", got.AuthorizedAmount)
	}
	resp := decodeResponse(t, rr)
	if resp["client_number"] != float64(613) {
		t.Errorf("client_number: got %v, want 613", resp["client_number"])
	}
	if resp["authorized_amount"] != "250.50" {
		t.Errorf("authorized_amount: got %v, want 250.50", resp["authorized_amount"])
	}
}

func TestCreateClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		svcErr     error
		wantStatus int
	}{
		{"bad navigator", map[string]string{"full_name": "A", "service_type": "Food", "navigator_id": "nope"}, nil, http.StatusBadRequest},
		{"bad amount", map[string]string{"full_name": "A", "service_type": "Food", "authorized_amount": "lots"}, nil, http.StatusBadRequest},
		{"validation", map[string]string{"full_name": "", "service_type": "Food"}, service.ErrClientNameRequired, http.StatusBadRequest},
		{"service type", map[string]string{"full_name": "A", "service_type": "Snacks"}, service.ErrInvalidServiceType, http.StatusBadRequest},
		{"store failure", map[string]string{"full_name": "A", "service_type": "Food"}, errors.New("allocate client number: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockClientService{createFn: func(ctx context.Context, req service.CreateClientRequest) (*database.Client, error) {
				if tt.svcErr == nil {
					t.Fatal("service should not be called")
				}
				return nil, tt.svcErr
			}}
			rr := postJSON(t, newClientRouter(svc, nil, nil), "/clients", tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(rr.Body.String(), "boom") {
				t.Error("internal error details leaked to client")
			}
		})
	}
}

// --- Order config ---

func TestSaveOrderConfig_Success(t *testing.T) {
	clientID := uuid.New()
	headerID := uuid.New()
	cfg := &orderconfig.CustomConfig{CustomName: "Wheelchair"}

	var got service.SaveRequest
	configs := &mockConfigService{saveFn: func(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error) {
		got = req
		return &service.SaveResult{
			Config: cfg,
			Headers: []service.UpsertResult{{
				Order: database.ScheduledOrder{
					ID:                    headerID,
					ServiceType:           "Custom",
					MealType:              "Lunch",
					TotalValue:            numeric(t, "40"),
					TotalItems:            1,
					TakeEffectDate:        pgtype.Date{Time: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), Valid: true},
					ScheduledDeliveryDate: pgtype.Date{Time: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), Valid: true},
				},
			}},
			Removed: 1,
		}, nil
	}}

	rr := doJSON(t, newClientRouter(nil, configs, nil), "PUT", "/clients/"+clientID.String()+"/order-config", map[string]interface{}{
		"serviceType": "Custom",
		"custom_name": "Wheelchair",
		"custom_price": "40",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got.ClientID != clientID {
		t.Errorf("client id: got %v, want %v", got.ClientID, clientID)
	}
	if got.Document.CustomName != "Wheelchair" || got.Document.ServiceType != "Custom" {
		t.Errorf("document not parsed: %+v", got.Document)
	}

	resp := decodeResponse(t, rr)
	if resp["removed"] != float64(1) {
		t.Errorf("removed: got %v, want 1", resp["removed"])
	}
	headers, _ := resp["scheduled_orders"].([]interface{})
	if len(headers) != 1 {
		t.Fatalf("scheduled_orders: got %d, want 1", len(headers))
	}
	h := headers[0].(map[string]interface{})
	if h["total_value"] != "40.00" || h["take_effect_date"] != "2026-03-08" || h["scheduled_delivery_date"] != "2026-03-09" {
		t.Errorf("header: got %v", h)
	}
}

func TestSaveOrderConfig_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{"bad id", "/clients/nope/order-config", `{}`, nil, http.StatusBadRequest},
		{"bad json", "/clients/" + uuid.NewString() + "/order-config", `{`, nil, http.StatusBadRequest},
		{"unknown client", "/clients/" + uuid.NewString() + "/order-config", `{}`, service.ErrClientNotFound, http.StatusNotFound},
		{"unknown service type", "/clients/" + uuid.NewString() + "/order-config", `{"serviceType":"Snacks"}`, orderconfig.ErrUnknownServiceType, http.StatusBadRequest},
		{"store failure", "/clients/" + uuid.NewString() + "/order-config", `{}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configs := &mockConfigService{saveFn: func(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error) {
				if tt.svcErr == nil {
					t.Fatal("service should not be called")
				}
				return nil, tt.svcErr
			}}
			rr := doRaw(t, newClientRouter(nil, configs, nil), "PUT", tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

func TestGetOrderConfig(t *testing.T) {
	clientID := uuid.New()
	configs := &mockConfigService{getFn: func(ctx context.Context, id uuid.UUID) (orderconfig.Configuration, error) {
		if id != clientID {
			return nil, service.ErrClientNotFound
		}
		return &orderconfig.CustomConfig{CustomName: "Wheelchair"}, nil
	}}
	r := newClientRouter(nil, configs, nil)

	rr := doJSON(t, r, "GET", "/clients/"+clientID.String()+"/order-config", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	doc, _ := resp["order_config"].(map[string]interface{})
	if doc["custom_name"] != "Wheelchair" {
		t.Errorf("order_config: got %v", resp["order_config"])
	}

	rr = doJSON(t, r, "GET", "/clients/"+uuid.NewString()+"/order-config", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown client status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetOrderConfig_NoneSaved(t *testing.T) {
	configs := &mockConfigService{getFn: func(ctx context.Context, id uuid.UUID) (orderconfig.Configuration, error) {
		return nil, nil
	}}

	rr := doJSON(t, newClientRouter(nil, configs, nil), "GET", "/clients/"+uuid.NewString()+"/order-config", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if v, ok := resp["order_config"]; !ok || v != nil {
		t.Errorf("order_config: got %v, want null", v)
	}
}

// --- History ---

func TestHistory(t *testing.T) {
	history := &mockHistoryLister{listFn: func(ctx context.Context, id uuid.UUID) ([]service.HistoryEntry, error) {
		return []service.HistoryEntry{{Type: "order_created", OrderID: "o-1", ServiceType: "Food"}}, nil
	}}

	rr := doJSON(t, newClientRouter(nil, nil, history), "GET", "/clients/"+uuid.NewString()+"/history", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"orderId":"o-1"`) {
		t.Errorf("body: %s", rr.Body.String())
	}
}

func TestHistory_EmptyIsArray(t *testing.T) {
	history := &mockHistoryLister{listFn: func(ctx context.Context, id uuid.UUID) ([]service.HistoryEntry, error) {
		return nil, nil
	}}

	rr := doJSON(t, newClientRouter(nil, nil, history), "GET", "/clients/"+uuid.NewString()+"/history", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body: got %s, want []", rr.Body.String())
	}
}
