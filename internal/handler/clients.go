package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/middleware"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/homedeliver/api/internal/service"
	"github.com/shopspring/decimal"
)

// maxConfigBody caps an order configuration document.
const maxConfigBody = 1 << 20

// ClientServicer defines the service methods needed to create clients.
// Satisfied by *service.ClientService.
type ClientServicer interface {
	CreateClient(ctx context.Context, req service.CreateClientRequest) (*database.Client, error)
}

// ConfigServicer defines the service methods needed for order configuration.
// Satisfied by *service.ConfigService.
type ConfigServicer interface {
	SaveConfiguration(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error)
	GetConfiguration(ctx context.Context, clientID uuid.UUID) (orderconfig.Configuration, error)
}

// HistoryLister reads a client's order history, newest first.
// Satisfied by *service.HistoryAppender.
type HistoryLister interface {
	List(ctx context.Context, clientID uuid.UUID) ([]service.HistoryEntry, error)
}

// ClientHandler handles client creation, order configuration and history.
type ClientHandler struct {
	clients ClientServicer
	configs ConfigServicer
	history HistoryLister
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clients ClientServicer, configs ConfigServicer, history HistoryLister) *ClientHandler {
	return &ClientHandler{clients: clients, configs: configs, history: history}
}

// RegisterRoutes registers client endpoints on the given Chi router.
// Expected to be mounted at /clients.
func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/order-config", h.GetOrderConfig)
		r.Put("/order-config", h.SaveOrderConfig)
		r.Get("/history", h.History)
	})
}

// --- Request / Response types ---

type createClientRequest struct {
	FullName         string `json:"full_name"`
	ServiceType      string `json:"service_type"`
	NavigatorID      string `json:"navigator_id"`
	AuthorizedAmount string `json:"authorized_amount"`
}

type clientResponse struct {
	ID               uuid.UUID `json:"id"`
	ClientNumber     int64     `json:"client_number"`
	FullName         string    `json:"full_name"`
	ServiceType      string    `json:"service_type"`
	NavigatorID      *string   `json:"navigator_id"`
	AuthorizedAmount *string   `json:"authorized_amount"`
}

type orderConfigResponse struct {
	ClientID    uuid.UUID                 `json:"client_id"`
	OrderConfig orderconfig.Configuration `json:"order_config"`
}

type saveConfigResponse struct {
	ClientID        uuid.UUID                 `json:"client_id"`
	OrderConfig     orderconfig.Configuration `json:"order_config"`
	ScheduledOrders []scheduledOrderResponse  `json:"scheduled_orders"`
	Removed         int                       `json:"removed"`
}

type scheduledOrderResponse struct {
	ID                    uuid.UUID `json:"id"`
	ServiceType           string    `json:"service_type"`
	DeliveryDay           *string   `json:"delivery_day"`
	MealType              string    `json:"meal_type"`
	TotalValue            string    `json:"total_value"`
	TotalItems            int32     `json:"total_items"`
	TakeEffectDate        string    `json:"take_effect_date"`
	ScheduledDeliveryDate string    `json:"scheduled_delivery_date"`
	Corrected             bool      `json:"corrected,omitempty"`
}

func toClientResponse(c *database.Client) clientResponse {
	resp := clientResponse{
		ID:           c.ID,
		ClientNumber: c.ClientNumber,
		FullName:     c.FullName,
		ServiceType:  c.ServiceType,
	}
	if c.NavigatorID.Valid {
		s := uuid.UUID(c.NavigatorID.Bytes).String()
		resp.NavigatorID = &s
	}
	if c.AuthorizedAmount.Valid {
		s := numericToString(c.AuthorizedAmount)
		resp.AuthorizedAmount = &s
	}
	return resp
}

func toScheduledOrderResponse(res service.UpsertResult) scheduledOrderResponse {
	so := res.Order
	resp := scheduledOrderResponse{
		ID:                    so.ID,
		ServiceType:           so.ServiceType,
		MealType:              so.MealType,
		TotalValue:            numericToString(so.TotalValue),
		TotalItems:            so.TotalItems,
		TakeEffectDate:        formatDate(so.TakeEffectDate.Time, so.TakeEffectDate.Valid),
		ScheduledDeliveryDate: formatDate(so.ScheduledDeliveryDate.Time, so.ScheduledDeliveryDate.Valid),
		Corrected:             res.Corrected,
	}
	if so.DeliveryDay.Valid {
		resp.DeliveryDay = &so.DeliveryDay.String
	}
	return resp
}

func toSaveConfigResponse(clientID uuid.UUID, result *service.SaveResult) saveConfigResponse {
	resp := saveConfigResponse{
		ClientID:        clientID,
		OrderConfig:     result.Config,
		ScheduledOrders: make([]scheduledOrderResponse, len(result.Headers)),
		Removed:         result.Removed,
	}
	for i, res := range result.Headers {
		resp.ScheduledOrders[i] = toScheduledOrderResponse(res)
	}
	return resp
}

// --- Handlers ---

// Create adds a client with a freshly allocated client number.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.NavigatorID != "" {
		if _, err := uuid.Parse(req.NavigatorID); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid navigator_id"})
			return
		}
	}
	amount := decimal.Zero
	if req.AuthorizedAmount != "" {
		d, err := decimal.NewFromString(req.AuthorizedAmount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid authorized_amount"})
			return
		}
		amount = d
	}

	client, err := h.clients.CreateClient(r.Context(), service.CreateClientRequest{
		FullName:         req.FullName,
		ServiceType:      req.ServiceType,
		NavigatorID:      req.NavigatorID,
		AuthorizedAmount: amount,
	})
	if err != nil {
		writeServiceError(w, "create client", err)
		return
	}

	writeJSON(w, http.StatusCreated, toClientResponse(client))
}

// GetOrderConfig returns the client's normalized configuration. A client
// with nothing saved yet gets a null order_config.
func (h *ClientHandler) GetOrderConfig(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseIDParam(w, r, "id", "client")
	if !ok {
		return
	}

	cfg, err := h.configs.GetConfiguration(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, "get order config", err)
		return
	}

	writeJSON(w, http.StatusOK, orderConfigResponse{ClientID: clientID, OrderConfig: cfg})
}

// SaveOrderConfig normalizes and stores the posted document and syncs the
// client's scheduled orders.
func (h *ClientHandler) SaveOrderConfig(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseIDParam(w, r, "id", "client")
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	doc, err := orderconfig.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order configuration"})
		return
	}

	result, err := h.configs.SaveConfiguration(r.Context(), service.SaveRequest{
		ClientID: clientID,
		Document: doc,
		Actor:    middleware.ActorFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, "save order config", err)
		return
	}

	writeJSON(w, http.StatusOK, toSaveConfigResponse(clientID, result))
}

// History returns the client's order history, newest first.
func (h *ClientHandler) History(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseIDParam(w, r, "id", "client")
	if !ok {
		return
	}

	entries, err := h.history.List(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, "list order history", err)
		return
	}
	if entries == nil {
		entries = []service.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func formatDate(t time.Time, valid bool) string {
	if !valid {
		return ""
	}
	return t.Format("2006-01-02")
}

// errIsNotFound reports the not-found sentinels that map to 404.
func errIsNotFound(err error) bool {
	return errors.Is(err, service.ErrClientNotFound) || errors.Is(err, service.ErrOrderNotFound)
}
