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
	"github.com/homedeliver/api/internal/enum"
	"github.com/homedeliver/api/internal/middleware"
	"github.com/homedeliver/api/internal/service"
)

// maxProofSize caps a delivery proof upload.
const maxProofSize = 10 << 20

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	RecordDeliveryProof(ctx context.Context, up service.ProofUpload) (*database.Order, error)
	UpdateBillingStatus(ctx context.Context, orderID uuid.UUID, status string) (*database.Order, error)
}

// OrderHandler handles delivery proof and billing endpoints for placed orders.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders. Role checks are applied per route by
// the router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/proof", h.UploadProof)
	r.Patch("/{id}/billing-status", h.UpdateBillingStatus)
}

// --- Request / Response types ---

type updateBillingStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                    uuid.UUID `json:"id"`
	OrderNumber           int64     `json:"order_number"`
	ClientID              uuid.UUID `json:"client_id"`
	ServiceType           string    `json:"service_type"`
	CaseID                *string   `json:"case_id"`
	Status                string    `json:"status"`
	DeliveryDay           *string   `json:"delivery_day"`
	MealType              string    `json:"meal_type"`
	ScheduledDeliveryDate string    `json:"scheduled_delivery_date"`
	ActualDeliveryDate    *string   `json:"actual_delivery_date"`
	TotalValue            string    `json:"total_value"`
	TotalItems            int32     `json:"total_items"`
	DeliveryProofURL      *string   `json:"delivery_proof_url"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toOrderResponse(o *database.Order) orderResponse {
	resp := orderResponse{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		ClientID:              o.ClientID,
		ServiceType:           o.ServiceType,
		Status:                o.Status,
		MealType:              o.MealType,
		ScheduledDeliveryDate: formatDate(o.ScheduledDeliveryDate.Time, o.ScheduledDeliveryDate.Valid),
		TotalValue:            numericToString(o.TotalValue),
		TotalItems:            o.TotalItems,
		UpdatedAt:             o.UpdatedAt.Time,
	}
	if o.CaseID.Valid {
		resp.CaseID = &o.CaseID.String
	}
	if o.DeliveryDay.Valid {
		resp.DeliveryDay = &o.DeliveryDay.String
	}
	if o.ActualDeliveryDate.Valid {
		s := formatDate(o.ActualDeliveryDate.Time, true)
		resp.ActualDeliveryDate = &s
	}
	if o.DeliveryProofUrl.Valid {
		resp.DeliveryProofURL = &o.DeliveryProofUrl.String
	}
	return resp
}

// --- Handlers ---

// UploadProof stores a delivery photo and moves the order to billing.
// Vendors may only upload for orders that include them.
func (h *OrderHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id", "order")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProofSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not read file"})
		return
	}

	up := service.ProofUpload{
		OrderID:     orderID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Actor:       middleware.ActorFromContext(r.Context()),
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.Role == enum.UserRoleVendor {
		if claims.VendorID == uuid.Nil {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "vendor account has no vendor"})
			return
		}
		up.VendorID = claims.VendorID
	}

	order, err := h.svc.RecordDeliveryProof(r.Context(), up)
	if err != nil {
		writeServiceError(w, "record delivery proof", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateBillingStatus settles a billing_pending order.
func (h *OrderHandler) UpdateBillingStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateBillingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateBillingStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, "update billing status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
