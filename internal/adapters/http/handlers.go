package http

import (
	"encoding/json"
	"net/http"

	"github.com/joaodurante/order-saga/internal/order"
)

type Handler struct {
	service *order.Service
}

func NewHandler(service *order.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	event, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusCreated, event)
}

func (h *Handler) findEvent(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	transactionID := r.URL.Query().Get("transactionId")
	event, err := h.service.FindByFilters(r.Context(), orderID, transactionID)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, event)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.FindAll(r.Context())
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, events)
}
