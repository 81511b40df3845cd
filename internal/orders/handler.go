package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/polina-mishina/bookstore/internal/domain"
	"github.com/polina-mishina/bookstore/internal/inventory"
	"github.com/polina-mishina/bookstore/internal/requestid"
)

// Handler exposes the order API. Token validation happens in front of this
// service; the caller's id arrives in the X-User-ID header and the raw bearer
// token is forwarded untouched to the books service.
type Handler struct {
	coordinator *Coordinator
	logger      *slog.Logger
}

func NewHandler(coordinator *Coordinator, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		logger:      logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /orders", h.HandleList)
	mux.HandleFunc("GET /orders/me", h.HandleListMine)
	mux.HandleFunc("GET /orders/user/{id}", h.HandleListByUser)
	mux.HandleFunc("GET /orders/{id}", h.HandleGet)
	mux.HandleFunc("POST /orders", h.HandleCreate)
	mux.HandleFunc("PUT /orders/{id}", h.HandleUpdate)
	mux.HandleFunc("PUT /orders/{id}/status", h.HandleUpdateStatus)
	mux.HandleFunc("DELETE /orders/{id}", h.HandleDelete)
}

type createOrderRequest struct {
	Items []domain.OrderItem `json:"items"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	order, err := h.coordinator.Create(r.Context(), userID, bearerToken(r), req.Items)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.coordinator.Get(r.Context(), id, bearerToken(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.coordinator.List(r.Context(), bearerToken(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	orders, err := h.coordinator.ListByUser(r.Context(), userID, bearerToken(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	orders, err := h.coordinator.ListByUser(r.Context(), userID, bearerToken(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

type updateOrderRequest struct {
	Items []domain.OrderItem `json:"items"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	order, err := h.coordinator.Update(r.Context(), id, userID, bearerToken(r), req.Items)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.Status `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.coordinator.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	if err := h.coordinator.Delete(r.Context(), id, bearerToken(r)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "missing caller identity")
		return 0, false
	}
	return userID, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *inventory.ServiceError

	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, inventory.ErrBookNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrOrderClosed):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &svcErr):
		h.logger.Error("books service call failed", "error", err, "path", r.URL.Path, "request_id", requestid.FromContext(r.Context()))
		h.writeError(w, http.StatusBadGateway, "books service unavailable")
	default:
		h.logger.Error("order operation failed", "error", err, "path", r.URL.Path, "request_id", requestid.FromContext(r.Context()))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
