package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dresperanto/studio-flora/internal/events"
	"github.com/dresperanto/studio-flora/internal/storage"
	"github.com/dresperanto/studio-flora/pkg/models"
)

const unknownErrorMessage = "Unknown error occurred"

// EventPublisher is the slice of the Kafka producer the handler needs.
type EventPublisher interface {
	PublishOrderCreated(event events.OrderCreatedEvent) error
}

// WebSocketHub pushes order notifications to connected dashboards.
type WebSocketHub interface {
	BroadcastOrderCreated(order *models.Order)
	BroadcastStatusChanged(order *models.Order, from, to string)
}

// SubmissionGuard filters duplicate form submissions. Reserve returns false
// when an identical submission was accepted moments ago.
type SubmissionGuard interface {
	Reserve(ctx context.Context, fingerprint string) (bool, error)
}

// Handler is the HTTP boundary for order intake: it decodes the form,
// validates, builds the order record, persists it, and maps every outcome to
// a response. Publisher, guard, and hub are optional collaborators.
type Handler struct {
	store    storage.OrderStore
	builder  *Builder
	producer EventPublisher
	guard    SubmissionGuard
	wsHub    WebSocketHub
	logger   *logrus.Logger
}

func NewHandler(store storage.OrderStore, logger *logrus.Logger) *Handler {
	return &Handler{
		store:   store,
		builder: NewBuilder(),
		logger:  logger,
	}
}

func (h *Handler) SetEventPublisher(producer EventPublisher) {
	h.producer = producer
}

func (h *Handler) SetSubmissionGuard(guard SubmissionGuard) {
	h.guard = guard
}

func (h *Handler) SetWebSocketHub(hub WebSocketHub) {
	h.wsHub = hub
}

// SubmitOrder handles POST /api/orders.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var form models.OrderFormData
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.logger.WithError(err).Error("Failed to decode order form")
		h.respondWithJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Message: errorMessage(err),
		})
		return
	}

	if validationErrors := ValidateOrderForm(form); len(validationErrors) > 0 {
		h.logger.WithField("error_count", len(validationErrors)).Info("Order form failed validation")
		h.respondWithJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{
			Error:   "Validation failed",
			Details: validationErrors,
		})
		return
	}

	if h.guard != nil {
		ok, err := h.guard.Reserve(r.Context(), submissionFingerprint(form))
		if err != nil {
			// The guard is best-effort; a broken Redis must not block orders.
			h.logger.WithError(err).Warn("Submission guard unavailable, accepting order")
		} else if !ok {
			h.respondWithJSON(w, http.StatusConflict, models.ErrorResponse{
				Error:   "Duplicate submission",
				Message: "An identical order was just submitted",
			})
			return
		}
	}

	order, err := h.builder.Build(form)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build order from validated form")
		h.respondWithJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to create order",
			Message: errorMessage(err),
		})
		return
	}

	if _, err := h.store.SaveOrder(r.Context(), order); err != nil {
		h.logger.WithError(err).WithField("order_number", order.OrderNumber).Error("Failed to save order")
		h.respondWithJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to create order",
			Message: errorMessage(err),
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_number":  order.OrderNumber,
		"delivery_type": order.DeliveryType,
		"total_amount":  order.TotalAmount,
	}).Info("Order created")

	if h.producer != nil {
		if err := h.producer.PublishOrderCreated(events.NewOrderCreatedEvent(order)); err != nil {
			// The order is already durable; event delivery is not part of
			// the submission contract.
			h.logger.WithError(err).Error("Failed to publish order created event")
		}
	}

	if h.wsHub != nil {
		h.wsHub.BroadcastOrderCreated(order)
	}

	h.respondWithJSON(w, http.StatusCreated, models.SubmitOrderResponse{
		Success:     true,
		OrderNumber: order.OrderNumber,
		DeliveryFee: order.DeliveryFee,
		Message:     "Order created successfully",
	})
}

// ListOrders handles GET /api/orders, optionally filtered by customerId.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")

	orders, err := h.store.ListOrders(r.Context(), customerID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch orders")
		h.respondWithJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to fetch orders",
			Message: errorMessage(err),
		})
		return
	}

	if orders == nil {
		orders = []*models.Order{}
	}

	h.respondWithJSON(w, http.StatusOK, models.OrderListResponse{
		Success: true,
		Orders:  orders,
		Count:   len(orders),
	})
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			h.respondWithJSON(w, http.StatusNotFound, models.ErrorResponse{
				Error:   "Order not found",
				Message: errorMessage(err),
			})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch order")
		h.respondWithJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to fetch order",
			Message: errorMessage(err),
		})
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus handles PUT /api/orders/{id}/status, enforcing the order
// lifecycle before touching the store.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Message: errorMessage(err),
		})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			h.respondWithJSON(w, http.StatusNotFound, models.ErrorResponse{
				Error:   "Order not found",
				Message: errorMessage(err),
			})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch order for status update")
		h.respondWithJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to update order",
			Message: errorMessage(err),
		})
		return
	}

	if err := Transition(order.Status, req.Status); err != nil {
		h.respondWithJSON(w, http.StatusConflict, models.ErrorResponse{
			Error:   "Invalid status transition",
			Message: errorMessage(err),
		})
		return
	}

	if err := h.store.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
		h.logger.WithError(err).Error("Failed to update order status")
		h.respondWithJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to update order",
			Message: errorMessage(err),
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"from":         order.Status,
		"to":           req.Status,
	}).Info("Order status updated")

	if h.wsHub != nil {
		h.wsHub.BroadcastStatusChanged(order, order.Status, req.Status)
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  req.Status,
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "order-service",
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// submissionFingerprint identifies a submission closely enough to catch a
// double-clicked form without blocking a genuinely new order.
func submissionFingerprint(form models.OrderFormData) string {
	return strings.ToLower(strings.TrimSpace(form.Email)) + "|" +
		strings.TrimSpace(form.PickupDeliveryDate) + "|" +
		strings.TrimSpace(form.Budget)
}

func errorMessage(err error) string {
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return unknownErrorMessage
}
