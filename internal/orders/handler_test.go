package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dresperanto/studio-flora/internal/events"
	"github.com/dresperanto/studio-flora/internal/storage"
	"github.com/dresperanto/studio-flora/pkg/models"
)

type capturingPublisher struct {
	published []events.OrderCreatedEvent
	err       error
}

func (p *capturingPublisher) PublishOrderCreated(event events.OrderCreatedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

type capturingHub struct {
	created []*models.Order
	changes [][2]string
}

func (h *capturingHub) BroadcastOrderCreated(order *models.Order) {
	h.created = append(h.created, order)
}

func (h *capturingHub) BroadcastStatusChanged(order *models.Order, from, to string) {
	h.changes = append(h.changes, [2]string{from, to})
}

type stubGuard struct {
	allow bool
	err   error
}

func (g *stubGuard) Reserve(ctx context.Context, fingerprint string) (bool, error) {
	return g.allow, g.err
}

type failingStore struct{}

func (failingStore) SaveOrder(ctx context.Context, order *models.Order) (string, error) {
	return "", errors.New("connection refused")
}

func (failingStore) ListOrders(ctx context.Context, customerID string) ([]*models.Order, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return errors.New("connection refused")
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/orders", h.SubmitOrder).Methods("POST")
	router.HandleFunc("/api/orders", h.ListOrders).Methods("GET")
	router.HandleFunc("/api/orders/{id}", h.GetOrder).Methods("GET")
	router.HandleFunc("/api/orders/{id}/status", h.UpdateOrderStatus).Methods("PUT")
	return router
}

func todaysDate() string {
	return time.Now().Format("2006-01-02")
}

func submittableForm(deliveryType string) models.OrderFormData {
	form := validPickupForm()
	form.OrderDate = todaysDate()
	form.PickupDeliveryDate = todaysDate()
	if deliveryType == models.DeliveryTypeDelivery {
		form.DeliveryType = models.DeliveryTypeDelivery
		form.RecipientName = "John Doe"
		form.RecipientAddress = "Downtown Plaza"
		form.RecipientPhone = "555-987-6543"
	}
	return form
}

func postOrder(t *testing.T, router *mux.Router, form models.OrderFormData) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(form)
	if err != nil {
		t.Fatalf("marshal form: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSubmitPickupOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := NewHandler(store, newTestLogger())
	router := newTestRouter(handler)

	rr := postOrder(t, router, submittableForm(models.DeliveryTypePickup))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.SubmitOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.DeliveryFee != 0 {
		t.Errorf("expected success with fee 0, got %+v", resp)
	}
	if !strings.HasPrefix(resp.OrderNumber, "SF-") {
		t.Errorf("expected SF- order number, got %q", resp.OrderNumber)
	}

	saved, err := store.ListOrders(context.Background(), "")
	if err != nil || len(saved) != 1 {
		t.Fatalf("expected 1 saved order, got %d (err %v)", len(saved), err)
	}
	order := saved[0]
	if order.TotalAmount != 50 || order.DeliveryFee != 0 {
		t.Errorf("expected total 50 / fee 0, got %v / %v", order.TotalAmount, order.DeliveryFee)
	}
	if order.Recipient != nil {
		t.Errorf("pickup order must not have a recipient")
	}
	if order.Status != models.StatusPending {
		t.Errorf("expected pending, got %q", order.Status)
	}
}

func TestSubmitDeliveryOrderDowntown(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := NewHandler(store, newTestLogger())
	publisher := &capturingPublisher{}
	hub := &capturingHub{}
	handler.SetEventPublisher(publisher)
	handler.SetWebSocketHub(hub)
	router := newTestRouter(handler)

	form := submittableForm(models.DeliveryTypeDelivery)
	form.Budget = "40"

	rr := postOrder(t, router, form)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.SubmitOrderResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.DeliveryFee != 10 {
		t.Errorf("expected downtown fee 10, got %v", resp.DeliveryFee)
	}

	saved, _ := store.ListOrders(context.Background(), "")
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved order, got %d", len(saved))
	}
	order := saved[0]
	if order.TotalAmount != 50 {
		t.Errorf("expected total 50, got %v", order.TotalAmount)
	}
	if order.Recipient == nil || order.Recipient.Address != "Downtown Plaza" {
		t.Errorf("expected recipient with Downtown Plaza address, got %+v", order.Recipient)
	}

	if len(publisher.published) != 1 || publisher.published[0].OrderNumber != order.OrderNumber {
		t.Errorf("expected one published event for %s, got %+v", order.OrderNumber, publisher.published)
	}
	if len(hub.created) != 1 {
		t.Errorf("expected one dashboard notification, got %d", len(hub.created))
	}
}

func TestSubmitValidationFailureSkipsPersistence(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := NewHandler(store, newTestLogger())
	publisher := &capturingPublisher{}
	handler.SetEventPublisher(publisher)
	router := newTestRouter(handler)

	form := submittableForm(models.DeliveryTypePickup)
	form.Budget = "0"

	rr := postOrder(t, router, form)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp models.ValidationErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Validation failed" {
		t.Errorf("expected validation error envelope, got %+v", resp)
	}
	if !containsMessage(resp.Details, msgBudgetInvalid) {
		t.Errorf("expected budget message in %v", resp.Details)
	}

	if saved, _ := store.ListOrders(context.Background(), ""); len(saved) != 0 {
		t.Errorf("persistence must not be attempted on validation failure, found %d orders", len(saved))
	}
	if len(publisher.published) != 0 {
		t.Errorf("no event may be published on validation failure")
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	handler := NewHandler(storage.NewMemoryStore(), newTestLogger())
	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp models.ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Error != "Invalid request body" {
		t.Errorf("expected invalid body envelope, got %+v", resp)
	}
}

func TestSubmitPersistenceFailure(t *testing.T) {
	handler := NewHandler(failingStore{}, newTestLogger())
	router := newTestRouter(handler)

	rr := postOrder(t, router, submittableForm(models.DeliveryTypePickup))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Error != "Failed to create order" {
		t.Errorf("expected create failure envelope, got %+v", resp)
	}
	if !strings.Contains(resp.Message, "connection refused") {
		t.Errorf("expected underlying message surfaced, got %q", resp.Message)
	}
}

func TestSubmitDuplicateGuard(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := NewHandler(store, newTestLogger())
	handler.SetSubmissionGuard(&stubGuard{allow: false})
	router := newTestRouter(handler)

	rr := postOrder(t, router, submittableForm(models.DeliveryTypePickup))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if saved, _ := store.ListOrders(context.Background(), ""); len(saved) != 0 {
		t.Errorf("duplicate submission must not be persisted")
	}
}

func TestSubmitGuardFailureDoesNotBlockOrders(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := NewHandler(store, newTestLogger())
	handler.SetSubmissionGuard(&stubGuard{err: errors.New("redis down")})
	router := newTestRouter(handler)

	rr := postOrder(t, router, submittableForm(models.DeliveryTypePickup))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 when guard is down, got %d", rr.Code)
	}
}

func seedOrder(t *testing.T, store *storage.MemoryStore, id string, createdAt time.Time, customerID *string) {
	t.Helper()
	_, err := store.SaveOrder(context.Background(), &models.Order{
		ID:           id,
		OrderNumber:  "SF-" + id,
		Customer:     models.Customer{FirstName: "Jane", LastName: "Doe"},
		CustomerID:   customerID,
		IsGuestOrder: customerID == nil,
		Status:       models.StatusPending,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("seed order %s: %v", id, err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	store := storage.NewMemoryStore()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	customer := "cust-1"
	seedOrder(t, store, "a", base, nil)
	seedOrder(t, store, "b", base.Add(2*time.Hour), &customer)
	seedOrder(t, store, "c", base.Add(time.Hour), nil)

	handler := NewHandler(store, newTestLogger())
	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp models.OrderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 3 || len(resp.Orders) != 3 {
		t.Fatalf("expected 3 orders, got %+v", resp)
	}
	gotIDs := []string{resp.Orders[0].ID, resp.Orders[1].ID, resp.Orders[2].ID}
	wantIDs := []string{"b", "c", "a"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("expected order %v, got %v", wantIDs, gotIDs)
		}
	}
}

func TestListOrdersFilteredByCustomer(t *testing.T) {
	store := storage.NewMemoryStore()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	customer := "cust-1"
	seedOrder(t, store, "a", base, nil)
	seedOrder(t, store, "b", base.Add(time.Hour), &customer)

	handler := NewHandler(store, newTestLogger())
	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/orders?customerId=cust-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var resp models.OrderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Orders[0].ID != "b" {
		t.Errorf("expected only customer order b, got %+v", resp)
	}
}

func TestGetOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	seedOrder(t, store, "a", time.Now(), nil)

	handler := NewHandler(store, newTestLogger())
	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/a", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var order models.Order
	if err := json.Unmarshal(rr.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.ID != "a" {
		t.Errorf("expected order a, got %q", order.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders/missing", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown order, got %d", rr.Code)
	}
}

func putStatus(t *testing.T, router *mux.Router, id, status string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"status":"` + status + `"}`
	req := httptest.NewRequest(http.MethodPut, "/api/orders/"+id+"/status", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUpdateOrderStatus(t *testing.T) {
	store := storage.NewMemoryStore()
	seedOrder(t, store, "a", time.Now(), nil)

	handler := NewHandler(store, newTestLogger())
	hub := &capturingHub{}
	handler.SetWebSocketHub(hub)
	router := newTestRouter(handler)

	if rr := putStatus(t, router, "a", models.StatusInProgress); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	order, _ := store.GetOrder(context.Background(), "a")
	if order.Status != models.StatusInProgress {
		t.Errorf("expected in_progress, got %q", order.Status)
	}
	if len(hub.changes) != 1 || hub.changes[0] != [2]string{models.StatusPending, models.StatusInProgress} {
		t.Errorf("expected status-change notification, got %v", hub.changes)
	}

	// in_progress -> completed skips ready and must be rejected.
	if rr := putStatus(t, router, "a", models.StatusCompleted); rr.Code != http.StatusConflict {
		t.Errorf("expected 409 for invalid transition, got %d", rr.Code)
	}

	if rr := putStatus(t, router, "missing", models.StatusInProgress); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown order, got %d", rr.Code)
	}
}

type blankError struct{}

func (blankError) Error() string { return "" }

func TestErrorMessageFallback(t *testing.T) {
	if got := errorMessage(blankError{}); got != unknownErrorMessage {
		t.Errorf("expected fallback message, got %q", got)
	}
	if got := errorMessage(errors.New("boom")); got != "boom" {
		t.Errorf("expected underlying message, got %q", got)
	}
}
