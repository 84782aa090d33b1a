package orders

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dresperanto/studio-flora/pkg/models"
)

const orderNumberPrefix = "SF"

// Builder assembles a persistable Order from a validated form. Clock, random
// source, and ID generator are injected so construction is deterministic
// under test; NewBuilder wires the real ones.
type Builder struct {
	now   func() time.Time
	randN func(n int) int
	newID func() string
}

func NewBuilder() *Builder {
	return &Builder{
		now:   time.Now,
		randN: rand.Intn,
		newID: func() string { return uuid.New().String() },
	}
}

// OrderNumber produces a customer-facing order number: prefix, current time
// in milliseconds since epoch, and a random integer in [0, 1000). Uniqueness
// is best-effort; the store's primary key is the separately generated ID.
func (b *Builder) OrderNumber() string {
	return fmt.Sprintf("%s-%d-%d", orderNumberPrefix, b.now().UnixMilli(), b.randN(1000))
}

// Build converts a validated OrderFormData into an Order. The caller must
// have run ValidateOrderForm first; Build returns an error only when the
// budget or pickup/delivery date fail to parse, which a validated form never
// does.
func (b *Builder) Build(form models.OrderFormData) (*models.Order, error) {
	budget, err := strconv.ParseFloat(form.Budget, 64)
	if err != nil {
		return nil, fmt.Errorf("parse budget %q: %w", form.Budget, err)
	}

	pickupDeliveryDate, err := parseDate(form.PickupDeliveryDate)
	if err != nil {
		return nil, fmt.Errorf("parse pickup/delivery date %q: %w", form.PickupDeliveryDate, err)
	}

	now := b.now()

	// The order date is informational; an absent or unparsable value falls
	// back to the submission time.
	orderDate, err := parseDate(form.OrderDate)
	if err != nil {
		orderDate = now
	}

	fee := DeliveryFee(form.DeliveryType, form.RecipientAddress)

	order := &models.Order{
		ID:                 b.newID(),
		OrderNumber:        b.OrderNumber(),
		OrderDate:          orderDate,
		PickupDeliveryDate: pickupDeliveryDate,
		Customer: models.Customer{
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Phone:     form.Phone,
			Email:     form.Email,
		},
		CustomerID:   nil,
		IsGuestOrder: true,
		Items: models.OrderItems{
			FreshArrangementVase: form.FreshArrangementVase,
			CutFlowersWrapped:    form.CutFlowersWrapped,
			DishGardenPlanters:   form.DishGardenPlanters,
		},
		Occasion:        form.Occasion,
		Budget:          budget,
		SpecialRequests: form.SpecialRequests,
		DeliveryType:    form.DeliveryType,
		DeliveryTime:    form.DeliveryTime,
		DeliveryFee:     fee,
		CardMessage:     form.CardMessage,
		PaymentType:     form.PaymentType,
		Status:          models.StatusPending,
		TotalAmount:     budget + fee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if form.DeliveryType == models.DeliveryTypeDelivery {
		order.Recipient = &models.Recipient{
			Name:    form.RecipientName,
			Address: form.RecipientAddress,
			Phone:   form.RecipientPhone,
		}
	}

	return order, nil
}
