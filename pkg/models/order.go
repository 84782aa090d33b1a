package models

import (
	"time"
)

// Delivery types accepted on the order form.
const (
	DeliveryTypePickup   = "pickup"
	DeliveryTypeDelivery = "delivery"
)

// Order lifecycle statuses. Transitions between them are guarded by the
// orders package; every order starts as pending.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusReady      = "ready"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// OrderFormData is the raw submission from the order form. Every field is a
// user-supplied string; parsing and validation happen server-side.
type OrderFormData struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`

	OrderDate          string `json:"orderDate"`
	PickupDeliveryDate string `json:"pickupDeliveryDate"`

	FreshArrangementVase string `json:"freshArrangementVase"`
	CutFlowersWrapped    string `json:"cutFlowersWrapped"`
	DishGardenPlanters   string `json:"dishGardenPlanters"`

	Occasion        string `json:"occasion"`
	Budget          string `json:"budget"`
	SpecialRequests string `json:"specialRequests"`

	DeliveryType string `json:"deliveryType"`
	DeliveryTime string `json:"deliveryTime"`

	// Required only when DeliveryType is "delivery".
	RecipientName    string `json:"recipientName,omitempty"`
	RecipientAddress string `json:"recipientAddress,omitempty"`
	RecipientPhone   string `json:"recipientPhone,omitempty"`

	CardMessage string `json:"cardMessage"`
	PaymentType string `json:"paymentType"`
}

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// OrderItems holds the free-text description for each product category. At
// least one must be non-empty for the form to validate.
type OrderItems struct {
	FreshArrangementVase string `json:"freshArrangementVase"`
	CutFlowersWrapped    string `json:"cutFlowersWrapped"`
	DishGardenPlanters   string `json:"dishGardenPlanters"`
}

type Recipient struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Order is the persisted record. Built once per successful submission and
// never mutated afterwards except for status updates.
type Order struct {
	ID                 string     `json:"id,omitempty"`
	OrderNumber        string     `json:"orderNumber"`
	OrderDate          time.Time  `json:"orderDate"`
	PickupDeliveryDate time.Time  `json:"pickupDeliveryDate"`
	Customer           Customer   `json:"customer"`
	CustomerID         *string    `json:"customerId"`
	IsGuestOrder       bool       `json:"isGuestOrder"`
	Items              OrderItems `json:"items"`
	Occasion           string     `json:"occasion"`
	Budget             float64    `json:"budget"`
	SpecialRequests    string     `json:"specialRequests"`
	DeliveryType       string     `json:"deliveryType"`
	DeliveryTime       string     `json:"deliveryTime"`
	Recipient          *Recipient `json:"recipient,omitempty"`
	DeliveryFee        float64    `json:"deliveryFee"`
	CardMessage        string     `json:"cardMessage"`
	PaymentType        string     `json:"paymentType"`
	Status             string     `json:"status"`
	TotalAmount        float64    `json:"totalAmount"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// SubmitOrderResponse is returned on a successful submission.
type SubmitOrderResponse struct {
	Success     bool    `json:"success"`
	OrderNumber string  `json:"orderNumber"`
	DeliveryFee float64 `json:"deliveryFee"`
	Message     string  `json:"message"`
}

// ValidationErrorResponse carries the full ordered list of rule violations.
type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

// ErrorResponse is the generic failure envelope for parse and persistence
// errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type OrderListResponse struct {
	Success bool     `json:"success"`
	Orders  []*Order `json:"orders"`
	Count   int      `json:"count"`
}
