package orders

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dresperanto/studio-flora/pkg/models"
)

// Validation messages, in the order the rules run. The same list is shown on
// the form and returned by the API, so the wording is part of the contract.
const (
	msgFirstNameRequired = "First name is required"
	msgLastNameRequired  = "Last name is required"
	msgPhoneRequired     = "Phone number is required"
	msgEmailRequired     = "Email is required"
	msgDateRequired      = "Pickup/delivery date is required"
	msgOccasionRequired  = "Occasion is required"
	msgBudgetInvalid     = "Budget must be greater than 0"
	msgEmailInvalid      = "Please enter a valid email address"
	msgPhoneInvalid      = "Please enter a valid phone number"
	msgDateInPast        = "Pickup/delivery date must be today or in the future"
	msgRecipientName     = "Recipient name is required for delivery"
	msgRecipientAddress  = "Recipient address is required for delivery"
	msgRecipientPhone    = "Recipient phone is required for delivery"
	msgNoItems           = "Please specify at least one item for your order"
)

var (
	// local-part and domain contain no whitespace and no "@"; the domain
	// must contain at least one dot.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// At least 10 digits, optionally prefixed with "+" and interspersed
	// with spaces, hyphens, and parentheses.
	phonePattern = regexp.MustCompile(`^\+?[\s\-()]*([0-9][\s\-()]*){10,}$`)
)

// Dates arrive from the form as yyyy-mm-dd; RFC 3339 is accepted for callers
// that submit programmatically.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(value string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// ValidateOrderForm checks a submitted form against the full ruleset and
// returns every violation as a human-readable message, in rule order. An
// empty slice means the form is valid. This is the single shared ruleset:
// both the submission endpoint and any pre-submission check call it.
func ValidateOrderForm(form models.OrderFormData) []string {
	return validateOrderFormAt(form, time.Now())
}

func validateOrderFormAt(form models.OrderFormData, now time.Time) []string {
	var errs []string

	if strings.TrimSpace(form.FirstName) == "" {
		errs = append(errs, msgFirstNameRequired)
	}
	if strings.TrimSpace(form.LastName) == "" {
		errs = append(errs, msgLastNameRequired)
	}
	if strings.TrimSpace(form.Phone) == "" {
		errs = append(errs, msgPhoneRequired)
	}
	if strings.TrimSpace(form.Email) == "" {
		errs = append(errs, msgEmailRequired)
	}
	if strings.TrimSpace(form.PickupDeliveryDate) == "" {
		errs = append(errs, msgDateRequired)
	}
	if strings.TrimSpace(form.Occasion) == "" {
		errs = append(errs, msgOccasionRequired)
	}

	budget, err := strconv.ParseFloat(form.Budget, 64)
	if form.Budget == "" || err != nil || math.IsNaN(budget) || math.IsInf(budget, 0) || budget <= 0 {
		errs = append(errs, msgBudgetInvalid)
	}

	if form.Email != "" && !emailPattern.MatchString(form.Email) {
		errs = append(errs, msgEmailInvalid)
	}

	if form.Phone != "" && !phonePattern.MatchString(form.Phone) {
		errs = append(errs, msgPhoneInvalid)
	}

	if strings.TrimSpace(form.PickupDeliveryDate) != "" {
		// Calendar-date comparison with time of day zeroed: today passes,
		// any earlier date fails. Comparing in UTC keeps a form date (which
		// parses at UTC midnight) from drifting a day against server time.
		date, err := parseDate(form.PickupDeliveryDate)
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if err != nil || day.Before(today) {
			errs = append(errs, msgDateInPast)
		}
	}

	if form.DeliveryType == models.DeliveryTypeDelivery {
		if strings.TrimSpace(form.RecipientName) == "" {
			errs = append(errs, msgRecipientName)
		}
		if strings.TrimSpace(form.RecipientAddress) == "" {
			errs = append(errs, msgRecipientAddress)
		}
		if strings.TrimSpace(form.RecipientPhone) == "" {
			errs = append(errs, msgRecipientPhone)
		}
	}

	hasItems := strings.TrimSpace(form.FreshArrangementVase) != "" ||
		strings.TrimSpace(form.CutFlowersWrapped) != "" ||
		strings.TrimSpace(form.DishGardenPlanters) != ""
	if !hasItems {
		errs = append(errs, msgNoItems)
	}

	return errs
}
