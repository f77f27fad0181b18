// Package validation holds the declarative per-endpoint field constraints
// evaluated against incoming request bodies before any service logic runs.
package validation

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError is one normalized violation, shaped for the API error envelope.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(creditingPeriodOrdered, SubmitClaimPayload{})
	return v
}

// SubmitClaimPayload is the rule set for POST /api/claims.
type SubmitClaimPayload struct {
	ProjectID      string    `json:"projectId" validate:"required,uuid4"`
	VintageYear    int       `json:"vintageYear" validate:"required,gte=2000,lte=2100"`
	ClaimedCredits float64   `json:"claimedCredits" validate:"required,gt=0"`
	CreditingStart time.Time `json:"creditingStart" validate:"required"`
	CreditingEnd   time.Time `json:"creditingEnd" validate:"required"`
	Methodology    string    `json:"methodology" validate:"required,max=120"`
}

// CreateListingPayload is the rule set for POST /api/marketplace/list.
type CreateListingPayload struct {
	ClaimID        string  `json:"claimId" validate:"required,uuid4"`
	CreditsToSell  float64 `json:"creditsToSell" validate:"required,gt=0"`
	PricePerCredit float64 `json:"pricePerCredit" validate:"omitempty,gt=0"`
}

// BuyPayload is the rule set for POST /api/marketplace/buy.
type BuyPayload struct {
	ListingID string  `json:"listingId" validate:"required,uuid4"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
}

// cross-field rule: the crediting period must be ordered
func creditingPeriodOrdered(sl validator.StructLevel) {
	p := sl.Current().Interface().(SubmitClaimPayload)
	if !p.CreditingStart.IsZero() && !p.CreditingEnd.IsZero() && !p.CreditingEnd.After(p.CreditingStart) {
		sl.ReportError(p.CreditingEnd, "creditingEnd", "CreditingEnd", "after_start", "")
	}
}

// Evaluate runs the payload's rule set and normalizes violations.
func Evaluate(payload interface{}) []FieldError {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid4":
		return "must be a valid id"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "after_start":
		return "must be after the crediting start date"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
