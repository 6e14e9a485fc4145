package models

import (
	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/bodymetrics"
)

// AdviceRequest is the body of POST /v1/advice.
type AdviceRequest struct {
	BMI       float64            `json:"bmi"`
	AgeYears  int                `json:"ageYears"`
	Gender    bodymetrics.Gender `json:"gender"`
	Category  string             `json:"category"`
	BMR       float64            `json:"bmr"`
	SessionID string             `json:"sessionId,omitempty"`
}

// Validate returns field errors for an unusable request.
func (r *AdviceRequest) Validate() []FieldError {
	var errs []FieldError
	if r.BMI <= 0 {
		errs = append(errs, FieldError{Field: "bmi", Message: "must be greater than zero", Code: "INVALID"})
	}
	if r.AgeYears <= 0 {
		errs = append(errs, FieldError{Field: "ageYears", Message: "must be greater than zero", Code: "INVALID"})
	}
	if !r.Gender.Valid() {
		errs = append(errs, FieldError{Field: "gender", Message: "must be MALE or FEMALE", Code: "INVALID"})
	}
	if r.Category == "" {
		errs = append(errs, FieldError{Field: "category", Message: "required", Code: "REQUIRED"})
	}
	return errs
}

// ToDomain converts the request to an advice.Request.
func (r *AdviceRequest) ToDomain() advice.Request {
	return advice.Request{
		BMI:      r.BMI,
		AgeYears: r.AgeYears,
		Gender:   r.Gender,
		Category: r.Category,
		BMR:      r.BMR,
	}
}

// AdviceResponse is the advice plus its provenance.
type AdviceResponse struct {
	Analysis          string        `json:"analysis"`
	DietaryTips       []string      `json:"dietaryTips"`
	ExerciseTips      []string      `json:"exerciseTips"`
	MotivationalQuote string        `json:"motivationalQuote"`
	Source            advice.Source `json:"source"`

	// Stale is true when a newer request or result superseded this one.
	Stale bool `json:"stale,omitempty"`
}

// NewAdviceResponse wraps a.
func NewAdviceResponse(a *advice.Advice, stale bool) AdviceResponse {
	return AdviceResponse{
		Analysis:          a.Analysis,
		DietaryTips:       a.DietaryTips,
		ExerciseTips:      a.ExerciseTips,
		MotivationalQuote: a.MotivationalQuote,
		Source:            a.Source,
		Stale:             stale,
	}
}
