// Package advice requests a personalized wellness summary from a
// generative-text provider and falls back to fixed guidance when the
// provider cannot deliver one.
package advice

import (
	"errors"

	"github.com/prohealth/prohealth/internal/bodymetrics"
)

// Errors returned by generators and the response parser. The service
// absorbs all of them.
var (
	ErrMissingCredential = errors.New("advice provider credential not configured")
	ErrEmptyResponse     = errors.New("advice provider returned no content")
	ErrMalformedResponse = errors.New("advice response is not valid JSON")
	ErrMissingField      = errors.New("advice response missing required field")
	ErrRemoteDisabled    = errors.New("remote advice disabled")
)

// Source records where an Advice value came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Request is the profile summary sent to the provider.
type Request struct {
	BMI      float64            `json:"bmi"`
	AgeYears int                `json:"ageYears"`
	Gender   bodymetrics.Gender `json:"gender"`
	Category string             `json:"category"`
	BMR      float64            `json:"bmr"`
}

// RequestFromResult builds an advice request from a computed result.
func RequestFromResult(result *bodymetrics.Result, ageYears int, gender bodymetrics.Gender) Request {
	return Request{
		BMI:      result.BMI,
		AgeYears: ageYears,
		Gender:   gender,
		Category: result.Category,
		BMR:      result.BMR,
	}
}

// Advice is the four-part wellness summary. Source is not part of the
// provider contract.
type Advice struct {
	Analysis          string   `json:"analysis"`
	DietaryTips       []string `json:"dietaryTips"`
	ExerciseTips      []string `json:"exerciseTips"`
	MotivationalQuote string   `json:"motivationalQuote"`
	Source            Source   `json:"-"`
}

// IsFallback reports whether the advice is the fixed fallback content.
func (a *Advice) IsFallback() bool {
	return a.Source == SourceFallback
}
