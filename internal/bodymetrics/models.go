// Package bodymetrics computes BMI, BMR, ideal weight and water intake
// from body measurements.
package bodymetrics

import (
	"fmt"
	"strings"
	"time"
)

// UnitSystem is the measurement system the user entered values in.
type UnitSystem string

const (
	UnitMetric   UnitSystem = "METRIC"
	UnitImperial UnitSystem = "IMPERIAL"
)

// Gender selects the Mifflin-St Jeor constant.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Valid reports whether the unit system is known.
func (u UnitSystem) Valid() bool {
	return u == UnitMetric || u == UnitImperial
}

// Valid reports whether the gender is known.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// DisplayName returns "Male" or "Female".
func (g Gender) DisplayName() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return string(g)
	}
}

// MeasurementInput holds raw user-entered measurements.
// Only the fields belonging to UnitSystem are read.
type MeasurementInput struct {
	UnitSystem UnitSystem `json:"unitSystem"`
	AgeYears   int        `json:"ageYears"`
	Gender     Gender     `json:"gender"`

	// Metric
	HeightCm float64 `json:"heightCm,omitempty"`
	WeightKg float64 `json:"weightKg,omitempty"`

	// Imperial
	HeightFeet   float64 `json:"heightFeet,omitempty"`
	HeightInches float64 `json:"heightInches,omitempty"`
	WeightLbs    float64 `json:"weightLbs,omitempty"`
}

// IdealWeight is the weight band corresponding to the Normal BMI category,
// expressed in the display unit.
type IdealWeight struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// String formats the band to one decimal place with its unit suffix.
func (w IdealWeight) String() string {
	return fmt.Sprintf("%.1f - %.1f %s", w.Min, w.Max, w.Unit)
}

// Result is a computed set of metrics. It is never mutated after Compute
// returns it.
type Result struct {
	BMI               float64     `json:"bmi"`
	Category          string      `json:"category"`
	Color             string      `json:"color"`
	IdealWeightRange  string      `json:"idealWeightRange"`
	IdealWeight       IdealWeight `json:"idealWeight"`
	BMR               float64     `json:"bmr"`
	WaterIntakeLiters float64     `json:"waterIntake"`
	GaugePercent      float64     `json:"gaugePercent"`
	UnitSystem        UnitSystem  `json:"unitSystem"`
	ComputedAt        int64       `json:"timestamp"`
}

// ComputedTime returns ComputedAt as a time.Time.
func (r *Result) ComputedTime() time.Time {
	return time.UnixMilli(r.ComputedAt)
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by Compute when required input is missing or
// not strictly positive. No result is produced alongside it.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return "cannot compute metrics: " + strings.Join(parts, ", ")
}
