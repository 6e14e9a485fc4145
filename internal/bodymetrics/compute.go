package bodymetrics

import (
	"math"
	"time"
)

// Conversion factors and formula coefficients.
const (
	KgPerLb       = 0.453592
	CmPerInch     = 2.54
	InchesPerFoot = 12

	MinNormalBMI = 18.5
	MaxNormalBMI = 24.9

	WaterLitersPerKg = 0.033

	gaugeMinBMI = 10
	gaugeMaxBMI = 40
)

// Body is a measurement normalized to metric units.
type Body struct {
	WeightKg float64
	HeightCm float64
	HeightM  float64
}

// Compute validates input and derives all metrics from it. now stamps the
// result. On a ValidationError no result is returned.
func Compute(input MeasurementInput, now time.Time) (*Result, error) {
	if errs := Validate(input); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	body := Normalize(input)
	bmi := BMI(body)
	cat := Classify(bmi)
	ideal := IdealWeightFor(body.HeightM, input.UnitSystem)
	bmr := BMR(body, input.AgeYears, input.Gender)
	water := WaterIntake(body)

	// Positive inputs can still be extreme enough to overflow.
	if !finite(bmi, ideal.Min, ideal.Max, bmr, water) {
		return nil, &ValidationError{Errors: outOfRange(input.UnitSystem)}
	}

	return &Result{
		BMI:               bmi,
		Category:          cat.Label,
		Color:             cat.Color,
		IdealWeightRange:  ideal.String(),
		IdealWeight:       ideal,
		BMR:               bmr,
		WaterIntakeLiters: water,
		GaugePercent:      GaugePercent(bmi),
		UnitSystem:        input.UnitSystem,
		ComputedAt:        now.UnixMilli(),
	}, nil
}

// Validate returns one FieldError per missing or non-positive field. In
// imperial units feet may be zero as long as the total height is positive.
func Validate(input MeasurementInput) []FieldError {
	var errs []FieldError

	if !input.UnitSystem.Valid() {
		errs = append(errs, FieldError{Field: "unitSystem", Message: "must be METRIC or IMPERIAL"})
	}
	if input.AgeYears <= 0 {
		errs = append(errs, FieldError{Field: "ageYears", Message: "must be a positive integer"})
	}
	if !input.Gender.Valid() {
		errs = append(errs, FieldError{Field: "gender", Message: "must be MALE or FEMALE"})
	}

	switch input.UnitSystem {
	case UnitMetric:
		if !positive(input.HeightCm) {
			errs = append(errs, FieldError{Field: "heightCm", Message: "must be positive"})
		}
		if !positive(input.WeightKg) {
			errs = append(errs, FieldError{Field: "weightKg", Message: "must be positive"})
		}
	case UnitImperial:
		feetOK := nonNegative(input.HeightFeet)
		inchesOK := nonNegative(input.HeightInches)
		if !feetOK {
			errs = append(errs, FieldError{Field: "heightFeet", Message: "must not be negative"})
		}
		if !inchesOK {
			errs = append(errs, FieldError{Field: "heightInches", Message: "must not be negative"})
		}
		// 0 ft 10 in is a height; 0 ft 0 in is not.
		if feetOK && inchesOK && input.HeightFeet*InchesPerFoot+input.HeightInches <= 0 {
			errs = append(errs, FieldError{Field: "heightFeet", Message: "total height must be positive"})
		}
		if !positive(input.WeightLbs) {
			errs = append(errs, FieldError{Field: "weightLbs", Message: "must be positive"})
		}
	}

	return errs
}

// Normalize converts input to metric once so the formulas are unit-agnostic.
func Normalize(input MeasurementInput) Body {
	var b Body
	if input.UnitSystem == UnitImperial {
		b.WeightKg = input.WeightLbs * KgPerLb
		totalInches := input.HeightFeet*InchesPerFoot + input.HeightInches
		b.HeightCm = totalInches * CmPerInch
	} else {
		b.WeightKg = input.WeightKg
		b.HeightCm = input.HeightCm
	}
	b.HeightM = b.HeightCm / 100
	return b
}

// BMI is weight in kilograms over height in meters squared.
func BMI(b Body) float64 {
	return b.WeightKg / (b.HeightM * b.HeightM)
}

// IdealWeightFor inverts the BMI formula at the Normal band bounds and
// expresses the result in the display unit.
func IdealWeightFor(heightM float64, unit UnitSystem) IdealWeight {
	sq := heightM * heightM
	minKg := MinNormalBMI * sq
	maxKg := MaxNormalBMI * sq

	if unit == UnitImperial {
		return IdealWeight{Min: minKg / KgPerLb, Max: maxKg / KgPerLb, Unit: "lbs"}
	}
	return IdealWeight{Min: minKg, Max: maxKg, Unit: "kg"}
}

// BMR estimates basal metabolic rate in kcal/day (Mifflin-St Jeor).
func BMR(b Body, ageYears int, gender Gender) float64 {
	base := 10*b.WeightKg + 6.25*b.HeightCm - 5*float64(ageYears)
	if gender == GenderMale {
		return base + 5
	}
	return base - 161
}

// WaterIntake returns the recommended liters per day.
func WaterIntake(b Body) float64 {
	return b.WeightKg * WaterLitersPerKg
}

// GaugePercent maps BMI 10..40 onto 0..100, clamping outside values.
func GaugePercent(bmi float64) float64 {
	v := math.Min(math.Max(bmi, gaugeMinBMI), gaugeMaxBMI)
	return (v - gaugeMinBMI) / (gaugeMaxBMI - gaugeMinBMI) * 100
}

// DefaultInput returns the calculator's reset values for a unit system.
func DefaultInput(unit UnitSystem) MeasurementInput {
	in := MeasurementInput{
		UnitSystem: unit,
		AgeYears:   25,
		Gender:     GenderMale,
	}
	if unit == UnitImperial {
		in.HeightFeet = 5
		in.HeightInches = 9
		in.WeightLbs = 154
		return in
	}
	in.UnitSystem = UnitMetric
	in.HeightCm = 175
	in.WeightKg = 70
	return in
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func outOfRange(unit UnitSystem) []FieldError {
	height, weight := "heightCm", "weightKg"
	if unit == UnitImperial {
		height, weight = "heightFeet", "weightLbs"
	}
	return []FieldError{
		{Field: height, Message: "out of range"},
		{Field: weight, Message: "out of range"},
	}
}
