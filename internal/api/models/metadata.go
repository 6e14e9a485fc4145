package models

import "github.com/prohealth/prohealth/internal/bodymetrics"

// CategoryLegend lists the BMI categories in ascending order.
type CategoryLegend struct {
	Items []bodymetrics.Category `json:"items"`
}

// Defaults is the reset form for a unit system.
type Defaults struct {
	Input bodymetrics.MeasurementInput `json:"input"`
}
