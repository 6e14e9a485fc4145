package models

// HealthStatus is the coarse state reported by the ops endpoints.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

func (s HealthStatus) rank() int {
	switch s {
	case HealthStatusOK:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns whichever of s and other is more severe.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus is the body of GET /v1/ops/status.
type SystemStatus struct {
	Status                 HealthStatus      `json:"status"`
	Time                   Timestamp         `json:"time"`
	Subsystems             []SubsystemStatus `json:"subsystems"`
	Providers              []ProviderStatus  `json:"providers"`
	ActiveDegradationFlags []string          `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus is one readiness dependency, e.g. history storage.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus is one remote provider and its circuit breaker.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	Requests      uint32       `json:"requests"`
	Failures      uint32       `json:"failures"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
