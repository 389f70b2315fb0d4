package types

import "time"

// ScanError records a failure attributable to exactly one
// (service, region, operation) triple. Scan errors never cross the
// orchestrator boundary; they accumulate on the session instead.
type ScanError struct {
	Service   string    `json:"service"`
	Region    string    `json:"region"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanWarning is a non-fatal observation with the same attribution
// shape as ScanError.
type ScanWarning struct {
	Service   string    `json:"service"`
	Region    string    `json:"region"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewScanError builds a timestamped scan error.
func NewScanError(service, region, operation, message string) ScanError {
	return ScanError{
		Service:   service,
		Region:    region,
		Operation: operation,
		Message:   message,
		Timestamp: time.Now(),
	}
}
