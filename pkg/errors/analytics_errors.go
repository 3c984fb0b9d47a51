package errors

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AnalyticsError represents a structured error from an engine component.
// The analytics core never surfaces these to API callers; they are the
// operator-facing channel for persistence and collector failures.
type AnalyticsError struct {
	Component   string                 `json:"component"`
	ErrorType   string                 `json:"error_type"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Severity    Severity               `json:"severity"`
	Recoverable bool                   `json:"recoverable"`
	Cause       error                  `json:"-"`
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Error implements the error interface
func (ae *AnalyticsError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ae.Component, ae.ErrorType, ae.Message)
}

// Unwrap returns the underlying cause
func (ae *AnalyticsError) Unwrap() error {
	return ae.Cause
}

// Log writes the error to the given logger at a level matching its severity.
func (ae *AnalyticsError) Log(logger zerolog.Logger) {
	logEvent := logEventForSeverity(logger, ae.Severity).
		Str("component", ae.Component).
		Str("error_type", ae.ErrorType).
		Bool("recoverable", ae.Recoverable)

	if ae.Details != nil {
		logEvent = logEvent.Interface("details", ae.Details)
	}
	if ae.Cause != nil {
		logEvent = logEvent.AnErr("cause", ae.Cause)
	}

	logEvent.Msg(ae.Message)
}

func logEventForSeverity(logger zerolog.Logger, severity Severity) *zerolog.Event {
	switch severity {
	case SeverityCritical:
		return logger.Error()
	case SeverityHigh:
		return logger.Error()
	case SeverityMedium:
		return logger.Warn()
	case SeverityLow:
		return logger.Info()
	case SeverityInfo:
		return logger.Debug()
	default:
		return logger.Info()
	}
}

// Helper functions for creating common error types

func NewPersistenceError(component string, operation string, cause error) *AnalyticsError {
	return &AnalyticsError{
		Component: component,
		ErrorType: "persistence",
		Message:   fmt.Sprintf("Persistence operation failed: %s", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Timestamp:   time.Now(),
		Severity:    SeverityMedium,
		Recoverable: true,
		Cause:       cause,
	}
}

func NewCollectionError(component string, source string, cause error) *AnalyticsError {
	return &AnalyticsError{
		Component: component,
		ErrorType: "collection",
		Message:   fmt.Sprintf("Activity collection failed: %s", source),
		Details: map[string]interface{}{
			"source": source,
		},
		Timestamp:   time.Now(),
		Severity:    SeverityMedium,
		Recoverable: true,
		Cause:       cause,
	}
}

func NewConfigError(component string, cause error, details map[string]interface{}) *AnalyticsError {
	return &AnalyticsError{
		Component:   component,
		ErrorType:   "configuration",
		Message:     "Configuration error occurred",
		Details:     details,
		Timestamp:   time.Now(),
		Severity:    SeverityHigh,
		Recoverable: true,
		Cause:       cause,
	}
}
