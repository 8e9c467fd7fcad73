package pipeline

import "fmt"

// Error codes returned to transport. Cache-tier degradation is deliberately
// absent: it is logged, never surfaced.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnsafeQuery         = "UNSAFE_QUERY"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeFallbackExhausted   = "FALLBACK_EXHAUSTED"
	CodeSessionTimeout      = "SESSION_TIMEOUT"
	CodeSessionBusy         = "SESSION_BUSY"
)

// PipelineError is the typed failure every stage reports through.
type PipelineError struct {
	Code  string
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %v", e.Code, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s at %s", e.Code, e.Stage)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewError(code, stage string, err error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Err: err}
}

// CodeOf extracts the pipeline error code, defaulting to provider
// unavailability for untyped errors.
func CodeOf(err error) string {
	if pe, ok := err.(*PipelineError); ok {
		return pe.Code
	}
	return CodeProviderUnavailable
}
