package models

// FailureCode classifies an expected business failure reported by an activity.
type FailureCode string

const (
	CodeValidationFailed    FailureCode = "validation_failed"
	CodeInsufficientCredits FailureCode = "insufficient_credits"
	CodePersistFailed       FailureCode = "persist_failed"
	CodeNotFound            FailureCode = "not_found"
	CodeDeliveryFailed      FailureCode = "delivery_failed"
)

// Outcome is the tagged result every activity returns. Workflows branch on
// Success; unexpected faults are returned as errors instead.
type Outcome struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Code    FailureCode `json:"code,omitempty"`
}

func Succeeded(message string) Outcome {
	return Outcome{Success: true, Message: message}
}

func Failed(code FailureCode, message string, errs ...string) Outcome {
	return Outcome{Success: false, Code: code, Message: message, Errors: errs}
}
