package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/estatedesk/partnerflow/pkg/models"
	"go.temporal.io/sdk/temporal"
)

var (
	ErrUnknownWorkflow     = errors.New("unknown workflow")
	ErrUnknownActivity     = errors.New("unknown activity")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPersistFailed       = errors.New("persist failed")
	ErrWorkflowPanicked    = errors.New("workflow panicked")
)

// canceled reports whether err comes from cancelling the run rather than from a
// failing step. Such errors end the run instead of mapping to a result.
func canceled(err error) bool {
	return temporal.IsCanceledError(err) || errors.Is(err, context.Canceled)
}

// ValidationError reports workflow input that failed business or schema rules.
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Errors, "; "))
}

func NewValidationError(message string, errs ...string) *ValidationError {
	return &ValidationError{Message: message, Errors: errs}
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}

// OutcomeError converts a failed workflow result into the matching error so callers
// that prefer errors can use errors.Is and errors.As. It returns nil for a success.
func OutcomeError(result models.WorkflowResult) error {
	if result.Success {
		return nil
	}

	switch result.State {
	case models.StateFailedValidation:
		return NewValidationError(result.Message, result.Errors...)
	case models.StateFailedPayment:
		return fmt.Errorf("%s: %w", result.Message, ErrInsufficientCredits)
	case models.StateFailedPersist:
		return fmt.Errorf("%s: %w", result.Message, ErrPersistFailed)
	default:
		return errors.New(result.Message)
	}
}
