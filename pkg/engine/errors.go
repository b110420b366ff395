package engine

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrEngineUnreachable      = errors.New("workflow engine unreachable")
	ErrEngineDisabled         = errors.New("workflow engine disabled")
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")
	ErrConnectionClosed       = errors.New("engine connection closed")
	ErrResultUnavailable      = errors.New("workflow result unavailable")
)

// ResultError reports a run the engine accepted whose result could not be read back.
// It matches ErrResultUnavailable but not ErrEngineUnreachable: the run exists and
// must not be started again elsewhere.
type ResultError struct {
	Run Run
	Err error
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s: workflow %s run %s: %v", ErrResultUnavailable, e.Run.WorkflowID, e.Run.RunID, e.Err)
}

func (e *ResultError) Is(target error) bool {
	return target == ErrResultUnavailable
}

// translate maps Temporal service errors onto the engine error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var (
		notFound       *serviceerror.NotFound
		alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		unavailable    *serviceerror.Unavailable
		deadline       *serviceerror.DeadlineExceeded
	)

	switch {
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, notFound.Error())
	case errors.As(err, &alreadyStarted):
		return fmt.Errorf("%w: %s", ErrWorkflowAlreadyStarted, alreadyStarted.Error())
	case errors.As(err, &unavailable), errors.As(err, &deadline):
		return fmt.Errorf("%w: %s", ErrEngineUnreachable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	if code := status.Code(err); code == codes.Unavailable {
		return fmt.Errorf("%w: %s", ErrEngineUnreachable, err.Error())
	}

	return err
}

func isUnreachable(err error) bool {
	return errors.Is(err, ErrEngineUnreachable)
}
