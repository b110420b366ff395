package workflows

import (
	"time"

	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
)

// Executor runs one activity on behalf of a workflow definition. The Temporal
// implementation schedules it durably; the direct implementation calls it in process.
type Executor interface {
	// Execute invokes the activity registered under name with arg and decodes its
	// value into result, which must be a pointer.
	Execute(step Step, name string, arg any, result any) error
	// Compensate is Execute for cleanup steps: it runs even after the run has been
	// cancelled.
	Compensate(step Step, name string, arg any, result any) error
	Logger() tlog.Logger
	// SetState records the phase the run is in. Engine runs expose it through the
	// currentState query.
	SetState(state string)
}

// RetryPolicy mirrors temporal.RetryPolicy so direct runs can apply the same schedule.
type RetryPolicy struct {
	InitialInterval    time.Duration
	BackoffCoefficient float64
	MaximumInterval    time.Duration
	MaximumAttempts    int32
}

func (p RetryPolicy) temporal() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    p.InitialInterval,
		BackoffCoefficient: p.BackoffCoefficient,
		MaximumInterval:    p.MaximumInterval,
		MaximumAttempts:    p.MaximumAttempts,
	}
}

// Step is the timeout and retry configuration of one activity call.
type Step struct {
	StartToCloseTimeout time.Duration
	Retry               RetryPolicy
}

var (
	validationStep = Step{
		StartToCloseTimeout: 30 * time.Second,
		Retry: RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}

	persistenceStep = Step{
		StartToCloseTimeout: time.Minute,
		Retry: RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}

	creditStep = Step{
		StartToCloseTimeout: 30 * time.Second,
		Retry: RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}

	notificationStep = Step{
		StartToCloseTimeout: 30 * time.Second,
		Retry: RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    2,
		},
	}
)

// Run phases reported through SetState.
const (
	PhaseStarted          = "STARTED"
	PhaseValidate         = "VALIDATE"
	PhaseCheckExisting    = "CHECK_EXISTING"
	PhaseCheckCredits     = "CHECK_CREDITS"
	PhasePersist          = "PERSIST"
	PhaseDeductCredits    = "DEDUCT_CREDITS"
	PhaseDiscard          = "DISCARD"
	PhaseUpdateDraft      = "UPDATE_DRAFT_STATUS"
	PhaseGrantCredits     = "GRANT_WELCOME_CREDITS"
	PhaseNotify           = "NOTIFY"
	CurrentStateQueryType = "currentState"
)
