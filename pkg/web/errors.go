package web

import (
	"errors"

	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/runguard"
	"github.com/estatedesk/partnerflow/pkg/workflows"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleDispatchError maps dispatcher and engine errors onto problem responses.
func handleDispatchError(c fiber.Ctx, err error) error {
	var validationErr *workflows.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return problem(c, fiber.StatusBadRequest, "validation_error", validationErr.Error())

	case errors.Is(err, workflows.ErrUnknownWorkflow):
		return problem(c, fiber.StatusNotFound, "unknown_workflow", err.Error())

	case errors.Is(err, engine.ErrWorkflowNotFound):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow execution not found")

	case errors.Is(err, engine.ErrEngineDisabled):
		return problem(c, fiber.StatusConflict, "engine_disabled", "the workflow engine is disabled")

	case errors.Is(err, engine.ErrWorkflowAlreadyStarted):
		return problem(c, fiber.StatusConflict, "already_started", err.Error())

	case errors.Is(err, runguard.ErrRunInProgress):
		return problem(c, fiber.StatusConflict, "run_in_progress", err.Error())

	case errors.Is(err, workflows.ErrInsufficientCredits):
		return problem(c, fiber.StatusPaymentRequired, "insufficient_credits", err.Error())

	case errors.Is(err, engine.ErrResultUnavailable):
		return problem(c, fiber.StatusGatewayTimeout, "result_unavailable", err.Error())

	case errors.Is(err, engine.ErrEngineUnreachable):
		return problem(c, fiber.StatusServiceUnavailable, "engine_unreachable", "the workflow engine is unreachable")

	default:
		return internalError(c, err)
	}
}

// resultStatus is the HTTP status of a finished run.
func resultStatus(result models.WorkflowResult) int {
	switch result.State {
	case models.StateFailedValidation:
		return fiber.StatusBadRequest
	case models.StateFailedPayment:
		return fiber.StatusPaymentRequired
	case models.StateFailedPersist:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusOK
	}
}
