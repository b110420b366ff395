package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/estatedesk/partnerflow/pkg/dispatcher"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultPageSize = 50

// HealthChecker is satisfied by the persistence layer.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type APIHandlers struct {
	dispatcher  *dispatcher.Dispatcher
	persistence HealthChecker
	validator   *validator.Validate
}

func NewAPIHandlers(
	dispatcher *dispatcher.Dispatcher,
	persistence HealthChecker,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		dispatcher:  dispatcher,
		persistence: persistence,
		validator:   validator,
	}
}

// Register mounts the workflow routes on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/definitions", h.GetDefinitions)

	w := router.Group("/workflows")
	w.Get("/", h.ListWorkflows)
	w.Post("/:name/async", h.RunAsync)
	w.Post("/:name/sync", h.RunSync)
	w.Post("/:name/direct", h.RunDirect)
	w.Get("/:id", h.GetWorkflow)
	w.Get("/:id/result", h.GetResult)
	w.Post("/:id/query/:queryType", h.QueryWorkflow)
	w.Post("/:id/signal/:signal", h.SignalWorkflow)
	w.Post("/:id/cancel", h.CancelWorkflow)
	w.Post("/:id/terminate", h.TerminateWorkflow)
}

// parseRunRequest returns the request body or a problem detail describing why it is invalid.
func (h *APIHandlers) parseRunRequest(c fiber.Ctx) (RunRequest, string) {
	var req RunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return req, "Invalid JSON format"
	}

	if err := h.validator.Struct(req); err != nil {
		return req, err.Error()
	}

	return req, ""
}

// RunAsync answers 202 when the engine accepted the run, or with the result of an
// in-process run.
func (h *APIHandlers) RunAsync(c fiber.Ctx) error {
	req, detail := h.parseRunRequest(c)
	if detail != "" {
		return badRequest(c, detail)
	}

	res, err := h.dispatcher.RunAsync(c.Context(), c.Params("name"), models.WorkflowInput(req.Input), req.WorkflowID)
	if err != nil {
		return handleDispatchError(c, err)
	}

	if res.Result == nil {
		return c.Status(fiber.StatusAccepted).JSON(res)
	}

	return c.Status(resultStatus(*res.Result)).JSON(res)
}

func (h *APIHandlers) RunSync(c fiber.Ctx) error {
	req, detail := h.parseRunRequest(c)
	if detail != "" {
		return badRequest(c, detail)
	}

	res, err := h.dispatcher.RunSync(c.Context(), c.Params("name"), models.WorkflowInput(req.Input), req.WorkflowID)
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.Status(resultStatus(res.Result)).JSON(res)
}

func (h *APIHandlers) RunDirect(c fiber.Ctx) error {
	req, detail := h.parseRunRequest(c)
	if detail != "" {
		return badRequest(c, detail)
	}

	res, err := h.dispatcher.RunDirect(c.Context(), c.Params("name"), models.WorkflowInput(req.Input), req.WorkflowID)
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.Status(resultStatus(res.Result)).JSON(res)
}

func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	return c.JSON(DefinitionsResponse{
		Definitions: h.dispatcher.Workflows(),
		UsingEngine: h.dispatcher.IsUsingEngine(),
	})
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	pageSize := int32(defaultPageSize)

	if raw := c.Query("page_size"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 1 {
			return badRequest(c, "page_size must be a positive integer")
		}

		pageSize = int32(parsed)
	}

	query := c.Query("query")

	executions, err := h.dispatcher.List(c.Context(), query, pageSize)
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.JSON(ListWorkflowsResponse{Workflows: executions, PageSize: pageSize, Query: query})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	desc, err := h.dispatcher.Describe(c.Context(), c.Params("id"), c.Query("run_id"))
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.JSON(desc)
}

// GetResult blocks until the run closes.
func (h *APIHandlers) GetResult(c fiber.Ctx) error {
	result, err := h.dispatcher.Result(c.Context(), c.Params("id"), c.Query("run_id"))
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.Status(resultStatus(result)).JSON(result)
}

func (h *APIHandlers) QueryWorkflow(c fiber.Ctx) error {
	var req QueryRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	value, err := h.dispatcher.Query(c.Context(), c.Params("id"), c.Query("run_id"), c.Params("queryType"), req.Args...)
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.JSON(fiber.Map{"result": value})
}

func (h *APIHandlers) SignalWorkflow(c fiber.Ctx) error {
	var req SignalRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.dispatcher.Signal(c.Context(), c.Params("id"), c.Query("run_id"), c.Params("signal"), req.Payload); err != nil {
		return handleDispatchError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) CancelWorkflow(c fiber.Ctx) error {
	if err := h.dispatcher.Cancel(c.Context(), c.Params("id"), c.Query("run_id")); err != nil {
		return handleDispatchError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) TerminateWorkflow(c fiber.Ctx) error {
	var req TerminateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	if req.Reason == "" {
		req.Reason = "terminated by operator"
	}

	if err := h.dispatcher.Terminate(c.Context(), c.Params("id"), c.Query("run_id"), req.Reason); err != nil {
		return handleDispatchError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// HealthCheck reports persistence and, when enabled, engine health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		checks["persistence"] = err.Error()
		healthy = false
	} else {
		checks["persistence"] = "ok"
	}

	switch err := h.dispatcher.HealthCheck(c.Context()); {
	case !h.dispatcher.IsUsingEngine():
		checks["engine"] = "disabled"
	case err != nil:
		// direct fallback still serves runs
		checks["engine"] = err.Error()
	default:
		checks["engine"] = "ok"
	}

	status := "healthy"
	message := "Partnerflow API is healthy"
	httpStatus := http.StatusOK

	if !healthy {
		status = "unhealthy"
		message = "Partnerflow API is unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"checkers":  checks,
		"timestamp": time.Now().UTC(),
	})
}
