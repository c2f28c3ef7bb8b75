package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dramakit/drama/common/bootstrap"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/scheduler"
)

// WorkflowHandler handles workflow-related requests
type WorkflowHandler struct {
	scheduler  *scheduler.Scheduler
	components *bootstrap.Components
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(sched *scheduler.Scheduler, components *bootstrap.Components) *WorkflowHandler {
	return &WorkflowHandler{
		scheduler:  sched,
		components: components,
	}
}

// Run executes a collection of tasks.
// POST /api/v2/workflow/run
func (h *WorkflowHandler) Run(c echo.Context) error {
	var workflow models.Workflow
	if err := c.Bind(&workflow); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid workflow request"})
	}
	if workflow.ID == "" {
		workflow.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	h.components.Logger.Info("received workflow request", "workflow_id", workflow.ID)

	result, err := h.scheduler.Run(c.Request().Context(), &workflow)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"detail": verr.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

// Status returns execution status from execution id.
// GET /api/v2/workflow/status?id=<workflow id>
func (h *WorkflowHandler) Status(c echo.Context) error {
	id := c.QueryParam("id")

	workflow, err := h.scheduler.Status(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": err.Error()})
	}
	if workflow == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Workflow " + id + " not found"})
	}

	h.components.Logger.Info("found workflow from execution id", "workflow_id", id)
	return c.JSON(http.StatusOK, workflow)
}

// Revoke cancels the execution of pending tasks. Revoking an already revoked
// workflow is a no-op.
// POST /api/v2/workflow/revoke?id=<workflow id>
func (h *WorkflowHandler) Revoke(c echo.Context) error {
	id := c.QueryParam("id")
	ctx := c.Request().Context()

	workflow, err := h.components.Workflows.FindOne(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": err.Error()})
	}
	if workflow == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Workflow " + id + " not found"})
	}

	if !workflow.IsRevoked {
		workflow, err = h.scheduler.Revoke(ctx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		}
	}

	return c.JSON(http.StatusOK, workflow)
}

// Publish pushes a raw value onto a component's own topic, feeding tasks that
// wait on out-of-band input.
// POST /api/v2/workflow/topic?id=<workflow id>&component=<task name>&message=<value>
func (h *WorkflowHandler) Publish(c echo.Context) error {
	id := c.QueryParam("id")
	component := c.QueryParam("component")
	message := c.QueryParam("message")
	if id == "" || component == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "id and component are required"})
	}

	topic := id + "-" + component
	producer, err := h.components.Bus.Producer(topic)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": err.Error()})
	}
	defer producer.Close()

	if err := producer.Send(c.Request().Context(), []byte(component), []byte(message)); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"topic": topic})
}
