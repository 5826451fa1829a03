package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flunq-io/restinvoke/internal/definition"
	"github.com/flunq-io/restinvoke/internal/processor"
	"github.com/flunq-io/restinvoke/internal/variables"
)

// ExecutionHandler runs definitions and exposes their variables
type ExecutionHandler struct {
	runner *processor.ProcessRunner
	store  variables.Store
	logger *zap.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(runner *processor.ProcessRunner, store variables.Store, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		runner: runner,
		store:  store,
		logger: logger,
	}
}

// Run handles POST /api/v1/executions. The body is a YAML or JSON
// definition; the response carries every task result.
func (h *ExecutionHandler) Run(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(
			ErrorCodeValidation,
			"request body must contain a process definition",
		).WithRequestID(getRequestID(c)))
		return
	}

	def, err := definition.Parse(body)
	if err != nil {
		h.logger.Warn("Rejected process definition", zap.Error(err))
		c.JSON(http.StatusBadRequest, NewErrorResponse(
			ErrorCodeInvalidDefinition,
			"process definition is invalid",
		).WithDetails(map[string]interface{}{
			"validation_error": err.Error(),
		}).WithRequestID(getRequestID(c)))
		return
	}

	tasks, err := h.runner.Prepare(def)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(
			ErrorCodeInvalidDefinition,
			"task configuration is invalid",
		).WithDetails(map[string]interface{}{
			"validation_error": err.Error(),
		}).WithRequestID(getRequestID(c)))
		return
	}

	result, err := h.runner.RunPrepared(c.Request.Context(), def, tasks)
	if err != nil {
		h.logger.Error("Failed to run process",
			zap.String("process", def.Name),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(
			ErrorCodeInternalError,
			"process run aborted",
		).WithRequestID(getRequestID(c)))
		return
	}

	// A failed task is a normal outcome, reported in the body
	c.JSON(http.StatusOK, result)
}

// Variables handles GET /api/v1/executions/:id/variables. An execution
// whose tasks all failed is still known and returns an empty set.
func (h *ExecutionHandler) Variables(c *gin.Context) {
	executionID := c.Param("id")

	exists, err := h.store.Exists(c.Request.Context(), executionID)
	if err != nil {
		h.internalError(c, "Failed to check execution", executionID, err)
		return
	}
	if !exists {
		h.notFound(c)
		return
	}

	vars, err := h.store.GetAll(c.Request.Context(), executionID)
	if err != nil {
		h.internalError(c, "Failed to read variables", executionID, err)
		return
	}

	c.JSON(http.StatusOK, VariablesResponse{
		ExecutionID: executionID,
		Variables:   vars,
	})
}

// Delete handles DELETE /api/v1/executions/:id
func (h *ExecutionHandler) Delete(c *gin.Context) {
	executionID := c.Param("id")

	exists, err := h.store.Exists(c.Request.Context(), executionID)
	if err != nil {
		h.internalError(c, "Failed to check execution", executionID, err)
		return
	}
	if !exists {
		h.notFound(c)
		return
	}

	if err := h.store.Delete(c.Request.Context(), executionID); err != nil {
		h.internalError(c, "Failed to delete execution", executionID, err)
		return
	}

	h.logger.Info("Execution deleted", zap.String("execution_id", executionID))
	c.Status(http.StatusNoContent)
}

func (h *ExecutionHandler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, NewErrorResponse(
		ErrorCodeExecutionNotFound,
		"execution not found",
	).WithRequestID(getRequestID(c)))
}

func (h *ExecutionHandler) internalError(c *gin.Context, msg, executionID string, err error) {
	h.logger.Error(msg,
		zap.String("execution_id", executionID),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, NewErrorResponse(
		ErrorCodeInternalError,
		"failed to access execution",
	).WithRequestID(getRequestID(c)))
}
