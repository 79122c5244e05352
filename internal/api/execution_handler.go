package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/engine"
)

// GetExecution возвращает execution с полным журналом узлов.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.engine.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrExecutionNotFound) {
			NotFound(w, "execution not found")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// ListWorkflowExecutions возвращает executions workflow, новые первыми.
// GET /api/v1/workflows/{id}/executions?limit=N
func (h *Handler) ListWorkflowExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
	}

	execs, err := h.executions.ListByWorkflow(r.Context(), id, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(execs))
	for i, exec := range execs {
		result[i] = ExecutionFromDomain(exec)
	}

	List(w, result, len(result))
}

// CancelExecution запрашивает отмену идущего execution.
// Отмена кооперативная: текущий узел дорабатывает, обход
// останавливается на границе следующего.
// POST /api/v1/executions/{id}/cancel
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	if err := h.engine.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, engine.ErrExecutionNotFound) {
			NotFound(w, "execution not found")
			return
		}
		InvalidState(w, err.Error())
		return
	}

	Accepted(w, map[string]string{"status": "cancelling"})
}
