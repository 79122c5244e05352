package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/trigger"
)

// ListWorkflows возвращает список всех workflows.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflows.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow. Граф валидируется сразу:
// некорректный workflow в хранилище не попадает. Создаётся неактивным.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now().UTC()
	wf := &domain.Workflow{
		ID:          uuid.New(),
		Name:        req.Name,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		IsActive:    false,
		Schedule:    req.Schedule,
		Webhook:     req.Webhook,
		PriceAlerts: req.PriceAlerts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	bindAlerts(wf)

	if err := h.engine.Validate(wf); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflows.Create(r.Context(), wf); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, WorkflowFromDomain(*wf))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// UpdateWorkflow обновляет workflow.
// Менять граф и триггеры активного workflow нельзя: сначала деактивация.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	structural := req.Nodes != nil || req.Edges != nil || req.Schedule != nil ||
		req.Webhook != nil || req.PriceAlerts != nil
	if wf.IsActive && structural {
		InvalidState(w, "deactivate workflow before changing its graph or triggers")
		return
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Nodes != nil {
		wf.Nodes = *req.Nodes
	}
	if req.Edges != nil {
		wf.Edges = *req.Edges
	}
	if req.Schedule != nil {
		wf.Schedule = req.Schedule
	}
	if req.Webhook != nil {
		wf.Webhook = req.Webhook
	}
	if req.PriceAlerts != nil {
		wf.PriceAlerts = *req.PriceAlerts
	}
	bindAlerts(wf)

	if err := h.engine.Validate(wf); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflows.Update(r.Context(), wf); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// DeleteWorkflow удаляет workflow вместе с его триггерами.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflows.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	h.unregisterTriggers(id)
	NoContent(w)
}

// ActivateWorkflow активирует workflow: валидация графа, включение,
// постановка расписания и ценовых алертов.
// POST /api/v1/workflows/{id}/activate
func (h *Handler) ActivateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if wf.IsActive {
		InvalidState(w, "workflow is already active")
		return
	}

	if err := h.engine.Validate(wf); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflows.SetActive(r.Context(), id, true); err != nil {
		InternalError(w, h.logger, err)
		return
	}
	wf.IsActive = true

	if err := h.registerTriggers(wf); err != nil {
		// Откатываем активацию: workflow без триггеров не должен
		// числиться активным
		if derr := h.workflows.SetActive(r.Context(), id, false); derr != nil {
			h.logger.Error("failed to roll back activation", "workflow_id", id, "error", derr)
		}
		BadRequest(w, err.Error())
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// DeactivateWorkflow выключает workflow и снимает его триггеры.
// POST /api/v1/workflows/{id}/deactivate
func (h *Handler) DeactivateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if err := h.workflows.SetActive(r.Context(), id, false); err != nil {
		InternalError(w, h.logger, err)
		return
	}
	wf.IsActive = false

	h.unregisterTriggers(id)
	Success(w, WorkflowFromDomain(*wf))
}

// RunWorkflow запускает workflow вручную.
// Активность не требуется: ручной запуск работает и на черновике.
// POST /api/v1/workflows/{id}/run
func (h *Handler) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req RunWorkflowRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return
		}
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	execID, err := h.engine.Execute(r.Context(), wf, req.Payload, trigger.SourceManual)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowBusy) {
			Conflict(w, "workflow is already running")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Accepted(w, ExecutionStartedResponse{
		ExecutionID: execID,
		Status:      string(domain.StatusRunning),
	})
}

// bindAlerts проставляет алертам ID workflow.
// Клиент передаёт алерты без workflow_id, привязка — забота сервера.
func bindAlerts(wf *domain.Workflow) {
	for i := range wf.PriceAlerts {
		wf.PriceAlerts[i].WorkflowID = wf.ID
	}
}
