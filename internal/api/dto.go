package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name        string                    `json:"name"`
	Nodes       []domain.Node             `json:"nodes"`
	Edges       []domain.Edge             `json:"edges"`
	Schedule    *domain.ScheduleConfig    `json:"schedule,omitempty"`
	Webhook     *domain.WebhookConfig     `json:"webhook,omitempty"`
	PriceAlerts []domain.PriceAlertConfig `json:"price_alerts,omitempty"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
// Обновление графа допустимо только на неактивном workflow.
type UpdateWorkflowRequest struct {
	Name        *string                    `json:"name,omitempty"`
	Nodes       *[]domain.Node             `json:"nodes,omitempty"`
	Edges       *[]domain.Edge             `json:"edges,omitempty"`
	Schedule    *domain.ScheduleConfig     `json:"schedule,omitempty"`
	Webhook     *domain.WebhookConfig      `json:"webhook,omitempty"`
	PriceAlerts *[]domain.PriceAlertConfig `json:"price_alerts,omitempty"`
}

// RunWorkflowRequest — запрос на ручной запуск workflow.
type RunWorkflowRequest struct {
	Payload map[string]any `json:"payload,omitempty"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID          uuid.UUID                 `json:"id"`
	Name        string                    `json:"name"`
	Nodes       []domain.Node             `json:"nodes"`
	Edges       []domain.Edge             `json:"edges"`
	IsActive    bool                      `json:"is_active"`
	Schedule    *domain.ScheduleConfig    `json:"schedule,omitempty"`
	Webhook     *domain.WebhookConfig     `json:"webhook,omitempty"`
	PriceAlerts []domain.PriceAlertConfig `json:"price_alerts,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
// Секрет webhook наружу не отдаётся.
func WorkflowFromDomain(wf domain.Workflow) WorkflowResponse {
	resp := WorkflowResponse{
		ID:          wf.ID,
		Name:        wf.Name,
		Nodes:       wf.Nodes,
		Edges:       wf.Edges,
		IsActive:    wf.IsActive,
		Schedule:    wf.Schedule,
		PriceAlerts: wf.PriceAlerts,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
	if wf.Webhook != nil {
		masked := *wf.Webhook
		masked.Secret = ""
		resp.Webhook = &masked
	}
	return resp
}

// Execution DTOs

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID            uuid.UUID              `json:"id"`
	WorkflowID    uuid.UUID              `json:"workflow_id"`
	Status        string                 `json:"status"`
	TriggerSource string                 `json:"trigger_source"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    *time.Time             `json:"finished_at,omitempty"`
	Logs          []LogEntryResponse     `json:"logs"`
	Error         *domain.ExecutionError `json:"error,omitempty"`
}

// LogEntryResponse — одна запись журнала выполнения.
type LogEntryResponse struct {
	NodeID     string         `json:"node_id"`
	NodeType   string         `json:"node_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(exec domain.Execution) ExecutionResponse {
	logs := make([]LogEntryResponse, len(exec.Logs))
	for i, entry := range exec.Logs {
		logs[i] = LogEntryResponse{
			NodeID:     entry.NodeID,
			NodeType:   string(entry.NodeType),
			Timestamp:  entry.Timestamp,
			Input:      entry.Input,
			Output:     entry.Output,
			DurationMs: entry.DurationMs,
		}
	}

	return ExecutionResponse{
		ID:            exec.ID,
		WorkflowID:    exec.WorkflowID,
		Status:        string(exec.Status),
		TriggerSource: exec.TriggerSource,
		StartedAt:     exec.StartedAt,
		FinishedAt:    exec.FinishedAt,
		Logs:          logs,
		Error:         exec.Error,
	}
}

// ExecutionStartedResponse — ответ на принятый триггер.
type ExecutionStartedResponse struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Status      string    `json:"status"`
}
