package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/trigger"
)

// WorkflowStore — хранилище workflow. Реализуется repo.WorkflowRepo.
type WorkflowStore interface {
	Create(ctx context.Context, wf *domain.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	GetByWebhookToken(ctx context.Context, token string) (*domain.Workflow, error)
	List(ctx context.Context) ([]domain.Workflow, error)
	Update(ctx context.Context, wf *domain.Workflow) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExecutionLister — чтение журнала выполнений одного workflow.
// Реализуется repo.ExecutionRepo.
type ExecutionLister interface {
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]domain.Execution, error)
}

// Engine — фасад движка выполнения. Реализуется engine.Service.
type Engine interface {
	Execute(ctx context.Context, wf *domain.Workflow, triggerPayload map[string]any, source string) (uuid.UUID, error)
	GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Validate(wf *domain.Workflow) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflows  WorkflowStore
	executions ExecutionLister
	engine     Engine
	scheduler  *trigger.Scheduler // опционально
	monitor    *trigger.Monitor   // опционально
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workflows  WorkflowStore
	Executions ExecutionLister
	Engine     Engine
	Scheduler  *trigger.Scheduler
	Monitor    *trigger.Monitor
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		engine:     cfg.Engine,
		scheduler:  cfg.Scheduler,
		monitor:    cfg.Monitor,
		logger:     logger,
	}
}

// registerTriggers ставит расписание и ценовые алерты workflow
// на наблюдение. Вызывается при активации.
func (h *Handler) registerTriggers(wf *domain.Workflow) error {
	if h.scheduler != nil {
		if err := h.scheduler.Register(wf); err != nil {
			return err
		}
	}
	if h.monitor != nil {
		h.monitor.Register(wf)
	}
	return nil
}

// unregisterTriggers снимает расписание и алерты workflow.
// Вызывается при деактивации и удалении.
func (h *Handler) unregisterTriggers(id uuid.UUID) {
	if h.scheduler != nil {
		h.scheduler.Unregister(id)
	}
	if h.monitor != nil {
		h.monitor.Unregister(id)
	}
}
