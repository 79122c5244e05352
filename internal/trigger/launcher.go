package trigger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
)

// Источники триггеров в журнале и метриках.
const (
	SourceManual     = "manual"
	SourceSchedule   = "schedule"
	SourceWebhook    = "webhook"
	SourcePriceAlert = "price_alert"
)

// Launcher — запуск выполнения workflow. Реализуется engine.Service.
type Launcher interface {
	Execute(ctx context.Context, wf *domain.Workflow, triggerPayload map[string]any, source string) (uuid.UUID, error)
}

// WorkflowSource — чтение workflow по ID. Реализуется repo.WorkflowRepo.
type WorkflowSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}
