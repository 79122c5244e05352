package domain

// ExecutionStatus — статус выполнения workflow.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
type ExecutionStatus string

const (
	// StatusPending — execution создан, обход ещё не начался.
	StatusPending ExecutionStatus = "PENDING"

	// StatusRunning — обход графа в процессе.
	StatusRunning ExecutionStatus = "RUNNING"

	// StatusCompleted — все пути обхода завершились без ошибок.
	StatusCompleted ExecutionStatus = "COMPLETED"

	// StatusFailed — ошибка узла, превышение лимитов или отмена.
	StatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
// Терминальный execution больше не мутируется.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}
