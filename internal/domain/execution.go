package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — запись об одном выполнении workflow.
//
// Создаётся, когда триггер успешно захватил блокировку workflow.
// Мутируется только движком обхода; после перехода в терминальный
// статус запись неизменна.
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// TriggerSource — источник запуска: "manual", "schedule", "webhook", "price_alert".
	TriggerSource string `json:"trigger_source,omitempty"`

	// StartedAt — время начала обхода.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения. Nil, пока обход идёт.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Logs — журнал выполнения узлов, строго в порядке посещения.
	// Append-only: записи не переупорядочиваются и не удаляются.
	Logs []LogEntry `json:"logs,omitempty"`

	// Error — ошибка, приведшая к FAILED. Nil при успехе.
	Error *ExecutionError `json:"error,omitempty"`
}

// LogEntry — запись о выполнении одного узла.
// Каждый вызов узла добавляет ровно одну запись, независимо от исхода.
type LogEntry struct {
	// NodeID — ID выполненного узла.
	NodeID string `json:"node_id"`

	// NodeType — тип узла.
	NodeType NodeType `json:"node_type"`

	// Timestamp — время начала выполнения узла.
	Timestamp time.Time `json:"timestamp"`

	// Input — снимок конфигурации узла после интерполяции.
	Input map[string]any `json:"input,omitempty"`

	// Output — снимок выходных данных узла.
	Output map[string]any `json:"output,omitempty"`

	// DurationMs — длительность выполнения узла в миллисекундах.
	DurationMs int64 `json:"duration_ms"`
}

// ExecutionError — ошибка выполнения с привязкой к узлу.
type ExecutionError struct {
	// NodeID — узел, на котором обход остановился.
	// Пустая строка, если ошибка не привязана к узлу (например, отмена).
	NodeID string `json:"node_id,omitempty"`

	// Message — текст ошибки.
	Message string `json:"message"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	e.Status = StatusRunning
	e.StartedAt = time.Now()
}

// MarkCompleted переводит execution в статус COMPLETED.
func (e *Execution) MarkCompleted() {
	now := time.Now()
	e.Status = StatusCompleted
	e.FinishedAt = &now
}

// MarkFailed переводит execution в статус FAILED с ошибкой.
func (e *Execution) MarkFailed(nodeID, message string) {
	now := time.Now()
	e.Status = StatusFailed
	e.FinishedAt = &now
	e.Error = &ExecutionError{NodeID: nodeID, Message: message}
}

// AppendLog добавляет запись в журнал.
func (e *Execution) AppendLog(entry LogEntry) {
	e.Logs = append(e.Logs, entry)
}
