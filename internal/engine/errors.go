package engine

import "errors"

// Ошибки движка.
var (
	// ErrWorkflowBusy — workflow уже выполняется.
	// Второй триггер отклоняется сразу, без постановки в очередь.
	ErrWorkflowBusy = errors.New("workflow is already running")

	// ErrLimitExceeded — превышен лимит посещений или глубины обхода.
	ErrLimitExceeded = errors.New("traversal limit exceeded")

	// ErrNoTrigger — в графе нет триггерного узла.
	ErrNoTrigger = errors.New("workflow has no trigger node")

	// ErrMultipleTriggers — в графе больше одного триггерного узла.
	ErrMultipleTriggers = errors.New("workflow has multiple trigger nodes")

	// ErrExecutionNotFound — execution с таким ID не найден.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrCancelled — выполнение отменено явным запросом.
	ErrCancelled = errors.New("execution cancelled")
)

// ValidationError — ошибка структурной валидации графа.
// Сообщается синхронно при сохранении/активации workflow,
// никогда — во время выполнения.
type ValidationError struct {
	NodeID  string // узел, к которому относится ошибка (может быть пустым)
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Ошибки валидации графа.
var (
	// ErrEmptyNodes — граф не содержит узлов.
	ErrEmptyNodes = errors.New("workflow has no nodes")

	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNodeType — тип узла отсутствует в каталоге.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrDanglingEdge — ребро ссылается на несуществующий узел.
	ErrDanglingEdge = errors.New("edge references unknown node")
)

// NodeError — ошибка выполнения конкретного узла.
// Останавливает обход немедленно; уже выполненные действия не откатываются.
type NodeError struct {
	NodeID string
	Err    error
}

// Error реализует интерфейс error.
func (e *NodeError) Error() string {
	return "node " + e.NodeID + ": " + e.Err.Error()
}

// Unwrap возвращает базовую ошибку.
func (e *NodeError) Unwrap() error {
	return e.Err
}
