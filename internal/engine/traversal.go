package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Tradeflow/internal/domain"
)

// Лимиты обхода. Останавливают разогнавшиеся циклы:
// сами циклы в графе легальны и валидацией не отклоняются.
const (
	// MaxNodeVisits — максимальное суммарное число выполнений узлов
	// за одно выполнение workflow.
	MaxNodeVisits = 500

	// MaxNodeDepth — максимальная глубина цепочки продолжений.
	MaxNodeDepth = 100
)

// NodeResult — результат выполнения одного узла.
type NodeResult struct {
	// Outputs — выходные данные узла (попадают в Context.NodeOutputs).
	Outputs map[string]any

	// Branch — выбранная ветка ("yes"/"no" для условных узлов,
	// пустая строка — единственный безымянный выход).
	Branch string

	// Input — снимок конфигурации узла после интерполяции (для журнала).
	Input map[string]any
}

// NodeExecutor выполняет один узел.
//
// Контракт: интерполировать строковые поля конфигурации, выполнить
// логику узла, записать дельту в Context и вернуть выбранную ветку.
// Реализация — закрытый реестр в internal/nodes.
type NodeExecutor interface {
	Execute(ctx context.Context, node *domain.Node, wctx *Context) (*NodeResult, error)
}

// workItem — элемент worklist обхода: узел и глубина его продолжения.
type workItem struct {
	nodeID string
	depth  int
}

// Traversal — один обход графа workflow.
//
// Обход строго последовательный: узлы выполняются по одному, даже при
// fan-out на несколько безусловных преемников. Продолжения обрабатываются
// в порядке объявления рёбер — журнал детерминирован и воспроизводим.
type Traversal struct {
	wf       *domain.Workflow
	exec     *domain.Execution
	wctx     *Context
	executor NodeExecutor
	logger   *slog.Logger

	// onLog вызывается после каждой записи журнала (для асинхронного
	// сброса в хранилище). Не должен блокировать.
	onLog func(domain.LogEntry)

	maxVisits int
	maxDepth  int
}

// NewTraversal создаёт обход для одного execution.
func NewTraversal(wf *domain.Workflow, exec *domain.Execution, wctx *Context, executor NodeExecutor, logger *slog.Logger) *Traversal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Traversal{
		wf:        wf,
		exec:      exec,
		wctx:      wctx,
		executor:  executor,
		logger:    logger,
		maxVisits: MaxNodeVisits,
		maxDepth:  MaxNodeDepth,
	}
}

// OnLog устанавливает callback для асинхронной записи журнала.
func (t *Traversal) OnLog(fn func(domain.LogEntry)) {
	t.onLog = fn
}

// Run выполняет обход от триггерного узла до терминального состояния.
//
// Возвращает nil, когда все пути завершились без ошибок. Первая же
// ошибка узла или превышение лимита останавливают обход немедленно;
// побочные эффекты уже выполненных action-узлов не откатываются.
// Отмена через ctx проверяется на границе каждого узла — без
// прерывания узла посередине.
func (t *Traversal) Run(ctx context.Context) error {
	trigger, ok := t.wf.TriggerNode()
	if !ok {
		return ErrNoTrigger
	}

	queue := []workItem{{nodeID: trigger.ID, depth: 0}}
	visits := 0

	for len(queue) > 0 {
		// Отмена — только на границе узлов
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		item := queue[0]
		queue = queue[1:]

		node, ok := t.wf.NodeByID(item.nodeID)
		if !ok {
			// Валидация не пропускает висячие рёбра; сюда попадать не должны
			return &NodeError{NodeID: item.nodeID, Err: ErrDanglingEdge}
		}

		visits++
		if visits > t.maxVisits {
			return fmt.Errorf("%w: node visits %d > %d at node %s",
				ErrLimitExceeded, visits, t.maxVisits, node.ID)
		}

		branch, err := t.executeNode(ctx, node)
		if err != nil {
			return &NodeError{NodeID: node.ID, Err: err}
		}

		// Продолжения: условные узлы идут только по ветке с совпадающим
		// handle; все остальные (включая gates) — по всем исходящим рёбрам
		// в порядке объявления.
		for _, edge := range t.wf.OutgoingEdges(node.ID) {
			if node.Type.IsCondition() && edge.FromHandle != branch {
				continue
			}

			next, ok := t.wf.NodeByID(edge.To)
			if ok && next.Type.IsTrigger() {
				// Триггер — только точка входа, внутри обхода не выполняется.
				// Ребро в триггер завершает этот путь.
				t.logger.Debug("edge into trigger node skipped",
					"from", node.ID, "to", edge.To)
				continue
			}

			if item.depth+1 > t.maxDepth {
				return fmt.Errorf("%w: depth %d > %d at node %s",
					ErrLimitExceeded, item.depth+1, t.maxDepth, node.ID)
			}

			queue = append(queue, workItem{nodeID: edge.To, depth: item.depth + 1})
		}
	}

	return nil
}

// executeNode выполняет один узел и добавляет ровно одну запись журнала —
// независимо от того, завершился узел успехом или ошибкой.
func (t *Traversal) executeNode(ctx context.Context, node *domain.Node) (string, error) {
	started := time.Now()

	result, err := t.executor.Execute(ctx, node, t.wctx)

	entry := domain.LogEntry{
		NodeID:     node.ID,
		NodeType:   node.Type,
		Timestamp:  started,
		DurationMs: time.Since(started).Milliseconds(),
	}

	if result != nil {
		entry.Input = result.Input
		entry.Output = result.Outputs
	} else {
		// Узел упал до интерполяции — в журнал идёт сырая конфигурация
		entry.Input = node.Config
	}
	if err != nil {
		if entry.Output == nil {
			entry.Output = make(map[string]any)
		}
		entry.Output["error"] = err.Error()
	}

	t.exec.AppendLog(entry)
	if t.onLog != nil {
		t.onLog(entry)
	}

	if err != nil {
		return "", err
	}

	if result.Outputs != nil {
		t.wctx.SetNodeOutput(node.ID, result.Outputs)
	}

	t.logger.Debug("node executed",
		"node_id", node.ID,
		"node_type", node.Type,
		"branch", result.Branch,
		"duration_ms", entry.DurationMs,
	)

	return result.Branch, nil
}
