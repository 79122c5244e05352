package engine

import (
	"fmt"

	"github.com/shaiso/Tradeflow/internal/domain"
)

// Validate выполняет структурную валидацию графа workflow.
//
// Проверяется:
//   - граф не пуст, у каждого узла непустой уникальный ID
//   - каждый тип узла присутствует в каталоге
//   - каждое ребро ссылается на существующие узлы
//   - ровно один триггерный узел (точка входа)
//
// Циклы НЕ отклоняются: retry/loop паттерны легальны по построению.
// Разгон цикла ограничивается только на этапе выполнения
// (лимиты посещений и глубины в traversal.go).
func Validate(w *domain.Workflow) error {
	if len(w.Nodes) == 0 {
		return NewValidationError("", "nodes", "workflow has no nodes", ErrEmptyNodes)
	}

	// Узлы: ID уникален, тип известен
	seen := make(map[string]bool, len(w.Nodes))
	triggers := 0

	for i := range w.Nodes {
		node := &w.Nodes[i]

		if node.ID == "" {
			return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}
		if seen[node.ID] {
			return NewValidationError(node.ID, "id",
				fmt.Sprintf("duplicate node ID %q", node.ID), ErrDuplicateNodeID)
		}
		seen[node.ID] = true

		if !knownNodeType(node.Type) {
			return NewValidationError(node.ID, "type",
				fmt.Sprintf("unknown node type %q", node.Type), ErrUnknownNodeType)
		}

		if node.Type.IsTrigger() {
			triggers++
		}
	}

	// Рёбра: оба конца существуют
	for _, edge := range w.Edges {
		if !seen[edge.From] {
			return NewValidationError(edge.From, "from",
				fmt.Sprintf("edge references unknown node %q", edge.From), ErrDanglingEdge)
		}
		if !seen[edge.To] {
			return NewValidationError(edge.To, "to",
				fmt.Sprintf("edge references unknown node %q", edge.To), ErrDanglingEdge)
		}
	}

	// Точка входа: ровно один триггерный узел
	if triggers == 0 {
		return NewValidationError("", "nodes", "workflow has no trigger node", ErrNoTrigger)
	}
	if triggers > 1 {
		return NewValidationError("", "nodes",
			fmt.Sprintf("workflow has %d trigger nodes, expected exactly one", triggers),
			ErrMultipleTriggers)
	}

	return nil
}

// knownNodeType проверяет принадлежность типа закрытому каталогу.
func knownNodeType(t domain.NodeType) bool {
	return t.IsTrigger() || t.IsCondition() || t.IsGate() ||
		t.IsAction() || t.IsDataFetch() || t.IsUtility()
}
