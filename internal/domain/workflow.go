package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — определение визуального рабочего процесса.
//
// Workflow — это граф из типизированных узлов (Node), соединённых рёбрами (Edge).
// Ровно один узел графа — триггерный: с него начинается каждое выполнение.
// Движок получает неизменяемый снимок Workflow на время одного выполнения;
// хранением и редактированием занимается репозиторий.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow (например, "nifty-breakout", "daily-exit").
	Name string `json:"name"`

	// Nodes — узлы графа. Порядок вставки не влияет на семантику,
	// но сохраняется для стабильного отображения.
	Nodes []Node `json:"nodes"`

	// Edges — направленные рёбра между узлами.
	Edges []Edge `json:"edges"`

	// IsActive — флаг активности. Неактивные workflow не запускаются
	// триггерами (расписание, webhook, price alert).
	IsActive bool `json:"is_active"`

	// Schedule — конфигурация запуска по расписанию (опционально).
	Schedule *ScheduleConfig `json:"schedule,omitempty"`

	// Webhook — конфигурация входящего webhook (опционально).
	Webhook *WebhookConfig `json:"webhook,omitempty"`

	// PriceAlerts — ценовые алерты, привязанные к узлам этого workflow.
	PriceAlerts []PriceAlertConfig `json:"price_alerts,omitempty"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Node — один типизированный шаг графа.
type Node struct {
	// ID — идентификатор узла, уникальный в рамках workflow.
	ID string `json:"id"`

	// Type — тип узла из закрытого каталога (см. nodetype.go).
	Type NodeType `json:"type"`

	// Config — параметры узла, специфичные для его типа.
	// Строковые значения могут содержать {{token}} подстановки.
	Config map[string]any `json:"config,omitempty"`
}

// Edge — направленное ребро между двумя узлами.
type Edge struct {
	// From — ID узла-источника.
	From string `json:"from"`

	// FromHandle — именованный выход узла-источника.
	// Для условных узлов: "yes" / "no". Пустая строка — единственный
	// безымянный выход.
	FromHandle string `json:"from_handle,omitempty"`

	// To — ID узла-приёмника.
	To string `json:"to"`
}

// NodeByID возвращает узел по ID.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// TriggerNode возвращает триггерный узел workflow.
// Возвращает false, если триггерного узла нет.
func (w *Workflow) TriggerNode() (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].Type.IsTrigger() {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// OutgoingEdges возвращает исходящие рёбра узла в порядке объявления.
func (w *Workflow) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range w.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Branch handles условных узлов.
const (
	// BranchYes — выход условного узла при истинном условии.
	BranchYes = "yes"

	// BranchNo — выход условного узла при ложном условии.
	BranchNo = "no"
)
