package engine

// Context — состояние одного выполнения workflow.
//
// Контекст принадлежит ровно одному выполнению, никогда не разделяется
// между выполнениями и уничтожается вместе с завершением обхода.
// Доступ к нему строго последовательный: узлы одного выполнения
// исполняются по одному, даже через fan-out ветки.
type Context struct {
	// Variables — пользовательские переменные, устанавливаемые узлом Variable.
	Variables map[string]any `json:"variables"`

	// ConditionResults — результаты условных узлов (nodeID → bool).
	// Используются gate-узлами (and/or/not).
	ConditionResults map[string]bool `json:"condition_results"`

	// TriggerPayload — данные триггера: тело webhook, метаданные
	// расписания или сработавшего ценового алерта.
	TriggerPayload map[string]any `json:"trigger_payload"`

	// NodeOutputs — выходные данные выполненных узлов (nodeID → outputs).
	NodeOutputs map[string]map[string]any `json:"node_outputs"`
}

// NewContext создаёт контекст выполнения с данными триггера.
func NewContext(triggerPayload map[string]any) *Context {
	if triggerPayload == nil {
		triggerPayload = make(map[string]any)
	}
	return &Context{
		Variables:        make(map[string]any),
		ConditionResults: make(map[string]bool),
		TriggerPayload:   triggerPayload,
		NodeOutputs:      make(map[string]map[string]any),
	}
}

// SetVariable устанавливает пользовательскую переменную.
func (c *Context) SetVariable(name string, value any) {
	c.Variables[name] = value
}

// SetConditionResult записывает результат условного узла.
func (c *Context) SetConditionResult(nodeID string, result bool) {
	c.ConditionResults[nodeID] = result
}

// SetNodeOutput записывает выходные данные узла.
func (c *Context) SetNodeOutput(nodeID string, outputs map[string]any) {
	if outputs == nil {
		outputs = make(map[string]any)
	}
	c.NodeOutputs[nodeID] = outputs
}
