package nodes

import (
	"context"

	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
)

// registerTriggers регистрирует обработчики триггерных узлов.
//
// Триггерный узел — только точка входа обхода: движок никогда не
// вызывает его повторно внутри обхода. Обработчик лишь раскрывает
// payload триггера в выходные данные узла, чтобы последующие узлы
// могли ссылаться на него через {{nodes.<id>.<field>}}.
func (e *Executor) registerTriggers() {
	e.register(domain.NodeStart, e.executeTrigger)
	e.register(domain.NodeSchedule, e.executeTrigger)
	e.register(domain.NodeWebhook, e.executeTrigger)
	e.register(domain.NodePriceTrigger, e.executeTrigger)
}

// executeTrigger — общий обработчик всех триггерных узлов.
func (e *Executor) executeTrigger(_ context.Context, _ *domain.Node, _ map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	outputs := make(map[string]any, len(wctx.TriggerPayload))
	for k, v := range wctx.TriggerPayload {
		outputs[k] = v
	}

	return &engine.NodeResult{Outputs: outputs}, nil
}
