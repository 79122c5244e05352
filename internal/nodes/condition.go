package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
)

// registerConditions регистрирует условные узлы и логические gates.
func (e *Executor) registerConditions() {
	e.register(domain.NodePriceCondition, e.executePriceCondition)
	e.register(domain.NodePositionCheck, e.executePositionCheck)
	e.register(domain.NodeFundCheck, e.executeFundCheck)
	e.register(domain.NodeTimeWindow, e.executeTimeWindow)
	e.register(domain.NodeTimeCondition, e.executeTimeCondition)
	e.register(domain.NodeAndGate, e.executeAndGate)
	e.register(domain.NodeOrGate, e.executeOrGate)
	e.register(domain.NodeNotGate, e.executeNotGate)
}

// executePriceCondition сравнивает текущую цену инструмента с целевой.
//
// Config:
//   - symbol (string): тикер (обязательно)
//   - operator (string): ">", "<", ">=", "<=", "==", "!=" (default: ">")
//   - value (number): целевая цена (обязательно)
func (e *Executor) executePriceCondition(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbol := getString(cfg, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}

	target, ok := getFloat(cfg, "value")
	if !ok {
		return nil, fmt.Errorf("%w: value is required", ErrInvalidConfig)
	}

	quote, err := e.broker.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("get quote for %s: %w", symbol, err)
	}

	result, err := compare(quote.LTP, getStringDefault(cfg, "operator", ">"), target)
	if err != nil {
		return nil, err
	}

	res := conditionResult(node, wctx, result)
	res.Outputs["ltp"] = quote.LTP
	return res, nil
}

// executePositionCheck проверяет открытую позицию по инструменту.
//
// Config:
//   - symbol (string): тикер; пустой — любая открытая позиция
//   - check (string): "exists" | "not_exists" (default: "exists")
//   - min_quantity (number): минимальный абсолютный размер позиции
func (e *Executor) executePositionCheck(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbol := getString(cfg, "symbol")
	check := getStringDefault(cfg, "check", "exists")
	minQty, _ := getInt(cfg, "min_quantity")

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	found := false
	qty := 0
	for _, pos := range positions {
		if symbol != "" && pos.Symbol != symbol {
			continue
		}
		if pos.Quantity == 0 {
			continue
		}
		if minQty > 0 && abs(pos.Quantity) < minQty {
			continue
		}
		found = true
		qty = pos.Quantity
		break
	}

	result := found
	if check == "not_exists" {
		result = !found
	}

	res := conditionResult(node, wctx, result)
	res.Outputs["quantity"] = qty
	return res, nil
}

// executeFundCheck проверяет доступные средства на счёте.
//
// Config:
//   - min_available (number): требуемый остаток (обязательно)
func (e *Executor) executeFundCheck(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	minAvailable, ok := getFloat(cfg, "min_available")
	if !ok {
		return nil, fmt.Errorf("%w: min_available is required", ErrInvalidConfig)
	}

	funds, err := e.broker.Funds(ctx)
	if err != nil {
		return nil, fmt.Errorf("get funds: %w", err)
	}

	res := conditionResult(node, wctx, funds.Available >= minAvailable)
	res.Outputs["available"] = funds.Available
	return res, nil
}

// executeTimeWindow проверяет попадание текущего времени в окно.
//
// Config:
//   - start (string): "HH:MM" (обязательно)
//   - end (string): "HH:MM" (обязательно)
//
// Окно через полночь легально: start="22:00" end="02:00".
func (e *Executor) executeTimeWindow(_ context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	start, err := parseClock(getString(cfg, "start"))
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidConfig, err)
	}
	end, err := parseClock(getString(cfg, "end"))
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidConfig, err)
	}

	now := e.now()
	minutes := now.Hour()*60 + now.Minute()

	var inWindow bool
	if start <= end {
		inWindow = minutes >= start && minutes <= end
	} else {
		// Окно через полночь
		inWindow = minutes >= start || minutes <= end
	}

	return conditionResult(node, wctx, inWindow), nil
}

// executeTimeCondition сравнивает текущее время с заданным.
//
// Config:
//   - operator (string): "before" | "after" (default: "after")
//   - time (string): "HH:MM" (обязательно)
//   - weekdays ([]number): ограничение по дням недели (0=вс..6=сб)
func (e *Executor) executeTimeCondition(_ context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	target, err := parseClock(getString(cfg, "time"))
	if err != nil {
		return nil, fmt.Errorf("%w: time: %v", ErrInvalidConfig, err)
	}

	now := e.now()
	minutes := now.Hour()*60 + now.Minute()

	var result bool
	switch op := getStringDefault(cfg, "operator", "after"); op {
	case "after":
		result = minutes >= target
	case "before":
		result = minutes < target
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidConfig, op)
	}

	// Ограничение по дням недели, если задано
	if weekdays, ok := cfg["weekdays"].([]any); ok && len(weekdays) > 0 && result {
		result = false
		for _, wd := range weekdays {
			if f, ok := wd.(float64); ok && int(f) == int(now.Weekday()) {
				result = true
				break
			}
		}
	}

	return conditionResult(node, wctx, result), nil
}

// executeAndGate — истина, когда все указанные условия истинны.
//
// Config:
//   - sources ([]string): ID условных узлов выше по графу (обязательно)
func (e *Executor) executeAndGate(_ context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	sources := getStringSlice(cfg, "sources")
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: sources is required", ErrInvalidConfig)
	}

	result := true
	for _, id := range sources {
		if !wctx.ConditionResults[id] {
			result = false
			break
		}
	}

	return gateResult(node, wctx, result), nil
}

// executeOrGate — истина, когда хотя бы одно условие истинно.
func (e *Executor) executeOrGate(_ context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	sources := getStringSlice(cfg, "sources")
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: sources is required", ErrInvalidConfig)
	}

	result := false
	for _, id := range sources {
		if wctx.ConditionResults[id] {
			result = true
			break
		}
	}

	return gateResult(node, wctx, result), nil
}

// executeNotGate — инверсия одного условия.
//
// Config:
//   - source (string): ID условного узла (обязательно)
func (e *Executor) executeNotGate(_ context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	source := getString(cfg, "source")
	if source == "" {
		// Допускаем и форму sources: [id]
		if sources := getStringSlice(cfg, "sources"); len(sources) == 1 {
			source = sources[0]
		}
	}
	if source == "" {
		return nil, fmt.Errorf("%w: source is required", ErrInvalidConfig)
	}

	return gateResult(node, wctx, !wctx.ConditionResults[source]), nil
}

// compare сравнивает два числа по строковому оператору.
func compare(left float64, operator string, right float64) (bool, error) {
	switch operator {
	case ">", "gt", "greater_than":
		return left > right, nil
	case "<", "lt", "less_than":
		return left < right, nil
	case ">=", "gte":
		return left >= right, nil
	case "<=", "lte":
		return left <= right, nil
	case "==", "eq":
		return left == right, nil
	case "!=", "ne":
		return left != right, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrInvalidConfig, operator)
	}
}

// parseClock разбирает "HH:MM" в минуты от полуночи.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// abs — модуль целого.
func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
