package nodes

import (
	"context"
	"fmt"

	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
)

// registerDataFetch регистрирует read-only узлы чтения данных брокера.
// Их выходы доступны дальше по графу через {{nodes.<id>.<path>}}.
func (e *Executor) registerDataFetch() {
	e.register(domain.NodeGetQuote, e.executeGetQuote)
	e.register(domain.NodeGetDepth, e.executeGetDepth)
	e.register(domain.NodeHistory, e.executeHistory)
	e.register(domain.NodeOpenPosition, e.executeOpenPosition)
	e.register(domain.NodeOptionChain, e.executeOptionChain)
	e.register(domain.NodeOrderBook, e.executeOrderBook)
	e.register(domain.NodeTradeBook, e.executeTradeBook)
	e.register(domain.NodePositionBook, e.executePositionBook)
	e.register(domain.NodeHoldings, e.executeHoldings)
	e.register(domain.NodeFunds, e.executeFunds)
}

// executeGetQuote читает котировку инструмента.
//
// Config: symbol (обязательно).
func (e *Executor) executeGetQuote(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbol := getString(cfg, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}

	quote, err := e.broker.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("get quote for %s: %w", symbol, err)
	}

	return &engine.NodeResult{Outputs: asOutput(quote)}, nil
}

// executeGetDepth читает стакан инструмента.
//
// Config: symbol (обязательно).
func (e *Executor) executeGetDepth(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbol := getString(cfg, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}

	depth, err := e.broker.Depth(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("get depth for %s: %w", symbol, err)
	}

	outputs := asOutput(depth)
	// Лучшие цены выносим на верхний уровень для удобной интерполяции
	if len(depth.Bids) > 0 {
		outputs["best_bid"] = depth.Bids[0].Price
	}
	if len(depth.Asks) > 0 {
		outputs["best_ask"] = depth.Asks[0].Price
	}

	return &engine.NodeResult{Outputs: outputs}, nil
}

// executeHistory читает исторические свечи.
//
// Config:
//   - symbol (string): тикер (обязательно)
//   - interval (string): "1m", "5m", "1d" и т.п. (default: "1d")
//   - lookback_days (number): глубина истории в днях (default: 30)
func (e *Executor) executeHistory(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbol := getString(cfg, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}

	interval := getStringDefault(cfg, "interval", "1d")
	lookback, ok := getInt(cfg, "lookback_days")
	if !ok || lookback <= 0 {
		lookback = 30
	}

	to := e.now()
	from := to.AddDate(0, 0, -lookback)

	candles, err := e.broker.History(ctx, symbol, interval, from, to)
	if err != nil {
		return nil, fmt.Errorf("get history for %s: %w", symbol, err)
	}

	outputs := map[string]any{
		"symbol":  symbol,
		"candles": asList(candles),
		"count":   len(candles),
	}
	if len(candles) > 0 {
		last := candles[len(candles)-1]
		outputs["last_close"] = last.Close
		outputs["last_high"] = last.High
		outputs["last_low"] = last.Low
	}

	return &engine.NodeResult{Outputs: outputs}, nil
}

// executeOpenPosition находит открытую позицию по инструменту.
// Отсутствие позиции — не ошибка: quantity = 0.
//
// Config: symbol (обязательно).
func (e *Executor) executeOpenPosition(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbol := getString(cfg, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	for _, pos := range positions {
		if pos.Symbol == symbol {
			outputs := asOutput(pos)
			outputs["exists"] = pos.Quantity != 0
			return &engine.NodeResult{Outputs: outputs}, nil
		}
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"symbol":   symbol,
		"quantity": 0,
		"exists":   false,
	}}, nil
}

// executeOptionChain читает опционную цепочку.
//
// Config:
//   - symbol (string): базовый актив (обязательно)
//   - expiry (string): дата экспирации "YYYY-MM-DD" (опционально,
//     пустая — ближайшая)
func (e *Executor) executeOptionChain(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbol := getString(cfg, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}

	expiry := getString(cfg, "expiry")

	strikes, err := e.broker.OptionChain(ctx, symbol, expiry)
	if err != nil {
		return nil, fmt.Errorf("get option chain for %s: %w", symbol, err)
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"symbol":  symbol,
		"expiry":  expiry,
		"strikes": asList(strikes),
		"count":   len(strikes),
	}}, nil
}

// executeOrderBook читает книгу заявок.
//
// Config: status (string): фильтр по статусу, пустой — все заявки.
func (e *Executor) executeOrderBook(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	orders, err := e.broker.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	if status := getString(cfg, "status"); status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"orders": asList(orders),
		"count":  len(orders),
	}}, nil
}

// executeTradeBook читает книгу сделок.
func (e *Executor) executeTradeBook(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	trades, err := e.broker.Trades(ctx)
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"trades": asList(trades),
		"count":  len(trades),
	}}, nil
}

// executePositionBook читает все открытые позиции и суммарный PnL.
func (e *Executor) executePositionBook(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	var totalPnL float64
	open := 0
	for _, pos := range positions {
		totalPnL += pos.PnL
		if pos.Quantity != 0 {
			open++
		}
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"positions":  asList(positions),
		"count":      len(positions),
		"open_count": open,
		"total_pnl":  totalPnL,
	}}, nil
}

// executeHoldings читает портфель.
func (e *Executor) executeHoldings(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	holdings, err := e.broker.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}

	var value float64
	for _, h := range holdings {
		value += float64(h.Quantity) * h.LastPrice
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"holdings":    asList(holdings),
		"count":       len(holdings),
		"total_value": value,
	}}, nil
}

// executeFunds читает состояние счёта.
func (e *Executor) executeFunds(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	funds, err := e.broker.Funds(ctx)
	if err != nil {
		return nil, fmt.Errorf("get funds: %w", err)
	}

	return &engine.NodeResult{Outputs: asOutput(funds)}, nil
}
