package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/Tradeflow/internal/broker"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/telemetry"
)

// registerActions регистрирует узлы-действия: заявки брокеру.
//
// Действия fail-fast: ошибка брокера останавливает выполнение,
// ранее выставленные заявки не откатываются.
func (e *Executor) registerActions() {
	e.register(domain.NodePlaceOrder, e.executePlaceOrder)
	e.register(domain.NodeSmartOrder, e.executeSmartOrder)
	e.register(domain.NodeModifyOrder, e.executeModifyOrder)
	e.register(domain.NodeCancelOrder, e.executeCancelOrder)
	e.register(domain.NodeCancelAllOrders, e.executeCancelAllOrders)
	e.register(domain.NodeClosePositions, e.executeClosePositions)
	e.register(domain.NodeBasketOrder, e.executeBasketOrder)
	e.register(domain.NodeSplitOrder, e.executeSplitOrder)
}

// orderFromConfig собирает OrderRequest из конфигурации узла.
func orderFromConfig(cfg map[string]any) (broker.OrderRequest, error) {
	req := broker.OrderRequest{
		Symbol:    getString(cfg, "symbol"),
		Exchange:  getString(cfg, "exchange"),
		Side:      strings.ToUpper(getStringDefault(cfg, "side", "BUY")),
		OrderType: strings.ToUpper(getStringDefault(cfg, "order_type", "MARKET")),
		Product:   strings.ToUpper(getStringDefault(cfg, "product", "MIS")),
		Tag:       getString(cfg, "tag"),
	}

	if req.Symbol == "" {
		return req, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}
	if req.Side != "BUY" && req.Side != "SELL" {
		return req, fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrInvalidConfig, req.Side)
	}

	qty, ok := getInt(cfg, "quantity")
	if !ok || qty <= 0 {
		return req, fmt.Errorf("%w: quantity must be positive", ErrInvalidConfig)
	}
	req.Quantity = qty

	if price, ok := getFloat(cfg, "price"); ok {
		req.Price = price
	}
	if trigger, ok := getFloat(cfg, "trigger_price"); ok {
		req.TriggerPrice = trigger
	}

	return req, nil
}

// executePlaceOrder выставляет одну заявку.
//
// Config: symbol, side, quantity, order_type, price, trigger_price, product, tag.
func (e *Executor) executePlaceOrder(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	req, err := orderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	result, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place order %s %s x%d: %w", req.Side, req.Symbol, req.Quantity, err)
	}

	e.logger.Info("order placed",
		telemetry.WithNodeID(node.ID),
		"symbol", req.Symbol,
		"side", req.Side,
		"quantity", req.Quantity,
		"order_id", result.OrderID,
	)
	telemetry.OrdersPlaced.Inc()

	return &engine.NodeResult{Outputs: map[string]any{
		"order_id": result.OrderID,
		"status":   result.Status,
		"symbol":   req.Symbol,
		"quantity": req.Quantity,
	}}, nil
}

// executeSmartOrder выставляет заявку с учётом текущей позиции: quantity
// трактуется как целевой размер позиции, заявка — на разницу.
//
// Config: symbol, side, quantity (целевой размер), order_type, price, product.
func (e *Executor) executeSmartOrder(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	req, err := orderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	current := 0
	for _, pos := range positions {
		if pos.Symbol == req.Symbol {
			current = pos.Quantity
			break
		}
	}

	target := req.Quantity
	if req.Side == "SELL" {
		target = -target
	}

	delta := target - current
	if delta == 0 {
		// Позиция уже целевого размера, заявка не нужна
		return &engine.NodeResult{Outputs: map[string]any{
			"order_id": "",
			"status":   "SKIPPED",
			"symbol":   req.Symbol,
			"position": current,
		}}, nil
	}

	if delta > 0 {
		req.Side = "BUY"
		req.Quantity = delta
	} else {
		req.Side = "SELL"
		req.Quantity = -delta
	}

	result, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("smart order %s %s x%d: %w", req.Side, req.Symbol, req.Quantity, err)
	}

	e.logger.Info("smart order placed",
		telemetry.WithNodeID(node.ID),
		"symbol", req.Symbol,
		"side", req.Side,
		"quantity", req.Quantity,
		"position_before", current,
	)
	telemetry.OrdersPlaced.Inc()

	return &engine.NodeResult{Outputs: map[string]any{
		"order_id": result.OrderID,
		"status":   result.Status,
		"symbol":   req.Symbol,
		"quantity": req.Quantity,
		"side":     req.Side,
	}}, nil
}

// executeModifyOrder меняет параметры существующей заявки.
//
// Config: order_id (обязательно) + поля заявки как у place_order.
func (e *Executor) executeModifyOrder(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	orderID := getString(cfg, "order_id")
	if orderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidConfig)
	}

	req, err := orderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	result, err := e.broker.ModifyOrder(ctx, orderID, req)
	if err != nil {
		return nil, fmt.Errorf("modify order %s: %w", orderID, err)
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"order_id": result.OrderID,
		"status":   result.Status,
	}}, nil
}

// executeCancelOrder отменяет одну заявку по ID.
//
// Config: order_id (обязательно).
func (e *Executor) executeCancelOrder(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	orderID := getString(cfg, "order_id")
	if orderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidConfig)
	}

	if err := e.broker.CancelOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"order_id":  orderID,
		"cancelled": true,
	}}, nil
}

// executeCancelAllOrders отменяет все открытые заявки.
func (e *Executor) executeCancelAllOrders(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	count, err := e.broker.CancelAllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("cancel all orders: %w", err)
	}

	e.logger.Info("orders cancelled", telemetry.WithNodeID(node.ID), "count", count)

	return &engine.NodeResult{Outputs: map[string]any{
		"cancelled_count": count,
	}}, nil
}

// executeClosePositions закрывает позиции встречными рыночными заявками.
//
// Config: symbols ([]string): список инструментов; пустой — все позиции.
func (e *Executor) executeClosePositions(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	symbols := getStringSlice(cfg, "symbols")

	count, err := e.broker.ClosePositions(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("close positions: %w", err)
	}

	e.logger.Info("positions closed", telemetry.WithNodeID(node.ID), "count", count)

	return &engine.NodeResult{Outputs: map[string]any{
		"closed_count": count,
	}}, nil
}

// executeBasketOrder выставляет пакет заявок последовательно.
// Первая ошибка останавливает пакет: уже выставленные заявки остаются.
//
// Config:
//   - orders ([]object): элементы с полями как у place_order (обязательно)
func (e *Executor) executeBasketOrder(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	items := getMapSlice(cfg, "orders")
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: orders is required", ErrInvalidConfig)
	}

	orderIDs := make([]any, 0, len(items))
	for i, item := range items {
		req, err := orderFromConfig(item)
		if err != nil {
			return nil, fmt.Errorf("basket order #%d: %w", i+1, err)
		}

		result, err := e.broker.PlaceOrder(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("basket order #%d (%s %s x%d): %w", i+1, req.Side, req.Symbol, req.Quantity, err)
		}
		orderIDs = append(orderIDs, result.OrderID)
		telemetry.OrdersPlaced.Inc()
	}

	e.logger.Info("basket placed", telemetry.WithNodeID(node.ID), "count", len(orderIDs))

	return &engine.NodeResult{Outputs: map[string]any{
		"order_ids":    orderIDs,
		"placed_count": len(orderIDs),
	}}, nil
}

// executeSplitOrder режет крупную заявку на части не больше slice_size
// и выставляет их последовательно.
//
// Config: поля place_order + slice_size (обязательно, > 0).
func (e *Executor) executeSplitOrder(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	req, err := orderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	sliceSize, ok := getInt(cfg, "slice_size")
	if !ok || sliceSize <= 0 {
		return nil, fmt.Errorf("%w: slice_size must be positive", ErrInvalidConfig)
	}

	remaining := req.Quantity
	orderIDs := make([]any, 0, (remaining+sliceSize-1)/sliceSize)
	for remaining > 0 {
		part := req
		part.Quantity = sliceSize
		if remaining < sliceSize {
			part.Quantity = remaining
		}

		result, err := e.broker.PlaceOrder(ctx, part)
		if err != nil {
			return nil, fmt.Errorf("split order slice #%d: %w", len(orderIDs)+1, err)
		}
		orderIDs = append(orderIDs, result.OrderID)
		telemetry.OrdersPlaced.Inc()
		remaining -= part.Quantity
	}

	e.logger.Info("split order placed",
		telemetry.WithNodeID(node.ID),
		"symbol", req.Symbol,
		"total", req.Quantity,
		"slices", len(orderIDs),
	)

	return &engine.NodeResult{Outputs: map[string]any{
		"order_ids":   orderIDs,
		"slice_count": len(orderIDs),
		"total":       req.Quantity,
	}}, nil
}
