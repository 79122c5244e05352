package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Tradeflow/internal/broker"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
)

func TestPlaceOrder(t *testing.T) {
	p := broker.NewPaper()
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodePlaceOrder, map[string]any{
		"symbol":   "RELIANCE",
		"side":     "buy",
		"quantity": 10.0,
	})

	if result.Outputs["status"] != "COMPLETE" {
		t.Errorf("status = %v", result.Outputs["status"])
	}
	if result.Outputs["order_id"] == "" {
		t.Error("empty order_id")
	}

	orders := p.PlacedOrders()
	if len(orders) != 1 {
		t.Fatalf("placed %d orders, want 1", len(orders))
	}
	if orders[0].Side != "BUY" {
		t.Errorf("side = %s, want BUY (uppercased)", orders[0].Side)
	}
	if orders[0].Quantity != 10 {
		t.Errorf("quantity = %d", orders[0].Quantity)
	}
}

func TestPlaceOrderInvalidConfig(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	tests := []struct {
		name string
		cfg  map[string]any
	}{
		{"без symbol", map[string]any{"quantity": 10.0}},
		{"без quantity", map[string]any{"symbol": "TCS"}},
		{"нулевое quantity", map[string]any{"symbol": "TCS", "quantity": 0.0}},
		{"кривой side", map[string]any{"symbol": "TCS", "quantity": 1.0, "side": "HOLD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &domain.Node{ID: "n1", Type: domain.NodePlaceOrder, Config: tt.cfg}
			if _, err := e.Execute(context.Background(), node, engine.NewContext(nil)); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestPlaceOrderInterpolatedQuantity(t *testing.T) {
	// После интерполяции quantity приходит строкой
	p := broker.NewPaper()
	e := testExecutor(p)

	wctx := engine.NewContext(nil)
	wctx.SetVariable("qty", 25)

	result := runNode(t, e, wctx, domain.NodePlaceOrder, map[string]any{
		"symbol":   "TCS",
		"quantity": "{{qty}}",
	})
	if result.Outputs["quantity"] != 25 {
		t.Errorf("quantity = %v, want 25", result.Outputs["quantity"])
	}
}

func TestSmartOrder(t *testing.T) {
	tests := []struct {
		name     string
		position int
		side     string
		quantity float64
		wantSide string
		wantQty  int
		skipped  bool
	}{
		{"добор до цели", 40, "BUY", 100, "BUY", 60, false},
		{"разворот в short", 50, "SELL", 100, "SELL", 150, false},
		{"цель достигнута", 100, "BUY", 100, "", 0, true},
		{"сокращение позиции", 100, "BUY", 30, "SELL", 70, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := broker.NewPaper()
			p.SetPositions([]broker.Position{{Symbol: "NIFTY", Quantity: tt.position}})
			e := testExecutor(p)

			result := runNode(t, e, engine.NewContext(nil), domain.NodeSmartOrder, map[string]any{
				"symbol":   "NIFTY",
				"side":     tt.side,
				"quantity": tt.quantity,
			})

			if tt.skipped {
				if result.Outputs["status"] != "SKIPPED" {
					t.Errorf("status = %v, want SKIPPED", result.Outputs["status"])
				}
				if len(p.PlacedOrders()) != 0 {
					t.Error("order placed despite target position reached")
				}
				return
			}

			orders := p.PlacedOrders()
			if len(orders) != 1 {
				t.Fatalf("placed %d orders, want 1", len(orders))
			}
			if orders[0].Side != tt.wantSide || orders[0].Quantity != tt.wantQty {
				t.Errorf("order = %s x%d, want %s x%d",
					orders[0].Side, orders[0].Quantity, tt.wantSide, tt.wantQty)
			}
		})
	}
}

func TestCancelOrder(t *testing.T) {
	p := broker.NewPaper()
	e := testExecutor(p)

	placed := runNode(t, e, engine.NewContext(nil), domain.NodePlaceOrder, map[string]any{
		"symbol": "TCS", "quantity": 5.0,
	})
	orderID := placed.Outputs["order_id"].(string)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeCancelOrder, map[string]any{
		"order_id": orderID,
	})
	if result.Outputs["cancelled"] != true {
		t.Errorf("cancelled = %v", result.Outputs["cancelled"])
	}

	orders := p.PlacedOrders()
	if orders[0].Status != "CANCELLED" {
		t.Errorf("broker status = %s", orders[0].Status)
	}
}

func TestClosePositions(t *testing.T) {
	p := broker.NewPaper()
	p.SetPositions([]broker.Position{
		{Symbol: "TCS", Quantity: 10},
		{Symbol: "INFY", Quantity: 20},
	})
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeClosePositions, map[string]any{
		"symbols": []any{"TCS"},
	})
	if result.Outputs["closed_count"] != 1 {
		t.Errorf("closed_count = %v, want 1", result.Outputs["closed_count"])
	}

	positions, _ := p.Positions(context.Background())
	if len(positions) != 1 || positions[0].Symbol != "INFY" {
		t.Errorf("remaining positions = %v", positions)
	}
}

func TestBasketOrder(t *testing.T) {
	p := broker.NewPaper()
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeBasketOrder, map[string]any{
		"orders": []any{
			map[string]any{"symbol": "TCS", "quantity": 10.0},
			map[string]any{"symbol": "INFY", "side": "sell", "quantity": 5.0},
		},
	})

	if result.Outputs["placed_count"] != 2 {
		t.Errorf("placed_count = %v", result.Outputs["placed_count"])
	}
	if len(p.PlacedOrders()) != 2 {
		t.Errorf("broker holds %d orders", len(p.PlacedOrders()))
	}
}

func TestBasketOrderFailFast(t *testing.T) {
	p := broker.NewPaper()
	e := testExecutor(p)

	node := &domain.Node{ID: "n1", Type: domain.NodeBasketOrder, Config: map[string]any{
		"orders": []any{
			map[string]any{"symbol": "TCS", "quantity": 10.0},
			map[string]any{"symbol": "", "quantity": 5.0}, // сломанная заявка
			map[string]any{"symbol": "INFY", "quantity": 1.0},
		},
	}}

	if _, err := e.Execute(context.Background(), node, engine.NewContext(nil)); err == nil {
		t.Fatal("expected error")
	}

	// Выставленные до ошибки заявки остаются: отката нет
	if len(p.PlacedOrders()) != 1 {
		t.Errorf("broker holds %d orders, want 1", len(p.PlacedOrders()))
	}
}

func TestSplitOrder(t *testing.T) {
	p := broker.NewPaper()
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeSplitOrder, map[string]any{
		"symbol":     "NIFTY",
		"quantity":   250.0,
		"slice_size": 100.0,
	})

	if result.Outputs["slice_count"] != 3 {
		t.Errorf("slice_count = %v, want 3", result.Outputs["slice_count"])
	}

	orders := p.PlacedOrders()
	wantQty := []int{100, 100, 50}
	if len(orders) != 3 {
		t.Fatalf("placed %d orders, want 3", len(orders))
	}
	for i, o := range orders {
		if o.Quantity != wantQty[i] {
			t.Errorf("slice %d quantity = %d, want %d", i, o.Quantity, wantQty[i])
		}
	}
}
