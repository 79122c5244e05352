package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Tradeflow/internal/broker"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
)

func TestGetQuote(t *testing.T) {
	p := broker.NewPaper()
	p.SetQuote("RELIANCE", 2510.5)
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeGetQuote, map[string]any{
		"symbol": "RELIANCE",
	})

	// asOutput гоняет структуру через JSON: числа приходят float64
	if result.Outputs["ltp"] != 2510.5 {
		t.Errorf("ltp = %v", result.Outputs["ltp"])
	}
	if result.Outputs["symbol"] != "RELIANCE" {
		t.Errorf("symbol = %v", result.Outputs["symbol"])
	}
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	node := &domain.Node{ID: "n1", Type: domain.NodeGetQuote, Config: map[string]any{"symbol": "GHOST"}}
	if _, err := e.Execute(context.Background(), node, engine.NewContext(nil)); !errors.Is(err, broker.ErrUnknownSymbol) {
		t.Fatalf("got %v, want ErrUnknownSymbol", err)
	}
}

func TestGetDepth(t *testing.T) {
	p := broker.NewPaper()
	p.SetQuote("TCS", 4000)
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeGetDepth, map[string]any{
		"symbol": "TCS",
	})

	bid, _ := result.Outputs["best_bid"].(float64)
	ask, _ := result.Outputs["best_ask"].(float64)
	if bid <= 0 || ask <= 0 || bid >= ask {
		t.Errorf("best_bid = %v, best_ask = %v", bid, ask)
	}
	if ask-bid > 1 {
		t.Errorf("spread too wide: %v", ask-bid)
	}
}

func TestHistory(t *testing.T) {
	p := broker.NewPaper()
	p.SetHistory("NIFTY", []broker.Candle{
		{Timestamp: time.Now().AddDate(0, 0, -2), Close: 100, High: 105, Low: 95},
		{Timestamp: time.Now().AddDate(0, 0, -1), Close: 110, High: 112, Low: 99},
	})
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeHistory, map[string]any{
		"symbol": "NIFTY",
	})

	if result.Outputs["count"] != 2 {
		t.Errorf("count = %v", result.Outputs["count"])
	}
	if result.Outputs["last_close"] != 110.0 {
		t.Errorf("last_close = %v", result.Outputs["last_close"])
	}
	if result.Outputs["last_high"] != 112.0 {
		t.Errorf("last_high = %v", result.Outputs["last_high"])
	}
}

func TestOpenPosition(t *testing.T) {
	p := broker.NewPaper()
	p.SetPositions([]broker.Position{{Symbol: "TCS", Quantity: 30, PnL: 1500}})
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeOpenPosition, map[string]any{
		"symbol": "TCS",
	})
	if result.Outputs["exists"] != true {
		t.Errorf("exists = %v", result.Outputs["exists"])
	}
	if result.Outputs["quantity"] != 30.0 {
		t.Errorf("quantity = %v", result.Outputs["quantity"])
	}

	// Отсутствие позиции — не ошибка
	result = runNode(t, e, engine.NewContext(nil), domain.NodeOpenPosition, map[string]any{
		"symbol": "INFY",
	})
	if result.Outputs["exists"] != false {
		t.Errorf("exists = %v, want false", result.Outputs["exists"])
	}
	if result.Outputs["quantity"] != 0 {
		t.Errorf("quantity = %v, want 0", result.Outputs["quantity"])
	}
}

func TestOrderBookStatusFilter(t *testing.T) {
	p := broker.NewPaper()
	e := testExecutor(p)

	// Две заявки COMPLETE, одну отменяем
	first := runNode(t, e, engine.NewContext(nil), domain.NodePlaceOrder, map[string]any{
		"symbol": "TCS", "quantity": 1.0,
	})
	runNode(t, e, engine.NewContext(nil), domain.NodePlaceOrder, map[string]any{
		"symbol": "INFY", "quantity": 1.0,
	})
	runNode(t, e, engine.NewContext(nil), domain.NodeCancelOrder, map[string]any{
		"order_id": first.Outputs["order_id"],
	})

	result := runNode(t, e, engine.NewContext(nil), domain.NodeOrderBook, map[string]any{
		"status": "COMPLETE",
	})
	if result.Outputs["count"] != 1 {
		t.Errorf("count = %v, want 1", result.Outputs["count"])
	}

	all := runNode(t, e, engine.NewContext(nil), domain.NodeOrderBook, map[string]any{})
	if all.Outputs["count"] != 2 {
		t.Errorf("unfiltered count = %v, want 2", all.Outputs["count"])
	}
}

func TestPositionBook(t *testing.T) {
	p := broker.NewPaper()
	p.SetPositions([]broker.Position{
		{Symbol: "TCS", Quantity: 10, PnL: 500},
		{Symbol: "INFY", Quantity: 0, PnL: -200},
	})
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodePositionBook, nil)

	if result.Outputs["total_pnl"] != 300.0 {
		t.Errorf("total_pnl = %v", result.Outputs["total_pnl"])
	}
	if result.Outputs["open_count"] != 1 {
		t.Errorf("open_count = %v", result.Outputs["open_count"])
	}
	if result.Outputs["count"] != 2 {
		t.Errorf("count = %v", result.Outputs["count"])
	}
}

func TestHoldings(t *testing.T) {
	p := broker.NewPaper()
	p.SetHoldings([]broker.Holding{
		{Symbol: "TCS", Quantity: 10, LastPrice: 4000},
		{Symbol: "INFY", Quantity: 5, LastPrice: 1500},
	})
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeHoldings, nil)
	if result.Outputs["total_value"] != 47_500.0 {
		t.Errorf("total_value = %v", result.Outputs["total_value"])
	}
}

func TestFunds(t *testing.T) {
	p := broker.NewPaper()
	p.SetFunds(broker.Funds{Available: 123_456, Used: 1000})
	e := testExecutor(p)

	result := runNode(t, e, engine.NewContext(nil), domain.NodeFunds, nil)
	if result.Outputs["available"] != 123_456.0 {
		t.Errorf("available = %v", result.Outputs["available"])
	}
}
