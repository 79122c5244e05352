package nodes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shaiso/Tradeflow/internal/broker"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/notify"
)

func TestVariable(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	wctx := engine.NewContext(nil)
	result := runNode(t, e, wctx, domain.NodeVariable, map[string]any{
		"name":  "qty",
		"value": 15.0,
	})

	if wctx.Variables["qty"] != 15.0 {
		t.Errorf("variable not set: %v", wctx.Variables)
	}
	if result.Outputs["name"] != "qty" {
		t.Errorf("outputs = %v", result.Outputs)
	}
}

func TestVariableInterpolatedValue(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	wctx := engine.NewContext(map[string]any{"symbol": "TCS"})
	runNode(t, e, wctx, domain.NodeVariable, map[string]any{
		"name":  "target",
		"value": "sell {{symbol}}",
	})

	if wctx.Variables["target"] != "sell TCS" {
		t.Errorf("value = %v, want interpolated", wctx.Variables["target"])
	}
}

func TestLogNode(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	wctx := engine.NewContext(nil)
	wctx.SetNodeOutput("q", map[string]any{"ltp": 99.5})

	result := runNode(t, e, wctx, domain.NodeLog, map[string]any{
		"message": "price {{nodes.q.ltp}} and {{unknown}}",
	})

	// Разрешённые токены подставлены, неизвестные — дословно
	if result.Outputs["message"] != "price 99.5 and {{unknown}}" {
		t.Errorf("message = %v", result.Outputs["message"])
	}
}

func TestDelay(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	started := time.Now()
	result := runNode(t, e, engine.NewContext(nil), domain.NodeDelay, map[string]any{
		"seconds": 0.05,
	})
	if elapsed := time.Since(started); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, want >= 50ms", elapsed)
	}
	if result.Outputs["waited_seconds"] != 0.05 {
		t.Errorf("waited_seconds = %v", result.Outputs["waited_seconds"])
	}
}

func TestDelayCancelled(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	node := &domain.Node{ID: "d", Type: domain.NodeDelay, Config: map[string]any{"seconds": 60.0}}
	started := time.Now()
	_, err := e.Execute(ctx, node, engine.NewContext(nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if time.Since(started) > 5*time.Second {
		t.Fatal("delay ignored cancellation")
	}
}

func TestDelayInvalidSeconds(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	for _, cfg := range []map[string]any{
		{},
		{"seconds": 0.0},
		{"seconds": -1.0},
	} {
		node := &domain.Node{ID: "d", Type: domain.NodeDelay, Config: cfg}
		if _, err := e.Execute(context.Background(), node, engine.NewContext(nil)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("cfg %v: got %v, want ErrInvalidConfig", cfg, err)
		}
	}
}

func TestHTTPRequest(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"id":"abc"}`))
	}))
	defer server.Close()

	e := testExecutor(broker.NewPaper())

	result := runNode(t, e, engine.NewContext(nil), domain.NodeHTTPRequest, map[string]any{
		"url":    server.URL,
		"method": "post",
		"body":   map[string]any{"action": "buy"},
		"headers": map[string]any{
			"X-Custom": "tradeflow",
		},
	})

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %s", gotContentType)
	}
	if string(gotBody) != `{"action":"buy"}` {
		t.Errorf("body = %s", gotBody)
	}

	if result.Outputs["status"] != http.StatusOK {
		t.Errorf("status = %v", result.Outputs["status"])
	}
	parsed, ok := result.Outputs["json"].(map[string]any)
	if !ok || parsed["id"] != "abc" {
		t.Errorf("json = %v", result.Outputs["json"])
	}
}

func TestHTTPRequestRejectsNonHTTP(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	for _, url := range []string{"", "ftp://host/file", "file:///etc/passwd"} {
		node := &domain.Node{ID: "h", Type: domain.NodeHTTPRequest, Config: map[string]any{"url": url}}
		if _, err := e.Execute(context.Background(), node, engine.NewContext(nil)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("url %q: got %v, want ErrInvalidConfig", url, err)
		}
	}
}

func TestTelegramAlert(t *testing.T) {
	recorder := &notify.Recorder{}
	e := NewExecutor(Config{
		Broker:   broker.NewPaper(),
		Notifier: recorder,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	wctx := engine.NewContext(map[string]any{"symbol": "NIFTY"})
	result := runNode(t, e, wctx, domain.NodeTelegramAlert, map[string]any{
		"message": "breakout on {{symbol}}",
	})

	if len(recorder.Messages) != 1 || recorder.Messages[0] != "breakout on NIFTY" {
		t.Errorf("sent = %v", recorder.Messages)
	}
	if result.Outputs["sent"] != true {
		t.Errorf("outputs = %v", result.Outputs)
	}
}

func TestTelegramAlertEmptyMessage(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	node := &domain.Node{ID: "t", Type: domain.NodeTelegramAlert, Config: map[string]any{}}
	if _, err := e.Execute(context.Background(), node, engine.NewContext(nil)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
}

func TestExecutorUnknownType(t *testing.T) {
	e := testExecutor(broker.NewPaper())

	node := &domain.Node{ID: "x", Type: domain.NodeType("teleport")}
	if _, err := e.Execute(context.Background(), node, engine.NewContext(nil)); !errors.Is(err, ErrUnknownNodeType) {
		t.Fatalf("got %v, want ErrUnknownNodeType", err)
	}
}

func TestExecutorCoversCatalog(t *testing.T) {
	// У каждого типа из каталога есть обработчик
	e := testExecutor(broker.NewPaper())

	catalog := []domain.NodeType{
		domain.NodeStart, domain.NodeSchedule, domain.NodeWebhook, domain.NodePriceTrigger,
		domain.NodePriceCondition, domain.NodePositionCheck, domain.NodeFundCheck,
		domain.NodeTimeWindow, domain.NodeTimeCondition,
		domain.NodeAndGate, domain.NodeOrGate, domain.NodeNotGate,
		domain.NodePlaceOrder, domain.NodeSmartOrder, domain.NodeModifyOrder,
		domain.NodeCancelOrder, domain.NodeCancelAllOrders, domain.NodeClosePositions,
		domain.NodeBasketOrder, domain.NodeSplitOrder,
		domain.NodeGetQuote, domain.NodeGetDepth, domain.NodeHistory, domain.NodeOpenPosition,
		domain.NodeOptionChain, domain.NodeOrderBook, domain.NodeTradeBook,
		domain.NodePositionBook, domain.NodeHoldings, domain.NodeFunds,
		domain.NodeVariable, domain.NodeLog, domain.NodeDelay, domain.NodeWaitUntil,
		domain.NodeHTTPRequest, domain.NodeTelegramAlert,
	}

	for _, nodeType := range catalog {
		if _, ok := e.handlers[nodeType]; !ok {
			t.Errorf("no handler for %s", nodeType)
		}
	}
	if len(e.handlers) != len(catalog) {
		t.Errorf("registry has %d handlers, catalog has %d", len(e.handlers), len(catalog))
	}
}
