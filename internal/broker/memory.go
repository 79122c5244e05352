package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Paper — брокер-симулятор в памяти.
//
// Используется в тестах и для sandbox-запусков: заявки принимаются
// и учитываются, но никуда не отправляются. Котировки и состояние
// счёта задаются вручную через Set*.
type Paper struct {
	mu        sync.Mutex
	quotes    map[string]Quote
	positions []Position
	holdings  []Holding
	orders    []Order
	trades    []Trade
	funds     Funds
	candles   map[string][]Candle
	chain     map[string][]OptionStrike
	nextID    int
}

// NewPaper создаёт пустой брокер-симулятор.
func NewPaper() *Paper {
	return &Paper{
		quotes:  make(map[string]Quote),
		candles: make(map[string][]Candle),
		chain:   make(map[string][]OptionStrike),
		funds:   Funds{Available: 1_000_000},
	}
}

// SetQuote задаёт котировку инструмента.
func (p *Paper) SetQuote(symbol string, ltp float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = Quote{Symbol: symbol, LTP: ltp, Timestamp: time.Now()}
}

// SetPositions задаёт открытые позиции.
func (p *Paper) SetPositions(positions []Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = positions
}

// SetHoldings задаёт портфель.
func (p *Paper) SetHoldings(holdings []Holding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holdings = holdings
}

// SetFunds задаёт состояние счёта.
func (p *Paper) SetFunds(funds Funds) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.funds = funds
}

// SetHistory задаёт исторические свечи инструмента.
func (p *Paper) SetHistory(symbol string, candles []Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles[symbol] = candles
}

// SetOptionChain задаёт опционную цепочку инструмента.
func (p *Paper) SetOptionChain(symbol string, strikes []OptionStrike) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chain[symbol] = strikes
}

// PlacedOrders возвращает все принятые заявки.
func (p *Paper) PlacedOrders() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Order, len(p.orders))
	copy(out, p.orders)
	return out
}

// PlaceOrder принимает заявку и сразу помечает её COMPLETE.
func (p *Paper) PlaceOrder(_ context.Context, req OrderRequest) (*OrderResult, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrOrderRejected)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrOrderRejected)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	orderID := fmt.Sprintf("PAPER-%d", p.nextID)

	p.orders = append(p.orders, Order{
		OrderID:   orderID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Status:    "COMPLETE",
		PlacedAt:  time.Now(),
		OrderType: req.OrderType,
	})

	return &OrderResult{OrderID: orderID, Status: "COMPLETE"}, nil
}

// ModifyOrder изменяет принятую заявку.
func (p *Paper) ModifyOrder(_ context.Context, orderID string, req OrderRequest) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.orders {
		if p.orders[i].OrderID == orderID {
			if req.Quantity > 0 {
				p.orders[i].Quantity = req.Quantity
			}
			if req.Price > 0 {
				p.orders[i].Price = req.Price
			}
			return &OrderResult{OrderID: orderID, Status: p.orders[i].Status}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
}

// CancelOrder отменяет заявку.
func (p *Paper) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.orders {
		if p.orders[i].OrderID == orderID {
			p.orders[i].Status = "CANCELLED"
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
}

// CancelAllOrders отменяет все открытые заявки.
func (p *Paper) CancelAllOrders(_ context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cancelled := 0
	for i := range p.orders {
		if p.orders[i].Status == "OPEN" {
			p.orders[i].Status = "CANCELLED"
			cancelled++
		}
	}
	return cancelled, nil
}

// ClosePositions закрывает позиции. Пустой список символов — все.
func (p *Paper) ClosePositions(_ context.Context, symbols []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	match := func(symbol string) bool {
		if len(symbols) == 0 {
			return true
		}
		for _, s := range symbols {
			if s == symbol {
				return true
			}
		}
		return false
	}

	var kept []Position
	closed := 0
	for _, pos := range p.positions {
		if match(pos.Symbol) {
			closed++
			continue
		}
		kept = append(kept, pos)
	}
	p.positions = kept
	return closed, nil
}

// Quote возвращает котировку.
func (p *Paper) Quote(_ context.Context, symbol string) (*Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	quote, ok := p.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return &quote, nil
}

// Depth возвращает синтетический стакан вокруг последней цены.
func (p *Paper) Depth(_ context.Context, symbol string) (*Depth, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	quote, ok := p.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	return &Depth{
		Symbol: symbol,
		Bids:   []DepthLevel{{Price: quote.LTP - 0.05, Quantity: 100, Orders: 1}},
		Asks:   []DepthLevel{{Price: quote.LTP + 0.05, Quantity: 100, Orders: 1}},
	}, nil
}

// History возвращает заданные свечи.
func (p *Paper) History(_ context.Context, symbol, _ string, _, _ time.Time) ([]Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candles, ok := p.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return candles, nil
}

// OptionChain возвращает заданную цепочку.
func (p *Paper) OptionChain(_ context.Context, symbol, _ string) ([]OptionStrike, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	chain, ok := p.chain[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return chain, nil
}

// Orders возвращает книгу заявок.
func (p *Paper) Orders(_ context.Context) ([]Order, error) {
	return p.PlacedOrders(), nil
}

// Trades возвращает книгу сделок.
func (p *Paper) Trades(_ context.Context) ([]Trade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Trade, len(p.trades))
	copy(out, p.trades)
	return out, nil
}

// Positions возвращает открытые позиции.
func (p *Paper) Positions(_ context.Context) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Position, len(p.positions))
	copy(out, p.positions)
	return out, nil
}

// Holdings возвращает портфель.
func (p *Paper) Holdings(_ context.Context) ([]Holding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Holding, len(p.holdings))
	copy(out, p.holdings)
	return out, nil
}

// Funds возвращает состояние счёта.
func (p *Paper) Funds(_ context.Context) (*Funds, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	funds := p.funds
	return &funds, nil
}
