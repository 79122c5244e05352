// Package broker описывает клиента брокерского API.
//
// Движок не знает деталей конкретного брокера: узлы-действия и узлы
// чтения данных работают через интерфейс Broker. Продакшн-реализация —
// RESTClient (rest.go), для тестов и sandbox-запусков — Paper (memory.go).
// Повторные попытки, если они нужны, — ответственность клиента брокера,
// движок их не делает.
package broker

import (
	"context"
	"errors"
	"time"
)

// Ошибки брокера.
var (
	// ErrOrderRejected — брокер отклонил заявку.
	ErrOrderRejected = errors.New("order rejected by broker")

	// ErrUnknownSymbol — инструмент не найден.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnknownOrder — заявка с таким ID не найдена.
	ErrUnknownOrder = errors.New("unknown order")
)

// OrderRequest — полностью разрешённая заявка (все поля уже
// интерполированы узлом-действием).
type OrderRequest struct {
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange,omitempty"`
	Side         string  `json:"side"` // BUY / SELL
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price,omitempty"`
	TriggerPrice float64 `json:"trigger_price,omitempty"`
	OrderType    string  `json:"order_type,omitempty"` // MARKET / LIMIT / SL / SL-M
	Product      string  `json:"product,omitempty"`    // MIS / CNC / NRML
	Tag          string  `json:"tag,omitempty"`
}

// OrderResult — ответ брокера на заявку.
type OrderResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Quote — котировка инструмента.
type Quote struct {
	Symbol    string    `json:"symbol"`
	LTP       float64   `json:"ltp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// DepthLevel — один уровень стакана.
type DepthLevel struct {
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Orders   int     `json:"orders"`
}

// Depth — стакан инструмента.
type Depth struct {
	Symbol string       `json:"symbol"`
	Bids   []DepthLevel `json:"bids"`
	Asks   []DepthLevel `json:"asks"`
}

// Candle — одна свеча исторических данных.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Position — открытая позиция.
type Position struct {
	Symbol       string  `json:"symbol"`
	Product      string  `json:"product,omitempty"`
	Quantity     int     `json:"quantity"` // отрицательное — short
	AveragePrice float64 `json:"average_price"`
	PnL          float64 `json:"pnl"`
}

// Holding — бумага в портфеле.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	LastPrice    float64 `json:"last_price"`
}

// Order — заявка из книги заявок.
type Order struct {
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"` // OPEN / COMPLETE / CANCELLED / REJECTED
	PlacedAt  time.Time `json:"placed_at"`
	OrderType string    `json:"order_type,omitempty"`
}

// Trade — исполненная сделка.
type Trade struct {
	TradeID    string    `json:"trade_id"`
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Funds — состояние счёта.
type Funds struct {
	Available float64 `json:"available"`
	Used      float64 `json:"used"`
}

// OptionStrike — один страйк опционной цепочки.
type OptionStrike struct {
	Strike  float64 `json:"strike"`
	CallLTP float64 `json:"call_ltp"`
	PutLTP  float64 `json:"put_ltp"`
	CallOI  int64   `json:"call_oi"`
	PutOI   int64   `json:"put_oi"`
}

// Broker — клиент брокерского API.
//
// Все вызовы синхронные: успех/ошибка плюс данные. Запись (заявки)
// и чтение (котировки, позиции, средства) разделены только семантически.
type Broker interface {
	// Действия
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	ModifyOrder(ctx context.Context, orderID string, req OrderRequest) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAllOrders(ctx context.Context) (int, error)
	ClosePositions(ctx context.Context, symbols []string) (int, error)

	// Чтение
	Quote(ctx context.Context, symbol string) (*Quote, error)
	Depth(ctx context.Context, symbol string) (*Depth, error)
	History(ctx context.Context, symbol, interval string, from, to time.Time) ([]Candle, error)
	OptionChain(ctx context.Context, symbol, expiry string) ([]OptionStrike, error)
	Orders(ctx context.Context) ([]Order, error)
	Trades(ctx context.Context) ([]Trade, error)
	Positions(ctx context.Context) ([]Position, error)
	Holdings(ctx context.Context) ([]Holding, error)
	Funds(ctx context.Context) (*Funds, error)
}
