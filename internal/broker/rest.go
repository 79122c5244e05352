package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Параметры REST-клиента по умолчанию.
const (
	defaultRequestTimeout = 15 * time.Second

	// quoteCacheTTL — TTL кеша котировок. Монитор алертов и узлы GetQuote
	// в цикле опрашивают одни и те же тикеры; короткий кеш снимает
	// повторные запросы к брокеру внутри одного тика.
	quoteCacheTTL = 2 * time.Second
)

// RESTClient — клиент брокерского API поверх HTTP/JSON.
//
// Эндпоинты:
//
//	POST /orders, PUT /orders/{id}, DELETE /orders/{id}, DELETE /orders
//	POST /positions/close
//	GET  /quote?symbol=, /depth?symbol=, /history, /optionchain,
//	     /orders, /trades, /positions, /holdings, /funds
type RESTClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	quotes  *gocache.Cache
}

// NewRESTClient создаёт клиента. baseURL без завершающего слеша.
func NewRESTClient(baseURL, apiKey string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		quotes:  gocache.New(quoteCacheTTL, time.Minute),
	}
}

// NewRESTClientFromEnv создаёт клиента из переменных окружения
// BROKER_URL и BROKER_API_KEY.
func NewRESTClientFromEnv() *RESTClient {
	baseURL := os.Getenv("BROKER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:5000/api/v1"
	}
	return NewRESTClient(baseURL, os.Getenv("BROKER_API_KEY"))
}

// do выполняет запрос и декодирует JSON-ответ в out.
func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("broker request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read broker response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("broker %s %s: HTTP %d: %s",
			method, path, resp.StatusCode, truncate(string(respBody), 200))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode broker response: %w", err)
		}
	}
	return nil
}

// PlaceOrder отправляет заявку брокеру.
func (c *RESTClient) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	var result OrderResult
	if err := c.do(ctx, http.MethodPost, "/orders", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ModifyOrder изменяет существующую заявку.
func (c *RESTClient) ModifyOrder(ctx context.Context, orderID string, req OrderRequest) (*OrderResult, error) {
	var result OrderResult
	path := "/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodPut, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelOrder отменяет заявку.
func (c *RESTClient) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil, nil)
}

// CancelAllOrders отменяет все открытые заявки.
// Возвращает количество отменённых.
func (c *RESTClient) CancelAllOrders(ctx context.Context) (int, error) {
	var result struct {
		Cancelled int `json:"cancelled"`
	}
	if err := c.do(ctx, http.MethodDelete, "/orders", nil, &result); err != nil {
		return 0, err
	}
	return result.Cancelled, nil
}

// ClosePositions закрывает позиции. Пустой список символов — все.
func (c *RESTClient) ClosePositions(ctx context.Context, symbols []string) (int, error) {
	body := map[string]any{"symbols": symbols}
	var result struct {
		Closed int `json:"closed"`
	}
	if err := c.do(ctx, http.MethodPost, "/positions/close", body, &result); err != nil {
		return 0, err
	}
	return result.Closed, nil
}

// Quote возвращает котировку. Результат кешируется на quoteCacheTTL.
func (c *RESTClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if cached, ok := c.quotes.Get(symbol); ok {
		q := cached.(Quote)
		return &q, nil
	}

	var quote Quote
	path := "/quote?symbol=" + url.QueryEscape(symbol)
	if err := c.do(ctx, http.MethodGet, path, nil, &quote); err != nil {
		return nil, err
	}

	c.quotes.Set(symbol, quote, gocache.DefaultExpiration)
	return &quote, nil
}

// Depth возвращает стакан инструмента.
func (c *RESTClient) Depth(ctx context.Context, symbol string) (*Depth, error) {
	var depth Depth
	path := "/depth?symbol=" + url.QueryEscape(symbol)
	if err := c.do(ctx, http.MethodGet, path, nil, &depth); err != nil {
		return nil, err
	}
	return &depth, nil
}

// History возвращает исторические свечи.
func (c *RESTClient) History(ctx context.Context, symbol, interval string, from, to time.Time) ([]Candle, error) {
	var candles []Candle
	path := fmt.Sprintf("/history?symbol=%s&interval=%s&from=%d&to=%d",
		url.QueryEscape(symbol), url.QueryEscape(interval), from.Unix(), to.Unix())
	if err := c.do(ctx, http.MethodGet, path, nil, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// OptionChain возвращает опционную цепочку.
func (c *RESTClient) OptionChain(ctx context.Context, symbol, expiry string) ([]OptionStrike, error) {
	var chain []OptionStrike
	path := fmt.Sprintf("/optionchain?symbol=%s&expiry=%s",
		url.QueryEscape(symbol), url.QueryEscape(expiry))
	if err := c.do(ctx, http.MethodGet, path, nil, &chain); err != nil {
		return nil, err
	}
	return chain, nil
}

// Orders возвращает книгу заявок.
func (c *RESTClient) Orders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Trades возвращает книгу сделок.
func (c *RESTClient) Trades(ctx context.Context) ([]Trade, error) {
	var trades []Trade
	if err := c.do(ctx, http.MethodGet, "/trades", nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// Positions возвращает открытые позиции.
func (c *RESTClient) Positions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.do(ctx, http.MethodGet, "/positions", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// Holdings возвращает портфель.
func (c *RESTClient) Holdings(ctx context.Context) ([]Holding, error) {
	var holdings []Holding
	if err := c.do(ctx, http.MethodGet, "/holdings", nil, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// Funds возвращает состояние счёта.
func (c *RESTClient) Funds(ctx context.Context) (*Funds, error) {
	var funds Funds
	if err := c.do(ctx, http.MethodGet, "/funds", nil, &funds); err != nil {
		return nil, err
	}
	return &funds, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
