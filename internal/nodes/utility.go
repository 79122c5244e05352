package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/telemetry"
)

// maxHTTPResponseBytes ограничивает тело ответа узла http_request.
const maxHTTPResponseBytes = 1 << 20

// registerUtility регистрирует вспомогательные узлы.
func (e *Executor) registerUtility() {
	e.register(domain.NodeVariable, e.executeVariable)
	e.register(domain.NodeLog, e.executeLog)
	e.register(domain.NodeDelay, e.executeDelay)
	e.register(domain.NodeWaitUntil, e.executeWaitUntil)
	e.register(domain.NodeHTTPRequest, e.executeHTTPRequest)
	e.register(domain.NodeTelegramAlert, e.executeTelegramAlert)
}

// executeVariable записывает переменную в контекст выполнения.
//
// Config:
//   - name (string): имя переменной (обязательно)
//   - value (any): значение; {{token}} уже разрешены интерполяцией
func (e *Executor) executeVariable(_ context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	name := getString(cfg, "name")
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	value, ok := cfg["value"]
	if !ok {
		return nil, fmt.Errorf("%w: value is required", ErrInvalidConfig)
	}

	wctx.SetVariable(name, value)

	return &engine.NodeResult{Outputs: map[string]any{
		"name":  name,
		"value": value,
	}}, nil
}

// executeLog пишет сообщение в журнал выполнения.
//
// Config: message (string).
func (e *Executor) executeLog(_ context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	message := getString(cfg, "message")

	e.logger.Info("workflow log", telemetry.WithNodeID(node.ID), "message", message)

	return &engine.NodeResult{Outputs: map[string]any{
		"message": message,
	}}, nil
}

// executeDelay приостанавливает выполнение на заданное время.
// Каждое выполнение живёт в своей горутине, поэтому блокировка
// здесь безопасна. Отмена выполнения прерывает ожидание.
//
// Config:
//   - seconds (number): длительность паузы (обязательно, > 0)
func (e *Executor) executeDelay(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	seconds, ok := getFloat(cfg, "seconds")
	if !ok || seconds <= 0 {
		return nil, fmt.Errorf("%w: seconds must be positive", ErrInvalidConfig)
	}

	d := time.Duration(seconds * float64(time.Second))

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"waited_seconds": seconds,
	}}, nil
}

// executeWaitUntil блокирует выполнение до заданного времени суток.
// Если время уже прошло сегодня, ждёт до того же времени завтра.
//
// Config:
//   - time (string): "HH:MM" (обязательно)
func (e *Executor) executeWaitUntil(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	target, err := parseClock(getString(cfg, "time"))
	if err != nil {
		return nil, fmt.Errorf("%w: time: %v", ErrInvalidConfig, err)
	}

	now := e.now()
	deadline := time.Date(now.Year(), now.Month(), now.Day(), target/60, target%60, 0, 0, now.Location())
	if !deadline.After(now) {
		deadline = deadline.AddDate(0, 0, 1)
	}

	timer := time.NewTimer(deadline.Sub(now))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"resumed_at": deadline.Format(time.RFC3339),
	}}, nil
}

// executeHTTPRequest делает исходящий HTTP-запрос.
//
// Config:
//   - url (string): адрес (обязательно)
//   - method (string): GET/POST/PUT/DELETE (default: GET)
//   - headers (object): заголовки запроса
//   - body (any): тело; объект сериализуется в JSON
func (e *Executor) executeHTTPRequest(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	url := getString(cfg, "url")
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: url must be http(s)", ErrInvalidConfig)
	}

	method := strings.ToUpper(getStringDefault(cfg, "method", http.MethodGet))

	var body io.Reader
	contentType := ""
	if raw, ok := cfg["body"]; ok && raw != nil {
		switch b := raw.(type) {
		case string:
			body = strings.NewReader(b)
		default:
			encoded, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("%w: body: %v", ErrInvalidConfig, err)
			}
			body = bytes.NewReader(encoded)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if headers, ok := cfg["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}

	outputs := map[string]any{
		"status": resp.StatusCode,
		"body":   string(data),
	}

	// Если ответ — JSON-объект, раскрываем его для точечных путей
	var parsed map[string]any
	if json.Unmarshal(data, &parsed) == nil {
		outputs["json"] = parsed
	}

	return &engine.NodeResult{Outputs: outputs}, nil
}

// executeTelegramAlert отправляет уведомление через notify.Notifier.
//
// Config: message (string, обязательно).
func (e *Executor) executeTelegramAlert(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error) {
	message := getString(cfg, "message")
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidConfig)
	}

	if err := e.notifier.Send(ctx, message); err != nil {
		return nil, fmt.Errorf("send notification: %w", err)
	}

	return &engine.NodeResult{Outputs: map[string]any{
		"sent":    true,
		"message": message,
	}}, nil
}
