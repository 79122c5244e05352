package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/shaiso/Tradeflow/internal/broker"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/notify"
	"github.com/shaiso/Tradeflow/internal/telemetry"
)

// Ошибки обработчиков.
var (
	// ErrUnknownNodeType — для типа узла нет обработчика.
	ErrUnknownNodeType = errors.New("no handler for node type")

	// ErrInvalidConfig — конфигурация узла не проходит проверку обработчика.
	ErrInvalidConfig = errors.New("invalid node config")
)

// handlerFunc — обработчик одного типа узла.
//
// cfg — конфигурация узла после интерполяции {{token}} подстановок.
// Обработчик выполняет логику узла, пишет дельту в контекст и возвращает
// выходные данные и выбранную ветку.
type handlerFunc func(ctx context.Context, node *domain.Node, cfg map[string]any, wctx *engine.Context) (*engine.NodeResult, error)

// Executor — закрытый реестр обработчиков узлов.
// Реализует engine.NodeExecutor.
type Executor struct {
	broker   broker.Broker
	notifier notify.Notifier
	http     *http.Client
	logger   *slog.Logger
	handlers map[domain.NodeType]handlerFunc

	// now — источник времени для time_window/time_condition/wait_until.
	// Подменяется в тестах.
	now func() time.Time
}

// Config — зависимости Executor.
type Config struct {
	Broker   broker.Broker
	Notifier notify.Notifier // опционально; nil → notify.Nop
	HTTP     *http.Client    // опционально; для узла http_request
	Logger   *slog.Logger
}

// NewExecutor создаёт Executor со всеми обработчиками каталога.
func NewExecutor(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	e := &Executor{
		broker:   cfg.Broker,
		notifier: notifier,
		http:     httpClient,
		logger:   logger,
		handlers: make(map[domain.NodeType]handlerFunc),
		now:      time.Now,
	}

	e.registerTriggers()
	e.registerConditions()
	e.registerActions()
	e.registerDataFetch()
	e.registerUtility()

	return e
}

// register добавляет обработчик в реестр.
func (e *Executor) register(t domain.NodeType, h handlerFunc) {
	e.handlers[t] = h
}

// Types возвращает отсортированный список типов с обработчиками.
func (e *Executor) Types() []string {
	types := make([]string, 0, len(e.handlers))
	for t := range e.handlers {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// Execute выполняет один узел: интерполяция конфигурации, диспетчеризация
// по типу, снимок входа для журнала.
func (e *Executor) Execute(ctx context.Context, node *domain.Node, wctx *engine.Context) (*engine.NodeResult, error) {
	handler, ok := e.handlers[node.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, node.Type)
	}

	cfg := engine.InterpolateConfig(node.Config, wctx)

	started := time.Now()
	result, err := handler(ctx, node, cfg, wctx)
	telemetry.NodeDuration.WithLabelValues(string(node.Type)).Observe(time.Since(started).Seconds())

	if result == nil {
		result = &engine.NodeResult{}
	}
	if result.Input == nil {
		result.Input = cfg
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// conditionResult записывает результат условного узла в контекст
// и формирует NodeResult с веткой yes/no.
func conditionResult(node *domain.Node, wctx *engine.Context, value bool) *engine.NodeResult {
	wctx.SetConditionResult(node.ID, value)

	branch := domain.BranchNo
	if value {
		branch = domain.BranchYes
	}

	return &engine.NodeResult{
		Outputs: map[string]any{"result": value},
		Branch:  branch,
	}
}

// gateResult записывает результат gate-узла: результат попадает в
// ConditionResults (gates можно комбинировать), но выход безымянный.
func gateResult(node *domain.Node, wctx *engine.Context, value bool) *engine.NodeResult {
	wctx.SetConditionResult(node.ID, value)

	return &engine.NodeResult{
		Outputs: map[string]any{"result": value},
	}
}
