package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/broker"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/telemetry"
)

// defaultPollInterval — период опроса котировок монитором.
const defaultPollInterval = 5 * time.Second

// alertKey — ключ алерта в мониторе: workflow + триггерный узел.
type alertKey struct {
	workflowID uuid.UUID
	nodeID     string
}

// watchedAlert — алерт под наблюдением вместе с накопленным состоянием.
type watchedAlert struct {
	cfg   domain.PriceAlertConfig
	state State
}

// Monitor опрашивает котировки и запускает workflow по ценовым алертам.
//
// Алерты одноразовые: сработавший снимается с наблюдения до следующей
// активации workflow. Котировка по каждому символу запрашивается один
// раз за тик, сколько бы алертов на него ни смотрело.
type Monitor struct {
	broker   broker.Broker
	source   WorkflowSource
	launcher Launcher
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	alerts map[alertKey]*watchedAlert
}

// MonitorConfig — конфигурация Monitor.
type MonitorConfig struct {
	Broker   broker.Broker
	Source   WorkflowSource
	Launcher Launcher
	Logger   *slog.Logger
	Interval time.Duration // default: 5s
}

// NewMonitor создаёт Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Monitor{
		broker:   cfg.Broker,
		source:   cfg.Source,
		launcher: cfg.Launcher,
		logger:   logger,
		interval: interval,
		alerts:   make(map[alertKey]*watchedAlert),
	}
}

// Register ставит алерты workflow под наблюдение.
// Повторная регистрация сбрасывает накопленное состояние алертов.
func (m *Monitor) Register(wf *domain.Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cfg := range wf.PriceAlerts {
		key := alertKey{workflowID: wf.ID, nodeID: cfg.NodeID}
		m.alerts[key] = &watchedAlert{cfg: cfg}
		m.logger.Info("price alert registered",
			telemetry.WithWorkflowID(wf.ID),
			telemetry.WithNodeID(cfg.NodeID),
			"symbol", cfg.Symbol,
			"condition", cfg.Condition,
			"target", cfg.Target,
		)
	}
}

// Unregister снимает все алерты workflow с наблюдения.
func (m *Monitor) Unregister(workflowID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.alerts {
		if key.workflowID == workflowID {
			delete(m.alerts, key)
		}
	}
}

// Watching возвращает количество алертов под наблюдением.
func (m *Monitor) Watching() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

// Run крутит цикл опроса до отмены контекста.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("price monitor started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("price monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick выполняет один цикл опроса: котировка по каждому символу,
// проверка условий, запуск сработавших. Ошибка котировки одного
// символа не мешает проверке остальных.
func (m *Monitor) Tick(ctx context.Context) {
	prices := make(map[string]float64)
	for _, symbol := range m.symbols() {
		quote, err := m.broker.Quote(ctx, symbol)
		if err != nil {
			m.logger.Warn("quote failed, skipping symbol",
				"symbol", symbol,
				"error", err,
			)
			continue
		}
		prices[symbol] = quote.LTP
	}

	for _, fired := range m.advance(prices) {
		m.fire(ctx, fired)
	}
}

// symbols возвращает уникальные символы под наблюдением.
func (m *Monitor) symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	out := make([]string, 0, len(m.alerts))
	for _, wa := range m.alerts {
		if !seen[wa.cfg.Symbol] {
			seen[wa.cfg.Symbol] = true
			out = append(out, wa.cfg.Symbol)
		}
	}
	return out
}

// firedAlert — сработавший алерт с ценой срабатывания.
type firedAlert struct {
	cfg   domain.PriceAlertConfig
	price float64
}

// advance применяет цены тика ко всем алертам: проверяет условия,
// снимает сработавшие с наблюдения, обновляет состояние остальных.
// Baseline фиксируется первой ценой после регистрации.
func (m *Monitor) advance(prices map[string]float64) []firedAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fired []firedAlert
	for key, wa := range m.alerts {
		price, ok := prices[wa.cfg.Symbol]
		if !ok {
			continue
		}

		if !wa.state.HasBaseline {
			wa.state.Baseline = price
			wa.state.HasBaseline = true
		}

		if Evaluate(&wa.cfg, price, &wa.state) {
			fired = append(fired, firedAlert{cfg: wa.cfg, price: price})
			delete(m.alerts, key)
			continue
		}

		wa.state.Prev = price
		wa.state.HasPrev = true
	}
	return fired
}

// fire запускает workflow сработавшего алерта.
// Занятый workflow — не ошибка: алерт уже снят, запуск отбрасывается.
func (m *Monitor) fire(ctx context.Context, fa firedAlert) {
	telemetry.AlertsFired.Inc()

	wf, err := m.source.GetByID(ctx, fa.cfg.WorkflowID)
	if err != nil {
		m.logger.Error("workflow not found for fired alert",
			telemetry.WithWorkflowID(fa.cfg.WorkflowID),
			"error", err,
		)
		return
	}
	if !wf.IsActive {
		m.logger.Warn("fired alert for inactive workflow, dropping",
			telemetry.WithWorkflowID(wf.ID),
		)
		return
	}

	payload := map[string]any{
		"symbol":    fa.cfg.Symbol,
		"price":     fa.price,
		"condition": string(fa.cfg.Condition),
		"target":    fa.cfg.Target,
	}

	execID, err := m.launcher.Execute(ctx, wf, payload, SourcePriceAlert)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowBusy) {
			m.logger.Warn("alert fired while workflow busy, dropping",
				telemetry.WithWorkflowID(wf.ID),
				"symbol", fa.cfg.Symbol,
			)
			return
		}
		m.logger.Error("failed to start execution from alert",
			telemetry.WithWorkflowID(wf.ID),
			"error", err,
		)
		return
	}

	m.logger.Info("price alert fired",
		telemetry.WithWorkflowID(wf.ID),
		telemetry.WithExecutionID(execID),
		"symbol", fa.cfg.Symbol,
		"price", fa.price,
		"condition", fa.cfg.Condition,
	)
}
