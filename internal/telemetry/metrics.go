package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка. Экспортируются сервером на /metrics.
var (
	// ExecutionsStarted — количество запущенных executions по источнику
	// триггера (manual, schedule, webhook, price_alert).
	ExecutionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeflow_executions_started_total",
		Help: "Workflow executions started, by trigger source",
	}, []string{"source"})

	// ExecutionsFinished — количество завершённых executions по статусу.
	ExecutionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeflow_executions_finished_total",
		Help: "Workflow executions finished, by terminal status",
	}, []string{"status"})

	// ExecutionsRejected — количество триггеров, отклонённых из-за
	// уже идущего выполнения того же workflow.
	ExecutionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeflow_executions_rejected_total",
		Help: "Triggers rejected because the workflow was already running",
	})

	// ActiveExecutions — количество выполнений в статусе RUNNING.
	ActiveExecutions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradeflow_active_executions",
		Help: "Workflow executions currently running",
	})

	// NodeDuration — длительность выполнения узлов по типу.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradeflow_node_duration_seconds",
		Help:    "Node execution duration, by node type",
		Buckets: prometheus.DefBuckets,
	}, []string{"node_type"})

	// AlertsFired — количество сработавших ценовых алертов.
	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeflow_price_alerts_fired_total",
		Help: "Price alerts fired (one-shot)",
	})

	// OrdersPlaced — количество заявок, выставленных узлами-действиями.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeflow_orders_placed_total",
		Help: "Broker orders placed by action nodes",
	})

	// WebhookRequests — количество webhook-вызовов по результату
	// (accepted, auth_error, busy, not_found).
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeflow_webhook_requests_total",
		Help: "Webhook trigger requests, by outcome",
	}, []string{"outcome"})
)
