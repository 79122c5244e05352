package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleKind — вид расписания.
type ScheduleKind string

const (
	// ScheduleManual — запуск только вручную, планировщик ничего не регистрирует.
	ScheduleManual ScheduleKind = "manual"

	// ScheduleDaily — каждый день в заданное время.
	ScheduleDaily ScheduleKind = "daily"

	// ScheduleWeekly — в заданные дни недели в заданное время.
	ScheduleWeekly ScheduleKind = "weekly"

	// ScheduleInterval — каждые N единиц времени.
	ScheduleInterval ScheduleKind = "interval"

	// ScheduleOnce — один раз в абсолютный момент времени.
	ScheduleOnce ScheduleKind = "once"
)

// ScheduleConfig — конфигурация запуска workflow по расписанию.
type ScheduleConfig struct {
	// Kind — вид расписания.
	Kind ScheduleKind `json:"kind"`

	// Time — время суток "HH:MM" для daily и weekly.
	Time string `json:"time,omitempty"`

	// Weekdays — дни недели для weekly (0 = воскресенье ... 6 = суббота).
	Weekdays []int `json:"weekdays,omitempty"`

	// IntervalValue — значение интервала для interval.
	IntervalValue int `json:"interval_value,omitempty"`

	// IntervalUnit — единица интервала: "minutes", "hours", "days".
	IntervalUnit string `json:"interval_unit,omitempty"`

	// At — абсолютный момент запуска для once.
	At *time.Time `json:"at,omitempty"`

	// Timezone — часовой пояс для daily/weekly. По умолчанию UTC.
	Timezone string `json:"timezone,omitempty"`
}

// WebhookAuthType — способ передачи секрета webhook.
type WebhookAuthType string

const (
	// WebhookAuthPayload — секрет в поле "secret" JSON-тела.
	WebhookAuthPayload WebhookAuthType = "payload"

	// WebhookAuthURL — секрет в query-параметре "?secret=".
	WebhookAuthURL WebhookAuthType = "url"
)

// WebhookConfig — конфигурация входящего webhook.
type WebhookConfig struct {
	// Token — токен из URL пути: POST /webhook/{token}.
	// Уникален среди всех workflow.
	Token string `json:"token"`

	// Secret — секрет для проверки подлинности вызова.
	Secret string `json:"secret"`

	// AuthType — где искать секрет: в теле или в query.
	AuthType WebhookAuthType `json:"auth_type"`

	// Enabled — флаг активности webhook.
	Enabled bool `json:"enabled"`
}

// AlertCondition — условие срабатывания ценового алерта.
type AlertCondition string

const (
	AlertGreaterThan     AlertCondition = "greater_than"
	AlertLessThan        AlertCondition = "less_than"
	AlertCrossing        AlertCondition = "crossing"
	AlertCrossingUp      AlertCondition = "crossing_up"
	AlertCrossingDown    AlertCondition = "crossing_down"
	AlertEnteringChannel AlertCondition = "entering_channel"
	AlertExitingChannel  AlertCondition = "exiting_channel"
	AlertMovingUpPct     AlertCondition = "moving_up_percent"
	AlertMovingDownPct   AlertCondition = "moving_down_percent"
)

// PriceAlertConfig — ценовой алерт, запускающий workflow.
//
// Алерт одноразовый: после срабатывания монитор снимает его с наблюдения.
// Повторная постановка происходит только при реактивации workflow.
type PriceAlertConfig struct {
	// WorkflowID — workflow, который запускает алерт.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// NodeID — триггерный узел, к которому привязан алерт.
	NodeID string `json:"node_id"`

	// Symbol — тикер инструмента.
	Symbol string `json:"symbol"`

	// Condition — условие срабатывания.
	Condition AlertCondition `json:"condition"`

	// Target — целевая цена. Для *_channel — нижняя граница,
	// для moving_*_percent — процент изменения.
	Target float64 `json:"target"`

	// TargetHigh — верхняя граница канала для entering/exiting_channel.
	TargetHigh float64 `json:"target_high,omitempty"`
}
