package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/telemetry"
)

// Scheduler запускает workflow по расписанию через robfig/cron.
//
// Каждый активный workflow с расписанием регистрирует одну cron-запись
// (или одноразовый таймер для kind=once). Manual ничего не регистрирует.
type Scheduler struct {
	cron     *cron.Cron
	source   WorkflowSource
	launcher Launcher
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]cron.EntryID
	timers  map[uuid.UUID]*time.Timer
}

// SchedulerConfig — конфигурация Scheduler.
type SchedulerConfig struct {
	Source   WorkflowSource
	Launcher Launcher
	Logger   *slog.Logger
}

// NewScheduler создаёт Scheduler. Start запускает cron-цикл,
// Stop дожидается завершения запущенных jobs.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:     cron.New(),
		source:   cfg.Source,
		launcher: cfg.Launcher,
		logger:   logger,
		entries:  make(map[uuid.UUID]cron.EntryID),
		timers:   make(map[uuid.UUID]*time.Timer),
	}
}

// Start запускает cron-цикл в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop останавливает cron-цикл и дожидается идущих jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Register регистрирует расписание workflow.
// Повторная регистрация заменяет существующую запись.
func (s *Scheduler) Register(wf *domain.Workflow) error {
	sched := wf.Schedule
	if sched == nil || sched.Kind == domain.ScheduleManual {
		// Ручной запуск: планировщику регистрировать нечего
		return nil
	}

	s.Unregister(wf.ID)

	if sched.Kind == domain.ScheduleOnce {
		return s.registerOnce(wf, sched)
	}

	spec, err := CronSpec(sched)
	if err != nil {
		return err
	}

	workflowID := wf.ID
	entryID, err := s.cron.AddFunc(spec, func() {
		s.launch(workflowID, string(sched.Kind))
	})
	if err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	s.mu.Lock()
	s.entries[wf.ID] = entryID
	s.mu.Unlock()

	s.logger.Info("schedule registered",
		telemetry.WithWorkflowID(wf.ID),
		"kind", sched.Kind,
		"spec", spec,
	)
	return nil
}

// registerOnce ставит одноразовый таймер на абсолютный момент.
// Момент в прошлом — ошибка регистрации.
func (s *Scheduler) registerOnce(wf *domain.Workflow, sched *domain.ScheduleConfig) error {
	if sched.At == nil {
		return errors.New("once schedule requires 'at' timestamp")
	}

	delay := time.Until(*sched.At)
	if delay <= 0 {
		return fmt.Errorf("once schedule is in the past: %s", sched.At.Format(time.RFC3339))
	}

	workflowID := wf.ID
	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, workflowID)
		s.mu.Unlock()
		s.launch(workflowID, string(domain.ScheduleOnce))
	})

	s.mu.Lock()
	s.timers[wf.ID] = timer
	s.mu.Unlock()

	s.logger.Info("one-shot schedule registered",
		telemetry.WithWorkflowID(wf.ID),
		"at", sched.At.Format(time.RFC3339),
	)
	return nil
}

// Unregister снимает расписание workflow.
func (s *Scheduler) Unregister(workflowID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[workflowID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, workflowID)
	}
	if timer, ok := s.timers[workflowID]; ok {
		timer.Stop()
		delete(s.timers, workflowID)
	}
}

// Registered возвращает количество зарегистрированных расписаний.
func (s *Scheduler) Registered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) + len(s.timers)
}

// launch — тело cron-job: загрузка workflow и запуск выполнения.
// Занятый или деактивированный workflow — пропуск тика с записью
// в журнал, без повторов.
func (s *Scheduler) launch(workflowID uuid.UUID, kind string) {
	ctx := context.Background()

	wf, err := s.source.GetByID(ctx, workflowID)
	if err != nil {
		s.logger.Error("workflow not found for schedule",
			telemetry.WithWorkflowID(workflowID),
			"error", err,
		)
		return
	}
	if !wf.IsActive {
		s.logger.Warn("schedule fired for inactive workflow, skipping",
			telemetry.WithWorkflowID(workflowID),
		)
		return
	}

	payload := map[string]any{
		"scheduled": true,
		"kind":      kind,
	}

	execID, err := s.launcher.Execute(ctx, wf, payload, SourceSchedule)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowBusy) {
			s.logger.Warn("schedule tick while workflow busy, skipping",
				telemetry.WithWorkflowID(workflowID),
			)
			return
		}
		s.logger.Error("failed to start scheduled execution",
			telemetry.WithWorkflowID(workflowID),
			"error", err,
		)
		return
	}

	s.logger.Info("scheduled execution started",
		telemetry.WithWorkflowID(workflowID),
		telemetry.WithExecutionID(execID),
		"kind", kind,
	)
}

// CronSpec переводит ScheduleConfig в cron-выражение.
// Часовой пояс daily/weekly кодируется префиксом CRON_TZ.
func CronSpec(sched *domain.ScheduleConfig) (string, error) {
	switch sched.Kind {
	case domain.ScheduleDaily:
		hour, minute, err := splitClock(sched.Time)
		if err != nil {
			return "", err
		}
		return withTimezone(fmt.Sprintf("%d %d * * *", minute, hour), sched.Timezone), nil

	case domain.ScheduleWeekly:
		hour, minute, err := splitClock(sched.Time)
		if err != nil {
			return "", err
		}
		if len(sched.Weekdays) == 0 {
			return "", errors.New("weekly schedule requires weekdays")
		}
		days := make([]string, 0, len(sched.Weekdays))
		for _, d := range sched.Weekdays {
			if d < 0 || d > 6 {
				return "", fmt.Errorf("invalid weekday %d", d)
			}
			days = append(days, fmt.Sprintf("%d", d))
		}
		sort.Strings(days)
		return withTimezone(fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(days, ",")), sched.Timezone), nil

	case domain.ScheduleInterval:
		if sched.IntervalValue <= 0 {
			return "", errors.New("interval schedule requires positive interval_value")
		}
		var unit time.Duration
		switch sched.IntervalUnit {
		case "minutes", "":
			unit = time.Minute
		case "hours":
			unit = time.Hour
		case "days":
			unit = 24 * time.Hour
		default:
			return "", fmt.Errorf("unknown interval unit %q", sched.IntervalUnit)
		}
		return fmt.Sprintf("@every %s", time.Duration(sched.IntervalValue)*unit), nil

	default:
		return "", fmt.Errorf("schedule kind %q has no cron form", sched.Kind)
	}
}

// splitClock разбирает "HH:MM" в часы и минуты.
func splitClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// withTimezone добавляет префикс CRON_TZ, если пояс задан.
func withTimezone(spec, timezone string) string {
	if timezone == "" {
		return spec
	}
	return fmt.Sprintf("CRON_TZ=%s %s", timezone, spec)
}
