package trigger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		name    string
		sched   domain.ScheduleConfig
		want    string
		wantErr bool
	}{
		{
			name:  "daily",
			sched: domain.ScheduleConfig{Kind: domain.ScheduleDaily, Time: "09:15"},
			want:  "15 9 * * *",
		},
		{
			name: "daily с часовым поясом",
			sched: domain.ScheduleConfig{
				Kind: domain.ScheduleDaily, Time: "09:15", Timezone: "Asia/Kolkata",
			},
			want: "CRON_TZ=Asia/Kolkata 15 9 * * *",
		},
		{
			name: "weekly",
			sched: domain.ScheduleConfig{
				Kind: domain.ScheduleWeekly, Time: "10:00", Weekdays: []int{3, 1},
			},
			want: "0 10 * * 1,3",
		},
		{
			name:  "interval в минутах",
			sched: domain.ScheduleConfig{Kind: domain.ScheduleInterval, IntervalValue: 5},
			want:  "@every 5m0s",
		},
		{
			name: "interval в часах",
			sched: domain.ScheduleConfig{
				Kind: domain.ScheduleInterval, IntervalValue: 2, IntervalUnit: "hours",
			},
			want: "@every 2h0m0s",
		},
		{
			name: "interval в днях",
			sched: domain.ScheduleConfig{
				Kind: domain.ScheduleInterval, IntervalValue: 1, IntervalUnit: "days",
			},
			want: "@every 24h0m0s",
		},
		{
			name:    "daily без времени",
			sched:   domain.ScheduleConfig{Kind: domain.ScheduleDaily},
			wantErr: true,
		},
		{
			name:    "weekly без дней",
			sched:   domain.ScheduleConfig{Kind: domain.ScheduleWeekly, Time: "10:00"},
			wantErr: true,
		},
		{
			name: "weekly с кривым днём",
			sched: domain.ScheduleConfig{
				Kind: domain.ScheduleWeekly, Time: "10:00", Weekdays: []int{7},
			},
			wantErr: true,
		},
		{
			name:    "interval без значения",
			sched:   domain.ScheduleConfig{Kind: domain.ScheduleInterval},
			wantErr: true,
		},
		{
			name: "interval с кривой единицей",
			sched: domain.ScheduleConfig{
				Kind: domain.ScheduleInterval, IntervalValue: 1, IntervalUnit: "fortnights",
			},
			wantErr: true,
		},
		{
			name:    "manual не имеет cron-формы",
			sched:   domain.ScheduleConfig{Kind: domain.ScheduleManual},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CronSpec(&tt.sched)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("got %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CronSpec = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeLauncher запоминает запуски.
type fakeLauncher struct {
	calls []launchCall
	err   error
}

type launchCall struct {
	workflowID uuid.UUID
	payload    map[string]any
	source     string
}

func (f *fakeLauncher) Execute(_ context.Context, wf *domain.Workflow, payload map[string]any, source string) (uuid.UUID, error) {
	f.calls = append(f.calls, launchCall{workflowID: wf.ID, payload: payload, source: source})
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return uuid.New(), nil
}

// fakeSource отдаёт один workflow по любому ID.
type fakeSource struct {
	wf *domain.Workflow
}

func (f *fakeSource) GetByID(_ context.Context, _ uuid.UUID) (*domain.Workflow, error) {
	return f.wf, nil
}

func scheduledWorkflow(kind domain.ScheduleKind) *domain.Workflow {
	return &domain.Workflow{
		ID:       uuid.New(),
		Name:     "sched-test",
		IsActive: true,
		Schedule: &domain.ScheduleConfig{Kind: kind, Time: "09:15"},
	}
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Source:   &fakeSource{},
		Launcher: &fakeLauncher{},
		Logger:   discardLogger(),
	})

	wf := scheduledWorkflow(domain.ScheduleDaily)
	if err := s.Register(wf); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.Registered() != 1 {
		t.Errorf("Registered() = %d, want 1", s.Registered())
	}

	// Повторная регистрация заменяет, а не дублирует
	if err := s.Register(wf); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if s.Registered() != 1 {
		t.Errorf("Registered() after re-register = %d, want 1", s.Registered())
	}

	s.Unregister(wf.ID)
	if s.Registered() != 0 {
		t.Errorf("Registered() after unregister = %d, want 0", s.Registered())
	}
}

func TestSchedulerManualRegistersNothing(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Source:   &fakeSource{},
		Launcher: &fakeLauncher{},
		Logger:   discardLogger(),
	})

	wf := scheduledWorkflow(domain.ScheduleManual)
	if err := s.Register(wf); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.Registered() != 0 {
		t.Errorf("Registered() = %d, want 0 for manual", s.Registered())
	}

	// Workflow без расписания тоже легален
	wf.Schedule = nil
	if err := s.Register(wf); err != nil {
		t.Fatalf("register without schedule: %v", err)
	}
}

func TestSchedulerOnce(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Source:   &fakeSource{},
		Launcher: &fakeLauncher{},
		Logger:   discardLogger(),
	})

	past := time.Now().Add(-time.Minute)
	wf := &domain.Workflow{
		ID:       uuid.New(),
		IsActive: true,
		Schedule: &domain.ScheduleConfig{Kind: domain.ScheduleOnce, At: &past},
	}
	if err := s.Register(wf); err == nil {
		t.Error("once schedule in the past must be rejected")
	}

	future := time.Now().Add(time.Hour)
	wf.Schedule.At = &future
	if err := s.Register(wf); err != nil {
		t.Fatalf("register once: %v", err)
	}
	if s.Registered() != 1 {
		t.Errorf("Registered() = %d, want 1", s.Registered())
	}

	s.Stop()
	if s.Registered() != 0 {
		t.Errorf("Registered() after stop = %d, want 0", s.Registered())
	}
}

func TestSchedulerOnceMissingAt(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Source:   &fakeSource{},
		Launcher: &fakeLauncher{},
		Logger:   discardLogger(),
	})

	wf := &domain.Workflow{
		ID:       uuid.New(),
		Schedule: &domain.ScheduleConfig{Kind: domain.ScheduleOnce},
	}
	if err := s.Register(wf); err == nil {
		t.Error("once schedule without 'at' must be rejected")
	}
}
