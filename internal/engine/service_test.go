package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/locks"
)

// gateExecutor блокирует выполнение узлов до закрытия proceed.
type gateExecutor struct {
	proceed chan struct{}
}

func (g *gateExecutor) Execute(ctx context.Context, node *domain.Node, _ *Context) (*NodeResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.proceed:
		return &NodeResult{}, nil
	}
}

func newService(executor NodeExecutor) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(Config{
		Store:    store,
		Executor: executor,
		Locks:    locks.NewManager(),
	})
	return svc, store
}

func simpleWorkflow() *domain.Workflow {
	return wf(
		[]domain.Node{
			{ID: "start", Type: domain.NodeStart},
			{ID: "log", Type: domain.NodeLog},
		},
		[]domain.Edge{{From: "start", To: "log"}},
	)
}

func TestServiceMutualExclusion(t *testing.T) {
	executor := &gateExecutor{proceed: make(chan struct{})}
	svc, _ := newService(executor)
	w := simpleWorkflow()

	first, err := svc.Execute(context.Background(), w, nil, "manual")
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}

	// Workflow занят: второй триггер отбрасывается без очереди
	if _, err := svc.Execute(context.Background(), w, nil, "webhook"); !errors.Is(err, ErrWorkflowBusy) {
		t.Fatalf("got %v, want ErrWorkflowBusy", err)
	}

	close(executor.proceed)
	svc.Wait()

	// После завершения блокировка свободна
	second, err := svc.Execute(context.Background(), w, nil, "manual")
	if err != nil {
		t.Fatalf("execute after release: %v", err)
	}
	if second == first {
		t.Error("second execution reused first execution ID")
	}
	svc.Wait()
}

func TestServiceCompleted(t *testing.T) {
	executor := newStubExecutor()
	svc, store := newService(executor)
	w := simpleWorkflow()

	id, err := svc.Execute(context.Background(), w, map[string]any{"k": "v"}, "schedule")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	svc.Wait()

	exec, err := store.GetExecution(context.Background(), id)
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	if exec.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", exec.Status)
	}
	if exec.TriggerSource != "schedule" {
		t.Errorf("trigger source = %s", exec.TriggerSource)
	}
	if exec.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
	if len(exec.Logs) != 2 {
		t.Errorf("logs = %d entries, want 2", len(exec.Logs))
	}
	if exec.Error != nil {
		t.Errorf("unexpected error: %v", exec.Error)
	}
}

func TestServiceFailed(t *testing.T) {
	executor := newStubExecutor()
	executor.fail["log"] = errors.New("broker down")
	svc, store := newService(executor)

	id, err := svc.Execute(context.Background(), simpleWorkflow(), nil, "manual")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	svc.Wait()

	exec, err := store.GetExecution(context.Background(), id)
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	if exec.Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", exec.Status)
	}
	if exec.Error == nil || exec.Error.NodeID != "log" {
		t.Errorf("error = %+v, want node log", exec.Error)
	}
}

func TestServiceCancel(t *testing.T) {
	executor := &gateExecutor{proceed: make(chan struct{})}
	svc, store := newService(executor)

	id, err := svc.Execute(context.Background(), simpleWorkflow(), nil, "manual")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if err := svc.Cancel(context.Background(), id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	svc.Wait()

	exec, err := store.GetExecution(context.Background(), id)
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	if exec.Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", exec.Status)
	}

	// Повторная отмена завершённого — ошибка
	if err := svc.Cancel(context.Background(), id); err == nil {
		t.Error("cancel of finished execution must fail")
	}
}

func TestServiceCancelUnknown(t *testing.T) {
	svc, _ := newService(newStubExecutor())

	err := svc.Cancel(context.Background(), uuid.New())
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Fatalf("got %v, want ErrExecutionNotFound", err)
	}
}

func TestRecorderOrder(t *testing.T) {
	store := NewMemoryStore()
	exec := newExecution(uuid.New())
	if err := store.CreateExecution(context.Background(), exec); err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(store, exec, nil)
	for _, id := range []string{"a", "b", "c"} {
		entry := domain.LogEntry{NodeID: id, Timestamp: time.Now()}
		exec.AppendLog(entry)
		rec.Append(entry)
	}

	exec.MarkCompleted()
	if err := rec.Finalize(context.Background(), exec); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	stored, err := store.GetExecution(context.Background(), exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Logs) != 3 {
		t.Fatalf("stored %d entries, want 3", len(stored.Logs))
	}
	for i, id := range []string{"a", "b", "c"} {
		if stored.Logs[i].NodeID != id {
			t.Errorf("log[%d] = %s, want %s", i, stored.Logs[i].NodeID, id)
		}
	}
	if stored.Status != domain.StatusCompleted {
		t.Errorf("status = %s", stored.Status)
	}
}
