package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/locks"
	"github.com/shaiso/Tradeflow/internal/telemetry"
)

// EventPublisher — получатель событий жизненного цикла executions.
// Реализуется mq.Publisher; вызовы fire-and-forget.
type EventPublisher interface {
	ExecutionStarted(ctx context.Context, exec *domain.Execution)
	ExecutionFinished(ctx context.Context, exec *domain.Execution)
}

// Service — публичный фасад движка.
//
// Execute запускает асинхронный обход и сразу возвращает ID execution.
// Взаимное исключение на уровне workflow обеспечивает locks.Manager:
// повторный триггер во время выполнения получает ErrWorkflowBusy.
type Service struct {
	store    Store
	executor NodeExecutor
	locks    *locks.Manager
	events   EventPublisher
	logger   *slog.Logger

	// cancels — функции отмены идущих executions (executionID → cancel).
	cancels   map[uuid.UUID]context.CancelFunc
	cancelsMu sync.Mutex

	wg sync.WaitGroup
}

// Config — конфигурация Service.
type Config struct {
	Store    Store
	Executor NodeExecutor
	Locks    *locks.Manager
	Events   EventPublisher // опционально
	Logger   *slog.Logger
}

// NewService создаёт Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lockMgr := cfg.Locks
	if lockMgr == nil {
		lockMgr = locks.NewManager()
	}

	return &Service{
		store:    cfg.Store,
		executor: cfg.Executor,
		locks:    lockMgr,
		events:   cfg.Events,
		logger:   logger,
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// Execute запускает выполнение workflow.
//
// Синхронная часть: захват блокировки, создание записи execution,
// запуск горутины обхода. Возвращает ID сразу; результат доступен
// через GetExecution. ErrWorkflowBusy — если workflow уже выполняется.
func (s *Service) Execute(ctx context.Context, wf *domain.Workflow, triggerPayload map[string]any, source string) (uuid.UUID, error) {
	release, ok := s.locks.TryAcquire(wf.ID)
	if !ok {
		telemetry.ExecutionsRejected.Inc()
		return uuid.Nil, ErrWorkflowBusy
	}

	exec := &domain.Execution{
		ID:            uuid.New(),
		WorkflowID:    wf.ID,
		Status:        domain.StatusPending,
		TriggerSource: source,
	}
	exec.MarkRunning()

	if err := s.store.CreateExecution(ctx, exec); err != nil {
		release()
		return uuid.Nil, err
	}

	recorder := NewRecorder(s.store, exec, s.logger)
	wctx := NewContext(triggerPayload)

	// Контекст обхода отвязан от контекста вызывающего: webhook-запрос
	// завершается сразу, обход живёт своей жизнью до Cancel или финала.
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancelsMu.Lock()
	s.cancels[exec.ID] = cancel
	s.cancelsMu.Unlock()

	telemetry.ExecutionsStarted.WithLabelValues(source).Inc()
	telemetry.ActiveExecutions.Inc()
	if s.events != nil {
		s.events.ExecutionStarted(ctx, exec)
	}

	s.logger.Info("execution started",
		"execution_id", exec.ID,
		"workflow_id", wf.ID,
		"workflow_name", wf.Name,
		"source", source,
	)

	s.wg.Add(1)
	go s.run(runCtx, wf, exec, wctx, recorder, release, cancel)

	return exec.ID, nil
}

// run — горутина одного выполнения. Блокировка и запись в cancels
// освобождаются на любом пути выхода.
func (s *Service) run(ctx context.Context, wf *domain.Workflow, exec *domain.Execution, wctx *Context, recorder *Recorder, release, cancel context.CancelFunc) {
	defer s.wg.Done()
	defer release()
	defer cancel()
	defer telemetry.ActiveExecutions.Dec()
	defer func() {
		s.cancelsMu.Lock()
		delete(s.cancels, exec.ID)
		s.cancelsMu.Unlock()
	}()

	traversal := NewTraversal(wf, exec, wctx, s.executor, s.logger)
	traversal.OnLog(recorder.Append)

	err := traversal.Run(ctx)

	switch {
	case err == nil:
		exec.MarkCompleted()
	case errors.Is(err, ErrCancelled):
		exec.MarkFailed("", "cancelled")
	default:
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			exec.MarkFailed(nodeErr.NodeID, nodeErr.Err.Error())
		} else {
			exec.MarkFailed("", err.Error())
		}
	}

	// Финальная запись синхронная: после неё статус в хранилище терминальный
	if ferr := recorder.Finalize(context.Background(), exec); ferr != nil {
		s.logger.Error("failed to finalize execution",
			"execution_id", exec.ID,
			"error", ferr,
		)
	}

	telemetry.ExecutionsFinished.WithLabelValues(string(exec.Status)).Inc()
	if s.events != nil {
		s.events.ExecutionFinished(context.Background(), exec)
	}

	s.logger.Info("execution finished",
		"execution_id", exec.ID,
		"workflow_id", wf.ID,
		"status", exec.Status,
		"nodes_executed", len(exec.Logs),
		"duration", exec.Duration(),
	)
}

// GetExecution возвращает execution по ID.
func (s *Service) GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return s.store.GetExecution(ctx, id)
}

// Cancel запрашивает отмену идущего execution.
//
// Отмена срабатывает на границе следующего узла: текущий узел
// не прерывается. Для завершённого execution возвращает ошибку.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	s.cancelsMu.Lock()
	cancel, ok := s.cancels[id]
	s.cancelsMu.Unlock()

	if ok {
		cancel()
		return nil
	}

	exec, err := s.store.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	if exec.IsFinished() {
		return errors.New("execution is already finished")
	}
	return ErrExecutionNotFound
}

// Validate проверяет структуру графа workflow.
// Обёртка для вызывающих, которым не нужен весь пакет engine.
func (s *Service) Validate(wf *domain.Workflow) error {
	return Validate(wf)
}

// Wait блокируется до завершения всех идущих executions.
// Используется при graceful shutdown и в тестах.
func (s *Service) Wait() {
	s.wg.Wait()
}
