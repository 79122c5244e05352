package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
)

// Store — хранилище записей о выполнениях.
//
// Реализуется репозиторием (internal/repo, Postgres) и MemoryStore
// для тестов. Движок не знает, куда именно пишутся записи.
type Store interface {
	// CreateExecution сохраняет новую запись execution.
	CreateExecution(ctx context.Context, exec *domain.Execution) error

	// UpdateExecution обновляет статус, журнал и ошибку execution.
	UpdateExecution(ctx context.Context, exec *domain.Execution) error

	// GetExecution возвращает execution по ID.
	// Возвращает ErrExecutionNotFound, если записи нет.
	GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
}

// MemoryStore — потокобезопасное in-memory хранилище executions.
// Используется в тестах и при запуске без базы данных.
type MemoryStore struct {
	mu    sync.RWMutex
	execs map[uuid.UUID]domain.Execution
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		execs: make(map[uuid.UUID]domain.Execution),
	}
}

// CreateExecution сохраняет копию execution.
func (s *MemoryStore) CreateExecution(_ context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[exec.ID] = copyExecution(exec)
	return nil
}

// UpdateExecution заменяет сохранённую запись.
func (s *MemoryStore) UpdateExecution(_ context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.execs[exec.ID]; !ok {
		return ErrExecutionNotFound
	}
	s.execs[exec.ID] = copyExecution(exec)
	return nil
}

// GetExecution возвращает копию записи.
func (s *MemoryStore) GetExecution(_ context.Context, id uuid.UUID) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.execs[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	out := copyExecution(&exec)
	return &out, nil
}

// Count возвращает количество сохранённых записей.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.execs)
}

// copyExecution делает копию с отдельным слайсом журнала,
// чтобы хранилище не делило память с работающим обходом.
func copyExecution(exec *domain.Execution) domain.Execution {
	out := *exec
	out.Logs = make([]domain.LogEntry, len(exec.Logs))
	copy(out.Logs, exec.Logs)
	if exec.Error != nil {
		errCopy := *exec.Error
		out.Error = &errCopy
	}
	return out
}
