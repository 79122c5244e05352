package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Tradeflow/internal/domain"
)

// flushTimeout — таймаут одной фоновой записи в хранилище.
const flushTimeout = 5 * time.Second

// Recorder — асинхронный приёмник журнала одного execution.
//
// Обход никогда не блокируется на записи журнала в хранилище:
// Append копирует запись под мьютексом и будит фоновую горутину,
// которая сбрасывает снимок записи в Store. Порядок записей
// гарантированно совпадает с порядком посещения узлов — записи
// добавляются только из горутины обхода и только в конец.
type Recorder struct {
	store  Store
	logger *slog.Logger

	mu   sync.Mutex
	exec domain.Execution

	dirty  chan struct{}
	closed chan struct{}
	wg     sync.WaitGroup
}

// NewRecorder создаёт Recorder для execution и запускает фоновый сброс.
// Запись в хранилище уже должна существовать (CreateExecution).
func NewRecorder(store Store, exec *domain.Execution, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:  store,
		logger: logger,
		exec:   copyExecution(exec),
		dirty:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.flushLoop()

	return r
}

// Append добавляет запись журнала. Не блокирует.
func (r *Recorder) Append(entry domain.LogEntry) {
	r.mu.Lock()
	r.exec.Logs = append(r.exec.Logs, entry)
	r.mu.Unlock()

	// Будим flushLoop; если сигнал уже стоит — сброс и так случится
	select {
	case r.dirty <- struct{}{}:
	default:
	}
}

// Finalize записывает терминальное состояние execution синхронно
// и останавливает фоновый сброс. Вызывается ровно один раз.
func (r *Recorder) Finalize(ctx context.Context, exec *domain.Execution) error {
	close(r.closed)
	r.wg.Wait()

	r.mu.Lock()
	r.exec = copyExecution(exec)
	final := copyExecution(exec)
	r.mu.Unlock()

	return r.store.UpdateExecution(ctx, &final)
}

// flushLoop сбрасывает снимок записи в хранилище при каждом пробуждении.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.closed:
			return
		case <-r.dirty:
			r.flush()
		}
	}
}

// flush пишет текущий снимок в хранилище. Ошибка не фатальна:
// терминальная запись в Finalize всё равно синхронная.
func (r *Recorder) flush() {
	r.mu.Lock()
	snapshot := copyExecution(&r.exec)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.store.UpdateExecution(ctx, &snapshot); err != nil {
		r.logger.Warn("failed to flush execution log",
			"execution_id", snapshot.ID,
			"error", err,
		)
	}
}
