// Package locks реализует взаимное исключение выполнений на уровне workflow.
//
// Гарантия: в любой момент времени на один workflow приходится не более
// одного выполнения в статусе RUNNING. Второй триггер, пришедший во время
// выполнения, отклоняется сразу — без постановки в очередь.
package locks

import (
	"sync"

	"github.com/google/uuid"
)

// Manager — таблица блокировок по workflow.
//
// Обработчики никогда не трогают таблицу напрямую: захват возвращает
// функцию освобождения, которую вызывающий обязан выполнить на каждом
// пути выхода (включая ошибочные). Повторный вызов release безопасен.
type Manager struct {
	mu     sync.Mutex
	locked map[uuid.UUID]bool
}

// NewManager создаёт пустую таблицу блокировок.
func NewManager() *Manager {
	return &Manager{
		locked: make(map[uuid.UUID]bool),
	}
}

// TryAcquire пытается захватить блокировку workflow.
//
// Возвращает функцию освобождения при успехе и false, если workflow
// уже выполняется. Ожидания нет: отказ мгновенный.
func (m *Manager) TryAcquire(workflowID uuid.UUID) (release func(), ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked[workflowID] {
		return nil, false
	}

	m.locked[workflowID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.locked, workflowID)
			m.mu.Unlock()
		})
	}, true
}

// IsLocked проверяет, захвачена ли блокировка workflow.
func (m *Manager) IsLocked(workflowID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked[workflowID]
}

// Active возвращает количество захваченных блокировок.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locked)
}
