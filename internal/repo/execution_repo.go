package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
)

// ExecutionRepo — репозиторий записей о выполнениях.
// Реализует engine.Store: движок пишет сюда журнал через Recorder.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// CreateExecution сохраняет новую запись execution.
func (r *ExecutionRepo) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	logsJSON, errorJSON, err := marshalExecution(exec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, trigger_source, started_at, finished_at, logs, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.WorkflowID,
		exec.Status,
		exec.TriggerSource,
		exec.StartedAt,
		exec.FinishedAt,
		logsJSON,
		errorJSON,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// UpdateExecution обновляет статус, журнал и ошибку execution.
func (r *ExecutionRepo) UpdateExecution(ctx context.Context, exec *domain.Execution) error {
	logsJSON, errorJSON, err := marshalExecution(exec)
	if err != nil {
		return err
	}

	query := `
		UPDATE executions
		SET status = $2, finished_at = $3, logs = $4, error = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Status,
		exec.FinishedAt,
		logsJSON,
		errorJSON,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return engine.ErrExecutionNotFound
	}
	return nil
}

// GetExecution возвращает execution по ID.
func (r *ExecutionRepo) GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, workflow_id, status, trigger_source, started_at, finished_at, logs, error
		FROM executions
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// ListByWorkflow возвращает executions одного workflow, новые первыми.
func (r *ExecutionRepo) ListByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, workflow_id, status, trigger_source, started_at, finished_at, logs, error
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		exec, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

// scanOne читает одну строку executions в domain.Execution.
func (r *ExecutionRepo) scanOne(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var logsJSON, errorJSON []byte

	err := row.Scan(
		&exec.ID,
		&exec.WorkflowID,
		&exec.Status,
		&exec.TriggerSource,
		&exec.StartedAt,
		&exec.FinishedAt,
		&logsJSON,
		&errorJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if len(logsJSON) > 0 {
		if err := json.Unmarshal(logsJSON, &exec.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
	}
	if len(errorJSON) > 0 {
		if err := json.Unmarshal(errorJSON, &exec.Error); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}
	}

	return &exec, nil
}

// marshalExecution сериализует JSONB-поля execution.
func marshalExecution(exec *domain.Execution) (logs, errJSON []byte, err error) {
	logs, err = json.Marshal(exec.Logs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal logs: %w", err)
	}
	if exec.Error != nil {
		errJSON, err = json.Marshal(exec.Error)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal error: %w", err)
		}
	}
	return logs, errJSON, nil
}
