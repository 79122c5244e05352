package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Tradeflow/internal/domain"
)

// pgUniqueViolation — код ошибки Postgres для конфликта уникальности.
const pgUniqueViolation = "23505"

// WorkflowRepo — репозиторий для работы с workflows.
//
// Граф (nodes, edges) и конфигурации триггеров хранятся JSONB-колонками:
// движок всегда читает и пишет workflow целиком, реляционная разбивка
// графа по узлам ничего бы не дала.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create создаёт новый workflow.
// Конфликт webhook-токена или имени — ErrAlreadyExists.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, edgesJSON, scheduleJSON, webhookJSON, alertsJSON, err := marshalWorkflow(wf)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, name, nodes, edges, is_active, schedule, webhook, price_alerts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nodesJSON,
		edgesJSON,
		wf.IsActive,
		scheduleJSON,
		webhookJSON,
		alertsJSON,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, nodes, edges, is_active, schedule, webhook, price_alerts, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByWebhookToken возвращает workflow по токену webhook.
// Токен лежит внутри JSONB-колонки webhook.
func (r *WorkflowRepo) GetByWebhookToken(ctx context.Context, token string) (*domain.Workflow, error) {
	query := `
		SELECT id, name, nodes, edges, is_active, schedule, webhook, price_alerts, created_at, updated_at
		FROM workflows
		WHERE webhook->>'token' = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, token))
}

// List возвращает все workflows, новые первыми.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, nodes, edges, is_active, schedule, webhook, price_alerts, created_at, updated_at
		FROM workflows
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// ListActive возвращает активные workflows. Используется при старте
// сервера для восстановления расписаний и ценовых алертов.
func (r *WorkflowRepo) ListActive(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, nodes, edges, is_active, schedule, webhook, price_alerts, created_at, updated_at
		FROM workflows
		WHERE is_active = true
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Update обновляет workflow целиком.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, edgesJSON, scheduleJSON, webhookJSON, alertsJSON, err := marshalWorkflow(wf)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflows
		SET name = $2, nodes = $3, edges = $4, is_active = $5,
		    schedule = $6, webhook = $7, price_alerts = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nodesJSON,
		edgesJSON,
		wf.IsActive,
		scheduleJSON,
		webhookJSON,
		alertsJSON,
		time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive переключает флаг активности workflow.
func (r *WorkflowRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE workflows
		SET is_active = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set workflow active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow (каскадно удалит executions).
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM workflows WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanOne читает одну строку workflows в domain.Workflow.
func (r *WorkflowRepo) scanOne(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var nodesJSON, edgesJSON, scheduleJSON, webhookJSON, alertsJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&nodesJSON,
		&edgesJSON,
		&wf.IsActive,
		&scheduleJSON,
		&webhookJSON,
		&alertsJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := json.Unmarshal(nodesJSON, &wf.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &wf.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &wf.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
	}
	if len(webhookJSON) > 0 {
		if err := json.Unmarshal(webhookJSON, &wf.Webhook); err != nil {
			return nil, fmt.Errorf("unmarshal webhook: %w", err)
		}
	}
	if len(alertsJSON) > 0 {
		if err := json.Unmarshal(alertsJSON, &wf.PriceAlerts); err != nil {
			return nil, fmt.Errorf("unmarshal price alerts: %w", err)
		}
	}

	return &wf, nil
}

// marshalWorkflow сериализует JSONB-поля workflow.
// Отсутствующие schedule/webhook пишутся как NULL.
func marshalWorkflow(wf *domain.Workflow) (nodes, edges, schedule, webhook, alerts []byte, err error) {
	nodes, err = json.Marshal(wf.Nodes)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal nodes: %w", err)
	}
	edges, err = json.Marshal(wf.Edges)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal edges: %w", err)
	}
	if wf.Schedule != nil {
		schedule, err = json.Marshal(wf.Schedule)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("marshal schedule: %w", err)
		}
	}
	if wf.Webhook != nil {
		webhook, err = json.Marshal(wf.Webhook)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("marshal webhook: %w", err)
		}
	}
	if len(wf.PriceAlerts) > 0 {
		alerts, err = json.Marshal(wf.PriceAlerts)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("marshal price alerts: %w", err)
		}
	}
	return nodes, edges, schedule, webhook, alerts, nil
}

// isUniqueViolation — ошибка конфликта уникальности Postgres.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
