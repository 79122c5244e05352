package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/Tradeflow/internal/domain"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/repo"
	"github.com/shaiso/Tradeflow/internal/telemetry"
	"github.com/shaiso/Tradeflow/internal/trigger"
)

// Исходы webhook-вызовов в метриках.
const (
	webhookOutcomeAccepted  = "accepted"
	webhookOutcomeAuthError = "auth_error"
	webhookOutcomeNotFound  = "not_found"
	webhookOutcomeBusy      = "busy"
)

// HandleWebhook принимает входящий webhook-триггер.
//
// POST /webhook/{token} и POST /webhook/{token}/{symbol}.
// Неизвестный или выключенный токен и неверный секрет дают одинаковый
// 401 — вызывающий не должен отличать "нет такого" от "не угадал секрет".
// Ни в одном из этих случаев execution не создаётся.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	// Тело читается до проверки секрета: при auth_type=payload
	// секрет лежит внутри JSON
	var payload map[string]any
	if r.Body != nil {
		// Пустое или не-JSON тело — не ошибка, просто нет payload
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	wf, err := h.workflows.GetByWebhookToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			telemetry.WebhookRequests.WithLabelValues(webhookOutcomeAuthError).Inc()
			Unauthorized(w, "invalid webhook token or secret")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	if wf.Webhook == nil || !wf.Webhook.Enabled || !h.webhookSecretOK(r, wf.Webhook, payload) {
		telemetry.WebhookRequests.WithLabelValues(webhookOutcomeAuthError).Inc()
		Unauthorized(w, "invalid webhook token or secret")
		return
	}

	if !wf.IsActive {
		telemetry.WebhookRequests.WithLabelValues(webhookOutcomeNotFound).Inc()
		NotFound(w, "workflow is not active")
		return
	}

	if payload == nil {
		payload = make(map[string]any)
	}
	// Секрет не должен утекать в журнал выполнения
	delete(payload, "secret")
	if symbol := r.PathValue("symbol"); symbol != "" {
		payload["symbol"] = symbol
	}

	execID, err := h.engine.Execute(r.Context(), wf, payload, trigger.SourceWebhook)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowBusy) {
			telemetry.WebhookRequests.WithLabelValues(webhookOutcomeBusy).Inc()
			Conflict(w, "workflow is already running")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	telemetry.WebhookRequests.WithLabelValues(webhookOutcomeAccepted).Inc()
	Accepted(w, ExecutionStartedResponse{
		ExecutionID: execID,
		Status:      string(domain.StatusRunning),
	})
}

// webhookSecretOK сверяет секрет вызова с конфигурацией webhook.
// Сравнение за постоянное время.
func (h *Handler) webhookSecretOK(r *http.Request, cfg *domain.WebhookConfig, payload map[string]any) bool {
	var provided string
	switch cfg.AuthType {
	case domain.WebhookAuthPayload:
		provided, _ = payload["secret"].(string)
	case domain.WebhookAuthURL:
		provided = r.URL.Query().Get("secret")
	default:
		return false
	}

	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Secret)) == 1
}
