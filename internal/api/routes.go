package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("PUT /api/v1/workflows/{id}", chain(http.HandlerFunc(h.UpdateWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{id}", chain(http.HandlerFunc(h.DeleteWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/activate", chain(http.HandlerFunc(h.ActivateWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/deactivate", chain(http.HandlerFunc(h.DeactivateWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/run", chain(http.HandlerFunc(h.RunWorkflow)))

	// Executions
	mux.Handle("GET /api/v1/workflows/{id}/executions", chain(http.HandlerFunc(h.ListWorkflowExecutions)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
	mux.Handle("POST /api/v1/executions/{id}/cancel", chain(http.HandlerFunc(h.CancelExecution)))

	// Webhook-триггеры
	mux.Handle("POST /webhook/{token}", chain(http.HandlerFunc(h.HandleWebhook)))
	mux.Handle("POST /webhook/{token}/{symbol}", chain(http.HandlerFunc(h.HandleWebhook)))

	// Служебные
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}
