package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func jsonBody(t *testing.T, body map[string]any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

func decodeWorkflow(t *testing.T, resp *http.Response) WorkflowResponse {
	t.Helper()
	var body struct {
		Data WorkflowResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body.Data
}

func TestCreateWorkflow(t *testing.T) {
	store := newFakeWorkflowStore()
	server := testServer(store, &fakeEngine{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/workflows", map[string]any{
		"name": "breakout",
		"nodes": []any{
			map[string]any{"id": "start", "type": "start"},
			map[string]any{"id": "log", "type": "log"},
		},
		"edges": []any{
			map[string]any{"from": "start", "to": "log"},
		},
		"price_alerts": []any{
			map[string]any{"node_id": "start", "symbol": "NIFTY", "condition": "greater_than", "target": 100.0},
		},
	})

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	created := decodeWorkflow(t, resp)
	if created.Name != "breakout" {
		t.Errorf("name = %s", created.Name)
	}
	// Создаётся неактивным независимо от запроса
	if created.IsActive {
		t.Error("workflow created active")
	}
	// Алерты привязаны к workflow сервером
	if len(created.PriceAlerts) != 1 || created.PriceAlerts[0].WorkflowID != created.ID {
		t.Errorf("alerts not bound: %+v", created.PriceAlerts)
	}
}

func TestCreateWorkflowRejectsInvalidGraph(t *testing.T) {
	server := testServer(newFakeWorkflowStore(), &fakeEngine{})
	defer server.Close()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"без имени", map[string]any{
			"nodes": []any{map[string]any{"id": "start", "type": "start"}},
		}},
		{"без узлов", map[string]any{"name": "empty"}},
		{"без триггера", map[string]any{
			"name":  "no-trigger",
			"nodes": []any{map[string]any{"id": "log", "type": "log"}},
		}},
		{"висячее ребро", map[string]any{
			"name":  "dangling",
			"nodes": []any{map[string]any{"id": "start", "type": "start"}},
			"edges": []any{map[string]any{"from": "start", "to": "ghost"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/v1/workflows", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGetWorkflowMasksSecret(t *testing.T) {
	wf := webhookWorkflow()
	server := testServer(newFakeWorkflowStore(wf), &fakeEngine{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/workflows/" + wf.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	got := decodeWorkflow(t, resp)
	if got.Webhook == nil {
		t.Fatal("webhook config missing from response")
	}
	if got.Webhook.Secret != "" {
		t.Error("webhook secret leaked in API response")
	}
	if got.Webhook.Token != "tok-123" {
		t.Errorf("token = %s", got.Webhook.Token)
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	server := testServer(newFakeWorkflowStore(), &fakeEngine{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/workflows/" + uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestActivateDeactivate(t *testing.T) {
	wf := webhookWorkflow()
	wf.IsActive = false
	store := newFakeWorkflowStore(wf)
	server := testServer(store, &fakeEngine{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/workflows/"+wf.ID.String()+"/activate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d", resp.StatusCode)
	}
	if !store.workflows[wf.ID].IsActive {
		t.Error("workflow not active after activate")
	}

	// Повторная активация — ошибка состояния
	resp = postJSON(t, server.URL+"/api/v1/workflows/"+wf.ID.String()+"/activate", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("double activate status = %d, want 422", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/api/v1/workflows/"+wf.ID.String()+"/deactivate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate status = %d", resp.StatusCode)
	}
	if store.workflows[wf.ID].IsActive {
		t.Error("workflow still active after deactivate")
	}
}

func TestUpdateActiveWorkflowStructureBlocked(t *testing.T) {
	wf := webhookWorkflow()
	server := testServer(newFakeWorkflowStore(wf), &fakeEngine{})
	defer server.Close()

	// Структурное изменение активного workflow запрещено
	req, err := http.NewRequest(http.MethodPut,
		server.URL+"/api/v1/workflows/"+wf.ID.String(),
		jsonBody(t, map[string]any{
			"nodes": []any{map[string]any{"id": "start", "type": "start"}},
		}))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}

	// Переименование активного workflow легально
	req, err = http.NewRequest(http.MethodPut,
		server.URL+"/api/v1/workflows/"+wf.ID.String(),
		jsonBody(t, map[string]any{"name": "renamed"}))
	if err != nil {
		t.Fatal(err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("rename status = %d, want 200", resp.StatusCode)
	}
}

func TestRunWorkflow(t *testing.T) {
	wf := webhookWorkflow()
	wf.IsActive = false // ручной запуск работает и на неактивном
	eng := &fakeEngine{}
	server := testServer(newFakeWorkflowStore(wf), eng)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/workflows/"+wf.ID.String()+"/run", map[string]any{
		"payload": map[string]any{"note": "manual test"},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	if len(eng.started) != 1 {
		t.Fatalf("started %d executions", len(eng.started))
	}
	if eng.started[0].source != "manual" {
		t.Errorf("source = %s", eng.started[0].source)
	}
	if eng.started[0].payload["note"] != "manual test" {
		t.Errorf("payload = %v", eng.started[0].payload)
	}
}

func TestDeleteWorkflow(t *testing.T) {
	wf := webhookWorkflow()
	store := newFakeWorkflowStore(wf)
	server := testServer(store, &fakeEngine{})
	defer server.Close()

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/workflows/"+wf.ID.String(), nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if len(store.workflows) != 0 {
		t.Error("workflow not deleted")
	}
}
