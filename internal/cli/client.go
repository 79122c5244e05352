package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Nodes       []map[string]any `json:"nodes"`
	Edges       []map[string]any `json:"edges"`
	IsActive    bool             `json:"is_active"`
	Schedule    map[string]any   `json:"schedule,omitempty"`
	Webhook     map[string]any   `json:"webhook,omitempty"`
	PriceAlerts []map[string]any `json:"price_alerts,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ID            string                `json:"id"`
	WorkflowID    string                `json:"workflow_id"`
	Status        string                `json:"status"`
	TriggerSource string                `json:"trigger_source"`
	StartedAt     string                `json:"started_at"`
	FinishedAt    string                `json:"finished_at,omitempty"`
	Logs          []LogEntry            `json:"logs"`
	Error         *ExecutionErrorDetail `json:"error,omitempty"`
}

// LogEntry — запись журнала выполнения из API.
type LogEntry struct {
	NodeID     string         `json:"node_id"`
	NodeType   string         `json:"node_type"`
	Timestamp  string         `json:"timestamp"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// ExecutionErrorDetail — ошибка выполнения из API.
type ExecutionErrorDetail struct {
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

// ExecutionStartedResponse — ответ на принятый триггер.
type ExecutionStartedResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Tradeflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workflows ---

// ListWorkflows возвращает все workflows.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// CreateWorkflow создаёт workflow из JSON-описания.
func (c *Client) CreateWorkflow(spec json.RawMessage) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.doData(http.MethodPost, "/api/v1/workflows", spec, &wf)
	return &wf, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &wf)
	return &wf, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/workflows/" + id)
}

// ActivateWorkflow активирует workflow.
func (c *Client) ActivateWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows/"+id+"/activate", nil, &wf)
	return &wf, err
}

// DeactivateWorkflow деактивирует workflow.
func (c *Client) DeactivateWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows/"+id+"/deactivate", nil, &wf)
	return &wf, err
}

// RunWorkflow запускает workflow вручную.
func (c *Client) RunWorkflow(id string, payload map[string]any) (*ExecutionStartedResponse, error) {
	body := map[string]any{}
	if len(payload) > 0 {
		body["payload"] = payload
	}
	var started ExecutionStartedResponse
	err := c.post("/api/v1/workflows/"+id+"/run", body, &started)
	return &started, err
}

// ListExecutions возвращает executions одного workflow.
func (c *Client) ListExecutions(workflowID string, limit int) ([]ExecutionResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var execs []ExecutionResponse
	err := c.list("/api/v1/workflows/"+workflowID+"/executions", params, &execs)
	return execs, err
}

// --- Executions ---

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// CancelExecution отменяет идущий execution.
func (c *Client) CancelExecution(id string) error {
	return c.doData(http.MethodPost, "/api/v1/executions/"+id+"/cancel", nil, nil)
}

// --- Webhooks ---

// TriggerWebhook вызывает webhook-триггер.
// Секрет передаётся в теле: auth_type=url проверяется query-параметром.
func (c *Client) TriggerWebhook(token string, payload map[string]any, urlSecret string) (*ExecutionStartedResponse, error) {
	path := "/webhook/" + token
	if urlSecret != "" {
		path += "?secret=" + url.QueryEscape(urlSecret)
	}

	var started ExecutionStartedResponse
	err := c.doData(http.MethodPost, path, payload, &started)
	return &started, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		if raw, ok := body.(json.RawMessage); ok {
			bodyReader = bytes.NewReader(raw)
		} else {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
