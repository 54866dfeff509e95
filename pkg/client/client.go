// Package client provides a Go client for the kektorgraph HTTP API.
//
// Clustering runs as an asynchronous task: SubmitCluster returns a Task that
// can be polled with Refresh or Wait until its Report is available.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/sanonone/kektorgraph/pkg/pipeline"
)

// --- Custom Errors ---

// APIError represents an error returned by the API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
	// Fields lists per-field validation failures, when the server sent any.
	Fields []FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrTaskFailed is matched by the error Wait returns for failed tasks.
var ErrTaskFailed = errors.New("task failed")

// --- Request and Response Structs ---

// Edge is one directed edge.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EmbeddingParams overrides the server's node2vec parameters. Zero values
// keep the server defaults.
type EmbeddingParams struct {
	Dimensions int     `json:"dimensions,omitempty"`
	WalkLength int     `json:"walk_length,omitempty"`
	NumWalks   int     `json:"num_walks,omitempty"`
	Window     int     `json:"window,omitempty"`
	P          float64 `json:"p,omitempty"`
	Q          float64 `json:"q,omitempty"`
	Epochs     int     `json:"epochs,omitempty"`
	Seed       *int64  `json:"seed,omitempty"`
}

// ClusterRequest describes a clustering job.
type ClusterRequest struct {
	Edges              []Edge           `json:"edges"`
	K                  int              `json:"k"`
	Seed               *int64           `json:"seed,omitempty"`
	MaxIterations      int              `json:"max_iterations,omitempty"`
	Tolerance          *float64         `json:"tolerance,omitempty"`
	EmptyClusterPolicy string           `json:"empty_cluster_policy,omitempty"`
	Embedding          *EmbeddingParams `json:"embedding,omitempty"`
}

type taskResponse struct {
	TaskID string `json:"task_id"`
}

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields"`
}

// Task represents an asynchronous operation on the server.
type Task struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	ProgressMessage string           `json:"progress_message,omitempty"`
	Error           string           `json:"error,omitempty"`
	Report          *pipeline.Report `json:"report,omitempty"`

	client *Client // Reference to the client for polling.
}

// --- Client ---

// Client is the Go client for the kektorgraph API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for http://host:port. apiKey may be empty.
func New(host string, port int, apiKey string) *Client {
	return NewWithURL(fmt.Sprintf("http://%s:%d", host, port), apiKey)
}

// NewWithURL creates a client for a base URL such as "http://localhost:9191".
func NewWithURL(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// jsonRequest executes a request against the API. It handles JSON
// serialization, HTTP calls, and error management.
func (c *Client) jsonRequest(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal JSON payload")
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "connection error")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Fields: errResp.Fields}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

// Healthz reports whether the server answers its health check.
func (c *Client) Healthz(ctx context.Context) error {
	_, err := c.jsonRequest(ctx, http.MethodGet, "/healthz", nil)
	return err
}

// SubmitCluster starts a clustering job and returns its task.
func (c *Client) SubmitCluster(ctx context.Context, req ClusterRequest) (*Task, error) {
	respBody, err := c.jsonRequest(ctx, http.MethodPost, "/v1/cluster", req)
	if err != nil {
		return nil, err
	}
	var tr taskResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, errors.Wrap(err, "failed to decode task response")
	}
	return &Task{ID: tr.TaskID, Status: "started", client: c}, nil
}

// GetTask retrieves the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	respBody, err := c.jsonRequest(ctx, http.MethodGet, "/v1/tasks/"+taskID, nil)
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(respBody, &task); err != nil {
		return nil, errors.Wrap(err, "failed to decode task")
	}
	task.client = c
	return &task, nil
}

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh(ctx context.Context) error {
	if t.client == nil {
		return errors.New("client is not associated with the task")
	}
	updated, err := t.client.GetTask(ctx, t.ID)
	if err != nil {
		return err
	}
	t.Status = updated.Status
	t.ProgressMessage = updated.ProgressMessage
	t.Error = updated.Error
	t.Report = updated.Report
	return nil
}

// Wait blocks until the task finishes, checking its status at regular
// intervals, or until ctx is done.
func (t *Task) Wait(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for task %s", t.ID)
		case <-ticker.C:
			if err := t.Refresh(ctx); err != nil {
				return err
			}
			switch t.Status {
			case "completed":
				return nil
			case "failed":
				return errors.Wrapf(ErrTaskFailed, "task %s: %s", t.ID, t.Error)
			case "running", "started":
				// Continue waiting.
			default:
				return errors.Newf("unknown task status: %s", t.Status)
			}
		}
	}
}
