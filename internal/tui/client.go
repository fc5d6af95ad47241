package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rewindhq/rewind/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests. Run requests
// get a much longer window since a replay can take minutes.
const (
	DefaultClientTimeout = 10 * time.Second
	runTimeout           = 10 * time.Minute
)

// Client wraps HTTP calls to the Rewind API
type Client struct {
	baseURL    string
	httpClient *http.Client
	runClient  *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
		runClient:  &http.Client{Timeout: runTimeout},
	}
}

// ListTasks fetches all tasks from the API
func (c *Client) ListTasks() ([]models.Task, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/tasks")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var tasks []models.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task
func (c *Client) GetTask(id string) (*models.Task, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/tasks/" + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var task models.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTaskLogs fetches run logs for a task
func (c *Client) GetTaskLogs(taskID string, limit int) ([]models.LogEntry, error) {
	url := fmt.Sprintf("%s/tasks/%s/logs?limit=%d", c.baseURL, taskID, limit)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []models.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RunTask replays a task synchronously and returns the outcome
func (c *Client) RunTask(taskID string) (*models.RunOutcome, error) {
	resp, err := c.runClient.Post(c.baseURL+"/tasks/"+taskID+"/run", "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var outcome models.RunOutcome
	if err := json.Unmarshal(body, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// DeleteTask removes a task
func (c *Client) DeleteTask(taskID string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(body))
	}
	return nil
}

// UpdateTask applies a partial update and returns the updated task
func (c *Client) UpdateTask(taskID string, update map[string]interface{}) (*models.Task, error) {
	jsonData, err := json.Marshal(update)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPatch, c.baseURL+"/tasks/"+taskID, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var task models.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CheckHealth checks if the daemon is healthy
func (c *Client) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
