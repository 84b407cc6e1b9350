package liftbaysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Liftbay HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Elevator represents the API elevator model.
type Elevator struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// Repair represents the API repair model.
type Repair struct {
	ID          string   `json:"id"`
	ElevatorID  string   `json:"elevator_id"`
	ClientID    string   `json:"client_id"`
	MechanicID  *string  `json:"mechanic_id,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	ScheduledAt string   `json:"scheduled_at"`
	Cost        *float64 `json:"cost,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	CompletedAt *string  `json:"completed_at,omitempty"`
}

// Consumable represents a stock item.
type Consumable struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Threshold int     `json:"threshold"`
	UnitPrice float64 `json:"unit_price"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ScheduleRepair books an elevator for a repair.
func (c *Client) ScheduleRepair(ctx context.Context, elevatorID, description, scheduledAt string) (Repair, error) {
	body := map[string]any{
		"elevator_id":  elevatorID,
		"description":  description,
		"scheduled_at": scheduledAt,
	}
	var resp Repair
	err := c.do(ctx, http.MethodPost, "v0/repairs", body, &resp)
	return resp, err
}

// GetRepair fetches one repair.
func (c *Client) GetRepair(ctx context.Context, id string) (Repair, error) {
	var resp Repair
	err := c.do(ctx, http.MethodGet, "v0/repairs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListRepairs lists repairs, optionally filtered by status.
func (c *Client) ListRepairs(ctx context.Context, status string) ([]Repair, error) {
	endpoint := "v0/repairs"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Repair
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ApproveRepair moves a pending repair to Approved.
func (c *Client) ApproveRepair(ctx context.Context, id string) (Repair, error) {
	return c.repairAction(ctx, id, "approve")
}

// ClaimRepair puts a repair in progress under the calling mechanic.
func (c *Client) ClaimRepair(ctx context.Context, id string) (Repair, error) {
	return c.repairAction(ctx, id, "claim")
}

// CancelRepair cancels a pending repair.
func (c *Client) CancelRepair(ctx context.Context, id string) (Repair, error) {
	return c.repairAction(ctx, id, "cancel")
}

// AssignMechanic binds a mechanic to a repair.
func (c *Client) AssignMechanic(ctx context.Context, id, mechanicID string) (Repair, error) {
	body := map[string]any{"mechanic_id": mechanicID}
	var resp Repair
	err := c.do(ctx, http.MethodPost, "v0/repairs/"+url.PathEscape(id)+"/assign", body, &resp)
	return resp, err
}

// CompleteRepair finishes a repair. cost may be nil to use the shop default.
func (c *Client) CompleteRepair(ctx context.Context, id string, cost *float64) (Repair, error) {
	body := map[string]any{}
	if cost != nil {
		body["cost"] = *cost
	}
	var resp Repair
	err := c.do(ctx, http.MethodPost, "v0/repairs/"+url.PathEscape(id)+"/complete", body, &resp)
	return resp, err
}

// RecordUsage appends a parts-used note to an in-progress repair.
func (c *Client) RecordUsage(ctx context.Context, id, note string) (Repair, error) {
	body := map[string]any{"note": note}
	var resp Repair
	err := c.do(ctx, http.MethodPost, "v0/repairs/"+url.PathEscape(id)+"/usage", body, &resp)
	return resp, err
}

// ListElevators lists elevators, optionally filtered by status.
func (c *Client) ListElevators(ctx context.Context, status string) ([]Elevator, error) {
	endpoint := "v0/elevators"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Elevator
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ListLowStock lists consumables at or below their threshold.
func (c *Client) ListLowStock(ctx context.Context) ([]Consumable, error) {
	var resp []Consumable
	err := c.do(ctx, http.MethodGet, "v0/stock/low", nil, &resp)
	return resp, err
}

// Events tails the audit log.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	var resp []Event
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/events?limit=%d", limit), nil, &resp)
	return resp, err
}

func (c *Client) repairAction(ctx context.Context, id, action string) (Repair, error) {
	var resp Repair
	err := c.do(ctx, http.MethodPost, "v0/repairs/"+url.PathEscape(id)+"/"+action, map[string]any{}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
