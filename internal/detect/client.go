package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"proctord/internal/domain"
)

// Client talks the wire contract to the violation ledger. It implements
// both Reporter and Submitter.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type eventPayload struct {
	EventType string `json:"event_type"`
	Details   string `json:"details,omitempty"`
}

// resultPayload is the exact body the results endpoint accepts. The server
// decodes strictly and takes the user from the token, so the identity
// fields of domain.ExamResult must not go on the wire.
type resultPayload struct {
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	TimeTaken      int    `json:"time_taken"`
	Status         string `json:"status"`
}

// Report sends one event and decodes the directive. Any transport or
// envelope failure is returned as an error so the engine can fall back to
// its local ladder.
func (c *Client) Report(ctx context.Context, eventType domain.EventType, details string) (domain.Outcome, error) {
	var out domain.Outcome
	err := c.post(ctx, "/api/events", eventPayload{EventType: string(eventType), Details: details}, &out)
	return out, err
}

// Submit delivers the final result to the scoring endpoint.
func (c *Client) Submit(ctx context.Context, res domain.ExamResult) error {
	payload := resultPayload{
		Score:          res.Score,
		TotalQuestions: res.TotalQuestions,
		TimeTaken:      res.TimeTaken,
		Status:         res.Status,
	}
	return c.post(ctx, "/api/results", payload, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, data any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *string         `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !env.Success {
		msg := "unknown error"
		if env.Error != nil {
			msg = *env.Error
		}
		return errors.New(msg)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}
