package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/adreel/composer/internal/composition"
)

// ---------------------------------------------------------------------------
// External renderer client.
// Follows a deferred request pattern: submit a Composition Plan → poll by
// render_id until the encoder finishes → return the output handle. The
// engine never touches the encoded bytes; it only hands the URL on.
// ---------------------------------------------------------------------------

const (
	pollInitialDelay  = 5 * time.Second
	pollMinInterval   = 2 * time.Second
	pollMaxInterval   = 15 * time.Second
	pollBackoffFactor = 1.5
	maxPollDuration   = 10 * time.Minute
	requestTimeout    = 30 * time.Second // per HTTP call, not the full poll cycle
)

// Result is the renderer's output handle for a finished encode.
type Result struct {
	URL             string
	DurationSeconds float64
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// submitResponse is the body of POST /v1/renders.
type submitResponse struct {
	RenderID string `json:"render_id"`
}

// renderStatus is the body of GET /v1/renders/{id}.
//
// States: "queued" / "encoding" (pending), "done" (output present),
// "failed" (error present).
type renderStatus struct {
	Status          string  `json:"status"`
	OutputURL       string  `json:"output_url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Render submits the plan and polls until the encode completes.
func (c *Client) Render(ctx context.Context, plan *composition.Plan) (*Result, error) {
	renderID, err := c.submit(ctx, plan)
	if err != nil {
		return nil, err
	}

	log.Printf("[Renderer] render %s submitted (%d clips, %gs), polling...", renderID, len(plan.Clips), plan.TotalDuration())
	return c.poll(ctx, renderID)
}

func (c *Client) submit(ctx context.Context, plan *composition.Plan) (string, error) {
	body, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/renders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("render submission failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("failed to parse render submission response: %w", err)
	}
	if submitted.RenderID == "" {
		return "", fmt.Errorf("renderer returned no render_id")
	}

	return submitted.RenderID, nil
}

func (c *Client) poll(ctx context.Context, renderID string) (*Result, error) {
	deadline := time.Now().Add(maxPollDuration)
	interval := pollMinInterval

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("render cancelled: %w", ctx.Err())
	case <-time.After(pollInitialDelay):
	}

	for {
		status, err := c.getStatus(ctx, renderID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case "done":
			if status.OutputURL == "" {
				return nil, fmt.Errorf("render %s finished without an output URL", renderID)
			}
			return &Result{URL: status.OutputURL, DurationSeconds: status.DurationSeconds}, nil
		case "failed":
			return nil, fmt.Errorf("render %s failed: %s", renderID, status.Error)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("render %s timed out after %v", renderID, maxPollDuration)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("render cancelled: %w", ctx.Err())
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * pollBackoffFactor)
		if interval > pollMaxInterval {
			interval = pollMaxInterval
		}
	}
}

func (c *Client) getStatus(ctx context.Context, renderID string) (*renderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/renders/"+renderID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll render status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("render status failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var status renderStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to parse render status: %w", err)
	}

	return &status, nil
}
