package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mediaflow/internal/domain/entity"
)

// Client fetches viewing statistics from the external analytics
// service. The orchestrator treats this collaborator as best-effort:
// any error here degrades the analytics stage, never the job.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Collect(ctx context.Context, jobID string, durationSeconds float64) (*entity.VideoAnalytics, error) {
	url := fmt.Sprintf("%s/v1/media/%s/stats?duration=%s",
		c.baseURL, jobID, strconv.FormatFloat(durationSeconds, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("analytics service returned status %d", resp.StatusCode)
	}

	var stats entity.VideoAnalytics
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode analytics response: %w", err)
	}
	return &stats, nil
}
