package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

// Response is the body served by GET /health.
type Response struct {
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	Version   string   `json:"version"`
	Services  Services `json:"services"`
}

type Services struct {
	Database ServiceStatus  `json:"database"`
	LLM      ServiceStatus  `json:"llm"`
	Snapshot SnapshotStatus `json:"snapshot"`
}

type ServiceStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SnapshotStatus is "cached" with the fetch time of the cached snapshot, or "empty".
type SnapshotStatus struct {
	Status    string `json:"status"`
	FetchedAt string `json:"fetched_at,omitempty"`
}

// Checks are the dependency checks the handler runs. A nil check is skipped.
type Checks struct {
	PingDB            func(ctx context.Context) error
	ModelConfigured   func() bool
	SnapshotFetchedAt func() (time.Time, bool)
	Now               func() time.Time
}

func Handler(checks Checks) gin.HandlerFunc {
	now := checks.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		resp := Response{
			Status:    "ok",
			Timestamp: now().UTC().Format(time.RFC3339),
			Version:   Version,
		}
		statusCode := http.StatusOK

		resp.Services.Database = ServiceStatus{Status: "ok"}
		if checks.PingDB != nil {
			if err := checks.PingDB(ctx); err != nil {
				resp.Services.Database = ServiceStatus{Status: "error", Error: err.Error()}
				resp.Status = "error"
				statusCode = http.StatusServiceUnavailable
			}
		}

		resp.Services.LLM = ServiceStatus{Status: "not_configured"}
		if checks.ModelConfigured != nil && checks.ModelConfigured() {
			resp.Services.LLM.Status = "configured"
		}

		resp.Services.Snapshot = SnapshotStatus{Status: "empty"}
		if checks.SnapshotFetchedAt != nil {
			if at, ok := checks.SnapshotFetchedAt(); ok {
				resp.Services.Snapshot = SnapshotStatus{Status: "cached", FetchedAt: at.UTC().Format(time.RFC3339)}
			}
		}

		c.JSON(statusCode, resp)
	}
}

// Fetch requests the health endpoint at url. When the server answers with a non-200
// status the decoded body is still returned alongside the error.
func Fetch(ctx context.Context, client *http.Client, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error connecting to health endpoint: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error parsing JSON response (status %d): %w", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return &resp, fmt.Errorf("health check failed with status %d", httpResp.StatusCode)
	}
	return &resp, nil
}

// Evaluate splits the problems in a response into failures and warnings.
func (r *Response) Evaluate() (failures, warnings []string) {
	if r.Status != "ok" {
		failures = append(failures, fmt.Sprintf("health status is not 'ok': %s", r.Status))
	}
	if r.Services.Database.Status != "ok" {
		msg := fmt.Sprintf("database status is not 'ok': %s", r.Services.Database.Status)
		if r.Services.Database.Error != "" {
			msg += " (" + r.Services.Database.Error + ")"
		}
		failures = append(failures, msg)
	}
	if r.Services.LLM.Status != "configured" {
		warnings = append(warnings, fmt.Sprintf("assistant model is not configured: %s", r.Services.LLM.Status))
	}
	return failures, warnings
}
