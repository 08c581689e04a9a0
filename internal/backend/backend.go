// Package backend talks to the suggestion and application logging API.
package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SuggestBulletsPath = "/jobs/suggest-bullets"
	LogApplicationPath = "/jobs/log-application"

	// DefaultTimeout bounds a single backend call at the transport level.
	DefaultTimeout = 60 * time.Second

	userAgent = "spigell/job-copilot"
)

// API names used in error messages.
const (
	APISuggest = "Suggest"
	APILog     = "Log"
)

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

// New creates a client. A zero timeout leaves requests unbounded.
func New(logger *zap.Logger, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}
}

type SuggestionRequest struct {
	ResumeText     string   `json:"resume_text"`
	Proficiencies  []string `json:"proficiencies"`
	JobTitle       string   `json:"job_title"`
	Company        string   `json:"company"`
	JobDescription string   `json:"job_description"`
	MaxBullets     int      `json:"max_bullets"`
}

type LogRequest struct {
	SpreadsheetID    string   `json:"spreadsheet_id"`
	SheetName        string   `json:"sheet_name"`
	URL              string   `json:"url"`
	Company          string   `json:"company"`
	JobTitle         string   `json:"job_title"`
	Status           string   `json:"status"`
	SuggestedBullets []string `json:"suggested_bullets"`
}

// SuggestBullets asks the backend for tailored resume bullets.
// The response body is returned untouched.
func (c *Client) SuggestBullets(ctx context.Context, baseURL string, req *SuggestionRequest) (json.RawMessage, error) {
	return c.postJSON(ctx, APISuggest, endpoint(baseURL, SuggestBulletsPath), req)
}

// LogApplication appends an application row through the backend.
func (c *Client) LogApplication(ctx context.Context, baseURL string, req *LogRequest) (json.RawMessage, error) {
	return c.postJSON(ctx, APILog, endpoint(baseURL, LogApplicationPath), req)
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
}
