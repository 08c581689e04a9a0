package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/logger"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; job-copilot/1.0)"

	// MinContentLength is the visible text length below which a page is
	// considered client-rendered and worth a browser pass.
	MinContentLength = 500
)

// FetchError describes a failed page retrieval.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Renderer returns the html of a page after client-side rendering.
type Renderer func(ctx context.Context, pageURL string) (string, error)

// Fetcher loads page html from the web or from local files.
type Fetcher struct {
	HTTPClient *http.Client
	UserAgent  string
	// Render is used when plain http yields too little text. Nil disables the fallback.
	Render Renderer
	logger *zap.Logger
}

func NewFetcher(log *zap.Logger) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  DefaultUserAgent,
		logger:     logger.WithFields(log),
	}
}

// Fetch returns the html behind target, which is an http(s) url, a file:// url or a path.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Scheme == "file" {
		path := target
		if err == nil && parsed.Scheme == "file" {
			path = parsed.Path
		}
		return f.readFile(path)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return "", &FetchError{URL: target, Message: "invalid URL"}
	}

	html, err := f.get(ctx, target)
	if err != nil {
		return "", err
	}

	if f.Render == nil {
		return html, nil
	}

	text, err := BodyText(html)
	if err == nil && len(text) >= MinContentLength {
		return html, nil
	}

	f.logger.Info("page content too short, rendering in browser",
		zap.String(logger.FieldURL, target),
		zap.Int("text_length", len(text)),
	)

	rendered, err := f.Render(ctx, target)
	if err != nil {
		f.logger.Warn("browser rendering failed, using http content", zap.String(logger.FieldURL, target), zap.Error(err))
		return html, nil
	}

	return rendered, nil
}

func (f *Fetcher) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &FetchError{URL: path, Message: "failed to read file", Cause: err}
	}

	f.logger.Debug("read page from file", zap.String("path", path), zap.Int("bytes", len(data)))
	return string(data), nil
}

func (f *Fetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &FetchError{URL: target, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	f.logger.Debug("fetching page", zap.String(logger.FieldURL, target))

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: target, Message: "HTTP request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: target, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: target, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		f.logger.Warn("page is not html", zap.String(logger.FieldURL, target), zap.String("content_type", ct))
	}

	return string(body), nil
}
