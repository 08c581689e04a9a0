package backend

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   map[string]any
}

func newBackend(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.method = r.Method
			captured.path = r.URL.Path
			captured.header = r.Header.Clone()
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, &captured.body); err != nil {
				t.Errorf("request body is not json: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestSuggestBulletsSendsWireContract(t *testing.T) {
	var captured capturedRequest
	srv := newBackend(t, http.StatusOK, `{"foo":1}`, &captured)

	client := New(zap.NewNop(), time.Second)
	result, err := client.SuggestBullets(context.Background(), srv.URL, &SuggestionRequest{
		ResumeText:     "R",
		Proficiencies:  []string{"a", "b"},
		JobTitle:       "Eng",
		Company:        "Acme",
		JobDescription: "desc",
		MaxBullets:     8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(result) != `{"foo":1}` {
		t.Fatalf("expected body to round-trip, got %s", result)
	}

	if captured.method != http.MethodPost || captured.path != SuggestBulletsPath {
		t.Fatalf("unexpected request %s %s", captured.method, captured.path)
	}

	if got := captured.header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}

	expected := map[string]any{
		"resume_text":     "R",
		"proficiencies":   []any{"a", "b"},
		"job_title":       "Eng",
		"company":         "Acme",
		"job_description": "desc",
		"max_bullets":     float64(8),
	}
	assertBody(t, expected, captured.body)
}

func TestLogApplicationSendsWireContract(t *testing.T) {
	var captured capturedRequest
	srv := newBackend(t, http.StatusOK, `{"status":"ok"}`, &captured)

	client := New(nil, 0)
	_, err := client.LogApplication(context.Background(), srv.URL+"/", &LogRequest{
		SpreadsheetID:    "sheet-id",
		SheetName:        "Applications",
		URL:              "https://jobs.example.com/1",
		Company:          "Acme",
		JobTitle:         "Eng",
		Status:           "Applied",
		SuggestedBullets: []string{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.path != LogApplicationPath {
		t.Fatalf("trailing slash in base url must be ignored, got path %q", captured.path)
	}

	expected := map[string]any{
		"spreadsheet_id":    "sheet-id",
		"sheet_name":        "Applications",
		"url":               "https://jobs.example.com/1",
		"company":           "Acme",
		"job_title":         "Eng",
		"status":            "Applied",
		"suggested_bullets": []any{},
	}
	assertBody(t, expected, captured.body)
}

func TestNonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(c *Client, url string) error
		expect string
		// encoding and body override the default json error response.
		encoding string
		body     string
	}{
		{
			name:   "suggest server error",
			status: http.StatusInternalServerError,
			call: func(c *Client, url string) error {
				_, err := c.SuggestBullets(context.Background(), url, &SuggestionRequest{})
				return err
			},
			expect: "Suggest API failed: 500",
		},
		{
			name:   "suggest redirect status",
			status: http.StatusNotModified,
			call: func(c *Client, url string) error {
				_, err := c.SuggestBullets(context.Background(), url, &SuggestionRequest{})
				return err
			},
			expect: "Suggest API failed: 304",
		},
		{
			name:   "suggest bad gateway with broken gzip body",
			status: http.StatusBadGateway,
			call: func(c *Client, url string) error {
				_, err := c.SuggestBullets(context.Background(), url, &SuggestionRequest{})
				return err
			},
			expect:   "Suggest API failed: 502",
			encoding: "gzip",
			body:     "<html>bad gateway</html>",
		},
		{
			name:   "log validation error",
			status: http.StatusUnprocessableEntity,
			call: func(c *Client, url string) error {
				_, err := c.LogApplication(context.Background(), url, &LogRequest{})
				return err
			},
			expect: "Log API failed: 422",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == "" {
				body = `{"detail":"nope"}`
			}

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, body)
			}))
			t.Cleanup(srv.Close)

			err := tt.call(New(zap.NewNop(), time.Second), srv.URL)
			if err == nil {
				t.Fatalf("expected error")
			}

			var backendErr *BackendError
			if !errors.As(err, &backendErr) {
				t.Fatalf("expected BackendError, got %T", err)
			}

			if backendErr.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, backendErr.StatusCode)
			}

			if err.Error() != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, err.Error())
			}
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := newBackend(t, http.StatusOK, `<html>oops</html>`, nil)

	_, err := New(zap.NewNop(), time.Second).SuggestBullets(context.Background(), srv.URL, &SuggestionRequest{})

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %T (%v)", err, err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(zap.NewNop(), time.Second).LogApplication(context.Background(), url, &LogRequest{})

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %T (%v)", err, err)
	}

	if transport.Error() != transport.Err.Error() {
		t.Fatalf("transport error must surface the underlying message")
	}
}

func TestGzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip to be accepted")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, `{"tailored_resume":{"experience_highlights":["a"]}}`)
		_ = gz.Close()
	}))
	defer srv.Close()

	result, err := New(zap.NewNop(), time.Second).SuggestBullets(context.Background(), srv.URL, &SuggestionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(result) != `{"tailored_resume":{"experience_highlights":["a"]}}` {
		t.Fatalf("unexpected result: %s", result)
	}
}

func assertBody(t *testing.T, expected, got map[string]any) {
	t.Helper()

	want, _ := json.Marshal(expected)
	have, _ := json.Marshal(got)
	if string(want) != string(have) {
		t.Fatalf("unexpected request body:\nwant %s\ngot  %s", want, have)
	}
}
