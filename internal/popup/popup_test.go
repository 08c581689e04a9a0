package popup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/backend"
	"github.com/spigell/job-copilot/internal/messaging"
	"github.com/spigell/job-copilot/internal/orchestrator"
	"github.com/spigell/job-copilot/internal/page"
	"github.com/spigell/job-copilot/internal/session"
	"github.com/spigell/job-copilot/internal/settings"
)

const jobHTML = `<html><head><meta property="og:site_name" content="Acme"></head>
<body><h1>Go Engineer</h1><h2>Job Description</h2><p>Build things.</p><h2>Qualifications</h2><p>Go</p></body></html>`

type staticPages map[string]string

func (s staticPages) Fetch(_ context.Context, target string) (string, error) {
	html, ok := s[target]
	if !ok {
		return "", errors.New("not found")
	}
	return html, nil
}

type fakeBackend struct {
	suggestStatus int
	suggestBody   string
	logStatus     int
	logged        map[string]any
	calls         []string
}

func (f *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls = append(f.calls, r.URL.Path)
		switch r.URL.Path {
		case backend.SuggestBulletsPath:
			w.WriteHeader(f.suggestStatus)
			_, _ = io.WriteString(w, f.suggestBody)
		case backend.LogApplicationPath:
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &f.logged)
			w.WriteHeader(f.logStatus)
			_, _ = io.WriteString(w, `{"status":"ok"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newPopup(t *testing.T, baseURL string, pages staticPages) (*Popup, *session.Store) {
	t.Helper()

	store := settings.NewMemoryStore(settings.Defaults())
	require.NoError(t, store.Set(context.Background(), map[string]string{
		settings.KeyAPIBaseURL:    baseURL,
		settings.KeySpreadsheetID: "sheet-id",
		settings.KeyResumeText:    "resume",
	}))

	o := orchestrator.New(store, backend.New(zap.NewNop(), time.Second), zap.NewNop())
	bus := messaging.NewBus(o, zap.NewNop())
	sessions := session.NewStore(filepath.Join(t.TempDir(), "session.json"))

	p := New(pages, page.NewExtractor(), bus, sessions, zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }

	return p, sessions
}

func TestScanAndLog(t *testing.T) {
	fb := &fakeBackend{
		suggestStatus: http.StatusOK,
		suggestBody:   `{"status":"ok","tailored_resume":{"experience_highlights":["one","two","three","four","five","six"]}}`,
		logStatus:     http.StatusOK,
	}
	srv := fb.server(t)
	p, sessions := newPopup(t, srv.URL, staticPages{"https://jobs.example.com/1": jobHTML})

	scan, err := p.Scan(context.Background(), "https://jobs.example.com/1")
	require.NoError(t, err)

	assert.Equal(t, "Go Engineer", scan.JobContext.JobTitle)
	assert.Equal(t, "Acme", scan.JobContext.Company)
	assert.Len(t, scan.SuggestedBullets, 6)
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, Top(scan.SuggestedBullets, TopSuggestions))

	stored, err := sessions.Load()
	require.NoError(t, err)
	assert.Equal(t, scan, stored)

	logged, result, err := p.Log(context.Background(), "Applied")
	require.NoError(t, err)
	assert.Equal(t, scan.JobContext.URL, logged.JobContext.URL)
	assert.JSONEq(t, `{"status":"ok"}`, string(result))

	assert.Equal(t, "https://jobs.example.com/1", fb.logged["url"])
	assert.Equal(t, "Acme", fb.logged["company"])
	assert.Equal(t, "Go Engineer", fb.logged["job_title"])
	assert.Equal(t, "Applied", fb.logged["status"])
	assert.Equal(t, "sheet-id", fb.logged["spreadsheet_id"])
	assert.Len(t, fb.logged["suggested_bullets"], 6)

	assert.Equal(t, []string{backend.SuggestBulletsPath, backend.LogApplicationPath}, fb.calls)
}

func TestScanNotAJobPage(t *testing.T) {
	fb := &fakeBackend{}
	srv := fb.server(t)
	p, _ := newPopup(t, srv.URL, staticPages{"https://blog.example.com": "<html><body>Hello</body></html>"})

	_, err := p.Scan(context.Background(), "https://blog.example.com")
	assert.ErrorIs(t, err, ErrNoJobContext)
	assert.Empty(t, fb.calls)
}

func TestScanSuggestionFailure(t *testing.T) {
	fb := &fakeBackend{suggestStatus: http.StatusBadGateway}
	srv := fb.server(t)
	p, sessions := newPopup(t, srv.URL, staticPages{"https://jobs.example.com/1": jobHTML})

	_, err := p.Scan(context.Background(), "https://jobs.example.com/1")

	var suggestionErr *SuggestionError
	require.ErrorAs(t, err, &suggestionErr)
	assert.Equal(t, "Suggest API failed: 502", suggestionErr.Message)
	assert.Equal(t, "suggestion error: Suggest API failed: 502", err.Error())

	_, err = sessions.Load()
	assert.ErrorIs(t, err, session.ErrNoScan, "failed scans are not remembered")
}

func TestScanToleratesUnexpectedResult(t *testing.T) {
	fb := &fakeBackend{suggestStatus: http.StatusOK, suggestBody: `{"tailored_resume":"not an object"}`}
	srv := fb.server(t)
	p, _ := newPopup(t, srv.URL, staticPages{"https://jobs.example.com/1": jobHTML})

	scan, err := p.Scan(context.Background(), "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.Empty(t, scan.SuggestedBullets)
}

func TestLogWithoutScan(t *testing.T) {
	fb := &fakeBackend{}
	srv := fb.server(t)
	p, _ := newPopup(t, srv.URL, nil)

	_, _, err := p.Log(context.Background(), "Applied")
	assert.ErrorIs(t, err, ErrNoScan)

	_, err = p.LatestScan()
	assert.ErrorIs(t, err, ErrNoScan)
}

func TestLogFailure(t *testing.T) {
	fb := &fakeBackend{
		suggestStatus: http.StatusOK,
		suggestBody:   `{}`,
		logStatus:     http.StatusInternalServerError,
	}
	srv := fb.server(t)
	p, _ := newPopup(t, srv.URL, staticPages{"https://jobs.example.com/1": jobHTML})

	_, err := p.Scan(context.Background(), "https://jobs.example.com/1")
	require.NoError(t, err)

	_, _, err = p.Log(context.Background(), "")
	assert.EqualError(t, err, "log error: Log API failed: 500")
	assert.Equal(t, "Applied", fb.logged["status"], "empty status falls back to the default")
	assert.Equal(t, []any{}, fb.logged["suggested_bullets"])
}

func TestHighlights(t *testing.T) {
	tests := []struct {
		name    string
		result  string
		expect  []string
		wantErr bool
	}{
		{name: "empty", result: "", expect: []string{}},
		{name: "missing tailored resume", result: `{"status":"ok"}`, expect: []string{}},
		{name: "missing highlights", result: `{"tailored_resume":{}}`, expect: []string{}},
		{name: "highlights", result: `{"tailored_resume":{"experience_highlights":["a","b"]}}`, expect: []string{"a", "b"}},
		{name: "weakly typed", result: `{"tailored_resume":{"experience_highlights":[1,"b"]}}`, expect: []string{"1", "b"}},
		{
			name:   "mixed items",
			result: `{"tailored_resume":{"experience_highlights":["a",{"text":"b"},null,true,2.5,["c"]]}}`,
			expect: []string{"a", `{"text":"b"}`, "true", "2.5", `["c"]`},
		},
		{name: "array body", result: `[1,2]`, expect: []string{}},
		{name: "wrong shape", result: `{"tailored_resume":"x"}`, expect: []string{}, wantErr: true},
		{name: "invalid json", result: `{`, expect: []string{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Highlights(json.RawMessage(tt.result))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestTop(t *testing.T) {
	assert.Equal(t, []string{"a"}, Top([]string{"a"}, 5))
	assert.Equal(t, []string{"a", "b"}, Top([]string{"a", "b", "c"}, 2))
	assert.Empty(t, Top([]string{"a"}, -1))
}

func TestForgetAfterLog(t *testing.T) {
	fb := &fakeBackend{
		suggestStatus: http.StatusOK,
		suggestBody:   `{"tailored_resume":{"experience_highlights":["one"]}}`,
		logStatus:     http.StatusOK,
	}
	srv := fb.server(t)
	p, _ := newPopup(t, srv.URL, staticPages{"https://jobs.example.com/1": jobHTML})

	_, err := p.Scan(context.Background(), "https://jobs.example.com/1")
	require.NoError(t, err)

	_, _, err = p.Log(context.Background(), "Applied")
	require.NoError(t, err)

	require.NoError(t, p.Forget())
	require.NoError(t, p.Forget(), "forgetting twice is fine")

	_, err = p.LatestScan()
	assert.ErrorIs(t, err, ErrNoScan)

	_, _, err = p.Log(context.Background(), "Applied")
	assert.ErrorIs(t, err, ErrNoScan)
	assert.Equal(t, []string{backend.SuggestBulletsPath, backend.LogApplicationPath}, fb.calls)
}
