// Package popup implements the scan and log actions of the extension popup.
package popup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/messaging"
	"github.com/spigell/job-copilot/internal/orchestrator"
	"github.com/spigell/job-copilot/internal/page"
	"github.com/spigell/job-copilot/internal/session"
)

// TopSuggestions is the number of bullets shown right after a scan.
const TopSuggestions = 5

var (
	ErrNoJobContext = errors.New("no job context detected on this page")
	ErrNoScan       = errors.New("run scan first")
)

// SuggestionError wraps a failure envelope of GENERATE_SUGGESTIONS.
type SuggestionError struct {
	Message string
}

func (e *SuggestionError) Error() string {
	return "suggestion error: " + e.Message
}

// LogError wraps a failure envelope of LOG_APPLICATION.
type LogError struct {
	Message string
}

func (e *LogError) Error() string {
	return "log error: " + e.Message
}

// PageSource loads page html.
type PageSource interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// Sender delivers messages and waits for their envelopes.
type Sender interface {
	Call(ctx context.Context, msg messaging.Message) (messaging.Envelope, error)
}

type Popup struct {
	pages     PageSource
	extractor page.Extractor
	bus       Sender
	sessions  *session.Store
	logger    *zap.Logger
	now       func() time.Time
}

func New(pages PageSource, extractor page.Extractor, bus Sender, sessions *session.Store, log *zap.Logger) *Popup {
	return &Popup{
		pages:     pages,
		extractor: extractor,
		bus:       bus,
		sessions:  sessions,
		logger:    logger.WithFields(log),
		now:       time.Now,
	}
}

// Scan detects the job behind target, requests suggestions and remembers both.
func (p *Popup) Scan(ctx context.Context, target string) (*session.Scan, error) {
	html, err := p.pages.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	jobCtx, ok, err := p.extractor.Detect(target, html)
	if err != nil {
		return nil, fmt.Errorf("extracting job context: %w", err)
	}
	if !ok {
		return nil, ErrNoJobContext
	}

	p.logger.Info("job page detected",
		zap.String(logger.FieldURL, jobCtx.URL),
		zap.String("job_title", jobCtx.JobTitle),
		zap.String("company", jobCtx.Company),
	)

	if _, err := p.send(ctx, messaging.KindJobDetected, jobCtx); err != nil {
		return nil, err
	}

	env, err := p.send(ctx, messaging.KindGenerateSuggestions, jobCtx)
	if err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, &SuggestionError{Message: env.Error}
	}

	bullets, err := Highlights(env.Result)
	if err != nil {
		p.logger.Warn("unexpected suggestion result shape", zap.Error(err))
		bullets = []string{}
	}

	scan := &session.Scan{
		JobContext:       jobCtx,
		SuggestedBullets: bullets,
		ScannedAt:        p.now().UTC(),
	}

	if err := p.sessions.Save(scan); err != nil {
		return nil, fmt.Errorf("saving scan: %w", err)
	}

	return scan, nil
}

// Log records the latest scanned job with the given status.
func (p *Popup) Log(ctx context.Context, status string) (*session.Scan, json.RawMessage, error) {
	scan, err := p.sessions.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoScan) {
			return nil, nil, ErrNoScan
		}
		return nil, nil, err
	}

	env, err := p.send(ctx, messaging.KindLogApplication, orchestrator.LogPayload{
		URL:              scan.JobContext.URL,
		Company:          scan.JobContext.Company,
		JobTitle:         scan.JobContext.JobTitle,
		Status:           status,
		SuggestedBullets: scan.SuggestedBullets,
	})
	if err != nil {
		return nil, nil, err
	}
	if !env.OK {
		return nil, nil, &LogError{Message: env.Error}
	}

	return scan, env.Result, nil
}

// LatestScan returns the remembered scan, if any.
func (p *Popup) LatestScan() (*session.Scan, error) {
	scan, err := p.sessions.Load()
	if errors.Is(err, session.ErrNoScan) {
		return nil, ErrNoScan
	}
	return scan, err
}

// Forget drops the remembered scan so it cannot be logged again.
func (p *Popup) Forget() error {
	return p.sessions.Clear()
}

func (p *Popup) send(ctx context.Context, kind messaging.Kind, payload any) (messaging.Envelope, error) {
	msg, err := messaging.NewMessage(kind, payload)
	if err != nil {
		return messaging.Envelope{}, err
	}

	return p.bus.Call(ctx, msg)
}

type suggestionResult struct {
	TailoredResume struct {
		ExperienceHighlights []any `mapstructure:"experience_highlights"`
	} `mapstructure:"tailored_resume"`
}

// Highlights pulls tailored_resume.experience_highlights out of a suggestion result.
// Missing fields yield an empty list. Non-string items are rendered as text.
func Highlights(result json.RawMessage) ([]string, error) {
	bullets := []string{}
	if len(result) == 0 {
		return bullets, nil
	}

	var raw any
	if err := json.Unmarshal(result, &raw); err != nil {
		return bullets, fmt.Errorf("decoding suggestion result: %w", err)
	}

	if _, ok := raw.(map[string]any); !ok {
		return bullets, nil
	}

	var decoded suggestionResult
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &decoded,
	})
	if err != nil {
		return bullets, err
	}

	if err := decoder.Decode(raw); err != nil {
		return bullets, fmt.Errorf("decoding suggestion result: %w", err)
	}

	for _, item := range decoded.TailoredResume.ExperienceHighlights {
		if bullet, ok := bulletText(item); ok {
			bullets = append(bullets, bullet)
		}
	}

	return bullets, nil
}

// bulletText renders a single highlight. Nulls are skipped, objects and
// arrays are kept as compact json.
func bulletText(item any) (string, bool) {
	switch v := item.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(data), true
	}
}

// Top returns at most n leading bullets.
func Top(bullets []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(bullets) <= n {
		return bullets
	}
	return bullets[:n]
}
