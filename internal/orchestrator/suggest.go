package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/backend"
	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/messaging"
	"github.com/spigell/job-copilot/internal/settings"
	"github.com/spigell/job-copilot/internal/utils"
)

const (
	// MaxBullets is the number of bullets asked from the backend.
	MaxBullets = 8

	// Defaults for fields the payload leaves empty.
	DefaultJobTitle = "Unknown Role"
	DefaultCompany  = "Unknown Company"
)

// SuggestionPayload is the GENERATE_SUGGESTIONS payload. A whole job context
// may be sent; fields other than these are ignored.
type SuggestionPayload struct {
	JobTitle       string `json:"jobTitle,omitempty"`
	Company        string `json:"company,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
}

var suggestionKeys = []string{settings.KeyAPIBaseURL, settings.KeyResumeText, settings.KeyProficiencies}

// BuildSuggestionRequest derives the backend request from settings and payload.
func BuildSuggestionRequest(s *settings.Settings, p SuggestionPayload) *backend.SuggestionRequest {
	req := &backend.SuggestionRequest{
		ResumeText:     s.ResumeText,
		Proficiencies:  utils.SplitList(s.Proficiencies),
		JobTitle:       p.JobTitle,
		Company:        p.Company,
		JobDescription: p.JobDescription,
		MaxBullets:     MaxBullets,
	}

	if req.JobTitle == "" {
		req.JobTitle = DefaultJobTitle
	}

	if req.Company == "" {
		req.Company = DefaultCompany
	}

	return req
}

func (o *Orchestrator) generateSuggestions(ctx context.Context, log *zap.Logger, payload SuggestionPayload) messaging.Envelope {
	cfg, err := settings.Load(ctx, o.settings, suggestionKeys...)
	if err != nil {
		log.Error("loading settings", zap.Error(err))
		return messaging.Failure(err)
	}

	req := BuildSuggestionRequest(cfg, payload)

	log.Info("requesting suggestions",
		zap.String("job_title", req.JobTitle),
		zap.String("company", req.Company),
		zap.Strings("proficiencies", req.Proficiencies),
		zap.String("description_preview", utils.TruncateForLog(req.JobDescription, o.maxLogLen)),
	)

	result, err := o.api.SuggestBullets(ctx, cfg.APIBaseURL, req)
	if err != nil {
		log.Warn("suggestion request failed", zap.String(logger.FieldAPI, backend.APISuggest), zap.Error(err))
		return messaging.Failure(err)
	}

	log.Info("got suggestions", zap.Int("bytes", len(result)))
	return messaging.Success(result)
}
