package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/backend"
	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/messaging"
	"github.com/spigell/job-copilot/internal/settings"
)

const (
	// DefaultStatus is recorded when the payload carries no status.
	DefaultStatus = "Applied"
)

// LogPayload is the LOG_APPLICATION payload.
type LogPayload struct {
	URL              string   `json:"url"`
	Company          string   `json:"company"`
	JobTitle         string   `json:"jobTitle"`
	Status           string   `json:"status,omitempty"`
	SuggestedBullets []string `json:"suggestedBullets,omitempty"`
}

var logKeys = []string{settings.KeyAPIBaseURL, settings.KeySpreadsheetID, settings.KeySheetName}

// BuildLogRequest derives the backend request from settings and payload.
func BuildLogRequest(s *settings.Settings, p LogPayload) *backend.LogRequest {
	req := &backend.LogRequest{
		SpreadsheetID:    s.SpreadsheetID,
		SheetName:        s.SheetName,
		URL:              p.URL,
		Company:          p.Company,
		JobTitle:         p.JobTitle,
		Status:           p.Status,
		SuggestedBullets: p.SuggestedBullets,
	}

	if req.SheetName == "" {
		req.SheetName = settings.DefaultSheetName
	}

	if req.Status == "" {
		req.Status = DefaultStatus
	}

	if req.SuggestedBullets == nil {
		req.SuggestedBullets = []string{}
	}

	return req
}

func (o *Orchestrator) logApplication(ctx context.Context, log *zap.Logger, payload LogPayload) messaging.Envelope {
	cfg, err := settings.Load(ctx, o.settings, logKeys...)
	if err != nil {
		log.Error("loading settings", zap.Error(err))
		return messaging.Failure(err)
	}

	req := BuildLogRequest(cfg, payload)

	log.Info("logging application",
		zap.String(logger.FieldURL, req.URL),
		zap.String("company", req.Company),
		zap.String("job_title", req.JobTitle),
		zap.String("status", req.Status),
		zap.String("sheet_name", req.SheetName),
		zap.Int("bullets", len(req.SuggestedBullets)),
	)

	result, err := o.api.LogApplication(ctx, cfg.APIBaseURL, req)
	if err != nil {
		log.Warn("log request failed", zap.String(logger.FieldAPI, backend.APILog), zap.Error(err))
		return messaging.Failure(err)
	}

	log.Info("application logged")
	return messaging.Success(result)
}
