package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/backend"
	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/messaging"
	"github.com/spigell/job-copilot/internal/orchestrator"
	"github.com/spigell/job-copilot/internal/page"
	"github.com/spigell/job-copilot/internal/popup"
	"github.com/spigell/job-copilot/internal/session"
	"github.com/spigell/job-copilot/internal/settings"
)

// services holds the components shared by the commands.
type services struct {
	config   *Config
	logger   *zap.Logger
	settings *settings.FileStore
	sessions *session.Store
	bus      *messaging.Bus
}

// bootstrap builds the logger and the config. Failures are fatal.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting the "+app, zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func newServices(logger *zap.Logger, config *Config) *services {
	store := settings.NewFileStore(config.SettingsFile)

	client := backend.New(logger.With(zap.String("component", "backend")), config.HTTPTimeout)
	handler := orchestrator.New(store, client, logger.With(zap.String("component", "orchestrator")))

	return &services{
		config:   config,
		logger:   logger,
		settings: store,
		sessions: session.NewStore(config.SessionFile),
		bus:      messaging.NewBus(handler, logger),
	}
}

func (s *services) popup() *popup.Popup {
	fetcher := page.NewFetcher(s.logger.With(zap.String("component", "fetcher")))
	if s.config.UserAgent != "" {
		fetcher.UserAgent = s.config.UserAgent
	}

	if s.config.Browser.Enabled {
		fetcher.Render = page.BrowserRenderer(s.config.Browser.Timeout)
		s.logger.Debug("browser rendering enabled", zap.Duration("timeout", s.config.Browser.Timeout))
	}

	return popup.New(fetcher, page.NewExtractor(), s.bus, s.sessions, s.logger)
}
