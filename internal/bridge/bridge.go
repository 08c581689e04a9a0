// Package bridge exposes the message bus over localhost HTTP so a browser
// extension or any other UI surface can post messages to the orchestrator.
package bridge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/messaging"
)

const (
	DefaultListen          = "127.0.0.1:8002"
	DefaultShutdownTimeout = 10 * time.Second

	requestIDHeader = "X-Request-ID"
)

// Sender delivers messages and waits for their envelopes.
type Sender interface {
	Call(ctx context.Context, msg messaging.Message) (messaging.Envelope, error)
}

type Config struct {
	Listen string
	// AllowOrigins lists origins allowed by CORS, e.g. chrome-extension://<id>.
	AllowOrigins []string
	// Token, when set, must be presented as a bearer token.
	Token           string
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg    Config
	bus    Sender
	logger *zap.Logger
	engine *gin.Engine
}

type messageRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

func New(cfg Config, bus Sender, log *zap.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		cfg:    cfg,
		bus:    bus,
		logger: logger.WithFields(log, zap.String("component", "bridge")),
	}
	s.engine = s.routes()

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	if len(s.cfg.AllowOrigins) > 0 {
		config := cors.DefaultConfig()
		config.AllowOrigins = s.cfg.AllowOrigins
		config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader}
		config.AllowBrowserExtensions = true
		r.Use(cors.New(config))
	}

	api := r.Group("/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/messages", s.authorize(), s.postMessage)
	}

	return r
}

// postMessage answers with HTTP 200 whenever an envelope was produced;
// the envelope itself carries the outcome.
func (s *Server) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, messaging.Failure(errors.New("invalid message: "+err.Error())))
		return
	}

	msg := messaging.Message{
		ID:      c.GetString(requestIDHeader),
		Type:    messaging.Kind(req.Type),
		Payload: req.Payload,
	}

	env, err := s.bus.Call(c.Request.Context(), msg)
	if err != nil {
		// The client went away; the work finishes on its own.
		c.Status(http.StatusServiceUnavailable)
		return
	}

	c.JSON(http.StatusOK, env)
}

func (s *Server) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Token == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, messaging.Failure(errors.New("unauthorized")))
			return
		}

		c.Next()
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("handled request",
			zap.String(logger.FieldRequestID, c.GetString(requestIDHeader)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("bridge listening", zap.String("listen", s.cfg.Listen), zap.Bool("auth", s.cfg.Token != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down bridge")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful shutdown completed with error", zap.Error(err))
			return err
		}

		s.logger.Info("graceful shutdown completed successfully")
		return nil
	})

	return g.Wait()
}
