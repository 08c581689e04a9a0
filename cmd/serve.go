package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/bridge"
	"github.com/spigell/job-copilot/internal/secrets"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the message bus over localhost http for a browser extension",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", bridge.DefaultListen, "address to listen on")
	serveCmd.Flags().StringSlice("allow-origin", nil, "origin allowed by CORS, e.g. chrome-extension://<id> (repeatable)")

	viper.BindPFlag("bridge.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("bridge.allow-origins", serveCmd.Flags().Lookup("allow-origin"))
}

func serve(ctx context.Context) {
	log, config := bootstrap()
	svc := newServices(log, config)

	token, err := secrets.LoadOptional(secrets.Source{
		Name:  "bridge token",
		Value: config.Bridge.Token,
		Env:   envPrefix + "_BRIDGE_TOKEN",
		File:  config.Bridge.TokenFile,
	})
	if err != nil {
		log.Fatal("loading bridge token", zap.Error(err), zap.String("hint", "set bridge.token-file or bridge.token in the configuration file"))
	}

	if token == "" && len(config.Bridge.AllowOrigins) > 0 {
		log.Warn("bridge is reachable by allowed origins without a token")
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := bridge.New(bridge.Config{
		Listen:       config.Bridge.Listen,
		AllowOrigins: config.Bridge.AllowOrigins,
		Token:        token,
	}, svc.bus, log)

	if err := srv.Run(ctx); err != nil {
		log.Fatal("serving bridge", zap.Error(err))
	}
}
