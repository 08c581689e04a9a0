package cmd

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-copilot/internal/backend"
	"github.com/spigell/job-copilot/internal/bridge"
	"github.com/spigell/job-copilot/internal/page"
)

const (
	app       = "job-copilot"
	envPrefix = "JOB_COPILOT"
)

type Config struct {
	SettingsFile string         `mapstructure:"settings-file"`
	SessionFile  string         `mapstructure:"session-file"`
	UserAgent    string         `mapstructure:"user-agent"`
	HTTPTimeout  time.Duration  `mapstructure:"http-timeout"`
	Browser      *BrowserConfig `mapstructure:"browser"`
	Bridge       *BridgeConfig  `mapstructure:"bridge"`
}

type BrowserConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BridgeConfig struct {
	Listen       string   `mapstructure:"listen"`
	AllowOrigins []string `mapstructure:"allow-origins"`
	Token        string   `mapstructure:"token"`
	TokenFile    string   `mapstructure:"token-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-copilot detects job postings, asks the resume backend for tailored bullets and logs applications",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-copilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	dir := configDir()
	viper.SetDefault("settings-file", filepath.Join(dir, "settings.yaml"))
	viper.SetDefault("session-file", filepath.Join(dir, "session.json"))
	viper.SetDefault("user-agent", page.DefaultUserAgent)
	viper.SetDefault("http-timeout", backend.DefaultTimeout)
	viper.SetDefault("browser.enabled", false)
	viper.SetDefault("browser.timeout", page.DefaultRenderTimeout)
	viper.SetDefault("bridge.listen", bridge.DefaultListen)
	viper.SetDefault("bridge.token-file", "")
}

func initConfig() {
	// .env is a convenience for local runs, a missing one is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %s", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Browser == nil {
		config.Browser = &BrowserConfig{}
	}
	if config.Bridge == nil {
		config.Bridge = &BridgeConfig{}
	}

	return config, nil
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + app
	}
	return filepath.Join(dir, app)
}
