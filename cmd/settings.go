package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/settings"
	"github.com/spigell/job-copilot/internal/utils"
)

const showValueLimit = 80

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the settings used for backend calls",
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default settings for missing keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := bootstrap()
		store := settings.NewFileStore(config.SettingsFile)

		force, _ := cmd.Flags().GetBool("force")

		written, err := settings.Install(cmd.Context(), store, force)
		if err != nil {
			logger.Fatal("installing default settings", zap.Error(err))
		}

		logger.Info("settings initialized",
			zap.String("file", store.Path()),
			zap.Strings("written", written),
		)
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := bootstrap()
		store := settings.NewFileStore(config.SettingsFile)

		values, err := store.Get(cmd.Context(), settings.Keys...)
		if err != nil {
			logger.Fatal("reading settings", zap.Error(err))
		}

		fmt.Printf("# %s\n", store.Path())
		for _, key := range settings.Keys {
			value, ok := values[key]
			if !ok {
				fmt.Printf("%s: <unset>\n", key)
				continue
			}
			fmt.Printf("%s: %s\n", key, utils.TruncateForLog(utils.CollapseWhitespace(value), showValueLimit))
		}
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "Save one or more settings",
	Example: "  job-copilot settings set apiBaseUrl=http://127.0.0.1:8001 proficiencies='Go, Kubernetes'\n" +
		"  job-copilot settings set --resume-file resume.txt",
	Run: func(cmd *cobra.Command, args []string) {
		logger, config := bootstrap()
		store := settings.NewFileStore(config.SettingsFile)

		values, err := parseAssignments(args)
		if err != nil {
			logger.Fatal("parsing arguments", zap.Error(err), zap.String("hint", "use key=value, known keys: "+strings.Join(settings.Keys, ", ")))
		}

		if resumeFile, _ := cmd.Flags().GetString("resume-file"); resumeFile != "" {
			data, err := os.ReadFile(resumeFile)
			if err != nil {
				logger.Fatal("reading resume file", zap.Error(err))
			}
			values[settings.KeyResumeText] = string(data)
		}

		if len(values) == 0 {
			logger.Fatal("nothing to save", zap.String("hint", "pass key=value arguments or --resume-file"))
		}

		if err := saveSettings(cmd.Context(), store, values); err != nil {
			logger.Fatal("saving settings", zap.Error(err), zap.String("hint", "run 'job-copilot settings init' to write the defaults first"))
		}

		keys := make([]string, 0, len(values))
		for _, key := range settings.Keys {
			if _, ok := values[key]; ok {
				keys = append(keys, key)
			}
		}

		logger.Info("settings saved", zap.String("file", store.Path()), zap.Strings("keys", keys))
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsInitCmd, settingsShowCmd, settingsSetCmd)

	settingsInitCmd.Flags().BoolP("force", "f", false, "reset every key to its default value")
	settingsSetCmd.Flags().String("resume-file", "", "read resumeText from the given file")
}

// parseAssignments turns key=value arguments into settings values.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q", arg)
		}
		if !settings.IsKnown(key) {
			return nil, fmt.Errorf("unknown settings key %q", key)
		}
		values[key] = value
	}
	return values, nil
}

// saveSettings validates the merged result before anything is written.
func saveSettings(ctx context.Context, store settings.Store, values map[string]string) error {
	merged, err := store.Get(ctx, settings.Keys...)
	if err != nil {
		return err
	}
	for key, value := range values {
		merged[key] = value
	}

	decoded, err := settings.Decode(merged)
	if err != nil {
		return err
	}
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return store.Set(ctx, values)
}
