package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/orchestrator"
	"github.com/spigell/job-copilot/internal/popup"
)

const (
	PromptLogApplication = "Log application"
	PromptShowAll        = "Show all suggestions"
	PromptExit           = "Exit"
)

var scanPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptLogApplication, PromptShowAll, PromptExit},
}

var scanCmd = &cobra.Command{
	Use:   "scan <url|file>",
	Short: "Detect a job posting and suggest tailored resume bullets",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scan(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("browser", false, "render the page in a headless browser when plain http returns too little text")
	scanCmd.Flags().BoolP("yes", "y", false, "log the application right away without asking")
	scanCmd.Flags().String("status", orchestrator.DefaultStatus, "status used when logging the application")

	viper.BindPFlag("browser.enabled", scanCmd.Flags().Lookup("browser"))
}

func scan(cmd *cobra.Command, target string) {
	ctx := cmd.Context()

	log, config := bootstrap()
	svc := newServices(log, config)
	p := svc.popup()

	log.Info("scanning page", zap.String(logger.FieldURL, target))

	result, err := p.Scan(ctx, target)
	if err != nil {
		if errors.Is(err, popup.ErrNoJobContext) {
			log.Info("exiting", zap.String("reason", "no job context detected on this page"))
			return
		}

		var suggestionErr *popup.SuggestionError
		if errors.As(err, &suggestionErr) {
			log.Fatal("generating suggestions", zap.Error(err), zap.String("hint", "check that the backend is running at the configured apiBaseUrl"))
		}

		log.Fatal("scanning page", zap.Error(err))
	}

	log.Info("job detected",
		zap.String("job_title", result.JobContext.JobTitle),
		zap.String("company", result.JobContext.Company),
		zap.Int("suggestions", len(result.SuggestedBullets)),
	)

	printBullets(popup.Top(result.SuggestedBullets, popup.TopSuggestions))

	status, _ := cmd.Flags().GetString("status")

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		logApplication(cmd, p, log, status)
		return
	}

	for {
		_, action, err := scanPrompt.Run()
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}

		switch action {
		case PromptLogApplication:
			logApplication(cmd, p, log, status)
			return
		case PromptShowAll:
			printBullets(result.SuggestedBullets)
		case PromptExit:
			log.Info("exiting", zap.String("reason", "got exit from prompt"))
			return
		default:
			log.Fatal("exiting", zap.Error(fmt.Errorf("invalid action: %s", action)))
		}
	}
}

func printBullets(bullets []string) {
	if len(bullets) == 0 {
		fmt.Println("No suggestions returned.")
		return
	}

	var b strings.Builder
	for i, bullet := range bullets {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, bullet)
	}
	fmt.Print(b.String())
}
