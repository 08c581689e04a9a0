package cmd

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/orchestrator"
	"github.com/spigell/job-copilot/internal/popup"
	"github.com/spigell/job-copilot/internal/utils"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log the latest scanned job as an application",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		log, config := bootstrap()
		svc := newServices(log, config)
		p := svc.popup()

		latest, err := p.LatestScan()
		if err != nil {
			if errors.Is(err, popup.ErrNoScan) {
				log.Fatal("no scanned job", zap.String("hint", "run 'job-copilot scan <url>' first"))
			}
			log.Fatal("loading latest scan", zap.Error(err))
		}

		status, _ := cmd.Flags().GetString("status")

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			confirm := promptui.Select{
				Label: fmt.Sprintf("Log %q at %s as %s?", latest.JobContext.JobTitle, latest.JobContext.Company, status),
				Items: []string{PromptYes, PromptNo},
			}

			_, answer, err := confirm.Run()
			if err != nil {
				log.Fatal("exiting", zap.Error(err))
			}
			if answer != PromptYes {
				log.Info("exiting", zap.String("reason", "got no from prompt"))
				return
			}
		}

		logApplication(cmd, p, log, status)

		if forget, _ := cmd.Flags().GetBool("forget"); forget {
			if err := p.Forget(); err != nil {
				log.Fatal("forgetting latest scan", zap.Error(err))
			}
			log.Info("latest scan forgotten", zap.String("file", config.SessionFile))
		}
	},
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().String("status", orchestrator.DefaultStatus, "application status to record")
	logCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	logCmd.Flags().Bool("forget", false, "forget the scanned job once it is logged")
}

func logApplication(cmd *cobra.Command, p *popup.Popup, log *zap.Logger, status string) {
	scan, result, err := p.Log(cmd.Context(), status)
	if err != nil {
		if errors.Is(err, popup.ErrNoScan) {
			log.Fatal("no scanned job", zap.String("hint", "run 'job-copilot scan <url>' first"))
		}
		log.Fatal("logging application", zap.Error(err))
	}

	if status == "" {
		status = orchestrator.DefaultStatus
	}

	log.Info("application logged",
		zap.String(logger.FieldURL, scan.JobContext.URL),
		zap.String("job_title", scan.JobContext.JobTitle),
		zap.String("status", status),
	)
	log.Debug("log api result", zap.String("result", utils.TruncateForLog(string(result), 500)))
}
