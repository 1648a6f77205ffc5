package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/container"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// scanCmd 单次执行开工提醒扫描，供外部调度器（cron）调用
var scanCmd = &cobra.Command{
	Use:   "scan-deadlines",
	Short: "Send reminders for incomplete onboardings starting soon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if days, _ := cmd.Flags().GetInt("look-ahead-days"); days > 0 {
			cfg.Scanner.LookAheadDays = days
		}
		// 进程退出前钩子必须执行完
		cfg.Hooks.Async = false

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close(context.Background())

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		result, err := ctr.Scanner().Scan(ctx)
		if err != nil {
			return fmt.Errorf("deadline scan failed: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"matched":    result.Matched,
			"dispatched": result.Dispatched,
			"failed":     result.Failed,
		}).Info("Deadline scan finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Int("look-ahead-days", 0, "Override scanner.look_ahead_days")
	scanCmd.Flags().Duration("timeout", 5*time.Minute, "Scan timeout")
}
