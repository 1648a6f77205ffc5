package cmd

import (
	"fmt"
	"os"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/api"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "onboarding-engine",
	Short: "Post-offer onboarding workflow server",
	Long: `Onboarding Engine tracks the eight post-offer onboarding requirements
of a hired candidate, coordinates candidate submissions with recruiter
reviews, and reminds candidates whose start date is approaching.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.bpoc-onboarding)")
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig 读取 --config 并初始化日志
func loadConfig(cmd *cobra.Command) (*config.Config, string, *logrus.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, configPath, logger, nil
}
