package cmd

import (
	"fmt"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/database"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/spf13/cobra"
)

// recruiterCmd 维护机构与招聘方的归属关系
var recruiterCmd = &cobra.Command{
	Use:   "recruiter",
	Short: "Manage agency recruiters",
}

var recruiterAddCmd = &cobra.Command{
	Use:   "add <agency-id> <user-id>",
	Short: "Grant a recruiter review rights for an agency",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		agencyID, userID := args[0], args[1]
		for _, id := range args {
			if err := utils.ValidateID(id); err != nil {
				return fmt.Errorf("invalid id %q: %w", id, err)
			}
		}

		cfg, _, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			if sqlDB, _ := db.DB(); sqlDB != nil {
				sqlDB.Close()
			}
		}()

		if err := repository.NewReviewerDirectory(db).Add(cmd.Context(), agencyID, userID); err != nil {
			return fmt.Errorf("failed to add recruiter: %w", err)
		}
		logger.WithField("agency_id", agencyID).WithField("user_id", userID).Info("Recruiter added")
		return nil
	},
}

func init() {
	recruiterCmd.AddCommand(recruiterAddCmd)
	rootCmd.AddCommand(recruiterCmd)
}
