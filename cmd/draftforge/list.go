package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/internal/config"
	"github.com/draftforge/draftforge/internal/store"
)

func newListCmd(logger *logrus.Logger) *cobra.Command {
	var caseID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reports for a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			reports, err := db.List(cmd.Context(), caseID)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				logger.Info("no reports found")
				return nil
			}
			for _, r := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-15s %-14s %s\n",
					r.ID, r.Study, r.Status, r.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&caseID, "case", "", "case ID (required)")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}
