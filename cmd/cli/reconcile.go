package cli

import (
	"fmt"
	"sort"

	"pmchat-backend/internal/app"
	taskdomain "pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/config"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild project and stage task lists and progress from the task documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), config.Load())
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer a.Close()

		report, err := a.Reconcile(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Tasks processed:    %d\n", report.Tasks)
		outcomes := make([]string, 0, len(report.Outcomes))
		for outcome := range report.Outcomes {
			outcomes = append(outcomes, string(outcome))
		}
		sort.Strings(outcomes)
		for _, outcome := range outcomes {
			fmt.Fprintf(out, "  %-18s %d\n", outcome+":", report.Outcomes[taskdomain.LinkageOutcome(outcome)])
		}
		fmt.Fprintf(out, "Projects refreshed: %d\n", report.Projects)
		if report.Failed > 0 {
			return fmt.Errorf("%d operations failed", report.Failed)
		}
		return nil
	},
}
