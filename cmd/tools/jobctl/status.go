// cmd/tools/jobctl/status.go
package main

import (
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/store"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job, error included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := e.jobService(cmd.Context(), false)
		if err != nil {
			return err
		}
		view, err := svc.Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), view)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobType, _ := cmd.Flags().GetString("type")
		statuses, _ := cmd.Flags().GetStringSlice("status")
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := e.jobService(cmd.Context(), false)
		if err != nil {
			return err
		}
		views, err := svc.List(cmd.Context(), listFilter(jobType, statuses, limit))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), views)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, listCmd)

	listCmd.Flags().String("type", "", "job type (evaluation, matcher)")
	listCmd.Flags().StringSlice("status", nil, "statuses to include")
	listCmd.Flags().Int("limit", 20, "maximum jobs to show")
}

func listFilter(jobType string, statuses []string, limit int) store.ListFilter {
	f := store.ListFilter{Type: models.JobType(jobType), Limit: limit}
	for _, s := range statuses {
		f.Statuses = append(f.Statuses, models.JobStatus(s))
	}
	return f
}
