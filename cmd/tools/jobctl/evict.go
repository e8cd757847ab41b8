// cmd/tools/jobctl/evict.go
package main

import (
	"fmt"

	"cv-pipeline/internal/queue"

	"github.com/spf13/cobra"
)

var evictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Remove terminal jobs past the retention policy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := e.jobService(cmd.Context(), false)
		if err != nil {
			return err
		}
		q := e.cfg.Queue
		n, err := svc.Evict(cmd.Context(), queue.RetentionPolicyFrom(q.CompletedRetention, q.CompletedKeep, q.FailedRetention))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "evicted %d jobs\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evictCmd)
}
