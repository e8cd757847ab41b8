// cmd/tools/jobctl/pipelines.go
package main

import (
	"fmt"
	"io"
	"strings"

	"cv-pipeline/pkg/registry"

	"github.com/spf13/cobra"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List the registered pipelines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("registry")
		reg, err := registry.Load(path)
		if err != nil {
			return err
		}
		printPipelines(cmd.OutOrStdout(), reg)
		return nil
	},
}

var pipelinesValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a registry file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(args[0])
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d pipelines.\n", len(reg.Pipelines))
		return nil
	},
}

var pipelinesExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the built-in registry to a file for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registry.Save(registry.Default(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pipelinesCmd)
	pipelinesCmd.AddCommand(pipelinesValidateCmd, pipelinesExportCmd)
	pipelinesCmd.Flags().String("registry", "", "registry file (default is the built-in registry)")
}

func printPipelines(w io.Writer, reg *registry.PipelineRegistry) {
	fmt.Fprintf(w, "registry %s (%d pipelines)\n", reg.Version, len(reg.Pipelines))
	for _, p := range reg.Pipelines {
		fmt.Fprintf(w, "%-12s %-14s retries=%d timeout=%s\n", p.JobType, p.TaskType, p.Retries, p.Timeout)
		fmt.Fprintf(w, "  stages: %s\n", strings.Join(p.Stages, " -> "))
	}
}
