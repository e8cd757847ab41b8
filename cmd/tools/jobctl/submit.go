// cmd/tools/jobctl/submit.go
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"cv-pipeline/internal/models"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a job",
}

var submitEvaluationCmd = &cobra.Command{
	Use:   "evaluation",
	Short: "Score a CV against a job description",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cv, _ := cmd.Flags().GetString("cv")
		jd, _ := cmd.Flags().GetString("description")
		name, _ := cmd.Flags().GetString("name")
		project, _ := cmd.Flags().GetString("project")
		return submit(cmd, models.JobTypeEvaluation, evaluationPayload(cv, jd, name, project))
	},
}

var submitMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank job listings against a CV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cv, _ := cmd.Flags().GetString("cv")
		location, _ := cmd.Flags().GetString("location")
		return submit(cmd, models.JobTypeMatcher, matchPayload(cv, location))
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.AddCommand(submitEvaluationCmd, submitMatchCmd)

	submitEvaluationCmd.Flags().String("cv", "", "CV document id")
	submitEvaluationCmd.Flags().String("description", "", "job description id or slug")
	submitEvaluationCmd.Flags().String("name", "", "candidate name override")
	submitEvaluationCmd.Flags().String("project", "", "project document id to review alongside the CV")
	submitEvaluationCmd.MarkFlagRequired("cv")
	submitEvaluationCmd.MarkFlagRequired("description")

	submitMatchCmd.Flags().String("cv", "", "CV document id")
	submitMatchCmd.Flags().String("location", "", "listing location (default from config)")
	submitMatchCmd.MarkFlagRequired("cv")
}

func evaluationPayload(cv, jd, name, project string) models.EvaluationInput {
	return models.EvaluationInput{
		CVDocumentID:      strings.TrimSpace(cv),
		JobDescriptionID:  strings.TrimSpace(jd),
		CandidateName:     strings.TrimSpace(name),
		ProjectDocumentID: strings.TrimSpace(project),
	}
}

func matchPayload(cv, location string) models.MatcherInput {
	return models.MatcherInput{
		CVDocumentID: strings.TrimSpace(cv),
		Location:     strings.TrimSpace(location),
	}
}

func submit(cmd *cobra.Command, jobType models.JobType, input interface{}) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	svc, err := e.jobService(cmd.Context(), true)
	if err != nil {
		return err
	}
	job, err := svc.Submit(cmd.Context(), jobType, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", job.ID, job.Status)
	return nil
}
