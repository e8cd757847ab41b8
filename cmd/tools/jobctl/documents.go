// cmd/tools/jobctl/documents.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"cv-pipeline/internal/common/database"
	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var registerDocumentCmd = &cobra.Command{
	Use:   "register-document <path>",
	Short: "Register an uploaded CV or project report so jobs can reference it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		id, _ := cmd.Flags().GetString("id")

		doc, err := documentFromFile(args[0], models.DocumentKind(kind), id)
		if err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		my, err := database.NewMySQL(e.cfg.Database.MySQL)
		if err != nil {
			return err
		}
		e.closes = append(e.closes, my.Close)
		if err := documents.Migrate(my.DB); err != nil {
			return err
		}
		if err := documents.NewGormSource(my.DB).Create(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerDocumentCmd)
	registerDocumentCmd.Flags().String("kind", string(models.DocumentKindCV), "document kind (cv, project)")
	registerDocumentCmd.Flags().String("id", "", "document id (default is a new uuid)")
}

// documentFromFile builds the record for a file already on shared storage.
func documentFromFile(path string, kind models.DocumentKind, id string) (*models.Document, error) {
	if kind != models.DocumentKindCV && kind != models.DocumentKindProject {
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if id == "" {
		id = uuid.New().String()
	}
	return &models.Document{
		ID:           id,
		Filename:     filepath.Base(abs),
		OriginalName: filepath.Base(path),
		MimeType:     documents.DetectMime("", abs),
		Path:         abs,
		Size:         info.Size(),
		Kind:         kind,
	}, nil
}
