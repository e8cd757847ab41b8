// cmd/tools/jobctl/descriptions.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cv-pipeline/internal/common/database"
	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/vectorstore"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/spf13/cobra"
)

var seedDescriptionsCmd = &cobra.Command{
	Use:   "seed-descriptions",
	Short: "Load job descriptions and index them for retrieval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		raw, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		items, err := parseDescriptions(raw)
		if err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		my, err := database.NewMySQL(e.cfg.Database.MySQL)
		if err != nil {
			return err
		}
		e.closes = append(e.closes, my.Close)
		if err := documents.Migrate(my.DB); err != nil {
			return err
		}
		repo := documents.NewGormDescriptionRepository(my.DB)

		var esClient *elasticsearch.Client
		if e.cfg.VectorStore.Backend == "elasticsearch" {
			es, err := database.NewElasticsearch(e.cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			esClient = es.Client
		}
		vectors, err := vectorstore.New(ctx, e.cfg, esClient, e.log)
		if err != nil {
			return err
		}

		var docs []vectorstore.Document
		for i := range items {
			if err := repo.Upsert(ctx, &items[i]); err != nil {
				return err
			}
			docs = append(docs, vectorstore.DescriptionDocuments(items[i])...)
		}
		if err := vectors.Upsert(ctx, docs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d descriptions, indexed %d documents\n", len(items), len(docs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedDescriptionsCmd)
	seedDescriptionsCmd.Flags().String("file", "", "JSON array of job descriptions")
	seedDescriptionsCmd.MarkFlagRequired("file")
}

// parseDescriptions decodes a JSON array of job descriptions, filling in
// slugs and default weights.
func parseDescriptions(raw []byte) ([]models.JobDescription, error) {
	var items []models.JobDescription
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding descriptions: %w", err)
	}
	for i := range items {
		jd := &items[i]
		if jd.ID == "" {
			return nil, fmt.Errorf("description %d has no id", i)
		}
		if jd.Slug == "" {
			jd.Slug = slugify(jd.Title)
		}
		jd.ScoringWeights = documents.WithDefaultWeights(jd.ScoringWeights)
	}
	return items, nil
}

func slugify(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}
