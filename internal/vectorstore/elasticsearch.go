// internal/vectorstore/elasticsearch.go
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchStore keeps documents in an index with a dense_vector field
// and answers searches with approximate kNN.
type ElasticsearchStore struct {
	client   *elasticsearch.Client
	index    string
	embedder Embedder
	logger   logger.Logger
}

func NewElasticsearchStore(client *elasticsearch.Client, index string, embedder Embedder, log logger.Logger) *ElasticsearchStore {
	return &ElasticsearchStore{
		client:   client,
		index:    index,
		embedder: embedder,
		logger:   log.WithFields(map[string]interface{}{"component": "vectorstore", "index": index}),
	}
}

func (s *ElasticsearchStore) mapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "text"},
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       s.embedder.Dimensions(),
					"index":      true,
					"similarity": "cosine",
				},
				"metadata": map[string]interface{}{
					"type":    "object",
					"dynamic": true,
				},
			},
			"dynamic_templates": []interface{}{
				map[string]interface{}{
					"metadata_strings": map[string]interface{}{
						"path_match":         "metadata.*",
						"match_mapping_type": "string",
						"mapping":            map[string]interface{}{"type": "keyword"},
					},
				},
			},
		},
	}
}

// EnsureIndex creates the index when it does not exist yet.
func (s *ElasticsearchStore) EnsureIndex(ctx context.Context) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client)
	if err != nil {
		return apperrors.NewVectorStoreError("index_exists", err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := json.Marshal(s.mapping())
	res, err := esapi.IndicesCreateRequest{Index: s.index, Body: bytes.NewReader(body)}.Do(ctx, s.client)
	if err != nil {
		return apperrors.NewVectorStoreError("create_index", err)
	}
	defer res.Body.Close()
	// a concurrent creator may have won
	if res.IsError() && !strings.Contains(readBody(res), "resource_already_exists_exception") {
		return apperrors.NewVectorStoreError("create_index", fmt.Errorf("status %s", res.Status()))
	}

	s.logger.Info("Vector index created", map[string]interface{}{"dims": s.embedder.Dimensions()})
	return nil
}

func (s *ElasticsearchStore) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, d := range docs {
		vec, err := s.embedder.Embed(ctx, d.Text)
		if err != nil {
			return apperrors.NewVectorStoreError("upsert", fmt.Errorf("embed %s: %w", d.ID, err))
		}
		meta, _ := json.Marshal(map[string]interface{}{"index": map[string]interface{}{"_index": s.index, "_id": d.ID}})
		source, _ := json.Marshal(map[string]interface{}{"text": d.Text, "embedding": vec, "metadata": d.Metadata})
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
	}

	res, err := esapi.BulkRequest{Body: &buf, Refresh: "true"}.Do(ctx, s.client)
	if err != nil {
		return apperrors.NewVectorStoreError("upsert", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewVectorStoreError("upsert", fmt.Errorf("status %s", res.Status()))
	}

	var bulk struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID    string          `json:"_id"`
			Error json.RawMessage `json:"error,omitempty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return apperrors.NewVectorStoreError("upsert", fmt.Errorf("decode bulk response: %w", err))
	}
	if bulk.Errors {
		for _, item := range bulk.Items {
			for _, r := range item {
				if len(r.Error) > 0 {
					return apperrors.NewVectorStoreError("upsert", fmt.Errorf("document %s: %s", r.ID, string(r.Error)))
				}
			}
		}
	}
	return nil
}

func (s *ElasticsearchStore) Search(ctx context.Context, query string, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("search", err)
	}

	knn := map[string]interface{}{
		"field":          "embedding",
		"query_vector":   qvec,
		"k":              topK,
		"num_candidates": max(50, topK*10),
	}
	if len(filter) > 0 {
		terms := make([]interface{}, 0, len(filter))
		for k, v := range filter {
			terms = append(terms, map[string]interface{}{"term": map[string]interface{}{"metadata." + k: v}})
		}
		knn["filter"] = map[string]interface{}{"bool": map[string]interface{}{"filter": terms}}
	}
	body, _ := json.Marshal(map[string]interface{}{
		"knn":     knn,
		"size":    topK,
		"_source": []string{"text", "metadata"},
	})

	res, err := esapi.SearchRequest{Index: []string{s.index}, Body: bytes.NewReader(body)}.Do(ctx, s.client)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("search", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewVectorStoreError("search", fmt.Errorf("status %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Text     string                 `json:"text"`
					Metadata map[string]interface{} `json:"metadata"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewVectorStoreError("search", fmt.Errorf("decode response: %w", err))
	}

	matches := make([]Match, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		matches = append(matches, Match{ID: h.ID, Score: h.Score, Text: h.Source.Text, Metadata: h.Source.Metadata})
	}
	return matches, nil
}

func readBody(res *esapi.Response) string {
	data, _ := io.ReadAll(res.Body)
	return string(data)
}
