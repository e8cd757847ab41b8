// internal/vectorstore/store.go
package vectorstore

import (
	"context"
	"errors"
	"math"
)

// Metadata type values used by the pipelines.
const (
	TypeJobDescription = "job_description"
	TypeScoringRubric  = "scoring_rubric"
	TypeCandidate      = "candidate_cv"
)

var (
	ErrDimensionMismatch = errors.New("DIMENSION_MISMATCH")
	ErrEmptyText         = errors.New("EMPTY_TEXT")
)

type Document struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Filter restricts a search to documents whose metadata equals every entry.
type Filter map[string]string

// Store is the vector search collaborator. Upserting an existing id replaces it.
type Store interface {
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, topK int, filter Filter) ([]Match, error)
}

// Embedder maps text to a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

func (f Filter) matches(metadata map[string]interface{}) bool {
	for k, want := range f {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if s, isString := got.(string); !isString || s != want {
			return false
		}
	}
	return true
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
