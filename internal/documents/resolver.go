// internal/documents/resolver.go
package documents

import (
	"context"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/models"
)

// Where resolved text came from.
const (
	OriginExtracted     = "extracted"
	OriginDocumentCache = "document_cache"
	OriginTextCache     = "text_cache"
)

type Resolution struct {
	Document *models.Document
	Text     string
	Origin   string
}

// Resolver turns a document id into text. When the file cannot be read it
// falls back to the text stored on the document, then to the text cache.
type Resolver struct {
	source    Source
	extractor Extractor
	cache     TextCache
	logger    logger.Logger
}

// NewResolver builds a resolver; cache may be nil.
func NewResolver(source Source, extractor Extractor, cache TextCache, log logger.Logger) *Resolver {
	return &Resolver{
		source:    source,
		extractor: extractor,
		cache:     cache,
		logger:    log.WithFields(map[string]interface{}{"component": "document-resolver"}),
	}
}

func (r *Resolver) Resolve(ctx context.Context, documentID string) (*Resolution, error) {
	doc, err := r.source.Resolve(ctx, documentID)
	if err != nil {
		return nil, err
	}

	text, extractErr := r.extractor.Extract(ctx, doc.Path, doc.MimeType)
	if extractErr == nil {
		r.remember(ctx, doc, text)
		return &Resolution{Document: doc, Text: text, Origin: OriginExtracted}, nil
	}

	if !recoverable(extractErr) {
		return nil, extractErr
	}

	log := r.logger.WithFields(map[string]interface{}{
		"documentId": documentID,
		"error":      extractErr.Error(),
	})

	if strings.TrimSpace(doc.CachedText) != "" {
		log.Warn("Extraction failed, using stored document text", nil)
		return &Resolution{Document: doc, Text: doc.CachedText, Origin: OriginDocumentCache}, nil
	}

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, documentID)
		if err != nil {
			log.Warn("Text cache lookup failed", map[string]interface{}{"cacheError": err.Error()})
		} else if ok {
			log.Warn("Extraction failed, using cached text", nil)
			return &Resolution{Document: doc, Text: cached, Origin: OriginTextCache}, nil
		}
	}

	return nil, extractErr
}

// remember writes freshly extracted text to the cache and the document row.
// Failures are logged only.
func (r *Resolver) remember(ctx context.Context, doc *models.Document, text string) {
	if r.cache != nil {
		if err := r.cache.Set(ctx, doc.ID, text); err != nil {
			r.logger.Warn("Failed to cache extracted text", map[string]interface{}{"documentId": doc.ID, "error": err.Error()})
		}
	}
	if doc.CachedText == "" {
		if err := r.source.SaveText(ctx, doc.ID, text); err != nil {
			r.logger.Warn("Failed to store extracted text", map[string]interface{}{"documentId": doc.ID, "error": err.Error()})
		}
	}
}

// Unreadable or missing files can be served from cached text.
func recoverable(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeParse) || apperrors.HasCode(err, apperrors.ErrCodeNotFound)
}
