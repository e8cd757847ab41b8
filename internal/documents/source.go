// internal/documents/source.go
package documents

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/models"

	"gorm.io/gorm"
)

// Source looks up stored documents by id.
type Source interface {
	Resolve(ctx context.Context, documentID string) (*models.Document, error)
	SaveText(ctx context.Context, documentID, text string) error
}

type documentRecord struct {
	ID           string `gorm:"primaryKey;size:64"`
	Filename     string `gorm:"size:255"`
	OriginalName string `gorm:"size:255"`
	MimeType     string `gorm:"size:128"`
	Path         string `gorm:"size:512"`
	Size         int64
	Kind         string `gorm:"size:16;index"`
	Content      string `gorm:"type:longtext"`
	CreatedAt    time.Time
}

func (documentRecord) TableName() string { return "documents" }

func (r documentRecord) toModel() *models.Document {
	return &models.Document{
		ID:           r.ID,
		Filename:     r.Filename,
		OriginalName: r.OriginalName,
		MimeType:     r.MimeType,
		Path:         r.Path,
		Size:         r.Size,
		Kind:         models.DocumentKind(r.Kind),
		CachedText:   r.Content,
		CreatedAt:    r.CreatedAt,
	}
}

// GormSource reads the documents table through gorm.
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

func (s *GormSource) Resolve(ctx context.Context, documentID string) (*models.Document, error) {
	var rec documentRecord
	err := s.db.WithContext(ctx).Where("id = ?", documentID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("document", documentID)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("resolve_document", err)
	}
	return rec.toModel(), nil
}

func (s *GormSource) SaveText(ctx context.Context, documentID, text string) error {
	result := s.db.WithContext(ctx).Model(&documentRecord{}).Where("id = ?", documentID).Update("content", text)
	if result.Error != nil {
		return apperrors.NewStoreError("save_document_text", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("document", documentID)
	}
	return nil
}

// Create registers a document that is already stored on disk.
func (s *GormSource) Create(ctx context.Context, doc *models.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	rec := documentRecord{
		ID:           doc.ID,
		Filename:     doc.Filename,
		OriginalName: doc.OriginalName,
		MimeType:     doc.MimeType,
		Path:         doc.Path,
		Size:         doc.Size,
		Kind:         string(doc.Kind),
		Content:      doc.CachedText,
		CreatedAt:    doc.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return apperrors.NewStoreError("create_document", err)
	}
	return nil
}

// MemorySource keeps documents in process; used by tests and single-node runs.
type MemorySource struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewMemorySource(docs ...models.Document) *MemorySource {
	s := &MemorySource{docs: make(map[string]models.Document, len(docs))}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *MemorySource) Resolve(ctx context.Context, documentID string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, apperrors.NewNotFoundError("document", documentID)
	}
	return &doc, nil
}

func (s *MemorySource) SaveText(ctx context.Context, documentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return apperrors.NewNotFoundError("document", documentID)
	}
	doc.CachedText = text
	s.docs[documentID] = doc
	return nil
}

func (s *MemorySource) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.docs[doc.ID] = *doc
	return nil
}

// Migrate creates or updates the document and job description tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&documentRecord{}, &jobDescriptionRecord{})
}
