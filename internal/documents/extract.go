// internal/documents/extract.go
package documents

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"

	"github.com/nguyenthenguyen/docx"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
)

var extensionMime = map[string]string{
	".pdf":      MimePDF,
	".docx":     MimeDOCX,
	".txt":      MimeText,
	".md":       MimeMarkdown,
	".markdown": MimeMarkdown,
}

// Extractor turns a stored file into plain text.
type Extractor interface {
	Extract(ctx context.Context, path, mimeType string) (string, error)
}

type FileExtractor struct {
	logger logger.Logger
}

func NewFileExtractor(log logger.Logger) *FileExtractor {
	return &FileExtractor{logger: log.WithFields(map[string]interface{}{"component": "text-extractor"})}
}

// ConfigurePDFLicense registers a unidoc metered key; PDF extraction needs it.
func ConfigurePDFLicense(key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set unidoc license: %w", err)
	}
	return nil
}

func (e *FileExtractor) Extract(ctx context.Context, path, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NewNotFoundError("document file", path)
		}
		return "", apperrors.NewParseError(fmt.Sprintf("stat %s", path), err)
	}
	if info.IsDir() {
		return "", apperrors.NewParseError(fmt.Sprintf("%s is a directory", path), nil)
	}

	kind := DetectMime(mimeType, path)
	var text string
	switch kind {
	case MimePDF:
		text, err = extractPDF(path)
	case MimeDOCX:
		text, err = extractDOCX(path)
	case MimeText, MimeMarkdown:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	default:
		return "", apperrors.NewUnsupportedTypeError(mimeType)
	}
	if err != nil {
		return "", apperrors.NewParseError(fmt.Sprintf("failed to read %s as %s", filepath.Base(path), kind), err)
	}

	text = NormalizeText(text)
	if text == "" {
		return "", apperrors.NewEmptyContentError(path)
	}

	e.logger.Debug("Text extracted", map[string]interface{}{
		"path":     path,
		"mimeType": kind,
		"chars":    len(text),
	})
	return text, nil
}

// DetectMime strips parameters from mimeType and falls back to the file
// extension when the type is missing or generic.
func DetectMime(mimeType, path string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" || mt == "application/octet-stream" {
		if byExt, ok := extensionMime[strings.ToLower(filepath.Ext(path))]; ok {
			return byExt
		}
	}
	return mt
}

func extractPDF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("count pages: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("page %d extractor: %w", i, err)
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("page %d text: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return docxText(r.Editable().GetContent()), nil
}

var (
	docxBreaks = strings.NewReplacer("</w:p>", "\n", "<w:br/>", "\n", "<w:tab/>", " ")
	xmlTag     = regexp.MustCompile(`<[^>]+>`)
)

// docxText flattens WordprocessingML body XML into paragraphs.
func docxText(content string) string {
	s := docxBreaks.Replace(content)
	s = xmlTag.ReplaceAllString(s, "")
	return html.UnescapeString(s)
}

// NormalizeText collapses runs of whitespace and keeps at most one blank
// line between paragraphs.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")

	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
