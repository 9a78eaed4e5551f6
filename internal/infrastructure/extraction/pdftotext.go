package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrUnsupportedDocument is returned for bytes that are neither PDF nor plain text
	ErrUnsupportedDocument = errors.New("unsupported document format")
	// ErrNoText is returned when a document yields no text
	ErrNoText = errors.New("document contains no extractable text")
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// IsPlainText reports whether data is valid UTF-8 without NUL bytes
func IsPlainText(data []byte) bool {
	return len(data) > 0 && utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

// PDFTextExtractor extracts text with poppler's pdftotext. Plain text
// documents are passed through unchanged.
type PDFTextExtractor struct {
	binary  string
	tempDir string
	runner  CommandRunner
}

var _ providers.TextExtractor = (*PDFTextExtractor)(nil)

// NewPDFTextExtractor creates an extractor. A nil runner uses os/exec.
func NewPDFTextExtractor(cfg *config.ExtractionConfig, runner CommandRunner) *PDFTextExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	binary := cfg.PdftotextPath
	if binary == "" {
		binary = "pdftotext"
	}
	return &PDFTextExtractor{
		binary:  binary,
		tempDir: cfg.TempDir,
		runner:  runner,
	}
}

// Extract returns the text of document. The caller's bytes are never modified.
func (e *PDFTextExtractor) Extract(ctx context.Context, document []byte) (string, error) {
	ctx, span := observability.StartSpan(ctx, "extraction.extract")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.Int("document.bytes", len(document)))

	var (
		text string
		err  error
	)
	switch {
	case IsPDF(document):
		text, err = e.pdfToText(ctx, document)
	case IsPlainText(document):
		text = string(document)
	default:
		err = ErrUnsupportedDocument
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrNoText
	}
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	return text, nil
}

// pdfToText writes the document to a scoped temporary file that is removed
// on every return path.
func (e *PDFTextExtractor) pdfToText(ctx context.Context, document []byte) (string, error) {
	tmp, err := os.CreateTemp(e.tempDir, "report-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("path", path).Msg("failed to remove temporary file")
		}
	}()

	if _, err := tmp.Write(document); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.binary, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("pdftotext failed: %s: %w", truncate(msg, 512), err)
	}

	// pdftotext separates pages with form feeds
	return strings.ReplaceAll(string(out), "\f", "\n"), nil
}
