// Package extract turns document files into plain text for ingestion.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// DefaultMaxBytes bounds the size of a file handed to Extract.
const DefaultMaxBytes int64 = 64 << 20

// Func extracts text from the raw bytes of one document.
type Func func(content []byte) (string, error)

// Extractor dispatches on file extension. Unknown extensions are read as
// plain text.
type Extractor struct {
	formats  map[string]Func
	maxBytes int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes overrides DefaultMaxBytes. Zero or less disables the limit.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) { e.maxBytes = n }
}

// WithFormat registers fn for ext, replacing any built-in handler.
func WithFormat(ext string, fn Func) Option {
	return func(e *Extractor) { e.formats[normalizeExt(ext)] = fn }
}

// NewExtractor returns an Extractor with handlers for plain text, PDF, Excel,
// and the zipped XML office formats.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		formats: map[string]Func{
			".txt":  plainText,
			".md":   plainText,
			".rst":  plainText,
			".pdf":  extractPDF,
			".xlsx": extractExcel,
			".docx": extractDOCX,
			".pptx": extractPPTX,
			".odt":  extractODT,
			".odp":  extractODP,
			".ods":  extractODS,
		},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extensions lists the registered extensions in sorted order.
func (e *Extractor) Extensions() []string {
	exts := make([]string, 0, len(e.formats))
	for ext := range e.formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", models.ErrInvalidInput, path, info.Size(), e.maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content according to ext, which may be
// given with or without the leading dot.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	fn, ok := e.formats[normalizeExt(ext)]
	if !ok {
		fn = plainText
	}
	text, err := fn(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return text, nil
}

// plainText replaces invalid UTF-8 sequences with U+FFFD.
func plainText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	return strings.ToValidUTF8(string(content), "\uFFFD"), nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
