package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/embedding"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/extract"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// ErrNoText marks a document that yields no words after preprocessing, such
// as a blank file or a scanned PDF without a text layer.
var ErrNoText = errors.New("no text")

// ChunkStore is the write side of the vector store.
type ChunkStore interface {
	AddChunks(ctx context.Context, chunks []models.DocumentChunk, embeddings [][]float32) ([]models.RecordID, error)
}

// Document is raw text plus the metadata copied onto each of its chunks.
type Document struct {
	Source   string
	Text     string
	Provider string
}

// Pipeline chunks documents, embeds the chunks and stores them.
type Pipeline struct {
	store     ChunkStore
	embedder  embedding.Embedder
	chunker   *Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithExtractor sets how files are turned into text. Without one, files are
// read as UTF-8 text.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// FileOption adjusts the document built from a file.
type FileOption func(*Document)

// WithProvider records provider in the metadata of every chunk of the file.
func WithProvider(provider string) FileOption {
	return func(d *Document) { d.Provider = provider }
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(store ChunkStore, embedder embedding.Embedder, chunker *Chunker, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest splits doc, embeds every chunk in one batch and stores them. The
// embedding call happens before the store is locked.
func (p *Pipeline) Ingest(ctx context.Context, doc Document) ([]models.RecordID, error) {
	chunks := p.chunker.Split(Preprocess(doc.Text), 0)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %q has %w", models.ErrInvalidInput, doc.Source, ErrNoText)
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].Metadata.Source = doc.Source
		if doc.Provider != "" {
			chunks[i] = chunks[i].WithProvider(doc.Provider)
		}
		texts[i] = chunks[i].Content
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", doc.Source, err)
	}
	ids, err := p.store.AddChunks(ctx, chunks, embeddings)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("document ingested",
		zap.String("source", doc.Source),
		zap.Int("chunks", len(ids)))
	return ids, nil
}

// IngestText ingests text under source.
func (p *Pipeline) IngestText(ctx context.Context, source, text string) ([]models.RecordID, error) {
	return p.Ingest(ctx, Document{Source: source, Text: text})
}

// IngestFile reads a regular file and ingests it with its absolute path as
// source. When allowedExts is non-empty, the extension must be in the list
// (case-insensitive). Text comes from the extractor when one is set.
func (p *Pipeline) IngestFile(ctx context.Context, path string, allowedExts []string, opts ...FileOption) ([]models.RecordID, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("%w: extension %q not in allowed list", models.ErrInvalidInput, ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", models.ErrInvalidInput, absPath)
	}
	text, err := p.readText(absPath)
	if err != nil {
		return nil, err
	}
	doc := Document{Source: absPath, Text: text}
	for _, opt := range opts {
		opt(&doc)
	}
	p.logger.Debug("ingesting file", zap.String("path", absPath))
	return p.Ingest(ctx, doc)
}

// IngestDirectory walks dir recursively and ingests each regular file whose
// extension is allowed. Files that are empty, have no text or cannot be
// parsed are logged and skipped; any other error stops the walk. It returns
// the number of files ingested.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string, allowedExts []string, opts ...FileOption) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: not a directory: %s", models.ErrInvalidInput, absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if finfo.Size() == 0 {
			return nil
		}
		if _, ingestErr := p.IngestFile(ctx, path, allowedExts, opts...); ingestErr != nil {
			if errors.Is(ingestErr, models.ErrInvalidInput) {
				p.logger.Warn("skipping file", zap.String("path", path), zap.Error(ingestErr))
				return nil
			}
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

func (p *Pipeline) readText(path string) (string, error) {
	if p.extractor != nil {
		return p.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(content), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
