package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/embedding"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/extract"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/vector"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/vectorstore"
)

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{".txt", ".md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
		{".rst", []string{".txt", ".md", ".rst"}, true},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func testPipeline(t *testing.T) (*Pipeline, *vectorstore.Store) {
	t.Helper()
	const dims = 64
	store, err := vectorstore.Open(context.Background(), vectorstore.Config{
		Backend: "bolt",
		Path:    filepath.Join(t.TempDir(), "store.db"),
		Index:   vector.DefaultConfig(dims),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewPipeline(store, embedding.NewHashEmbedder(dims), NewChunker(4, 1)), store
}

func TestPipeline_IngestText(t *testing.T) {
	ctx := context.Background()
	p, store := testPipeline(t)

	ids, err := p.Ingest(ctx, Document{
		Source:   "notes.txt",
		Text:     "  alpha beta gamma delta\n epsilon zeta eta  ",
		Provider: "acme",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d chunks, want 2", len(ids))
	}
	c, err := store.GetChunk(ctx, ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if c.Content != "delta epsilon zeta eta" {
		t.Errorf("content = %q", c.Content)
	}
	if c.Metadata.Source != "notes.txt" || c.Metadata.Provider == nil || *c.Metadata.Provider != "acme" {
		t.Errorf("metadata = %+v", c.Metadata)
	}

	more, err := p.IngestText(ctx, "other.txt", "theta iota")
	if err != nil {
		t.Fatal(err)
	}
	if more[0] != ids[1]+1 {
		t.Errorf("next id = %d, want %d", more[0], ids[1]+1)
	}
}

func TestPipeline_IngestEmptyText(t *testing.T) {
	p, _ := testPipeline(t)
	_, err := p.IngestText(context.Background(), "blank", " \n\t ")
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPipeline_IngestFile(t *testing.T) {
	ctx := context.Background()
	p, store := testPipeline(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte("tokenized bond compliance"), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := p.IngestFile(ctx, path, []string{".md"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := store.GetChunk(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if c.Metadata.Source != path {
		t.Errorf("source = %q, want %q", c.Metadata.Source, path)
	}

	if _, err := p.IngestFile(ctx, path, []string{".txt"}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("filtered extension: err = %v", err)
	}
	if _, err := p.IngestFile(ctx, dir, nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("directory: err = %v", err)
	}
	if _, err := p.IngestFile(ctx, filepath.Join(dir, "missing.md"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPipeline_IngestDirectory(t *testing.T) {
	ctx := context.Background()
	p, store := testPipeline(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "a.txt"): "first document text",
		filepath.Join(sub, "b.txt"): "second document text",
		filepath.Join(dir, "c.bin"): "ignored",
		filepath.Join(dir, "e.txt"): "",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := p.IngestDirectory(ctx, dir, []string{"txt"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("ingested %d files, want 2", n)
	}
	if store.Size() != 2 {
		t.Errorf("store size = %d, want 2", store.Size())
	}

	if _, err := p.IngestDirectory(ctx, filepath.Join(dir, "a.txt"), nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("file as dir: err = %v", err)
	}
}

func TestPipeline_IngestFileWithExtractor(t *testing.T) {
	ctx := context.Background()
	p, store := testPipeline(t)
	ex := extract.NewExtractor(extract.WithFormat(".csv", func(b []byte) (string, error) {
		return strings.ReplaceAll(string(b), ",", " "), nil
	}))
	WithExtractor(ex)(p)

	path := filepath.Join(t.TempDir(), "holders.csv")
	if err := os.WriteFile(path, []byte("fund,units,holder"), 0644); err != nil {
		t.Fatal(err)
	}
	ids, err := p.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := store.GetChunk(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if c.Content != "fund units holder" {
		t.Errorf("content = %q", c.Content)
	}

	bad := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(bad, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.IngestFile(ctx, bad, nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("broken docx: err = %v", err)
	}
}

func TestPipeline_IngestDirectorySkipsFilesWithoutText(t *testing.T) {
	ctx := context.Background()
	p, store := testPipeline(t)
	WithExtractor(extract.NewExtractor())(p)
	dir := t.TempDir()
	files := map[string]string{
		"a_blank.txt":  "   \n\t",
		"b_real.txt":   "subscription agreement for fund units",
		"c_broken.pdf": "not a pdf",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := p.IngestDirectory(ctx, dir, []string{".txt", ".pdf"})
	if err != nil {
		t.Fatalf("walk aborted: %v", err)
	}
	if n != 1 {
		t.Errorf("ingested %d files, want 1", n)
	}
	if store.Size() == 0 {
		t.Error("real file was not stored")
	}

	_, err = p.IngestText(ctx, "blank", "\x00 \u200b")
	if !errors.Is(err, ErrNoText) || !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrNoText and ErrInvalidInput", err)
	}
}

func TestPipeline_IngestWithProvider(t *testing.T) {
	ctx := context.Background()
	p, store := testPipeline(t)
	ex := extract.NewExtractor(extract.WithFormat(".csv", func(b []byte) (string, error) {
		return strings.ReplaceAll(string(b), ",", " "), nil
	}))
	WithExtractor(ex)(p)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "register.csv"), []byte("holder,units,jurisdiction"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := p.IngestDirectory(ctx, dir, nil, WithProvider("registrar"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("ingested %d files, want 1", n)
	}
	c, err := store.GetChunk(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Content != "holder units jurisdiction" {
		t.Errorf("content = %q, want extracted text", c.Content)
	}
	if c.Metadata.Provider == nil || *c.Metadata.Provider != "registrar" {
		t.Errorf("provider = %v", c.Metadata.Provider)
	}
}
