// Package cli provides output formatting for the zkrag command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/pkg/utils"
)

// OutputFormat selects how command results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("%w: unknown output format %q; use text or json", models.ErrInvalidInput, s)
}

// SearchOutput is the result of a search, as returned by POST /api/v1/search.
type SearchOutput struct {
	Query  string             `json:"query,omitempty"`
	Hits   []models.SearchHit `json:"hits"`
	TookMs int64              `json:"took_ms"`
}

// Receipt identifies a proving run and its committed journal.
type Receipt struct {
	ID      string `json:"id"`
	Journal string `json:"journal"`
}

// EvaluationOutput is the result of a relevance evaluation, as returned by
// POST /api/v1/evaluate.
type EvaluationOutput struct {
	Result  models.RelevanceResult `json:"result"`
	Journal string                 `json:"journal"`
	Hit     *models.SearchHit      `json:"hit,omitempty"`
	Receipt *Receipt               `json:"receipt,omitempty"`
}

// StatusConfig is the configuration block of a status report.
type StatusConfig struct {
	StorageBackend string  `json:"storage_backend"`
	StoragePath    string  `json:"storage_path"`
	Normalize      bool    `json:"normalize"`
	M              int     `json:"m"`
	EfSearch       int     `json:"ef_search"`
	ChunkSize      int     `json:"chunk_size"`
	ChunkOverlap   int     `json:"chunk_overlap"`
	Threshold      float32 `json:"threshold"`
	ProverEnabled  bool    `json:"prover_enabled"`
}

// StatusOutput is the shape of GET /api/v1/status.
type StatusOutput struct {
	IndexSize      int           `json:"index_size"`
	Records        uint64        `json:"records"`
	Dimensions     int           `json:"dimensions"`
	DiskUsageBytes int64         `json:"disk_usage_bytes"`
	Config         *StatusConfig `json:"config,omitempty"`
}

// WriteSearch writes search hits to w in the given format.
func WriteSearch(w io.Writer, out *SearchOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(out.Hits), out.TookMs)
	for rank, hit := range out.Hits {
		writeHit(w, rank+1, hit)
	}
	return nil
}

func writeHit(w io.Writer, rank int, hit models.SearchHit) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | ID: %d | Distance: %.4f\n", rank, hit.ID, hit.Distance)
	if hit.Chunk.Metadata.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", hit.Chunk.Metadata.Source)
	}
	if hit.Chunk.Metadata.Provider != nil {
		fmt.Fprintf(w, "Provider: %s\n", *hit.Chunk.Metadata.Provider)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(hit.Chunk.Content, 200))
}

// WriteEvaluation writes a relevance evaluation to w in the given format.
func WriteEvaluation(w io.Writer, out *EvaluationOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	verdict := "not relevant"
	if out.Result.IsRelevant {
		verdict = "relevant"
	}
	fmt.Fprintf(w, "verdict:        %s\n", verdict)
	fmt.Fprintf(w, "similarity:     %.6f\n", out.Result.Similarity)
	fmt.Fprintf(w, "document_hash:  %s\n", out.Result.DocumentHash)
	if out.Result.Saturated {
		fmt.Fprintln(w, "saturated:      true   # fixed-point arithmetic clamped")
	}
	fmt.Fprintf(w, "journal:        %s\n", out.Journal)
	if out.Hit != nil {
		fmt.Fprintf(w, "candidate:      %d (%s)\n", out.Hit.ID, out.Hit.Chunk.Metadata.Source)
		fmt.Fprintf(w, "                %s\n", TruncateWords(out.Hit.Chunk.Content, 16))
	}
	if out.Receipt != nil {
		fmt.Fprintf(w, "receipt:        %s\n", out.Receipt.ID)
	}
	return nil
}

// WriteStatus writes a status report to w in the given format.
func WriteStatus(w io.Writer, st *StatusOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "records:            %d   # chunks persisted\n", st.Records)
	fmt.Fprintf(w, "index_size:         %d   # points in the HNSW index\n", st.IndexSize)
	fmt.Fprintf(w, "dimensions:         %d\n", st.Dimensions)
	fmt.Fprintf(w, "disk_usage_bytes:   %d\n", st.DiskUsageBytes)
	if st.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "storage_backend:    %s\n", st.Config.StorageBackend)
		if st.Config.StoragePath != "" {
			fmt.Fprintf(w, "storage_path:       %s\n", st.Config.StoragePath)
		}
		fmt.Fprintf(w, "normalize:          %t\n", st.Config.Normalize)
		fmt.Fprintf(w, "m:                  %d\n", st.Config.M)
		fmt.Fprintf(w, "ef_search:          %d\n", st.Config.EfSearch)
		fmt.Fprintf(w, "chunk_size:         %d\n", st.Config.ChunkSize)
		fmt.Fprintf(w, "chunk_overlap:      %d\n", st.Config.ChunkOverlap)
		fmt.Fprintf(w, "threshold:          %g\n", st.Config.Threshold)
		fmt.Fprintf(w, "prover_enabled:     %t\n", st.Config.ProverEnabled)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
