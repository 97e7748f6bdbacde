package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/circuit"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/indexer"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

type ingestRequest struct {
	Source   string `json:"source"`
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
}

type ingestResponse struct {
	Source string            `json:"source"`
	IDs    []models.RecordID `json:"ids"`
}

type searchRequest struct {
	Query  string    `json:"query,omitempty"`
	Vector []float32 `json:"vector,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

type searchResponse struct {
	Hits   []models.SearchHit `json:"hits"`
	TookMs int64              `json:"took_ms"`
}

type evaluateRequest struct {
	Query        string               `json:"query,omitempty"`
	Vector       []float32            `json:"vector,omitempty"`
	Candidate    []float32            `json:"candidate,omitempty"`
	DocumentHash *models.DocumentHash `json:"document_hash,omitempty"`
	Threshold    *float32             `json:"threshold,omitempty"`
	Prove        bool                 `json:"prove,omitempty"`
}

type receiptResponse struct {
	ID      string `json:"id"`
	Journal string `json:"journal"`
}

type evaluateResponse struct {
	Result  models.RelevanceResult `json:"result"`
	Journal string                 `json:"journal"`
	Hit     *models.SearchHit      `json:"hit,omitempty"`
	Receipt *receiptResponse       `json:"receipt,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		s.respondError(w, http.StatusBadRequest, "source is required")
		return
	}
	s.logger.Debug("ingest request", zap.String("source", req.Source), zap.Int("bytes", len(req.Text)))
	ids, err := s.pipeline.Ingest(r.Context(), indexer.Document{
		Source:   req.Source,
		Text:     req.Text,
		Provider: req.Provider,
	})
	if err != nil {
		s.fail(w, "ingest failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, ingestResponse{Source: req.Source, IDs: ids})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start := time.Now()
	query, err := s.queryVector(r.Context(), req.Query, req.Vector)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	hits, err := s.store.SearchHits(r.Context(), query, s.limit(req.Limit))
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	if hits == nil {
		hits = []models.SearchHit{}
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Hits: hits, TookMs: time.Since(start).Milliseconds()})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prove && s.prover == nil {
		s.respondError(w, http.StatusNotImplemented, "prover not enabled")
		return
	}
	ctx := r.Context()
	query, err := s.queryVector(ctx, req.Query, req.Vector)
	if err != nil {
		s.fail(w, "evaluate failed", err)
		return
	}
	threshold := s.config.Relevance.ThresholdOrDefault()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	var (
		resp      evaluateResponse
		candidate []float32
	)
	if len(req.Candidate) > 0 {
		candidate = req.Candidate
		var hash models.DocumentHash
		if req.DocumentHash != nil {
			hash = *req.DocumentHash
		}
		resp.Result, err = s.evaluator.Evaluate(query, candidate, threshold, hash)
	} else {
		var hit models.SearchHit
		hit, resp.Result, err = s.store.Evaluate(ctx, query, threshold)
		if err == nil {
			resp.Hit = &hit
			candidate, err = s.store.GetVector(ctx, hit.ID)
		}
	}
	if err != nil {
		s.fail(w, "evaluate failed", err)
		return
	}
	resp.Journal = fmt.Sprintf("%x", resp.Result.Journal())

	if req.Prove {
		receipt, err := s.prover.Prove(ctx, circuit.Inputs{
			Query:        query,
			Candidate:    candidate,
			Threshold:    threshold,
			DocumentHash: resp.Result.DocumentHash,
		})
		if err != nil {
			s.fail(w, "prove failed", err)
			return
		}
		if err := circuit.VerifyJournal(receipt, resp.Result); err != nil {
			s.logger.Error("receipt disagrees with host result",
				zap.String("request_id", RequestID(ctx)),
				zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Receipt = &receiptResponse{ID: receipt.ID.String(), Journal: receipt.JournalHex()}
		if resp.Hit != nil {
			resp.Hit.Chunk = resp.Hit.Chunk.WithProofID(resp.Receipt.ID)
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid chunk id")
		return
	}
	chunk, err := s.store.GetChunk(r.Context(), id)
	if err != nil {
		s.fail(w, "get chunk failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, "status failed", err)
		return
	}
	resp := map[string]interface{}{
		"index_size":       stats.IndexSize,
		"records":          stats.Records,
		"dimensions":       stats.Dimensions,
		"disk_usage_bytes": stats.DiskBytes,
	}
	resp["config"] = map[string]interface{}{
		"storage_backend": s.config.Storage.Backend,
		"storage_path":    stats.Path,
		"normalize":       s.config.Index.NormalizeOrDefault(),
		"m":               s.config.Index.M,
		"ef_search":       s.config.Index.EfSearch,
		"chunk_size":      s.config.Chunking.ChunkSize,
		"chunk_overlap":   s.config.Chunking.ChunkOverlap,
		"threshold":       s.config.Relevance.ThresholdOrDefault(),
		"prover_enabled":  s.prover != nil,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// queryVector returns vector when given, otherwise the embedding of text.
func (s *Server) queryVector(ctx context.Context, text string, vector []float32) ([]float32, error) {
	if len(vector) > 0 {
		return vector, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query or vector is required", models.ErrInvalidInput)
	}
	return s.embedder.Embed(ctx, text)
}

func (s *Server) limit(requested int) int {
	n := requested
	if n <= 0 {
		n = s.config.Search.DefaultLimit
	}
	if maxLimit := s.config.Search.MaxLimit; maxLimit > 0 && n > maxLimit {
		n = maxLimit
	}
	return n
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrDimensionMismatch),
		errors.Is(err, models.ErrLengthMismatch):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrClosed),
		errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
