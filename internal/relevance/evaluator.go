// Package relevance decides whether a candidate chunk is relevant to a query
// using fixed-point cosine similarity. The decision is computed entirely in
// fixed point so that a constrained proving environment recomputing it from
// the same inputs reaches the same result.
package relevance

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/fixedpoint"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/metrics"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// DefaultThreshold is the similarity at or above which a candidate is relevant.
const DefaultThreshold float32 = 0.7

// Evaluator is stateless apart from its logger and metrics.
type Evaluator struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used to report saturating arithmetic.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records every decision.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// NewEvaluator returns an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decision is the fixed-point outcome of one comparison.
type Decision struct {
	Similarity fixedpoint.Scalar
	Threshold  fixedpoint.Scalar
	IsRelevant bool
	Saturated  bool
}

// Decide converts query, candidate and threshold to fixed point, computes
// their cosine similarity and compares it against the threshold without
// leaving fixed point.
func Decide(query, candidate []float32, threshold float32) (Decision, error) {
	if len(query) != len(candidate) {
		return Decision{}, fmt.Errorf("%w: query has %d components, candidate has %d",
			models.ErrDimensionMismatch, len(query), len(candidate))
	}
	q, satQ := fixedpoint.ToFixed(query)
	c, satC := fixedpoint.ToFixed(candidate)
	t, satT := fixedpoint.FromFloat(float64(threshold))
	sim, satSim := fixedpoint.CosineSimilarity(q, c)
	return Decision{
		Similarity: sim,
		Threshold:  t,
		IsRelevant: sim >= t,
		Saturated:  satQ || satC || satT || satSim,
	}, nil
}

// Evaluate decides relevance of candidate to query and binds the result to
// documentHash. The Similarity field is the fixed-point value widened for
// display; it plays no part in the decision.
func (e *Evaluator) Evaluate(query, candidate []float32, threshold float32, documentHash models.DocumentHash) (models.RelevanceResult, error) {
	d, err := Decide(query, candidate, threshold)
	if err != nil {
		return models.RelevanceResult{}, err
	}
	if d.Saturated {
		e.logger.Warn("fixed-point arithmetic saturated",
			zap.Error(models.ErrArithmeticOverflow),
			zap.Stringer("document_hash", documentHash),
			zap.Int("dimensions", len(query)),
			zap.Float32("threshold", threshold))
	}
	e.metrics.Evaluated(d.IsRelevant, d.Saturated)
	return models.RelevanceResult{
		DocumentHash: documentHash,
		IsRelevant:   d.IsRelevant,
		Similarity:   d.Similarity.Float32(),
		Saturated:    d.Saturated,
	}, nil
}
