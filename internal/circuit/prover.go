// Package circuit models the proving collaborator: an environment without
// floating point that recomputes the relevance decision from the same inputs
// and commits (document hash, is relevant, similarity) as its public journal.
//
// GuestProver is an independent implementation of the decision on
// arbitrary-precision integers. It produces no cryptographic proof; it exists
// so the host evaluator can be checked against a second implementation.
package circuit

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// ErrJournalMismatch indicates a receipt's journal disagrees with the expected result.
var ErrJournalMismatch = errors.New("journal mismatch")

// Inputs are the values handed to the guest.
type Inputs struct {
	Query        []float32
	Candidate    []float32
	Threshold    float32
	DocumentHash models.DocumentHash
}

// Receipt is the output of one proving run.
type Receipt struct {
	ID      uuid.UUID
	Journal []byte
}

// Result decodes the receipt's journal.
func (r *Receipt) Result() (models.RelevanceResult, error) {
	return models.DecodeJournal(r.Journal)
}

// JournalHex returns the journal as lowercase hex.
func (r *Receipt) JournalHex() string {
	return hex.EncodeToString(r.Journal)
}

// Prover recomputes the relevance decision and commits to it.
type Prover interface {
	Prove(ctx context.Context, in Inputs) (*Receipt, error)
}

// GuestProver implements Prover with integer-only arithmetic.
type GuestProver struct {
	logger *zap.Logger
}

// Option configures a GuestProver.
type Option func(*GuestProver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *GuestProver) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewGuestProver returns a GuestProver.
func NewGuestProver(opts ...Option) *GuestProver {
	p := &GuestProver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prove runs the guest computation and returns a receipt whose journal holds
// the committed result.
func (p *GuestProver) Prove(ctx context.Context, in Inputs) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in.Query) != len(in.Candidate) {
		return nil, fmt.Errorf("%w: query has %d components, candidate has %d",
			models.ErrDimensionMismatch, len(in.Query), len(in.Candidate))
	}

	query, satQ := decodeVector(in.Query)
	candidate, satC := decodeVector(in.Candidate)
	threshold, satT := decodeFloat32(math.Float32bits(in.Threshold))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sim, satSim := cosineRaw(query, candidate)
	relevant := sim.Cmp(threshold) >= 0
	if satQ || satC || satT || satSim {
		p.logger.Warn("guest arithmetic saturated",
			zap.Error(models.ErrArithmeticOverflow),
			zap.Stringer("document_hash", in.DocumentHash))
	}

	journal := make([]byte, 0, models.JournalSize)
	journal = append(journal, in.DocumentHash[:]...)
	if relevant {
		journal = append(journal, 1)
	} else {
		journal = append(journal, 0)
	}
	bitsLE := encodeFloat32(sim)
	journal = append(journal, byte(bitsLE), byte(bitsLE>>8), byte(bitsLE>>16), byte(bitsLE>>24))

	receipt := &Receipt{ID: uuid.New(), Journal: journal}
	p.logger.Debug("guest run complete",
		zap.String("receipt_id", receipt.ID.String()),
		zap.Bool("is_relevant", relevant))
	return receipt, nil
}

func decodeVector(v []float32) ([]*big.Int, bool) {
	out := make([]*big.Int, len(v))
	var saturated bool
	for i, f := range v {
		raw, sat := decodeFloat32(math.Float32bits(f))
		out[i] = raw
		saturated = saturated || sat
	}
	return out, saturated
}

// VerifyJournal reports whether receipt commits exactly to expected.
func VerifyJournal(receipt *Receipt, expected models.RelevanceResult) error {
	if receipt == nil {
		return fmt.Errorf("%w: nil receipt", models.ErrInvalidInput)
	}
	want := expected.Journal()
	if !bytes.Equal(receipt.Journal, want) {
		return fmt.Errorf("%w: receipt %s has %x, expected %x", ErrJournalMismatch, receipt.ID, receipt.Journal, want)
	}
	return nil
}

var _ Prover = (*GuestProver)(nil)
