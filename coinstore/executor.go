package coinstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/bits"

	"golang.org/x/sync/errgroup"

	"github.com/TEENet-io/coin-store/blinding"
	"github.com/TEENet-io/coin-store/elements"
	"github.com/TEENet-io/coin-store/program"
)

// Query evaluates the filters concurrently. Results are aligned with filters.
// Programs of contract outputs are compiled at most once per call.
func (s *Store) Query(ctx context.Context, filters []*Filter) ([]*QueryResult, error) {
	pctx := program.NewContext(s.cfg.Compiler, s.programs)
	results := make([]*QueryResult, len(filters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentFilters)
	for i, f := range filters {
		i, f := i, f
		if f == nil {
			f = NewFilter()
		}
		g.Go(func() error {
			r, err := s.queryFilter(gctx, pctx, f)
			if err != nil {
				return fmt.Errorf("filter %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	err := g.Wait()

	prometheusQueries.Add(float64(len(filters)))
	prometheusProgramCompiles.Add(float64(pctx.Compiled()))
	prometheusProgramReuses.Add(float64(pctx.Reused()))

	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) queryFilter(ctx context.Context, pctx *program.Context, f *Filter) (*QueryResult, error) {
	if f.RequiredValue == nil || f.Limit > 0 {
		return s.queryAll(ctx, pctx, f)
	}
	return s.queryUntilSufficient(ctx, pctx, f, *f.RequiredValue)
}

// queryAll runs one select bounded by the filter's limit.
func (s *Store) queryAll(ctx context.Context, pctx *program.Context, f *Filter) (*QueryResult, error) {
	entries, err := s.fetch(ctx, pctx, buildPlan(f, f.Limit, 0))
	if err != nil {
		return nil, err
	}

	total, err := sumValues(entries)
	if err != nil {
		return nil, err
	}

	r := &QueryResult{Entries: entries, Total: total}
	switch {
	case len(entries) == 0:
		r.Status = ResultEmpty
	case f.RequiredValue == nil || total >= *f.RequiredValue:
		r.Status = ResultFound
	default:
		r.Status = ResultInsufficientValue
	}
	return r, nil
}

// queryUntilSufficient pages through matching outputs, largest first, and
// stops at the first prefix whose sum reaches required.
func (s *Store) queryUntilSufficient(ctx context.Context, pctx *program.Context, f *Filter, required uint64) (*QueryResult, error) {
	var (
		entries []*Entry
		total   uint64
		carry   uint64
	)

	for offset := 0; ; offset += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := s.fetch(ctx, pctx, buildPlan(f, s.cfg.BatchSize, offset))
		if err != nil {
			return nil, err
		}

		for _, e := range batch {
			entries = append(entries, e)
			total, carry = bits.Add64(total, e.Value, 0)
			if carry != 0 {
				return nil, ErrValueOverflow
			}
			if total >= required {
				return &QueryResult{Status: ResultFound, Entries: entries, Total: total}, nil
			}
		}

		if len(batch) < s.cfg.BatchSize {
			break
		}
	}

	if len(entries) == 0 {
		return &QueryResult{Status: ResultEmpty}, nil
	}
	return &QueryResult{Status: ResultInsufficientValue, Entries: entries, Total: total}, nil
}

// coinRow is one scanned row of a plan. Columns not joined scan as NULL.
type coinRow struct {
	txid         []byte
	vout         int64
	serialized   []byte
	witness      []byte
	assetID      []byte
	value        int64
	confidential bool
	spent        bool
	blindingKey  []byte

	entropyAsset        []byte
	entropyToken        []byte
	entropyConfidential sql.NullBool
	entropy             []byte

	derivation     sql.NullString
	contractScript []byte
	commitmentRoot []byte
	sourceHash     []byte
	arguments      []byte
	metadata       []byte
	source         []byte
}

func (r *coinRow) dest() []interface{} {
	return []interface{}{
		&r.txid, &r.vout, &r.serialized, &r.witness, &r.assetID, &r.value, &r.confidential, &r.spent, &r.blindingKey,
		&r.entropyAsset, &r.entropyToken, &r.entropyConfidential, &r.entropy,
		&r.derivation, &r.contractScript, &r.commitmentRoot, &r.sourceHash, &r.arguments, &r.metadata, &r.source,
	}
}

// fetch runs one plan. Rows are read first and resolved after the result set
// is closed so that unblinding and compiling never hold a connection.
func (s *Store) fetch(ctx context.Context, pctx *program.Context, p *plan) ([]*Entry, error) {
	stmt, err := s.stmtCache.Prepare(ctx, p.query)
	if err != nil {
		return nil, err
	}
	prometheusQueryBatches.Inc()

	rows, err := stmt.QueryContext(ctx, p.args...)
	if err != nil {
		return nil, err
	}

	var raw []*coinRow
	for rows.Next() {
		r := &coinRow{}
		if err := rows.Scan(r.dest()...); err != nil {
			rows.Close()
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	entries := make([]*Entry, 0, len(raw))
	for _, r := range raw {
		e, err := s.rowToEntry(pctx, r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) rowToEntry(pctx *program.Context, r *coinRow) (*Entry, error) {
	txid, err := elements.HashFromBytes(r.txid)
	if err != nil {
		return nil, fmt.Errorf("%w: txid: %v", ErrCorrupted, err)
	}
	op := elements.NewOutPoint(txid, uint32(r.vout))

	out, err := elements.DeserializeTxOut(r.serialized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s output: %v", ErrCorrupted, op, err)
	}
	if r.witness != nil {
		witness, err := elements.DeserializeTxOutWitness(r.witness)
		if err != nil {
			return nil, fmt.Errorf("%w: %s witness: %v", ErrCorrupted, op, err)
		}
		out.Witness = *witness
	}

	if len(r.assetID) != elements.AssetIDLen || r.value < 0 {
		return nil, fmt.Errorf("%w: %s asset or value column", ErrCorrupted, op)
	}

	e := &Entry{
		OutPoint:       op,
		TxOut:          out,
		Value:          uint64(r.value),
		IsConfidential: r.confidential,
		IsSpent:        r.spent,
	}
	copy(e.Asset[:], r.assetID)

	if r.confidential {
		if r.blindingKey == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingBlinderKey, op)
		}
		if r.witness == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingWitness, op)
		}
		key, err := blinding.ParseKey(r.blindingKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupted, op, err)
		}
		secrets, err := s.cfg.Unblinder.Unblind(r.serialized, r.witness, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if secrets.Asset != e.Asset || secrets.Value != e.Value {
			return nil, fmt.Errorf("%w: %s unblinded secrets differ from stored asset and value", ErrCorrupted, op)
		}
		e.Secrets = secrets
	}

	if r.entropy != nil {
		if e.Entropy, err = rowToEntropy(r); err != nil {
			return nil, fmt.Errorf("%w: %s entropy: %v", ErrCorrupted, op, err)
		}
	}

	if r.derivation.Valid {
		if e.Contract, err = rowToContract(pctx, r); err != nil {
			return nil, fmt.Errorf("%s contract: %w", op, err)
		}
	}

	return e, nil
}

func rowToEntropy(r *coinRow) (*IssuanceEntropy, error) {
	if len(r.entropyAsset) != elements.AssetIDLen || len(r.entropyToken) != elements.AssetIDLen || len(r.entropy) != 32 {
		return nil, errors.New("unexpected column length")
	}
	ie := &IssuanceEntropy{IsConfidential: r.entropyConfidential.Bool}
	copy(ie.AssetID[:], r.entropyAsset)
	copy(ie.TokenID[:], r.entropyToken)
	copy(ie.Entropy[:], r.entropy)
	return ie, nil
}

func rowToContract(pctx *program.Context, r *coinRow) (*ContractInfo, error) {
	info, err := newContractInfo(r.derivation.String, r.contractScript, r.commitmentRoot, r.sourceHash, r.source, r.arguments, r.metadata)
	if err != nil {
		return nil, err
	}

	prog, err := pctx.Program(info.Source, r.arguments)
	if err != nil {
		return nil, err
	}
	if prog.CommitmentRoot() != info.CommitmentRoot {
		return nil, fmt.Errorf("%w: commitment root of %s", ErrCorrupted, info.Derivation)
	}
	info.Program = prog
	return info, nil
}

func sumValues(entries []*Entry) (uint64, error) {
	var total, carry uint64
	for _, e := range entries {
		total, carry = bits.Add64(total, e.Value, 0)
		if carry != 0 {
			return 0, ErrValueOverflow
		}
	}
	return total, nil
}
