// Package importer turns parsed statements into ledger rows, skipping rows
// that were already imported from the same file.
package importer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/wallet/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the slice of the ledger repository the importer writes through
type Store interface {
	WithTransaction(fn func(tx *sql.Tx) error) error
	Exists(tx *sql.Tx, t domain.Transaction) (bool, error)
	Insert(tx *sql.Tx, t domain.Transaction) (int64, error)
}

// Result reports the outcome of one import call
type Result struct {
	BatchID    string        `json:"batch_id"`
	Source     domain.Source `json:"source"`
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
}

// Messages returns the user facing summary of the import
func (r *Result) Messages() []string {
	msgs := []string{
		fmt.Sprintf("Rows Added: %d", r.Added),
		fmt.Sprintf("Duplicated rows discarded: %d", r.Duplicates),
	}
	if r.Failed > 0 {
		msgs = append(msgs, fmt.Sprintf("Rows failed: %d", r.Failed))
	}
	return msgs
}

// Importer writes statements into the ledger
type Importer struct {
	store Store
	log   zerolog.Logger
}

// NewImporter creates an importer writing through store
func NewImporter(store Store, log zerolog.Logger) *Importer {
	return &Importer{
		store: store,
		log:   log.With().Str("service", "importer").Logger(),
	}
}

// Import normalizes every row of table, tags it with its origin id and inserts
// the rows not seen before. All rows are committed together at the end; a row
// that fails is logged, counted and skipped. A missing required column fails the
// call before anything is written.
func (i *Importer) Import(ctx context.Context, source domain.Source, table *Table, originPath string) (*Result, error) {
	normalize, ok := normalizers[source]
	if !ok {
		return nil, fmt.Errorf("unknown transaction source: %q", source)
	}
	if err := table.Require(RequiredColumns[source]...); err != nil {
		return nil, fmt.Errorf("cannot import %s as %s: %w", originPath, source, err)
	}

	fileHash, err := HashFile(originPath)
	if err != nil {
		return nil, err
	}

	result := &Result{BatchID: uuid.NewString(), Source: source}
	log := i.log.With().Str("source", string(source)).Str("batch", result.BatchID).Logger()

	err = i.store.WithTransaction(func(tx *sql.Tx) error {
		for idx, row := range table.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}

			t := normalize(table, row)
			t.Source = source
			t.OriginID = OriginID(originPath, fileHash, idx)
			t.ImportBatch = result.BatchID

			dup, err := i.store.Exists(tx, t)
			if err != nil {
				log.Warn().Err(err).Int("row", idx).Msg("Duplicate check failed, skipping row")
				result.Failed++
				continue
			}
			if dup {
				result.Duplicates++
				continue
			}

			if _, err := i.store.Insert(tx, t); err != nil {
				log.Warn().Err(err).Int("row", idx).Msg("Insert failed, skipping row")
				result.Failed++
				continue
			}
			result.Added++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import of %s failed: %w", originPath, err)
	}

	log.Info().
		Str("origin", originPath).
		Int("rows_added", result.Added).
		Int("duplicates_discarded", result.Duplicates).
		Int("rows_failed", result.Failed).
		Msg("Import finished")

	return result, nil
}
