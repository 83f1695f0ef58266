// Package ledger provides the append-only transaction store, one table per
// statement source in ledger.db, and its HTTP surface.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/wallet/internal/database"
	"github.com/aristath/wallet/internal/domain"
	"github.com/rs/zerolog"
)

// ErrInvalidFilter is returned when a listing filter names a column the source table lacks
var ErrInvalidFilter = errors.New("invalid filter")

// Filter narrows a transaction listing
type Filter struct {
	Like      map[string]string  // substring match on text columns
	Exact     map[string]float64 // equality on numeric columns
	AssetLike string             // substring match on the asset column
	Ticker    string             // exact match on the derived ticker
	Ascending bool               // oldest first; newest first otherwise
	Limit     int                // 0 means unbounded
}

// Repository handles transaction persistence. Rows are never updated or deleted.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new transaction repository.
//
// Parameters:
//   - ledgerDB: Database connection to ledger.db
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// WithTransaction runs fn inside one ledger transaction, committing when fn
// returns nil and rolling back otherwise.
func (r *Repository) WithTransaction(fn func(tx *sql.Tx) error) error {
	return database.WithTransaction(r.ledgerDB, fn)
}

// Exists reports whether a row with the same origin_id and the same identifying
// fields is already stored for t.Source.
//
// Parameters:
//   - tx: Open ledger transaction, so rows inserted earlier in the batch are seen
//   - t: Candidate transaction
//
// Returns:
//   - bool: True when the row is a duplicate
//   - error: Error if the source is unknown or the query fails
func (r *Repository) Exists(tx *sql.Tx, t domain.Transaction) (bool, error) {
	layout, err := layoutFor(t.Source)
	if err != nil {
		return false, err
	}

	conds := []string{"origin_id = ?"}
	args := []interface{}{t.OriginID}
	for _, col := range layout.identity {
		// IS compares NULL quantities as equal
		conds = append(conds, col+" IS ?")
		args = append(args, value(&t, col))
	}

	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", layout.table, strings.Join(conds, " AND "))

	var one int
	err = tx.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate in %s: %w", layout.table, err)
	}
	return true, nil
}

// Insert appends t to the table of its source and returns the new row id.
func (r *Repository) Insert(tx *sql.Tx, t domain.Transaction) (int64, error) {
	layout, err := layoutFor(t.Source)
	if err != nil {
		return 0, err
	}

	cols := append([]string{"origin_id", "import_batch"}, layout.columns...)
	cols = append(cols, "created_at")

	args := make([]interface{}, 0, len(cols))
	args = append(args, t.OriginID, t.ImportBatch)
	for _, col := range layout.columns {
		args = append(args, value(&t, col))
	}
	args = append(args, time.Now().Unix())

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", layout.table, strings.Join(cols, ", "), placeholders)

	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", layout.table, err)
	}
	return res.LastInsertId()
}

// List returns the transactions of source matching filter, ordered by date.
// Filter columns must belong to the source table.
func (r *Repository) List(ctx context.Context, source domain.Source, filter Filter) ([]domain.Transaction, error) {
	layout, err := layoutFor(source)
	if err != nil {
		return nil, err
	}

	var conds []string
	var args []interface{}

	if filter.AssetLike != "" {
		conds = append(conds, "asset LIKE ?")
		args = append(args, "%"+filter.AssetLike+"%")
	}
	if filter.Ticker != "" {
		conds = append(conds, "ticker = ?")
		args = append(args, filter.Ticker)
	}
	for _, col := range sortedKeys(filter.Like) {
		if !layout.hasColumn(col) || numericColumns[col] {
			return nil, fmt.Errorf("%w: cannot filter %s by text column %q", ErrInvalidFilter, layout.table, col)
		}
		conds = append(conds, col+" LIKE ?")
		args = append(args, "%"+filter.Like[col]+"%")
	}
	for _, col := range sortedKeys(filter.Exact) {
		if !layout.hasColumn(col) || !numericColumns[col] {
			return nil, fmt.Errorf("%w: cannot filter %s by numeric column %q", ErrInvalidFilter, layout.table, col)
		}
		conds = append(conds, col+" = ?")
		args = append(args, filter.Exact[col])
	}

	cols := append([]string{"id", "origin_id", "import_batch"}, layout.columns...)
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), layout.table)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.Ascending {
		query += " ORDER BY date ASC, id ASC"
	} else {
		query += " ORDER BY date DESC, id DESC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", layout.table, err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{Source: source}
		var sc scanner
		dest := []interface{}{&t.ID, &t.OriginID, &t.ImportBatch}
		for _, col := range layout.columns {
			dest = append(dest, sc.dest(&t, col))
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", layout.table, err)
		}
		sc.apply(&t)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", layout.table, err)
	}
	return out, nil
}

// FindByAsset returns the rows of source whose asset column contains asset, oldest first.
func (r *Repository) FindByAsset(ctx context.Context, source domain.Source, asset string) ([]domain.Transaction, error) {
	return r.List(ctx, source, Filter{AssetLike: asset, Ascending: true})
}

// FindByTicker returns the rows of source whose derived ticker is exactly ticker, oldest first.
func (r *Repository) FindByTicker(ctx context.Context, source domain.Source, ticker string) ([]domain.Transaction, error) {
	return r.List(ctx, source, Filter{Ticker: ticker, Ascending: true})
}

// DistinctTickers returns every derived ticker stored for source, blanks included.
func (r *Repository) DistinctTickers(ctx context.Context, source domain.Source) ([]string, error) {
	layout, err := layoutFor(source)
	if err != nil {
		return nil, err
	}

	rows, err := r.ledgerDB.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT ticker FROM %s ORDER BY ticker", layout.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers from %s: %w", layout.table, err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}

// Count returns the number of rows stored for source.
func (r *Repository) Count(ctx context.Context, source domain.Source) (int, error) {
	layout, err := layoutFor(source)
	if err != nil {
		return 0, err
	}

	var n int
	if err := r.ledgerDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+layout.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", layout.table, err)
	}
	return n, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
