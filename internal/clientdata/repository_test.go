package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSchema creates all tables needed for testing
const testSchema = `
CREATE TABLE quotes (symbol TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE exchangerate (pair TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE fixed_income (symbol TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE price_history (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

type bar struct {
	Date  string  `msgpack:"d"`
	Close float64 `msgpack:"c"`
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	data := map[string]interface{}{
		"symbol":     "PETR4.SA",
		"last_close": 36.5,
	}
	require.NoError(t, repo.Store(TableQuotes, "PETR4.SA", data, time.Hour))

	var storedData string
	var expiresAt int64
	err := db.QueryRow("SELECT data, expires_at FROM quotes WHERE symbol = ?", "PETR4.SA").Scan(&storedData, &expiresAt)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(storedData), &parsed))
	assert.Equal(t, "PETR4.SA", parsed["symbol"])
	assert.Equal(t, 36.5, parsed["last_close"])

	expected := time.Now().Add(time.Hour).Unix()
	assert.InDelta(t, expected, expiresAt, 5)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store(TableExchangeRate, "USD:BRL", 5.1, time.Hour))
	require.NoError(t, repo.Store(TableExchangeRate, "USD:BRL", 5.4, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM exchangerate").Scan(&count))
	assert.Equal(t, 1, count)

	raw, err := repo.Get(TableExchangeRate, "USD:BRL")
	require.NoError(t, err)
	var rate float64
	require.NoError(t, json.Unmarshal(raw, &rate))
	assert.Equal(t, 5.4, rate)
}

func TestGetIfFresh_Fresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableQuotes, "AAPL", map[string]string{"name": "Apple"}, time.Hour))

	raw, err := repo.GetIfFresh(TableQuotes, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.JSONEq(t, `{"name":"Apple"}`, string(raw))
}

func TestGetIfFresh_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableQuotes, "AAPL", map[string]string{"name": "Apple"}, -time.Hour))

	raw, err := repo.GetIfFresh(TableQuotes, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestGet_ReturnsStaleData(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableFixedIncome, "Tesouro Selic 2029", 14850.32, -time.Hour))

	raw, err := repo.Get(TableFixedIncome, "Tesouro Selic 2029")
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "14850.32", string(raw))
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	raw, err := repo.Get(TableQuotes, "MISSING")
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = repo.GetIfFresh(TableQuotes, "MISSING")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestStoreBinaryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	bars := []bar{{Date: "2024-01-02", Close: 10.5}, {Date: "2024-01-03", Close: 11}}
	require.NoError(t, repo.StoreBinary(TablePriceHistory, "ITSA4.SA", bars, time.Hour))

	var out []bar
	found, err := repo.LoadBinary(TablePriceHistory, "ITSA4.SA", true, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, bars, out)
}

func TestLoadBinary_ExpiredOnlyWhenStaleAllowed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.StoreBinary(TablePriceHistory, "ITSA4.SA", []bar{{Date: "2024-01-02", Close: 1}}, -time.Minute))

	var out []bar
	found, err := repo.LoadBinary(TablePriceHistory, "ITSA4.SA", true, &out)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.LoadBinary(TablePriceHistory, "ITSA4.SA", false, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, out, 1)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableQuotes, "AAPL", 1, time.Hour))
	require.NoError(t, repo.Delete(TableQuotes, "AAPL"))

	raw, err := repo.Get(TableQuotes, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, raw)

	// Deleting a missing key is not an error
	assert.NoError(t, repo.Delete(TableQuotes, "AAPL"))
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableQuotes, "OLD1", 1, -time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "OLD2", 1, -time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "NEW", 1, time.Hour))

	deleted, err := repo.DeleteExpired(TableQuotes)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	raw, err := repo.Get(TableQuotes, "NEW")
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableQuotes, "OLD", 1, -time.Hour))
	require.NoError(t, repo.Store(TableExchangeRate, "USD:BRL", 5.0, -time.Hour))
	require.NoError(t, repo.StoreBinary(TablePriceHistory, "OLD", []bar{}, -time.Hour))
	require.NoError(t, repo.Store(TableFixedIncome, "FRESH", 1.0, time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TableQuotes])
	assert.Equal(t, int64(1), results[TableExchangeRate])
	assert.Equal(t, int64(1), results[TablePriceHistory])
	assert.Equal(t, int64(0), results[TableFixedIncome])
}

func TestGetKeyColumn(t *testing.T) {
	assert.Equal(t, "pair", getKeyColumn(TableExchangeRate))
	assert.Equal(t, "symbol", getKeyColumn(TableQuotes))
	assert.Equal(t, "symbol", getKeyColumn(TableFixedIncome))
	assert.Equal(t, "symbol", getKeyColumn(TablePriceHistory))
}

func TestInvalidTableName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	bad := "quotes; DROP TABLE quotes"

	assert.Error(t, repo.Store(bad, "k", 1, time.Hour))
	assert.Error(t, repo.StoreBinary(bad, "k", 1, time.Hour))
	_, err := repo.Get(bad, "k")
	assert.Error(t, err)
	_, err = repo.GetIfFresh(bad, "k")
	assert.Error(t, err)
	assert.Error(t, repo.Delete(bad, "k"))
	_, err = repo.DeleteExpired(bad)
	assert.Error(t, err)
}
