package coinstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEENet-io/coin-store/blinding"
	"github.com/TEENet-io/coin-store/common"
	"github.com/TEENet-io/coin-store/elements"
)

var (
	testAsset  = elements.AssetID{0xaa}
	otherAsset = elements.AssetID{0xbb}
)

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "coins.db"))
	cfg.Params = &chaincfg.RegressionNetParams
	return cfg
}

func newTestStore(t *testing.T, tune ...func(*Config)) *Store {
	cfg := testConfig(t)
	for _, f := range tune {
		f(cfg)
	}
	st, err := Create(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func randOutPoint(vout uint32) elements.OutPoint {
	return elements.NewOutPoint(chainhash.Hash(common.RandBytes32()), vout)
}

func explicitOut(asset elements.AssetID, value uint64, script []byte) *elements.TxOut {
	return &elements.TxOut{
		Asset:        elements.ExplicitAsset(asset),
		Value:        elements.ExplicitValue(value),
		ScriptPubKey: script,
	}
}

func confidentialOut(t *testing.T, asset elements.AssetID, value uint64, script []byte) (*elements.TxOut, *btcec.PrivateKey) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	ephemeral, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	out, err := blinding.Blind(&blinding.Secrets{
		Asset:               asset,
		AssetBlindingFactor: common.RandBytes32(),
		Value:               value,
		ValueBlindingFactor: common.RandBytes32(),
	}, script, key.PubKey(), ephemeral)
	require.NoError(t, err)
	return out, key
}

func TestCreateAndOpen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	_, err := Open(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, Exists(cfg.DbFilePath))

	st, err := Create(ctx, cfg)
	require.NoError(t, err)
	op := randOutPoint(0)
	require.NoError(t, st.Insert(ctx, op, explicitOut(testAsset, 42, []byte{0x51}), nil))
	require.NoError(t, st.Close())
	assert.True(t, Exists(cfg.DbFilePath))

	_, err = Create(ctx, cfg)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	st, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer st.Close()
	ops, err := st.ListUnspentOutpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []elements.OutPoint{op}, ops)
}

func TestOpenWithoutSchema(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	db, err := sql.Open("sqlite3", cfg.DbFilePath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE other (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotInitialized)

	// a foreign table keeps the file out of reach of Create
	_, err = Create(ctx, cfg)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	db, err = sql.Open("sqlite3", cfg.DbFilePath)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&n))
	require.NoError(t, db.Close())
	assert.Equal(t, 1, n)
}

func TestCreateOnEmptyFile(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	// a file with no tables is not a store yet
	db, err := sql.Open("sqlite3", cfg.DbFilePath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE scratch (id INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`DROP TABLE scratch`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotInitialized)

	st, err := Create(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := (&Config{DbFilePath: "x.db"}).normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultMaxConcurrentFilters, cfg.MaxConcurrentFilters)
	assert.Equal(t, 0, cfg.ProgramCacheSize)
	assert.Equal(t, chaincfg.MainNetParams.Name, cfg.Params.Name)
	assert.NotNil(t, cfg.Compiler)
	assert.NotNil(t, cfg.Unblinder)

	_, err = (&Config{}).normalize()
	assert.Error(t, err)
	_, err = (&Config{DbFilePath: "x.db", ProgramCacheSize: -1}).normalize()
	assert.Error(t, err)
}
