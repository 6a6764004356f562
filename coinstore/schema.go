package coinstore

var (
	utxoTable = `
	CREATE TABLE utxos (
		txid               BLOB NOT NULL,
		vout               INTEGER NOT NULL,
		script_pubkey      BLOB NOT NULL,
		asset_id           BLOB NOT NULL,
		value              INTEGER NOT NULL,
		is_confidential    INTEGER NOT NULL,
		serialized         BLOB NOT NULL,
		serialized_witness BLOB,
		is_spent           INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (txid, vout)
	);
	CREATE INDEX idx_utxos_asset ON utxos (asset_id, is_spent, value);
	CREATE INDEX idx_utxos_script ON utxos (script_pubkey);
	`

	blinderKeyTable = `
	CREATE TABLE blinder_keys (
		txid         BLOB NOT NULL,
		vout         INTEGER NOT NULL,
		blinding_key BLOB NOT NULL,
		PRIMARY KEY (txid, vout)
	);
	`

	assetEntropyTable = `
	CREATE TABLE asset_entropy (
		asset_id        BLOB PRIMARY KEY,
		token_id        BLOB NOT NULL,
		is_confidential INTEGER NOT NULL,
		entropy         BLOB NOT NULL
	);
	CREATE INDEX idx_asset_entropy_token ON asset_entropy (token_id);
	`

	contractSourceTable = `
	CREATE TABLE contract_sources (
		source_hash BLOB PRIMARY KEY,
		source      BLOB NOT NULL
	);
	`

	contractTable = `
	CREATE TABLE contracts (
		script_pubkey   BLOB PRIMARY KEY,
		derivation      TEXT NOT NULL UNIQUE,
		commitment_root BLOB NOT NULL,
		source_hash     BLOB NOT NULL,
		arguments       BLOB NOT NULL,
		metadata        BLOB
	);
	CREATE INDEX idx_contracts_source ON contracts (source_hash);
	`

	contractTokenTable = `
	CREATE TABLE contract_tokens (
		derivation TEXT NOT NULL,
		asset_id   BLOB NOT NULL,
		tag        TEXT NOT NULL,
		PRIMARY KEY (derivation, asset_id)
	);
	CREATE INDEX idx_contract_tokens_asset ON contract_tokens (asset_id);
	CREATE INDEX idx_contract_tokens_tag ON contract_tokens (tag);
	`

	schema = utxoTable + blinderKeyTable + assetEntropyTable + contractSourceTable + contractTable + contractTokenTable

	tableNames = []string{"utxos", "blinder_keys", "asset_entropy", "contract_sources", "contracts", "contract_tokens"}
)
