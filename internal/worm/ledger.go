package worm

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS worm_ledger (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id     TEXT NOT NULL UNIQUE,
	appended_at  TEXT NOT NULL,
	cycle_id     TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	prev_hash    TEXT NOT NULL,
	signature    TEXT NOT NULL
);
`

// #endregion schema

// #region types
// Record is the payload committed to the ledger: one cycle report.
type Record struct {
	CycleID string
	Payload []byte
}

// Receipt proves an append happened: the entry id, the signature over the
// chain link, the prev hash this entry chained onto, and the new head hash
// the next entry will link against.
type Receipt struct {
	EntryID     string
	Seq         int64
	PayloadHash string
	Signature   string
	ChainPrev   string
	ChainHash   string
}

// Ledger is the append-only commitment interface the engine depends on.
// Appends that fail are structural failures, not governance outcomes.
type Ledger interface {
	Append(rec Record) (Receipt, error)
	VerifyChain() (bool, error)
}

// #endregion types

// #region key
// loadOrCreateKey reads an ed25519 seed from keyPath, generating and
// persisting one on first use.
func loadOrCreateKey(keyPath string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(keyPath)
	if err == nil && len(data) >= ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(data[:ed25519.SeedSize]), nil
	}
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o755); err != nil {
		return nil, fmt.Errorf("key dir: %w", err)
	}
	if err := os.WriteFile(keyPath, seed, 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// #endregion key

// #region ledger
// SQLiteLedger is a hash-chained, ed25519-signed append-only log backed by
// SQLite. Rows are never updated or deleted; each row's signature covers
// its payload hash and the previous row's chain hash, so any tamper breaks
// verification from that row forward.
type SQLiteLedger struct {
	db  *sql.DB
	key ed25519.PrivateKey
}

// genesisHash anchors the chain before the first entry.
const genesisHash = "worm-genesis"

// NewSQLiteLedger opens the ledger over an existing database connection and
// loads (or creates) the signing key at keyPath.
func NewSQLiteLedger(db *sql.DB, keyPath string) (*SQLiteLedger, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteLedger{db: db, key: key}, nil
}

// Append commits one record to the end of the chain.
func (l *SQLiteLedger) Append(rec Record) (Receipt, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return Receipt{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	prev := genesisHash
	err = tx.QueryRow(`SELECT payload_hash FROM worm_ledger ORDER BY seq DESC LIMIT 1`).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return Receipt{}, fmt.Errorf("read chain head: %w", err)
	}

	payloadHash := hashHex(rec.Payload)
	sigHex := hex.EncodeToString(ed25519.Sign(l.key, chainMessage(payloadHash, prev)))

	entryID := uuid.NewString()
	res, err := tx.Exec(
		`INSERT INTO worm_ledger (entry_id, appended_at, cycle_id, payload_hash, prev_hash, signature)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entryID, time.Now().UTC().Format(time.RFC3339Nano),
		rec.CycleID, payloadHash, prev, sigHex,
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("append ledger: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return Receipt{}, fmt.Errorf("append seq: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Receipt{}, fmt.Errorf("commit append: %w", err)
	}

	return Receipt{
		EntryID:     entryID,
		Seq:         seq,
		PayloadHash: payloadHash,
		Signature:   sigHex,
		ChainPrev:   prev,
		ChainHash:   payloadHash,
	}, nil
}

// VerifyChain walks the ledger from genesis checking hash linkage and every
// signature. Returns false on the first break.
func (l *SQLiteLedger) VerifyChain() (bool, error) {
	rows, err := l.db.Query(
		`SELECT payload_hash, prev_hash, signature FROM worm_ledger ORDER BY seq ASC`)
	if err != nil {
		return false, fmt.Errorf("read ledger: %w", err)
	}
	defer rows.Close()

	pub := l.key.Public().(ed25519.PublicKey)
	expectedPrev := genesisHash
	for rows.Next() {
		var payloadHash, prevHash, sigHex string
		if err := rows.Scan(&payloadHash, &prevHash, &sigHex); err != nil {
			return false, fmt.Errorf("scan entry: %w", err)
		}
		if prevHash != expectedPrev {
			return false, nil
		}
		sig, err := hex.DecodeString(sigHex)
		if err != nil {
			return false, nil
		}
		if !ed25519.Verify(pub, chainMessage(payloadHash, prevHash), sig) {
			return false, nil
		}
		expectedPrev = payloadHash
	}
	return true, rows.Err()
}

// Len reports the number of entries in the chain.
func (l *SQLiteLedger) Len() (int, error) {
	var n int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM worm_ledger`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger len: %w", err)
	}
	return n, nil
}

// #endregion ledger

// #region helpers
func hashHex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func chainMessage(payloadHash, prevHash string) []byte {
	return []byte(payloadHash + "|" + prevHash)
}

// #endregion helpers
