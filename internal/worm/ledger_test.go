package worm

import (
	"crypto/ed25519"
	"database/sql"
	"encoding/hex"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	l, err := NewSQLiteLedger(db, filepath.Join(t.TempDir(), "worm.key"))
	if err != nil {
		t.Fatalf("NewSQLiteLedger: %v", err)
	}
	return l
}

func TestAppendReturnsReceipt(t *testing.T) {
	l := setupTestLedger(t)

	r, err := l.Append(Record{CycleID: "c-1", Payload: []byte(`{"score":0.9}`)})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if r.EntryID == "" || r.Seq != 1 {
		t.Errorf("receipt = %+v, want seq 1 with entry id", r)
	}
	if r.PayloadHash == "" {
		t.Errorf("receipt missing payload hash")
	}
}

func TestReceiptCarriesSignatureAndChainPrev(t *testing.T) {
	l := setupTestLedger(t)

	first, err := l.Append(Record{CycleID: "c-1", Payload: []byte("p1")})
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if first.ChainPrev != genesisHash {
		t.Errorf("first ChainPrev = %q, want genesis anchor", first.ChainPrev)
	}

	second, err := l.Append(Record{CycleID: "c-2", Payload: []byte("p2")})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if second.ChainPrev != first.PayloadHash {
		t.Errorf("second ChainPrev = %q, want first payload hash %q", second.ChainPrev, first.PayloadHash)
	}

	// The returned signature must verify over the same link message the
	// chain walk checks.
	sig, err := hex.DecodeString(second.Signature)
	if err != nil {
		t.Fatalf("signature not hex: %v", err)
	}
	pub := l.key.Public().(ed25519.PublicKey)
	if !ed25519.Verify(pub, chainMessage(second.PayloadHash, second.ChainPrev), sig) {
		t.Errorf("receipt signature does not verify over its chain link")
	}
}

func TestVerifyChainEmptyAndPopulated(t *testing.T) {
	l := setupTestLedger(t)

	ok, err := l.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain empty: %v", err)
	}
	if !ok {
		t.Errorf("empty chain should verify")
	}

	for i := 0; i < 5; i++ {
		if _, err := l.Append(Record{CycleID: "c", Payload: []byte{byte(i)}}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	ok, err = l.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain populated: %v", err)
	}
	if !ok {
		t.Errorf("intact chain should verify")
	}
	n, err := l.Len()
	if err != nil || n != 5 {
		t.Errorf("Len = %d (%v), want 5", n, err)
	}
}

func TestVerifyChainDetectsTamper(t *testing.T) {
	l := setupTestLedger(t)

	for i := 0; i < 3; i++ {
		if _, err := l.Append(Record{CycleID: "c", Payload: []byte{byte(i)}}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// Rewrite the middle entry's payload hash behind the ledger's back.
	if _, err := l.db.Exec(`UPDATE worm_ledger SET payload_hash = 'forged' WHERE seq = 2`); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	ok, err := l.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if ok {
		t.Errorf("tampered chain must not verify")
	}
}

func TestKeyPersistsAcrossReopen(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	keyPath := filepath.Join(t.TempDir(), "worm.key")

	l1, err := NewSQLiteLedger(db, keyPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := l1.Append(Record{CycleID: "c-1", Payload: []byte("p")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Reopening with the same key file must still verify earlier signatures.
	l2, err := NewSQLiteLedger(db, keyPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	ok, err := l2.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if !ok {
		t.Errorf("chain signed by persisted key should verify after reopen")
	}
}
