package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// #region kind
// Kind is the closed set of evidence artifact categories. Adapter output maps
// unrecognized source kinds to KindOther rather than failing.
type Kind string

const (
	KindManifest Kind = "manifest"
	KindUUID     Kind = "uuid"
	KindPolicy   Kind = "policy"
	KindTest     Kind = "test"
	KindWORM     Kind = "worm"
	KindOther    Kind = "other"
)

// ParseKind maps a raw source kind string onto the closed enum.
func ParseKind(raw string) Kind {
	switch Kind(raw) {
	case KindManifest, KindUUID, KindPolicy, KindTest, KindWORM:
		return Kind(raw)
	default:
		return KindOther
	}
}

// #endregion kind

// #region artifact
// Artifact is one discovered compliance evidence record. Immutable once
// created; identity is the (Kind, ID) pair.
type Artifact struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`
	UUIDRefs  []string  `json:"uuid_refs,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the identity pair as a single string, usable as a graph node ID.
func (a Artifact) Key() string {
	return string(a.Kind) + ":" + a.ID
}

// ContentHash returns the artifact's declared hash, falling back to a
// SHA-256 over its identity when the source record carried none.
func (a Artifact) ContentHash() string {
	if a.Hash != "" {
		return a.Hash
	}
	sum := sha256.Sum256([]byte(a.Key()))
	return hex.EncodeToString(sum[:])
}

// #endregion artifact
