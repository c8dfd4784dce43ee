package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 hash, the same shape as source.File.Hash.
type Digest [32]byte

// Combine hashes content followed by parts, in order.
func Combine(content Digest, parts ...Digest) Digest {
	h := sha256.New()
	h.Write(content[:])
	for _, p := range parts {
		h.Write(p[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// String is the lowercase hex form.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never set.
func (d Digest) IsZero() bool { return d == Digest{} }
