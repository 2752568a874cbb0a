// Package digest computes stable content digests for raw payloads.
//
// A digest serves two purposes in the pipeline: it is embedded in the
// object storage key, and it is the idempotency key in the bronze load
// history. Two uploads with identical bytes therefore resolve to the same
// logical payload regardless of filename or upload time.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// HexLen is the length of an encoded digest (SHA-256, lowercase hex).
const HexLen = sha256.Size * 2

// KeyPrefixLen is how many digest characters are embedded in storage keys.
// Enough to disambiguate distinct uploads; the full digest lives in the
// load history and lineage columns.
const KeyPrefixLen = 12

// Digest is the lowercase hex SHA-256 of a byte payload.
type Digest string

// Sum computes the digest of data.
func Sum(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// ErrInvalid marks a malformed digest string.
var ErrInvalid = errors.New("invalid digest")

// Parse validates that s is a well-formed digest and returns it.
func Parse(s string) (Digest, error) {
	if len(s) != HexLen {
		return "", fmt.Errorf("%w: must be %d hex characters, got %d", ErrInvalid, HexLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: not valid hex: %v", ErrInvalid, err)
	}
	for _, c := range s {
		if c >= 'A' && c <= 'F' {
			return "", fmt.Errorf("%w: must be lowercase hex", ErrInvalid)
		}
	}
	return Digest(s), nil
}

// KeyPrefix returns the short form used in storage key construction.
func (d Digest) KeyPrefix() string {
	if len(d) < KeyPrefixLen {
		return string(d)
	}
	return string(d[:KeyPrefixLen])
}

func (d Digest) String() string { return string(d) }
