package castore

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digest is the lowercase hex BLAKE2b-256 of a payload.
type Digest string

// DigestLen is the length of a Digest in characters.
const DigestLen = 2 * blake2b.Size256

// Sum returns the digest of data.
func Sum(data []byte) Digest {
	h := blake2b.Sum256(data)
	return Digest(hex.EncodeToString(h[:]))
}

// ParseDigest normalises s to lowercase and reports whether it is a
// well-formed digest.
func ParseDigest(s string) (Digest, bool) {
	if len(s) != DigestLen {
		return "", false
	}
	s = strings.ToLower(s)
	if _, err := hex.DecodeString(s); err != nil {
		return "", false
	}
	return Digest(s), true
}

func (d Digest) String() string { return string(d) }
