package normalize

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"newswatch/internal/utils/text"
)

// HashAlgorithm selects the digest used for content fingerprints.
type HashAlgorithm string

const (
	HashSHA256 HashAlgorithm = "sha256"
	HashSHA1   HashAlgorithm = "sha1"
	HashMD5    HashAlgorithm = "md5"
)

// NewHasher returns a content hasher for the given algorithm, or an error
// for unknown algorithms. SHA-256 is the default.
func NewHasher(algo HashAlgorithm) (*Hasher, error) {
	switch algo {
	case HashSHA256, HashSHA1, HashMD5:
		return &Hasher{algo: algo}, nil
	case "":
		return &Hasher{algo: HashSHA256}, nil
	default:
		return nil, fmt.Errorf("NewHasher: unknown hash algorithm %q", algo)
	}
}

// Hasher computes content fingerprints over normalized title+content.
type Hasher struct {
	algo HashAlgorithm
}

// ContentHash returns the hex digest of normalize(title + " " + content).
// Normalization is idempotent, so two inputs differing only in case,
// punctuation or whitespace produce the same hash.
func (h *Hasher) ContentHash(title, content string) string {
	normalized := text.Normalize(title + " " + content)

	var d hash.Hash
	switch h.algo {
	case HashSHA1:
		d = sha1.New()
	case HashMD5:
		d = md5.New() // #nosec G401 -- fingerprint for dedup, not security
	default:
		d = sha256.New()
	}

	d.Write([]byte(normalized))
	return hex.EncodeToString(d.Sum(nil))
}

// Algorithm returns the configured digest algorithm.
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algo
}
