// Package hashutil provides the streaming SHA-256 hashing used throughout the
// pipeline: over files, in-memory chunks, and the FileID derivation.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// Hasher wraps a running SHA-256 digest and yields lower-case hex output.
type Hasher struct {
	h hash.Hash
}

// NewStreaming returns a fresh Hasher ready to accept writes.
func NewStreaming() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write feeds more bytes into the running digest. It never returns an error,
// matching the hash.Hash contract.
func (s *Hasher) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

// SumHex returns the lower-case hex digest of everything written so far.
func (s *Hasher) SumHex() string {
	return hex.EncodeToString(s.h.Sum(nil))
}

// SumBytes returns the raw digest of everything written so far.
func (s *Hasher) SumBytes() []byte {
	return s.h.Sum(nil)
}

// BytesHex returns the lower-case hex SHA-256 digest of a single buffer.
func BytesHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FileID derives the short session identifier from name and cipherHash:
// the first 16 hex characters of SHA-256(name + ":" + cipherHash). Binding
// the name into the derivation keeps two sources that happen to encrypt to
// the same ciphertext, but carry different names, from colliding under the
// same FileID.
func FileID(name, cipherHash string) string {
	return BytesHex([]byte(name + ":" + cipherHash))[:16]
}

// FileDigestHex streams path through SHA-256 without loading it entirely into
// memory, returning the lower-case hex digest.
func FileDigestHex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
