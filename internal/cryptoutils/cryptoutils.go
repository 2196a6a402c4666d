// Package cryptoutils provides the key-derivation and authenticated-encryption
// primitives shared by the encode and decode pipelines: scrypt-based key
// derivation, a ZeroBytes memory wipe, and multi-password concatenation.
package cryptoutils

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// SaltSize and NonceSize are a 16-byte scrypt salt and a 12-byte AES-GCM
// nonce, both freshly random per encode session.
const (
	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32
)

// scryptMemoryCeilingBytes bounds N*r*128: it exists to reject unreasonable
// parameters before they exhaust the machine, not to cap legitimate
// high-security use.
const scryptMemoryCeilingBytes = 2 << 30 // 2 GiB

// GenerateSalt returns a fresh cryptographically secure salt of SaltSize bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptoutils: generate salt: %w", err)
	}
	return salt, nil
}

// GenerateNonce returns a fresh cryptographically secure nonce of NonceSize bytes.
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptoutils: generate nonce: %w", err)
	}
	return nonce, nil
}

// JoinPasswords concatenates multiple supplied passwords with a single NUL
// byte separator before key derivation.
func JoinPasswords(passwords [][]byte) []byte {
	if len(passwords) == 0 {
		return nil
	}
	total := len(passwords) - 1
	for _, p := range passwords {
		total += len(p)
	}
	joined := make([]byte, 0, total)
	for i, p := range passwords {
		if i > 0 {
			joined = append(joined, 0)
		}
		joined = append(joined, p...)
	}
	return joined
}

// DeriveKey runs scrypt(password, salt, N, r, p) -> 32-byte key. Failure is
// always fatal; there is no retry path.
func DeriveKey(password, salt []byte, n, r, p int) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("cryptoutils: password cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("cryptoutils: salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	if n <= 1 || (n&(n-1)) != 0 {
		return nil, fmt.Errorf("cryptoutils: scrypt N must be a power of 2 greater than 1, got %d", n)
	}
	if r <= 0 || p <= 0 {
		return nil, fmt.Errorf("cryptoutils: scrypt r and p must be positive")
	}
	if int64(n)*int64(r)*128 > scryptMemoryCeilingBytes {
		return nil, fmt.Errorf("cryptoutils: scrypt N=%d r=%d would exceed the memory ceiling", n, r)
	}

	key, err := scrypt.Key(password, salt, n, r, p, KeySize)
	if err != nil {
		return nil, fmt.Errorf("cryptoutils: scrypt derivation failed: %w", err)
	}
	return key, nil
}

// ZeroBytes overwrites b with zeros, used to wipe derived keys and passwords
// from memory once they are no longer needed.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
