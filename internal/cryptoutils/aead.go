package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// ErrWrongPasswordOrCorrupt is the single sentinel returned for any AEAD tag
// verification failure. The two causes are never distinguished: an attacker
// able to tell them apart could use timing or error content as an oracle
// against the password.
var ErrWrongPasswordOrCorrupt = errors.New("wrong password or corrupted data")

// EncryptFrame seals plaintext under key/nonce with AES-256-GCM and returns
// the Ciphertext frame: ciphertext_body || 16-byte tag, exactly the layout
// cipher.AEAD.Seal already produces, so the frame's last 16 bytes are
// always the tag.
func EncryptFrame(plaintext, key, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("cryptoutils: nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// DecryptFrame opens a Ciphertext frame under key/nonce. Any authentication
// failure is reported uniformly as ErrWrongPasswordOrCorrupt.
func DecryptFrame(frame, key, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("cryptoutils: nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	if len(frame) < aead.Overhead() {
		return nil, ErrWrongPasswordOrCorrupt
	}
	plaintext, err := aead.Open(nil, nonce, frame, nil)
	if err != nil {
		return nil, ErrWrongPasswordOrCorrupt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptoutils: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutils: new AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutils: new GCM: %w", err)
	}
	return aead, nil
}
