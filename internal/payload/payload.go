// Package payload defines the wire record carried inside every QR symbol and its
// canonical JSON (de)serialization.
package payload

import (
	"encoding/json"
	"fmt"
)

const (
	// TypeConstant is the fixed discriminator every ChunkPayload must carry.
	TypeConstant = "GitZipQR-CHUNK-ENC"
	// VersionConstant identifies the inline-only wire format: every symbol is
	// self-describing and no sidecar manifest is required to decode it.
	VersionConstant = "3.1-inline-only"
)

// KdfParams mirrors the scrypt tuning knobs used to derive the session key.
type KdfParams struct {
	N uint32 `json:"N"`
	R uint32 `json:"r"`
	P uint32 `json:"p"`
}

// ChunkPayload is one QR symbol's worth of data, self-describing enough to
// decode without any sidecar manifest. Go's encoding/json marshals struct
// fields in declaration order, so this order is also the order they appear
// on the wire.
type ChunkPayload struct {
	Type       string    `json:"type"`
	Version    string    `json:"version"`
	FileID     string    `json:"fileId"`
	Name       string    `json:"name"`
	Ext        string    `json:"ext"`
	Chunk      int       `json:"chunk"`
	Total      int       `json:"total"`
	Hash       string    `json:"hash"`
	CipherHash string    `json:"cipherHash"`
	DataB64    string    `json:"dataB64"`
	KdfParams  KdfParams `json:"kdfParams"`
	SaltB64    string    `json:"saltB64"`
	NonceB64   string    `json:"nonceB64"`
	ChunkSize  int       `json:"chunkSize"`

	// Part and PartTotal are never emitted by the encoder, which never splits
	// a chunk across multiple symbols. Unmarshal returns an error for a
	// payload carrying either field, so the decoder pool reports such a
	// symbol as unparseable and the decode pipeline drops it like any other
	// unreadable symbol.
	Part      *int `json:"part,omitempty"`
	PartTotal *int `json:"partTotal,omitempty"`
}

// Marshal produces compact, canonical UTF-8 JSON with no trailing whitespace.
func (p *ChunkPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal parses raw JSON into a ChunkPayload and validates the fixed type and
// version discriminators. Unknown fields are ignored by default encoding/json
// behavior, preserving forward compatibility with newer producers.
func Unmarshal(data []byte) (*ChunkPayload, error) {
	var p ChunkPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("payload: invalid JSON: %w", err)
	}
	if p.Type != TypeConstant {
		return nil, fmt.Errorf("payload: unexpected type %q, want %q", p.Type, TypeConstant)
	}
	if p.Version != VersionConstant {
		return nil, fmt.Errorf("payload: unexpected version %q, want %q", p.Version, VersionConstant)
	}
	if p.Part != nil || p.PartTotal != nil {
		return nil, fmt.Errorf("payload: multi-symbol chunk splitting (part/partTotal) is not supported")
	}
	return &p, nil
}

// HasSameSession reports whether two payloads agree on every session-level
// field that must be identical across all ChunkPayloads belonging to the
// same file.
func (p *ChunkPayload) HasSameSession(other *ChunkPayload) bool {
	return p.Name == other.Name &&
		p.Ext == other.Ext &&
		p.CipherHash == other.CipherHash &&
		p.KdfParams == other.KdfParams &&
		p.SaltB64 == other.SaltB64 &&
		p.NonceB64 == other.NonceB64 &&
		p.Total == other.Total &&
		p.ChunkSize == other.ChunkSize &&
		p.FileID == other.FileID
}
