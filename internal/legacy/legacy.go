// Package legacy accepts the pre-3.1 decode-only fragment format: a
// directory of *.bin.json fragments (one chunk each) plus a manifest.json
// carrying the session-level fields the new inline-only format embeds in
// every symbol. No new legacy artifacts are ever produced; this package only
// translates old fragments into the same payload.ChunkPayload the rest of
// the pipeline already understands.
package legacy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nymora/gitzipqr/internal/payload"
)

// fragment is one *.bin.json file. Each field is read under the single key
// shown; the dual camelCase/snake_case spellings apply to manifest.json only.
type fragment struct {
	Data       string `json:"data"`
	Chunk      int    `json:"chunk"`
	Total      int    `json:"total"`
	Name       string `json:"name"`
	Hash       string `json:"hash"`
	CipherHash string `json:"cipherHash"`
}

// manifest is manifest.json, the session-level sidecar that the inline-only
// format eliminated by embedding its fields in every symbol instead.
type manifest struct {
	KdfParams       *payload.KdfParams `json:"kdfParams"`
	KdfParamsSnake  *payload.KdfParams `json:"kdf_params"`
	SaltB64         string             `json:"saltB64"`
	SaltB64Snake    string             `json:"salt_b64"`
	NonceB64        string             `json:"nonceB64"`
	NonceB64Snake   string             `json:"nonce_b64"`
	TotalChunks     int                `json:"totalChunks"`
	TotalChunkSnake int                `json:"total_chunks"`
	CipherSha256    string             `json:"cipherSha256"`
	CipherSHASnake  string             `json:"cipher_sha256"`
}

func (m *manifest) kdfParams() (payload.KdfParams, error) {
	if m.KdfParams != nil {
		return *m.KdfParams, nil
	}
	if m.KdfParamsSnake != nil {
		return *m.KdfParamsSnake, nil
	}
	return payload.KdfParams{}, fmt.Errorf("legacy: manifest is missing kdfParams/kdf_params")
}

func (m *manifest) saltB64() string {
	if m.SaltB64 != "" {
		return m.SaltB64
	}
	return m.SaltB64Snake
}

func (m *manifest) nonceB64() string {
	if m.NonceB64 != "" {
		return m.NonceB64
	}
	return m.NonceB64Snake
}

func (m *manifest) totalChunks() int {
	if m.TotalChunks != 0 {
		return m.TotalChunks
	}
	return m.TotalChunkSnake
}

func (m *manifest) cipherSha256() string {
	if m.CipherSha256 != "" {
		return m.CipherSha256
	}
	return m.CipherSHASnake
}

// IsLegacyDir reports whether dir looks like a legacy fragment directory: it
// contains manifest.json alongside at least one *.bin.json fragment.
func IsLegacyDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.bin.json"))
	return err == nil && len(matches) > 0
}

// Load reads every *.bin.json fragment plus manifest.json in dir and
// translates them into equivalent in-memory ChunkPayload values, as if they
// had been decoded straight out of inline-only QR symbols.
func Load(dir string) ([]*payload.ChunkPayload, error) {
	manifestPath := filepath.Join(dir, "manifest.json")
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("legacy: read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(manifestData, &m); err != nil {
		return nil, fmt.Errorf("legacy: parse manifest: %w", err)
	}
	kdf, err := m.kdfParams()
	if err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.bin.json"))
	if err != nil {
		return nil, fmt.Errorf("legacy: glob fragments: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("legacy: no *.bin.json fragments found in %s", dir)
	}

	var fileID string
	if base := filepath.Base(dir); base != "." && base != "/" {
		fileID = base
	} else {
		fileID = "legacy-session"
	}

	out := make([]*payload.ChunkPayload, 0, len(matches))
	for _, path := range matches {
		frag, err := loadFragment(path)
		if err != nil {
			return nil, err
		}
		total := frag.Total
		if total == 0 {
			total = m.totalChunks()
		}
		ext := filepath.Ext(frag.Name)
		name := frag.Name[:len(frag.Name)-len(ext)]
		out = append(out, &payload.ChunkPayload{
			Type:       payload.TypeConstant,
			Version:    payload.VersionConstant,
			FileID:     fileID,
			Name:       name,
			Ext:        ext,
			Chunk:      frag.Chunk,
			Total:      total,
			Hash:       frag.Hash,
			CipherHash: firstNonEmpty(frag.CipherHash, m.cipherSha256()),
			DataB64:    frag.Data,
			KdfParams:  kdf,
			SaltB64:    m.saltB64(),
			NonceB64:   m.nonceB64(),
			ChunkSize:  0,
		})
	}
	return out, nil
}

func loadFragment(path string) (*fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("legacy: read fragment %s: %w", path, err)
	}
	var f fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("legacy: parse fragment %s: %w", path, err)
	}
	return &f, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
