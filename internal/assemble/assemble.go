// Package assemble implements the Assembler (C9): it takes every ChunkPayload
// recovered from decoded QR symbols (or legacy fragments) and reconstructs the
// original Ciphertext frame, verifying integrity at both the per-chunk and
// whole-frame level before handing the result to the Crypto layer.
package assemble

import (
	"encoding/base64"
	"fmt"

	"github.com/nymora/gitzipqr/internal/hashutil"
	"github.com/nymora/gitzipqr/internal/payload"
	"github.com/nymora/gitzipqr/internal/pipelineerr"
)

func decodeChunkData(b64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64)
}

// Session is the session-level metadata every ChunkPayload of one file agrees
// on, surfaced once the whole frame is assembled so the Crypto layer can
// derive the same key and nonce.
type Session struct {
	FileID     string
	Name       string
	Ext        string
	CipherHash string
	KdfParams  payload.KdfParams
	SaltB64    string
	NonceB64   string
	Total      int
	ChunkSize  int
}

// Assembler accumulates ChunkPayloads by index, rejecting any that disagree
// with the session established by the first payload it sees.
type Assembler struct {
	session   *Session
	chunks    map[int][]byte
	chunkHash map[int]string
	Warnings  []string
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{
		chunks:    make(map[int][]byte),
		chunkHash: make(map[int]string),
	}
}

// Add feeds one decoded payload into the assembler. A payload for an index
// already seen silently supersedes the earlier one only if its content is
// byte-identical (an idempotent duplicate from a re-scanned or re-sent
// symbol); a payload that disagrees with an already-accepted chunk at the
// same index is an integrity error, not a silent overwrite. A payload whose
// data does not match its own declared hash is corrupted rather than
// conflicting — it is dropped and recorded as a warning so a later, correct
// copy of the same chunk can still supersede it.
func (a *Assembler) Add(p *payload.ChunkPayload) error {
	data, err := decodeChunkData(p.DataB64)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Integrity, 0, fmt.Sprintf("chunk %d: invalid base64 data", p.Chunk), err)
	}
	gotHash := hashutil.BytesHex(data)
	if gotHash != p.Hash {
		a.Warnings = append(a.Warnings, fmt.Sprintf("chunk %d: hash mismatch, dropping corrupted payload", p.Chunk))
		return nil
	}

	if a.session == nil {
		a.session = sessionOf(p)
	} else if !a.session.matches(p) {
		return pipelineerr.New(pipelineerr.Integrity, 0,
			fmt.Sprintf("chunk %d: session metadata conflicts with chunk %d of the same file", p.Chunk, firstIndex(a.chunks)))
	}

	if existing, ok := a.chunkHash[p.Chunk]; ok {
		if existing != gotHash {
			return pipelineerr.New(pipelineerr.Integrity, 0,
				fmt.Sprintf("chunk %d: two different payloads claim the same index", p.Chunk))
		}
		return nil // idempotent duplicate
	}

	a.chunks[p.Chunk] = data
	a.chunkHash[p.Chunk] = gotHash
	return nil
}

// Count returns the number of distinct chunk indices accumulated so far.
func (a *Assembler) Count() int { return len(a.chunks) }

// Session returns the session metadata established by the first accepted
// payload, or nil if nothing has been added yet.
func (a *Assembler) Session() *Session { return a.session }

// Assemble concatenates every chunk in index order and verifies the result
// against the session's whole-frame cipherHash. It fails if any index in
// [0, Total) is missing, listing every missing index in ascending order.
func (a *Assembler) Assemble() ([]byte, error) {
	if a.session == nil {
		return nil, pipelineerr.New(pipelineerr.Input, 0, "no chunks were collected")
	}

	var frame []byte
	var missing []int
	for i := 0; i < a.session.Total; i++ {
		data, ok := a.chunks[i]
		if !ok {
			missing = append(missing, i)
			continue
		}
		frame = append(frame, data...)
	}
	if len(missing) > 0 {
		return nil, pipelineerr.New(pipelineerr.Integrity, 0, fmt.Sprintf("missing chunks %v of %d", missing, a.session.Total))
	}

	if got := hashutil.BytesHex(frame); got != a.session.CipherHash {
		return nil, pipelineerr.New(pipelineerr.Integrity, 0, "assembled frame does not match the recorded cipher hash")
	}

	return frame, nil
}

func sessionOf(p *payload.ChunkPayload) *Session {
	return &Session{
		FileID:     p.FileID,
		Name:       p.Name,
		Ext:        p.Ext,
		CipherHash: p.CipherHash,
		KdfParams:  p.KdfParams,
		SaltB64:    p.SaltB64,
		NonceB64:   p.NonceB64,
		Total:      p.Total,
		ChunkSize:  p.ChunkSize,
	}
}

func (s *Session) matches(p *payload.ChunkPayload) bool {
	return s.FileID == p.FileID &&
		s.Name == p.Name &&
		s.Ext == p.Ext &&
		s.CipherHash == p.CipherHash &&
		s.KdfParams == p.KdfParams &&
		s.SaltB64 == p.SaltB64 &&
		s.NonceB64 == p.NonceB64 &&
		s.Total == p.Total &&
		s.ChunkSize == p.ChunkSize
}

func firstIndex(chunks map[int][]byte) int {
	for i := range chunks {
		return i
	}
	return -1
}
