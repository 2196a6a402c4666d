package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nymora/gitzipqr/internal/archive"
	"github.com/nymora/gitzipqr/internal/chunk"
	"github.com/nymora/gitzipqr/internal/cryptoutils"
	"github.com/nymora/gitzipqr/internal/hashutil"
	"github.com/nymora/gitzipqr/internal/payload"
	"github.com/nymora/gitzipqr/internal/pipelineerr"
	"github.com/nymora/gitzipqr/internal/qrcap"
	"github.com/nymora/gitzipqr/internal/qrpool"
)

// EncodeSummary reports what an encode run produced.
type EncodeSummary struct {
	FileID     string
	TotalChunks int
	ChunkSize  int
	OutputDir  string
}

// Encode runs the seven encode steps: gather password, prepare data,
// encrypt, calibrate capacity, chunk and enqueue, render in parallel,
// summarize. inputPath is either a regular file or a directory; outputDir
// receives the rendered qr-NNNNNN.png symbols.
func (p *Pipeline) Encode(ctx context.Context, inputPath, outputDir string, passwords [][]byte) (*EncodeSummary, error) {
	if len(passwords) == 0 {
		return nil, pipelineerr.New(pipelineerr.Input, 1, "at least one password is required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.IO, 0, "create output directory", err)
	}

	var summary *EncodeSummary
	err := withTempDir(ctx, "gitzipqr-encode-", func(scratch string) error {
		var joined []byte
		if err := p.runStep(1, "gather password", func() error {
			joined = cryptoutils.JoinPasswords(passwords)
			if len(joined) < 8 {
				return pipelineerr.New(pipelineerr.Input, 1, "password must be at least 8 bytes")
			}
			return nil
		}); err != nil {
			return err
		}
		defer cryptoutils.ZeroBytes(joined)

		var name, ext, sourcePath string
		if err := p.runStep(2, "prepare data", func() error {
			info, err := os.Stat(inputPath)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.Input, 2, "stat input", err)
			}
			base := filepath.Base(filepath.Clean(inputPath))
			if info.IsDir() {
				name = base
				ext = ".zip"
				sourcePath = filepath.Join(scratch, "archive.zip")
				if err := archive.Archive(inputPath, sourcePath); err != nil {
					return pipelineerr.Wrap(pipelineerr.IO, 2, "archive directory", err)
				}
				return nil
			}
			ext = filepath.Ext(base)
			name = base[:len(base)-len(ext)]
			sourcePath = inputPath
			return nil
		}); err != nil {
			return err
		}

		var salt, nonce, frame []byte
		var cipherHash string
		if err := p.runStep(3, "encrypt", func() error {
			// cipher.AEAD.Seal takes the whole message in one call, so the
			// whole plaintext and the whole ciphertext frame are both resident
			// here. Step 5 writes the frame to the scratch directory and reads
			// every chunk back with chunk.Reader before rendering starts.
			plaintext, err := os.ReadFile(sourcePath)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.IO, 3, "read prepared data", err)
			}
			salt, err = cryptoutils.GenerateSalt()
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.IO, 3, "generate salt", err)
			}
			nonce, err = cryptoutils.GenerateNonce()
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.IO, 3, "generate nonce", err)
			}
			key, err := cryptoutils.DeriveKey(joined, salt, p.cfg.ScryptN, p.cfg.ScryptR, p.cfg.ScryptP)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.Crypto, 3, "derive key", err)
			}
			defer cryptoutils.ZeroBytes(key)
			frame, err = cryptoutils.EncryptFrame(plaintext, key, nonce)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.Crypto, 3, "encrypt frame", err)
			}
			cipherHash = hashutil.BytesHex(frame)
			return nil
		}); err != nil {
			return err
		}

		chunkSize := p.cfg.ChunkSize
		if err := p.runStep(4, "calibrate capacity", func() error {
			if chunkSize <= 0 {
				chunkSize = qrcap.MaxRawChunkSize(p.cfg.QRECL)
			}
			if chunkSize <= 0 {
				return pipelineerr.New(pipelineerr.Capacity, 4, "calibrated chunk size is not positive")
			}
			return nil
		}); err != nil {
			return err
		}

		framePath := filepath.Join(scratch, "frame.bin")
		var reader *chunk.Reader
		var jobs []qrpool.EncodeJob
		fileID := hashutil.FileID(name, cipherHash)
		if err := p.runStep(5, "chunk and enqueue jobs", func() error {
			if err := os.WriteFile(framePath, frame, 0o600); err != nil {
				return pipelineerr.Wrap(pipelineerr.IO, 5, "write ciphertext frame", err)
			}
			var err error
			reader, err = chunk.Open(framePath, chunkSize)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.IO, 5, "open ciphertext frame", err)
			}
			pieces, err := reader.All()
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.IO, 5, "read chunks", err)
			}
			kdf := payload.KdfParams{N: uint32(p.cfg.ScryptN), R: uint32(p.cfg.ScryptR), P: uint32(p.cfg.ScryptP)}
			for _, piece := range pieces {
				cp := &payload.ChunkPayload{
					Type:       payload.TypeConstant,
					Version:    payload.VersionConstant,
					FileID:     fileID,
					Name:       name,
					Ext:        ext,
					Chunk:      piece.Index,
					Total:      reader.Total(),
					Hash:       piece.Hash,
					CipherHash: cipherHash,
					DataB64:    base64.StdEncoding.EncodeToString(piece.Data),
					KdfParams:  kdf,
					SaltB64:    base64.StdEncoding.EncodeToString(salt),
					NonceB64:   base64.StdEncoding.EncodeToString(nonce),
					ChunkSize:  chunkSize,
				}
				text, err := cp.Marshal()
				if err != nil {
					return pipelineerr.Wrap(pipelineerr.IO, 5, fmt.Sprintf("marshal chunk %d", piece.Index), err)
				}
				jobs = append(jobs, qrpool.EncodeJob{
					Index:   piece.Index,
					Text:    string(text),
					OutPath: filepath.Join(outputDir, fmt.Sprintf("qr-%06d.png", piece.Index)),
				})
			}
			return nil
		}); err != nil {
			if reader != nil {
				reader.Close()
			}
			return err
		}
		defer reader.Close()

		if err := p.runStep(6, "render in parallel", func() error {
			results := qrpool.RunEncoders(ctx, jobs, p.cfg.QRWorkers, p.cfg.QRECL, p.cfg.QRMargin, func(completed, total int) {
				fmt.Fprintf(p.out, "\r  rendered %d/%d", completed, total)
			})
			fmt.Fprintln(p.out)
			for _, r := range results {
				if r.Err != nil {
					return pipelineerr.Wrap(pipelineerr.IO, 6, fmt.Sprintf("render chunk %d", r.Index), r.Err)
				}
			}
			return nil
		}); err != nil {
			return err
		}

		return p.runStep(7, "summary", func() error {
			summary = &EncodeSummary{
				FileID:      fileID,
				TotalChunks: reader.Total(),
				ChunkSize:   chunkSize,
				OutputDir:   outputDir,
			}
			fmt.Fprintf(p.out, "  wrote %d symbols to %s\n", summary.TotalChunks, outputDir)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
