package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nymora/gitzipqr/internal/assemble"
	"github.com/nymora/gitzipqr/internal/cryptoutils"
	"github.com/nymora/gitzipqr/internal/legacy"
	"github.com/nymora/gitzipqr/internal/payload"
	"github.com/nymora/gitzipqr/internal/pipelineerr"
	"github.com/nymora/gitzipqr/internal/qrpool"
)

// DecodeSummary reports what a decode run produced.
type DecodeSummary struct {
	OutputPath string
	Bytes      int
}

// Decode runs the four decode steps: collect payloads, verify and assemble,
// decrypt, write output. inputPath is a directory of PNG/JPEG symbols, or
// (per the legacy acceptance rule) a directory of *.bin.json fragments plus
// manifest.json.
func (p *Pipeline) Decode(ctx context.Context, inputPath, outputDir string, passwords [][]byte) (*DecodeSummary, error) {
	if len(passwords) == 0 {
		return nil, pipelineerr.New(pipelineerr.Input, 1, "at least one password is required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.IO, 0, "create output directory", err)
	}

	var summary *DecodeSummary
	err := withTempDir(ctx, "gitzipqr-decode-", func(_ string) error {
		var payloads []*payload.ChunkPayload
		if err := p.runStep(1, "collect payloads", func() error {
			var err error
			payloads, err = collectPayloads(ctx, inputPath, p.cfg.QRWorkers)
			if err != nil {
				return err
			}
			if len(payloads) == 0 {
				return pipelineerr.New(pipelineerr.Input, 1, "no recognizable chunk payloads were found")
			}
			return nil
		}); err != nil {
			return err
		}

		var frame []byte
		var session *assemble.Session
		if err := p.runStep(2, "verify and assemble", func() error {
			a := assemble.New()
			for _, pl := range payloads {
				if err := a.Add(pl); err != nil {
					return err
				}
			}
			for _, w := range a.Warnings {
				fmt.Fprintf(p.out, "  warning: %s\n", w)
			}
			var err error
			frame, err = a.Assemble()
			if err != nil {
				return err
			}
			session = a.Session()
			return nil
		}); err != nil {
			return err
		}

		var plaintext []byte
		if err := p.runStep(3, "decrypt", func() error {
			joined := cryptoutils.JoinPasswords(passwords)
			defer cryptoutils.ZeroBytes(joined)

			salt, err := base64.StdEncoding.DecodeString(session.SaltB64)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.Integrity, 3, "decode salt", err)
			}
			nonce, err := base64.StdEncoding.DecodeString(session.NonceB64)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.Integrity, 3, "decode nonce", err)
			}
			key, err := cryptoutils.DeriveKey(joined, salt, int(session.KdfParams.N), int(session.KdfParams.R), int(session.KdfParams.P))
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.Crypto, 3, "derive key", err)
			}
			defer cryptoutils.ZeroBytes(key)
			plaintext, err = cryptoutils.DecryptFrame(frame, key, nonce)
			if err != nil {
				return pipelineerr.Wrap(pipelineerr.Crypto, 3, "decrypt frame", err)
			}
			return nil
		}); err != nil {
			return err
		}

		return p.runStep(4, "write output", func() error {
			outPath, err := writeOutput(outputDir, session.Name, session.Ext, plaintext)
			if err != nil {
				return err
			}
			summary = &DecodeSummary{OutputPath: outPath, Bytes: len(plaintext)}
			fmt.Fprintf(p.out, "  wrote %s (%d bytes)\n", outPath, len(plaintext))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// collectPayloads gathers ChunkPayloads from inputPath, which is either a
// directory of QR symbol images or a legacy *.bin.json + manifest.json
// fragment directory.
func collectPayloads(ctx context.Context, inputPath string, workers int) ([]*payload.ChunkPayload, error) {
	if legacy.IsLegacyDir(inputPath) {
		chunks, err := legacy.Load(inputPath)
		if err != nil {
			return nil, pipelineerr.Wrap(pipelineerr.Input, 1, "load legacy fragments", err)
		}
		return chunks, nil
	}

	entries, err := os.ReadDir(inputPath)
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.Input, 1, "read input directory", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".png" || ext == ".jpg" || ext == ".jpeg" {
			paths = append(paths, filepath.Join(inputPath, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, pipelineerr.New(pipelineerr.Input, 1, "no PNG/JPEG symbols found in input directory")
	}

	results := qrpool.RunDecoders(ctx, paths, workers)
	var out []*payload.ChunkPayload
	for _, r := range results {
		if r.Ok && r.Payload != nil {
			out = append(out, r.Payload)
		}
		// A symbol that fails to decode or parse is dropped, not fatal —
		// missing chunks surface later as an integrity error from the
		// Assembler if they leave gaps.
	}
	return out, nil
}

// writeOutput writes data to <outputDir>/<name><ext>. If ext is empty, it
// falls back to magic-number sniffing via net/http.DetectContentType, with
// ".bin" as the last resort.
func writeOutput(outputDir, name, ext string, data []byte) (string, error) {
	if name == "" {
		name = "output"
	}
	if ext == "" {
		ext = extFromMagicNumber(data)
	}
	path := filepath.Join(outputDir, name+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", pipelineerr.Wrap(pipelineerr.IO, 4, "write output file", err)
	}
	return path, nil
}

func extFromMagicNumber(data []byte) string {
	switch http.DetectContentType(data) {
	case "application/zip", "application/x-zip-compressed":
		return ".zip"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "application/pdf":
		return ".pdf"
	case "text/plain; charset=utf-8":
		return ".txt"
	default:
		return ".bin"
	}
}
