package qrpool

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/nymora/gitzipqr/internal/payload"
)

// DecodeJob is one QR symbol image to read back into a ChunkPayload.
type DecodeJob struct {
	Path string
}

// DecodeResult is the outcome of decoding one symbol. Ok is false whenever
// the image could not be read as a valid QR symbol, or its payload failed to
// parse; Err carries the underlying reason. A failed symbol is never fatal
// to the batch — the caller decides whether enough symbols survived to
// assemble a complete frame.
type DecodeResult struct {
	Path    string
	Payload *payload.ChunkPayload
	Ok      bool
	Err     error
}

// RunDecoders reads every path as a PNG or JPEG image, decodes its QR
// symbol, and parses the resulting text as a ChunkPayload, using up to
// workers concurrent goroutines. Results are returned in the same order as
// paths.
func RunDecoders(ctx context.Context, paths []string, workers int) []DecodeResult {
	results := make([]DecodeResult, len(paths))
	if len(paths) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = DecodeResult{Path: p, Err: gctx.Err()}
				return nil
			default:
			}
			results[i] = decodeOne(p)
			return nil
		})
	}
	g.Wait()

	return results
}

var qrReader = qrcode.NewQRCodeReader()

func decodeOne(path string) DecodeResult {
	f, err := os.Open(path)
	if err != nil {
		return DecodeResult{Path: path, Err: fmt.Errorf("qrpool: open %s: %w", path, err)}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return DecodeResult{Path: path, Err: fmt.Errorf("qrpool: decode image %s: %w", path, err)}
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return DecodeResult{Path: path, Err: fmt.Errorf("qrpool: binarize %s: %w", path, err)}
	}

	result, err := qrReader.Decode(bitmap, nil)
	if err != nil {
		return DecodeResult{Path: path, Err: fmt.Errorf("qrpool: no QR symbol found in %s: %w", path, err)}
	}

	chunk, err := payload.Unmarshal([]byte(result.GetText()))
	if err != nil {
		return DecodeResult{Path: path, Err: fmt.Errorf("qrpool: %s: %w", path, err)}
	}

	return DecodeResult{Path: path, Payload: chunk, Ok: true}
}
