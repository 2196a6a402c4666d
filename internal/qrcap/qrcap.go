// Package qrcap implements an analytical capacity calibration: given an
// error-correction level, compute the largest raw chunk size that fits
// inside one QR symbol.
package qrcap

import (
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/nymora/gitzipqr/internal/payload"
)

// versionCapacityBytes gives the byte capacity of a version-40 QR symbol at
// each error correction level, per the QR standard's published table.
var versionCapacityBytes = map[qrcode.RecoveryLevel]int{
	qrcode.Low:     2953,
	qrcode.Medium:  2331,
	qrcode.High:    1663, // Q
	qrcode.Highest: 1273, // H
}

// minChunkSize is the floor enforced regardless of calibration.
const minChunkSize = 512

// safetyFactor and rawByteFactor are empirical derating constants, kept
// as-is rather than replaced with a binary-search calibration pass.
const (
	safetyFactor  = 0.92
	rawByteFactor = 0.98
)

// emptyPayloadOverhead builds a worst-case ChunkPayload with every field at
// its maximum realistic width and empty chunk data, returning the byte length
// of its canonical JSON. This is the JSON "overhead" subtracted from a
// symbol's raw byte capacity; the remainder is the base64 budget, which is
// then converted to a raw-byte chunk size.
func emptyPayloadOverhead() int {
	worst := &payload.ChunkPayload{
		Type:       payload.TypeConstant,
		Version:    payload.VersionConstant,
		FileID:     strings.Repeat("f", 16),
		Name:       strings.Repeat("n", 255),
		Ext:        ".tar.gz",
		Chunk:      999999,
		Total:      999999,
		Hash:       strings.Repeat("a", 64),
		CipherHash: strings.Repeat("b", 64),
		DataB64:    "",
		KdfParams:  payload.KdfParams{N: 1 << 20, R: 255, P: 255},
		SaltB64:    strings.Repeat("A", 24),
		NonceB64:   strings.Repeat("A", 16),
		ChunkSize:  999999999,
	}
	data, err := worst.Marshal()
	if err != nil {
		// Marshal of a plain struct with only strings/ints cannot fail.
		panic(err)
	}
	return len(data)
}

// MaxRawChunkSize returns the largest raw chunk size, in bytes, that fits
// inside one QR symbol at the given error correction level, clamped to a
// 512-byte floor.
func MaxRawChunkSize(ecl qrcode.RecoveryLevel) int {
	symbolCapacity, ok := versionCapacityBytes[ecl]
	if !ok {
		symbolCapacity = versionCapacityBytes[qrcode.High]
	}

	b64Budget := symbolCapacity - emptyPayloadOverhead()
	if b64Budget <= 0 {
		return minChunkSize
	}

	raw := float64(b64Budget) * safetyFactor / 4 * 3 * rawByteFactor
	rawInt := int(raw)
	if rawInt < minChunkSize {
		return minChunkSize
	}
	return rawInt
}
