// Package config carries every tunable of the encode/decode pipeline as a plain
// value struct threaded explicitly from the entry point, rather than read from
// process-wide state at arbitrary call sites.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/skip2/go-qrcode"
)

// Config holds every knob recognized by the encode/decode pipeline.
type Config struct {
	ScryptN   int
	ScryptR   int
	ScryptP   int
	QRECL     qrcode.RecoveryLevel
	QRMargin  int
	QRWorkers int
	ChunkSize int // 0 means "let the calibrator decide"
}

// Default returns the baseline tuning: ScryptP and QRWorkers keyed off the
// runtime's CPU count, and QRECL set to redundancy level Q (go-qrcode names
// this tier "High").
func Default() Config {
	cpus := runtime.NumCPU()
	return Config{
		ScryptN:   1 << 15,
		ScryptR:   8,
		ScryptP:   cpus,
		QRECL:     qrcode.High,
		QRMargin:  1,
		QRWorkers: cpus,
		ChunkSize: 0,
	}
}

// FromEnv layers recognized environment variables on top of Default(),
// returning a plain (unclassified) error on any malformed value.
func FromEnv() (Config, error) {
	cfg := Default()

	if v, ok := os.LookupEnv("SCRYPT_N"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 1 {
			return Config{}, fmt.Errorf("config: invalid SCRYPT_N %q", v)
		}
		cfg.ScryptN = n
	}
	if v, ok := os.LookupEnv("SCRYPT_r"); ok {
		r, err := strconv.Atoi(v)
		if err != nil || r <= 0 {
			return Config{}, fmt.Errorf("config: invalid SCRYPT_r %q", v)
		}
		cfg.ScryptR = r
	}
	if v, ok := os.LookupEnv("SCRYPT_p"); ok {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 {
			return Config{}, fmt.Errorf("config: invalid SCRYPT_p %q", v)
		}
		cfg.ScryptP = p
	}
	if v, ok := os.LookupEnv("QR_ECL"); ok {
		ecl, err := ParseECL(v)
		if err != nil {
			return Config{}, err
		}
		cfg.QRECL = ecl
	}
	if v, ok := os.LookupEnv("QR_MARGIN"); ok {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 {
			return Config{}, fmt.Errorf("config: invalid QR_MARGIN %q", v)
		}
		cfg.QRMargin = m
	}
	if v, ok := os.LookupEnv("QR_WORKERS"); ok {
		w, err := strconv.Atoi(v)
		if err != nil || w <= 0 {
			return Config{}, fmt.Errorf("config: invalid QR_WORKERS %q", v)
		}
		cfg.QRWorkers = w
	}
	if v, ok := os.LookupEnv("CHUNK_SIZE"); ok {
		s, err := strconv.Atoi(v)
		if err != nil || s <= 0 {
			return Config{}, fmt.Errorf("config: invalid CHUNK_SIZE %q", v)
		}
		cfg.ChunkSize = s
	}
	return cfg, nil
}

// ParseECL maps the one-letter configuration values to qrcode.RecoveryLevel.
func ParseECL(s string) (qrcode.RecoveryLevel, error) {
	switch s {
	case "L":
		return qrcode.Low, nil
	case "M":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil // go-qrcode names Q-equivalent redundancy "High"
	case "H":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("config: unrecognized QR_ECL %q, want one of L|M|Q|H", s)
	}
}
