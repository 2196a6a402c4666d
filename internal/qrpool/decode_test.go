package qrpool

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/skip2/go-qrcode"
)

func TestRunDecodersRoundTripsEncodedPayloads(t *testing.T) {
	dir := t.TempDir()
	texts := []string{
		`{"type":"GitZipQR-CHUNK-ENC","version":"3.1-inline-only","fileId":"abc","name":"f.txt","ext":"","chunk":0,"total":1,"hash":"h","cipherHash":"c","dataB64":"AA==","kdfParams":{"N":32768,"r":8,"p":1},"saltB64":"s","nonceB64":"n","chunkSize":10}`,
		`{"type":"GitZipQR-CHUNK-ENC","version":"3.1-inline-only","fileId":"abc","name":"f.txt","ext":"","chunk":1,"total":1,"hash":"h2","cipherHash":"c","dataB64":"AQ==","kdfParams":{"N":32768,"r":8,"p":1},"saltB64":"s","nonceB64":"n","chunkSize":10}`,
	}

	var paths []string
	encodeJobs := make([]EncodeJob, len(texts))
	for i, text := range texts {
		path := filepath.Join(dir, fmt.Sprintf("qr-%06d.png", i))
		encodeJobs[i] = EncodeJob{Index: i, Text: text, OutPath: path}
		paths = append(paths, path)
	}
	encResults := RunEncoders(context.Background(), encodeJobs, 2, qrcode.High, 1, nil)
	for _, r := range encResults {
		if r.Err != nil {
			t.Fatalf("encode setup failed: %v", r.Err)
		}
	}

	decResults := RunDecoders(context.Background(), paths, 2)
	if len(decResults) != len(paths) {
		t.Fatalf("got %d decode results, want %d", len(decResults), len(paths))
	}
	for i, r := range decResults {
		if !r.Ok || r.Err != nil {
			t.Fatalf("decode %d failed: ok=%v err=%v", i, r.Ok, r.Err)
		}
		if r.Payload.Chunk != i {
			t.Errorf("decoded chunk %d, want %d", r.Payload.Chunk, i)
		}
	}
}

func TestRunDecodersReadsJPEGSymbols(t *testing.T) {
	dir := t.TempDir()
	text := `{"type":"GitZipQR-CHUNK-ENC","version":"3.1-inline-only","fileId":"abc","name":"f.txt","ext":"","chunk":0,"total":1,"hash":"h","cipherHash":"c","dataB64":"AA==","kdfParams":{"N":32768,"r":8,"p":1},"saltB64":"s","nonceB64":"n","chunkSize":10}`

	pngPath := filepath.Join(dir, "qr-000000.png")
	encResults := RunEncoders(context.Background(), []EncodeJob{{Index: 0, Text: text, OutPath: pngPath}}, 1, qrcode.High, 1, nil)
	if encResults[0].Err != nil {
		t.Fatalf("encode setup failed: %v", encResults[0].Err)
	}

	pngFile, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := image.Decode(pngFile)
	pngFile.Close()
	if err != nil {
		t.Fatalf("decode rendered PNG: %v", err)
	}

	jpgPath := filepath.Join(dir, "qr-000000.jpg")
	jpgFile, err := os.Create(jpgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(jpgFile, img, &jpeg.Options{Quality: 100}); err != nil {
		jpgFile.Close()
		t.Fatalf("re-encode as JPEG: %v", err)
	}
	jpgFile.Close()

	results := RunDecoders(context.Background(), []string{jpgPath}, 1)
	if len(results) != 1 || !results[0].Ok || results[0].Err != nil {
		t.Fatalf("expected JPEG symbol to decode successfully, got %+v", results)
	}
	if results[0].Payload.Chunk != 0 {
		t.Errorf("decoded chunk %d, want 0", results[0].Payload.Chunk)
	}
}

func TestRunDecodersReportsUnreadableImage(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "not-an-image.png")
	if err := os.WriteFile(badPath, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := RunDecoders(context.Background(), []string{badPath}, 1)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Ok {
		t.Error("expected Ok=false for a non-image file")
	}
	if results[0].Err == nil {
		t.Error("expected a decode error")
	}
}

func TestRunDecodersEmptyPathList(t *testing.T) {
	results := RunDecoders(context.Background(), nil, 3)
	if len(results) != 0 {
		t.Fatalf("expected no results for empty path list, got %d", len(results))
	}
}
