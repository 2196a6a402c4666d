package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skip2/go-qrcode"

	"github.com/nymora/gitzipqr/internal/config"
	"github.com/nymora/gitzipqr/internal/qrpool"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ScryptN = 1 << 10 // keep KDF fast in tests
	cfg.ScryptR = 1
	cfg.ScryptP = 1
	cfg.QRECL = qrcode.Low
	cfg.QRWorkers = 2
	cfg.ChunkSize = 200
	return cfg
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEncodeDecodeTinyFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "note.txt")
	writeFile(t, in, []byte("hello, gitzipqr"))

	symbolsDir := filepath.Join(dir, "symbols")
	outDir := filepath.Join(dir, "out")

	p := New(testConfig())
	passwords := [][]byte{[]byte("correct horse battery")}

	encSummary, err := p.Encode(context.Background(), in, symbolsDir, passwords)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encSummary.TotalChunks < 1 {
		t.Fatalf("expected at least one chunk, got %d", encSummary.TotalChunks)
	}

	decSummary, err := p.Decode(context.Background(), symbolsDir, outDir, passwords)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, err := os.ReadFile(decSummary.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "hello, gitzipqr" {
		t.Errorf("round-tripped content = %q, want %q", got, "hello, gitzipqr")
	}
	if filepath.Ext(decSummary.OutputPath) != ".txt" {
		t.Errorf("output extension = %q, want .txt", filepath.Ext(decSummary.OutputPath))
	}
}

func TestEncodeDecodeFolder(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "project")
	if err := os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("file a contents, repeated to exceed one chunk in size. "+
		"file a contents, repeated to exceed one chunk in size."))
	writeFile(t, filepath.Join(srcDir, "sub", "b.bin"), []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	symbolsDir := filepath.Join(dir, "symbols")
	outDir := filepath.Join(dir, "out")

	p := New(testConfig())
	passwords := [][]byte{[]byte("folder password 123")}

	if _, err := p.Encode(context.Background(), srcDir, symbolsDir, passwords); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decSummary, err := p.Decode(context.Background(), symbolsDir, outDir, passwords)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if filepath.Ext(decSummary.OutputPath) != ".zip" {
		t.Errorf("output extension = %q, want .zip", filepath.Ext(decSummary.OutputPath))
	}
}

func TestDecodeWrongPassword(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "secret.txt")
	writeFile(t, in, []byte("top secret payload"))

	symbolsDir := filepath.Join(dir, "symbols")
	outDir := filepath.Join(dir, "out")

	p := New(testConfig())
	if _, err := p.Encode(context.Background(), in, symbolsDir, [][]byte{[]byte("right password")}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err := p.Decode(context.Background(), symbolsDir, outDir, [][]byte{[]byte("wrong password!!")})
	if err == nil {
		t.Fatal("expected decode to fail with the wrong password")
	}
}

func TestDecodeFailsOnUnreadableSymbol(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "data.txt")
	writeFile(t, in, []byte("data that will be corrupted after encoding"))

	symbolsDir := filepath.Join(dir, "symbols")
	outDir := filepath.Join(dir, "out")

	p := New(testConfig())
	passwords := [][]byte{[]byte("a password for corruption")}
	if _, err := p.Encode(context.Background(), in, symbolsDir, passwords); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	entries, err := os.ReadDir(symbolsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one rendered symbol")
	}
	// Replace one symbol's PNG with garbage bytes so its QR payload cannot be
	// decoded at all, simulating a corrupted/unreadable symbol.
	corruptPath := filepath.Join(symbolsDir, entries[0].Name())
	writeFile(t, corruptPath, []byte("not a png"))

	if _, err := p.Decode(context.Background(), symbolsDir, outDir, passwords); err == nil {
		t.Fatal("expected decode to fail when a symbol is corrupted and a chunk goes missing")
	}
}

func TestDecodeRecoversFromCorruptedDuplicateAlongsideGoodCopy(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "recover.txt")
	writeFile(t, in, []byte("content that survives a corrupted duplicate symbol"))

	symbolsDir := filepath.Join(dir, "symbols")
	outDir := filepath.Join(dir, "out")

	p := New(testConfig())
	passwords := [][]byte{[]byte("recovery password 99")}
	if _, err := p.Encode(context.Background(), in, symbolsDir, passwords); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	entries, err := os.ReadDir(symbolsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one rendered symbol")
	}
	goodPath := filepath.Join(symbolsDir, entries[0].Name())

	// Decode the good symbol back to its payload, tamper its declared hash,
	// and render it again under a new filename so the directory holds a
	// corrupted duplicate of chunk 0 alongside the original good copy.
	results := qrpool.RunDecoders(context.Background(), []string{goodPath}, 1)
	if len(results) != 1 || !results[0].Ok {
		t.Fatalf("failed to decode the rendered symbol back for tampering: %+v", results)
	}
	tampered := *results[0].Payload
	tampered.Hash = "0000000000000000000000000000000000000000000000000000000000000000"
	text, err := tampered.Marshal()
	if err != nil {
		t.Fatalf("marshal tampered payload: %v", err)
	}
	corruptPath := filepath.Join(symbolsDir, "qr-corrupt-duplicate.png")
	renderResults := qrpool.RunEncoders(context.Background(), []qrpool.EncodeJob{
		{Index: 0, Text: string(text), OutPath: corruptPath},
	}, 1, qrcode.Low, 1, nil)
	if renderResults[0].Err != nil {
		t.Fatalf("render tampered duplicate: %v", renderResults[0].Err)
	}

	decSummary, err := p.Decode(context.Background(), symbolsDir, outDir, passwords)
	if err != nil {
		t.Fatalf("Decode should recover using the good copy of the duplicated chunk: %v", err)
	}
	got, err := os.ReadFile(decSummary.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content that survives a corrupted duplicate symbol" {
		t.Errorf("round-tripped content mismatch after tolerating a corrupted duplicate")
	}
}

func TestDecodeShuffledSymbolNames(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "shuffled.txt")
	writeFile(t, in, []byte("this content spans several chunks once rendered to small QR symbols for the shuffle test"))

	symbolsDir := filepath.Join(dir, "symbols")
	renamedDir := filepath.Join(dir, "renamed")
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(renamedDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ChunkSize = 20 // force multiple chunks so shuffled ordering is exercised
	p := New(cfg)
	passwords := [][]byte{[]byte("shuffle password 42")}
	encSummary, err := p.Encode(context.Background(), in, symbolsDir, passwords)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encSummary.TotalChunks < 2 {
		t.Fatalf("expected multiple chunks for the shuffle test, got %d", encSummary.TotalChunks)
	}

	entries, err := os.ReadDir(symbolsDir)
	if err != nil {
		t.Fatal(err)
	}
	// Copy every symbol under filenames that carry no ordering information,
	// confirming chunk order is reconstructed from the payload, not the name.
	for i, e := range entries {
		data, err := os.ReadFile(filepath.Join(symbolsDir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		writeFile(t, filepath.Join(renamedDir, string(rune('z'-i))+"-symbol.png"), data)
	}

	decSummary, err := p.Decode(context.Background(), renamedDir, outDir, passwords)
	if err != nil {
		t.Fatalf("Decode with shuffled filenames: %v", err)
	}
	got, err := os.ReadFile(decSummary.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "this content spans several chunks once rendered to small QR symbols for the shuffle test" {
		t.Errorf("round-tripped content mismatch after shuffled filenames")
	}
}
