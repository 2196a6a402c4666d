package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildTree(t *testing.T, root string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("aaaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.bin"), bytes.Repeat([]byte{0xAB}, 4096), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestArchiveIsDeterministic(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root)

	dest1 := filepath.Join(t.TempDir(), "out1.zip")
	dest2 := filepath.Join(t.TempDir(), "out2.zip")

	if err := Archive(root, dest1); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if err := Archive(root, dest2); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	b1, err := os.ReadFile(dest1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(dest2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Error("two archives of the same tree should be byte-identical")
	}
}

func TestArchiveExtractRoundTrip(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root)

	zipPath := filepath.Join(t.TempDir(), "out.zip")
	if err := Archive(root, zipPath); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	destDir := t.TempDir()
	if err := Extract(zipPath, destDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	gotA, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	if err != nil {
		t.Fatalf("read extracted a.txt: %v", err)
	}
	if string(gotA) != "aaaa" {
		t.Errorf("a.txt = %q, want %q", gotA, "aaaa")
	}

	gotB, err := os.ReadFile(filepath.Join(destDir, "sub", "b.bin"))
	if err != nil {
		t.Fatalf("read extracted sub/b.bin: %v", err)
	}
	if !bytes.Equal(gotB, bytes.Repeat([]byte{0xAB}, 4096)) {
		t.Error("sub/b.bin contents mismatch after round trip")
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "safe.txt"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "out.zip")
	if err := Archive(root, zipPath); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := safeJoin(t.TempDir(), "../../etc/passwd"); err == nil {
		t.Error("expected safeJoin to reject a path-traversal entry name")
	}
}
