// Package archive builds a deterministic zip container from a directory
// tree, suitable for round-tripping bit-for-bit: stable entry ordering,
// epoch timestamps, and no per-run nonce.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// epoch is the fixed modification time stamped onto every archive entry so
// two archives of the same tree are byte-identical regardless of when they
// were built.
var epoch = time.Unix(0, 0).UTC()

// Archive walks root and writes a deterministic zip file at destPath. Entries
// are added in an order that is stable across runs on the same tree: relative
// paths are collected first, then sorted by path bytes.
func Archive(root, destPath string) error {
	root = filepath.Clean(root)

	var relPaths []string
	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		relPaths = append(relPaths, rel)
		return nil
	}); err != nil {
		return fmt.Errorf("archive: walk %s: %w", root, err)
	}
	sort.Strings(relPaths)

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", destPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, rel := range relPaths {
		if err := addEntry(zw, root, rel); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: close zip writer: %w", err)
	}
	return nil
}

func addEntry(zw *zip.Writer, root, rel string) error {
	fh := &zip.FileHeader{
		Name:     rel,
		Modified: epoch,
	}

	if len(rel) > 0 && rel[len(rel)-1] == '/' {
		fh.Method = zip.Store
		_, err := zw.CreateHeader(fh)
		return err
	}

	fh.Method = zip.Deflate
	w, err := zw.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("archive: create header for %s: %w", rel, err)
	}

	src, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", rel, err)
	}
	defer src.Close()

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("archive: write %s: %w", rel, err)
	}
	return nil
}
