package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Digest returns a SHA-256 over dataset.json and every sample's image and
// graph, taken in sample order. It identifies the exact dataset content a
// result was computed on.
func (d *Dataset) Digest() (string, error) {
	h := sha256.New()

	files := []string{filepath.Join(d.Root, MetadataFile)}
	for _, s := range d.samples {
		files = append(files, s.ImagePath, s.GraphPath)
	}

	for _, path := range files {
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			rel = path
		}
		fmt.Fprintf(h, "%s\x00", filepath.ToSlash(rel))
		if err := hashFile(h, path); err != nil {
			return "", fmt.Errorf("digest %s: %w", path, err)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
