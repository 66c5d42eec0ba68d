// Package archive handles uploaded submission archives: saving them to
// disk, extracting Java sources from zip files, and content addressing.
package archive

import (
	"archive/zip"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// Upload kinds. Every archive is uploaded as one or the other side of a
// grading session.
const (
	KindStudent   = "student"
	KindReference = "reference"
)

// Upload describes a stored submission archive.
type Upload struct {
	ID     string `json:"id" toon:"id"`
	Name   string `json:"name" toon:"name"`
	Kind   string `json:"kind" toon:"kind"`
	Path   string `json:"-" toon:"-"`
	Size   int64  `json:"size" toon:"size"`
	Digest string `json:"digest" toon:"digest"`
}

// Store saves uploads under a base directory, addressed by content digest.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates an upload store rooted at dir. maxBytes caps the size of
// a single archive; 0 means no limit.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Save writes an uploaded archive to disk and returns its record. The ID is
// derived from the content digest, so saving the same bytes twice yields the
// same upload.
func (s *Store) Save(name, kind string, r io.Reader) (*Upload, error) {
	limit := io.Reader(r)
	if s.maxBytes > 0 {
		limit = io.LimitReader(r, s.maxBytes+1)
	}

	data, err := io.ReadAll(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("upload exceeds %d byte limit", s.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload")
	}

	digest := Digest(data)
	id := digest[:16]
	path := filepath.Join(s.dir, id+".zip")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return &Upload{
		ID:     id,
		Name:   filepath.Base(name),
		Kind:   kind,
		Path:   path,
		Size:   int64(len(data)),
		Digest: digest,
	}, nil
}

// Path returns the on-disk location for an upload ID.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+".zip")
}

// Digest returns the hex blake3 digest of data.
func Digest(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ExtractJava unpacks the Java sources from a zip archive into destDir,
// preserving the archive's directory layout. Entries that would escape the
// destination or that are not .java files are skipped. Returns the paths of
// the extracted files.
func ExtractJava(archivePath, destDir string) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	var extracted []string
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name), ".java") {
			continue
		}

		target, ok := safeJoin(destDir, entry.Name)
		if !ok {
			continue
		}

		if err := extractEntry(entry, target); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", entry.Name, err)
		}
		extracted = append(extracted, target)
	}

	return extracted, nil
}

// safeJoin resolves an archive entry name under root, rejecting entries
// that would escape it via .. or absolute paths.
func safeJoin(root, name string) (string, bool) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || cleaned == ".." {
		return "", false
	}
	return filepath.Join(root, cleaned), true
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
