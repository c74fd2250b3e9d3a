package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// RefPrefix is the URL path under which stored items are served.
const RefPrefix = "/media/"

var ErrBadID = errors.New("invalid media id")

// Item is one stored media file. Ref is the engine-relative URL the
// player and the compositor resolver use to reach it.
type Item struct {
	ID   string `json:"id"`
	Ref  string `json:"ref"`
	Size int64  `json:"size"`
}

// Store keeps uploaded media as flat files under one directory. IDs are
// generated, never caller-supplied, so lookups only need to reject path
// escapes.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Put streams r into the store under a fresh id. The bytes land in a
// temp file first and are renamed into place, so a reader can never
// observe a partially written item.
func (s *Store) Put(filename string, r io.Reader) (*Item, error) {
	id := uuid.NewString() + safeExt(filename)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	final := filepath.Join(s.dir, id)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	s.logger.Info("media stored", "id", id, "bytes", size)
	return &Item{ID: id, Ref: RefPrefix + id, Size: size}, nil
}

// Path maps an id to its on-disk location, rejecting anything that could
// escape the store directory.
func (s *Store) Path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadID, id)
	}
	return filepath.Join(s.dir, id), nil
}

// Open returns the stored file and its info. os.IsNotExist distinguishes
// missing items from IO failures.
func (s *Store) Open(id string) (*os.File, os.FileInfo, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

// safeExt keeps a short, boring extension and drops anything else.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
