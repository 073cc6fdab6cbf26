// Package attachment keeps uploaded task files outside the database. Files
// are addressed by an opaque stored name recorded on the task.
package attachment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrNotFound is returned when no file is stored under a name.
	ErrNotFound = errors.New("attachment not found")

	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("attachment too large")

	// ErrInvalidName is returned for names that could escape the store root.
	ErrInvalidName = errors.New("invalid attachment name")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store saves attachments under a single directory of an afero filesystem.
type Store struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
}

// New returns a store rooted at dir on fs. A non-positive maxBytes disables
// the size limit.
func New(fs afero.Fs, dir string, maxBytes int64) *Store {
	return &Store{fs: fs, dir: dir, maxBytes: maxBytes}
}

// NewOS returns a store on the local filesystem.
func NewOS(dir string, maxBytes int64) *Store {
	return New(afero.NewOsFs(), dir, maxBytes)
}

// Save copies r into the store and returns the generated stored name,
// "<uuid>_<base name>". The file appears atomically: readers never observe
// a partial upload.
func (s *Store) Save(r io.Reader, suggestedName string) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating attachment dir: %w", err)
	}

	name := uuid.New().String() + "_" + sanitize(suggestedName)

	tmp, err := afero.TempFile(s.fs, s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		return "", fmt.Errorf("writing attachment: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing attachment: %w", err)
	}

	if err := s.fs.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("committing attachment: %w", err)
	}
	committed = true
	return name, nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting attachment %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a file is stored under name.
func (s *Store) Exists(name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, path)
	if err != nil {
		return false, fmt.Errorf("checking attachment %s: %w", name, err)
	}
	return ok, nil
}

// Open returns a reader over a stored file. The caller must close it.
func (s *Store) Open(name string) (afero.File, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("opening attachment %s: %w", name, err)
	}
	return f, nil
}

// DisplayName strips the generated prefix from a stored name.
func DisplayName(name string) string {
	if _, rest, ok := strings.Cut(name, "_"); ok && rest != "" {
		return rest
	}
	return name
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// sanitize reduces a client-supplied file name to a safe base name.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
