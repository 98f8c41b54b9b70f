package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	errs "fanfoudl/pkg/errors"
)

// ChunkSize is the copy buffer used when streaming a photo to disk
const ChunkSize = 4096

var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeName makes a display name usable as a single path element
func SanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return "_"
	}
	return name
}

// Manager places photos under {base}/{owner}/ and never overwrites an existing file
type Manager struct {
	baseDir string
}

// NewManager creates a manager rooted at baseDir, creating it if needed
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// Dir returns the directory holding owner's photos
func (m *Manager) Dir(owner string) string {
	return filepath.Join(m.baseDir, SanitizeName(owner))
}

// Path returns where filename for owner is stored
func (m *Manager) Path(owner, filename string) string {
	return filepath.Join(m.Dir(owner), filename)
}

// Count returns the number of regular files in owner's directory
func (m *Manager) Count(owner string) (int, error) {
	entries, err := os.ReadDir(m.Dir(owner))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	n := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}

// Pending is a freshly created, still empty photo file
type Pending struct {
	file *os.File
	path string
}

// Path returns the file location
func (p *Pending) Path() string {
	return p.path
}

// Create claims the target file. The check and the creation are a single
// O_EXCL open, so an existing file yields an already-exists error and is
// never touched.
func (m *Manager) Create(owner, filename string) (*Pending, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return nil, errs.New(errs.KindMalformedReference, fmt.Sprintf("unusable filename %q", filename))
	}

	dir := m.Dir(owner)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.KindIO, "create album directory "+dir, err)
	}

	path := filepath.Join(dir, filename)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, errs.New(errs.KindAlreadyExists, path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "create "+path, err)
	}
	return &Pending{file: file, path: path}, nil
}

// Fill streams r into the file in ChunkSize pieces and closes it.
// On any failure the partial file is removed.
func (p *Pending) Fill(r io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	// Plain wrappers keep io.CopyBuffer from bypassing buf via ReadFrom/WriteTo.
	n, err := io.CopyBuffer(struct{ io.Writer }{p.file}, struct{ io.Reader }{r}, buf)
	if err == nil {
		err = p.file.Sync()
	}
	closeErr := p.file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(p.path)
		return n, errs.Wrap(errs.KindIO, "write "+p.path, err)
	}
	return n, nil
}

// Abandon closes and removes the file
func (p *Pending) Abandon() {
	p.file.Close()
	os.Remove(p.path)
}
