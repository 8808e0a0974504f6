package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported output formats.
const (
	FormatODT  = "odt"
	FormatText = "txt"
)

// NormalizeFormat maps a format name or alias onto FormatODT or FormatText.
// An empty name selects FormatODT.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatODT:
		return FormatODT, nil
	case FormatText, "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", format)
	}
}

// NewWriter returns an empty writer for format.
func NewWriter(format string) (Writer, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	if format == FormatText {
		return NewTextWriter(), nil
	}
	return NewODTWriter(), nil
}

// DefaultPath returns the default output file name for format. Unknown
// formats fall back to the ODT name.
func DefaultPath(format string) string {
	format, err := NormalizeFormat(format)
	if err != nil {
		format = FormatODT
	}
	return "orders." + format
}

// Staged is a report saved next to its final path, waiting to be moved into
// place.
type Staged struct {
	tmp  string
	path string
}

// Stage renders d into w and saves it under a hidden name in the directory of
// path. Nothing at path changes until Commit.
func (d *Document) Stage(w Writer, path string) (*Staged, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".pending-*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("close staging file: %w", err)
	}
	if err := d.Save(w, tmp); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	return &Staged{tmp: tmp, path: path}, nil
}

// Path returns the final destination.
func (s *Staged) Path() string { return s.path }

// Commit moves the staged file to its final path.
func (s *Staged) Commit() error {
	if err := os.Rename(s.tmp, s.path); err != nil {
		_ = os.Remove(s.tmp)
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}

// Discard removes the staged file and leaves the final path untouched.
func (s *Staged) Discard() {
	_ = os.Remove(s.tmp)
}

// writeFileAtomic writes data next to path and renames it into place, so a
// failed save never leaves a truncated file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}
