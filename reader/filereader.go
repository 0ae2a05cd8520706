package reader

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// FileReader is the file-backed convenience wrapper spec.md §2 budgets
// under "Reader/Writer façades": it owns the *os.File Open opened it with
// and closes it when the Reader is closed.
type FileReader struct {
	*Reader
	file *os.File
}

// Open opens path and parses it as a COPC file.
func Open(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reader: opening %q", path)
	}
	r, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileReader{Reader: r, file: f}, nil
}

// Close closes the underlying file, combining any close failure with
// future independent teardown failures the way multierr.Combine does for
// FileWriter.Close (spec.md §5's convenience-wrapper contract).
func (fr *FileReader) Close() error {
	return multierr.Combine(fr.file.Close())
}
