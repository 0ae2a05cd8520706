package writer

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/copc-go/copc/copc"
)

// FileWriter is the file-backed convenience wrapper spec.md §2 budgets
// under "Reader/Writer façades": it owns the *os.File Create opened it
// with and closes it when the Writer is closed.
type FileWriter struct {
	*Writer
	file *os.File
}

// Create truncates/creates path and opens it as a COPC writer.
func Create(path string, cfg copc.ConfigWriter) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "writer: creating %q", path)
	}
	w, err := New(f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileWriter{Writer: w, file: f}, nil
}

// Close finalizes the COPC container and closes the underlying file,
// combining both failures the way pointcloud.WriteToLASFile's deferred
// `multierr.Combine(err, cerr)` does: a finalization error doesn't hide a
// subsequent close error, or vice versa. Close is idempotent: calls after
// the first return nil.
func (fw *FileWriter) Close() error {
	if fw.file == nil {
		return nil
	}
	err := fw.Writer.Close()
	cerr := fw.file.Close()
	fw.file = nil
	return multierr.Combine(err, cerr)
}
