package output

import (
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/frameport/frameport/pkg/errors"
)

// Create opens path for writing, layering compression when the extension
// is .gz or .zst. Closing the returned writer closes the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "creating output file")
	}

	switch filepath.Ext(path) {
	case ".gz":
		return &compressedFile{comp: gzip.NewWriter(f), file: f}, nil
	case ".zst":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "creating zstd writer")
		}
		return &compressedFile{comp: zw, file: f}, nil
	default:
		return f, nil
	}
}

// compressedFile flushes the compressor before closing the file
type compressedFile struct {
	comp io.WriteCloser
	file *os.File
}

func (c *compressedFile) Write(p []byte) (int, error) {
	return c.comp.Write(p)
}

func (c *compressedFile) Close() error {
	cerr := c.comp.Close()
	if err := c.file.Close(); err != nil {
		return err
	}
	return cerr
}
