package output

import (
	"encoding/csv"
	"io"

	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/frame"
)

// CSVFormatter renders a frame as CSV with a header row
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a CSV formatter writing to w
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// Format renders the frame. Column order follows the frame's own order,
// not a lexicographic sort.
func (c *CSVFormatter) Format(f *frame.Frame) error {
	header, rows, err := frameRows(f)
	if err != nil {
		return err
	}

	w := csv.NewWriter(c.writer)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "writing csv header")
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "writing csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "flushing csv")
	}
	return nil
}
