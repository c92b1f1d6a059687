package output

import (
	"io"

	json "github.com/goccy/go-json"

	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/frame"
)

// JSONLFormatter renders a frame as one JSON object per line
type JSONLFormatter struct {
	writer io.Writer
}

// NewJSONLFormatter creates a JSON lines formatter writing to w
func NewJSONLFormatter(w io.Writer) *JSONLFormatter {
	return &JSONLFormatter{writer: w}
}

// Format renders the frame. Numeric and bool values keep their types;
// datetimes serialize as RFC 3339 strings.
func (j *JSONLFormatter) Format(f *frame.Frame) error {
	header, rows, err := frameRows(f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(j.writer)
	for _, row := range rows {
		obj := make(map[string]interface{}, len(header))
		for i, name := range header {
			obj[name] = row[i]
		}
		if err := enc.Encode(obj); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "encoding json row")
		}
	}
	return nil
}
