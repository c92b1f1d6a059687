package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/frameport/frameport/pkg/frame"
)

// TableFormatter renders a frame as an aligned text table
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a table formatter writing to w
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// Format renders the frame. Column order follows the frame's own order.
func (t *TableFormatter) Format(f *frame.Frame) error {
	header, rows, err := frameRows(f)
	if err != nil {
		return err
	}

	tbl := tablewriter.NewWriter(t.writer)
	tbl.SetHeader(header)
	tbl.SetAutoFormatHeaders(false)
	tbl.SetAutoWrapText(false)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		tbl.Append(cells)
	}
	tbl.Render()
	return nil
}
