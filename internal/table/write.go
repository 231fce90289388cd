package table

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// WriteCSV writes t with a header row. Missing cells are written empty.
func WriteCSV(path string, t *Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, c := range t.cols {
			v := c.values[i]
			if v.IsMissing() {
				rec[j] = ""
				continue
			}
			rec[j] = v.String()
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
