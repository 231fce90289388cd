package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Sheet is one worksheet of an exported workbook.
type Sheet struct {
	Name  string
	Table *table.Table
}

// WriteWorkbook exports tables to an XLSX file, one sheet each, with a bold
// header row. Missing cells are left empty.
func WriteWorkbook(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s: no sheets", path)
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("workbook style: %w", err)
	}
	used := map[string]bool{}
	for i, s := range sheets {
		name := sheetName(s.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s.Table, bold); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *table.Table, headerStyle int) error {
	cols := t.Columns()
	for j, c := range cols {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, c); err != nil {
			return fmt.Errorf("sheet %q header: %w", sheet, err)
		}
	}
	for i := 0; i < t.Len(); i++ {
		for j := range cols {
			v := t.ColumnAt(j).Value(i)
			if v.IsMissing() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			var x any = v.String()
			if num, ok := v.Float(); ok {
				x = num
			} else if tm, ok := v.Time(); ok {
				x = tm
			}
			if err := f.SetCellValue(sheet, cell, x); err != nil {
				return fmt.Errorf("sheet %q cell %s: %w", sheet, cell, err)
			}
		}
	}
	if len(cols) > 0 {
		last, err := excelize.ColumnNumberToName(len(cols))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
			return err
		}
	}
	return nil
}

// sheetName trims to the 31-character limit, strips forbidden characters
// and keeps names unique.
func sheetName(name string, i int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		r := []rune(base)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
