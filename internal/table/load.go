package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// LoadOptions controls parsing and type inference.
type LoadOptions struct {
	// Delimiter is the field separator; 0 picks one from the extension.
	Delimiter rune
	// DecimalSeparator and ThousandsSeparator; 0 means auto-detect per cell.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// MaxRows stops reading after this many data rows (0 = all).
	MaxRows int
	// Kinds forces the kind of named columns.
	Kinds map[string]Kind
	// Sheet selects an XLSX sheet by name; SheetIndex (1-based) is used when Sheet is empty.
	Sheet      string
	SheetIndex int
}

// Loader reads one file format into a Table.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt LoadOptions) (*Table, error)
}

var loaders []Loader

// RegisterLoader adds a loader. Later registrations do not override earlier ones.
func RegisterLoader(l Loader) {
	loaders = append(loaders, l)
}

func init() {
	RegisterLoader(delimitedLoader{})
	RegisterLoader(xlsxLoader{})
}

// ErrUnsupported is returned when no loader accepts the file extension.
var ErrUnsupported = errors.New("unsupported table format")

// LoadFile picks a loader by file extension.
func LoadFile(path string, opt LoadOptions) (*Table, error) {
	for _, l := range loaders {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Ext(path), ErrUnsupported)
}

type delimitedLoader struct{}

func (delimitedLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (delimitedLoader) Load(path string, opt LoadOptions) (*Table, error) {
	return LoadCSV(path, opt)
}

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxLoader) Load(path string, opt LoadOptions) (*Table, error) {
	return LoadXLSX(path, opt)
}

// LoadCSV reads a delimited file with a header row. Every record must have
// exactly as many fields as the header.
func LoadCSV(path string, opt LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.Comma = delim
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = 0

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{name: tableName(path), index: map[string]int{}}, nil
		}
		return nil, toParseError(path, err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toParseError(path, err)
		}
		records = append(records, rec)
	}
	return build(tableName(path), header, records, opt)
}

// LoadXLSX reads the selected worksheet; the first row is the header.
// Trailing empty cells that the workbook omits are padded back.
func LoadXLSX(path string, opt LoadOptions) (*Table, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
	}
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("xlsx %s: sheet index %d out of range (%d sheets)", path, idx, len(sheets))
		}
		sheet = sheets[idx-1]
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx %s: read sheet %q: %w", path, sheet, err)
	}
	if len(rows) == 0 {
		return &Table{name: tableName(path), index: map[string]int{}}, nil
	}
	header := rows[0]
	var records [][]string
	for i, row := range rows[1:] {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		if len(row) > len(header) {
			return nil, &ParseError{Path: path, Line: i + 2, Fields: len(row), Want: len(header)}
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		records = append(records, row)
	}
	return build(tableName(path), header, records, opt)
}

func toParseError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		out := &ParseError{Path: path, Line: pe.Line, Err: pe.Err}
		if errors.Is(pe.Err, csv.ErrFieldCount) {
			out.Err = csv.ErrFieldCount
		}
		return out
	}
	return fmt.Errorf("read %s: %w", path, err)
}

func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// build infers a kind per column and converts the raw cells.
func build(name string, header []string, records [][]string, opt LoadOptions) (*Table, error) {
	cols := make([]*Column, len(header))
	for j, h := range header {
		h = strings.TrimSpace(h)
		raw := make([]string, len(records))
		for i, rec := range records {
			raw[i] = rec[j]
		}
		kind, forced := opt.Kinds[h]
		if !forced {
			kind = inferKind(h, raw, opt)
		}
		cols[j] = convert(h, kind, raw, opt)
	}
	return New(name, cols...)
}

var missingTokens = map[string]struct{}{"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}}

func isMissingToken(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func isIdentifierName(name string) bool {
	n := strings.ToLower(name)
	return n == "id" || strings.HasSuffix(n, "_id")
}

func inferKind(name string, raw []string, opt LoadOptions) Kind {
	numeric, dates, present := true, true, 0
	for _, s := range raw {
		if isMissingToken(s) {
			continue
		}
		present++
		if numeric {
			if _, ok := parseNumeric(s, opt); !ok {
				numeric = false
			}
		}
		if dates {
			if _, ok := parseTimeMaybe(strings.TrimSpace(s)); !ok {
				dates = false
			}
		}
		if !numeric && !dates {
			break
		}
	}
	switch {
	case isIdentifierName(name):
		return KindIdentifier
	case present == 0:
		return KindCategorical
	case numeric:
		return KindNumeric
	case dates:
		return KindDate
	}
	return KindCategorical
}

func convert(name string, kind Kind, raw []string, opt LoadOptions) *Column {
	vals := make([]Value, len(raw))
	for i, s := range raw {
		if isMissingToken(s) {
			continue
		}
		s = strings.TrimSpace(s)
		switch kind {
		case KindNumeric:
			if f, ok := parseNumeric(s, opt); ok {
				vals[i] = Num(f)
			}
		case KindIdentifier:
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				vals[i] = Num(f)
			} else {
				vals[i] = Text(s)
			}
		case KindDate:
			if t, ok := parseTimeMaybe(s); ok {
				vals[i] = Date(t)
			}
		default:
			vals[i] = Text(s)
		}
	}
	return &Column{name: name, kind: kind, values: vals}
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric accepts plain, percent and locale-formatted numbers.
func parseNumeric(s string, opt LoadOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if raw == "" {
		return 0, false
	}
	dec, thou := opt.DecimalSeparator, opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
