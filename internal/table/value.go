package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type valueKind uint8

const (
	vMissing valueKind = iota
	vNumber
	vText
	vDate
)

// Value is a single cell. The zero Value is missing.
type Value struct {
	num  float64
	str  string
	tm   time.Time
	kind valueKind
}

// Missing returns the absent value.
func Missing() Value { return Value{} }

// Num wraps a number. NaN and infinities are stored as missing; -0 is
// stored as 0.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	if f == 0 {
		f = 0
	}
	return Value{num: f, kind: vNumber}
}

// Text wraps a string.
func Text(s string) Value { return Value{str: s, kind: vText} }

// Date wraps a timestamp.
func Date(t time.Time) Value { return Value{tm: t, kind: vDate} }

// ValueOf converts common Go scalars into a Value.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case nil:
		return Missing()
	case Value:
		return v
	case float64:
		return Num(v)
	case float32:
		return Num(float64(v))
	case int:
		return Num(float64(v))
	case int64:
		return Num(float64(v))
	case int32:
		return Num(float64(v))
	case bool:
		if v {
			return Num(1)
		}
		return Num(0)
	case string:
		return Text(v)
	case time.Time:
		return Date(v)
	default:
		return Missing()
	}
}

func (v Value) IsMissing() bool { return v.kind == vMissing }
func (v Value) IsNumber() bool  { return v.kind == vNumber }
func (v Value) IsText() bool    { return v.kind == vText }
func (v Value) IsDate() bool    { return v.kind == vDate }

// Float returns the numeric payload. ok is false for anything but numbers.
func (v Value) Float() (float64, bool) {
	if v.kind != vNumber {
		return 0, false
	}
	return v.num, true
}

// Time returns the date payload.
func (v Value) Time() (time.Time, bool) {
	if v.kind != vDate {
		return time.Time{}, false
	}
	return v.tm, true
}

// String renders the value for display. Missing renders as NaN.
func (v Value) String() string {
	switch v.kind {
	case vNumber:
		return formatNumber(v.num)
	case vText:
		return v.str
	case vDate:
		if v.tm.Hour() == 0 && v.tm.Minute() == 0 && v.tm.Second() == 0 {
			return v.tm.Format("2006-01-02")
		}
		return v.tm.Format("2006-01-02 15:04:05")
	default:
		return "NaN"
	}
}

// Key is the canonical form used for grouping and joining. Missing values
// have an empty key and never match anything.
func (v Value) Key() string {
	switch v.kind {
	case vNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case vText:
		return "s:" + v.str
	case vDate:
		return "d:" + v.tm.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Equal reports whether both values are present and identical.
func (v Value) Equal(o Value) bool {
	if v.kind == vMissing || o.kind == vMissing {
		return false
	}
	return v.Key() == o.Key()
}

// Compare orders two present values of the same kind. ok is false when
// either is missing or the kinds differ.
func (v Value) Compare(o Value) (c int, ok bool) {
	if v.kind == vMissing || v.kind != o.kind {
		return 0, false
	}
	switch v.kind {
	case vNumber:
		switch {
		case v.num < o.num:
			return -1, true
		case v.num > o.num:
			return 1, true
		}
		return 0, true
	case vText:
		return strings.Compare(v.str, o.str), true
	case vDate:
		return v.tm.Compare(o.tm), true
	}
	return 0, false
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
