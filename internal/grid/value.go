package grid

import (
	"fmt"
	"math/big"
	"time"
)

// ValueKind tags a CellValue's concrete type, mirroring the grid's tagged
// value union. Comparisons between CellValues go by Kind first, then
// payload.
type ValueKind string

const (
	KindBlank    ValueKind = "BLANK"
	KindText     ValueKind = "TEXT"
	KindNumber   ValueKind = "NUMBER"
	KindLogical  ValueKind = "LOGICAL"
	KindDate     ValueKind = "DATE"
	KindTime     ValueKind = "TIME"
	KindDateTime ValueKind = "DATETIME"
	KindDuration ValueKind = "DURATION"
	KindInstant  ValueKind = "INSTANT"
	KindHTML     ValueKind = "HTML"
	KindImage    ValueKind = "IMAGE"
	KindCode     ValueKind = "CODE"
	KindError    ValueKind = "ERROR"
	KindImport   ValueKind = "IMPORT"
)

// CellValue is the tagged union stored in every cell. Blank is the zero
// value (the interface is nil) so that absent cells need no allocation.
type CellValue interface {
	Kind() ValueKind
	Display() string
	cellValue()
}

// Blank represents an empty cell. A nil CellValue and Blank{} are treated
// identically by the cell store (see cellstore.go).
type Blank struct{}

func (Blank) Kind() ValueKind  { return KindBlank }
func (Blank) Display() string  { return "" }
func (Blank) cellValue()       {}
func IsBlank(v CellValue) bool { return v == nil || v.Kind() == KindBlank }

type Text struct{ Value string }

func (t Text) Kind() ValueKind { return KindText }
func (t Text) Display() string { return t.Value }
func (Text) cellValue()        {}

// Number is an arbitrary-precision decimal, backed by math/big.Rat (no
// decimal-arithmetic package appears in the retrieved pack; big.Rat gives
// exact rational arithmetic from the standard library).
type Number struct{ Value *big.Rat }

func NewNumber(i int64) Number { return Number{Value: new(big.Rat).SetInt64(i)} }

func (n Number) Kind() ValueKind { return KindNumber }
func (n Number) Display() string {
	if n.Value == nil {
		return "0"
	}
	f, _ := n.Value.Float64()
	if n.Value.IsInt() {
		return n.Value.RatString()
	}
	return fmt.Sprintf("%g", f)
}
func (Number) cellValue() {}

type Logical struct{ Value bool }

func (l Logical) Kind() ValueKind { return KindLogical }
func (l Logical) Display() string {
	if l.Value {
		return "TRUE"
	}
	return "FALSE"
}
func (Logical) cellValue() {}

type Date struct{ Value time.Time }

func (d Date) Kind() ValueKind  { return KindDate }
func (d Date) Display() string  { return d.Value.Format("2006-01-02") }
func (Date) cellValue()         {}

type Time struct{ Value time.Time }

func (t Time) Kind() ValueKind { return KindTime }
func (t Time) Display() string { return t.Value.Format("15:04:05") }
func (Time) cellValue()        {}

type DateTime struct{ Value time.Time }

func (d DateTime) Kind() ValueKind { return KindDateTime }
func (d DateTime) Display() string { return d.Value.Format(time.RFC3339) }
func (DateTime) cellValue()        {}

type Duration struct{ Value time.Duration }

func (d Duration) Kind() ValueKind { return KindDuration }
func (d Duration) Display() string { return d.Value.String() }
func (Duration) cellValue()        {}

// Instant is a point in time independent of calendar formatting (stored as
// Unix nanoseconds so it compares exactly).
type Instant struct{ UnixNano int64 }

func (i Instant) Kind() ValueKind { return KindInstant }
func (i Instant) Display() string {
	return time.Unix(0, i.UnixNano).UTC().Format(time.RFC3339Nano)
}
func (Instant) cellValue() {}

type HTML struct{ Value string }

func (h HTML) Kind() ValueKind { return KindHTML }
func (h HTML) Display() string { return h.Value }
func (HTML) cellValue()        {}

// Image is an opaque blob reference (the core never decodes pixels).
type Image struct{ BlobRef string }

func (i Image) Kind() ValueKind { return KindImage }
func (i Image) Display() string { return "[image]" }
func (Image) cellValue()        {}

// Code is the source of a code cell (formula or another language).
type Code struct {
	Language Language
	Source   string
}

func (c Code) Kind() ValueKind { return KindCode }
func (c Code) Display() string { return "=" + c.Source }
func (Code) cellValue()        {}

// Language identifies the language of a Code cell.
type Language string

const (
	LangFormula    Language = "Formula"
	LangPython     Language = "Python"
	LangJavascript Language = "Javascript"
	LangConnection Language = "Connection"
)

// ErrorKind enumerates the structured error kinds a code cell can produce.
type ErrorKind string

const (
	ErrDivideByZero            ErrorKind = "DivideByZero"
	ErrNotANumber              ErrorKind = "NotANumber"
	ErrExpected                ErrorKind = "Expected"
	ErrCircular                ErrorKind = "Circular"
	ErrCodeRunError            ErrorKind = "CodeRunError"
	ErrMissingRequiredArgument ErrorKind = "MissingRequiredArgument"
	ErrTooManyArguments        ErrorKind = "TooManyArguments"
	ErrEmptyArray              ErrorKind = "EmptyArray"
	ErrExactArrayAxisMismatch  ErrorKind = "ExactArrayAxisMismatch"
	ErrInternalError           ErrorKind = "InternalError"
	ErrRef                     ErrorKind = "RefError"
	ErrCancelled               ErrorKind = "Cancelled"
)

// RunError is the structured error value stored in a cell when evaluation
// fails: RunError{ span, msg }.
type RunError struct {
	Kind    ErrorKind
	Message string
	Span    [2]int // byte offsets [start, end) within the source, if known
}

func (e RunError) Error() string { return string(e.Kind) + ": " + e.Message }

// ErrorValue is the CellValue wrapping a RunError.
type ErrorValue struct{ Err RunError }

func (e ErrorValue) Kind() ValueKind { return KindError }
func (e ErrorValue) Display() string { return "#" + string(e.Err.Kind) }
func (ErrorValue) cellValue()        {}

// Import references an externally produced dataset (e.g. a SQL connector
// result) ingested as a data table.
type Import struct {
	SourceName string
	TableName  string
}

func (i Import) Kind() ValueKind { return KindImport }
func (i Import) Display() string { return "[import " + i.SourceName + "]" }
func (Import) cellValue()        {}

// Array is a 2D array of CellValue, row-major, used for multi-cell writes
// and formula results.
type Array struct {
	Width, Height int
	Values        []CellValue // len == Width*Height, row-major
}

func NewArray(w, h int) Array {
	vals := make([]CellValue, w*h)
	for i := range vals {
		vals[i] = Blank{}
	}
	return Array{Width: w, Height: h, Values: vals}
}

func (a Array) At(x, y int) CellValue {
	if x < 0 || y < 0 || x >= a.Width || y >= a.Height {
		return Blank{}
	}
	return a.Values[y*a.Width+x]
}

func (a Array) Set(x, y int, v CellValue) {
	if x < 0 || y < 0 || x >= a.Width || y >= a.Height {
		return
	}
	a.Values[y*a.Width+x] = v
}

// Equal compares two CellValues by kind then payload.
func Equal(a, b CellValue) bool {
	ak, bk := cellKind(a), cellKind(b)
	if ak != bk {
		return false
	}
	if ak == KindBlank {
		return true
	}
	switch av := a.(type) {
	case Text:
		return av.Value == b.(Text).Value
	case Number:
		bv := b.(Number)
		if av.Value == nil || bv.Value == nil {
			return av.Value == bv.Value
		}
		return av.Value.Cmp(bv.Value) == 0
	case Logical:
		return av.Value == b.(Logical).Value
	case Date:
		return av.Value.Equal(b.(Date).Value)
	case Time:
		return av.Value.Equal(b.(Time).Value)
	case DateTime:
		return av.Value.Equal(b.(DateTime).Value)
	case Duration:
		return av.Value == b.(Duration).Value
	case Instant:
		return av.UnixNano == b.(Instant).UnixNano
	case HTML:
		return av.Value == b.(HTML).Value
	case Image:
		return av.BlobRef == b.(Image).BlobRef
	case Code:
		bv := b.(Code)
		return av.Language == bv.Language && av.Source == bv.Source
	case ErrorValue:
		bv := b.(ErrorValue)
		return av.Err.Kind == bv.Err.Kind && av.Err.Message == bv.Err.Message
	case Import:
		bv := b.(Import)
		return av.SourceName == bv.SourceName && av.TableName == bv.TableName
	default:
		return false
	}
}

func cellKind(v CellValue) ValueKind {
	if v == nil {
		return KindBlank
	}
	return v.Kind()
}

// Compare orders two CellValues for sorting: by kind, then payload, with
// Blank sorting as "empty" (before everything else).
func Compare(a, b CellValue) int {
	ak, bk := cellKind(a), cellKind(b)
	if ak == KindBlank && bk == KindBlank {
		return 0
	}
	if ak == KindBlank {
		return -1
	}
	if bk == KindBlank {
		return 1
	}
	if ak != bk {
		if ak < bk {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case Text:
		return compareStrings(av.Value, b.(Text).Value)
	case Number:
		bv := b.(Number)
		if av.Value == nil && bv.Value == nil {
			return 0
		}
		if av.Value == nil {
			return -1
		}
		if bv.Value == nil {
			return 1
		}
		return av.Value.Cmp(bv.Value)
	case Logical:
		bv := b.(Logical)
		if av.Value == bv.Value {
			return 0
		}
		if !av.Value {
			return -1
		}
		return 1
	case Date:
		return compareTime(av.Value, b.(Date).Value)
	case Time:
		return compareTime(av.Value, b.(Time).Value)
	case DateTime:
		return compareTime(av.Value, b.(DateTime).Value)
	case Instant:
		bv := b.(Instant)
		switch {
		case av.UnixNano < bv.UnixNano:
			return -1
		case av.UnixNano > bv.UnixNano:
			return 1
		default:
			return 0
		}
	default:
		return compareStrings(a.Display(), b.Display())
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
