package render

import (
	"fmt"
	"math/big"
	"time"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// wireValue is the JSON-friendly shadow of grid.CellValue used on the wire;
// the renderer never needs arbitrary-precision arithmetic on a Number, only
// its displayed text, so Number travels as a rational-string pair rather
// than requiring the renderer to link math/big.
type wireValue struct {
	Kind grid.ValueKind `json:"kind"`
	Text string         `json:"text,omitempty"`
	Bool bool           `json:"bool,omitempty"`
	Nano int64          `json:"nano,omitempty"`
}

func encodeValue(v grid.CellValue) wireValue {
	if grid.IsBlank(v) {
		return wireValue{Kind: grid.KindBlank}
	}
	switch cv := v.(type) {
	case grid.Text:
		return wireValue{Kind: grid.KindText, Text: cv.Value}
	case grid.Number:
		text := "0"
		if cv.Value != nil {
			text = cv.Value.RatString()
		}
		return wireValue{Kind: grid.KindNumber, Text: text}
	case grid.Logical:
		return wireValue{Kind: grid.KindLogical, Bool: cv.Value}
	case grid.Date:
		return wireValue{Kind: grid.KindDate, Nano: cv.Value.UnixNano()}
	case grid.Time:
		return wireValue{Kind: grid.KindTime, Nano: cv.Value.UnixNano()}
	case grid.DateTime:
		return wireValue{Kind: grid.KindDateTime, Nano: cv.Value.UnixNano()}
	case grid.Duration:
		return wireValue{Kind: grid.KindDuration, Nano: int64(cv.Value)}
	case grid.Instant:
		return wireValue{Kind: grid.KindInstant, Nano: cv.UnixNano}
	case grid.HTML:
		return wireValue{Kind: grid.KindHTML, Text: cv.Value}
	case grid.Image:
		return wireValue{Kind: grid.KindImage, Text: cv.BlobRef}
	case grid.Code:
		return wireValue{Kind: grid.KindCode, Text: string(cv.Language) + "\x00" + cv.Source}
	case grid.ErrorValue:
		return wireValue{Kind: grid.KindError, Text: string(cv.Err.Kind) + "\x00" + cv.Err.Message}
	case grid.Import:
		return wireValue{Kind: grid.KindImport, Text: cv.SourceName + "\x00" + cv.TableName}
	default:
		return wireValue{Kind: grid.KindText, Text: v.Display()}
	}
}

func decodeValue(w wireValue) grid.CellValue {
	switch w.Kind {
	case grid.KindBlank, "":
		return grid.Blank{}
	case grid.KindText:
		return grid.Text{Value: w.Text}
	case grid.KindNumber:
		r := new(big.Rat)
		if _, ok := r.SetString(w.Text); !ok {
			r.SetInt64(0)
		}
		return grid.Number{Value: r}
	case grid.KindLogical:
		return grid.Logical{Value: w.Bool}
	case grid.KindDate:
		return grid.Date{Value: time.Unix(0, w.Nano).UTC()}
	case grid.KindTime:
		return grid.Time{Value: time.Unix(0, w.Nano).UTC()}
	case grid.KindDateTime:
		return grid.DateTime{Value: time.Unix(0, w.Nano).UTC()}
	case grid.KindDuration:
		return grid.Duration{Value: time.Duration(w.Nano)}
	case grid.KindInstant:
		return grid.Instant{UnixNano: w.Nano}
	case grid.KindHTML:
		return grid.HTML{Value: w.Text}
	case grid.KindImage:
		return grid.Image{BlobRef: w.Text}
	case grid.KindCode:
		lang, src := splitOnce(w.Text)
		return grid.Code{Language: grid.Language(lang), Source: src}
	case grid.KindError:
		kind, msg := splitOnce(w.Text)
		return grid.ErrorValue{Err: grid.RunError{Kind: grid.ErrorKind(kind), Message: msg}}
	case grid.KindImport:
		src, table := splitOnce(w.Text)
		return grid.Import{SourceName: src, TableName: table}
	default:
		return grid.Text{Value: w.Text}
	}
}

func splitOnce(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func (w wireValue) String() string { return fmt.Sprintf("%s(%q)", w.Kind, w.Text) }
