package persist

import (
	"math/big"
	"time"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func encodeValue(v grid.CellValue) CellValueSchema {
	if grid.IsBlank(v) {
		return CellValueSchema{Kind: string(grid.KindBlank)}
	}
	switch cv := v.(type) {
	case grid.Text:
		return CellValueSchema{Kind: string(grid.KindText), Text: cv.Value}
	case grid.Number:
		n := "0"
		if cv.Value != nil {
			n = cv.Value.RatString()
		}
		return CellValueSchema{Kind: string(grid.KindNumber), Number: n}
	case grid.Logical:
		return CellValueSchema{Kind: string(grid.KindLogical), Bool: cv.Value}
	case grid.Date:
		return CellValueSchema{Kind: string(grid.KindDate), UnixNano: cv.Value.UnixNano()}
	case grid.Time:
		return CellValueSchema{Kind: string(grid.KindTime), UnixNano: cv.Value.UnixNano()}
	case grid.DateTime:
		return CellValueSchema{Kind: string(grid.KindDateTime), UnixNano: cv.Value.UnixNano()}
	case grid.Duration:
		return CellValueSchema{Kind: string(grid.KindDuration), UnixNano: int64(cv.Value)}
	case grid.Instant:
		return CellValueSchema{Kind: string(grid.KindInstant), UnixNano: cv.UnixNano}
	case grid.HTML:
		return CellValueSchema{Kind: string(grid.KindHTML), Text: cv.Value}
	case grid.Image:
		return CellValueSchema{Kind: string(grid.KindImage), Text: cv.BlobRef}
	case grid.Code:
		return CellValueSchema{Kind: string(grid.KindCode), Language: string(cv.Language), Source: cv.Source}
	case grid.ErrorValue:
		return CellValueSchema{Kind: string(grid.KindError), ErrKind: string(cv.Err.Kind), Text: cv.Err.Message}
	case grid.Import:
		return CellValueSchema{Kind: string(grid.KindImport), Text: cv.SourceName, Table: cv.TableName}
	default:
		return CellValueSchema{Kind: string(grid.KindText), Text: v.Display()}
	}
}

func decodeValue(s CellValueSchema) grid.CellValue {
	switch grid.ValueKind(s.Kind) {
	case grid.KindBlank, "":
		return grid.Blank{}
	case grid.KindText:
		return grid.Text{Value: s.Text}
	case grid.KindNumber:
		r := new(big.Rat)
		if _, ok := r.SetString(s.Number); !ok {
			r.SetInt64(0)
		}
		return grid.Number{Value: r}
	case grid.KindLogical:
		return grid.Logical{Value: s.Bool}
	case grid.KindDate:
		return grid.Date{Value: time.Unix(0, s.UnixNano).UTC()}
	case grid.KindTime:
		return grid.Time{Value: time.Unix(0, s.UnixNano).UTC()}
	case grid.KindDateTime:
		return grid.DateTime{Value: time.Unix(0, s.UnixNano).UTC()}
	case grid.KindDuration:
		return grid.Duration{Value: time.Duration(s.UnixNano)}
	case grid.KindInstant:
		return grid.Instant{UnixNano: s.UnixNano}
	case grid.KindHTML:
		return grid.HTML{Value: s.Text}
	case grid.KindImage:
		return grid.Image{BlobRef: s.Text}
	case grid.KindCode:
		return grid.Code{Language: grid.Language(s.Language), Source: s.Source}
	case grid.KindError:
		return grid.ErrorValue{Err: grid.RunError{Kind: grid.ErrorKind(s.ErrKind), Message: s.Text}}
	case grid.KindImport:
		return grid.Import{SourceName: s.Text, TableName: s.Table}
	default:
		return grid.Text{Value: s.Text}
	}
}

func encodeArray(a grid.Array) ArraySchema {
	out := ArraySchema{Width: a.Width, Height: a.Height, Values: make([]CellValueSchema, len(a.Values))}
	for i, v := range a.Values {
		out.Values[i] = encodeValue(v)
	}
	return out
}

func decodeArray(s ArraySchema) grid.Array {
	a := grid.NewArray(s.Width, s.Height)
	for i, v := range s.Values {
		if i >= len(a.Values) {
			break
		}
		a.Values[i] = decodeValue(v)
	}
	return a
}
