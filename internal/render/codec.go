package render

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// Every frame on the wire is [1 byte MsgType][4 byte big-endian length]
// [JSON body] - the length-prefixed framing idiom of kernel.go's ZeroMQ
// multipart messages, adapted to a plain io.Writer/io.Reader stream since
// the renderer pipe here is a single bidirectional byte stream rather than
// a multi-socket ZeroMQ transport.
const frameHeaderSize = 1 + 4

// WriteMessage encodes msg (one of the types in protocol.go) and writes its
// framed bytes to w.
func WriteMessage(w io.Writer, msg interface{}) error {
	mt, body, err := marshal(msg)
	if err != nil {
		return err
	}
	header := make([]byte, frameHeaderSize)
	header[0] = byte(mt)
	binary.BigEndian.PutUint32(header[1:], uint32(len(body)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadMessage reads one framed message from r and returns its decoded
// value, typed as one of the structs in protocol.go.
func ReadMessage(r io.Reader) (interface{}, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	mt := MsgType(header[0])
	n := binary.BigEndian.Uint32(header[1:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return unmarshal(mt, body)
}

func marshal(msg interface{}) (MsgType, []byte, error) {
	var mt MsgType
	var wire interface{}
	switch m := msg.(type) {
	case InitSheet:
		mt, wire = MsgInitSheet, wireInitSheet{SheetID: m.SheetID.String(), HashCells: toWireHashCells(m.HashCells)}
	case []HashCells:
		mt, wire = MsgHashCells, toWireHashCells(m)
	case DirtyHashes:
		mt, wire = MsgDirtyHashes, wireDirtyHashes{SheetID: m.SheetID.String(), Hashes: m.Hashes}
	case Selection:
		mt, wire = MsgSelection, wireSelection{SheetID: m.SheetID.String(), Cursor: m.Cursor, Ranges: m.Ranges}
	case MultiplayerCursors:
		mt, wire = MsgMultiplayerCursors, m
	case SheetInfo:
		mt, wire = MsgSheetInfo, wireSheetInfo{SheetID: m.SheetID.String(), Name: m.Name, Order: m.Order, Color: m.Color}
	case SheetOffsets:
		mt, wire = MsgSheetOffsets, wireSheetOffsets{SheetID: m.SheetID.String(), ColumnWidths: m.ColumnWidths, RowHeights: m.RowHeights}
	case SheetDeleted:
		mt, wire = MsgSheetDeleted, wireSheetScoped{SheetID: m.SheetID.String()}
	case ClearSheet:
		mt, wire = MsgClearSheet, wireSheetScoped{SheetID: m.SheetID.String()}
	case Ready:
		mt, wire = MsgReady, m
	case ViewportChanged:
		mt, wire = MsgViewportChanged, wireViewportChanged{SheetID: m.SheetID.String(), VisibleRect: m.VisibleRect, HashBounds: m.HashBounds}
	case CellClick:
		mt, wire = MsgCellClick, wireCellClick{SheetID: m.SheetID.String(), Pos: m.Pos, Modifiers: m.Modifiers}
	case CellHover:
		mt, wire = MsgCellHover, wireCellHover{SheetID: m.SheetID.String(), Pos: m.Pos}
	case CellEdit:
		mt, wire = MsgCellEdit, wireCellScoped{SheetID: m.SheetID.String(), Pos: m.Pos}
	case SelectionStart:
		mt, wire = MsgSelectionStart, wireCellScoped{SheetID: m.SheetID.String(), Pos: m.Pos}
	case SelectionDrag:
		mt, wire = MsgSelectionDrag, wireCellScoped{SheetID: m.SheetID.String(), Pos: m.Pos}
	case SelectionEnd:
		mt, wire = MsgSelectionEnd, wireCellScoped{SheetID: m.SheetID.String(), Pos: m.Pos}
	case ColumnResize:
		mt, wire = MsgColumnResize, wireColumnResize{SheetID: m.SheetID.String(), Column: m.Column, Width: m.Width}
	case RowResize:
		mt, wire = MsgRowResize, wireRowResize{SheetID: m.SheetID.String(), Row: m.Row, Height: m.Height}
	default:
		return 0, nil, fmt.Errorf("render: unknown message type %T", msg)
	}
	body, err := json.Marshal(wire)
	return mt, body, err
}

func unmarshal(mt MsgType, body []byte) (interface{}, error) {
	switch mt {
	case MsgInitSheet:
		var w wireInitSheet
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return InitSheet{SheetID: parseSheetID(w.SheetID), HashCells: fromWireHashCells(w.HashCells)}, nil
	case MsgHashCells:
		var w []wireHashCells
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return fromWireHashCells(w), nil
	case MsgDirtyHashes:
		var w wireDirtyHashes
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return DirtyHashes{SheetID: parseSheetID(w.SheetID), Hashes: w.Hashes}, nil
	case MsgSelection:
		var w wireSelection
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return Selection{SheetID: parseSheetID(w.SheetID), Cursor: w.Cursor, Ranges: w.Ranges}, nil
	case MsgMultiplayerCursors:
		var w MultiplayerCursors
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return w, nil
	case MsgSheetInfo:
		var w wireSheetInfo
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return SheetInfo{SheetID: parseSheetID(w.SheetID), Name: w.Name, Order: w.Order, Color: w.Color}, nil
	case MsgSheetOffsets:
		var w wireSheetOffsets
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return SheetOffsets{SheetID: parseSheetID(w.SheetID), ColumnWidths: w.ColumnWidths, RowHeights: w.RowHeights}, nil
	case MsgSheetDeleted:
		var w wireSheetScoped
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return SheetDeleted{SheetID: parseSheetID(w.SheetID)}, nil
	case MsgClearSheet:
		var w wireSheetScoped
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return ClearSheet{SheetID: parseSheetID(w.SheetID)}, nil
	case MsgReady:
		return Ready{}, nil
	case MsgViewportChanged:
		var w wireViewportChanged
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return ViewportChanged{SheetID: parseSheetID(w.SheetID), VisibleRect: w.VisibleRect, HashBounds: w.HashBounds}, nil
	case MsgCellClick:
		var w wireCellClick
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return CellClick{SheetID: parseSheetID(w.SheetID), Pos: w.Pos, Modifiers: w.Modifiers}, nil
	case MsgCellHover:
		var w wireCellHover
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return CellHover{SheetID: parseSheetID(w.SheetID), Pos: w.Pos}, nil
	case MsgCellEdit:
		var w wireCellScoped
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return CellEdit{SheetID: parseSheetID(w.SheetID), Pos: w.Pos}, nil
	case MsgSelectionStart:
		var w wireCellScoped
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return SelectionStart{SheetID: parseSheetID(w.SheetID), Pos: w.Pos}, nil
	case MsgSelectionDrag:
		var w wireCellScoped
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return SelectionDrag{SheetID: parseSheetID(w.SheetID), Pos: w.Pos}, nil
	case MsgSelectionEnd:
		var w wireCellScoped
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return SelectionEnd{SheetID: parseSheetID(w.SheetID), Pos: w.Pos}, nil
	case MsgColumnResize:
		var w wireColumnResize
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return ColumnResize{SheetID: parseSheetID(w.SheetID), Column: w.Column, Width: w.Width}, nil
	case MsgRowResize:
		var w wireRowResize
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, err
		}
		return RowResize{SheetID: parseSheetID(w.SheetID), Row: w.Row, Height: w.Height}, nil
	default:
		return nil, fmt.Errorf("render: unknown wire message type %d", mt)
	}
}

// wire* structs mirror the protocol.go structs with grid.SheetID swapped
// for its hex string (SheetID has no JSON tags of its own) and
// grid.CellValue swapped for wireValue.

type wireRenderCell struct {
	Pos   grid.Pos        `json:"pos"`
	Value wireValue       `json:"value"`
	Style grid.CellFormat `json:"style"`
}

type wireHashCells struct {
	SheetID string           `json:"sheet_id"`
	HashPos grid.Pos         `json:"hash_pos"`
	Cells   []wireRenderCell `json:"cells"`
}

func toWireHashCells(hcs []HashCells) []wireHashCells {
	out := make([]wireHashCells, len(hcs))
	for i, hc := range hcs {
		cells := make([]wireRenderCell, len(hc.Cells))
		for j, c := range hc.Cells {
			cells[j] = wireRenderCell{Pos: c.Pos, Value: encodeValue(c.Value), Style: c.Style}
		}
		out[i] = wireHashCells{SheetID: hc.SheetID.String(), HashPos: hc.HashPos, Cells: cells}
	}
	return out
}

func fromWireHashCells(whcs []wireHashCells) []HashCells {
	out := make([]HashCells, len(whcs))
	for i, whc := range whcs {
		cells := make([]RenderCell, len(whc.Cells))
		for j, c := range whc.Cells {
			cells[j] = RenderCell{Pos: c.Pos, Value: decodeValue(c.Value), Style: c.Style}
		}
		out[i] = HashCells{SheetID: parseSheetID(whc.SheetID), HashPos: whc.HashPos, Cells: cells}
	}
	return out
}

type wireInitSheet struct {
	SheetID   string          `json:"sheet_id"`
	HashCells []wireHashCells `json:"hash_cells"`
}

type wireDirtyHashes struct {
	SheetID string     `json:"sheet_id"`
	Hashes  []grid.Pos `json:"hashes"`
}

type wireSelection struct {
	SheetID string     `json:"sheet_id"`
	Cursor  grid.Pos   `json:"cursor"`
	Ranges  []grid.Rect `json:"ranges"`
}

type wireSheetInfo struct {
	SheetID string     `json:"sheet_id"`
	Name    string     `json:"name"`
	Order   string     `json:"order"`
	Color   *grid.Rgba `json:"color,omitempty"`
}

type wireSheetOffsets struct {
	SheetID      string      `json:"sheet_id"`
	ColumnWidths []ColOffset `json:"column_widths"`
	RowHeights   []RowOffset `json:"row_heights"`
}

type wireSheetScoped struct {
	SheetID string `json:"sheet_id"`
}

type wireCellScoped struct {
	SheetID string   `json:"sheet_id"`
	Pos     grid.Pos `json:"pos"`
}

type wireViewportChanged struct {
	SheetID     string    `json:"sheet_id"`
	VisibleRect grid.Rect `json:"visible_rect"`
	HashBounds  grid.Rect `json:"hash_bounds"`
}

type wireCellClick struct {
	SheetID   string    `json:"sheet_id"`
	Pos       grid.Pos  `json:"pos"`
	Modifiers Modifiers `json:"modifiers"`
}

type wireCellHover struct {
	SheetID string    `json:"sheet_id"`
	Pos     *grid.Pos `json:"pos,omitempty"`
}

type wireColumnResize struct {
	SheetID string  `json:"sheet_id"`
	Column  int64   `json:"column"`
	Width   float64 `json:"width"`
}

type wireRowResize struct {
	SheetID string  `json:"sheet_id"`
	Row     int64   `json:"row"`
	Height  float64 `json:"height"`
}

func parseSheetID(s string) grid.SheetID {
	var id grid.SheetID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return id
	}
	copy(id[:], b)
	return id
}
