package txn

import (
	"context"
	"fmt"

	"github.com/broyeztony/karlgrid/internal/a1"
	"github.com/broyeztony/karlgrid/internal/exec"
	"github.com/broyeztony/karlgrid/internal/exec/taskrunner"
	"github.com/broyeztony/karlgrid/internal/grid"
)

// apply dispatches op against e's grid, returning the reverse operation, any
// follow-up operations to enqueue, and an error if op is structurally
// invalid. The reverse operation is always computed before mutating state.
func (e *Engine) apply(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	switch op.Kind {
	case OpSetCellValues:
		return e.applySetCellValues(pt, op)
	case OpSetCodeCell:
		return e.applySetCodeCell(pt, op)
	case OpSetCellFormatsA1:
		return e.applySetCellFormatsA1(pt, op)
	case OpSetBorders:
		return e.applySetBorders(pt, op)
	case OpRestoreBorders:
		return e.applyRestoreBorders(pt, op)
	case OpSetMergeCells:
		return e.applySetMergeCells(pt, op)
	case OpInsertColumn:
		return e.applyInsertColumn(pt, op)
	case OpDeleteColumn:
		return e.applyDeleteColumn(pt, op)
	case OpInsertRow:
		return e.applyInsertRow(pt, op)
	case OpDeleteRow:
		return e.applyDeleteRow(pt, op)
	case OpMoveColumns:
		return e.applyMoveColumns(pt, op)
	case OpMoveRows:
		return e.applyMoveRows(pt, op)
	case OpAddSheet:
		return e.applyAddSheet(pt, op)
	case OpDeleteSheet:
		return e.applyDeleteSheet(pt, op)
	case OpRenameSheet:
		return e.applyRenameSheet(pt, op)
	case OpSetSheetColor:
		return e.applySetSheetColor(pt, op)
	case OpSetSheetOrder:
		return e.applySetSheetOrder(pt, op)
	case OpResizeColumn:
		return e.applyResizeColumn(pt, op)
	case OpResizeRow:
		return e.applyResizeRow(pt, op)
	case OpSetDataTable:
		return e.applySetDataTable(pt, op)
	case OpSortDataTable:
		return e.applySortDataTable(pt, op)
	case OpFlattenDataTable:
		return e.applyFlattenDataTable(pt, op)
	case OpCodeDataTableToDataTable:
		return e.applyCodeDataTableToDataTable(pt, op)
	case OpRestoreCodeDataTable:
		return e.applyRestoreCodeDataTable(pt, op)
	case OpSetValidation:
		return e.applySetValidation(pt, op)
	case OpSetCursorA1:
		return e.applySetCursorA1(pt, op)
	case OpRunCodeCell:
		return e.applyRunCodeCell(pt, op)
	case OpCodeCellResult:
		return e.applyCodeCellResult(pt, op)
	default:
		return Operation{}, nil, fmt.Errorf("txn: unknown operation kind %d", op.Kind)
	}
}

func (e *Engine) sheetOrErr(id grid.SheetID) (*grid.Sheet, error) {
	s := e.g.Sheet(id)
	if s == nil {
		return nil, fmt.Errorf("txn: no such sheet %s", id)
	}
	return s, nil
}

func (e *Engine) markDirty(pt *PendingTransaction, sheet grid.SheetID, r grid.Rect) {
	pt.SheetsWithDirtyBounds[sheet] = true
	pt.Summary.markDirtyRect(sheet, r)
	pt.CellsAccessed = append(pt.CellsAccessed, grid.NewSheetRect(sheet, r))
}

func (e *Engine) applySetCellValues(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	w, h := op.Values.Width, op.Values.Height
	if w == 0 || h == 0 {
		w, h = 1, 1
	}
	old := grid.NewArray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pos := grid.Pos{X: op.SheetPos.Pos.X + int64(x), Y: op.SheetPos.Pos.Y + int64(y)}
			var v grid.CellValue = grid.Blank{}
			if x < op.Values.Width && y < op.Values.Height {
				v = op.Values.At(x, y)
			}
			old.Set(x, y, s.SetCellValue(pos, v))
		}
	}
	rect := grid.Rect{Min: op.SheetPos.Pos, Max: grid.Pos{X: op.SheetPos.Pos.X + int64(w) - 1, Y: op.SheetPos.Pos.Y + int64(h) - 1}}
	e.markDirty(pt, op.SheetPos.Sheet, rect)
	reverse := Operation{Kind: OpSetCellValues, SheetPos: op.SheetPos, Values: old}
	return reverse, nil, nil
}

func (e *Engine) applySetCodeCell(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	pos := op.SheetPos.Pos
	oldCell, _ := s.CellValue(pos)
	var oldCode *grid.Code
	if c, ok := oldCell.(grid.Code); ok {
		cc := c
		oldCode = &cc
	}
	reverse := Operation{Kind: OpSetCodeCell, SheetPos: op.SheetPos, Code: oldCode}

	e.clearDepSources(op.SheetPos)
	s.RemoveDataTable(pos)

	var follow []Operation
	if op.Code == nil {
		s.SetCellValue(pos, grid.Blank{})
		e.markDirty(pt, op.SheetPos.Sheet, grid.SingleCell(pos))
		return reverse, follow, nil
	}

	s.SetCellValue(pos, *op.Code)
	e.markDirty(pt, op.SheetPos.Sheet, grid.SingleCell(pos))

	// Every language runs once on entry, formulas synchronously in this
	// same compute loop, others by suspending on the task runner - not
	// just formulas, so typing a Python/JS cell executes it immediately
	// rather than waiting for an unrelated recompute.
	follow = append(follow, Operation{Kind: OpRunCodeCell, SheetPos: op.SheetPos, Code: op.Code})
	return reverse, follow, nil
}

func (e *Engine) applyRunCodeCell(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	pos := op.SheetPos.Pos
	cellVal, ok := s.CellValue(pos)
	code, isCode := cellVal.(grid.Code)
	if !ok || !isCode {
		return Operation{Kind: OpRunCodeCell, SheetPos: op.SheetPos}, nil, nil
	}

	var (
		value     grid.CellValue
		arr       *grid.Array
		accessed  []grid.SheetRect
		runResult *taskrunner.Result
	)
	if code.Language == grid.LangFormula {
		value, arr = e.evalFormula(op.SheetPos.Sheet, code.Source)
		accessed = e.lastAccessed
	} else {
		// Non-formula languages suspend the transaction on the external task
		// runner between submit and await_result - the pipeline's one
		// suspension point. The pipeline goroutine blocks here; no other
		// transaction can start meanwhile since RunTransaction holds e.mu.
		runResult, err = e.runExternal(op.SheetPos, code)
		if err != nil {
			value = grid.ErrorValue{Err: grid.RunError{Kind: grid.ErrCodeRunError, Message: err.Error()}}
		} else if runResult.Array != nil {
			arr = runResult.Array
		} else {
			value = runResult.Value
		}
		if runResult != nil {
			accessed = runResult.CellsAccessed
		}
	}

	var dt *grid.DataTable
	if arr != nil {
		dt = grid.NewCodeDataTable(pos, "", code.Language, code.Source, *arr)
	} else {
		single := grid.NewArray(1, 1)
		single.Set(0, 0, value)
		dt = grid.NewCodeDataTable(pos, "", code.Language, code.Source, single)
	}
	if runResult != nil {
		dt.CodeRun.Stdout = runResult.Stdout
		dt.CodeRun.Stderr = runResult.Stderr
		dt.CodeRun.ReturnType = runResult.ReturnType
		dt.CodeRun.LineNumber = runResult.LineNumber
		dt.CodeRun.Error = runResult.Err
	}
	s.SetDataTable(dt)

	bySheet := make(map[grid.SheetID][]grid.Rect)
	for _, a := range accessed {
		bySheet[a.Sheet] = append(bySheet[a.Sheet], a.Rect)
	}
	e.setDepSources(op.SheetPos, bySheet)
	pt.CellsAccessed = append(pt.CellsAccessed, accessed...)

	outRect := dt.OutputRect()
	e.markDirty(pt, op.SheetPos.Sheet, outRect)

	// The reverse re-runs the same cell, so replaying it recomputes the cell
	// against whatever state the other reverse operations restored.
	return Operation{Kind: OpRunCodeCell, SheetPos: op.SheetPos}, nil, nil
}

// runExternal submits a non-formula code cell to the installed task runner
// and blocks for its result. If no runner is configured, it fails fast with
// a CodeRunError rather than hanging forever.
func (e *Engine) runExternal(sp grid.SheetPos, code grid.Code) (*taskrunner.Result, error) {
	if e.runner == nil {
		return nil, fmt.Errorf("no task runner configured for language %q", code.Language)
	}
	ctx := context.Background()
	id, err := e.runner.Submit(ctx, taskrunner.Task{SheetPos: sp, Language: code.Language, Source: code.Source})
	if err != nil {
		return nil, err
	}
	res, err := e.runner.AwaitResult(ctx, id)
	if err != nil {
		e.runner.Cancel(id)
		return nil, err
	}
	return res, nil
}

func (e *Engine) applyCodeCellResult(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	pos := op.SheetPos.Pos
	old, _ := s.DataTableAt(pos)
	cellVal, _ := s.CellValue(pos)
	code, _ := cellVal.(grid.Code)

	var value grid.Array
	if op.ResultArray != nil {
		value = *op.ResultArray
	} else {
		value = grid.NewArray(1, 1)
		if op.ResultError != nil {
			value.Set(0, 0, grid.ErrorValue{Err: *op.ResultError})
		} else {
			value.Set(0, 0, op.ResultValue)
		}
	}
	dt := grid.NewCodeDataTable(pos, "", code.Language, code.Source, value)
	if op.ResultError != nil {
		dt.CodeRun.Error = op.ResultError
	}
	s.SetDataTable(dt)
	e.markDirty(pt, op.SheetPos.Sheet, dt.OutputRect())

	reverse := Operation{Kind: OpSetDataTable, SheetPos: op.SheetPos, DataTable: old}
	return reverse, nil, nil
}

func (e *Engine) applySetCellFormatsA1(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	reverseUpdate := snapshotFormats(s.Formats, op.FormatsRect)
	op.Formats.MergeInto(s.Formats, op.FormatsRect)
	e.markDirty(pt, op.SheetID, op.FormatsRect)
	reverse := Operation{Kind: OpSetCellFormatsA1, SheetID: op.SheetID, Formats: reverseUpdate, FormatsRect: op.FormatsRect}
	return reverse, nil, nil
}

func (e *Engine) applySetBorders(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	priorUpdates := snapshotBorderUpdates(s.Borders, op.Borders.Rect, op.Borders.Side)
	s.Borders.Apply(op.Borders)
	e.markDirty(pt, op.SheetID, op.Borders.Rect)

	reverse := Operation{Kind: OpRestoreBorders, SheetID: op.SheetID, BorderRestore: priorUpdates}
	return reverse, nil, nil
}

func (e *Engine) applyRestoreBorders(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	var rect grid.Rect
	var side grid.BorderSide
	if len(op.BorderRestore) > 0 {
		rect, side = op.BorderRestore[0].Rect, op.BorderRestore[0].Side
	}
	priorUpdates := snapshotBorderUpdates(s.Borders, rect, side)
	for _, u := range op.BorderRestore {
		s.Borders.Apply(u)
	}
	e.markDirty(pt, op.SheetID, rect)
	reverse := Operation{Kind: OpRestoreBorders, SheetID: op.SheetID, BorderRestore: priorUpdates}
	return reverse, nil, nil
}

func (e *Engine) applySetMergeCells(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	anchor := op.MergeRect.Min
	wasMerged, hadRect := s.Merges.RectAt(anchor)
	if op.MergeClear {
		s.Merges.Unmerge(anchor)
	} else {
		s.Merges.Merge(op.MergeRect)
	}
	e.markDirty(pt, op.SheetID, op.MergeRect)
	reverse := Operation{Kind: OpSetMergeCells, SheetID: op.SheetID, MergeRect: op.MergeRect, MergeClear: !hadRect}
	if hadRect {
		reverse.MergeRect = wasMerged
		reverse.MergeClear = false
	}
	return reverse, nil, nil
}

// adjustFormulaReferences rewrites every formula code cell's source text
// across the whole grid under adj, called after a structural edit shifts
// positions on adj.SheetID - so "=B1+10" becomes "=C1+10" when a column is
// inserted before B, rather than silently continuing to read the cell that
// used to be B1. Scoped by AdjustFormulaSource to references that resolve
// to adj.SheetID; unrelated formulas are left untouched. Returns a
// RunCodeCell follow-up for every cell whose source actually changed, so
// the compute loop re-evaluates it against its new reference text in the
// same transaction.
func (e *Engine) adjustFormulaReferences(pt *PendingTransaction, adj a1.RefAdjust) []Operation {
	ctx := a1.NewA1Context(e.g, adj.SheetID)
	var follow []Operation
	for _, sheet := range e.g.Sheets() {
		for _, entry := range sheet.AllCells() {
			code, ok := entry.Value.(grid.Code)
			if !ok || code.Language != grid.LangFormula {
				continue
			}
			newSource := exec.AdjustFormulaSource(code.Source, ctx, sheet.ID, adj)
			if newSource == code.Source {
				continue
			}
			updated := code
			updated.Source = newSource
			sheet.SetCellValue(entry.Pos, updated)
			sheetPos := grid.SheetPos{Sheet: sheet.ID, Pos: entry.Pos}
			e.markDirty(pt, sheet.ID, grid.SingleCell(entry.Pos))
			follow = append(follow, Operation{Kind: OpRunCodeCell, SheetPos: sheetPos, Code: &updated})
		}
	}
	return follow
}

func (e *Engine) applyInsertColumn(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	s.InsertColumn(op.At)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: op.At, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}})
	follow := e.adjustFormulaReferences(pt, a1.NewInsertColumnAdjust(op.SheetID, op.At))
	reverse := Operation{Kind: OpDeleteColumn, SheetID: op.SheetID, At: op.At}
	return reverse, follow, nil
}

func (e *Engine) applyDeleteColumn(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	s.DeleteColumn(op.At)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: op.At, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}})
	follow := e.adjustFormulaReferences(pt, a1.NewDeleteColumnAdjust(op.SheetID, op.At))
	// The column is not snapshotted before the shift: the reverse re-inserts
	// a blank column.
	reverse := Operation{Kind: OpInsertColumn, SheetID: op.SheetID, At: op.At}
	return reverse, follow, nil
}

func (e *Engine) applyInsertRow(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	s.InsertRow(op.At)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: 1, Y: op.At}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}})
	follow := e.adjustFormulaReferences(pt, a1.NewInsertRowAdjust(op.SheetID, op.At))
	reverse := Operation{Kind: OpDeleteRow, SheetID: op.SheetID, At: op.At}
	return reverse, follow, nil
}

func (e *Engine) applyDeleteRow(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	s.DeleteRow(op.At)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: 1, Y: op.At}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}})
	follow := e.adjustFormulaReferences(pt, a1.NewDeleteRowAdjust(op.SheetID, op.At))
	reverse := Operation{Kind: OpInsertRow, SheetID: op.SheetID, At: op.At}
	return reverse, follow, nil
}

// applyMoveColumns/applyMoveRows implement a single contiguous column/row
// move as delete-then-insert; arbitrary multi-range moves are not
// supported. Formula references are adjusted in the same two steps,
// matching how the cells themselves moved; a reference touched by both
// steps is harmlessly re-enqueued to run twice.
func (e *Engine) applyMoveColumns(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	s.DeleteColumn(op.At)
	insertAt := op.To
	if insertAt > op.At {
		insertAt--
	}
	s.InsertColumn(insertAt)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: 1, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}})
	follow := e.adjustFormulaReferences(pt, a1.NewDeleteColumnAdjust(op.SheetID, op.At))
	follow = append(follow, e.adjustFormulaReferences(pt, a1.NewInsertColumnAdjust(op.SheetID, insertAt))...)
	reverse := Operation{Kind: OpMoveColumns, SheetID: op.SheetID, At: insertAt, To: op.At}
	return reverse, follow, nil
}

func (e *Engine) applyMoveRows(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	s.DeleteRow(op.At)
	insertAt := op.To
	if insertAt > op.At {
		insertAt--
	}
	s.InsertRow(insertAt)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: 1, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}})
	follow := e.adjustFormulaReferences(pt, a1.NewDeleteRowAdjust(op.SheetID, op.At))
	follow = append(follow, e.adjustFormulaReferences(pt, a1.NewInsertRowAdjust(op.SheetID, insertAt))...)
	reverse := Operation{Kind: OpMoveRows, SheetID: op.SheetID, At: insertAt, To: op.At}
	return reverse, follow, nil
}

func (e *Engine) applyAddSheet(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	var s *grid.Sheet
	var err error
	index := op.SheetIndex
	if op.Sheet != nil {
		err = e.g.ReinsertSheet(op.Sheet, index)
		s = op.Sheet
	} else {
		s, err = e.g.AddSheet(op.Name, index)
	}
	if err != nil {
		return Operation{}, nil, err
	}
	pt.SheetsWithDirtyBounds[s.ID] = true

	// If this AddSheet is undoing a prior DeleteSheet, op.DeletedSheetDependents
	// carries the code cells that read from the sheet while it existed - now
	// that it is back, re-run them so they recover their pre-delete values
	// instead of staying stuck at the #REF! error the delete left behind.
	var follow []Operation
	for _, dep := range op.DeletedSheetDependents {
		if dep.Sheet == s.ID {
			continue
		}
		depSheet := e.g.Sheet(dep.Sheet)
		if depSheet == nil {
			continue
		}
		cv, ok := depSheet.CellValue(dep.Pos)
		code, isCode := cv.(grid.Code)
		if !ok || !isCode {
			continue
		}
		follow = append(follow, Operation{Kind: OpRunCodeCell, SheetPos: dep, Code: &code})
	}

	reverse := Operation{Kind: OpDeleteSheet, SheetID: s.ID}
	return reverse, follow, nil
}

func (e *Engine) applyDeleteSheet(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	index := e.g.IndexOf(op.SheetID)

	// Collect every code cell - on any sheet - that reads from this one,
	// before its region map is torn down: once the map is gone there is no
	// way left to find them. Each becomes a RunCodeCell follow-up so its
	// formula re-evaluates against the now-missing sheet and surfaces a
	// #REF!-shaped RunError in the same transaction, instead of silently
	// keeping a stale value.
	var dependents []grid.SheetPos
	if rm, ok := e.regionMaps[op.SheetID]; ok {
		fullSheet := grid.Rect{Min: grid.Pos{X: 1, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}}
		dependents = rm.GetPositionsAssociatedWithRegion(fullSheet)
	}

	s, err := e.g.DeleteSheet(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	delete(e.regionMaps, op.SheetID)
	for codeCell := range e.depSources {
		if codeCell.Sheet == op.SheetID {
			delete(e.depSources, codeCell)
		}
	}

	var follow []Operation
	for _, dep := range dependents {
		if dep.Sheet == op.SheetID {
			continue
		}
		depSheet := e.g.Sheet(dep.Sheet)
		if depSheet == nil {
			continue
		}
		cv, ok := depSheet.CellValue(dep.Pos)
		code, isCode := cv.(grid.Code)
		if !ok || !isCode {
			continue
		}
		follow = append(follow, Operation{Kind: OpRunCodeCell, SheetPos: dep, Code: &code})
	}

	reverse := Operation{Kind: OpAddSheet, Sheet: s, SheetIndex: index, DeletedSheetDependents: dependents}
	return reverse, follow, nil
}

func (e *Engine) applyRenameSheet(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	oldName := s.Name
	if err := e.g.RenameSheet(op.SheetID, op.Name); err != nil {
		return Operation{}, nil, err
	}
	reverse := Operation{Kind: OpRenameSheet, SheetID: op.SheetID, Name: oldName}
	return reverse, nil, nil
}

func (e *Engine) applySetSheetColor(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	oldColor := s.Color
	if err := e.g.SetSheetColor(op.SheetID, op.Color); err != nil {
		return Operation{}, nil, err
	}
	reverse := Operation{Kind: OpSetSheetColor, SheetID: op.SheetID, Color: oldColor}
	return reverse, nil, nil
}

func (e *Engine) applySetSheetOrder(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	oldIndex := e.g.IndexOf(op.SheetID)
	if oldIndex < 0 {
		return Operation{}, nil, fmt.Errorf("txn: no such sheet %s", op.SheetID)
	}
	if err := e.g.MoveSheet(op.SheetID, op.SheetIndex); err != nil {
		return Operation{}, nil, err
	}
	reverse := Operation{Kind: OpSetSheetOrder, SheetID: op.SheetID, SheetIndex: oldIndex}
	return reverse, nil, nil
}

func (e *Engine) applyResizeColumn(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	old := s.Offsets.SetColumnWidth(op.At, op.NewSize)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: op.At, Y: 1}, Max: grid.Pos{X: op.At, Y: grid.Unbounded}})
	reverse := Operation{Kind: OpResizeColumn, SheetID: op.SheetID, At: op.At, NewSize: old, ClientResized: op.ClientResized}
	return reverse, nil, nil
}

func (e *Engine) applyResizeRow(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	old := s.Offsets.SetRowHeight(op.At, op.NewSize)
	e.markDirty(pt, op.SheetID, grid.Rect{Min: grid.Pos{X: 1, Y: op.At}, Max: grid.Pos{X: grid.Unbounded, Y: op.At}})
	reverse := Operation{Kind: OpResizeRow, SheetID: op.SheetID, At: op.At, NewSize: old, ClientResized: op.ClientResized}
	return reverse, nil, nil
}

func (e *Engine) applySetDataTable(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	pos := op.SheetPos.Pos
	old, _ := s.DataTableAt(pos)
	if op.DataTable == nil {
		s.RemoveDataTable(pos)
	} else {
		s.SetDataTable(op.DataTable)
	}
	rect := grid.SingleCell(pos)
	if op.DataTable != nil {
		rect = op.DataTable.OutputRect()
	} else if old != nil {
		rect = old.OutputRect()
	}
	e.markDirty(pt, op.SheetPos.Sheet, rect)
	reverse := Operation{Kind: OpSetDataTable, SheetPos: op.SheetPos, DataTable: old}
	return reverse, nil, nil
}

func (e *Engine) applySortDataTable(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, nil, fmt.Errorf("txn: no data table at %s", op.SheetPos.Pos)
	}
	oldSort := append([]grid.SortRule(nil), dt.Sort...)
	dt.Sort = op.SortRules
	dt.MarkSortDirty()
	dt.EnsureSorted()
	e.markDirty(pt, op.SheetPos.Sheet, dt.OutputRect())
	reverse := Operation{Kind: OpSortDataTable, SheetPos: op.SheetPos, SortRules: oldSort}
	return reverse, nil, nil
}

func (e *Engine) applyFlattenDataTable(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	pos := op.SheetPos.Pos
	dt, ok := s.DataTableAt(pos)
	if !ok {
		return Operation{}, nil, fmt.Errorf("txn: no data table at %s", pos)
	}
	dt.EnsureSorted()
	for y := 0; y < dt.Value.Height; y++ {
		for x := 0; x < dt.Value.Width; x++ {
			s.SetCellValue(grid.Pos{X: pos.X + int64(x), Y: pos.Y + int64(y)}, dt.ValueAt(x, y))
		}
	}
	s.RemoveDataTable(pos)
	e.clearDepSources(op.SheetPos)
	e.markDirty(pt, op.SheetPos.Sheet, dt.OutputRect())
	reverse := Operation{Kind: OpSetDataTable, SheetPos: op.SheetPos, DataTable: dt}
	return reverse, nil, nil
}

func (e *Engine) applyCodeDataTableToDataTable(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	pos := op.SheetPos.Pos
	dt, ok := s.DataTableAt(pos)
	if !ok {
		return Operation{}, nil, fmt.Errorf("txn: no data table at %s", pos)
	}
	oldKind := dt.Kind
	oldCodeRun := dt.CodeRun
	var oldCode *grid.Code
	if cellVal, ok := s.CellValue(pos); ok {
		if c, ok := cellVal.(grid.Code); ok {
			cc := c
			oldCode = &cc
		}
	}
	dt.Kind = grid.DataTableImport
	dt.Import = grid.ImportInfo{SourceName: "detached code table"}
	dt.CodeRun = grid.CodeRunInfo{}
	s.SetCellValue(pos, grid.Blank{})
	e.clearDepSources(op.SheetPos)
	e.markDirty(pt, op.SheetPos.Sheet, dt.OutputRect())

	reverse := Operation{
		Kind:      OpRestoreCodeDataTable,
		SheetPos:  op.SheetPos,
		DataTable: &grid.DataTable{Kind: oldKind, CodeRun: oldCodeRun},
		Code:      oldCode,
	}
	return reverse, nil, nil
}

// applyRestoreCodeDataTable reinstates the code-backed state a
// CodeDataTableToDataTable flatten displaced: op.DataTable carries the old
// Kind/CodeRun and op.Code the old cell value, both captured before the
// flatten mutated them. Its own reverse is the flatten operation itself,
// which needs no payload since it always reads the current table state.
func (e *Engine) applyRestoreCodeDataTable(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, nil, err
	}
	pos := op.SheetPos.Pos
	dt, ok := s.DataTableAt(pos)
	if !ok {
		return Operation{}, nil, fmt.Errorf("txn: no data table at %s", pos)
	}
	if op.DataTable != nil {
		dt.Kind = op.DataTable.Kind
		dt.CodeRun = op.DataTable.CodeRun
		dt.Import = grid.ImportInfo{}
	}
	if op.Code != nil {
		s.SetCellValue(pos, *op.Code)
	}

	bySheet := make(map[grid.SheetID][]grid.Rect)
	for _, a := range dt.CodeRun.AccessedCells {
		bySheet[a.Sheet] = append(bySheet[a.Sheet], a.Rect)
	}
	e.setDepSources(op.SheetPos, bySheet)
	e.markDirty(pt, op.SheetPos.Sheet, dt.OutputRect())

	reverse := Operation{Kind: OpCodeDataTableToDataTable, SheetPos: op.SheetPos}
	return reverse, nil, nil
}

func (e *Engine) applySetValidation(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	s, err := e.sheetOrErr(op.SheetID)
	if err != nil {
		return Operation{}, nil, err
	}
	id := op.ValidationID
	if op.Validation != nil {
		id = op.Validation.ID
	}
	var old *grid.Validation
	if existing, ok := s.Validations.Get(id); ok {
		oldCopy := *existing
		old = &oldCopy
	}
	if op.Validation != nil {
		s.Validations.Set(op.Validation)
		e.markDirty(pt, op.SheetID, op.Validation.Rect)
	} else {
		s.Validations.Remove(id)
	}
	reverse := Operation{Kind: OpSetValidation, SheetID: op.SheetID, ValidationID: id, Validation: old}
	return reverse, nil, nil
}

func (e *Engine) applySetCursorA1(pt *PendingTransaction, op Operation) (Operation, []Operation, error) {
	old := pt.Cursor
	pt.Cursor = op.Cursor
	reverse := Operation{Kind: OpSetCursorA1, Cursor: old}
	return reverse, nil, nil
}
