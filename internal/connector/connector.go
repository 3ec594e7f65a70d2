// Package connector imports a SQL query result into the grid as an Import
// DataTable, grounded on interpreter/builtins_sql.go's sqlOpen/sqlQuery
// pair: same database/sql + pgx driver, PingContext-on-open, and
// column-by-column result conversion, generalized from a language-level
// builtin returning Karl objects into a DataTable anchored on a sheet.
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// Connector is a pooled SQL connection.
type Connector struct {
	db *sql.DB
}

// Open opens a connection pool against dsn using the pgx driver
// (interpreter/builtins_sql.go's own runtimeSQLDriver default) and
// verifies it's reachable.
func Open(ctx context.Context, dsn string) (*Connector, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connector: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connector: ping: %w", err)
	}
	return &Connector{db: db}, nil
}

// Close releases the underlying connection pool.
func (c *Connector) Close() error { return c.db.Close() }

// Import runs query and materializes the result as a DataTable anchored at
// anchor, named name, with sourceName recorded for the Import variant.
// Row 0 of the table holds the column names and the result rows follow it
// (HeaderIsFirstRow is always set since a SQL result always has named
// columns).
func (c *Connector) Import(ctx context.Context, anchor grid.Pos, name, sourceName, query string, args ...any) (*grid.DataTable, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("connector: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("connector: columns: %w", err)
	}

	values := make([][]grid.CellValue, 0)
	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("connector: scan: %w", err)
		}
		row := make([]grid.CellValue, len(cols))
		for i, v := range raw {
			row[i] = resultValue(v)
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("connector: rows: %w", err)
	}

	width := len(cols)
	height := len(values) + 1
	arr := grid.NewArray(width, height)
	for x, col := range cols {
		arr.Set(x, 0, grid.Text{Value: col})
	}
	for y, row := range values {
		for x, v := range row {
			arr.Set(x, y+1, v)
		}
	}

	columns := make([]grid.ColumnHeader, width)
	for i, col := range cols {
		columns[i] = grid.ColumnHeader{Name: grid.Text{Value: col}, Display: true, ValueIndex: uint32(i)}
	}

	return &grid.DataTable{
		Anchor:           anchor,
		Name:             name,
		Kind:             grid.DataTableImport,
		Import:           grid.ImportInfo{SourceName: sourceName},
		Value:            arr,
		HeaderIsFirstRow: true,
		ShowName:         true,
		ShowColumns:      true,
		Columns:          columns,
		Formats:          grid.NewSheetFormatting(),
		Borders:          grid.NewBorders(),
		LastModified:     time.Now(),
	}, nil
}

// resultValue converts one database/sql-scanned column into a grid
// CellValue, the DataTable-import analogue of builtins_sql.go's
// sqlResultValue (which converts the same driver value set into Karl
// language values instead).
func resultValue(raw any) grid.CellValue {
	switch v := raw.(type) {
	case nil:
		return grid.Blank{}
	case bool:
		return grid.Logical{Value: v}
	case int64:
		return grid.NewNumber(v)
	case int32:
		return grid.NewNumber(int64(v))
	case float32:
		return numberFromFloat(float64(v))
	case float64:
		return numberFromFloat(v)
	case string:
		return grid.Text{Value: v}
	case []byte:
		return grid.Text{Value: string(v)}
	case time.Time:
		return grid.DateTime{Value: v}
	case fmt.Stringer:
		return grid.Text{Value: v.String()}
	default:
		return grid.Text{Value: fmt.Sprintf("%v", v)}
	}
}

func numberFromFloat(f float64) grid.Number {
	r := new(big.Rat)
	r.SetFloat64(f)
	return grid.Number{Value: r}
}
