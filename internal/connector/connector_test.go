package connector

import (
	"testing"
	"time"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func TestResultValueConversions(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want grid.CellValue
	}{
		{"nil", nil, grid.Blank{}},
		{"bool", true, grid.Logical{Value: true}},
		{"int64", int64(42), grid.NewNumber(42)},
		{"string", "hello", grid.Text{Value: "hello"}},
		{"bytes", []byte("hello"), grid.Text{Value: "hello"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := resultValue(c.in)
			if got.Kind() != c.want.Kind() {
				t.Fatalf("expected kind %v, got %v", c.want.Kind(), got.Kind())
			}
			if got.Display() != c.want.Display() {
				t.Fatalf("expected display %q, got %q", c.want.Display(), got.Display())
			}
		})
	}
}

func TestResultValueTime(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := resultValue(ts)
	dt, ok := got.(grid.DateTime)
	if !ok {
		t.Fatalf("expected DateTime, got %T", got)
	}
	if !dt.Value.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, dt.Value)
	}
}

func TestNumberFromFloat(t *testing.T) {
	n := numberFromFloat(3.5)
	if n.Value.RatString() != "7/2" {
		t.Fatalf("expected 7/2, got %s", n.Value.RatString())
	}
}
