package persist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// Load reads and migrates a checkpoint file, returning a ready grid.Grid.
// Mirrors notebook.LoadNotebook's read-unmarshal-wrap shape.
func Load(filename string) (*grid.Grid, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", filename, err)
	}
	doc, err := Migrate(data)
	if err != nil {
		return nil, fmt.Errorf("persist: parse %s: %w", filename, err)
	}
	g, err := Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("persist: decode %s: %w", filename, err)
	}
	return g, nil
}

// Save writes a checkpoint of g to filename at CurrentVersion.
func Save(filename string, g *grid.Grid) error {
	doc := Encode(g)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("persist: write %s: %w", filename, err)
	}
	return nil
}
