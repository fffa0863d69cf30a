package similarity

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bookrec/internal/tabular"
)

// table is the on-disk gob form of an Index.
type table struct {
	Entries map[int][]Neighbor
}

// Load reads a similarity artifact. ".gob" files hold an encoded table;
// ".csv" files hold row,neighbor,score lines grouped per row in rank order.
func Load(path string) (*Index, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		return loadGob(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("%s: unsupported similarity format", path)
	}
}

// Save writes idx as a gob artifact.
func Save(path string, idx *Index) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(table{Entries: idx.Entries()}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func loadGob(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var t table
	if err := gob.NewDecoder(f).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return New(t.Entries)
}

func loadCSV(path string) (*Index, error) {
	entries := make(map[int][]Neighbor)
	err := tabular.ReadFile(path, []string{"row", "neighbor", "score"}, func(_ int, r tabular.Row) error {
		row, err := r.Int("row")
		if err != nil {
			return err
		}
		nb, err := r.Int("neighbor")
		if err != nil {
			return err
		}
		score, err := r.Float("score")
		if err != nil {
			return err
		}
		entries[row] = append(entries[row], Neighbor{Row: nb, Score: score})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return New(entries)
}
