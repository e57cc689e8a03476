package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// Cell is one grid value. Missing cells are never zero; they encode as null.
type Cell struct {
	Value float64
	Valid bool
}

func Value(v float64) Cell { return Cell{Value: v, Valid: true} }

var Missing = Cell{}

func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(c.Value, 'f', -1, 64)), nil
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Missing
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Value(v)
	return nil
}

// Grid is a dense stay date by report date matrix. Rows and Columns are
// complete calendar ranges in ascending order; Cells[i][j] belongs to
// stay date Rows[i] and report date Columns[j].
type Grid struct {
	Rows    []time.Time `json:"rows"`
	Columns []time.Time `json:"columns"`
	Cells   [][]Cell    `json:"cells"`
}

// ValidCount returns how many cells hold a value.
func (g Grid) ValidCount() int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if c.Valid {
				n++
			}
		}
	}
	return n
}

func (g Grid) Size() int {
	return len(g.Rows) * len(g.Columns)
}

// Clone copies the cell matrix; axis slices are shared.
func (g Grid) Clone() Grid {
	cells := make([][]Cell, len(g.Cells))
	for i, row := range g.Cells {
		cells[i] = append([]Cell(nil), row...)
	}
	return Grid{Rows: g.Rows, Columns: g.Columns, Cells: cells}
}
