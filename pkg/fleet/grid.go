package fleet

import "fmt"

// GridSize is the edge length of the square battle grid.
const GridSize = 10

// Cell is a zero-indexed grid coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether the cell lies on the 10x10 grid.
func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < GridSize && c.Col >= 0 && c.Col < GridSize
}

// Add translates c by the given offset.
func (c Cell) Add(off Cell) Cell {
	return Cell{Row: c.Row + off.Row, Col: c.Col + off.Col}
}

// Neighbors returns the in-bounds orthogonal neighbours of c.
func (c Cell) Neighbors() []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range []Cell{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		if n := c.Add(d); n.InBounds() {
			out = append(out, n)
		}
	}
	return out
}

func (c Cell) String() string {
	return fmt.Sprintf("%c%d", 'A'+rune(c.Row), c.Col+1)
}

// AllCells returns every cell on the grid in row-major order.
func AllCells() []Cell {
	cells := make([]Cell, 0, GridSize*GridSize)
	for r := range GridSize {
		for c := range GridSize {
			cells = append(cells, Cell{Row: r, Col: c})
		}
	}
	return cells
}

// ParseCell reads the String form of a cell, e.g. "B7" for row 1 column 6.
// Letters are case-insensitive.
func ParseCell(s string) (Cell, error) {
	if len(s) < 2 {
		return Cell{}, fmt.Errorf("cell %q: want a row letter and a column number", s)
	}
	row := int(s[0] | 0x20 - 'a')
	var col int
	if _, err := fmt.Sscanf(s[1:], "%d", &col); err != nil {
		return Cell{}, fmt.Errorf("cell %q: %w", s, err)
	}
	c := Cell{Row: row, Col: col - 1}
	if !c.InBounds() || fmt.Sprint(col) != s[1:] {
		return Cell{}, fmt.Errorf("cell %q is not on the grid", s)
	}
	return c, nil
}
