package fleet

import "fmt"

// Placement is one catalog shape translated (and optionally rotated) onto the grid.
type Placement struct {
	Shape    ShapeName `json:"shape"`
	Anchor   Cell      `json:"anchor"`
	Rotation int       `json:"rotation,omitempty"` // clockwise quarter turns
}

// Cells returns the grid cells covered by the placement. The second return
// value is false if the shape is not in the catalog.
func (p Placement) Cells() ([]Cell, bool) {
	shape, ok := ShapeByName(p.Shape)
	if !ok {
		return nil, false
	}
	offsets := shape.Rotated(p.Rotation)
	cells := make([]Cell, len(offsets))
	for i, off := range offsets {
		cells[i] = p.Anchor.Add(off)
	}
	return cells, true
}

// PlacementError describes why a placement or fleet layout is invalid.
type PlacementError struct {
	Placement Placement
	Reason    string
}

func (e *PlacementError) Error() string {
	if e.Placement.Shape == "" {
		return "invalid fleet: " + e.Reason
	}
	return fmt.Sprintf("invalid placement of %s at %s: %s", e.Placement.Shape, e.Placement.Anchor, e.Reason)
}

// Validate checks that every placement is a catalog shape lying fully on the
// grid and that no two placements overlap. It does not require the fleet to
// be complete, so it can be called on every intermediate layout.
func Validate(placements []Placement) error {
	occupied := make(map[Cell]ShapeName)
	for _, p := range placements {
		cells, ok := p.Cells()
		if !ok {
			return &PlacementError{p, "unknown shape"}
		}
		for _, c := range cells {
			if !c.InBounds() {
				return &PlacementError{p, fmt.Sprintf("cell %s is off the grid", c)}
			}
			if other, taken := occupied[c]; taken {
				return &PlacementError{p, fmt.Sprintf("cell %s already occupied by %s", c, other)}
			}
		}
		for _, c := range cells {
			occupied[c] = p.Shape
		}
	}
	return nil
}

// ValidateFleet runs Validate and additionally requires exactly one
// placement of each catalog shape. A nil return means the layout may be
// submitted.
func ValidateFleet(placements []Placement) error {
	if err := Validate(placements); err != nil {
		return err
	}
	seen := make(map[ShapeName]bool, len(catalog))
	for _, p := range placements {
		if seen[p.Shape] {
			return &PlacementError{p, "shape placed more than once"}
		}
		seen[p.Shape] = true
	}
	for _, s := range catalog {
		if !seen[s.Name] {
			return &PlacementError{Reason: fmt.Sprintf("missing %s", s.Name)}
		}
	}
	return nil
}

// Board maps every grid cell to the ship occupying it ("" when empty).
// Indexed [row][col].
type Board [GridSize][GridSize]ShapeName

// At returns the ship name at c, or "" for an empty or out-of-range cell.
func (b *Board) At(c Cell) ShapeName {
	if !c.InBounds() {
		return ""
	}
	return b[c.Row][c.Col]
}

// Rows renders the board as row-major string slices, the shape the game
// authority accepts on board submission.
func (b *Board) Rows() [][]string {
	rows := make([][]string, GridSize)
	for r := range GridSize {
		rows[r] = make([]string, GridSize)
		for c := range GridSize {
			rows[r][c] = string(b[r][c])
		}
	}
	return rows
}

// BuildBoard validates a complete fleet and lays it out on a Board.
func BuildBoard(placements []Placement) (Board, error) {
	var b Board
	if err := ValidateFleet(placements); err != nil {
		return b, err
	}
	for _, p := range placements {
		cells, _ := p.Cells()
		for _, c := range cells {
			b[c.Row][c.Col] = p.Shape
		}
	}
	return b, nil
}

// BoardFromRows parses a row-major grid of ship names.
func BoardFromRows(rows [][]string) (Board, error) {
	var b Board
	if len(rows) != GridSize {
		return b, fmt.Errorf("board has %d rows, want %d", len(rows), GridSize)
	}
	for r, row := range rows {
		if len(row) != GridSize {
			return b, fmt.Errorf("board row %d has %d cells, want %d", r, len(row), GridSize)
		}
		for c, name := range row {
			if name == "" {
				continue
			}
			if _, ok := ShapeByName(ShapeName(name)); !ok {
				return b, fmt.Errorf("unknown ship %q at row %d col %d", name, r, c)
			}
			b[r][c] = ShapeName(name)
		}
	}
	return b, nil
}
