package fleet

// ShapeName identifies one of the catalog ship shapes.
type ShapeName string

const (
	Patrol     ShapeName = "patrol"     // 2x1
	Block      ShapeName = "block"      // 2x2
	Cruiser    ShapeName = "cruiser"    // 3x1
	Battleship ShapeName = "battleship" // 4x1
	UBoat      ShapeName = "uboat"      // U pentomino
)

// Shape is a named polyomino expressed as offsets from its anchor cell.
type Shape struct {
	Name    ShapeName
	Offsets []Cell
}

// Size returns the number of cells the shape covers.
func (s Shape) Size() int { return len(s.Offsets) }

var catalog = []Shape{
	{Patrol, []Cell{{0, 0}, {0, 1}}},
	{Block, []Cell{{0, 0}, {0, 1}, {1, 0}, {1, 1}}},
	{Cruiser, []Cell{{0, 0}, {0, 1}, {0, 2}}},
	{Battleship, []Cell{{0, 0}, {0, 1}, {0, 2}, {0, 3}}},
	{UBoat, []Cell{{0, 0}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}},
}

// Catalog returns the five fleet shapes in canonical order.
func Catalog() []Shape {
	out := make([]Shape, len(catalog))
	for i, s := range catalog {
		out[i] = Shape{Name: s.Name, Offsets: append([]Cell(nil), s.Offsets...)}
	}
	return out
}

// ShapeByName looks up a catalog shape.
func ShapeByName(name ShapeName) (Shape, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Shape{}, false
}

// Rotated returns the shape's offsets after the given number of clockwise
// quarter turns, shifted so the smallest row and column offsets are zero.
func (s Shape) Rotated(turns int) []Cell {
	turns = ((turns % 4) + 4) % 4
	out := append([]Cell(nil), s.Offsets...)
	for range turns {
		for i, c := range out {
			out[i] = Cell{Row: c.Col, Col: -c.Row}
		}
	}
	minR, minC := out[0].Row, out[0].Col
	for _, c := range out[1:] {
		minR = min(minR, c.Row)
		minC = min(minC, c.Col)
	}
	for i := range out {
		out[i].Row -= minR
		out[i].Col -= minC
	}
	return out
}
