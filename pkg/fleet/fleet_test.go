package fleet

import (
	"errors"
	"strings"
	"testing"
)

func standardFleet() []Placement {
	return []Placement{
		{Shape: Patrol, Anchor: Cell{0, 0}},
		{Shape: Block, Anchor: Cell{2, 0}},
		{Shape: Cruiser, Anchor: Cell{5, 0}},
		{Shape: Battleship, Anchor: Cell{7, 0}},
		{Shape: UBoat, Anchor: Cell{0, 5}},
	}
}

func TestCatalogHasFiveShapes(t *testing.T) {
	want := map[ShapeName]int{Patrol: 2, Block: 4, Cruiser: 3, Battleship: 4, UBoat: 5}
	shapes := Catalog()
	if len(shapes) != len(want) {
		t.Fatalf("expected %d shapes, got %d", len(want), len(shapes))
	}
	for _, s := range shapes {
		if s.Size() != want[s.Name] {
			t.Errorf("%s: expected %d cells, got %d", s.Name, want[s.Name], s.Size())
		}
	}
}

func TestCatalogReturnsCopy(t *testing.T) {
	shapes := Catalog()
	shapes[0].Offsets[0] = Cell{9, 9}
	s, _ := ShapeByName(shapes[0].Name)
	if s.Offsets[0] != (Cell{0, 0}) {
		t.Error("mutating Catalog() result should not affect the catalog")
	}
}

func TestRotatedNormalizesOffsets(t *testing.T) {
	s, _ := ShapeByName(Battleship)
	got := s.Rotated(1)
	want := []Cell{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotated battleship = %v, want %v", got, want)
		}
	}

	u, _ := ShapeByName(UBoat)
	full := u.Rotated(4)
	for i := range u.Offsets {
		if full[i] != u.Offsets[i] {
			t.Fatalf("four quarter turns should be identity, got %v", full)
		}
	}
}

func TestValidateAcceptsPartialLayout(t *testing.T) {
	if err := Validate(standardFleet()[:2]); err != nil {
		t.Fatalf("partial layout should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name       string
		placements []Placement
	}{
		{"off grid right", []Placement{{Shape: Battleship, Anchor: Cell{0, 7}}}},
		{"off grid bottom", []Placement{{Shape: Block, Anchor: Cell{9, 0}}}},
		{"negative anchor", []Placement{{Shape: Patrol, Anchor: Cell{-1, 0}}}},
		{"rotated off grid", []Placement{{Shape: Battleship, Anchor: Cell{8, 0}, Rotation: 1}}},
		{"overlap", []Placement{
			{Shape: Cruiser, Anchor: Cell{0, 0}},
			{Shape: Patrol, Anchor: Cell{0, 2}},
		}},
		{"unknown shape", []Placement{{Shape: "carrier", Anchor: Cell{0, 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.placements)
			var pe *PlacementError
			if !errors.As(err, &pe) {
				t.Fatalf("expected PlacementError, got %v", err)
			}
		})
	}
}

func TestUBoatGapIsFree(t *testing.T) {
	// The U's open cell at (0,1) can hold another ship's cell.
	placements := []Placement{
		{Shape: UBoat, Anchor: Cell{1, 1}},
		{Shape: Cruiser, Anchor: Cell{0, 2}, Rotation: 1},
	}
	if err := Validate(placements); err == nil {
		t.Fatal("cruiser crossing the U base should overlap")
	}
	placements[1] = Placement{Shape: Patrol, Anchor: Cell{0, 2}, Rotation: 1}
	if err := Validate(placements); err != nil {
		t.Fatalf("patrol dropped into the U gap should fit: %v", err)
	}
}

func TestValidateFleetCompleteness(t *testing.T) {
	full := standardFleet()
	if err := ValidateFleet(full); err != nil {
		t.Fatalf("complete fleet rejected: %v", err)
	}

	if err := ValidateFleet(full[:4]); err == nil {
		t.Error("four of five shapes should be rejected")
	}

	dup := append(append([]Placement(nil), full[:4]...), Placement{Shape: Patrol, Anchor: Cell{9, 8}})
	if err := ValidateFleet(dup); err == nil {
		t.Error("duplicate shape should be rejected")
	}
}

func TestBuildBoard(t *testing.T) {
	b, err := BuildBoard(standardFleet())
	if err != nil {
		t.Fatalf("BuildBoard: %v", err)
	}
	if got := b.At(Cell{0, 1}); got != Patrol {
		t.Errorf("expected patrol at A2, got %q", got)
	}
	if got := b.At(Cell{0, 6}); got != "" {
		t.Errorf("expected U gap at A7 to be empty, got %q", got)
	}
	occupied := 0
	for _, c := range AllCells() {
		if b.At(c) != "" {
			occupied++
		}
	}
	if occupied != 18 {
		t.Errorf("expected 18 occupied cells, got %d", occupied)
	}

	back, err := BoardFromRows(b.Rows())
	if err != nil {
		t.Fatalf("BoardFromRows: %v", err)
	}
	if back != b {
		t.Error("BoardFromRows(Rows()) should reproduce the board")
	}
}

func TestBoardFromRowsRejectsBadShape(t *testing.T) {
	rows := make([][]string, GridSize)
	for i := range rows {
		rows[i] = make([]string, GridSize)
	}
	rows[3][3] = "carrier"
	if _, err := BoardFromRows(rows); err == nil {
		t.Error("expected error for unknown ship name")
	}
	if _, err := BoardFromRows(rows[:5]); err == nil {
		t.Error("expected error for short board")
	}
}

func TestNeighbors(t *testing.T) {
	if n := (Cell{0, 0}).Neighbors(); len(n) != 2 {
		t.Errorf("corner should have 2 neighbours, got %d", len(n))
	}
	if n := (Cell{5, 5}).Neighbors(); len(n) != 4 {
		t.Errorf("interior cell should have 4 neighbours, got %d", len(n))
	}
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		want Cell
		ok   bool
	}{
		{"A1", Cell{0, 0}, true},
		{"b7", Cell{1, 6}, true},
		{"J10", Cell{9, 9}, true},
		{"K1", Cell{}, false},
		{"A0", Cell{}, false},
		{"A11", Cell{}, false},
		{"A1x", Cell{}, false},
		{"7", Cell{}, false},
	}
	for _, tt := range tests {
		got, err := ParseCell(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseCell(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseCell(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.ok && got.String() != strings.ToUpper(tt.in) {
			t.Errorf("String() should round trip %q, got %q", tt.in, got.String())
		}
	}
}
