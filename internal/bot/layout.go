package bot

import (
	"errors"
	"slices"

	"github.com/freeeve/salvo/pkg/fleet"
)

const layoutAttempts = 1000

// RandomFleet places every catalog shape at a random anchor and rotation.
// Shapes are placed largest first so the last ones still find room.
func RandomFleet() ([]fleet.Placement, error) {
	shapes := fleet.Catalog()
	slices.SortStableFunc(shapes, func(a, b fleet.Shape) int { return b.Size() - a.Size() })

	var placed []fleet.Placement
	for _, s := range shapes {
		ok := false
		for range layoutAttempts {
			p := fleet.Placement{
				Shape:    s.Name,
				Anchor:   fleet.Cell{Row: botIntn(fleet.GridSize), Col: botIntn(fleet.GridSize)},
				Rotation: botIntn(4),
			}
			if fleet.Validate(append(placed, p)) == nil {
				placed = append(placed, p)
				ok = true
				break
			}
		}
		if !ok {
			return nil, errors.New("could not fit " + string(s.Name))
		}
	}
	return placed, fleet.ValidateFleet(placed)
}
