package bot

import (
	"testing"

	"github.com/freeeve/salvo/pkg/fleet"
)

func TestRandomFleetIsComplete(t *testing.T) {
	defer ResetRng()
	for seed := int64(0); seed < 50; seed++ {
		SeedRng(seed)
		placements, err := RandomFleet()
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if _, err := fleet.BuildBoard(placements); err != nil {
			t.Fatalf("seed %d: layout not submittable: %v", seed, err)
		}
	}
}

func TestRandomFleetIsReproducible(t *testing.T) {
	defer ResetRng()
	SeedRng(42)
	a, _ := RandomFleet()
	SeedRng(42)
	b, _ := RandomFleet()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different layouts: %v vs %v", a, b)
		}
	}
}
