package bot

import (
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/match"
	"github.com/freeeve/salvo/pkg/fleet"
)

// Strategy picks the next cell to attack from the local player's view.
type Strategy interface {
	Name() string
	// NextTarget returns a cell not yet attacked, or false when none is left.
	NextTarget(v *match.View) (fleet.Cell, bool)
}

// StrategyByName returns the strategy for a -strategy flag value.
func StrategyByName(name string) Strategy {
	switch name {
	case "random":
		return RandomStrategy{}
	case "hunt", "":
		return HuntStrategy{}
	default:
		log.Warn().Str("strategy", name).Msg("Unknown strategy, using hunt")
		return HuntStrategy{}
	}
}

func openCells(v *match.View) []fleet.Cell {
	var out []fleet.Cell
	for _, c := range fleet.AllCells() {
		if !v.Attacked(c) {
			out = append(out, c)
		}
	}
	return out
}

// RandomStrategy fires at a uniformly random open cell.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return "random" }

func (RandomStrategy) NextTarget(v *match.View) (fleet.Cell, bool) {
	open := openCells(v)
	if len(open) == 0 {
		return fleet.Cell{}, false
	}
	return open[botIntn(len(open))], true
}

// HuntStrategy searches on a checkerboard until it scores a hit, then
// works outward from unsunk hits, preferring cells in line with two hits.
type HuntStrategy struct{}

func (HuntStrategy) Name() string { return "hunt" }

func (HuntStrategy) NextTarget(v *match.View) (fleet.Cell, bool) {
	sunk := make(map[fleet.Cell]bool, len(v.Self.Sunk))
	for _, c := range v.Self.Sunk {
		sunk[c] = true
	}
	live := make(map[fleet.Cell]bool)
	for _, r := range v.Self.Hits {
		if !r.Sunk && !sunk[r.Cell] {
			live[r.Cell] = true
		}
	}

	var lined, adjacent []fleet.Cell
	for _, c := range fleet.AllCells() {
		if !live[c] {
			continue
		}
		for _, n := range c.Neighbors() {
			if v.Attacked(n) {
				continue
			}
			// n continues a line if the hit on the far side of c is also live.
			behind := fleet.Cell{Row: 2*c.Row - n.Row, Col: 2*c.Col - n.Col}
			if live[behind] {
				lined = append(lined, n)
			} else {
				adjacent = append(adjacent, n)
			}
		}
	}
	if len(lined) > 0 {
		return lined[botIntn(len(lined))], true
	}
	if len(adjacent) > 0 {
		return adjacent[botIntn(len(adjacent))], true
	}

	open := openCells(v)
	if len(open) == 0 {
		return fleet.Cell{}, false
	}
	var parity []fleet.Cell
	for _, c := range open {
		if (c.Row+c.Col)%2 == 0 {
			parity = append(parity, c)
		}
	}
	if len(parity) > 0 {
		return parity[botIntn(len(parity))], true
	}
	return open[botIntn(len(open))], true
}
