package bot

import "math/rand"

// botRng is the random source used by layouts and strategies. When nil the
// helpers below use the global math/rand source. SeedRng makes a bot's
// placement and targeting reproducible.
var botRng *rand.Rand

// SeedRng sets a deterministic random source.
func SeedRng(seed int64) {
	botRng = rand.New(rand.NewSource(seed))
}

// ResetRng reverts to the global random source.
func ResetRng() {
	botRng = nil
}

func botIntn(n int) int {
	if botRng != nil {
		return botRng.Intn(n)
	}
	return rand.Intn(n)
}
