package mines

import "math"

// HouseEdge is the fixed scaling factor applied to the fair multiplier.
const HouseEdge = 0.99

// Multiplier returns the payout multiplier after safeClicks successful
// reveals on a board with mineCount mines. The raw multiplier is the
// inverse of the hypergeometric probability of drawing safeClicks safe
// cells in a row without replacement, i.e. fair odds for surviving
// that many reveals. The house edge is applied to the full product and
// the result is rounded to 2 decimal places exactly once, so values
// are reproducible regardless of reveal order.
//
// safeClicks must not exceed GridSize - mineCount; the game engine
// ends the game before that can happen.
func Multiplier(mineCount, safeClicks int) float64 {
	if safeClicks == 0 {
		return 1.0
	}

	remainingSafe := GridSize - mineCount
	multiplier := 1.0
	for i := 0; i < safeClicks; i++ {
		multiplier *= float64(GridSize-i) / float64(remainingSafe-i)
	}

	return math.Round(multiplier*HouseEdge*100) / 100
}

// Payout converts a stake in cents and a multiplier into a payout in
// cents, rounded to the nearest cent.
func Payout(stakeCents int64, multiplier float64) int64 {
	return int64(math.Round(float64(stakeCents) * multiplier))
}
