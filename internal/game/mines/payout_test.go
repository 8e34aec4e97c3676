package mines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestMultiplierZeroClicks checks that the multiplier before any
// reveal is exactly 1.00 for every valid mine count.
func TestMultiplierZeroClicks(t *testing.T) {
	for m := MinMines; m <= MaxMines; m++ {
		assert.Equal(t, 1.0, Multiplier(m, 0), "mineCount=%d", m)
	}
}

// TestMultiplierKnownValues checks hand-computed multipliers.
// With 20 mines there are 5 safe cells: the first reveal pays
// 25/5 x 0.99 = 4.95, the second (25x24)/(5x4) x 0.99 = 29.70.
func TestMultiplierKnownValues(t *testing.T) {
	tests := []struct {
		name       string
		mineCount  int
		safeClicks int
		expected   float64
	}{
		{"20 mines, 1 reveal", 20, 1, 4.95},
		{"20 mines, 2 reveals", 20, 2, 29.70},
		{"1 mine, 1 reveal", 1, 1, 1.03},
		{"24 mines, 1 reveal", 24, 1, 24.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Multiplier(tt.mineCount, tt.safeClicks), 1e-9)
		})
	}
}

// TestPayoutKnownValues checks payout rounding against the multiplier
// scenarios above with a $10.00 stake.
func TestPayoutKnownValues(t *testing.T) {
	tests := []struct {
		name       string
		stake      int64
		multiplier float64
		expected   int64
	}{
		{"$10 at 4.95", 1000, 4.95, 4950},
		{"$10 at 29.70", 1000, 29.70, 29700},
		{"$10 at 1.00", 1000, 1.00, 1000},
		{"odd cents round", 333, 1.03, 343},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Payout(tt.stake, tt.multiplier))
		})
	}
}

// TestMultiplierMonotonicProperty checks that for any mine count the
// multiplier strictly increases with each additional safe reveal, all
// the way to the last safe cell.
func TestMultiplierMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mineCount := rapid.IntRange(MinMines, MaxMines).Draw(t, "mineCount")
		remainingSafe := GridSize - mineCount

		prev := Multiplier(mineCount, 0)
		for k := 1; k <= remainingSafe; k++ {
			cur := Multiplier(mineCount, k)
			if cur <= prev {
				t.Fatalf("Multiplier(%d, %d) = %v not greater than Multiplier(%d, %d) = %v",
					mineCount, k, cur, mineCount, k-1, prev)
			}
			prev = cur
		}
	})
}

// TestAutomaticWinMatchesCashout checks that the payout for revealing
// every safe cell equals a cash-out settled at the same reveal count:
// both go through the same multiplier and the same single rounding.
func TestAutomaticWinMatchesCashout(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mineCount := rapid.IntRange(MinMines, MaxMines).Draw(t, "mineCount")
		stake := rapid.Int64Range(1, 1_000_000).Draw(t, "stake")
		remainingSafe := GridSize - mineCount

		winPayout := Payout(stake, Multiplier(mineCount, remainingSafe))
		cashoutPayout := Payout(stake, Multiplier(mineCount, remainingSafe))

		if winPayout != cashoutPayout {
			t.Fatalf("automatic win payout %d != cashout payout %d (m=%d, stake=%d)",
				winPayout, cashoutPayout, mineCount, stake)
		}
		if winPayout < stake {
			t.Fatalf("full-board payout %d below stake %d (m=%d)", winPayout, stake, mineCount)
		}
	})
}
