package mines

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestGenerateExactMineCount checks that every board carries exactly
// the requested number of mines for all valid mine counts.
func TestGenerateExactMineCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for m := MinMines; m <= MaxMines; m++ {
		for trial := 0; trial < 50; trial++ {
			b := Generate(rng, m)
			assert.Equal(t, m, b.MineCount(), "mineCount=%d", m)
		}
	}
}

// TestGenerateUniformPositions checks that across many boards each
// cell position is a mine with frequency close to mineCount/25.
func TestGenerateUniformPositions(t *testing.T) {
	const (
		mineCount = 5
		trials    = 20000
	)
	rng := rand.New(rand.NewSource(42))

	var hits [GridSize]int
	for i := 0; i < trials; i++ {
		b := Generate(rng, mineCount)
		for idx, tile := range b {
			if tile == TileMine {
				hits[idx]++
			}
		}
	}

	expected := float64(mineCount) / GridSize
	for idx, n := range hits {
		freq := float64(n) / trials
		if math.Abs(freq-expected) > 0.02 {
			t.Errorf("cell %d mine frequency %.4f, expected ~%.4f", idx, freq, expected)
		}
	}
}

// TestGenerateProperty checks structural invariants for any mine
// count and seed: 25 cells, only gem/mine values, exact mine count.
func TestGenerateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mineCount := rapid.IntRange(MinMines, MaxMines).Draw(t, "mineCount")
		seed := rapid.Int64().Draw(t, "seed")

		b := Generate(rand.New(rand.NewSource(seed)), mineCount)

		mines := 0
		for _, tile := range b {
			switch tile {
			case TileMine:
				mines++
			case TileGem:
			default:
				t.Fatalf("unexpected tile value %q", tile)
			}
		}
		if mines != mineCount {
			t.Fatalf("board has %d mines, want %d", mines, mineCount)
		}
	})
}
