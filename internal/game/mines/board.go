// Package mines implements the 5x5 mines wagering game: board
// generation, fair-odds payout math, and per-user session state.
package mines

import "math/rand"

// Tile is one cell of the board.
type Tile string

// Tile values. A gem is safe to reveal; a mine ends the game.
const (
	TileGem  Tile = "gem"
	TileMine Tile = "mine"
)

const (
	// GridSize is the number of cells on the board (5x5).
	GridSize = 25

	// MinMines and MaxMines bound the configurable mine count.
	MinMines = 1
	MaxMines = 24
)

// Board is a GridSize-cell layout, immutable after generation.
type Board [GridSize]Tile

// MineCount returns the number of mine tiles on the board.
func (b Board) MineCount() int {
	n := 0
	for _, t := range b {
		if t == TileMine {
			n++
		}
	}
	return n
}

// Tiles returns the board as a slice, for serialization.
func (b Board) Tiles() []Tile {
	return b[:]
}

// Generate produces a board with exactly mineCount mines placed
// uniformly at random over all C(25, mineCount) placements.
// The caller must validate mineCount against [MinMines, MaxMines];
// generation itself is pure with respect to rng.
func Generate(rng *rand.Rand, mineCount int) Board {
	var b Board
	for i := range b {
		b[i] = TileGem
	}
	for _, idx := range rng.Perm(GridSize)[:mineCount] {
		b[idx] = TileMine
	}
	return b
}
