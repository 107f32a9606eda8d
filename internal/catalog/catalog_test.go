// internal/catalog/catalog_test.go
package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	require.Len(t, cat.Board, BoardSize)
	assert.Equal(t, "Start", cat.Tile(0).Name)
	assert.NotEmpty(t, cat.Pawns)

	for i, tile := range cat.Board {
		assert.Equal(t, i, tile.ID)
	}
}

func TestColorGroup(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	brown := cat.ColorGroup("brown")
	require.Len(t, brown, 2)
	assert.Equal(t, 1, brown[0].ID)
	assert.Equal(t, 3, brown[1].ID)

	stations := cat.ColorGroup("station")
	assert.Len(t, stations, 4)
	for _, s := range stations {
		assert.False(t, s.Properties.Levelable)
	}

	assert.Empty(t, cat.ColorGroup("no-such-color"))
}

func TestTilePrice(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	tile := cat.Tile(5)
	assert.Equal(t, "Dworzec Główny", tile.Name)
	assert.Equal(t, 200, tile.Price())
}

func TestValidateRejectsWrongBoardSize(t *testing.T) {
	c := &Catalog{
		Board: []Tile{{ID: 0, Name: "Start", Type: "start"}},
		Pawns: []Pawn{{Name: "Krasnal"}},
	}
	err := c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 40 tiles")
}

func TestValidateRejectsBadTiles(t *testing.T) {
	base := func() *Catalog {
		c := &Catalog{Pawns: []Pawn{{Name: "Krasnal"}}}
		for i := 0; i < BoardSize; i++ {
			c.Board = append(c.Board, Tile{ID: i, Name: "Tile", Type: "neutral"})
		}
		return c
	}

	c := base()
	c.Board[3].ID = 7
	require.Error(t, c.validate())

	c = base()
	c.Board[3].Properties.Purchasable = true
	err := c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner-costs")

	c = base()
	c.Board[3].Properties.Levelable = true
	err = c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "levelable but not purchasable")

	c = base()
	c.Board[3].Type = TilePenalty
	err = c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trespass-costs")
}

func TestValidateRejectsShortCostTables(t *testing.T) {
	// Rent and upgrade lookups index cost tables by level, so a levelable
	// tile must carry MaxLevel+1 entries in both.
	base := func() *Catalog {
		cat, err := Default()
		require.NoError(t, err)
		return cat
	}

	c := base()
	c.Board[1].TrespassCosts = c.Board[1].TrespassCosts[:1]
	err := c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trespass-costs")

	c = base()
	c.Board[1].OwnerCosts = c.Board[1].OwnerCosts[:MaxLevel]
	err = c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner-costs")

	// Non-levelable purchasable tiles only need a level-0 entry.
	c = base()
	c.Board[5].OwnerCosts = c.Board[5].OwnerCosts[:1]
	c.Board[5].TrespassCosts = c.Board[5].TrespassCosts[:1]
	require.NoError(t, c.validate())
}

func TestValidateRejectsBadPawns(t *testing.T) {
	board := make([]Tile, BoardSize)
	for i := range board {
		board[i] = Tile{ID: i, Name: "Tile", Type: "neutral"}
	}

	c := &Catalog{Board: board}
	require.Error(t, c.validate())

	c = &Catalog{Board: board, Pawns: []Pawn{{Name: "Krasnal"}, {Name: "Krasnal"}}}
	err := c.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate pawn")
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := parse([]byte("{not json"), []byte(`{"pawns":[]}`))
	require.Error(t, err)
}
