// internal/catalog/catalog.go
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
)

// BoardSize is the number of tiles on the board. Positions wrap modulo this.
const BoardSize = 40

// MaxLevel is the upgrade ceiling for a levelable tile. Cost tables of
// levelable tiles must cover every level up to and including it.
const MaxLevel = 5

// Tile types as they appear in the board file.
const (
	TileProperty       = "property"
	TileChance         = "chance"
	TileCommunityChest = "community chest"
	TilePenalty        = "penalty"
)

// TileFlags carries the behavioral flags nested under "properties" in the
// board file.
type TileFlags struct {
	Purchasable bool `json:"purchasable"`
	Levelable   bool `json:"levelable"`
}

// Tile is one immutable board position. OwnerCosts[0] is the purchase price
// and OwnerCosts[k] the cost to reach level k; TrespassCosts is indexed by
// the owner's current level.
type Tile struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Color         string    `json:"color,omitempty"`
	Type          string    `json:"type"`
	Properties    TileFlags `json:"properties"`
	OwnerCosts    []int     `json:"owner-costs,omitempty"`
	TrespassCosts []int     `json:"trespass-costs,omitempty"`
}

// Price returns the base purchase price of a purchasable tile.
func (t *Tile) Price() int {
	return t.OwnerCosts[0]
}

// Pawn is one visual token players can claim. Metadata is echoed to clients
// verbatim; the server only cares about the name.
type Pawn struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Color string `json:"color,omitempty"`
}

// Catalog is the static board and pawn reference data. It is loaded once at
// startup and never mutated afterwards.
type Catalog struct {
	Board []Tile
	Pawns []Pawn
}

//go:embed data/board.json data/pawns.json
var defaultData embed.FS

type boardFile struct {
	Board []Tile `json:"board"`
}

type pawnFile struct {
	Pawns []Pawn `json:"pawns"`
}

// Default returns the embedded board and pawn set.
func Default() (*Catalog, error) {
	board, err := defaultData.ReadFile("data/board.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded board: %w", err)
	}
	pawns, err := defaultData.ReadFile("data/pawns.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded pawns: %w", err)
	}
	return parse(board, pawns)
}

// Load reads a board catalog and pawn set from JSON files on disk. Either
// path may be empty, in which case the embedded default for that file is
// used instead.
func Load(boardPath, pawnPath string) (*Catalog, error) {
	board, pawns, err := readSources(boardPath, pawnPath)
	if err != nil {
		return nil, err
	}
	return parse(board, pawns)
}

func readSources(boardPath, pawnPath string) (board, pawns []byte, err error) {
	if boardPath != "" {
		if board, err = os.ReadFile(boardPath); err != nil {
			return nil, nil, fmt.Errorf("read board file: %w", err)
		}
	} else if board, err = defaultData.ReadFile("data/board.json"); err != nil {
		return nil, nil, err
	}
	if pawnPath != "" {
		if pawns, err = os.ReadFile(pawnPath); err != nil {
			return nil, nil, fmt.Errorf("read pawn file: %w", err)
		}
	} else if pawns, err = defaultData.ReadFile("data/pawns.json"); err != nil {
		return nil, nil, err
	}
	return board, pawns, nil
}

func parse(boardData, pawnData []byte) (*Catalog, error) {
	var bf boardFile
	if err := json.Unmarshal(boardData, &bf); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	var pf pawnFile
	if err := json.Unmarshal(pawnData, &pf); err != nil {
		return nil, fmt.Errorf("decode pawns: %w", err)
	}
	c := &Catalog{Board: bf.Board, Pawns: pf.Pawns}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate enforces the structural invariants the game engine relies on so
// it never has to re-check them per move.
func (c *Catalog) validate() error {
	if len(c.Board) != BoardSize {
		return fmt.Errorf("board must have exactly %d tiles, got %d", BoardSize, len(c.Board))
	}
	for i, t := range c.Board {
		if t.ID != i {
			return fmt.Errorf("tile at index %d has id %d; ids must be contiguous from 0", i, t.ID)
		}
		if t.Properties.Purchasable {
			if len(t.OwnerCosts) == 0 {
				return fmt.Errorf("purchasable tile %d (%s) has no owner-costs", t.ID, t.Name)
			}
			if len(t.TrespassCosts) == 0 {
				return fmt.Errorf("purchasable tile %d (%s) has no trespass-costs", t.ID, t.Name)
			}
		}
		if t.Properties.Levelable {
			// Rent and upgrade costs are indexed by level, up to MaxLevel.
			if !t.Properties.Purchasable {
				return fmt.Errorf("tile %d (%s) is levelable but not purchasable", t.ID, t.Name)
			}
			if len(t.OwnerCosts) < MaxLevel+1 {
				return fmt.Errorf("levelable tile %d (%s) has %d owner-costs, need %d", t.ID, t.Name, len(t.OwnerCosts), MaxLevel+1)
			}
			if len(t.TrespassCosts) < MaxLevel+1 {
				return fmt.Errorf("levelable tile %d (%s) has %d trespass-costs, need %d", t.ID, t.Name, len(t.TrespassCosts), MaxLevel+1)
			}
		}
		if t.Type == TilePenalty && len(t.TrespassCosts) == 0 {
			return fmt.Errorf("penalty tile %d (%s) has no trespass-costs", t.ID, t.Name)
		}
	}
	if len(c.Pawns) == 0 {
		return fmt.Errorf("pawn set is empty")
	}
	seen := make(map[string]struct{}, len(c.Pawns))
	for _, p := range c.Pawns {
		if p.Name == "" {
			return fmt.Errorf("pawn with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate pawn name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// Tile returns the tile at the given board position.
func (c *Catalog) Tile(position int) *Tile {
	return &c.Board[position]
}

// ColorGroup returns every purchasable tile sharing the given color. The
// monopoly rule requires one player to own all of them before upgrading any.
func (c *Catalog) ColorGroup(color string) []*Tile {
	var group []*Tile
	for i := range c.Board {
		t := &c.Board[i]
		if t.Properties.Purchasable && t.Color == color {
			group = append(group, t)
		}
	}
	return group
}
