// internal/game/player.go
package game

import (
	"github.com/google/uuid"

	"github.com/monopoly-online/session-service/internal/catalog"
	"github.com/monopoly-online/session-service/internal/protocol"
)

// StartingBalance is issued to every player on join.
const StartingBalance = 1500

// PassStartCredit is granted whenever a move wraps past the start tile.
const PassStartCredit = 200

// MaxLevel is the upgrade ceiling for a levelable property. The catalog
// guarantees cost tables cover every level up to it.
const MaxLevel = catalog.MaxLevel

// TurnState is the per-turn roll state machine: NotRolled -> Rolled,
// reset when the turn advances.
type TurnState int

const (
	TurnNotRolled TurnState = iota
	TurnRolled
)

// Player is one connection's economic and positional state within a lobby.
// All mutation happens under the owning lobby's lock.
type Player struct {
	ConnID   uuid.UUID
	Username string
	Pawn     string
	Position int
	Balance  int

	// Owned holds tile ids in purchase order. A tile id appears in at
	// most one player's list lobby-wide.
	Owned []int
	// Levels maps owned tile id -> upgrade level. Missing entries read
	// as level 0. Levels only ever increase.
	Levels map[int]int

	turn TurnState
}

func newPlayer(connID uuid.UUID, username, pawn string) *Player {
	return &Player{
		ConnID:   connID,
		Username: username,
		Pawn:     pawn,
		Balance:  StartingBalance,
		Levels:   make(map[int]int),
	}
}

// Owns reports whether the player owns the given tile.
func (p *Player) Owns(tileID int) bool {
	for _, id := range p.Owned {
		if id == tileID {
			return true
		}
	}
	return false
}

// Level returns the player's recorded level for a tile, defaulting to 0.
func (p *Player) Level(tileID int) int {
	return p.Levels[tileID]
}

// beginRoll transitions NotRolled -> Rolled, rejecting a second roll
// within the same turn.
func (p *Player) beginRoll() error {
	if p.turn == TurnRolled {
		return Forbiddenf("Already rolled this turn")
	}
	p.turn = TurnRolled
	return nil
}

// resetTurn rearms the roll state when the player's turn ends.
func (p *Player) resetTurn() {
	p.turn = TurnNotRolled
}

// HasRolled reports whether the player already rolled this turn.
func (p *Player) HasRolled() bool {
	return p.turn == TurnRolled
}

// ownedDetails builds the detailed owned-property list sent in
// PLAYER_DATA snapshots.
func (p *Player) ownedDetails(cat *catalog.Catalog) []protocol.PropertyDetail {
	details := make([]protocol.PropertyDetail, 0, len(p.Owned))
	for _, id := range p.Owned {
		tile := cat.Tile(id)
		details = append(details, protocol.PropertyDetail{
			ID:    tile.ID,
			Name:  tile.Name,
			Color: tile.Color,
			Level: p.Level(id),
		})
	}
	return details
}

func (p *Player) summary() protocol.PlayerSummary {
	return protocol.PlayerSummary{Username: p.Username, Pawn: p.Pawn}
}
