// internal/game/lobby.go
package game

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/monopoly-online/session-service/internal/catalog"
	"github.com/monopoly-online/session-service/internal/protocol"
)

// Phase is the lobby lifecycle state machine: Waiting -> Started -> Ended.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseStarted
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseStarted:
		return "started"
	case PhaseEnded:
		return "ended"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Lobby is one game session: player set, turn order, and the turn, tile
// and economy engines. Every mutation runs under mu, so handlers for the
// same lobby never interleave; different lobbies are fully independent.
type Lobby struct {
	Code string
	Host uuid.UUID

	mu      sync.Mutex
	phase   Phase
	players map[uuid.UUID]*Player
	conns   map[uuid.UUID]*Connection
	order   []uuid.UUID
	current int

	cat *catalog.Catalog

	// Dice returns one roll of two dice. Swapped out in tests.
	Dice func() (int, int)
	// Draw picks a uniform index below n for card draws. Swapped out in tests.
	Draw func(n int) int
}

func newLobby(code string, host uuid.UUID, cat *catalog.Catalog) *Lobby {
	return &Lobby{
		Code:    code,
		Host:    host,
		players: make(map[uuid.UUID]*Player),
		conns:   make(map[uuid.UUID]*Connection),
		cat:     cat,
		Dice: func() (int, int) {
			return rand.IntN(6) + 1, rand.IntN(6) + 1
		},
		Draw: rand.IntN,
	}
}

// State returns the current lifecycle phase.
func (l *Lobby) State() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Player returns the player for a connection, or nil if absent.
func (l *Lobby) Player(connID uuid.UUID) *Player {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.players[connID]
}

// PlayerCount returns the number of joined players.
func (l *Lobby) PlayerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.players)
}

// CurrentTurn returns the connection whose turn it is. Only meaningful
// once the lobby has started.
func (l *Lobby) CurrentTurn() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseStarted || len(l.order) == 0 {
		return uuid.Nil
	}
	return l.order[l.current]
}

// connIDs returns all member connection ids. Used by the registry during
// teardown, after the lobby has been ended.
func (l *Lobby) connIDs() []uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]uuid.UUID, len(l.order))
	copy(ids, l.order)
	return ids
}

// addPlayer registers a connection in this lobby, claiming the first
// catalog pawn not yet in use. Join order determines turn order.
func (l *Lobby) addPlayer(conn *Connection, username string) (*Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != PhaseWaiting {
		return nil, Forbiddenf("Game already started")
	}
	for _, p := range l.players {
		if p.Username == username {
			return nil, Conflictf("Username already taken")
		}
	}
	pawn, ok := l.availablePawn()
	if !ok {
		return nil, Forbiddenf("Lobby is full")
	}

	p := newPlayer(conn.ID, username, pawn)
	l.players[conn.ID] = p
	l.conns[conn.ID] = conn
	l.order = append(l.order, conn.ID)
	return p, nil
}

// availablePawn returns the first catalog pawn not claimed by a member.
// Assumes the lock is held.
func (l *Lobby) availablePawn() (string, bool) {
	inUse := make(map[string]bool, len(l.players))
	for _, p := range l.players {
		inUse[p.Pawn] = true
	}
	for _, pawn := range l.cat.Pawns {
		if !inUse[pawn.Name] {
			return pawn.Name, true
		}
	}
	return "", false
}

// summaries lists all members in join order. Assumes the lock is held.
func (l *Lobby) summaries() []protocol.PlayerSummary {
	out := make([]protocol.PlayerSummary, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.players[id].summary())
	}
	return out
}

// announceJoin sends JOIN_GAME to the joiner and NEW_PLAYER to everyone
// else, in that order.
func (l *Lobby) announceJoin(joiner *Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.players[joiner.ID]
	if p == nil {
		return
	}
	joiner.Write(protocol.JoinGameEvent(l.cat.Board, l.cat.Pawns, l.summaries()))
	l.broadcastExcept(joiner.ID, protocol.NewPlayerEvent(p.summary()))
}

// Start begins the game: host only, at least two players. Emits
// GAME_START, the first NEXT_TURN, and a private PLAYER_DATA snapshot to
// each member.
func (l *Lobby) Start(caller uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.Host {
		return Forbiddenf("Only host can start the game")
	}
	if l.phase != PhaseWaiting {
		return Forbiddenf("Game already started")
	}
	if len(l.players) < 2 {
		return Validationf("Need at least 2 players to start")
	}

	l.phase = PhaseStarted
	l.current = 0
	log.WithFields(log.Fields{"lobby": l.Code, "players": len(l.players)}).Info("game started")

	l.broadcast(protocol.GameStartEvent())
	l.broadcast(protocol.NextTurnEvent(l.players[l.order[0]].Username))
	for id, p := range l.players {
		l.sendTo(id, protocol.PlayerDataEvent(p.Username, p.Balance, p.ownedDetails(l.cat)))
	}
	return nil
}

// FinishTurn advances the round-robin turn pointer. Only the current
// player may end their turn; their roll state is rearmed for next time.
func (l *Lobby) FinishTurn(caller uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireCurrent(caller); err != nil {
		return err
	}
	l.players[caller].resetTurn()
	l.current = (l.current + 1) % len(l.order)
	l.broadcast(protocol.NextTurnEvent(l.players[l.order[l.current]].Username))
	return nil
}

// Roll resolves the current player's dice roll: movement, pass-start
// credit, position broadcast, then the landed tile's effect. The turn is
// not advanced; buying and upgrading stay available until FINISH_TURN.
func (l *Lobby) Roll(caller uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireCurrent(caller); err != nil {
		return err
	}
	p := l.players[caller]
	if err := p.beginRoll(); err != nil {
		return err
	}

	d1, d2 := l.Dice()
	total := d1 + d2
	oldPosition := p.Position
	p.Position = (oldPosition + total) % catalog.BoardSize

	// Wrap detection works because a single roll can never cover the
	// whole board.
	if p.Position < oldPosition {
		p.Balance += PassStartCredit
		l.sendTo(caller, protocol.TransactionEvent(PassStartCredit, p.Balance))
	}

	log.WithFields(log.Fields{
		"lobby":    l.Code,
		"player":   p.Username,
		"dice":     [2]int{d1, d2},
		"position": p.Position,
	}).Debug("roll resolved")

	l.broadcast(protocol.SetPositionEvent(p.Username, p.Position))
	l.resolveTile(p)
	return nil
}

// resolveTile applies the landed tile's effect. Assumes the lock is held.
func (l *Lobby) resolveTile(p *Player) {
	tile := l.cat.Tile(p.Position)

	if tile.Properties.Purchasable {
		owner := l.ownerOf(tile.ID)
		switch {
		case owner == nil:
			l.sendTo(p.ConnID, protocol.ChoiceEvent(
				protocol.ChoiceOption{
					Label:       "BUY",
					Description: fmt.Sprintf("Buy %s for $%d", tile.Name, tile.Price()),
				},
				protocol.ChoiceOption{Label: "PASS", Description: "Do nothing"},
			))
		case owner.ConnID != p.ConnID:
			rent := tile.TrespassCosts[owner.Level(tile.ID)]
			p.Balance -= rent
			owner.Balance += rent
			l.sendTo(p.ConnID, protocol.TransactionEvent(-rent, p.Balance))
			l.sendTo(owner.ConnID, protocol.TransactionEvent(rent, owner.Balance))
		}
		return
	}

	switch tile.Type {
	case catalog.TileChance:
		l.applyCard(p, chanceTitle, chanceCards)
	case catalog.TileCommunityChest:
		l.applyCard(p, communityChestTitle, communityChestCards)
	case catalog.TilePenalty:
		penalty := tile.TrespassCosts[0]
		l.sendTo(p.ConnID, protocol.TileMessageEvent(tile.Name, fmt.Sprintf("Zapłać %d$", penalty)))
		// Penalty money leaves circulation; there is no recipient.
		p.Balance -= penalty
		l.sendTo(p.ConnID, protocol.TransactionEvent(-penalty, p.Balance))
	}
}

// applyCard draws one card from the deck and applies its amount.
// Assumes the lock is held.
func (l *Lobby) applyCard(p *Player, title string, deck []Card) {
	card := deck[l.Draw(len(deck))]
	l.sendTo(p.ConnID, protocol.TileMessageEvent(title, card.Message))
	p.Balance += card.Amount
	l.sendTo(p.ConnID, protocol.TransactionEvent(card.Amount, p.Balance))
}

// ChoiceResponse settles a pending purchase offer. Only the BUY label
// acts; PASS or anything else is a silent no-op. The tile bought is the
// one the player is still standing on.
func (l *Lobby) ChoiceResponse(caller uuid.UUID, label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.players[caller]
	if p == nil || label != "BUY" {
		return nil
	}
	tile := l.cat.Tile(p.Position)
	if !tile.Properties.Purchasable || l.ownerOf(tile.ID) != nil {
		// Either no offer was ever made for this tile or someone holds it
		// already; buying would break tile ownership exclusivity.
		return nil
	}
	price := tile.Price()
	if p.Balance < price {
		return Validationf("Insufficient funds")
	}

	p.Balance -= price
	p.Owned = append(p.Owned, tile.ID)
	p.Levels[tile.ID] = 0
	l.sendTo(caller, protocol.TransactionEvent(-price, p.Balance))
	l.sendTo(caller, protocol.PropertyTransferEvent(protocol.PropertyDetail{
		ID:    tile.ID,
		Name:  tile.Name,
		Color: tile.Color,
		Level: 0,
	}))
	return nil
}

// Upgrade raises an owned property one level. Requires ownership of the
// full color group and enough balance for owner-costs[level+1]. The
// caller need not be the current player; only ownership gates upgrades.
func (l *Lobby) Upgrade(caller uuid.UUID, propertyID *int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.players[caller]
	if p == nil {
		return Forbiddenf("Not in a lobby")
	}
	if propertyID == nil || *propertyID < 0 || *propertyID >= catalog.BoardSize {
		return Validationf("Property ID required")
	}
	id := *propertyID
	if !p.Owns(id) {
		return Forbiddenf("You don't own this property")
	}
	tile := l.cat.Tile(id)
	if !tile.Properties.Levelable {
		return Validationf("This property cannot be upgraded")
	}
	for _, groupTile := range l.cat.ColorGroup(tile.Color) {
		if !p.Owns(groupTile.ID) {
			return Forbiddenf("You must own all properties of this color to upgrade")
		}
	}
	level := p.Level(id)
	if level >= MaxLevel {
		return Validationf("Property is already at max level")
	}
	cost := tile.OwnerCosts[level+1]
	if p.Balance < cost {
		return Validationf("Insufficient funds")
	}

	p.Balance -= cost
	p.Levels[id] = level + 1
	l.sendTo(caller, protocol.TransactionEvent(-cost, p.Balance))
	l.sendTo(caller, protocol.PropertyUpgradeEvent(id, level+1))
	return nil
}

// end broadcasts GAME_END and moves the lobby to its terminal phase.
// Teardown of registry bookkeeping is the caller's job.
func (l *Lobby) end(caller uuid.UUID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.Host {
		return Forbiddenf("Only host can end the game")
	}
	l.phase = PhaseEnded
	l.broadcast(protocol.GameEndEvent(reason))
	return nil
}

// removeConnection drops a member and reports whether the lobby is now
// empty. Idempotent; safe to call for connections that already left.
func (l *Lobby) removeConnection(connID uuid.UUID) (empty bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.players[connID]; !ok {
		return len(l.players) == 0
	}
	delete(l.players, connID)
	delete(l.conns, connID)
	for i, id := range l.order {
		if id == connID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			// Keep the turn pointer on the same player where possible so a
			// departure never skips anyone's turn.
			if l.phase == PhaseStarted && len(l.order) > 0 {
				if i < l.current {
					l.current--
				}
				l.current %= len(l.order)
			}
			break
		}
	}
	return len(l.players) == 0
}

// ownerOf returns the player owning a tile, scanning in join order, or
// nil if unowned. Assumes the lock is held.
func (l *Lobby) ownerOf(tileID int) *Player {
	for _, id := range l.order {
		if l.players[id].Owns(tileID) {
			return l.players[id]
		}
	}
	return nil
}

// requireCurrent checks that the game is running and the caller holds the
// turn. Assumes the lock is held.
func (l *Lobby) requireCurrent(caller uuid.UUID) error {
	if l.phase != PhaseStarted {
		return Validationf("Game not started")
	}
	if l.order[l.current] != caller {
		return Forbiddenf("Not your turn")
	}
	return nil
}

// broadcast sends an envelope to every member. Assumes the lock is held.
func (l *Lobby) broadcast(env protocol.Envelope) {
	for _, conn := range l.conns {
		conn.Write(env)
	}
}

// broadcastExcept sends to every member but one. Assumes the lock is held.
func (l *Lobby) broadcastExcept(exclude uuid.UUID, env protocol.Envelope) {
	for id, conn := range l.conns {
		if id != exclude {
			conn.Write(env)
		}
	}
}

// sendTo sends to a single member. Assumes the lock is held.
func (l *Lobby) sendTo(connID uuid.UUID, env protocol.Envelope) {
	if conn, ok := l.conns[connID]; ok {
		conn.Write(env)
	}
}
