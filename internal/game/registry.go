// internal/game/registry.go
package game

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/monopoly-online/session-service/internal/catalog"
	"github.com/monopoly-online/session-service/internal/protocol"
)

// CodeLength is the size of a lobby code.
const CodeLength = 6

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry owns every live lobby and the connection-to-lobby routing
// table. It is created once at process start and injected into the
// transport handlers; there are no package-level globals.
//
// Lock order is always registry before lobby, never the reverse.
type Registry struct {
	mu      sync.Mutex
	cat     *catalog.Catalog
	lobbies map[string]*Lobby
	conns   map[uuid.UUID]string

	// randInt picks a uniform index below n for code generation.
	// Swapped out in tests to force collisions.
	randInt func(n int) int
}

// NewRegistry builds an empty registry over the given immutable catalog.
func NewRegistry(cat *catalog.Catalog) *Registry {
	return &Registry{
		cat:     cat,
		lobbies: make(map[string]*Lobby),
		conns:   make(map[uuid.UUID]string),
		randInt: rand.IntN,
	}
}

// CreateLobby allocates a lobby with a fresh code and registers the
// creator as host and sole player. Replies NEW_GAME (code, board, pawns)
// and NEW_PLAYER to the creator.
func (r *Registry) CreateLobby(conn *Connection, username string) (*Lobby, error) {
	if username == "" {
		return nil, Validationf("Username is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, in := r.conns[conn.ID]; in {
		return nil, Forbiddenf("Already in a lobby")
	}

	code := r.generateCode()
	lob := newLobby(code, conn.ID, r.cat)
	p, err := lob.addPlayer(conn, username)
	if err != nil {
		return nil, err
	}
	r.lobbies[code] = lob
	r.conns[conn.ID] = code
	log.WithFields(log.Fields{"lobby": code, "host": username}).Info("lobby created")

	conn.Write(protocol.NewGameEvent(code, r.cat.Board, r.cat.Pawns))
	conn.Write(protocol.NewPlayerEvent(protocol.PlayerSummary{Username: p.Username, Pawn: p.Pawn}))
	return lob, nil
}

// JoinLobby adds a connection to an existing lobby. Replies JOIN_GAME to
// the joiner and broadcasts NEW_PLAYER to everyone already present.
func (r *Registry) JoinLobby(conn *Connection, username, code string) (*Lobby, error) {
	if username == "" {
		return nil, Validationf("Username is required")
	}
	if code == "" {
		return nil, Validationf("Lobby code is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, in := r.conns[conn.ID]; in {
		return nil, Forbiddenf("Already in a lobby")
	}
	lob, ok := r.lobbies[strings.ToUpper(code)]
	if !ok {
		return nil, NotFoundf("Lobby not found")
	}
	if _, err := lob.addPlayer(conn, username); err != nil {
		return nil, err
	}
	r.conns[conn.ID] = lob.Code
	log.WithFields(log.Fields{"lobby": lob.Code, "player": username}).Info("player joined")

	lob.announceJoin(conn)
	return lob, nil
}

// LobbyFor routes a connection to its lobby. Connections outside any
// lobby get the 403 the original contract prescribes.
func (r *Registry) LobbyFor(connID uuid.UUID) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.conns[connID]
	if !ok {
		return nil, Forbiddenf("Not in a lobby")
	}
	return r.lobbies[code], nil
}

// EndGame handles a host's GAME_END: broadcasts the end event and tears
// down the lobby together with every member's routing entry.
func (r *Registry) EndGame(connID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.conns[connID]
	if !ok {
		return Forbiddenf("Not in a lobby")
	}
	lob := r.lobbies[code]
	if err := lob.end(connID, "Host ended the game"); err != nil {
		return err
	}
	for _, id := range lob.connIDs() {
		delete(r.conns, id)
	}
	delete(r.lobbies, code)
	log.WithField("lobby", code).Info("lobby ended by host")
	return nil
}

// RemoveConnection is the idempotent disconnect path. It detaches the
// connection from its lobby and deletes the lobby once the last member
// is gone. The host reference is intentionally never reassigned.
func (r *Registry) RemoveConnection(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	lob, ok := r.lobbies[code]
	if !ok {
		return
	}
	if empty := lob.removeConnection(connID); empty {
		delete(r.lobbies, code)
		log.WithField("lobby", code).Info("lobby deleted, last player left")
	}
}

// LobbyCount reports the number of live lobbies.
func (r *Registry) LobbyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lobbies)
}

// generateCode draws 6-character codes until one is unused. Collisions
// are vanishingly rare but checked, not assumed. Assumes the lock is held.
func (r *Registry) generateCode() string {
	for {
		var b strings.Builder
		for i := 0; i < CodeLength; i++ {
			b.WriteByte(codeAlphabet[r.randInt(len(codeAlphabet))])
		}
		code := b.String()
		if _, taken := r.lobbies[code]; !taken {
			return code
		}
	}
}
