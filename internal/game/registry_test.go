// internal/game/registry_test.go
package game

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monopoly-online/session-service/internal/catalog"
	"github.com/monopoly-online/session-service/internal/protocol"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewRegistry(cat)
}

func TestCreateLobby(t *testing.T) {
	r := newTestRegistry(t)
	conn := newTestConn()

	lob, err := r.CreateLobby(conn, "ala")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), lob.Code)
	assert.Equal(t, conn.ID, lob.Host)
	assert.Equal(t, 1, r.LobbyCount())

	p := lob.Player(conn.ID)
	require.NotNil(t, p)
	assert.Equal(t, "ala", p.Username)
	assert.Equal(t, StartingBalance, p.Balance)
	assert.Equal(t, 0, p.Position)
	// First joiner gets the catalog's first pawn.
	assert.Equal(t, "Krasnal", p.Pawn)

	events := drain(conn)
	require.Equal(t, []protocol.Type{protocol.TypeNewGame, protocol.TypeNewPlayer}, typesOf(events))
	assert.Equal(t, lob.Code, dataOf(events[0])["lobby-code"])
}

func TestCreateLobbyRequiresUsername(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.CreateLobby(newTestConn(), "")
	require.Error(t, err)
	assert.Equal(t, 400, err.(*Error).Code)
	assert.Equal(t, "Username is required", err.(*Error).Message)
	assert.Equal(t, 0, r.LobbyCount())
}

func TestJoinLobby(t *testing.T) {
	r := newTestRegistry(t)
	host := newTestConn()
	lob, err := r.CreateLobby(host, "ala")
	require.NoError(t, err)
	drain(host)

	joiner := newTestConn()
	joined, err := r.JoinLobby(joiner, "ola", lob.Code)
	require.NoError(t, err)
	assert.Same(t, lob, joined)

	// Joiner's pawn differs from the host's.
	assert.NotEqual(t, lob.Player(host.ID).Pawn, lob.Player(joiner.ID).Pawn)

	joinerEvents := drain(joiner)
	require.Equal(t, []protocol.Type{protocol.TypeJoinGame}, typesOf(joinerEvents))
	players := dataOf(joinerEvents[0])["players"].([]protocol.PlayerSummary)
	require.Len(t, players, 2)
	assert.Equal(t, "ala", players[0].Username)
	assert.Equal(t, "ola", players[1].Username)

	hostEvents := drain(host)
	require.Equal(t, []protocol.Type{protocol.TypeNewPlayer}, typesOf(hostEvents))
}

func TestJoinLobbyErrors(t *testing.T) {
	r := newTestRegistry(t)
	host := newTestConn()
	lob, err := r.CreateLobby(host, "ala")
	require.NoError(t, err)

	_, err = r.JoinLobby(newTestConn(), "", lob.Code)
	assert.Equal(t, "Username is required", err.(*Error).Message)

	_, err = r.JoinLobby(newTestConn(), "ola", "")
	assert.Equal(t, "Lobby code is required", err.(*Error).Message)

	_, err = r.JoinLobby(newTestConn(), "ola", "ZZZZZZ")
	assert.Equal(t, 404, err.(*Error).Code)
	assert.Equal(t, "Lobby not found", err.(*Error).Message)

	_, err = r.JoinLobby(newTestConn(), "ala", lob.Code)
	assert.Equal(t, 409, err.(*Error).Code)
	assert.Equal(t, "Username already taken", err.(*Error).Message)

	second := newTestConn()
	_, err = r.JoinLobby(second, "ola", lob.Code)
	require.NoError(t, err)
	require.NoError(t, lob.Start(host.ID))
	_, err = r.JoinLobby(newTestConn(), "ewa", lob.Code)
	assert.Equal(t, 403, err.(*Error).Code)
	assert.Equal(t, "Game already started", err.(*Error).Message)
}

func TestJoinLobbyFullWhenPawnsRunOut(t *testing.T) {
	r := newTestRegistry(t)
	host := newTestConn()
	lob, err := r.CreateLobby(host, "player1")
	require.NoError(t, err)

	pawnCount := len(lob.cat.Pawns)
	for i := 1; i < pawnCount; i++ {
		_, err := r.JoinLobby(newTestConn(), "player"+string(rune('1'+i)), lob.Code)
		require.NoError(t, err)
	}
	_, err = r.JoinLobby(newTestConn(), "late", lob.Code)
	require.Error(t, err)
	assert.Equal(t, 403, err.(*Error).Code)
	assert.Equal(t, "Lobby is full", err.(*Error).Message)
}

func TestPawnsAreUniqueWithinLobby(t *testing.T) {
	_, lob, conns := setupLobby(t, 4)

	catalogPawns := make(map[string]bool)
	for _, pawn := range lob.cat.Pawns {
		catalogPawns[pawn.Name] = true
	}
	seen := make(map[string]bool)
	for _, c := range conns {
		pawn := lob.Player(c.ID).Pawn
		assert.True(t, catalogPawns[pawn], "pawn %q not in catalog", pawn)
		assert.False(t, seen[pawn], "pawn %q assigned twice", pawn)
		seen[pawn] = true
	}
}

func TestOneLobbyPerConnection(t *testing.T) {
	r := newTestRegistry(t)
	conn := newTestConn()
	lob, err := r.CreateLobby(conn, "ala")
	require.NoError(t, err)

	_, err = r.CreateLobby(conn, "ala")
	require.Error(t, err)
	assert.Equal(t, "Already in a lobby", err.(*Error).Message)

	_, err = r.JoinLobby(conn, "ola", lob.Code)
	require.Error(t, err)
	assert.Equal(t, "Already in a lobby", err.(*Error).Message)
}

func TestLobbyCodeCollisionIsResampled(t *testing.T) {
	r := newTestRegistry(t)

	// Force the generator to repeat the first lobby's code once before
	// producing a fresh one.
	draws := 0
	r.randInt = func(n int) int {
		draws++
		if draws <= 2*CodeLength {
			return 0
		}
		return 1
	}

	first, err := r.CreateLobby(newTestConn(), "ala")
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.Code)

	second, err := r.CreateLobby(newTestConn(), "ola")
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestLobbyCodeIsCaseInsensitiveOnJoin(t *testing.T) {
	r := newTestRegistry(t)
	host := newTestConn()
	lob, err := r.CreateLobby(host, "ala")
	require.NoError(t, err)

	_, err = r.JoinLobby(newTestConn(), "ola", strings.ToLower(lob.Code))
	require.NoError(t, err)
}

func TestRemoveConnectionCleansUp(t *testing.T) {
	r, lob, conns := setupLobby(t, 2)

	r.RemoveConnection(conns[1].ID)
	assert.Equal(t, 1, lob.PlayerCount())
	assert.Equal(t, 1, r.LobbyCount())

	// Last player leaving destroys the lobby.
	r.RemoveConnection(conns[0].ID)
	assert.Equal(t, 0, r.LobbyCount())

	// Idempotent for connections that already left or never joined.
	r.RemoveConnection(conns[0].ID)
	r.RemoveConnection(uuid.New())
	assert.Equal(t, 0, r.LobbyCount())
}

func TestEndGame(t *testing.T) {
	r, lob, conns := setupStartedLobby(t, 2)

	// Only the host may end the game.
	err := r.EndGame(conns[1].ID)
	require.Error(t, err)
	assert.Equal(t, "Only host can end the game", err.(*Error).Message)

	require.NoError(t, r.EndGame(conns[0].ID))
	assert.Equal(t, 0, r.LobbyCount())
	assert.Equal(t, PhaseEnded, lob.State())

	for _, c := range conns {
		events := drain(c)
		require.Equal(t, []protocol.Type{protocol.TypeGameEnd}, typesOf(events))
		assert.Equal(t, "Host ended the game", dataOf(events[0])["reason"])
	}

	// Members are detached; further requests are outside any lobby.
	_, err = r.LobbyFor(conns[0].ID)
	require.Error(t, err)
	assert.Equal(t, "Not in a lobby", err.(*Error).Message)
}

func TestLobbyForUnknownConnection(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.LobbyFor(uuid.New())
	require.Error(t, err)
	assert.Equal(t, 403, err.(*Error).Code)
	assert.Equal(t, "Not in a lobby", err.(*Error).Message)
}
