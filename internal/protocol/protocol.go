// internal/protocol/protocol.go
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/monopoly-online/session-service/internal/catalog"
)

// Type tags every message crossing the wire, in both directions.
type Type string

// Requests clients may send. The dispatcher switches exhaustively over
// these; anything else is answered with a 400 ERROR.
const (
	TypeGameCreate     Type = "GAME_CREATE"
	TypeRequestJoin    Type = "REQUEST_JOIN"
	TypeGameStart      Type = "GAME_START"
	TypeFinishTurn     Type = "FINISH_TURN"
	TypeRequestRoll    Type = "REQUEST_ROLL"
	TypeChoiceResponse Type = "CHOICE_RESPONSE"
	TypeRequestUpgrade Type = "REQUEST_UPGRADE"
	TypeGameEnd        Type = "GAME_END"
)

// Events the server emits.
const (
	TypeNewGame          Type = "NEW_GAME"
	TypeNewPlayer        Type = "NEW_PLAYER"
	TypeJoinGame         Type = "JOIN_GAME"
	TypeNextTurn         Type = "NEXT_TURN"
	TypePlayerData       Type = "PLAYER_DATA"
	TypeSetPosition      Type = "SET_POSITION"
	TypeChoice           Type = "CHOICE"
	TypeTransaction      Type = "TRANSACTION"
	TypeTileMessage      Type = "TILE_MESSAGE"
	TypePropertyTransfer Type = "PROPERTY_TRANSFER"
	TypePropertyUpgrade  Type = "PROPERTY_UPGRADE"
	TypeError            Type = "ERROR"
	// TypeGameStart and TypeGameEnd double as events; the names match in
	// both directions on the wire.
)

// Request is an inbound message. Data is decoded per-type by the dispatcher.
type Request struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Envelope is an outbound message.
type Envelope struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Per-request payloads.

// CreatePayload carries GAME_CREATE fields.
type CreatePayload struct {
	Username string `json:"username"`
}

// JoinPayload carries REQUEST_JOIN fields.
type JoinPayload struct {
	Username string `json:"username"`
	Lobby    string `json:"lobby"`
}

// ChoicePayload carries CHOICE_RESPONSE fields.
type ChoicePayload struct {
	Label string `json:"label"`
}

// UpgradePayload carries REQUEST_UPGRADE fields. ID is a pointer so a
// missing id can be told apart from tile 0.
type UpgradePayload struct {
	Property struct {
		ID *int `json:"id"`
	} `json:"property"`
}

// Shared payload fragments.

// PlayerSummary identifies a player to other clients.
type PlayerSummary struct {
	Username string `json:"username"`
	Pawn     string `json:"pawn"`
}

// PropertyDetail describes one owned tile at its current level.
type PropertyDetail struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Level int    `json:"level"`
}

// ChoiceOption is one selectable entry in a CHOICE prompt.
type ChoiceOption struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Event constructors. Field names follow the wire contract exactly,
// including the kebab-case keys and the upper-case OPTIONS of CHOICE.

func NewGameEvent(code string, board []catalog.Tile, pawns []catalog.Pawn) Envelope {
	return Envelope{Type: TypeNewGame, Data: map[string]any{
		"lobby-code": code,
		"board":      board,
		"pawns":      pawns,
	}}
}

func NewPlayerEvent(p PlayerSummary) Envelope {
	return Envelope{Type: TypeNewPlayer, Data: map[string]any{"player": p}}
}

func JoinGameEvent(board []catalog.Tile, pawns []catalog.Pawn, players []PlayerSummary) Envelope {
	return Envelope{Type: TypeJoinGame, Data: map[string]any{
		"board":   board,
		"pawns":   pawns,
		"players": players,
	}}
}

func GameStartEvent() Envelope {
	return Envelope{Type: TypeGameStart, Data: map[string]any{}}
}

func NextTurnEvent(username string) Envelope {
	return Envelope{Type: TypeNextTurn, Data: map[string]any{"player": username}}
}

func PlayerDataEvent(username string, balance int, owned []PropertyDetail) Envelope {
	return Envelope{Type: TypePlayerData, Data: map[string]any{
		"username":         username,
		"balance":          balance,
		"owned-properties": owned,
	}}
}

func SetPositionEvent(username string, position int) Envelope {
	return Envelope{Type: TypeSetPosition, Data: map[string]any{
		"player":   username,
		"position": position,
	}}
}

func ChoiceEvent(options ...ChoiceOption) Envelope {
	return Envelope{Type: TypeChoice, Data: map[string]any{"OPTIONS": options}}
}

// TransactionEvent reports a balance change to the affected player.
// balanceSync is the authoritative balance after the change.
func TransactionEvent(change, balanceSync int) Envelope {
	return Envelope{Type: TypeTransaction, Data: map[string]any{
		"balance-change": change,
		"balance-sync":   balanceSync,
	}}
}

func TileMessageEvent(title, message string) Envelope {
	return Envelope{Type: TypeTileMessage, Data: map[string]any{
		"title":   title,
		"message": message,
	}}
}

func PropertyTransferEvent(p PropertyDetail) Envelope {
	return Envelope{Type: TypePropertyTransfer, Data: map[string]any{"property": p}}
}

func PropertyUpgradeEvent(id, level int) Envelope {
	return Envelope{Type: TypePropertyUpgrade, Data: map[string]any{
		"property": map[string]any{"id": id, "level": level},
	}}
}

func GameEndEvent(reason string) Envelope {
	return Envelope{Type: TypeGameEnd, Data: map[string]any{"reason": reason}}
}

func ErrorEvent(code int, message string) Envelope {
	return Envelope{Type: TypeError, Data: map[string]any{
		"code":    code,
		"message": message,
	}}
}

// UnknownTypeError builds the reply for a request type outside the closed set.
func UnknownTypeError(t Type) Envelope {
	return ErrorEvent(400, fmt.Sprintf("Unknown message type: %s", t))
}
