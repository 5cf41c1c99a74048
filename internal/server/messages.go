package server

import (
	"encoding/json"

	"github.com/opentabletop/tabletop-server-go/internal/game/autotap"
	"github.com/opentabletop/tabletop-server-go/internal/game/board"
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// Envelope frames every gateway message in both directions. Data carries the
// type-specific payload.
type Envelope struct {
	Type string `json:"type"`
	// ID is an optional client correlation id, echoed back on the response.
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client message types.
const (
	MsgAuth       = "auth"
	MsgEvaluate   = "evaluate"
	MsgAutoTap    = "autotap"
	MsgUndo       = "undo"
	MsgRuleSave   = "rule.save"
	MsgRuleDelete = "rule.delete"
	MsgRulesLoad  = "rules.load"
)

// Server message types.
const (
	MsgAuthOK     = "auth.ok"
	MsgEvaluation = "evaluation"
	MsgTapResult  = "tap.result"
	MsgUndoResult = "undo.result"
	MsgRules      = "rules"
	MsgAck        = "ok"
	MsgError      = "error"
)

// AuthRequest authenticates the connection and binds it to a player.
type AuthRequest struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
}

// AuthResponse acknowledges authentication.
type AuthResponse struct {
	SessionID string `json:"sessionId"`
}

// EvaluateRequest asks for the mana picture of a board.
type EvaluateRequest struct {
	Permanents []*board.Permanent `json:"permanents"`
	Commander  []mana.ManaType    `json:"commander,omitempty"`
}

// AutoTapRequest asks the solver to pay a cost and apply the taps.
type AutoTapRequest struct {
	Permanents []*board.Permanent `json:"permanents"`
	Commander  []mana.ManaType    `json:"commander,omitempty"`
	Cost       string             `json:"cost"`
	X          int                `json:"x,omitempty"`
	Floating   mana.Pool          `json:"floating,omitempty"`
}

// AutoTapResponse carries the solver result plus the resulting per-object
// tapped counts so the client can sync its board.
type AutoTapResponse struct {
	Result       *autotap.TapResult `json:"result"`
	TappedCounts map[string]int     `json:"tappedCounts,omitempty"`
}

// UndoRequest reverts the most recent auto-tap on this session.
type UndoRequest struct {
	Permanents []*board.Permanent `json:"permanents"`
}

// UndoResponse reports the reverted state.
type UndoResponse struct {
	Reverted     bool           `json:"reverted"`
	TappedCounts map[string]int `json:"tappedCounts,omitempty"`
	Floating     mana.Pool      `json:"floating,omitempty"`
}

// RuleSaveRequest stores a custom production rule for one card identity.
type RuleSaveRequest struct {
	Identity string                `json:"identity"`
	Rule     *rules.ProductionRule `json:"rule"`
}

// RuleDeleteRequest removes a stored rule.
type RuleDeleteRequest struct {
	Identity string `json:"identity"`
}

// RulesResponse returns the player's stored rules.
type RulesResponse struct {
	Rules rules.Registry `json:"rules"`
}

// ErrorResponse reports a request failure.
type ErrorResponse struct {
	Message string `json:"message"`
}
