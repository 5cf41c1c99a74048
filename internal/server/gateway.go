// Package server exposes the mana engine over a websocket gateway. Clients
// send JSON envelopes; the gateway evaluates boards, solves auto-tap
// requests, tracks per-session undo history, and manages stored production
// rules through a RulesProvider.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/opentabletop/tabletop-server-go/internal/config"
	"github.com/opentabletop/tabletop-server-go/internal/game/autotap"
	"github.com/opentabletop/tabletop-server-go/internal/game/board"
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// RulesProvider supplies and persists custom production rules per player.
type RulesProvider interface {
	LoadRegistry(ctx context.Context, playerID string) (rules.Registry, error)
	SaveRule(ctx context.Context, playerID, identity string, rule *rules.ProductionRule) error
	DeleteRule(ctx context.Context, playerID, identity string) error
}

// Gateway serves websocket sessions over the mana engine.
type Gateway struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *autotap.Engine
	rules  RulesProvider

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one authenticated websocket connection.
type session struct {
	id       string
	playerID string
	authed   bool
	limiter  *rate.Limiter
	undo     []*autotap.UndoRecord
}

// NewGateway creates a gateway backed by the given rules provider.
func NewGateway(cfg *config.Config, rules RulesProvider, logger *zap.Logger) *Gateway {
	return &Gateway{
		cfg:    cfg,
		logger: logger,
		engine: autotap.NewEngine(logger),
		rules:  rules,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The tabletop client connects from a file:// webview.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    g.cfg.Server.WebSocket.Address,
		Handler: g.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("websocket gateway listening",
			zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	if len(g.sessions) >= g.cfg.Server.MaxSessions {
		g.mu.Unlock()
		http.Error(w, "session limit reached", http.StatusServiceUnavailable)
		return
	}
	g.mu.Unlock()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	wsCfg := g.cfg.Server.WebSocket
	sess := &session{
		id:      uuid.NewString(),
		limiter: rate.NewLimiter(rate.Limit(wsCfg.RateLimit), wsCfg.RateBurst),
		// No auth token configured means the connection starts authenticated.
		authed: g.cfg.Auth.TokenHash == "",
	}

	g.mu.Lock()
	g.sessions[sess.id] = sess
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.sessions, sess.id)
		g.mu.Unlock()
	}()

	g.logger.Info("session opened",
		zap.String("session", sess.id),
		zap.String("remote", r.RemoteAddr))

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Warn("session read error",
					zap.String("session", sess.id), zap.Error(err))
			}
			return
		}

		if !sess.limiter.Allow() {
			g.send(conn, env.ID, MsgError, ErrorResponse{Message: "rate limit exceeded"})
			continue
		}

		g.dispatch(r.Context(), conn, sess, &env)
	}
}

func (g *Gateway) dispatch(ctx context.Context, conn *websocket.Conn, sess *session, env *Envelope) {
	if env.Type == MsgAuth {
		g.handleAuth(conn, sess, env)
		return
	}
	if !sess.authed {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "authentication required"})
		return
	}

	switch env.Type {
	case MsgEvaluate:
		g.handleEvaluate(ctx, conn, sess, env)
	case MsgAutoTap:
		g.handleAutoTap(ctx, conn, sess, env)
	case MsgUndo:
		g.handleUndo(conn, sess, env)
	case MsgRuleSave:
		g.handleRuleSave(ctx, conn, sess, env)
	case MsgRuleDelete:
		g.handleRuleDelete(ctx, conn, sess, env)
	case MsgRulesLoad:
		g.handleRulesLoad(ctx, conn, sess, env)
	default:
		g.send(conn, env.ID, MsgError,
			ErrorResponse{Message: fmt.Sprintf("unknown message type %q", env.Type)})
	}
}

func (g *Gateway) handleAuth(conn *websocket.Conn, sess *session, env *Envelope) {
	var req AuthRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "malformed auth payload"})
		return
	}
	if req.PlayerID == "" {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "playerId is required"})
		return
	}

	if hash := g.cfg.Auth.TokenHash; hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Token)); err != nil {
			g.logger.Warn("authentication failed", zap.String("session", sess.id))
			g.send(conn, env.ID, MsgError, ErrorResponse{Message: "invalid token"})
			return
		}
	}

	sess.authed = true
	sess.playerID = req.PlayerID
	g.logger.Info("session authenticated",
		zap.String("session", sess.id),
		zap.String("player", req.PlayerID))
	g.send(conn, env.ID, MsgAuthOK, AuthResponse{SessionID: sess.id})
}

func (g *Gateway) handleEvaluate(ctx context.Context, conn *websocket.Conn, sess *session, env *Envelope) {
	var req EvaluateRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "malformed evaluate payload"})
		return
	}

	reg, err := g.rules.LoadRegistry(ctx, g.ruleOwner(sess))
	if err != nil {
		g.logger.Error("loading rules failed",
			zap.String("player", sess.playerID), zap.Error(err))
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "loading rules failed"})
		return
	}

	eval := g.engine.Evaluate(req.Permanents, reg, req.Commander, sess.playerID)
	g.send(conn, env.ID, MsgEvaluation, eval)
}

func (g *Gateway) handleAutoTap(ctx context.Context, conn *websocket.Conn, sess *session, env *Envelope) {
	var req AutoTapRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "malformed autotap payload"})
		return
	}

	reg, err := g.rules.LoadRegistry(ctx, g.ruleOwner(sess))
	if err != nil {
		g.logger.Error("loading rules failed",
			zap.String("player", sess.playerID), zap.Error(err))
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "loading rules failed"})
		return
	}

	eval := g.engine.Evaluate(req.Permanents, reg, req.Commander, sess.playerID)
	result := g.engine.SolveTap(autotap.TapRequest{
		Cost:            mana.ParseCost(req.Cost),
		Sources:         eval.Sources,
		Floating:        req.Floating,
		X:               req.X,
		CommanderColors: req.Commander,
	})

	resp := AutoTapResponse{Result: result}
	if result.Success {
		record := autotap.ApplyTaps(req.Permanents, result, req.Floating)
		sess.pushUndo(record, g.cfg.Server.UndoHistory)
		resp.TappedCounts = tappedCounts(req.Permanents)
	}
	g.send(conn, env.ID, MsgTapResult, resp)
}

func (g *Gateway) handleUndo(conn *websocket.Conn, sess *session, env *Envelope) {
	var req UndoRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "malformed undo payload"})
		return
	}

	record := sess.popUndo()
	if record == nil {
		g.send(conn, env.ID, MsgUndoResult, UndoResponse{Reverted: false})
		return
	}

	floating := record.Revert(req.Permanents)
	g.send(conn, env.ID, MsgUndoResult, UndoResponse{
		Reverted:     true,
		TappedCounts: tappedCounts(req.Permanents),
		Floating:     floating,
	})
}

func (g *Gateway) handleRuleSave(ctx context.Context, conn *websocket.Conn, sess *session, env *Envelope) {
	var req RuleSaveRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.Identity == "" || req.Rule == nil {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "malformed rule payload"})
		return
	}

	if err := g.rules.SaveRule(ctx, g.ruleOwner(sess), req.Identity, req.Rule); err != nil {
		g.logger.Error("saving rule failed",
			zap.String("player", sess.playerID),
			zap.String("identity", req.Identity),
			zap.Error(err))
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "saving rule failed"})
		return
	}
	g.send(conn, env.ID, MsgAck, nil)
}

func (g *Gateway) handleRuleDelete(ctx context.Context, conn *websocket.Conn, sess *session, env *Envelope) {
	var req RuleDeleteRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.Identity == "" {
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "malformed rule payload"})
		return
	}

	if err := g.rules.DeleteRule(ctx, g.ruleOwner(sess), req.Identity); err != nil {
		g.logger.Error("deleting rule failed",
			zap.String("player", sess.playerID),
			zap.String("identity", req.Identity),
			zap.Error(err))
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "deleting rule failed"})
		return
	}
	g.send(conn, env.ID, MsgAck, nil)
}

func (g *Gateway) handleRulesLoad(ctx context.Context, conn *websocket.Conn, sess *session, env *Envelope) {
	reg, err := g.rules.LoadRegistry(ctx, g.ruleOwner(sess))
	if err != nil {
		g.logger.Error("loading rules failed",
			zap.String("player", sess.playerID), zap.Error(err))
		g.send(conn, env.ID, MsgError, ErrorResponse{Message: "loading rules failed"})
		return
	}
	g.send(conn, env.ID, MsgRules, RulesResponse{Rules: reg})
}

// ruleOwner keys stored rules by player.
func (g *Gateway) ruleOwner(sess *session) string {
	return sess.playerID
}

func (g *Gateway) send(conn *websocket.Conn, id, msgType string, payload any) {
	env := Envelope{Type: msgType, ID: id}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			g.logger.Error("marshaling response failed",
				zap.String("type", msgType), zap.Error(err))
			return
		}
		env.Data = raw
	}

	if timeout := g.cfg.Server.WebSocket.WriteTimeout; timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if err := conn.WriteJSON(env); err != nil {
		g.logger.Warn("write failed", zap.String("type", msgType), zap.Error(err))
	}
}

func (s *session) pushUndo(record *autotap.UndoRecord, limit int) {
	s.undo = append(s.undo, record)
	if limit > 0 && len(s.undo) > limit {
		s.undo = s.undo[len(s.undo)-limit:]
	}
}

func (s *session) popUndo() *autotap.UndoRecord {
	if len(s.undo) == 0 {
		return nil
	}
	record := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	return record
}

func tappedCounts(perms []*board.Permanent) map[string]int {
	counts := make(map[string]int, len(perms))
	for _, perm := range perms {
		counts[perm.ID] = perm.Tapped
	}
	return counts
}
