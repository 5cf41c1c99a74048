package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// RulesStore persists custom production rules as JSONB, keyed by player and
// card identity (oracle id, or name for cards without one).
type RulesStore struct {
	db     *DB
	logger *zap.Logger
}

// NewRulesStore creates a store backed by db.
func NewRulesStore(db *DB, logger *zap.Logger) *RulesStore {
	return &RulesStore{db: db, logger: logger}
}

const rulesSchema = `
CREATE TABLE IF NOT EXISTS production_rules (
    player_id     TEXT        NOT NULL,
    card_identity TEXT        NOT NULL,
    rule          JSONB       NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (player_id, card_identity)
)`

// EnsureSchema creates the rules table if it does not exist.
func (s *RulesStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, rulesSchema); err != nil {
		return fmt.Errorf("creating production_rules table: %w", err)
	}
	return nil
}

// LoadRegistry returns all rules stored for a player.
func (s *RulesStore) LoadRegistry(ctx context.Context, playerID string) (rules.Registry, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT card_identity, rule FROM production_rules WHERE player_id = $1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("querying rules for %s: %w", playerID, err)
	}
	defer rows.Close()

	reg := rules.Registry{}
	for rows.Next() {
		var identity string
		var raw []byte
		if err := rows.Scan(&identity, &raw); err != nil {
			return nil, fmt.Errorf("scanning rule row: %w", err)
		}
		var rule rules.ProductionRule
		if err := json.Unmarshal(raw, &rule); err != nil {
			// A malformed row should not take the whole registry down.
			s.logger.Warn("skipping malformed rule",
				zap.String("player", playerID),
				zap.String("identity", identity),
				zap.Error(err))
			continue
		}
		reg[identity] = &rule
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rule rows: %w", err)
	}
	return reg, nil
}

// SaveRule inserts or replaces a rule for one card identity.
func (s *RulesStore) SaveRule(ctx context.Context, playerID, identity string, rule *rules.ProductionRule) error {
	raw, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("marshaling rule: %w", err)
	}
	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO production_rules (player_id, card_identity, rule, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (player_id, card_identity)
		DO UPDATE SET rule = EXCLUDED.rule, updated_at = now()`,
		playerID, identity, raw)
	if err != nil {
		return fmt.Errorf("saving rule for %s/%s: %w", playerID, identity, err)
	}
	return nil
}

// DeleteRule removes a stored rule. Deleting a missing rule is not an error.
func (s *RulesStore) DeleteRule(ctx context.Context, playerID, identity string) error {
	_, err := s.db.Pool.Exec(ctx,
		`DELETE FROM production_rules WHERE player_id = $1 AND card_identity = $2`,
		playerID, identity)
	if err != nil {
		return fmt.Errorf("deleting rule for %s/%s: %w", playerID, identity, err)
	}
	return nil
}
