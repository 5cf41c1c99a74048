package autotap

import (
	"github.com/opentabletop/tabletop-server-go/internal/game/board"
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
)

// UndoRecord captures everything needed to revert one cast exactly: the ids
// tapped, each object's tapped count before the cast, and the floating pool
// the cast started from. The engine produces records; the caller persists
// them across its undo history.
type UndoRecord struct {
	Tapped        []string       `json:"tapped"`
	PriorTapped   map[string]int `json:"priorTapped"`
	PriorFloating mana.Pool      `json:"priorFloating"`
}

// ApplyTaps marks the solver's tapped units on the board (one tap increment
// per id occurrence) and returns the record that reverts them. Permanents
// missing from the board are skipped.
func ApplyTaps(perms []*board.Permanent, result *TapResult, priorFloating mana.Pool) *UndoRecord {
	record := &UndoRecord{
		Tapped:        append([]string(nil), result.Tapped...),
		PriorTapped:   make(map[string]int),
		PriorFloating: priorFloating.Copy(),
	}

	byID := make(map[string]*board.Permanent, len(perms))
	for _, perm := range perms {
		byID[perm.ID] = perm
	}

	for _, id := range result.Tapped {
		perm, ok := byID[id]
		if !ok {
			continue
		}
		if _, seen := record.PriorTapped[id]; !seen {
			record.PriorTapped[id] = perm.Tapped
		}
		if perm.Tapped < perm.Count() {
			perm.Tapped++
		}
	}

	return record
}

// Revert restores the recorded tap counts and returns the floating pool to
// reinstate.
func (u *UndoRecord) Revert(perms []*board.Permanent) mana.Pool {
	byID := make(map[string]*board.Permanent, len(perms))
	for _, perm := range perms {
		byID[perm.ID] = perm
	}
	for id, prior := range u.PriorTapped {
		if perm, ok := byID[id]; ok {
			perm.Tapped = prior
		}
	}
	return u.PriorFloating.Copy()
}
