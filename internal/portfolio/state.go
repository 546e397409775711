package portfolio

import (
	"context"
	"slices"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// State is an immutable snapshot of the portfolio. Mutations build a new
// State; a State handed out is never modified afterwards.
type State struct {
	Holdings []models.PortfolioHolding `json:"holdings"`
	LastSync *time.Time                `json:"lastSync,omitempty"`
}

// Store persists the portfolio document
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// clone returns a deep enough copy that callers cannot reach the original
func (s State) clone() State {
	out := State{Holdings: slices.Clone(s.Holdings)}
	if out.Holdings == nil {
		out.Holdings = []models.PortfolioHolding{}
	}
	if s.LastSync != nil {
		t := *s.LastSync
		out.LastSync = &t
	}
	return out
}

func (s State) indexOf(id string) int {
	return slices.IndexFunc(s.Holdings, func(h models.PortfolioHolding) bool {
		return h.ID == id
	})
}

// withHolding returns a copy with h replacing the holding of the same id,
// or appended when the id is new
func (s State) withHolding(h models.PortfolioHolding) State {
	next := s.clone()
	if i := next.indexOf(h.ID); i >= 0 {
		next.Holdings[i] = h
		return next
	}
	next.Holdings = append(next.Holdings, h)
	return next
}

// withoutHolding returns a copy without the holding id and whether it existed
func (s State) withoutHolding(id string) (State, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return s, false
	}
	next := s.clone()
	next.Holdings = slices.Delete(next.Holdings, i, i+1)
	return next, true
}

// withLastSync advances LastSync to t. An older or equal t leaves the state
// untouched and reports false.
func (s State) withLastSync(t time.Time) (State, bool) {
	if s.LastSync != nil && !t.After(*s.LastSync) {
		return s, false
	}
	next := s.clone()
	t = t.UTC()
	next.LastSync = &t
	return next, true
}
