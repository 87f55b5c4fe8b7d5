package store

import (
	"context"
	"fmt"
	"sync"

	"blackjack-table/server/engine"
)

// Memory keeps rounds in process. Rounds are copied in and out so callers
// never share state with the store.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	rounds map[int64]*engine.Round
}

func NewMemory() *Memory {
	return &Memory{rounds: make(map[int64]*engine.Round)}
}

func (m *Memory) Create(ctx context.Context, r *engine.Round) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rounds[m.nextID] = r.Clone()
	return m.nextID, nil
}

func (m *Memory) Get(ctx context.Context, id int64) (*engine.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return r.Clone(), nil
}

func (m *Memory) Modify(ctx context.Context, id int64, fn ModifyFunc) (*engine.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rounds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	r := stored.Clone()
	if err := fn(r); err != nil {
		return nil, err
	}
	m.rounds[id] = r.Clone()
	return r, nil
}

// LastFinishedBankroll uses insertion order as creation order.
func (m *Memory) LastFinishedBankroll(ctx context.Context) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var last int64
	for id, r := range m.rounds {
		if r.Phase == engine.Finished && id > last {
			last = id
		}
	}
	if last == 0 {
		return 0, false, nil
	}
	return m.rounds[last].Bankroll, true, nil
}

func (m *Memory) Summary(ctx context.Context) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSummary()
	for _, r := range m.rounds {
		if r.Phase != engine.Finished {
			continue
		}
		s.Rounds++
		s.Outcomes[r.Outcome]++
		s.Wagered += r.Wager
		s.Returned += engine.Payout(r.Outcome, r.Wager)
	}
	return s, nil
}
