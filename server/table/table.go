// Package table runs blackjack rounds on top of a round repository: it picks
// the opening balance, serializes actions on a round and persists the result.
package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"blackjack-table/server/engine"
	"blackjack-table/server/judge"
	"blackjack-table/server/store"
)

// DefaultBankroll opens a fresh game and replaces a carried-over balance <= 0.
const DefaultBankroll = 1000

// Repository is the persistence the table needs. store.DB, store.SQLite and
// store.Memory implement it.
type Repository interface {
	Create(ctx context.Context, r *engine.Round) (int64, error)
	Get(ctx context.Context, id int64) (*engine.Round, error)
	Modify(ctx context.Context, id int64, fn store.ModifyFunc) (*engine.Round, error)
	LastFinishedBankroll(ctx context.Context) (int, bool, error)
	Summary(ctx context.Context) (store.Summary, error)
}

// WagerError is returned by Start when the bet is rejected. Balance is what
// the betting screen should show again.
type WagerError struct {
	Balance int
	Err     error
}

func (e *WagerError) Error() string { return e.Err.Error() }
func (e *WagerError) Unwrap() error { return e.Err }

// Round is a stored round with its id.
type Round struct {
	ID int64
	*engine.Round
}

type Wallet struct {
	Balance int           `json:"balance"`
	Summary store.Summary `json:"summary"`
	Net     int           `json:"net"`
}

type Options struct {
	Seed       uint64 // base of the per-round shuffle seed stream
	OddsTrials int
	Logger     *slog.Logger
}

type Service struct {
	repo   Repository
	log    *slog.Logger
	trials int

	seedMu sync.Mutex
	seeds  seedStream

	locks keyedMutex
}

func New(repo Repository, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	trials := opts.OddsTrials
	if trials <= 0 {
		trials = judge.DefaultTrials
	}
	return &Service{
		repo:   repo,
		log:    log,
		trials: trials,
		seeds:  newSeedStream(opts.Seed),
		locks:  keyedMutex{m: make(map[int64]*lockEntry)},
	}
}

func (s *Service) nextSeed() int64 {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	return int64(s.seeds.next())
}

// OpeningBalance is DefaultBankroll for a fresh game, otherwise the ending
// bankroll of the newest finished round. No upper bound is applied.
func (s *Service) OpeningBalance(ctx context.Context, fresh bool) (int, error) {
	if fresh {
		return DefaultBankroll, nil
	}
	bankroll, ok, err := s.repo.LastFinishedBankroll(ctx)
	if err != nil {
		return 0, fmt.Errorf("last finished round: %w", err)
	}
	if !ok || bankroll <= 0 {
		return DefaultBankroll, nil
	}
	return bankroll, nil
}

// Start opens a round, places the bet and deals. Nothing is stored when the
// bet is rejected.
func (s *Service) Start(ctx context.Context, bet int, fresh bool) (Round, error) {
	balance, err := s.OpeningBalance(ctx, fresh)
	if err != nil {
		return Round{}, err
	}
	r, err := engine.NewRound(balance)
	if err != nil {
		return Round{}, err
	}
	if err := r.PlaceWager(bet); err != nil {
		return Round{}, &WagerError{Balance: balance, Err: err}
	}
	seed := s.nextSeed()
	if err := r.DealInitialCards(rand.New(rand.NewSource(seed))); err != nil {
		return Round{}, err
	}
	id, err := s.repo.Create(ctx, r)
	if err != nil {
		return Round{}, fmt.Errorf("create round: %w", err)
	}
	s.log.Info("round dealt", "round", id, "bankroll", r.Bankroll, "wager", r.Wager, "seed", seed,
		"player", r.PlayerScore(), "upcard", r.DealerVisibleScore())
	return Round{ID: id, Round: r}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Round, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Round{}, err
	}
	return Round{ID: id, Round: r}, nil
}

func (s *Service) Hit(ctx context.Context, id int64) (Round, error) {
	return s.act(ctx, id, "hit", (*engine.Round).Hit)
}

// Stand is the "no more" action: the dealer plays out and the round settles.
func (s *Service) Stand(ctx context.Context, id int64) (Round, error) {
	return s.act(ctx, id, "stand", (*engine.Round).Stand)
}

func (s *Service) act(ctx context.Context, id int64, name string, op func(*engine.Round) error) (Round, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	r, err := s.repo.Modify(ctx, id, op)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidPhase) {
			s.log.Warn("action rejected", "round", id, "action", name, "err", err)
		}
		return Round{}, err
	}
	attrs := []any{"round", id, "action", name, "phase", r.Phase, "player", r.PlayerScore()}
	if r.Phase == engine.Finished {
		attrs = append(attrs, "outcome", r.Outcome, "dealer", r.DealerScore(), "bankroll", r.Bankroll)
	}
	s.log.Info("round updated", attrs...)
	return Round{ID: id, Round: r}, nil
}

// Odds estimates standing now on round id. trials <= 0 uses the configured default.
func (s *Service) Odds(ctx context.Context, id int64, trials int) (judge.Odds, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return judge.Odds{}, err
	}
	if trials <= 0 {
		trials = s.trials
	}
	return judge.EstimateStand(ctx, r, trials, rand.New(rand.NewSource(s.nextSeed())))
}

func (s *Service) Wallet(ctx context.Context) (Wallet, error) {
	balance, err := s.OpeningBalance(ctx, false)
	if err != nil {
		return Wallet{}, err
	}
	sum, err := s.repo.Summary(ctx)
	if err != nil {
		return Wallet{}, fmt.Errorf("summary: %w", err)
	}
	return Wallet{Balance: balance, Summary: sum, Net: sum.Net()}, nil
}
