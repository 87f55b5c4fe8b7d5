package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"blackjack-table/server/engine"
)

var ErrNotFound = errors.New("round not found")

// ModifyFunc mutates a loaded round. Returning an error discards the change.
type ModifyFunc func(r *engine.Round) error

// Summary aggregates finished rounds.
type Summary struct {
	Rounds   int                    `json:"rounds"`
	Outcomes map[engine.Outcome]int `json:"outcomes"`
	Wagered  int                    `json:"wagered"`
	Returned int                    `json:"returned"`
}

func (s Summary) Net() int { return s.Returned - s.Wagered }

func newSummary() Summary {
	s := Summary{Outcomes: make(map[engine.Outcome]int, len(engine.Outcomes))}
	for _, o := range engine.Outcomes {
		s.Outcomes[o] = 0
	}
	return s
}

// addGroup folds one "GROUP BY outcome" row into s. sumBlackjack is
// SUM(wager*2 + wager/2), computed per row so the floor matches engine.Payout.
func (s *Summary) addGroup(outcome string, n, sumWager, sumBlackjack int) error {
	o, err := engine.ParseOutcome(outcome)
	if err != nil {
		return err
	}
	s.Rounds += n
	s.Outcomes[o] += n
	s.Wagered += sumWager
	switch o {
	case engine.PlayerBlackjack:
		s.Returned += sumBlackjack
	case engine.PlayerWins:
		s.Returned += 2 * sumWager
	case engine.Push:
		s.Returned += sumWager
	case engine.DealerWins, engine.DealerBlackjack, engine.NoOutcome:
	}
	return nil
}

// row is the column-level shape shared by the SQL stores.
type row struct {
	bankroll, wager      int
	phase                string
	outcome              *string
	shoe, player, dealer []byte
}

func toRow(r *engine.Round) (row, error) {
	out := row{bankroll: r.Bankroll, wager: r.Wager, phase: string(r.Phase)}
	if r.Outcome != engine.NoOutcome {
		o := string(r.Outcome)
		out.outcome = &o
	}
	var err error
	if out.shoe, err = encodeCards(r.Shoe); err != nil {
		return row{}, err
	}
	if out.player, err = encodeCards(r.Player); err != nil {
		return row{}, err
	}
	if out.dealer, err = encodeCards(r.Dealer); err != nil {
		return row{}, err
	}
	return out, nil
}

// outcomeArg is nil for NoOutcome so the column stays NULL.
func (w row) outcomeArg() any {
	if w.outcome == nil {
		return nil
	}
	return *w.outcome
}

func (w row) round() (*engine.Round, error) {
	phase, err := engine.ParsePhase(w.phase)
	if err != nil {
		return nil, err
	}
	r := &engine.Round{Bankroll: w.bankroll, Wager: w.wager, Phase: phase}
	if w.outcome != nil {
		if r.Outcome, err = engine.ParseOutcome(*w.outcome); err != nil {
			return nil, err
		}
	}
	var shoe, player, dealer engine.Hand
	if err := decodeCards(w.shoe, &shoe); err != nil {
		return nil, fmt.Errorf("shoe: %w", err)
	}
	if err := decodeCards(w.player, &player); err != nil {
		return nil, fmt.Errorf("player hand: %w", err)
	}
	if err := decodeCards(w.dealer, &dealer); err != nil {
		return nil, fmt.Errorf("house hand: %w", err)
	}
	r.Shoe, r.Player, r.Dealer = engine.Shoe(shoe), player, dealer
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("stored round is inconsistent: %w", err)
	}
	return r, nil
}

func encodeCards[T ~[]engine.Card](cards T) ([]byte, error) {
	if cards == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(cards)
}

func decodeCards(b []byte, dst *engine.Hand) error {
	if len(b) == 0 {
		*dst = nil
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return err
	}
	if len(*dst) == 0 {
		*dst = nil
	}
	return nil
}
