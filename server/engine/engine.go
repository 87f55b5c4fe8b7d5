package engine

import (
	"fmt"
	"math"
)

// DealerStandsOn is the lowest total the dealer stands on, soft or hard.
const DealerStandsOn = 17

// NewRound opens a round in the betting phase.
func NewRound(bankroll int) (*Round, error) {
	if bankroll < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBankroll, bankroll)
	}
	return &Round{Bankroll: bankroll, Phase: Betting}, nil
}

// require is the single phase guard every mutating operation goes through.
func (r *Round) require(op string, want Phase) error {
	if r.Phase != want {
		return fmt.Errorf("%w: cannot %s during %s", ErrInvalidPhase, op, r.Phase)
	}
	return nil
}

// MaxWager is the largest wager a bankroll can carry: a settled round must
// still fit in an int after a blackjack pays out.
func MaxWager(bankroll int) int {
	if bankroll < 0 {
		return 0
	}
	return (math.MaxInt - bankroll) / 3
}

// PlaceWager is the only place the bankroll is debited.
func (r *Round) PlaceWager(amount int) error {
	if err := r.require("place wager", Betting); err != nil {
		return err
	}
	if r.Wager > 0 {
		return fmt.Errorf("%w: wager already placed", ErrInvalidPhase)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWager, amount)
	}
	if amount > r.Bankroll {
		return fmt.Errorf("%w: wager %d exceeds bankroll %d", ErrInsufficientFunds, amount, r.Bankroll)
	}
	if amount > MaxWager(r.Bankroll) {
		return fmt.Errorf("%w: wager %d over the table limit %d", ErrInvalidWager, amount, MaxWager(r.Bankroll))
	}
	r.Wager = amount
	r.Bankroll -= amount
	return nil
}

// DealInitialCards shuffles a fresh shoe and deals player, dealer, player, dealer.
func (r *Round) DealInitialCards(rng Source) error {
	if err := r.require("deal", Betting); err != nil {
		return err
	}
	if r.Wager <= 0 {
		return fmt.Errorf("%w: cannot deal before a wager is placed", ErrInvalidPhase)
	}
	shoe := NewShoe(rng)
	var player, dealer Hand
	for i := 0; i < 2; i++ {
		p, err := shoe.Draw()
		if err != nil {
			return err
		}
		d, err := shoe.Draw()
		if err != nil {
			return err
		}
		player = append(player, p)
		dealer = append(dealer, d)
	}
	r.Shoe, r.Player, r.Dealer = shoe, player, dealer
	r.Phase = PlayerTurn
	return nil
}

// Hit draws one card for the player. A bust settles the round immediately.
func (r *Round) Hit() error {
	if err := r.require("hit", PlayerTurn); err != nil {
		return err
	}
	shoe := r.Shoe
	c, err := shoe.Draw()
	if err != nil {
		return err
	}
	r.Shoe = shoe
	r.Player = append(r.Player.clone(), c)
	if IsBust(r.Player) {
		r.finalize(DealerWins)
	}
	return nil
}

// Stand ends the player's turn, plays the dealer out and settles. The dealer
// runs on a copy so a failed draw leaves r untouched.
func (r *Round) Stand() error {
	if err := r.require("stand", PlayerTurn); err != nil {
		return err
	}
	next := r.Clone()
	next.Phase = DealerTurn
	for Score(next.Dealer) < DealerStandsOn {
		c, err := next.Shoe.Draw()
		if err != nil {
			return fmt.Errorf("dealer draw: %w", err)
		}
		next.Dealer = append(next.Dealer, c)
	}
	next.finalize(Resolve(next.Player, next.Dealer))
	*r = *next
	return nil
}

// finalize is the one transition into Finished and the one place payouts happen.
func (r *Round) finalize(o Outcome) {
	r.Phase = Finished
	r.Outcome = o
	r.Bankroll += Payout(o, r.Wager)
}

func (r *Round) Clone() *Round {
	c := *r
	c.Shoe = Shoe(Hand(r.Shoe).clone())
	c.Player = r.Player.clone()
	c.Dealer = r.Dealer.clone()
	return &c
}

func (h Hand) clone() Hand {
	if h == nil {
		return nil
	}
	return append(Hand(nil), h...)
}

func (r *Round) PlayerScore() int { return Score(r.Player) }
func (r *Round) DealerScore() int { return Score(r.Dealer) }

// HoleHidden reports whether the dealer's second card is still face down.
func (r *Round) HoleHidden() bool {
	switch r.Phase {
	case Betting, PlayerTurn:
		return true
	case DealerTurn, Finished:
		return false
	}
	return true
}

// VisibleDealerHand is the dealer hand as the player may see it.
func (r *Round) VisibleDealerHand() Hand {
	if r.HoleHidden() && len(r.Dealer) > 0 {
		return r.Dealer[:1].clone()
	}
	return r.Dealer.clone()
}

// DealerVisibleScore scores only the upcard while the hole card is hidden.
func (r *Round) DealerVisibleScore() int { return Score(r.VisibleDealerHand()) }

// Validate checks the invariants a stored round must satisfy before play resumes.
func (r *Round) Validate() error {
	if !r.Phase.Valid() {
		return fmt.Errorf("unknown phase %q", r.Phase)
	}
	if r.Bankroll < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBankroll, r.Bankroll)
	}
	if r.Wager < 0 {
		return fmt.Errorf("negative wager %d", r.Wager)
	}
	if r.Phase != Betting && r.Wager == 0 {
		return fmt.Errorf("no wager during %s", r.Phase)
	}
	if (r.Phase == Finished) != r.Outcome.Valid() {
		return fmt.Errorf("outcome %q inconsistent with phase %s", r.Outcome, r.Phase)
	}
	if r.Outcome != NoOutcome && !r.Outcome.Valid() {
		return fmt.Errorf("unknown outcome %q", r.Outcome)
	}

	seen := make(map[Card]bool, DeckSize)
	for _, part := range []Hand{Hand(r.Shoe), r.Player, r.Dealer} {
		for _, c := range part {
			if !c.Valid() {
				return fmt.Errorf("invalid card %+v", c)
			}
			if seen[c] {
				return fmt.Errorf("duplicate card %s", c)
			}
			seen[c] = true
		}
	}
	if r.Phase != Betting && len(seen) != DeckSize {
		return fmt.Errorf("card count %d, want %d", len(seen), DeckSize)
	}
	return nil
}
