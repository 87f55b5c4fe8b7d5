package engine

import (
	"encoding/json"
	"fmt"
)

type Phase string

const (
	Betting    Phase = "betting"
	PlayerTurn Phase = "player_turn"
	DealerTurn Phase = "dealer_turn"
	Finished   Phase = "finished"
)

func (p Phase) Valid() bool {
	switch p {
	case Betting, PlayerTurn, DealerTurn, Finished:
		return true
	}
	return false
}

// ParsePhase rejects anything outside the four round phases.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Outcome is empty ("") until the round is finished.
type Outcome string

const (
	NoOutcome       Outcome = ""
	PlayerBlackjack Outcome = "player_blackjack"
	PlayerWins      Outcome = "player_wins"
	Push            Outcome = "push"
	DealerWins      Outcome = "dealer_wins"
	DealerBlackjack Outcome = "dealer_blackjack"
)

// Outcomes lists every settled outcome, best for the player first.
var Outcomes = []Outcome{PlayerBlackjack, PlayerWins, Push, DealerWins, DealerBlackjack}

func (o Outcome) Valid() bool {
	switch o {
	case PlayerBlackjack, PlayerWins, Push, DealerWins, DealerBlackjack:
		return true
	}
	return false
}

// ParseOutcome accepts "" as NoOutcome.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if o != NoOutcome && !o.Valid() {
		return "", fmt.Errorf("unknown outcome %q", s)
	}
	return o, nil
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = NoOutcome
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o == NoOutcome {
		return []byte("null"), nil
	}
	return json.Marshal(string(o))
}

// Hand is append-only within a round.
type Hand []Card

func (h Hand) Strings() []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = c.String()
	}
	return out
}

// Round is the aggregate root of a single blackjack round.
type Round struct {
	Bankroll int     `json:"bankroll"`
	Wager    int     `json:"wager"`
	Phase    Phase   `json:"round_phase"`
	Outcome  Outcome `json:"outcome"`
	Shoe     Shoe    `json:"shoe"`
	Player   Hand    `json:"player_hand"`
	Dealer   Hand    `json:"house_hand"`
}
