package judge

import (
	"context"
	"fmt"

	"blackjack-table/server/engine"
)

// DefaultTrials is used when callers pass trials <= 0.
const DefaultTrials = 2000

// Odds is a Monte Carlo estimate of standing on the current player hand.
type Odds struct {
	Trials         int                        `json:"trials"`
	PlayerScore    int                        `json:"player_score"`
	Outcomes       map[engine.Outcome]float64 `json:"outcomes"`
	DealerBust     float64                    `json:"dealer_bust"`
	ExpectedReturn float64                    `json:"expected_return"` // net units per unit wagered
}

// netUnits is the player's net result per unit wagered for a settled outcome.
func netUnits(o engine.Outcome) float64 {
	const w = 100
	return float64(engine.Payout(o, w)-w) / w
}

// EstimateStand plays the dealer out `trials` times over the cards the player
// cannot see (the hole card plus the shoe), without touching r.
func EstimateStand(ctx context.Context, r *engine.Round, trials int, rng engine.Source) (Odds, error) {
	if r.Phase != engine.PlayerTurn {
		return Odds{}, fmt.Errorf("%w: odds are only available during %s", engine.ErrInvalidPhase, engine.PlayerTurn)
	}
	if len(r.Dealer) == 0 {
		return Odds{}, fmt.Errorf("dealer has no upcard")
	}
	if trials <= 0 {
		trials = DefaultTrials
	}

	upcard := r.Dealer[0]
	unseen := make([]engine.Card, 0, len(r.Shoe)+len(r.Dealer)-1)
	unseen = append(unseen, r.Dealer[1:]...)
	unseen = append(unseen, r.Shoe...)

	counts := make(map[engine.Outcome]int, len(engine.Outcomes))
	busts := 0
	var net float64
	dealer := make(engine.Hand, 0, 12)

	for i := 0; i < trials; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return Odds{}, err
			}
		}
		dealer = append(dealer[:0], upcard)
		// Partial Fisher-Yates: only shuffle as far as the dealer draws.
		for k := 0; engine.Score(dealer) < engine.DealerStandsOn || len(dealer) < 2; k++ {
			if k >= len(unseen) {
				break
			}
			j := k + rng.Intn(len(unseen)-k)
			unseen[k], unseen[j] = unseen[j], unseen[k]
			dealer = append(dealer, unseen[k])
		}
		if engine.IsBust(dealer) {
			busts++
		}
		o := engine.Resolve(r.Player, dealer)
		counts[o]++
		net += netUnits(o)
	}

	odds := Odds{
		Trials:         trials,
		PlayerScore:    r.PlayerScore(),
		Outcomes:       make(map[engine.Outcome]float64, len(engine.Outcomes)),
		DealerBust:     float64(busts) / float64(trials),
		ExpectedReturn: net / float64(trials),
	}
	for _, o := range engine.Outcomes {
		odds.Outcomes[o] = float64(counts[o]) / float64(trials)
	}
	return odds, nil
}
