package engine

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func card(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

func hand(ss ...string) Hand {
	h := Hand{}
	for _, s := range ss {
		h = append(h, card(s))
	}
	return h
}

// rigged returns a round in player_turn with the given hands and a shoe whose
// next draw is the first element of draws.
func rigged(bankroll, wager int, player, dealer Hand, draws ...string) *Round {
	var shoe Shoe
	for i := len(draws) - 1; i >= 0; i-- {
		shoe = append(shoe, card(draws[i]))
	}
	return &Round{
		Bankroll: bankroll,
		Wager:    wager,
		Phase:    PlayerTurn,
		Shoe:     shoe,
		Player:   player,
		Dealer:   dealer,
	}
}

func TestNewRound(t *testing.T) {
	r, err := NewRound(1000)
	if err != nil {
		t.Fatalf("NewRound returned error: %v", err)
	}
	if r.Phase != Betting || r.Wager != 0 || r.Bankroll != 1000 || r.Outcome != NoOutcome {
		t.Fatalf("unexpected new round: %+v", r)
	}
	if len(r.Shoe) != 0 || len(r.Player) != 0 || len(r.Dealer) != 0 {
		t.Fatalf("expected empty hands and shoe, got %+v", r)
	}
	if _, err := NewRound(-1); !errors.Is(err, ErrInvalidBankroll) {
		t.Fatalf("expected ErrInvalidBankroll, got %v", err)
	}
}

func TestPlaceWager(t *testing.T) {
	tests := []struct {
		name    string
		amount  int
		wantErr error
	}{
		{"zero", 0, ErrInvalidWager},
		{"negative", -5, ErrInvalidWager},
		{"over bankroll", 1001, ErrInsufficientFunds},
		{"whole bankroll", 1000, nil},
		{"ok", 200, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := NewRound(1000)
			err := r.PlaceWager(tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if r.Bankroll != 1000 || r.Wager != 0 {
					t.Fatalf("rejected wager mutated round: %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("PlaceWager returned error: %v", err)
			}
			if r.Wager != tt.amount || r.Bankroll != 1000-tt.amount {
				t.Fatalf("expected wager %d bankroll %d, got %d/%d", tt.amount, 1000-tt.amount, r.Wager, r.Bankroll)
			}
		})
	}
}

func TestPlaceWagerWrongPhase(t *testing.T) {
	r, _ := NewRound(1000)
	if err := r.PlaceWager(100); err != nil {
		t.Fatalf("first wager: %v", err)
	}
	if err := r.PlaceWager(100); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase for second wager, got %v", err)
	}
	if r.Bankroll != 900 || r.Wager != 100 {
		t.Fatalf("second wager mutated round: %+v", r)
	}

	for _, p := range []Phase{PlayerTurn, DealerTurn, Finished} {
		r := &Round{Bankroll: 500, Wager: 10, Phase: p}
		if err := r.PlaceWager(10); !errors.Is(err, ErrInvalidPhase) {
			t.Fatalf("phase %s: expected ErrInvalidPhase, got %v", p, err)
		}
	}
}

func TestDealInitialCards(t *testing.T) {
	r, _ := NewRound(1000)
	if err := r.PlaceWager(200); err != nil {
		t.Fatalf("PlaceWager: %v", err)
	}
	if r.Bankroll != 800 || r.Wager != 200 {
		t.Fatalf("unexpected bankroll/wager %d/%d", r.Bankroll, r.Wager)
	}
	if err := r.DealInitialCards(rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("DealInitialCards: %v", err)
	}
	if len(r.Player) != 2 || len(r.Dealer) != 2 {
		t.Fatalf("expected 2+2 cards, got %d+%d", len(r.Player), len(r.Dealer))
	}
	if len(r.Shoe) != 48 {
		t.Fatalf("expected 48 cards in shoe, got %d", len(r.Shoe))
	}
	if r.Phase != PlayerTurn {
		t.Fatalf("expected player_turn, got %s", r.Phase)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("dealt round invalid: %v", err)
	}
}

func TestDealOrderAlternates(t *testing.T) {
	shoe := NewShoe(rand.New(rand.NewSource(3)))
	r, _ := NewRound(100)
	_ = r.PlaceWager(10)
	if err := r.DealInitialCards(rand.New(rand.NewSource(3))); err != nil {
		t.Fatalf("DealInitialCards: %v", err)
	}
	n := len(shoe)
	want := []Card{shoe[n-1], shoe[n-2], shoe[n-3], shoe[n-4]}
	got := []Card{r.Player[0], r.Dealer[0], r.Player[1], r.Dealer[1]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("deal order = %v, want %v", got, want)
	}
}

func TestDealRequiresWager(t *testing.T) {
	r, _ := NewRound(1000)
	err := r.DealInitialCards(rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
	if r.Phase != Betting || len(r.Shoe) != 0 {
		t.Fatalf("rejected deal mutated round: %+v", r)
	}
}

func TestHitBustSettlesDealerWins(t *testing.T) {
	r := rigged(800, 200, hand("9♠", "8♥"), hand("5♦", "6♣"), "9♦")
	if err := r.Hit(); err != nil {
		t.Fatalf("Hit: %v", err)
	}
	if got := r.PlayerScore(); got != 26 {
		t.Fatalf("expected player score 26, got %d", got)
	}
	if r.Phase != Finished || r.Outcome != DealerWins {
		t.Fatalf("expected finished/dealer_wins, got %s/%s", r.Phase, r.Outcome)
	}
	if r.Bankroll != 800 {
		t.Fatalf("expected bankroll 800 after bust, got %d", r.Bankroll)
	}
	if err := r.Hit(); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase after finish, got %v", err)
	}
}

func TestHitWithoutBustStaysInPlayerTurn(t *testing.T) {
	r := rigged(900, 100, hand("2♠", "3♥"), hand("K♦", "7♣"), "4♦")
	if err := r.Hit(); err != nil {
		t.Fatalf("Hit: %v", err)
	}
	if r.Phase != PlayerTurn || r.Outcome != NoOutcome {
		t.Fatalf("expected player_turn with no outcome, got %s/%q", r.Phase, r.Outcome)
	}
	if len(r.Player) != 3 || len(r.Shoe) != 0 {
		t.Fatalf("unexpected hand/shoe sizes %d/%d", len(r.Player), len(r.Shoe))
	}
}

func TestHitExhaustedShoeIsNoOp(t *testing.T) {
	r := rigged(900, 100, hand("2♠", "3♥"), hand("K♦", "7♣"))
	before := r.Clone()
	if err := r.Hit(); !errors.Is(err, ErrExhaustedShoe) {
		t.Fatalf("expected ErrExhaustedShoe, got %v", err)
	}
	if !reflect.DeepEqual(r, before) {
		t.Fatalf("failed hit mutated round: %+v", r)
	}
}

func TestStandPlayerBlackjack(t *testing.T) {
	r, _ := NewRound(1000)
	_ = r.PlaceWager(100)
	r.Phase = PlayerTurn
	r.Player = hand("A♠", "K♥")
	r.Dealer = hand("5♦", "7♣")
	r.Shoe = Shoe{card("9♣")}
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand: %v", err)
	}
	if r.Outcome != PlayerBlackjack {
		t.Fatalf("expected player_blackjack, got %s", r.Outcome)
	}
	if r.Bankroll != 1150 {
		t.Fatalf("expected bankroll 1150, got %d", r.Bankroll)
	}
}

func TestStandPush(t *testing.T) {
	r := rigged(900, 100, hand("K♠", "9♥"), hand("K♦", "9♣"))
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand: %v", err)
	}
	if r.Outcome != Push || r.Phase != Finished {
		t.Fatalf("expected finished/push, got %s/%s", r.Phase, r.Outcome)
	}
	if r.Bankroll != 1000 {
		t.Fatalf("expected bankroll restored to 1000, got %d", r.Bankroll)
	}
}

func TestStandDealerBusts(t *testing.T) {
	r := rigged(900, 100, hand("K♠", "7♥"), hand("K♦", "6♣"), "K♣")
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand: %v", err)
	}
	if r.DealerScore() != 26 {
		t.Fatalf("expected dealer 26, got %d", r.DealerScore())
	}
	if r.Outcome != PlayerWins || r.Bankroll != 1100 {
		t.Fatalf("expected player_wins with 1100, got %s with %d", r.Outcome, r.Bankroll)
	}
}

func TestStandDealerDrawsToSeventeen(t *testing.T) {
	tests := []struct {
		name   string
		dealer Hand
		draws  []string
		want   int // cards in dealer hand after play
	}{
		{"stands on hard 17", hand("K♦", "7♣"), []string{"2♣"}, 2},
		{"stands on soft 17", hand("A♦", "6♣"), []string{"2♣"}, 2},
		{"draws on 16", hand("K♦", "6♣"), []string{"2♣", "3♣"}, 3},
		{"draws several", hand("2♦", "3♣"), []string{"2♣", "3♥", "4♠", "5♦"}, 6},
		{"soft hand demoted then continues", hand("A♦", "5♣"), []string{"K♣", "2♥"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rigged(900, 100, hand("K♠", "8♥"), tt.dealer, tt.draws...)
			if err := r.Stand(); err != nil {
				t.Fatalf("Stand: %v", err)
			}
			if len(r.Dealer) != tt.want {
				t.Fatalf("dealer drew to %v, want %d cards", r.Dealer, tt.want)
			}
			if r.DealerScore() < DealerStandsOn {
				t.Fatalf("dealer stopped at %d", r.DealerScore())
			}
			if prev := Score(r.Dealer[:len(r.Dealer)-1]); len(r.Dealer) > 2 && prev >= DealerStandsOn {
				t.Fatalf("dealer drew on %d", prev)
			}
		})
	}
}

func TestStandExhaustedShoeIsNoOp(t *testing.T) {
	r := rigged(900, 100, hand("K♠", "8♥"), hand("2♦", "3♣"), "2♣")
	before := r.Clone()
	if err := r.Stand(); !errors.Is(err, ErrExhaustedShoe) {
		t.Fatalf("expected ErrExhaustedShoe, got %v", err)
	}
	if !reflect.DeepEqual(r, before) {
		t.Fatalf("failed stand mutated round: %+v", r)
	}
}

func TestFinishedRoundIsImmutable(t *testing.T) {
	r := rigged(900, 100, hand("K♠", "9♥"), hand("K♦", "9♣"))
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand: %v", err)
	}
	before := r.Clone()
	rng := rand.New(rand.NewSource(1))
	ops := map[string]func() error{
		"wager": func() error { return r.PlaceWager(1) },
		"deal":  func() error { return r.DealInitialCards(rng) },
		"hit":   r.Hit,
		"stand": r.Stand,
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrInvalidPhase) {
			t.Fatalf("%s: expected ErrInvalidPhase, got %v", name, err)
		}
	}
	if !reflect.DeepEqual(r, before) {
		t.Fatalf("finished round mutated: %+v", r)
	}
}

func TestHoleCardProjection(t *testing.T) {
	r := rigged(900, 100, hand("K♠", "8♥"), hand("A♦", "9♣"), "2♣")
	if !r.HoleHidden() {
		t.Fatalf("expected hole card hidden in player_turn")
	}
	if got := r.DealerVisibleScore(); got != 11 {
		t.Fatalf("expected visible dealer score 11, got %d", got)
	}
	if got := len(r.VisibleDealerHand()); got != 1 {
		t.Fatalf("expected 1 visible dealer card, got %d", got)
	}
	if err := r.Stand(); err != nil {
		t.Fatalf("Stand: %v", err)
	}
	if r.HoleHidden() {
		t.Fatalf("expected hole card revealed after stand")
	}
	if got := r.DealerVisibleScore(); got != 20 {
		t.Fatalf("expected full dealer score 20, got %d", got)
	}
}

func TestFullRoundConservesCards(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		r, _ := NewRound(1000)
		_ = r.PlaceWager(50)
		if err := r.DealInitialCards(rand.New(rand.NewSource(seed))); err != nil {
			t.Fatalf("seed %d: deal: %v", seed, err)
		}
		for r.Phase == PlayerTurn && r.PlayerScore() < 15 {
			if err := r.Hit(); err != nil {
				t.Fatalf("seed %d: hit: %v", seed, err)
			}
		}
		if r.Phase == PlayerTurn {
			if err := r.Stand(); err != nil {
				t.Fatalf("seed %d: stand: %v", seed, err)
			}
		}
		if r.Phase != Finished || !r.Outcome.Valid() {
			t.Fatalf("seed %d: expected settled round, got %s/%q", seed, r.Phase, r.Outcome)
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
	}
}

func TestValidateRejectsBrokenRounds(t *testing.T) {
	tests := []struct {
		name  string
		round Round
	}{
		{"negative bankroll", Round{Bankroll: -1, Phase: Betting}},
		{"no wager in play", Round{Bankroll: 10, Phase: PlayerTurn}},
		{"outcome before finish", Round{Bankroll: 10, Wager: 5, Phase: Betting, Outcome: Push}},
		{"finished without outcome", Round{Bankroll: 10, Wager: 5, Phase: Finished}},
		{"unknown phase", Round{Phase: "lobby"}},
		{"duplicate card", Round{Phase: Betting, Player: hand("A♠"), Dealer: hand("A♠")}},
		{"missing cards", Round{Bankroll: 10, Wager: 5, Phase: PlayerTurn, Player: hand("A♠", "2♠"), Dealer: hand("3♠", "4♠")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.round.Validate(); err == nil {
				t.Fatalf("expected validation error for %+v", tt.round)
			}
		})
	}
}

func TestWrongPhaseIsNoOp(t *testing.T) {
	betting := func() *Round {
		r, _ := NewRound(1000)
		_ = r.PlaceWager(100)
		return r
	}
	dealerTurn := func() *Round {
		r := rigged(900, 100, hand("K♠", "9♥"), hand("K♦", "6♣"), "5♣")
		r.Phase = DealerTurn
		return r
	}
	playerTurn := func() *Round {
		return rigged(900, 100, hand("K♠", "9♥"), hand("K♦", "6♣"), "5♣")
	}
	rng := rand.New(rand.NewSource(3))
	tests := []struct {
		name  string
		round func() *Round
		op    func(r *Round) error
	}{
		{"hit during betting", betting, (*Round).Hit},
		{"stand during betting", betting, (*Round).Stand},
		{"hit during dealer turn", dealerTurn, (*Round).Hit},
		{"stand during dealer turn", dealerTurn, (*Round).Stand},
		{"deal during dealer turn", dealerTurn, func(r *Round) error { return r.DealInitialCards(rng) }},
		{"deal during player turn", playerTurn, func(r *Round) error { return r.DealInitialCards(rng) }},
		{"wager during player turn", playerTurn, func(r *Round) error { return r.PlaceWager(10) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.round()
			before := r.Clone()
			if err := tt.op(r); !errors.Is(err, ErrInvalidPhase) {
				t.Fatalf("expected ErrInvalidPhase, got %v", err)
			}
			if !reflect.DeepEqual(r, before) {
				t.Fatalf("rejected call mutated round: %+v", r)
			}
		})
	}
}

func TestWagerLimitKeepsSettlementInRange(t *testing.T) {
	r, err := NewRound(math.MaxInt)
	if err != nil {
		t.Fatalf("NewRound: %v", err)
	}
	if err := r.PlaceWager(math.MaxInt / 3); !errors.Is(err, ErrInvalidWager) {
		t.Fatalf("expected ErrInvalidWager, got %v", err)
	}
	if r.Bankroll != math.MaxInt || r.Wager != 0 {
		t.Fatalf("rejected wager mutated round: %+v", r)
	}

	bankroll := math.MaxInt - 3000
	r, _ = NewRound(bankroll)
	if err := r.PlaceWager(MaxWager(bankroll) + 1); !errors.Is(err, ErrInvalidWager) {
		t.Fatalf("expected ErrInvalidWager over the limit, got %v", err)
	}
	if err := r.PlaceWager(MaxWager(bankroll)); err != nil {
		t.Fatalf("PlaceWager at the limit: %v", err)
	}

	wager := math.MaxInt / 4
	for _, tt := range []struct {
		name           string
		player, dealer Hand
		want           Outcome
	}{
		{"blackjack", hand("A♠", "K♥"), hand("K♦", "7♣"), PlayerBlackjack},
		{"win", hand("K♠", "9♥"), hand("K♦", "7♣"), PlayerWins},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := NewRound(wager)
			if err := r.PlaceWager(wager); err != nil {
				t.Fatalf("PlaceWager: %v", err)
			}
			r.Phase, r.Player, r.Dealer = PlayerTurn, tt.player, tt.dealer
			if err := r.Stand(); err != nil {
				t.Fatalf("Stand: %v", err)
			}
			if r.Outcome != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, r.Outcome)
			}
			if r.Bankroll != Payout(tt.want, wager) || r.Bankroll < 0 {
				t.Fatalf("bankroll %d, want %d", r.Bankroll, Payout(tt.want, wager))
			}
		})
	}
}
