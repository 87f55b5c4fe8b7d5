package engine

// Resolve compares two final hands. Blackjacks are checked before busts and
// totals, so a natural beats a drawn 21.
func Resolve(player, dealer Hand) Outcome {
	playerBJ := IsBlackjack(player)
	dealerBJ := IsBlackjack(dealer)

	switch {
	case playerBJ && dealerBJ:
		return Push
	case playerBJ:
		return PlayerBlackjack
	case dealerBJ:
		return DealerBlackjack
	case IsBust(player):
		return DealerWins
	case IsBust(dealer):
		return PlayerWins
	}

	ps, ds := Score(player), Score(dealer)
	switch {
	case ps > ds:
		return PlayerWins
	case ps < ds:
		return DealerWins
	default:
		return Push
	}
}

// Payout is the amount credited back to the bankroll at settlement. The wager
// has already been debited, so a push returns the stake and a loss returns 0.
// Blackjack pays floor(5/2 of the wager) without forming wager*5.
func Payout(o Outcome, wager int) int {
	switch o {
	case PlayerBlackjack:
		return wager*2 + wager/2
	case PlayerWins:
		return wager * 2
	case Push:
		return wager
	case DealerWins, DealerBlackjack, NoOutcome:
		return 0
	}
	return 0
}
