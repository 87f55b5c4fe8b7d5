package engine

// pipValue is the face value of a numeric rank, 0 for J/Q/K/A and unknown ranks.
func pipValue(r Rank) int {
	switch r {
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	case Ten:
		return 10
	}
	return 0
}

// tally returns the hand total and how many aces still count as 11.
func tally(h Hand) (total, soft int) {
	for _, c := range h {
		switch c.Rank {
		case Ace:
			total += 11
			soft++
		case Jack, Queen, King:
			total += 10
		default:
			total += pipValue(c.Rank)
		}
	}
	for total > 21 && soft > 0 {
		total -= 10
		soft--
	}
	return total, soft
}

// Score is the blackjack total with each ace counted as 11 unless that busts.
func Score(h Hand) int {
	total, _ := tally(h)
	return total
}

// IsSoft reports whether at least one ace is still counted as 11.
func IsSoft(h Hand) bool {
	_, soft := tally(h)
	return soft > 0
}

func IsBlackjack(h Hand) bool { return len(h) == 2 && Score(h) == 21 }

func IsBust(h Hand) bool { return Score(h) > 21 }
