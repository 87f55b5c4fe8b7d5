package engine

import (
	"fmt"
	"strings"

	poker "github.com/paulhankin/poker"
)

type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

var (
	Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
	Suits = []Suit{Spades, Hearts, Diamonds, Clubs}
)

const DeckSize = 52

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string { return string(c.Rank) + string(c.Suit) }

// Valid reports whether c is one of the 52 standard cards. The check goes
// through the poker library so the two card domains cannot drift apart.
func (c Card) Valid() bool {
	_, err := toPH(c)
	return err == nil
}

// toPH converts to a library card. Library ranks are 1..13 with Ace=1.
func toPH(c Card) (pc poker.Card, err error) {
	var s poker.Suit
	switch c.Suit {
	case Clubs:
		s = poker.Club
	case Diamonds:
		s = poker.Diamond
	case Hearts:
		s = poker.Heart
	case Spades:
		s = poker.Spade
	default:
		return pc, fmt.Errorf("invalid suit %q", c.Suit)
	}
	var r poker.Rank
	switch c.Rank {
	case Ace:
		r = 1
	case Jack:
		r = 11
	case Queen:
		r = 12
	case King:
		r = 13
	default:
		n := pipValue(c.Rank)
		if n == 0 {
			return pc, fmt.Errorf("invalid rank %q", c.Rank)
		}
		r = poker.Rank(n)
	}
	return poker.MakeCard(s, r)
}

// ParseCard reads the String form, e.g. "10♥" or "A♠".
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	for _, su := range Suits {
		if rank, ok := strings.CutSuffix(s, string(su)); ok {
			c := Card{Rank: Rank(rank), Suit: su}
			if !c.Valid() {
				return Card{}, fmt.Errorf("invalid card %q", s)
			}
			return c, nil
		}
	}
	return Card{}, fmt.Errorf("invalid card %q", s)
}

// NewDeck returns the 52 cards in rank-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, r := range Ranks {
		for _, s := range Suits {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// Source is the randomness a shuffle needs; *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Shoe is the drawable deck for one round. The top card is the last element.
type Shoe []Card

// NewShoe returns a Fisher-Yates shuffled deck.
func NewShoe(rng Source) Shoe {
	deck := NewDeck()
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return Shoe(deck)
}

func (s *Shoe) Draw() (Card, error) {
	n := len(*s)
	if n == 0 {
		return Card{}, ErrExhaustedShoe
	}
	c := (*s)[n-1]
	*s = (*s)[:n-1]
	return c, nil
}
