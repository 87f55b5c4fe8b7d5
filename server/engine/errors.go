package engine

import "errors"

var (
	ErrInvalidWager      = errors.New("wager must be greater than 0")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidPhase      = errors.New("action not allowed in this phase")
	ErrExhaustedShoe     = errors.New("shoe is empty")
	ErrInvalidBankroll   = errors.New("bankroll must not be negative")
)
