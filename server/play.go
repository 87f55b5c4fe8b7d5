package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"blackjack-table/server/engine"
	"blackjack-table/server/table"
)

const (
	actHit    = "Hit"
	actNoMore = "No more"
	actOdds   = "Show odds"
)

func playCmd() *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play rounds in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, closeRepo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeRepo()
			return playLoop(ctx, newService(repo, cfg), ptermPrompter{}, fresh)
		},
	}
	cmd.Flags().BoolVar(&fresh, "new-game", false, "start from the default bankroll instead of the last balance")
	return cmd
}

// prompter reads the player's input. A failed read ends the session.
type prompter interface {
	Bet() (string, error)
	Move() (string, error)
	Again() (bool, error)
}

type ptermPrompter struct{}

func (ptermPrompter) Bet() (string, error) {
	return pterm.DefaultInteractiveTextInput.WithDefaultText("Your bet").Show()
}

func (ptermPrompter) Move() (string, error) {
	return pterm.DefaultInteractiveSelect.
		WithDefaultText("Your move").
		WithOptions([]string{actHit, actNoMore, actOdds}).
		Show()
}

func (ptermPrompter) Again() (bool, error) {
	return pterm.DefaultInteractiveConfirm.WithDefaultText("Play another round?").WithDefaultValue(true).Show()
}

func playLoop(ctx context.Context, svc *table.Service, in prompter, fresh bool) error {
	pterm.DefaultHeader.WithFullWidth().Println("Blackjack")
	for {
		balance, err := svc.OpeningBalance(ctx, fresh)
		if err != nil {
			return err
		}
		pterm.Info.Printfln("Balance: %d", balance)

		raw, err := in.Bet()
		if err != nil {
			return fmt.Errorf("read bet: %w", err)
		}
		bet, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			pterm.Error.Println("Bet must be a whole number")
			continue
		}
		round, err := svc.Start(ctx, bet, fresh)
		if err != nil {
			var we *table.WagerError
			if errors.As(err, &we) {
				pterm.Error.Println(we.Error())
				continue
			}
			return err
		}
		fresh = false

		for round.Phase == engine.PlayerTurn {
			renderRound(round)
			choice, err := in.Move()
			if err != nil {
				return fmt.Errorf("read move: %w", err)
			}
			switch choice {
			case actHit:
				round, err = svc.Hit(ctx, round.ID)
			case actNoMore:
				round, err = svc.Stand(ctx, round.ID)
			case actOdds:
				odds, oerr := svc.Odds(ctx, round.ID, 0)
				if oerr != nil {
					pterm.Error.Println(oerr.Error())
					continue
				}
				pterm.Info.Printfln("Standing on %d: win %.1f%%  push %.1f%%  lose %.1f%%  (dealer busts %.1f%%, EV %+.2f per chip)",
					odds.PlayerScore,
					100*(odds.Outcomes[engine.PlayerWins]+odds.Outcomes[engine.PlayerBlackjack]),
					100*odds.Outcomes[engine.Push],
					100*(odds.Outcomes[engine.DealerWins]+odds.Outcomes[engine.DealerBlackjack]),
					100*odds.DealerBust, odds.ExpectedReturn)
			default:
				return fmt.Errorf("unknown move %q", choice)
			}
			if err != nil {
				return err
			}
		}

		renderRound(round)
		printOutcome(round)

		again, err := in.Again()
		if err != nil {
			return fmt.Errorf("read confirm: %w", err)
		}
		if !again {
			return nil
		}
	}
}

func renderRound(r table.Round) {
	dealer := strings.Join(r.VisibleDealerHand().Strings(), " ")
	if r.HoleHidden() {
		dealer += " ??"
	}
	soft := ""
	if engine.IsSoft(r.Player) {
		soft = " (soft)"
	}
	pterm.DefaultSection.Println(fmt.Sprintf("Round %d, wager %d", r.ID, r.Wager))
	pterm.Printfln("Dealer: %s  [%d]", dealer, r.DealerVisibleScore())
	pterm.Printfln("You:    %s  [%d%s]", strings.Join(r.Player.Strings(), " "), r.PlayerScore(), soft)
}

func printOutcome(r table.Round) {
	msg := fmt.Sprintf("%s, bankroll %d", outcomeText(r.Outcome), r.Bankroll)
	switch r.Outcome {
	case engine.PlayerBlackjack, engine.PlayerWins:
		pterm.Success.Println(msg)
	case engine.Push:
		pterm.Info.Println(msg)
	case engine.DealerWins, engine.DealerBlackjack, engine.NoOutcome:
		pterm.Warning.Println(msg)
	}
}

func outcomeText(o engine.Outcome) string {
	switch o {
	case engine.PlayerBlackjack:
		return "Blackjack!"
	case engine.PlayerWins:
		return "You win"
	case engine.Push:
		return "Push"
	case engine.DealerWins:
		return "Dealer wins"
	case engine.DealerBlackjack:
		return "Dealer blackjack"
	}
	return "Round in progress"
}
