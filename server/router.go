package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"blackjack-table/server/engine"
	"blackjack-table/server/store"
	"blackjack-table/server/table"
)

// RoundView is what a player may see of a round: the hole card and the shoe
// contents stay hidden.
type RoundView struct {
	ID          int64          `json:"id"`
	Phase       engine.Phase   `json:"round_phase"`
	Outcome     engine.Outcome `json:"outcome"`
	Bankroll    int            `json:"bankroll"`
	Wager       int            `json:"wager"`
	PlayerHand  []string       `json:"player_hand"`
	PlayerScore int            `json:"player_score"`
	PlayerSoft  bool           `json:"player_soft"`
	DealerHand  []string       `json:"dealer_hand"`
	DealerScore int            `json:"dealer_score"`
	HoleHidden  bool           `json:"hole_hidden"`
	ShoeSize    int            `json:"shoe_size"`
}

func viewOf(r table.Round) RoundView {
	return RoundView{
		ID:          r.ID,
		Phase:       r.Phase,
		Outcome:     r.Outcome,
		Bankroll:    r.Bankroll,
		Wager:       r.Wager,
		PlayerHand:  r.Player.Strings(),
		PlayerScore: r.PlayerScore(),
		PlayerSoft:  engine.IsSoft(r.Player),
		DealerHand:  r.VisibleDealerHand().Strings(),
		DealerScore: r.DealerVisibleScore(),
		HoleHidden:  r.HoleHidden(),
		ShoeSize:    len(r.Shoe),
	}
}

func Router(svc *table.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Get("/api/wallet", func(w http.ResponseWriter, r *http.Request) {
		wallet, err := svc.Wallet(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wallet)
	})

	r.Route("/api/rounds", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Bet     int  `json:"bet"`
				NewGame bool `json:"new_game"`
			}
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
				return
			}
			round, err := svc.Start(r.Context(), body.Bet, body.NewGame)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, viewOf(round))
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", roundHandler(svc.Get))
			r.Post("/hit", roundHandler(svc.Hit))
			r.Post("/no_more", roundHandler(svc.Stand))
			r.Post("/stand", roundHandler(svc.Stand))
			r.Get("/odds", func(w http.ResponseWriter, r *http.Request) {
				id, ok := roundID(w, r)
				if !ok {
					return
				}
				trials := atoiDef(r.URL.Query().Get("trials"), 0)
				if trials > 100_000 {
					trials = 100_000
				}
				odds, err := svc.Odds(r.Context(), id, trials)
				if err != nil {
					writeError(w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, odds)
			})
		})
	})

	return r
}

func roundID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid round id"})
		return 0, false
	}
	return id, true
}

func roundHandler(fn func(ctx context.Context, id int64) (table.Round, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roundID(w, r)
		if !ok {
			return
		}
		round, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(round))
	}
}

// writeError maps engine and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := map[string]any{"error": err.Error()}
	var we *table.WagerError
	switch {
	case errors.As(err, &we):
		body["balance"] = we.Balance
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, engine.ErrInvalidWager), errors.Is(err, engine.ErrInsufficientFunds):
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, engine.ErrInvalidPhase):
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, body)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
