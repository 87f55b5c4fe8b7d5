package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"blackjack-table/server/engine"
)

//go:embed schema.sql
var schema embed.FS

// DB is the Postgres round repository.
type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// Create inserts a round and returns its id.
func (db *DB) Create(ctx context.Context, r *engine.Round) (int64, error) {
	w, err := toRow(r)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRow(ctx, `
		INSERT INTO rounds(bankroll, wager, round_phase, outcome, shoe, player_hand, house_hand)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, w.bankroll, w.wager, w.phase, w.outcomeArg(), w.shoe, w.player, w.dealer).Scan(&id)
	return id, err
}

const selectRound = `
	SELECT bankroll, wager, round_phase, outcome, shoe, player_hand, house_hand
	  FROM rounds WHERE id = $1`

func scanRound(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, query string, id int64) (*engine.Round, error) {
	var w row
	err := q.QueryRow(ctx, query, id).Scan(&w.bankroll, &w.wager, &w.phase, &w.outcome, &w.shoe, &w.player, &w.dealer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, err
	}
	return w.round()
}

func (db *DB) Get(ctx context.Context, id int64) (*engine.Round, error) {
	return scanRound(ctx, db, selectRound, id)
}

// Modify loads the round with a row lock, applies fn and writes the result in
// the same transaction. Concurrent writers on one round queue on the lock.
func (db *DB) Modify(ctx context.Context, id int64, fn ModifyFunc) (*engine.Round, error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) // safe if already committed

	r, err := scanRound(ctx, tx, selectRound+` FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	w, err := toRow(r)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE rounds
		   SET bankroll = $2,
		       wager = $3,
		       round_phase = $4,
		       outcome = $5,
		       shoe = $6,
		       player_hand = $7,
		       house_hand = $8,
		       updated_at = now()
		 WHERE id = $1
	`, id, w.bankroll, w.wager, w.phase, w.outcomeArg(), w.shoe, w.player, w.dealer); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// LastFinishedBankroll returns the ending bankroll of the newest finished round.
func (db *DB) LastFinishedBankroll(ctx context.Context) (int, bool, error) {
	var bankroll int
	err := db.QueryRow(ctx, `
		SELECT bankroll FROM rounds
		 WHERE round_phase = 'finished'
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1
	`).Scan(&bankroll)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return bankroll, true, nil
}

func (db *DB) Summary(ctx context.Context) (Summary, error) {
	rows, err := db.Query(ctx, `
		SELECT outcome, COUNT(*)::bigint, COALESCE(SUM(wager), 0)::bigint, COALESCE(SUM(wager * 2 + wager / 2), 0)::bigint
		  FROM rounds
		 WHERE round_phase = 'finished'
		 GROUP BY outcome
	`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	s := newSummary()
	for rows.Next() {
		var outcome string
		var n, sumWager, sumBJ int
		if err := rows.Scan(&outcome, &n, &sumWager, &sumBJ); err != nil {
			return Summary{}, err
		}
		if err := s.addGroup(outcome, n, sumWager, sumBJ); err != nil {
			return Summary{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return s, nil
}
