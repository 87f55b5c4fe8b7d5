package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"blackjack-table/server/engine"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLite is a single-file round repository for local play.
type SQLite struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite store at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" is per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLite{sqlDB: sqlDB}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLite) Create(ctx context.Context, r *engine.Round) (int64, error) {
	w, err := toRow(r)
	if err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO rounds(bankroll, wager, round_phase, outcome, shoe, player_hand, house_hand)
		VALUES (?,?,?,?,?,?,?)
	`, w.bankroll, w.wager, w.phase, w.outcomeArg(), string(w.shoe), string(w.player), string(w.dealer))
	if err != nil {
		return 0, fmt.Errorf("insert round: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLite) get(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id int64) (*engine.Round, error) {
	var (
		w                    row
		outcome              sql.NullString
		shoe, player, dealer string
	)
	err := q.QueryRowContext(ctx, `
		SELECT bankroll, wager, round_phase, outcome, shoe, player_hand, house_hand
		  FROM rounds WHERE id = ?
	`, id).Scan(&w.bankroll, &w.wager, &w.phase, &outcome, &shoe, &player, &dealer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, err
	}
	if outcome.Valid {
		w.outcome = &outcome.String
	}
	w.shoe, w.player, w.dealer = []byte(shoe), []byte(player), []byte(dealer)
	return w.round()
}

func (s *SQLite) Get(ctx context.Context, id int64) (*engine.Round, error) {
	return s.get(ctx, s.sqlDB, id)
}

// Modify runs load, fn and save in one transaction.
func (s *SQLite) Modify(ctx context.Context, id int64, fn ModifyFunc) (*engine.Round, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := s.get(ctx, tx, id)
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
	if _, err := tx.ExecContext(ctx, `
		UPDATE rounds
		   SET bankroll = ?, wager = ?, round_phase = ?, outcome = ?,
		       shoe = ?, player_hand = ?, house_hand = ?,
		       updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
	`, w.bankroll, w.wager, w.phase, w.outcomeArg(), string(w.shoe), string(w.player), string(w.dealer), id); err != nil {
		return nil, fmt.Errorf("update round: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLite) LastFinishedBankroll(ctx context.Context) (int, bool, error) {
	var bankroll int
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT bankroll FROM rounds
		 WHERE round_phase = 'finished'
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1
	`).Scan(&bankroll)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return bankroll, true, nil
}

func (s *SQLite) Summary(ctx context.Context) (Summary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT outcome, COUNT(*), COALESCE(SUM(wager), 0), COALESCE(SUM(wager * 2 + wager / 2), 0)
		  FROM rounds
		 WHERE round_phase = 'finished'
		 GROUP BY outcome
	`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	sum := newSummary()
	for rows.Next() {
		var outcome string
		var n, sumWager, sumBJ int
		if err := rows.Scan(&outcome, &n, &sumWager, &sumBJ); err != nil {
			return Summary{}, err
		}
		if err := sum.addGroup(outcome, n, sumWager, sumBJ); err != nil {
			return Summary{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}
