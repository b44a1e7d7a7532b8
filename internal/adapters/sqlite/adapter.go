// Package sqlite provides a SQLite-backed implementation of the round repository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
)

// Adapter implements ports.RoundRepository for SQLite.
type Adapter struct {
	db *sql.DB
}

var _ ports.RoundRepository = (*Adapter)(nil)

// NewAdapter opens the database and runs the schema migration.
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open db: %w", err)
	}
	if storagePath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return adapter, nil
}

// Close closes the underlying database.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// SaveRound stores a round and its tool invocations in one transaction.
// Saving an existing round id replaces it.
func (a *Adapter) SaveRound(ctx context.Context, r domain.Round) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var toolResponse sql.NullString
	if r.ToolResponse != nil {
		toolResponse = sql.NullString{String: *r.ToolResponse, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rounds (
			id, session_id, game_state, output, tool_response,
			iterations, hit_iteration_limit, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id=excluded.session_id,
			game_state=excluded.game_state,
			output=excluded.output,
			tool_response=excluded.tool_response,
			iterations=excluded.iterations,
			hit_iteration_limit=excluded.hit_iteration_limit,
			created_at=excluded.created_at;
	`,
		r.ID,
		r.SessionID,
		r.GameState,
		r.Output,
		toolResponse,
		r.Iterations,
		r.HitIterationLimit,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("sqlite: failed to save round %s: %w", r.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tool_invocations WHERE round_id = ?", r.ID); err != nil {
		return fmt.Errorf("sqlite: failed to clear invocations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tool_invocations (round_id, position, tool, arguments, result, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare invocation insert: %w", err)
	}
	defer stmt.Close()

	for i, inv := range r.Invocations {
		if _, err := stmt.ExecContext(ctx, r.ID, i, inv.Tool, inv.Arguments, inv.Result, int64(inv.Duration)); err != nil {
			return fmt.Errorf("sqlite: failed to save invocation %d of round %s: %w", i, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: transaction commit failed: %w", err)
	}
	return nil
}

// GetRound loads a round with its invocations in call order.
func (a *Adapter) GetRound(ctx context.Context, id string) (domain.Round, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, session_id, game_state, output, tool_response,
			iterations, hit_iteration_limit, created_at
		FROM rounds WHERE id = ?
	`, id)

	var (
		r            domain.Round
		toolResponse sql.NullString
		createdAt    string
	)
	if err := row.Scan(
		&r.ID,
		&r.SessionID,
		&r.GameState,
		&r.Output,
		&toolResponse,
		&r.Iterations,
		&r.HitIterationLimit,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("sqlite: failed to load round: %w", err)
	}
	if toolResponse.Valid {
		s := toolResponse.String
		r.ToolResponse = &s
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Round{}, fmt.Errorf("sqlite: bad created_at %q: %w", createdAt, err)
	}
	r.CreatedAt = ts

	rows, err := a.db.QueryContext(ctx, `
		SELECT tool, arguments, result, duration_ns
		FROM tool_invocations
		WHERE round_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return domain.Round{}, fmt.Errorf("sqlite: failed to load invocations: %w", err)
	}
	defer rows.Close()

	r.Invocations = []domain.ToolInvocation{}
	for rows.Next() {
		var (
			inv      domain.ToolInvocation
			duration int64
		)
		if err := rows.Scan(&inv.Tool, &inv.Arguments, &inv.Result, &duration); err != nil {
			return domain.Round{}, fmt.Errorf("sqlite: failed to scan invocation: %w", err)
		}
		inv.Duration = time.Duration(duration)
		r.Invocations = append(r.Invocations, inv)
	}
	if err := rows.Err(); err != nil {
		return domain.Round{}, fmt.Errorf("sqlite: failed to iterate invocations: %w", err)
	}

	return r, nil
}

// History returns the captured tool responses of a session in insertion order.
func (a *Adapter) History(ctx context.Context, sessionID string) (domain.History, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT tool_response FROM rounds
		WHERE session_id = ? AND tool_response IS NOT NULL
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return domain.History{}, fmt.Errorf("sqlite: failed to load history: %w", err)
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return domain.History{}, fmt.Errorf("sqlite: failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return domain.History{}, fmt.Errorf("sqlite: failed to iterate history: %w", err)
	}
	return domain.NewHistory(entries...), nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS rounds (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		game_state TEXT NOT NULL,
		output TEXT NOT NULL,
		tool_response TEXT,
		iterations INTEGER NOT NULL DEFAULT 0,
		hit_iteration_limit INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, seq);

	CREATE TABLE IF NOT EXISTS tool_invocations (
		round_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		tool TEXT NOT NULL,
		arguments TEXT NOT NULL,
		result TEXT NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (round_id, position),
		FOREIGN KEY(round_id) REFERENCES rounds(id) ON DELETE CASCADE
	);
	`
	_, err := a.db.Exec(query)
	return err
}
