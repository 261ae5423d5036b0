package completion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/quizgame/internal/model"
)

// PlayerResult is one row of a finished game's results
type PlayerResult struct {
	GameID     model.GameID
	PlayerID   model.PlayerID
	Name       string
	Score      int
	Place      int
	FinishedAt time.Time
}

// Results flattens a finished game into one result per competing player.
// Tied players share a place.
func Results(g *model.Game) []PlayerResult {
	finishedAt := time.Time{}
	if g.FinishedAt != nil {
		finishedAt = *g.FinishedAt
	}

	standings := g.Standings()
	results := make([]PlayerResult, 0, len(standings))
	place := 0
	for i, s := range standings {
		if i == 0 || s.Score != standings[i-1].Score {
			place = i + 1
		}
		results = append(results, PlayerResult{
			GameID:     g.ID,
			PlayerID:   s.PlayerID,
			Name:       s.Name,
			Score:      s.Score,
			Place:      place,
			FinishedAt: finishedAt,
		})
	}
	return results
}

// Recorder persists the results of a finished game
type Recorder interface {
	Record(ctx context.Context, g *model.Game) error
}

// LogRecorder writes the results to the log. It is used when no database is
// configured.
type LogRecorder struct {
	logger *slog.Logger
}

func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.With(slog.String("component", "results"))}
}

func (r *LogRecorder) Record(_ context.Context, g *model.Game) error {
	for _, res := range Results(g) {
		r.logger.Info("player result",
			slog.String("game_id", string(res.GameID)),
			slog.String("player_id", string(res.PlayerID)),
			slog.Int("score", res.Score),
			slog.Int("place", res.Place))
	}
	return nil
}

const createResultsTable = `
CREATE TABLE IF NOT EXISTS game_results (
	game_id     TEXT        NOT NULL,
	player_id   TEXT        NOT NULL,
	player_name TEXT        NOT NULL,
	score       INTEGER     NOT NULL,
	place       INTEGER     NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, player_id)
)`

const insertResult = `
INSERT INTO game_results (game_id, player_id, player_name, score, place, finished_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (game_id, player_id) DO NOTHING`

// PostgresRecorder stores results in the game_results table
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder connects to the database and makes sure the results
// table exists
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createResultsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}
	return &PostgresRecorder{pool: pool}, nil
}

// Record inserts every player's result in one transaction. Recording the
// same game twice is a no-op.
func (r *PostgresRecorder) Record(ctx context.Context, g *model.Game) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, res := range Results(g) {
		_, err := tx.Exec(ctx, insertResult,
			string(res.GameID), string(res.PlayerID), res.Name, res.Score, res.Place, res.FinishedAt)
		if err != nil {
			return fmt.Errorf("insert result of %s: %w", res.PlayerID, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRecorder) Close() {
	r.pool.Close()
}
