package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/onnwee/tunequiz/game"
)

// Store persists answer and round events for later review. It implements
// game.Recorder. Writes are best effort: failures are logged and never
// surfaced back to the engine.
type Store struct {
	DB *sql.DB
}

func NewStore(dbx *sql.DB) *Store { return &Store{DB: dbx} }

func (s *Store) RecordAnswer(ctx context.Context, ev game.AnswerEvent) {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.DB.ExecContext(wctx,
		`INSERT INTO answer_events(round, song_id, username, submission, rank, points, answered_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		ev.Round, ev.SongID, ev.Username, ev.Submission, ev.Rank, ev.Points, ev.At)
	if err != nil {
		slog.Warn("record answer event failed",
			slog.Int("round", ev.Round),
			slog.String("username", ev.Username),
			slog.Any("error", err),
			slog.String("component", "db_store"))
	}
}

func (s *Store) RecordRound(ctx context.Context, res game.RoundResult) {
	winners, err := json.Marshal(res.Winners)
	if err != nil {
		winners = []byte("[]")
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = s.DB.ExecContext(wctx,
		`INSERT INTO round_results(round, song_id, title, close_reason, winners, closed_at)
		 VALUES($1,$2,$3,$4,$5,$6)`,
		res.Round, res.SongID, res.Title, res.Reason, string(winners), res.ClosedAt)
	if err != nil {
		slog.Warn("record round result failed",
			slog.Int("round", res.Round),
			slog.String("reason", res.Reason),
			slog.Any("error", err),
			slog.String("component", "db_store"))
	}
}

// RecentRounds returns the most recent closed rounds, newest first.
type RoundRow struct {
	Round       int             `json:"round"`
	SongID      int             `json:"song_id"`
	Title       string          `json:"title"`
	CloseReason string          `json:"close_reason"`
	Winners     json.RawMessage `json:"winners"`
	ClosedAt    time.Time       `json:"closed_at"`
}

func (s *Store) RecentRounds(ctx context.Context, limit int) ([]RoundRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT round, song_id, title, close_reason, winners, closed_at
		 FROM round_results ORDER BY closed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RoundRow{}
	for rows.Next() {
		var r RoundRow
		if err := rows.Scan(&r.Round, &r.SongID, &r.Title, &r.CloseReason, &r.Winners, &r.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
