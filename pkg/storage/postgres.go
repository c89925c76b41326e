package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleylabs/interviewd/pkg/analysis"
	"github.com/parleylabs/interviewd/pkg/interview"
)

// PostgresStore persists records in Postgres through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

func (s *PostgresStore) Close() { s.pool.Close() }

// SaveInterview upserts the interview row and rewrites its turns in one
// transaction, so re-saving an ended interview is idempotent.
func (s *PostgresStore) SaveInterview(ctx context.Context, rec interview.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save interview: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO interviews (id, started_at, ended_at, phase, generation, topics, transcript)
		VALUES ($1, $2, NULLIF($3, 'epoch'::timestamptz), $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at,
			phase = EXCLUDED.phase,
			generation = EXCLUDED.generation,
			topics = EXCLUDED.topics,
			transcript = EXCLUDED.transcript`,
		rec.ID, rec.StartedAt, rec.EndedAt, rec.Phase, int64(rec.Generation), rec.Topics, rec.Transcript)
	if err != nil {
		return fmt.Errorf("save interview: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM interview_turns WHERE interview_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("save interview turns: %w", err)
	}
	for _, t := range rec.History {
		_, err := tx.Exec(ctx, `
			INSERT INTO interview_turns (interview_id, generation, user_text, assistant_text, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			rec.ID, int64(t.Generation), t.User, t.Assistant, t.Timestamp)
		if err != nil {
			return fmt.Errorf("save interview turns: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save interview: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadInterview(ctx context.Context, id string) (interview.Record, error) {
	var rec interview.Record
	var generation int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, started_at, COALESCE(ended_at, 'epoch'::timestamptz), phase, generation, topics, transcript
		FROM interviews WHERE id = $1`, id).
		Scan(&rec.ID, &rec.StartedAt, &rec.EndedAt, &rec.Phase, &generation, &rec.Topics, &rec.Transcript)
	if errors.Is(err, pgx.ErrNoRows) {
		return interview.Record{}, ErrNotFound
	}
	if err != nil {
		return interview.Record{}, fmt.Errorf("load interview: %w", err)
	}
	rec.Generation = uint64(generation)

	rows, err := s.pool.Query(ctx, `
		SELECT generation, user_text, assistant_text, created_at
		FROM interview_turns WHERE interview_id = $1 ORDER BY generation`, id)
	if err != nil {
		return interview.Record{}, fmt.Errorf("load interview turns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t interview.TurnRecord
		var gen int64
		if err := rows.Scan(&gen, &t.User, &t.Assistant, &t.Timestamp); err != nil {
			return interview.Record{}, fmt.Errorf("load interview turns: %w", err)
		}
		t.Generation = uint64(gen)
		rec.History = append(rec.History, t)
	}
	if err := rows.Err(); err != nil {
		return interview.Record{}, fmt.Errorf("load interview turns: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, rec analysis.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_results (document_id, kind, summary, skills, topics, questions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			summary = EXCLUDED.summary,
			skills = EXCLUDED.skills,
			topics = EXCLUDED.topics,
			questions = EXCLUDED.questions`,
		rec.DocumentID, rec.Kind, rec.Summary, rec.Skills, rec.Topics, rec.Questions)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadAnalysis(ctx context.Context, documentID string) (analysis.Record, error) {
	var rec analysis.Record
	err := s.pool.QueryRow(ctx, `
		SELECT document_id, kind, summary, skills, topics, questions
		FROM analysis_results WHERE document_id = $1`, documentID).
		Scan(&rec.DocumentID, &rec.Kind, &rec.Summary, &rec.Skills, &rec.Topics, &rec.Questions)
	if errors.Is(err, pgx.ErrNoRows) {
		return analysis.Record{}, analysis.ErrNotFound
	}
	if err != nil {
		return analysis.Record{}, fmt.Errorf("load analysis: %w", err)
	}
	return rec, nil
}
