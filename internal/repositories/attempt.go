package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/shared"
)

var _ models.Repository[*models.Attempt] = (*AttemptRepository)(nil)

// AttemptRepository implements [models.Repository] for [models.Attempt] persistence.
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new [AttemptRepository] with the given database connection
func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new attempt with generated ID and sequence
func (r *AttemptRepository) Create(attempt *models.Attempt) error {
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "attempts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO attempts (id, sequence, port, mode, outcome, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		attempt.Port(),
		string(attempt.Mode()),
		string(attempt.Outcome()),
		attempt.ErrorMessage(),
		attempt.CreatedAt(),
		nullTime(attempt.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	attempt.SetID(id)
	attempt.SetSequence(sequence)
	return nil
}

// Get retrieves an attempt by ID
func (r *AttemptRepository) Get(id string) (*models.Attempt, error) {
	query := `
		SELECT id, sequence, port, mode, outcome, error, started_at, finished_at
		FROM attempts
		WHERE id = ?
	`

	attempt, err := scanAttempt(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attempt %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt: %w", err)
	}
	return attempt, nil
}

// Update stores the attempt's port, outcome, error and finish time
func (r *AttemptRepository) Update(attempt *models.Attempt) error {
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE attempts
		SET port = ?, mode = ?, outcome = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		attempt.Port(),
		string(attempt.Mode()),
		string(attempt.Outcome()),
		attempt.ErrorMessage(),
		nullTime(attempt.FinishedAt()),
		attempt.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	return expectOneRow(result, attempt.ID())
}

// Delete removes an attempt by ID
func (r *AttemptRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM attempts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete attempt: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves attempts newest first.
//
// Supported criteria: "outcome" ([models.Outcome] or string) and "limit" (int, ignored when not positive).
func (r *AttemptRepository) List(criteria map[string]any) ([]*models.Attempt, error) {
	query := `
		SELECT id, sequence, port, mode, outcome, error, started_at, finished_at
		FROM attempts
		WHERE 1 = 1
	`

	args := []any{}

	switch outcome := criteria["outcome"].(type) {
	case models.Outcome:
		if outcome != "" {
			query += " AND outcome = ?"
			args = append(args, string(outcome))
		}
	case string:
		if outcome != "" {
			query += " AND outcome = ?"
			args = append(args, outcome)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return attempts, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*models.Attempt, error) {
	var (
		id         string
		sequence   int
		port       int
		mode       string
		outcome    string
		message    string
		startedAt  time.Time
		finishedAt sql.NullTime
	)

	if err := s.Scan(&id, &sequence, &port, &mode, &outcome, &message, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	parsed, err := models.ParseOutcome(outcome)
	if err != nil {
		return nil, err
	}

	attempt := models.NewAttempt(sequence, models.Mode(mode), port)
	attempt.SetID(id)
	attempt.SetStartedAt(startedAt)

	var finished *time.Time
	if finishedAt.Valid {
		finished = &finishedAt.Time
	}
	attempt.SetResult(parsed, message, finished)

	return attempt, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: attempt %s", shared.ErrNotFound, id)
	}
	return nil
}
