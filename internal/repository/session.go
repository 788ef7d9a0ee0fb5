package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/partyrush/backend/internal/domain"
)

type sessionRepo struct{}

// NewSessionRepository returns a pgx-backed SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepo{}
}

const sessionColumns = `id, code, status, created_at, started_at, ended_at,
	level_duration_seconds, min_players, auto_start`

func (r *sessionRepo) Create(ctx context.Context, db DBTX, s *domain.Session) error {
	_, err := db.Exec(ctx, `
		INSERT INTO sessions (id, code, status, created_at, level_duration_seconds, min_players, auto_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Code, s.Status, s.CreatedAt, s.LevelDurationSeconds, s.MinPlayers, s.AutoStart,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Session, error) {
	row := db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *sessionRepo) FindByCode(ctx context.Context, db DBTX, code string) (*domain.Session, error) {
	row := db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE code = $1`, code)
	return scanSession(row)
}

func (r *sessionRepo) CodeExists(ctx context.Context, db DBTX, code string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check session code: %w", err)
	}
	return exists, nil
}

// MarkActive relies on the conditional WHERE to make the transition
// exactly-once under racing start/join requests.
func (r *sessionRepo) MarkActive(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE sessions SET status = 'active', started_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("mark session active: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *sessionRepo) MarkFinished(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE sessions SET status = 'finished', ended_at = now()
		WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return false, fmt.Errorf("mark session finished: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.Code, &s.Status, &s.CreatedAt, &s.StartedAt, &s.EndedAt,
		&s.LevelDurationSeconds, &s.MinPlayers, &s.AutoStart)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}
