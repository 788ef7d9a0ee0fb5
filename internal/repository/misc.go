package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/partyrush/backend/internal/domain"
)

type snapshotRepo struct{}

// NewSnapshotRepository returns a pgx-backed SnapshotRepository.
func NewSnapshotRepository() SnapshotRepository {
	return &snapshotRepo{}
}

func (r *snapshotRepo) Insert(ctx context.Context, db DBTX, s *domain.LeaderboardSnapshot) error {
	_, err := db.Exec(ctx, `
		INSERT INTO leaderboard_snapshots (id, session_id, payload, created_at)
		VALUES ($1, $2, $3, $4)`,
		s.ID, s.SessionID, s.Payload, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert leaderboard snapshot: %w", err)
	}
	return nil
}

type selfieRepo struct{}

// NewSelfieRepository returns a pgx-backed SelfieRepository.
func NewSelfieRepository() SelfieRepository {
	return &selfieRepo{}
}

func (r *selfieRepo) Insert(ctx context.Context, db DBTX, s *domain.Selfie) error {
	_, err := db.Exec(ctx, `
		INSERT INTO selfies (id, player_id, session_id, task, file_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.PlayerID, s.SessionID, s.Task, s.FileName, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert selfie: %w", err)
	}
	return nil
}

func (r *selfieRepo) ListBySession(ctx context.Context, db DBTX, sessionID uuid.UUID) ([]domain.Selfie, error) {
	rows, err := db.Query(ctx, `
		SELECT id, player_id, session_id, task, file_name, created_at
		FROM selfies WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list selfies: %w", err)
	}
	defer rows.Close()

	var out []domain.Selfie
	for rows.Next() {
		var s domain.Selfie
		if err := rows.Scan(&s.ID, &s.PlayerID, &s.SessionID, &s.Task, &s.FileName, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan selfie: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type adminRepo struct{}

// NewAdminRepository returns a pgx-backed AdminRepository.
func NewAdminRepository() AdminRepository {
	return &adminRepo{}
}

func (r *adminRepo) FindByUsername(ctx context.Context, db DBTX, username string) (*domain.AdminUser, error) {
	row := db.QueryRow(ctx, `
		SELECT id, username, password_hash, is_active, created_at
		FROM admin_users WHERE username = $1`, username)
	return scanAdmin(row)
}

func (r *adminRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.AdminUser, error) {
	row := db.QueryRow(ctx, `
		SELECT id, username, password_hash, is_active, created_at
		FROM admin_users WHERE id = $1`, id)
	return scanAdmin(row)
}

func scanAdmin(row pgx.Row) (*domain.AdminUser, error) {
	var a domain.AdminUser
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan admin user: %w", err)
	}
	return &a, nil
}
