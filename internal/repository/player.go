package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/partyrush/backend/internal/domain"
)

type playerRepo struct{}

// NewPlayerRepository returns a pgx-backed PlayerRepository.
func NewPlayerRepository() PlayerRepository {
	return &playerRepo{}
}

const playerColumns = `id, session_id, name, device_uuid, token, status, current_level,
	total_score, bonus_score, role, role_buff, last_seen, is_connected,
	device_type, ip_address, user_agent, created_at`

func (r *playerRepo) Create(ctx context.Context, db DBTX, p *domain.Player) error {
	_, err := db.Exec(ctx, `
		INSERT INTO players (id, session_id, name, device_uuid, token, status, current_level,
			total_score, bonus_score, role, role_buff, is_connected,
			device_type, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ID, p.SessionID, p.Name, p.DeviceUUID, p.Token, p.Status, p.CurrentLevel,
		p.TotalScore, p.BonusScore, nullIfEmpty(p.Role), p.RoleBuff, p.IsConnected,
		nullIfEmpty(p.DeviceType), nullIfEmpty(p.IPAddress), nullIfEmpty(p.UserAgent), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (r *playerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error) {
	row := db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (r *playerRepo) FindByToken(ctx context.Context, db DBTX, token string) (*domain.Player, error) {
	row := db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE token = $1`, token)
	return scanPlayer(row)
}

func (r *playerRepo) FindByDevice(ctx context.Context, db DBTX, sessionID, deviceUUID uuid.UUID) (*domain.Player, error) {
	row := db.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE session_id = $1 AND device_uuid = $2`, sessionID, deviceUUID)
	return scanPlayer(row)
}

func (r *playerRepo) ListBySession(ctx context.Context, db DBTX, sessionID uuid.UUID) ([]domain.Player, error) {
	rows, err := db.Query(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func (r *playerRepo) CountBySession(ctx context.Context, db DBTX, sessionID uuid.UUID) (total, ready int, err error) {
	err = db.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = 'ready')
		FROM players WHERE session_id = $1`, sessionID).Scan(&total, &ready)
	if err != nil {
		return 0, 0, fmt.Errorf("count players: %w", err)
	}
	return total, ready, nil
}

func (r *playerRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Player, error) {
	row := tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, id)
	return scanPlayer(row)
}

// AddScore uses server-side arithmetic so two concurrent deltas cannot
// produce a lost update.
func (r *playerRepo) AddScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, bucket domain.ScoreBucket, delta int) (*domain.Player, error) {
	column := "bonus_score"
	if bucket == domain.BucketTotal {
		column = "total_score"
	}
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE players SET %s = %s + $1
		WHERE id = $2
		RETURNING `+playerColumns, column, column), delta, id)
	return scanPlayer(row)
}

func (r *playerRepo) SetTotalScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, total int) error {
	_, err := tx.Exec(ctx, `UPDATE players SET total_score = $1 WHERE id = $2`, total, id)
	if err != nil {
		return fmt.Errorf("set total score: %w", err)
	}
	return nil
}

func (r *playerRepo) UpdateResume(ctx context.Context, db DBTX, p *domain.Player) error {
	_, err := db.Exec(ctx, `
		UPDATE players SET name = $1, status = $2, last_seen = now(), is_connected = true,
			device_type = $3, ip_address = $4, user_agent = $5
		WHERE id = $6`,
		p.Name, p.Status, nullIfEmpty(p.DeviceType), nullIfEmpty(p.IPAddress), nullIfEmpty(p.UserAgent), p.ID,
	)
	if err != nil {
		return fmt.Errorf("resume player: %w", err)
	}
	return nil
}

func (r *playerRepo) UpdateLevelStatus(ctx context.Context, db DBTX, id uuid.UUID, level domain.Level, status domain.PlayerStatus) error {
	_, err := db.Exec(ctx, `UPDATE players SET current_level = $1, status = $2 WHERE id = $3`, level, status, id)
	if err != nil {
		return fmt.Errorf("update player level: %w", err)
	}
	return nil
}

func (r *playerRepo) MarkAllPlaying(ctx context.Context, db DBTX, sessionID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE players SET status = 'playing', current_level = 'green'
		WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("mark players playing: %w", err)
	}
	return nil
}

func (r *playerRepo) TouchPresence(ctx context.Context, db DBTX, id uuid.UUID, connected bool) error {
	_, err := db.Exec(ctx, `UPDATE players SET last_seen = now(), is_connected = $1 WHERE id = $2`, connected, id)
	if err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	return nil
}

func (r *playerRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) error {
	_, err := db.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return nil
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	var role, deviceType, ip, ua *string
	err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.DeviceUUID, &p.Token, &p.Status, &p.CurrentLevel,
		&p.TotalScore, &p.BonusScore, &role, &p.RoleBuff, &p.LastSeen, &p.IsConnected,
		&deviceType, &ip, &ua, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	p.Role = deref(role)
	p.DeviceType = deref(deviceType)
	p.IPAddress = deref(ip)
	p.UserAgent = deref(ua)
	return &p, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
