package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harukcal/internal/app/db"
)

// PostgresRepository stores members in PostgreSQL. The schema lives in internal/app/db.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a repository over pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const memberColumns = `id, nickname, name, email, password_hash, profile_image_url, role,
	height, weight, target_calories, activity_level, birth_at, gender, created_at, updated_at`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.ID, &m.Nickname, &m.Name, &m.Email, &m.PasswordHash, &m.ProfileImageURL, &m.Role,
		&m.Height, &m.Weight, &m.TargetCalories, &m.ActivityLevel, &m.BirthAt, &m.Gender,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *Member) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO members (nickname, name, email, password_hash, profile_image_url, role,
			height, weight, target_calories, activity_level, birth_at, gender)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		m.Nickname, m.Name, strings.ToLower(m.Email), m.PasswordHash, m.ProfileImageURL, m.Role,
		m.Height, m.Weight, m.TargetCalories, m.ActivityLevel, m.BirthAt, m.Gender,
	)
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
}

func (r *PostgresRepository) GetByNickname(ctx context.Context, nickname string) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE nickname = $1`, nickname))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email = $1`, strings.ToLower(email)))
}

func (r *PostgresRepository) Update(ctx context.Context, m *Member) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE members SET
			nickname = $2, name = $3, email = $4, password_hash = $5, profile_image_url = $6,
			role = $7, height = $8, weight = $9, target_calories = $10, activity_level = $11,
			birth_at = $12, gender = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Nickname, m.Name, strings.ToLower(m.Email), m.PasswordHash, m.ProfileImageURL,
		m.Role, m.Height, m.Weight, m.TargetCalories, m.ActivityLevel, m.BirthAt, m.Gender,
	)
	if err := row.Scan(&m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError(err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM revoked_tokens WHERE expires_at <= NOW()`)
	batch.Queue(`INSERT INTO revoked_tokens (token_id, expires_at) VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING`, tokenID, expiresAt)
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`, tokenID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

func mapWriteError(err error) error {
	if !db.IsUniqueViolation(err) {
		return err
	}
	switch db.ConstraintName(err) {
	case "members_email_key":
		return ErrEmailTaken
	default:
		return ErrNicknameTaken
	}
}

var _ Repository = (*PostgresRepository)(nil)
