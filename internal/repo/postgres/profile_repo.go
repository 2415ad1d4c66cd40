package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

type ProfileRecord struct {
	UserID      uuid.UUID
	DisplayName string
	Bio         string
	Skills      []string
	Interests   []string
	Links       []string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const profileColumns = `user_id, display_name, bio, skills, interests, links, COALESCE(photo_url, ''), created_at, updated_at`

func (r *ProfileRepo) Upsert(ctx context.Context, rec ProfileRecord) (ProfileRecord, error) {
	if rec.UserID == uuid.Nil || rec.DisplayName == "" {
		return ProfileRecord{}, fmt.Errorf("invalid profile payload")
	}
	if r.pool == nil {
		return ProfileRecord{}, errors.New("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO profiles (
	user_id,
	display_name,
	bio,
	skills,
	interests,
	links,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	display_name = EXCLUDED.display_name,
	bio = EXCLUDED.bio,
	skills = EXCLUDED.skills,
	interests = EXCLUDED.interests,
	links = EXCLUDED.links,
	updated_at = NOW()
RETURNING `+profileColumns+`
`, rec.UserID, rec.DisplayName, rec.Bio, rec.Skills, rec.Interests, rec.Links)

	saved, err := scanProfile(row)
	if err != nil {
		return ProfileRecord{}, fmt.Errorf("upsert profile: %w", err)
	}

	return saved, nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, userID uuid.UUID) (ProfileRecord, error) {
	if userID == uuid.Nil {
		return ProfileRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return ProfileRecord{}, errors.New("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)

	rec, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("get profile: %w", err)
	}

	return rec, nil
}

func (r *ProfileRepo) SetPhotoURL(ctx context.Context, userID uuid.UUID, photoURL string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return errors.New("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE profiles
SET photo_url = $2, updated_at = NOW()
WHERE user_id = $1
`, userID, photoURL)
	if err != nil {
		return fmt.Errorf("set profile photo url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

func scanProfile(row pgx.Row) (ProfileRecord, error) {
	var rec ProfileRecord
	if err := row.Scan(
		&rec.UserID,
		&rec.DisplayName,
		&rec.Bio,
		&rec.Skills,
		&rec.Interests,
		&rec.Links,
		&rec.PhotoURL,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return ProfileRecord{}, err
	}
	return rec, nil
}
