// Package profiles owns profile writes and reads, including field validation.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/glimmerapp/backend/internal/domain/model"
	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
)

const (
	MaxNameChars = 100
	MaxBioChars  = 500
	MaxListItems = 20
	MaxItemChars = 50
	MaxLinks     = 5
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

type Store interface {
	Upsert(ctx context.Context, rec pgrepo.ProfileRecord) (pgrepo.ProfileRecord, error)
	GetByID(ctx context.Context, userID uuid.UUID) (pgrepo.ProfileRecord, error)
}

// Input is the writable part of a profile.
type Input struct {
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Skills      []string `json:"skills"`
	Interests   []string `json:"interests"`
	Links       []string `json:"links"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Save validates and upserts the user's profile. Writes are full replacements
// of the writable fields; the photo url is managed by the media service.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, in Input) (model.Profile, error) {
	if userID == uuid.Nil {
		return model.Profile{}, ErrValidation
	}
	if s.store == nil {
		return model.Profile{}, fmt.Errorf("profile store is not configured")
	}

	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validateInput(in); err != nil {
		return model.Profile{}, err
	}

	rec, err := s.store.Upsert(ctx, pgrepo.ProfileRecord{
		UserID:      userID,
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		Skills:      normalizeList(in.Skills),
		Interests:   normalizeList(in.Interests),
		Links:       normalizeList(in.Links),
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	return toProfile(rec), nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	if userID == uuid.Nil {
		return model.Profile{}, ErrValidation
	}
	if s.store == nil {
		return model.Profile{}, fmt.Errorf("profile store is not configured")
	}

	rec, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, err
	}

	return toProfile(rec), nil
}

func validateInput(in Input) error {
	if in.DisplayName == "" || utf8.RuneCountInString(in.DisplayName) > MaxNameChars {
		return fmt.Errorf("%w: display name must be 1 to %d characters", ErrValidation, MaxNameChars)
	}
	if utf8.RuneCountInString(in.Bio) > MaxBioChars {
		return fmt.Errorf("%w: bio exceeds %d characters", ErrValidation, MaxBioChars)
	}
	if err := validateList("skills", in.Skills); err != nil {
		return err
	}
	if err := validateList("interests", in.Interests); err != nil {
		return err
	}
	if len(in.Links) > MaxLinks {
		return fmt.Errorf("%w: at most %d links", ErrValidation, MaxLinks)
	}
	for _, link := range in.Links {
		if !isValidLink(link) {
			return fmt.Errorf("%w: invalid link %q", ErrValidation, link)
		}
	}
	return nil
}

func validateList(field string, items []string) error {
	if len(items) < 1 || len(items) > MaxListItems {
		return fmt.Errorf("%w: %s must have 1 to %d entries", ErrValidation, field, MaxListItems)
	}
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxItemChars {
			return fmt.Errorf("%w: each of %s must be 1 to %d characters", ErrValidation, field, MaxItemChars)
		}
	}
	return nil
}

// isValidLink accepts absolute http(s) URLs only.
func isValidLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.TrimSpace(item))
	}
	return out
}

func toProfile(rec pgrepo.ProfileRecord) model.Profile {
	return model.Profile{
		UserID:      rec.UserID,
		DisplayName: rec.DisplayName,
		Bio:         rec.Bio,
		Skills:      rec.Skills,
		Interests:   rec.Interests,
		Links:       rec.Links,
		PhotoURL:    rec.PhotoURL,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
