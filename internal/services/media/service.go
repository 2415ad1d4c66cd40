// Package media handles profile photo uploads: normalization, object storage,
// and the profile photo url.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrUnsupportedImage = errors.New("unsupported image payload")
	ErrProfileNotFound  = errors.New("profile not found")
)

const maxUploadBytes = 10 << 20

type ProfileStore interface {
	SetPhotoURL(ctx context.Context, userID uuid.UUID, photoURL string) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

type Service struct {
	profiles  ProfileStore
	storage   ObjectStorage
	processor *Processor
	now       func() time.Time
}

func NewService(profiles ProfileStore, storage ObjectStorage, processor *Processor) *Service {
	if processor == nil {
		processor = NewProcessor(0, 0)
	}
	return &Service{
		profiles:  profiles,
		storage:   storage,
		processor: processor,
		now:       time.Now,
	}
}

// UploadProfilePhoto normalizes the payload, stores it, and points the user's
// profile at the new object. A failed profile update removes the object so no
// orphan is left behind.
func (s *Service) UploadProfilePhoto(ctx context.Context, userID uuid.UUID, body io.Reader, size int64) (string, error) {
	if userID == uuid.Nil || body == nil || size <= 0 {
		return "", ErrValidation
	}
	if size > maxUploadBytes {
		return "", fmt.Errorf("%w: payload exceeds %d bytes", ErrValidation, maxUploadBytes)
	}
	if s.profiles == nil || s.storage == nil {
		return "", fmt.Errorf("media dependencies are not configured")
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	normalized, err := s.processor.Process(io.LimitReader(body, maxUploadBytes))
	if err != nil {
		return "", err
	}

	key := buildPhotoObjectKey(userID, s.now().UTC())
	if err := s.storage.PutObject(ctx, key, bytes.NewReader(normalized), int64(len(normalized)), "image/jpeg"); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	photoURL := s.storage.PublicURL(key)
	if err := s.profiles.SetPhotoURL(ctx, userID, photoURL); err != nil {
		_ = s.storage.Delete(ctx, key)
		return "", fmt.Errorf("set profile photo url: %w", err)
	}

	return photoURL, nil
}

func buildPhotoObjectKey(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("users/%s/photo/%s_%s.jpg",
		userID, now.Format("20060102T150405"), uuid.NewString()[:8])
}
