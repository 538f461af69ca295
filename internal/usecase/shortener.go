package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nowisf/url-shortner/internal/entity"
)

// ShortenURL returns the URL record for originalURL, creating it when the
// original URL has not been shortened before. The boolean reports whether a
// new record was created.
//
// Codes are first drawn at the configured length; once maxRetries of them
// collide, another maxRetries attempts are made one character longer before
// ErrMaxRetriesExceeded is returned.
func (s *Shortener) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, bool, error) {
	const op = "usecase.Shortener.ShortenURL"

	if err := s.validate.Var(originalURL, "required,url"); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, ErrInvalidURL)
	}

	url, err := s.retrieveByOriginalURL(ctx, originalURL)
	if err == nil {
		return url, false, nil
	}
	if !errors.Is(err, entity.ErrURLNotFound) {
		return nil, false, fmt.Errorf("%s: failed to look up original url: %w", op, err)
	}

	for _, length := range []int{s.shortCodeLength, s.shortCodeLength + 1} {
		for i := 0; i < s.maxRetries; i++ {
			url, created, err := s.tryCreate(ctx, originalURL, length)
			if err != nil {
				if errors.Is(err, entity.ErrShortCodeExists) {
					continue
				}

				return nil, false, fmt.Errorf("%s: %w", op, err)
			}

			return url, created, nil
		}
	}

	return nil, false, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// tryCreate makes a single allocation attempt with a fresh code of the given length.
func (s *Shortener) tryCreate(ctx context.Context, originalURL string, length int) (*entity.URL, bool, error) {
	shortCode, err := s.generate(length)
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate short code: %w", err)
	}

	_, err = s.retrieveByShortCode(ctx, shortCode)
	if err == nil {
		s.logger.Debug("short code collision", slog.String("short_code", shortCode))
		return nil, false, entity.ErrShortCodeExists
	}
	if !errors.Is(err, entity.ErrURLNotFound) {
		return nil, false, fmt.Errorf("failed to check short code: %w", err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate id: %w", err)
	}

	url := &entity.URL{
		ID:          id,
		OriginalURL: originalURL,
		ShortCode:   shortCode,
		CreatedAt:   s.now().UTC(),
	}

	err = s.save(ctx, url)
	switch {
	case err == nil:
		return url, true, nil
	case errors.Is(err, entity.ErrShortCodeExists):
		s.logger.Debug("short code taken on save", slog.String("short_code", shortCode))
		return nil, false, err
	case errors.Is(err, entity.ErrOriginalURLExists):
		// A concurrent request shortened the same URL first.
		existing, err := s.retrieveByOriginalURL(ctx, originalURL)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up original url: %w", err)
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("failed to save url: %w", err)
	}
}

func (s *Shortener) retrieveByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.repo.RetrieveByOriginalURL(ctx, originalURL)
}

func (s *Shortener) retrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.repo.RetrieveByShortCode(ctx, shortCode)
}

func (s *Shortener) save(ctx context.Context, url *entity.URL) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.repo.Save(ctx, url)
}
