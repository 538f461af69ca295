package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nowisf/url-shortner/internal/entity"
)

// ResolveShortCode returns the URL the short code points to and records a click.
// Recording the click is best effort: failures are logged and never returned.
func (r *Redirector) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.Redirector.ResolveShortCode"

	url, err := r.retrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	r.recordClick(ctx, shortCode)

	return url, nil
}

// recordClick runs detached from the caller's cancellation so that a client
// hanging up right after the redirect still gets its click counted.
func (r *Redirector) recordClick(ctx context.Context, shortCode string) {
	const op = "usecase.Redirector.recordClick"

	ctx, cancel := r.storeContext(context.WithoutCancel(ctx))
	defer cancel()

	if err := r.repo.IncrementClicks(ctx, shortCode); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record click",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}
}

// GetURLStats returns the URL with its click counter without modifying it.
func (r *Redirector) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.Redirector.GetURLStats"

	url, err := r.retrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}

// ListURLs returns every stored URL. It is meant for diagnostics.
func (r *Redirector) ListURLs(ctx context.Context) ([]*entity.URL, error) {
	const op = "usecase.Redirector.ListURLs"

	ctx, cancel := r.storeContext(ctx)
	defer cancel()

	urls, err := r.repo.RetrieveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return urls, nil
}

func (r *Redirector) retrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	ctx, cancel := r.storeContext(ctx)
	defer cancel()

	return r.repo.RetrieveByShortCode(ctx, shortCode)
}
