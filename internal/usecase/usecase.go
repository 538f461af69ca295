// Package usecase implements the URL shortening business logic: allocating
// unique short codes for original URLs and resolving them back.
package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nowisf/url-shortner/internal/entity"
	"github.com/nowisf/url-shortner/pkg/shortcode"
)

var (
	// ErrInvalidURL is returned when the URL to shorten is missing or is not a valid absolute URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrMaxRetriesExceeded is returned when no free short code was found within the retry budget.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
)

const (
	defaultShortCodeLength = 5
	defaultMaxRetries      = 5
	defaultStoreTimeout    = 3 * time.Second
)

// URLRepository is the persistence contract the use cases depend on.
// Implementations must be safe for concurrent use and must enforce uniqueness
// of ID, short code and original URL themselves.
type URLRepository interface {
	// Save inserts a new URL. It fails with entity.ErrShortCodeExists when the ID or
	// short code is taken and with entity.ErrOriginalURLExists when the original URL is.
	Save(ctx context.Context, url *entity.URL) error

	// RetrieveByShortCode returns the URL with the given short code or entity.ErrURLNotFound.
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)

	// RetrieveByOriginalURL returns the URL shortening originalURL or entity.ErrURLNotFound.
	RetrieveByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error)

	// IncrementClicks atomically adds one to the click counter of the short code.
	// It fails with entity.ErrURLNotFound when the short code does not exist.
	IncrementClicks(ctx context.Context, shortCode string) error

	// RetrieveAll returns every stored URL ordered by creation date.
	RetrieveAll(ctx context.Context) ([]*entity.URL, error)
}

type options struct {
	shortCodeLength int
	maxRetries      int
	storeTimeout    time.Duration
	logger          *slog.Logger
}

// Option configures a Shortener or a Redirector.
type Option func(*options)

// WithShortCodeLength sets the length of generated short codes.
func WithShortCodeLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shortCodeLength = n
		}
	}
}

// WithMaxRetries sets how many codes are tried per code length before giving up.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithStoreTimeout bounds every repository call. A non-positive value disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) {
		o.storeTimeout = d
	}
}

// WithLogger sets the logger used for conditions that are handled rather than returned.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		shortCodeLength: defaultShortCodeLength,
		maxRetries:      defaultMaxRetries,
		storeTimeout:    defaultStoreTimeout,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func (o *options) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.storeTimeout)
}

// Shortener allocates short codes for original URLs.
type Shortener struct {
	options
	repo     URLRepository
	validate *validator.Validate
	generate func(length int) (string, error)
	now      func() time.Time
}

// NewShortener creates a Shortener storing URLs in repo.
func NewShortener(repo URLRepository, opts ...Option) *Shortener {
	return &Shortener{
		options:  newOptions(opts),
		repo:     repo,
		validate: validator.New(),
		generate: shortcode.Generate,
		now:      time.Now,
	}
}

// Redirector resolves short codes and reports their statistics.
type Redirector struct {
	options
	repo URLRepository
}

// NewRedirector creates a Redirector reading URLs from repo.
func NewRedirector(repo URLRepository, opts ...Option) *Redirector {
	return &Redirector{
		options: newOptions(opts),
		repo:    repo,
	}
}
