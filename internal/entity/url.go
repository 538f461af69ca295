// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, along with its
// associated metadata, and the errors reported by URL repositories.
package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrShortCodeExists is returned when attempting to save a URL whose short code or ID already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrOriginalURLExists is returned when attempting to save a URL whose original URL is already shortened.
	ErrOriginalURLExists = errors.New("original url exists")
	// ErrURLNotFound is returned when a URL with the specified short code or original URL cannot be found.
	ErrURLNotFound = errors.New("url not found")
)

// URL represents a shortened URL.
type URL struct {
	ID           uuid.UUID // ID is the unique identifier of the URL, assigned at creation.
	OriginalURL  string    // OriginalURL is the full URL that the short code resolves to.
	ShortCode    string    // ShortCode is the generated code used to shorten the original URL.
	CreatedAt    time.Time // CreatedAt is the timestamp when the URL was created.
	TimesClicked int64     // TimesClicked is the number of times the short code has been resolved.
}
