// Package shortcode generates random short codes for shortened URLs.
package shortcode

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of characters short codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrInvalidLength is returned when a non-positive code length is requested.
var ErrInvalidLength = errors.New("invalid short code length")

// Generate returns a code of the given length whose characters are drawn
// independently and uniformly from Alphabet.
func Generate(length int) (string, error) {
	const op = "shortcode.Generate"

	if length <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate code: %w", op, err)
	}

	return code, nil
}
