// Package randstr generates the short opaque identifiers used for users and URLs.
package randstr

import (
	"context"
	"errors"
	"math/rand/v2"
)

const (
	// IDLength is the length of generated user and short URL identifiers.
	IDLength = 6

	symbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var ErrTriesExceeded = errors.New("the number of attempts to generate a unique key has been exceeded")

// Generate returns length characters drawn uniformly from [a-zA-Z].
// The source is not cryptographically secure.
func Generate(length int) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = symbols[rand.IntN(len(symbols))]
	}

	return string(result)
}

// GenerateUnique regenerates until exists reports the candidate as free,
// giving up after tries attempts.
func GenerateUnique(
	ctx context.Context,
	length int,
	tries int,
	exists func(ctx context.Context, candidate string) (bool, error),
) (string, error) {
	for i := 0; i < tries; i++ {
		candidate := Generate(length)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ErrTriesExceeded
}
