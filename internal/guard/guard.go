// Package guard decides whether a caller may view, edit or delete a short URL.
//
// The checks always run in the same order: existence, then authentication,
// then ownership. Existence is therefore observable without logging in.
package guard

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

// Kind enumerates the possible outcomes of an authorization check.
type Kind int

const (
	NotFound Kind = iota
	Unauthenticated
	Forbidden
	Authorized
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Unauthenticated:
		return "Unauthenticated"
	case Forbidden:
		return "Forbidden"
	case Authorized:
		return "Authorized"
	}

	return "Unknown"
}

var (
	ErrNotFound        = errors.New("ID does not exist")
	ErrUnauthenticated = errors.New("You are not logged in to access this URL")
	ErrForbidden       = errors.New("You are unauthorized to access this URL")
)

// Verdict is the result of Authorize. URL is set only when Kind is Authorized.
type Verdict struct {
	Kind Kind
	URL  *models.URL
}

// Err maps a non-authorized verdict to its sentinel error, or nil.
func (v Verdict) Err() error {
	switch v.Kind {
	case NotFound:
		return ErrNotFound
	case Unauthenticated:
		return ErrUnauthenticated
	case Forbidden:
		return ErrForbidden
	}

	return nil
}

// Decide applies the existence, authentication and ownership checks to an
// already fetched record. An empty callerID means no session.
func Decide(record *models.URL, found bool, callerID string) Verdict {
	if !found || record == nil {
		return Verdict{Kind: NotFound}
	}
	if callerID == "" {
		return Verdict{Kind: Unauthenticated}
	}
	if record.OwnerID != callerID {
		return Verdict{Kind: Forbidden}
	}

	return Verdict{Kind: Authorized, URL: record}
}

type urlGetter interface {
	GetURL(ctx context.Context, shortID string) (*models.URL, bool, error)
}

type Guard struct {
	db urlGetter
}

func New(db urlGetter) *Guard {
	return &Guard{db: db}
}

// Authorize looks shortID up and decides what callerID may do with it.
// The error is non-nil only when the lookup itself fails.
func (g *Guard) Authorize(ctx context.Context, shortID, callerID string) (Verdict, error) {
	record, found, err := g.db.GetURL(ctx, shortID)
	if err != nil {
		return Verdict{}, err
	}

	return Decide(record, found, callerID), nil
}
