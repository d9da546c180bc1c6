// Package storage describes the contract every TinyApp storage backend
// (memory, JSON file, PostgreSQL) satisfies.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

// ErrEmailAlreadyExists is returned by CreateUser when a backend enforces
// email uniqueness itself (PostgreSQL does, through a unique index).
var ErrEmailAlreadyExists = errors.New("the email already exists")

// UserDirectory keeps registered accounts.
type UserDirectory interface {
	CreateUser(ctx context.Context, usr *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

// URLDirectory keeps shortened URLs and their owners.
type URLDirectory interface {
	GetURL(ctx context.Context, shortID string) (*models.URL, bool, error)
	InsertURL(ctx context.Context, url *models.URL) error
	UpdateLongURL(ctx context.Context, shortID, longURL string) error
	DeleteURL(ctx context.Context, shortID string) error
	ListURLsForOwner(ctx context.Context, ownerID string) (models.URLs, error)
	GetNumberOfURLs(ctx context.Context) (int64, error)
}

type Storage interface {
	UserDirectory
	URLDirectory
	Ping(ctx context.Context) error
	Close() error
}
