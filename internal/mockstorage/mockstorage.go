// Package mockstorage provides a testify-based mock implementation
// of storage.Storage. It is used for unit testing HTTP handlers and the
// gRPC health server by simulating storage behavior.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *models.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*models.User, bool, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Bool(1), args.Error(2)
}

// GetNumberOfUsers mocks counting registered users.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetURL(ctx context.Context, shortID string) (*models.URL, bool, error) {
	args := m.Called(ctx, shortID)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Bool(1), args.Error(2)
}

func (m *StorageMock) InsertURL(ctx context.Context, url *models.URL) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *StorageMock) UpdateLongURL(ctx context.Context, shortID, longURL string) error {
	args := m.Called(ctx, shortID, longURL)
	return args.Error(0)
}

func (m *StorageMock) DeleteURL(ctx context.Context, shortID string) error {
	args := m.Called(ctx, shortID)
	return args.Error(0)
}

// ListURLsForOwner mocks fetching a user's short URLs.
func (m *StorageMock) ListURLsForOwner(ctx context.Context, ownerID string) (models.URLs, error) {
	args := m.Called(ctx, ownerID)
	urls, _ := args.Get(0).(models.URLs)
	return urls, args.Error(1)
}

// GetNumberOfURLs mocks counting stored short URLs.
func (m *StorageMock) GetNumberOfURLs(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
