// Package service implements the TinyApp use cases: registration, login and
// the owner-checked management of short URLs.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/guard"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/randstr"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type urlKeeper interface {
	GetURL(ctx context.Context, shortID string) (*models.URL, bool, error)
	InsertURL(ctx context.Context, url *models.URL) error
	UpdateLongURL(ctx context.Context, shortID, longURL string) error
	DeleteURL(ctx context.Context, shortID string) error
	ListURLsForOwner(ctx context.Context, ownerID string) (models.URLs, error)
	GetNumberOfURLs(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storageKeeper interface {
	userKeeper
	urlKeeper
	pinger
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

var (
	ErrEmptyCredentials   = errors.New("The email and/or password fields are empty")
	ErrEmailAlreadyExists = errors.New("The email already exists")
	ErrEmailNotFound      = errors.New("Email cannot be found")
	ErrIncorrectPassword  = errors.New("Incorrect password")
	ErrEmptyLongURL       = errors.New("The long URL field is empty")
)

type Service struct {
	db                storageKeeper
	guard             *guard.Guard
	hasher            passwordHasher
	shortURLBase      string
	idGenerationTries int
}

func New(
	db storageKeeper,
	hasher passwordHasher,
	shortURLBase string,
	idGenerationTries int,
) *Service {
	return &Service{
		db:                db,
		guard:             guard.New(db),
		hasher:            hasher,
		shortURLBase:      strings.TrimRight(shortURLBase, "/"),
		idGenerationTries: idGenerationTries,
	}
}

func (s *Service) userIDExists(ctx context.Context, candidate string) (bool, error) {
	_, found, err := s.db.GetUserByID(ctx, candidate)
	return found, err
}

func (s *Service) shortIDExists(ctx context.Context, candidate string) (bool, error) {
	_, found, err := s.db.GetURL(ctx, candidate)
	return found, err
}

// Register creates an account for email. Both fields must be non-empty and
// the email must not be taken yet.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	_, found, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ErrEmailAlreadyExists
	}

	userID, err := randstr.GenerateUnique(ctx, randstr.IDLength, s.idGenerationTries, s.userIDExists)
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	usr := &models.User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
	}
	err = s.db.CreateUser(ctx, usr)
	if errors.Is(err, storage.ErrEmailAlreadyExists) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// Login returns the account matching email when password is correct.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	usr, found, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrEmailNotFound
	}
	if !s.hasher.Check(password, usr.PasswordHash) {
		return nil, ErrIncorrectPassword
	}

	return usr, nil
}

// CreateURL stores longURL under a fresh short ID owned by ownerID.
func (s *Service) CreateURL(ctx context.Context, ownerID, longURL string) (string, error) {
	if ownerID == "" {
		return "", guard.ErrUnauthenticated
	}
	if longURL == "" {
		return "", ErrEmptyLongURL
	}

	shortID, err := randstr.GenerateUnique(ctx, randstr.IDLength, s.idGenerationTries, s.shortIDExists)
	if err != nil {
		return "", err
	}

	err = s.db.InsertURL(ctx, &models.URL{
		ShortID: shortID,
		LongURL: longURL,
		OwnerID: ownerID,
	})
	if err != nil {
		return "", err
	}

	return shortID, nil
}

func (s *Service) authorize(ctx context.Context, shortID, callerID string) (*models.URL, error) {
	verdict, err := s.guard.Authorize(ctx, shortID, callerID)
	if err != nil {
		return nil, err
	}
	if verdict.Kind != guard.Authorized {
		logger.Log.Debugw("access denied", "short_id", shortID, "caller", callerID, "verdict", verdict.Kind.String())
		return nil, verdict.Err()
	}

	return verdict.URL, nil
}

// GetOwnedURL returns the record if callerID owns it.
func (s *Service) GetOwnedURL(ctx context.Context, shortID, callerID string) (*models.URL, error) {
	return s.authorize(ctx, shortID, callerID)
}

// UpdateURL points shortID at newLongURL if callerID owns it.
func (s *Service) UpdateURL(ctx context.Context, shortID, callerID, newLongURL string) error {
	if _, err := s.authorize(ctx, shortID, callerID); err != nil {
		return err
	}
	if newLongURL == "" {
		return ErrEmptyLongURL
	}

	return s.db.UpdateLongURL(ctx, shortID, newLongURL)
}

// DeleteURL removes shortID if callerID owns it.
func (s *Service) DeleteURL(ctx context.Context, shortID, callerID string) error {
	if _, err := s.authorize(ctx, shortID, callerID); err != nil {
		return err
	}

	return s.db.DeleteURL(ctx, shortID)
}

// RemoveUsersURLs deletes, per user, those of the listed short IDs the user owns.
// IDs failing the ownership check are skipped.
func (s *Service) RemoveUsersURLs(ctx context.Context, usersURLs map[string][]string) error {
	for userID, shortIDs := range usersURLs {
		for _, shortID := range funk.UniqString(shortIDs) {
			err := s.DeleteURL(ctx, shortID, userID)
			if err == nil {
				continue
			}
			if errors.Is(err, guard.ErrNotFound) || errors.Is(err, guard.ErrForbidden) {
				logger.Log.Debugln("skipping removal of", shortID, "for user", userID, zap.Error(err))
				continue
			}
			return err
		}
	}

	return nil
}

// ListURLs returns the URLs owned by ownerID.
func (s *Service) ListURLs(ctx context.Context, ownerID string) (models.URLs, error) {
	if ownerID == "" {
		return nil, guard.ErrUnauthenticated
	}

	return s.db.ListURLsForOwner(ctx, ownerID)
}

// SortedShortIDs returns the keys of urls in lexical order.
func SortedShortIDs(urls models.URLs) []string {
	if len(urls) == 0 {
		return []string{}
	}
	shortIDs := funk.Keys(urls).([]string)
	sort.Strings(shortIDs)

	return shortIDs
}

// GetUserURLs lists the owner's URLs in the JSON API shape.
func (s *Service) GetUserURLs(ctx context.Context, ownerID string) (models.UserUrls, error) {
	urls, err := s.ListURLs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result := make(models.UserUrls, 0, len(urls))
	for _, shortID := range SortedShortIDs(urls) {
		result = append(result, models.UserURL{
			ShortURL:    s.GetShortURL(shortID),
			OriginalURL: urls[shortID].LongURL,
		})
	}

	return result, nil
}

// ResolveRedirect returns the redirect target of shortID. It checks existence only:
// anyone may follow a short URL. Targets without a scheme get "http://".
func (s *Service) ResolveRedirect(ctx context.Context, shortID string) (string, error) {
	record, found, err := s.db.GetURL(ctx, shortID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", guard.ErrNotFound
	}

	return withScheme(record.LongURL), nil
}

func withScheme(longURL string) string {
	lower := strings.ToLower(longURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return longURL
	}

	return "http://" + longURL
}

// GetUser returns the user with userID, if any.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, bool, error) {
	return s.db.GetUserByID(ctx, userID)
}

// GetInternalStats returns the total amount of short URLs and users.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	urls, err := s.db.GetNumberOfURLs(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		URLs:  urls,
		Users: users,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetShortURL formats the public redirect address of shortID.
func (s *Service) GetShortURL(shortID string) string {
	return s.shortURLBase + "/u/" + shortID
}
