// Package models holds the records shared between the storage backends,
// the service layer and the HTTP handlers.
package models

// User is an account registered through the /register form.
type User struct {
	// ID is the opaque identifier generated at registration.
	ID string `json:"id"`

	// Email is unique across the directory at registration time.
	Email string `json:"email"`

	// PasswordHash is a bcrypt hash of the user's password.
	PasswordHash string `json:"password"`
}

// URL is a shortened link owned by a single user.
type URL struct {
	ShortID string `json:"-"`
	LongURL string `json:"longURL"`
	OwnerID string `json:"userID"`
}

// URLs maps short identifiers to their records.
type URLs map[string]URL

type ShortenRequest struct {
	URL string `json:"url" validate:"required"`
}

type ShortenResponse struct {
	Result string `json:"result"`
}

type UserURL struct {
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
}

type UserUrls []UserURL

type DeleteURLsRequest []string

type URLDeleteJob struct {
	UserID       string
	URLsToDelete DeleteURLsRequest
}

type InternalStatsResponse struct {
	URLs  int64 `json:"urls"`
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
