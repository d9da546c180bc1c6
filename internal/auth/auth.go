// Package auth resolves the logged-in user of a request from a signed session
// cookie. The cookie carries an HS256 JWT whose user_id claim names the user;
// JSON API clients may send the same token in the Authorization header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, bool, error)
}

// Auth issues, verifies and clears session cookies.
type Auth struct {
	// db is used to drop sessions of users that no longer exist.
	db userKeeper

	// authCookieName is the name of the cookie used to store the JWT.
	authCookieName string

	// authCookieSigningSecretKey is the key used to sign JWTs.
	authCookieSigningSecretKey []byte

	// maxAge is both the cookie lifetime and the token expiry.
	maxAge time.Duration
}

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

const (
	// UserIDKey holds the authenticated user's ID, or "" for anonymous requests.
	UserIDKey ContextKey = "userID"

	// UserKey holds the authenticated *models.User.
	UserKey ContextKey = "user"
)

var ErrInvalidTokenOrJwtParsing = errors.New("invalid token or JWT parsing error")

// New creates a new Auth with the given user directory, cookie name,
// signing secret and session lifetime.
func New(
	db userKeeper,
	authCookieName string,
	authCookieSigningSecretKey []byte,
	maxAge time.Duration,
) *Auth {
	return &Auth{
		db:                         db,
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
		maxAge:                     maxAge,
	}
}

// CurrentUserID returns the user ID carried by a valid, unexpired token.
func (a *Auth) CurrentUserID(request *http.Request) (string, bool) {
	userID, err := a.GetUserIDFromToken(a.getTokenStringFromAuthorizationHeaderOrCookie(request))
	if err != nil || userID == "" {
		return "", false
	}

	return userID, true
}

// SetUser starts a session for userID.
func (a *Auth) SetUser(response http.ResponseWriter, userID string) error {
	now := time.Now()
	JWTString, err := a.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.maxAge)),
		},
		UserID: userID,
	})
	if err != nil {
		return err
	}

	response.Header().Set("Authorization", JWTString)

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    JWTString,
			Path:     "/",
			MaxAge:   int(a.maxAge.Seconds()),
			Expires:  now.Add(a.maxAge),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

// Clear ends the session so that later requests resolve to no user.
func (a *Auth) Clear(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)
}

// AuthenticateUser is an HTTP middleware that resolves the session and stores
// the user and its ID in the request context. Requests without a valid
// session, or whose user is gone, continue anonymously.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		ctx := request.Context()

		userID, ok := a.CurrentUserID(request)
		if !ok {
			h.ServeHTTP(response, request.WithContext(context.WithValue(ctx, UserIDKey, "")))
			return
		}

		usr, found, err := a.db.GetUserByID(ctx, userID)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !found {
			h.ServeHTTP(response, request.WithContext(context.WithValue(ctx, UserIDKey, "")))
			return
		}

		ctx = context.WithValue(ctx, UserIDKey, usr.ID)
		ctx = context.WithValue(ctx, UserKey, usr)

		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext returns the ID stored by AuthenticateUser, or "".
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// UserFromContext returns the user stored by AuthenticateUser, or nil.
func UserFromContext(ctx context.Context) *models.User {
	usr, _ := ctx.Value(UserKey).(*models.User)
	return usr
}

func (a *Auth) getTokenStringFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

// GetUserIDFromToken verifies the signature and expiry of tokenString and
// returns its user_id claim.
func (a *Auth) GetUserIDFromToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidTokenOrJwtParsing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidTokenOrJwtParsing
	}

	return claims.UserID, nil
}

// BuildJWTString signs claims with the configured secret.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.authCookieSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
