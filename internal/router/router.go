// Package router wires the TinyApp HTTP surface: the HTML pages, the JSON API
// and the service endpoints, with logging, gzip and session middlewares.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/tinyapp/internal/gzippedhttp"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

type urlShortener interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	CreateURL(ctx context.Context, ownerID, longURL string) (string, error)
	GetOwnedURL(ctx context.Context, shortID, callerID string) (*models.URL, error)
	UpdateURL(ctx context.Context, shortID, callerID, newLongURL string) error
	DeleteURL(ctx context.Context, shortID, callerID string) error
	ListURLs(ctx context.Context, ownerID string) (models.URLs, error)
	GetUserURLs(ctx context.Context, ownerID string) (models.UserUrls, error)
	ResolveRedirect(ctx context.Context, shortID string) (string, error)
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
	GetShortURL(shortID string) string
	Ping(ctx context.Context) error
}

type renderer interface {
	Render(response http.ResponseWriter, name string, data interface{}) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	SetUser(response http.ResponseWriter, userID string) error
	Clear(response http.ResponseWriter)
}

type urlsRemover interface {
	EnqueueJob(job *models.URLDeleteJob)
}

type subnetChecker interface {
	TrustedOnly(h http.Handler) http.Handler
}

type Router struct {
	svc         urlShortener
	views       renderer
	auth        authenticator
	urlsRemover urlsRemover
	ipChecker   subnetChecker
	validate    *validator.Validate
}

func New(
	svc urlShortener,
	views renderer,
	auth authenticator,
	remover urlsRemover,
	ipChecker subnetChecker,
) *chi.Mux {
	myRouter := &Router{
		svc:         svc,
		views:       views,
		auth:        auth,
		urlsRemover: remover,
		ipChecker:   ipChecker,
		validate:    validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
		auth.AuthenticateUser,
	)

	router.Get(`/`, myRouter.GetRoot)

	router.Get(`/urls`, myRouter.GetUrls)
	router.Post(`/urls`, myRouter.PostUrls)
	router.Get(`/urls/new`, myRouter.GetUrlsNew)
	router.Get(`/urls/{id}`, myRouter.GetURL)
	router.Post(`/urls/{id}`, myRouter.PostURL)
	router.Post(`/urls/{id}/delete`, myRouter.PostURLDelete)

	router.Get(`/u/{id}`, myRouter.GetRedirectToLongURL)

	router.Get(`/login`, myRouter.GetLogin)
	router.Post(`/login`, myRouter.PostLogin)
	router.Get(`/register`, myRouter.GetRegister)
	router.Post(`/register`, myRouter.PostRegister)
	router.Post(`/logout`, myRouter.PostLogout)

	router.Get(`/ping`, myRouter.GetPing)
	router.Post(`/api/shorten`, myRouter.PostApishorten)
	router.Get(`/api/user/urls`, myRouter.GetApiuserurls)
	router.Delete(`/api/user/urls`, myRouter.DeleteApiuserurls)
	router.With(ipChecker.TrustedOnly).Get(`/api/internal/stats`, myRouter.GetApiinternalstats)

	return router
}
