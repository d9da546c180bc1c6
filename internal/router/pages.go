package router

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/guard"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/passwd"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

const (
	msgLoginToView    = "Please login to view this page."
	msgLoginToPerform = "You are not logged in to perform this action."
	msgNoSuchShortURL = "The URL for the given ID does not exist."
)

func currentPage(request *http.Request) views.Page {
	return views.Page{User: auth.UserFromContext(request.Context())}
}

// writeAccessError maps a guard verdict to its response. A denied owner check
// answers 401 just like a missing session.
func writeAccessError(response http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, guard.ErrNotFound):
		http.Error(response, err.Error(), http.StatusBadRequest)
	case errors.Is(err, guard.ErrUnauthenticated), errors.Is(err, guard.ErrForbidden):
		http.Error(response, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrEmptyLongURL):
		http.Error(response, err.Error(), http.StatusBadRequest)
	default:
		logger.Log.Debugln("Error while accessing a short URL: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
	}
}

func (router *Router) render(response http.ResponseWriter, name string, data interface{}) {
	if err := router.views.Render(response, name, data); err != nil {
		logger.Log.Debugln("Error calling the `router.views.Render()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
	}
}

func (router *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	if auth.UserIDFromContext(request.Context()) == "" {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}
	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (router *Router) GetUrls(response http.ResponseWriter, request *http.Request) {
	userID := auth.UserIDFromContext(request.Context())
	if userID == "" {
		http.Error(response, msgLoginToView, http.StatusUnauthorized)
		return
	}

	urls, err := router.svc.ListURLs(request.Context(), userID)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.svc.ListURLs()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	page := views.URLsIndexPage{Page: currentPage(request)}
	for _, shortID := range service.SortedShortIDs(urls) {
		page.Rows = append(page.Rows, views.URLRow{
			ShortID: shortID,
			LongURL: urls[shortID].LongURL,
		})
	}

	router.render(response, views.URLsIndex, page)
}

func (router *Router) GetUrlsNew(response http.ResponseWriter, request *http.Request) {
	if auth.UserIDFromContext(request.Context()) == "" {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	router.render(response, views.URLsNew, currentPage(request))
}

func (router *Router) PostUrls(response http.ResponseWriter, request *http.Request) {
	userID := auth.UserIDFromContext(request.Context())
	if userID == "" {
		http.Error(response, msgLoginToPerform, http.StatusUnauthorized)
		return
	}

	shortID, err := router.svc.CreateURL(request.Context(), userID, request.FormValue("longURL"))
	if err != nil {
		writeAccessError(response, err)
		return
	}

	http.Redirect(response, request, "/urls/"+shortID, http.StatusFound)
}

func (router *Router) GetURL(response http.ResponseWriter, request *http.Request) {
	shortID := chi.URLParam(request, "id")

	record, err := router.svc.GetOwnedURL(request.Context(), shortID, auth.UserIDFromContext(request.Context()))
	if err != nil {
		writeAccessError(response, err)
		return
	}

	router.render(response, views.URLsShow, views.URLsShowPage{
		Page:    currentPage(request),
		ID:      shortID,
		LongURL: record.LongURL,
	})
}

func (router *Router) PostURL(response http.ResponseWriter, request *http.Request) {
	err := router.svc.UpdateURL(
		request.Context(),
		chi.URLParam(request, "id"),
		auth.UserIDFromContext(request.Context()),
		request.FormValue("longURL"),
	)
	if err != nil {
		writeAccessError(response, err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (router *Router) PostURLDelete(response http.ResponseWriter, request *http.Request) {
	err := router.svc.DeleteURL(
		request.Context(),
		chi.URLParam(request, "id"),
		auth.UserIDFromContext(request.Context()),
	)
	if err != nil {
		writeAccessError(response, err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (router *Router) GetRedirectToLongURL(response http.ResponseWriter, request *http.Request) {
	longURL, err := router.svc.ResolveRedirect(request.Context(), chi.URLParam(request, "id"))
	if errors.Is(err, guard.ErrNotFound) {
		http.Error(response, msgNoSuchShortURL, http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.svc.ResolveRedirect()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, longURL, http.StatusFound)
}

func (router *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	if auth.UserIDFromContext(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}

	router.render(response, views.Login, currentPage(request))
}

func (router *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	usr, err := router.svc.Login(request.Context(), request.FormValue("email"), request.FormValue("password"))
	if errors.Is(err, service.ErrEmailNotFound) || errors.Is(err, service.ErrIncorrectPassword) {
		http.Error(response, err.Error(), http.StatusForbidden)
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.svc.Login()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	router.startSession(response, request, usr.ID)
}

func (router *Router) GetRegister(response http.ResponseWriter, request *http.Request) {
	if auth.UserIDFromContext(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}

	router.render(response, views.Register, currentPage(request))
}

func (router *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	usr, err := router.svc.Register(request.Context(), request.FormValue("email"), request.FormValue("password"))
	if errors.Is(err, service.ErrEmptyCredentials) ||
		errors.Is(err, service.ErrEmailAlreadyExists) ||
		errors.Is(err, passwd.ErrPasswordTooLong) {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.svc.Register()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	router.startSession(response, request, usr.ID)
}

func (router *Router) startSession(response http.ResponseWriter, request *http.Request, userID string) {
	if err := router.auth.SetUser(response, userID); err != nil {
		logger.Log.Debugln("Error calling the `router.auth.SetUser()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (router *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	router.auth.Clear(response)
	http.Redirect(response, request, "/login", http.StatusFound)
}
