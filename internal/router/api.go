package router

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Debugln("Error calling the `json.Marshal()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if _, err := response.Write(body); err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`: ", zap.Error(err))
	}
}

func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `router.svc.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (router *Router) PostApishorten(response http.ResponseWriter, request *http.Request) {
	userID := auth.UserIDFromContext(request.Context())
	if userID == "" {
		response.WriteHeader(http.StatusUnauthorized)
		return
	}

	var requestDTO models.ShortenRequest
	if err := json.NewDecoder(request.Body).Decode(&requestDTO); err != nil {
		logger.Log.Debugln("cannot decode request JSON body", zap.Error(err))
		response.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	if err := router.validate.Struct(requestDTO); err != nil {
		logger.Log.Debugln("invalid request JSON body", zap.Error(err))
		response.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	shortID, err := router.svc.CreateURL(request.Context(), userID, requestDTO.URL)
	if err != nil {
		writeAccessError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.ShortenResponse{
		Result: router.svc.GetShortURL(shortID),
	})
}

func (router *Router) GetApiuserurls(response http.ResponseWriter, request *http.Request) {
	userID := auth.UserIDFromContext(request.Context())
	if userID == "" {
		response.WriteHeader(http.StatusUnauthorized)
		return
	}

	userUrls, err := router.svc.GetUserURLs(request.Context(), userID)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.svc.GetUserURLs()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}
	if len(userUrls) == 0 {
		response.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(response, http.StatusOK, userUrls)
}

func (router *Router) DeleteApiuserurls(response http.ResponseWriter, request *http.Request) {
	userID := auth.UserIDFromContext(request.Context())
	if userID == "" {
		response.WriteHeader(http.StatusUnauthorized)
		return
	}

	var urlsToDelete models.DeleteURLsRequest
	if err := json.NewDecoder(request.Body).Decode(&urlsToDelete); err != nil {
		logger.Log.Debugln("cannot decode request JSON body", zap.Error(err))
		response.WriteHeader(http.StatusBadRequest)
		return
	}

	router.urlsRemover.EnqueueJob(&models.URLDeleteJob{
		UserID:       userID,
		URLsToDelete: urlsToDelete,
	})

	response.WriteHeader(http.StatusAccepted)
}

func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.svc.GetInternalStats()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}
