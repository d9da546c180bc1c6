package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/mockstorage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/passwd"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/urlsremover"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

const (
	testShortURLBase = "http://localhost:8080"
	testCookieName   = "session"
)

var (
	testSigningKey   = []byte("test-signing-key")
	shortURLLocation = regexp.MustCompile(`^/urls/[a-zA-Z]{6}$`)
	shortURLPattern  = regexp.MustCompile(`^http://localhost:8080/u/[a-zA-Z]{6}$`)
)

func setupTestRouter(t *testing.T, db storage.Storage) *chi.Mux {
	t.Helper()

	svc := service.New(db, passwd.New(bcrypt.MinCost), testShortURLBase, 10)

	theViews, err := views.New()
	require.NoError(t, err)

	checker, err := ipchecker.New("127.0.0.0/8")
	require.NoError(t, err)

	remover := urlsremover.New(svc, 100, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	remover.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-remover.Done()
	})

	return New(
		svc,
		theViews,
		auth.New(db, testCookieName, testSigningKey, time.Hour),
		remover,
		checker,
	)
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	server := httptest.NewServer(setupTestRouter(t, db))
	t.Cleanup(server.Close)

	return server
}

func newClient(server *httptest.Server) *resty.Client {
	return resty.New().
		SetBaseURL(server.URL).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
}

func register(t *testing.T, client *resty.Client, email string) {
	t.Helper()

	resp, err := client.R().
		SetFormData(map[string]string{"email": email, "password": "purple-monkey-dinosaur"}).
		Post("/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode(), resp.String())
	require.Equal(t, "/urls", resp.Header().Get("Location"))
}

func createURL(t *testing.T, client *resty.Client, longURL string) string {
	t.Helper()

	resp, err := client.R().
		SetFormData(map[string]string{"longURL": longURL}).
		Post("/urls")
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode(), resp.String())

	location := resp.Header().Get("Location")
	require.Regexp(t, shortURLLocation, location)

	return strings.TrimPrefix(location, "/urls/")
}

func TestRegisterLoginLogout(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)

	resp, err := client.R().Get("/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), `action="/register"`)

	resp, err = client.R().
		SetFormData(map[string]string{"email": "", "password": "secret"}).
		Post("/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Contains(t, resp.String(), "The email and/or password fields are empty")

	register(t, client, "a@example.com")

	resp, err = client.R().Get("/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode(), "a logged-in user is sent to the URL list")
	assert.Equal(t, "/urls", resp.Header().Get("Location"))

	other := newClient(server)
	resp, err = other.R().
		SetFormData(map[string]string{"email": "a@example.com", "password": "another"}).
		Post("/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Contains(t, resp.String(), "The email already exists")

	resp, err = client.R().Post("/logout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/login", resp.Header().Get("Location"))

	resp, err = client.R().Get("/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode(), "logout ends the session")

	tests := []struct {
		name     string
		email    string
		password string
		wantCode int
		wantBody string
	}{
		{name: "unknown email", email: "b@example.com", password: "purple-monkey-dinosaur", wantCode: http.StatusForbidden, wantBody: "Email cannot be found"},
		{name: "email lookup is case sensitive", email: "A@example.com", password: "purple-monkey-dinosaur", wantCode: http.StatusForbidden, wantBody: "Email cannot be found"},
		{name: "wrong password", email: "a@example.com", password: "wrong", wantCode: http.StatusForbidden, wantBody: "Incorrect password"},
		{name: "success", email: "a@example.com", password: "purple-monkey-dinosaur", wantCode: http.StatusFound},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resp, err := newClient(server).R().
				SetFormData(map[string]string{"email": test.email, "password": test.password}).
				Post("/login")
			require.NoError(t, err)
			assert.Equal(t, test.wantCode, resp.StatusCode())
			if test.wantBody != "" {
				assert.Contains(t, resp.String(), test.wantBody)
				return
			}
			assert.Equal(t, "/urls", resp.Header().Get("Location"))
			assert.NotEmpty(t, resp.Header().Get("Set-Cookie"))
		})
	}
}

func TestOwnershipGuard(t *testing.T) {
	server := setupTestServer(t)

	owner := newClient(server)
	register(t, owner, "a@example.com")
	shortID := createURL(t, owner, "http://example.com")

	intruder := newClient(server)
	register(t, intruder, "b@example.com")

	anonymous := newClient(server)

	tests := []struct {
		name     string
		client   *resty.Client
		method   string
		path     string
		form     map[string]string
		wantCode int
		wantBody string
	}{
		{name: "missing id", client: owner, method: http.MethodGet, path: "/urls/zzzzzz", wantCode: http.StatusBadRequest, wantBody: "ID does not exist"},
		{name: "missing id is reported before the session", client: anonymous, method: http.MethodGet, path: "/urls/zzzzzz", wantCode: http.StatusBadRequest, wantBody: "ID does not exist"},
		{name: "anonymous view", client: anonymous, method: http.MethodGet, path: "/urls/" + shortID, wantCode: http.StatusUnauthorized, wantBody: "You are not logged in to access this URL"},
		{name: "foreign view", client: intruder, method: http.MethodGet, path: "/urls/" + shortID, wantCode: http.StatusUnauthorized, wantBody: "You are unauthorized to access this URL"},
		{name: "foreign update", client: intruder, method: http.MethodPost, path: "/urls/" + shortID, form: map[string]string{"longURL": "http://evil.com"}, wantCode: http.StatusUnauthorized, wantBody: "You are unauthorized to access this URL"},
		{name: "foreign delete", client: intruder, method: http.MethodPost, path: "/urls/" + shortID + "/delete", wantCode: http.StatusUnauthorized, wantBody: "You are unauthorized to access this URL"},
		{name: "anonymous delete", client: anonymous, method: http.MethodPost, path: "/urls/" + shortID + "/delete", wantCode: http.StatusUnauthorized, wantBody: "You are not logged in to access this URL"},
		{name: "owner view", client: owner, method: http.MethodGet, path: "/urls/" + shortID, wantCode: http.StatusOK, wantBody: "http://example.com"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := test.client.R()
			if test.form != nil {
				request.SetFormData(test.form)
			}
			resp, err := request.Execute(test.method, test.path)
			require.NoError(t, err)
			assert.Equal(t, test.wantCode, resp.StatusCode())
			assert.Contains(t, resp.String(), test.wantBody)
		})
	}

	resp, err := anonymous.R().Get("/u/" + shortID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode(), "anyone may follow a short URL")
	assert.Equal(t, "http://example.com", resp.Header().Get("Location"))

	resp, err = owner.R().
		SetFormData(map[string]string{"longURL": "example.org"}).
		Post("/urls/" + shortID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/urls", resp.Header().Get("Location"))

	resp, err = anonymous.R().Get("/u/" + shortID)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org", resp.Header().Get("Location"), "targets without a scheme get http://")

	resp, err = owner.R().Post("/urls/" + shortID + "/delete")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/urls", resp.Header().Get("Location"))

	resp, err = anonymous.R().Get("/u/" + shortID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "The URL for the given ID does not exist.\n", string(resp.Body()))
}

func TestGetUrls(t *testing.T) {
	server := setupTestServer(t)

	resp, err := newClient(server).R().Get("/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Contains(t, resp.String(), "Please login to view this page.")

	owner := newClient(server)
	register(t, owner, "a@example.com")
	first := createURL(t, owner, "http://first.example.com")
	second := createURL(t, owner, "http://second.example.com")

	other := newClient(server)
	register(t, other, "b@example.com")
	foreign := createURL(t, other, "http://foreign.example.com")

	resp, err = owner.R().Get("/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, resp.String(), first)
	assert.Contains(t, resp.String(), second)
	assert.Contains(t, resp.String(), "a@example.com")
	assert.NotContains(t, resp.String(), foreign)
}

func TestCreateURLPages(t *testing.T) {
	server := setupTestServer(t)
	anonymous := newClient(server)

	tests := []struct {
		name         string
		path         string
		wantLocation string
	}{
		{name: "root", path: "/", wantLocation: "/login"},
		{name: "new URL form", path: "/urls/new", wantLocation: "/login"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resp, err := anonymous.R().Get(test.path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusFound, resp.StatusCode())
			assert.Equal(t, test.wantLocation, resp.Header().Get("Location"))
		})
	}

	resp, err := anonymous.R().
		SetFormData(map[string]string{"longURL": "http://example.com"}).
		Post("/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "You are not logged in to perform this action.\n", string(resp.Body()))

	owner := newClient(server)
	register(t, owner, "a@example.com")

	resp, err = owner.R().Get("/")
	require.NoError(t, err)
	assert.Equal(t, "/urls", resp.Header().Get("Location"))

	resp, err = owner.R().Get("/urls/new")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), `action="/urls"`)

	resp, err = owner.R().
		SetFormData(map[string]string{"longURL": ""}).
		Post("/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestJSONAPI(t *testing.T) {
	server := setupTestServer(t)

	resp, err := newClient(server).R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"url":"https://example.com"}`).
		Post("/api/shorten")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	owner := newClient(server)
	register(t, owner, "a@example.com")

	resp, err = owner.R().Get("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	for _, body := range []string{`{"url":`, `{}`, `{"url":""}`} {
		resp, err = owner.R().
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post("/api/shorten")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode(), body)
	}

	var shortenResponse models.ShortenResponse
	resp, err = owner.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://example.com"}).
		SetResult(&shortenResponse).
		Post("/api/shorten")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	require.Regexp(t, shortURLPattern, shortenResponse.Result)
	shortID := strings.TrimPrefix(shortenResponse.Result, testShortURLBase+"/u/")

	var userUrls models.UserUrls
	resp, err = owner.R().SetResult(&userUrls).Get("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, models.UserUrls{{ShortURL: shortenResponse.Result, OriginalURL: "https://example.com"}}, userUrls)

	intruder := newClient(server)
	register(t, intruder, "b@example.com")
	resp, err = intruder.R().
		SetHeader("Content-Type", "application/json").
		SetBody([]string{shortID}).
		Delete("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode())

	resp, err = owner.R().
		SetHeader("Content-Type", "application/json").
		SetBody(`not json`).
		Delete("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp, err = owner.R().
		SetHeader("Content-Type", "application/json").
		SetBody([]string{shortID}).
		Delete("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode())

	require.Eventually(t, func() bool {
		resp, err := newClient(server).R().Get("/u/" + shortID)
		return err == nil && resp.StatusCode() == http.StatusBadRequest
	}, time.Second, 10*time.Millisecond, "the owner's delete request is applied in the background")
}

func TestForeignBatchDeleteIsIgnored(t *testing.T) {
	server := setupTestServer(t)

	owner := newClient(server)
	register(t, owner, "a@example.com")
	shortID := createURL(t, owner, "http://example.com")

	intruder := newClient(server)
	register(t, intruder, "b@example.com")
	resp, err := intruder.R().
		SetHeader("Content-Type", "application/json").
		SetBody([]string{shortID, "zzzzzz"}).
		Delete("/api/user/urls")
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode())

	assert.Never(t, func() bool {
		resp, err := newClient(server).R().Get("/u/" + shortID)
		return err != nil || resp.StatusCode() != http.StatusFound
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestGetPing(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
	}{
		{name: "healthy", wantCode: http.StatusOK},
		{name: "storage down", pingErr: errors.New("connection refused"), wantCode: http.StatusInternalServerError},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			db := &mockstorage.StorageMock{}
			db.On("Ping", mock.Anything).Return(test.pingErr)

			request := httptest.NewRequest(http.MethodGet, "/ping", nil)
			recorder := httptest.NewRecorder()
			setupTestRouter(t, db).ServeHTTP(recorder, request)

			assert.Equal(t, test.wantCode, recorder.Code)
			db.AssertExpectations(t)
		})
	}
}

func TestGetApiinternalstats(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("GetNumberOfURLs", mock.Anything).Return(int64(3), nil)
	db.On("GetNumberOfUsers", mock.Anything).Return(int64(2), nil)
	handler := setupTestRouter(t, db)

	request := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	request.Header.Set("X-Real-IP", "127.0.0.1")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"urls":3,"users":2}`, recorder.Body.String())

	request = httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	request.Header.Set("X-Real-IP", "8.8.8.8")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	db.AssertNumberOfCalls(t, "GetNumberOfURLs", 1)
}

func gzipString(t *testing.T, input string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

func TestGzip(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)
	require.NoError(t, db.CreateUser(context.Background(), &models.User{ID: "userAA", Email: "a@example.com"}))
	handler := setupTestRouter(t, db)

	session := auth.New(db, testCookieName, testSigningKey, time.Hour)
	token, err := session.BuildJWTString(&auth.Claims{UserID: "userAA"})
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/api/shorten", bytes.NewReader(gzipString(t, `{"url":"https://example.com"}`)))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Content-Encoding", "gzip")
	request.Header.Set("Accept-Encoding", "gzip")
	request.Header.Set("Authorization", token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

	gzipReader, err := gzip.NewReader(recorder.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gzipReader)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"result":"http://localhost:8080/u/[a-zA-Z]{6}"\}$`, string(body))

	request = httptest.NewRequest(http.MethodGet, "/login", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

	request = httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader("plain, not gzip"))
	request.Header.Set("Content-Encoding", "gzip")
	request.Header.Set("Authorization", token)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
