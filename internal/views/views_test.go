package views

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

func TestRender(t *testing.T) {
	theViews, err := New()
	require.NoError(t, err)

	usr := &models.User{ID: "userAA", Email: "a@x.com"}

	tests := []struct {
		name     string
		page     string
		data     interface{}
		contains []string
	}{
		{
			name:     "login for anonymous",
			page:     Login,
			data:     Page{},
			contains: []string{`action="/login"`, `href="/register"`},
		},
		{
			name:     "register",
			page:     Register,
			data:     Page{},
			contains: []string{`action="/register"`},
		},
		{
			name:     "new url",
			page:     URLsNew,
			data:     Page{User: usr},
			contains: []string{`action="/urls"`, "Logged in as: a@x.com", `action="/logout"`},
		},
		{
			name: "index",
			page: URLsIndex,
			data: URLsIndexPage{
				Page: Page{User: usr},
				Rows: []URLRow{{ShortID: "abc123", LongURL: "http://x.com"}},
			},
			contains: []string{"abc123", "http://x.com", `action="/urls/abc123/delete"`},
		},
		{
			name:     "empty index",
			page:     URLsIndex,
			data:     URLsIndexPage{Page: Page{User: usr}},
			contains: []string{"You have not created any URLs yet."},
		},
		{
			name: "show escapes the long URL",
			page: URLsShow,
			data: URLsShowPage{
				Page:    Page{User: usr},
				ID:      "abc123",
				LongURL: `http://x.com/"><script>`,
			},
			contains: []string{`action="/urls/abc123"`, `href="/u/abc123"`, "&lt;script&gt;"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			require.NoError(t, theViews.Render(recorder, test.page, test.data))

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, "text/html; charset=utf-8", recorder.Header().Get("Content-Type"))
			for _, fragment := range test.contains {
				assert.Contains(t, recorder.Body.String(), fragment)
			}
		})
	}
}

func TestRenderUnknownPage(t *testing.T) {
	theViews, err := New()
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	assert.Error(t, theViews.Render(recorder, "nope", Page{}))
	assert.Empty(t, recorder.Body.String())
}
