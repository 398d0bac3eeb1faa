package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":         {Data: []byte("<html>editor</html>")},
		"js/app.js":          {Data: []byte("console.log('twin')")},
		"docs/index.html":    {Data: []byte("<html>docs</html>")},
		"assets/empty/.keep": {Data: nil},
	}
}

func TestRegisterStaticRoutes(t *testing.T) {
	e := echo.New()
	RegisterStaticRoutes(e, testFS())

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "editor"},
		{"/js/app.js", http.StatusOK, "console.log"},
		{"/layouts/123", http.StatusOK, "editor"},
		{"/assets/empty/", http.StatusOK, "editor"},
		{"/api/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestFileSystem(t *testing.T) {
	_, err := FileSystem(t.TempDir())
	assert.ErrorIs(t, err, ErrNoFrontend)

	_, err = FileSystem("")
	assert.ErrorIs(t, err, ErrNoFrontend)

	require.True(t, HasIndex(testFS()))
}
