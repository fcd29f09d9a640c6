package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func preflight(handler gin.HandlerFunc, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handler)
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowList(t *testing.T) {
	handler := New([]string{"https://desk.example.com/", "https://*.corp.example.com"})

	cases := map[string]bool{
		"https://desk.example.com":     true,
		"https://hr.corp.example.com":  true,
		"https://corp.example.com":     false,
		"http://hr.corp.example.com":   false,
		"https://evil.example.org":     false,
		"https://evilcorp.example.com": false,
	}
	for origin, want := range cases {
		rec := preflight(handler, origin)
		assert.Equal(t, http.StatusNoContent, rec.Code, origin)
		if want {
			assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	}
}

func TestCORSAllowAllInDevelopment(t *testing.T) {
	rec := preflight(New(nil), "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight(New(nil), "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
