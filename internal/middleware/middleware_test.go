package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/logger"
)

type stubAuthenticator struct {
	actors map[string]*models.Actor
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (*models.Actor, *models.User, error) {
	actor, ok := s.actors[token]
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return actor, &models.User{ID: actor.UserID, Role: actor.Role}, nil
}

type memAuditWriter struct {
	logs []*models.AuditLog
}

func (m *memAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := stubAuthenticator{actors: map[string]*models.Actor{
		"admin-token": {UserID: "admin-1", Role: models.RoleAdmin},
		"user-token":  {UserID: "u-1", Role: models.RoleUser},
	}}
	router := gin.New()
	router.Use(JWT(auth))
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": ActorFrom(c).UserID, "logged": c.GetString(logger.ActorIDKey)})
	})
	router.GET("/users/:id", chain...)
	return router
}

func serve(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTRequiresBearerToken(t *testing.T) {
	router := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/users/1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/users/1", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/users/1", "Bearer  ").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/users/1", "Bearer nope").Code)

	rec := serve(router, "/users/1", "bearer user-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"actor":"u-1","logged":"u-1"}`, rec.Body.String())
}

func TestRBACAllowsRolesAndSelf(t *testing.T) {
	router := newAuthRouter(RBAC(string(models.RoleAdmin), "SELF"))

	assert.Equal(t, http.StatusOK, serve(router, "/users/other", "Bearer admin-token").Code)
	assert.Equal(t, http.StatusOK, serve(router, "/users/u-1", "Bearer user-token").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "/users/other", "Bearer user-token").Code)
}

func TestRBACWithoutActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	writer := &memAuditWriter{}
	router := newAuthRouter(Audit(writer, models.AuditActionAssetExport, "asset"))

	serve(router, "/users/1?format=csv", "Bearer admin-token")
	serve(router, "/users/1", "Bearer nope")

	require.Len(t, writer.logs, 1)
	entry := writer.logs[0]
	assert.Equal(t, models.AuditActionAssetExport, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	assert.Contains(t, string(entry.NewValues), "format=csv")
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	rec := serve(router, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cache_hit":true}`, rec.Body.String())
}

type pathRecorder struct {
	paths []string
}

func (p *pathRecorder) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	p.paths = append(p.paths, path)
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &pathRecorder{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/assets/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, "/assets/a-1", "")
	serve(router, "/assets/a-2", "")
	serve(router, "/health", "")
	serve(router, "/wp-login.php", "")

	assert.Equal(t, []string{"/assets/:id", "/assets/:id", "unmatched"}, observer.paths)
}
