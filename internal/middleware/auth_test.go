package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "access-secret-for-tests"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetUint("user_id")})
	})
	r.GET("/", handlers...)
	return r
}

func serve(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, id uint, role model.UserRole, ttl time.Duration) string {
	t.Helper()
	u := &model.User{Role: role, Email: "u@example.com"}
	u.ID = id
	token, err := util.GenerateJWT(u, secret, ttl)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(secret))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, tokenFor(t, 1, model.RoleUser, time.Hour)).Code, "missing Bearer prefix")
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer not-a-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+tokenFor(t, 1, model.RoleUser, -time.Minute)).Code)

	w := serve(r, "Bearer "+tokenFor(t, 7, model.RoleUser, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":7}`, w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(secret), RoleMiddleware(model.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer "+tokenFor(t, 1, model.RoleUser, time.Hour)).Code)
	assert.Equal(t, http.StatusOK, serve(r, "Bearer "+tokenFor(t, 2, model.RoleAdmin, time.Hour)).Code)

	// 没有经过 AuthMiddleware
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(RoleMiddleware(model.RoleAdmin)), "").Code)
}

type seenRecorder struct {
	wg  sync.WaitGroup
	mu  sync.Mutex
	ids []uint
}

func (s *seenRecorder) UpdateLastSeen(id uint) error {
	defer s.wg.Done()
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
	return nil
}

func TestActivityMiddleware(t *testing.T) {
	rec := &seenRecorder{}
	r := newRouter(AuthMiddleware(secret), ActivityMiddleware(rec))

	rec.wg.Add(1)
	assert.Equal(t, http.StatusOK, serve(r, "Bearer "+tokenFor(t, 5, model.RoleUser, time.Hour)).Code)
	rec.wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []uint{5}, rec.ids)
}
