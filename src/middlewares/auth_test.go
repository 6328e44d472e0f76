package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"ticketing/src/db"
	"ticketing/src/models"
	"ticketing/src/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
)

const testSecret = "middleware-secret"

func setupAuthRouter(t *testing.T) (*gin.Engine, *models.User, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gormDB, err := db.OpenDialector(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	customer := &models.User{Email: "c@example.com", Role: types.ROLE_CUSTOMER}
	admin := &models.User{Email: "a@example.com", Role: types.ROLE_ADMIN}
	require.NoError(t, gormDB.Create(customer).Error)
	require.NoError(t, gormDB.Create(admin).Error)

	r := gin.New()
	g := r.Group("/", AuthMiddleware(gormDB, testSecret))
	g.GET("/me", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"id": ctx.GetUint("id"), "role": ctx.MustGet("role")})
	})
	g.GET("/admin", AdminOnly, func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	return r, customer, admin
}

func request(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, customer, _ := setupAuthRouter(t)

	token, err := NewToken(testSecret, customer.ID, customer.Email, customer.Role, time.Hour)
	require.NoError(t, err)
	w := request(r, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, customer.ID, gjson.Get(w.Body.String(), "id").Uint())
	assert.Equal(t, "customer", gjson.Get(w.Body.String(), "role").String())

	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", "garbage").Code)

	wrongKey, err := NewToken("other-secret", customer.ID, customer.Email, customer.Role, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", wrongKey).Code)

	expired, err := NewToken(testSecret, customer.ID, customer.Email, customer.Role, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", expired).Code)

	ghost, err := NewToken(testSecret, 9999, "ghost", types.ROLE_ADMIN, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", ghost).Code)
}

func TestAuthRejectsNoneAlgorithm(t *testing.T) {
	r, _, _ := setupAuthRouter(t)
	claims := &types.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", unsigned).Code)
}

func TestAdminOnly(t *testing.T) {
	r, customer, admin := setupAuthRouter(t)

	// role comes from the database, not the token claims
	forged, err := NewToken(testSecret, customer.ID, customer.Email, types.ROLE_ADMIN, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(r, "/admin", forged).Code)

	adminToken, err := NewToken(testSecret, admin.ID, admin.Email, admin.Role, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, request(r, "/admin", adminToken).Code)
}
