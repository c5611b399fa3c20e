package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTManager(testSecret, "", time.Hour)

	token, err := m.GenerateToken(ClientClaims{ClientID: "desk-1", Scopes: []string{ScopeEvaluate}})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "desk-1", claims.ClientID)
	assert.True(t, claims.HasScope(ScopeEvaluate))
	assert.False(t, claims.HasScope(ScopeHistoryRead))
}

func TestValidateTokenRejects(t *testing.T) {
	m := NewJWTManager(testSecret, "signal-engine", time.Hour)

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager(testSecret, "signal-engine", -time.Minute)
		token, err := expired.GenerateToken(ClientClaims{ClientID: "x"})
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.Equal(t, ErrTokenExpired, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("ffffffffffffffffffffffffffffffff", "signal-engine", time.Hour)
		token, err := other.GenerateToken(ClientClaims{ClientID: "x"})
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.Equal(t, ErrInvalidToken, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTManager(testSecret, "someone-else", time.Hour)
		token, err := other.GenerateToken(ClientClaims{ClientID: "x"})
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.Equal(t, ErrInvalidToken, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.Equal(t, ErrInvalidToken, err)
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager(testSecret, "", time.Hour)

	router := gin.New()
	router.GET("/history", Middleware(m), RequireScope(ScopeHistoryRead), func(c *gin.Context) {
		c.String(http.StatusOK, GetClientID(c))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer abc").Code)

	limited, err := m.GenerateToken(ClientClaims{ClientID: "bot", Scopes: []string{ScopeEvaluate}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+limited).Code)

	full, err := m.GenerateToken(ClientClaims{ClientID: "desk", Scopes: []string{"*"}})
	require.NoError(t, err)
	w := call("Bearer " + full)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "desk", w.Body.String())
}
