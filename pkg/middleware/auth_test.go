package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayrajeevnambiar/Pantrypal/pkg/auth"
)

func newAuthTestRouter(issuer *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireAuth(issuer), func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID, "role": claims.Role})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	router := newAuthTestRouter(issuer)

	token, err := issuer.Issue("user-1", "manager@pantrypal.dev", "Mara", "manager")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "Valid token", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "Lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK},
		{name: "Missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "Wrong scheme", header: "Basic " + token, wantStatus: http.StatusUnauthorized},
		{name: "Garbage token", header: "Bearer not-a-token", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireAuthRejectsForeignSignature(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	forger := auth.NewTokenIssuer("other-secret", time.Hour)
	router := newAuthTestRouter(issuer)

	token, err := forger.Issue("user-1", "a@b.c", "A", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
