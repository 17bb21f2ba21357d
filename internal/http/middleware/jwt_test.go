package middleware

import (
	"net/http/httptest"
	"testing"

	"coinmine/internal/service"

	"github.com/gin-gonic/gin"
)

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("test-secret")

	r := gin.New()
	r.GET("/protected", JWT(), func(c *gin.Context) {
		id, _ := c.Get("account_id")
		c.JSON(200, gin.H{"account_id": id})
	})

	token, err := service.GenerateJWT(42)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", 401},
		{"not bearer", "Token abc", 401},
		{"garbage token", "Bearer not.a.jwt", 401},
		{"valid token", "Bearer " + token, 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, rec.Code)
			}
		})
	}
}
