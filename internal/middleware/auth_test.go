package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"pulse/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		userID, ok := UserID(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		ctxID, _ := c.UserContext().Value(UserIDKey).(int64)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"userID": userID,
			"ctxID":  ctxID,
		})
	})

	generateToken := func(userID int64, exp time.Duration) string {
		s, err := IssueToken(testSecret, userID, jwt.MapClaims{"exp": time.Now().Add(exp).Unix()})
		require.NoError(t, err)
		return s
	}

	wrongKey := func() string {
		claims := jwt.MapClaims{"sub": "123", "exp": time.Now().Add(time.Hour).Unix()}
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret"))
		return s
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID int64
	}{
		{
			name:           "Happy Path",
			authHeader:     "Bearer " + generateToken(1786429340581109760, time.Hour),
			expectedStatus: http.StatusOK,
			expectedUserID: 1786429340581109760,
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Token",
			authHeader:     "Bearer malformed.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + generateToken(123, -time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Signing Key",
			authHeader:     "Bearer " + wrongKey(),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Non-positive Subject",
			authHeader:     "Bearer " + generateToken(0, time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]interface{}
			dec := json.NewDecoder(resp.Body)
			dec.UseNumber()
			require.NoError(t, dec.Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				want := json.Number(strconv.FormatInt(tt.expectedUserID, 10))
				assert.Equal(t, want, body["userID"])
				assert.Equal(t, want, body["ctxID"])
			} else {
				assert.Equal(t, "UNAUTHORIZED", body["code"])
			}
		})
	}
}
