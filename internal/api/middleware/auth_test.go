package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(subject, role string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "reports-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
}

func serveWithAuth(t *testing.T, header string) (*httptest.ResponseRecorder, *entities.Identity) {
	t.Helper()
	var seen *entities.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			seen = &identity
		}
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/reports/r1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	AuthMiddleware(AuthConfig{SigningKey: testKey, Issuer: "reports-test"})(next).ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, testKey, validClaims("S1", "Patient"))

	rec, identity := serveWithAuth(t, "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, entities.Identity{SubjectID: "S1", Role: entities.RolePatient}, *identity)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	expired := validClaims("S1", "patient")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims("S1", "patient")
	wrongIssuer.Issuer = "someone-else"

	noExpiry := validClaims("S1", "patient")
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", header: "Bearer not-a-token"},
		{name: "wrong key", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("S1", "patient"))},
		{name: "wrong algorithm", header: "Bearer " + signToken(t, jwt.SigningMethodHS512, testKey, validClaims("S1", "patient"))},
		{name: "expired", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testKey, expired)},
		{name: "no expiry", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testKey, noExpiry)},
		{name: "wrong issuer", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testKey, wrongIssuer)},
		{name: "unknown role", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testKey, validClaims("S1", "admin"))},
		{name: "missing subject", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testKey, validClaims("", "doctor"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, identity := serveWithAuth(t, tt.header)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, identity)

			var body struct {
				Error struct {
					Kind string `json:"kind"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHORIZED", body.Error.Kind)
		})
	}
}
