package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
)

type contextKey string

const identityKey contextKey = "identity"

// Claims are the bearer token claims the API understands
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AuthConfig configures bearer token verification
type AuthConfig struct {
	SigningKey []byte
	Issuer     string
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the verified caller attached by AuthMiddleware
func IdentityFromContext(ctx context.Context) (entities.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(entities.Identity)
	return identity, ok
}

// AuthMiddleware verifies HS256 bearer tokens and attaches the caller identity
// to the request context. Requests without a valid token are rejected.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				unauthorized(w, "invalid authorization format")
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(strings.TrimSpace(parts[1]), claims, keyFunc)
			if err != nil || !token.Valid {
				observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("bearer token rejected")
				unauthorized(w, "invalid token")
				return
			}

			identity, ok := identityFromClaims(claims)
			if !ok {
				unauthorized(w, "token does not carry a usable identity")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func identityFromClaims(claims *Claims) (entities.Identity, bool) {
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return entities.Identity{}, false
	}
	role := entities.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
	if role != entities.RolePatient && role != entities.RoleDoctor {
		return entities.Identity{}, false
	}
	return entities.Identity{SubjectID: subject, Role: role}, true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="reports"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"kind":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
