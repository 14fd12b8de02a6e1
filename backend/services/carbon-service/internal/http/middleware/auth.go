package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const subjectKey contextKey = "subject"

// AccessKeyHeader carries the function access key.
const AccessKeyHeader = "X-Functions-Key"

// AccessKeyQuery is the query parameter alternative to AccessKeyHeader.
const AccessKeyQuery = "code"

// AuthMiddleware accepts either a bearer JWT signed with secret or an access key matching the
// bcrypt keyHash. When both are empty every request passes.
func AuthMiddleware(secret, keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" && keyHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authHeader := r.Header.Get("Authorization"); authHeader != "" && secret != "" {
				subject, err := validateBearer(authHeader, secret)
				if err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), subjectKey, subject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			key := r.Header.Get(AccessKeyHeader)
			if key == "" {
				key = r.URL.Query().Get(AccessKeyQuery)
			}
			if key != "" && keyHash != "" {
				if bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
					http.Error(w, "invalid access key", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			http.Error(w, "missing credentials", http.StatusUnauthorized)
		})
	}
}

func validateBearer(authHeader, secret string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", jwt.ErrTokenMalformed
	}
	tokenStr := strings.TrimSpace(parts[1])

	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		if err == nil {
			err = jwt.ErrTokenInvalidClaims
		}
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

// SubjectFromContext retrieves the token subject from request context.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok
}
