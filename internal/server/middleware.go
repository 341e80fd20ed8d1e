package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// Messages and codes sent with 401 responses from protected routes.
const (
	MessageTokenMissing = "Token de autenticação não fornecido ou mal formatado."
	MessageTokenInvalid = "Token inválido ou expirado."

	CodeTokenMissing = "token_missing"
	CodeTokenInvalid = "token_invalid"
	CodeTokenExpired = "token_expired"
)

type ctxKey int

const userKey ctxKey = iota

// requestLogger logs one line per request, echoing the client's request id when present.
func requestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			if id := r.Header.Get("X-Request-ID"); id != "" {
				ww.Header().Set("X-Request-ID", id)
			}

			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", r.Header.Get("X-Request-ID"),
			)
		})
	}
}

// authenticate requires a valid bearer token and stores the user id in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.unauthorized(w, MessageTokenMissing, CodeTokenMissing)
			return
		}

		userID, err := s.tokens.Verify(raw)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			s.unauthorized(w, MessageTokenInvalid, CodeTokenExpired)
			return
		case err != nil:
			s.unauthorized(w, MessageTokenInvalid, CodeTokenInvalid)
			return
		}

		if _, ok := s.store.UserByID(userID); !ok {
			s.unauthorized(w, MessageTokenInvalid, CodeTokenInvalid)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, message, code string) {
	body := map[string]string{"message": message}
	if !s.legacy {
		body["code"] = code
	}
	writeJSON(w, http.StatusUnauthorized, body)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}
