package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/watchlist/internal/shared"
)

func newTestServer(t *testing.T, legacy bool) *Server {
	t.Helper()
	return New(Opts{
		Config:       shared.ServerConfig{JWTSecret: "test-secret", TokenTTLMinutes: 5},
		LegacyErrors: legacy,
		BcryptCost:   bcrypt.MinCost,
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func login(t *testing.T, s *Server, email string) string {
	t.Helper()
	if rec := do(t, s, http.MethodPost, "/auth/register", "", registerRequest{Name: "Ana", Email: email, Password: "pw"}); rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	return decode[map[string]string](t, rec)["token"]
}

func TestAuthRoutes(t *testing.T) {
	t.Run("register and login", func(t *testing.T) {
		s := newTestServer(t, false)
		if token := login(t, s, "a@x.com"); token == "" {
			t.Fatal("expected a token")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newTestServer(t, false)
		login(t, s, "a@x.com")

		rec := do(t, s, http.MethodPost, "/auth/register", "", registerRequest{Name: "B", Email: " A@X.com", Password: "pw"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if got := decode[errorResponse](t, rec).Error; got != MessageEmailTaken {
			t.Errorf("unexpected error: %s", got)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		s := newTestServer(t, false)
		rec := do(t, s, http.MethodPost, "/auth/register", "", registerRequest{Email: "a@x.com"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		s := newTestServer(t, false)
		login(t, s, "a@x.com")

		rec := do(t, s, http.MethodPost, "/auth/login", "", loginRequest{Email: "a@x.com", Password: "nope"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		body := decode[map[string]string](t, rec)
		if body["message"] != MessageInvalidCredentials || body["code"] != "" {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t, false)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	tt := []struct {
		name    string
		header  string
		legacy  bool
		message string
		code    string
	}{
		{name: "missing header", header: "", message: MessageTokenMissing, code: CodeTokenMissing},
		{name: "wrong scheme", header: "Basic abc", message: MessageTokenMissing, code: CodeTokenMissing},
		{name: "empty bearer", header: "Bearer ", message: MessageTokenMissing, code: CodeTokenMissing},
		{name: "garbage token", header: "Bearer abc.def.ghi", message: MessageTokenInvalid, code: CodeTokenInvalid},
		{name: "legacy omits code", header: "Bearer abc", legacy: true, message: MessageTokenInvalid},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.legacy)
			req := httptest.NewRequest(http.MethodGet, "/movies", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			body := decode[map[string]string](t, rec)
			if body["message"] != tc.message || body["code"] != tc.code {
				t.Errorf("unexpected body: %v", body)
			}
		})
	}

	t.Run("expired token", func(t *testing.T) {
		now := time.Now()
		s := New(Opts{
			Config:     shared.ServerConfig{JWTSecret: "test-secret", TokenTTLMinutes: 1},
			BcryptCost: bcrypt.MinCost,
			Now:        func() time.Time { return now },
		})
		token := login(t, s, "a@x.com")

		now = now.Add(2 * time.Minute)
		rec := do(t, s, http.MethodGet, "/movies", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if body := decode[map[string]string](t, rec); body["code"] != CodeTokenExpired {
			t.Errorf("expected token_expired, got %v", body)
		}
	})

	t.Run("token from another secret", func(t *testing.T) {
		other := NewTokenIssuer([]byte("other"), time.Hour, nil)
		token, err := other.Issue("someone")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rec := do(t, newTestServer(t, false), http.MethodGet, "/movies", token, nil)
		if body := decode[map[string]string](t, rec); body["code"] != CodeTokenInvalid {
			t.Errorf("expected token_invalid, got %v", body)
		}
	})
}

func TestMovieRoutes(t *testing.T) {
	s := newTestServer(t, false)
	token := login(t, s, "a@x.com")
	title := func(s string) *string { return &s }
	rating := func(f float64) *float64 { return &f }
	yes := true

	t.Run("create requires title", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/movies", token, movieRequest{Genre: title("Horror")})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if got := decode[errorResponse](t, rec).Error; got != MessageTitleRequired {
			t.Errorf("unexpected error: %s", got)
		}
	})

	rec := do(t, s, http.MethodPost, "/movies", token, movieRequest{Title: title("Alien"), Genre: title("Sci-Fi Horror"), Rating: rating(7)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	alien := decode[Movie](t, rec)
	do(t, s, http.MethodPost, "/movies", token, movieRequest{Title: title("Heat"), Genre: title("Crime"), Watched: &yes})

	t.Run("list filters by genre substring and watched", func(t *testing.T) {
		tt := []struct {
			query string
			want  []string
		}{
			{query: "", want: []string{"Alien", "Heat"}},
			{query: "?genre=horror", want: []string{"Alien"}},
			{query: "?watched=true", want: []string{"Heat"}},
			{query: "?genre=crime&watched=false", want: nil},
		}
		for _, tc := range tt {
			rec := do(t, s, http.MethodGet, "/movies"+tc.query, token, nil)
			movies := decode[[]Movie](t, rec)
			var got []string
			for _, m := range movies {
				got = append(got, m.Title)
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("%q: expected %v, got %v", tc.query, tc.want, got)
			}
		}

		if rec := do(t, s, http.MethodGet, "/movies?watched=maybe", token, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for bad watched, got %d", rec.Code)
		}
	})

	t.Run("patch merges fields", func(t *testing.T) {
		rec := do(t, s, http.MethodPatch, "/movies/1", token, movieRequest{Rating: rating(9.5)})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		got := decode[Movie](t, rec)
		if got.ID != alien.ID || got.Title != "Alien" || got.Genre != "Sci-Fi Horror" || *got.Rating != 9.5 {
			t.Errorf("unexpected merge: %+v", got)
		}
	})

	t.Run("patch rejects blank title and bad rating", func(t *testing.T) {
		if rec := do(t, s, http.MethodPatch, "/movies/1", token, movieRequest{Title: title(" ")}); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for blank title, got %d", rec.Code)
		}
		if rec := do(t, s, http.MethodPatch, "/movies/1", token, movieRequest{Rating: rating(10.5)}); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for rating, got %d", rec.Code)
		}
	})

	t.Run("movies are private to their owner", func(t *testing.T) {
		other := login(t, s, "b@x.com")
		if movies := decode[[]Movie](t, do(t, s, http.MethodGet, "/movies", other, nil)); len(movies) != 0 {
			t.Errorf("expected no movies for other user, got %d", len(movies))
		}
		if rec := do(t, s, http.MethodDelete, "/movies/1", other, nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 deleting another user's movie, got %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if rec := do(t, s, http.MethodDelete, "/movies/1", token, nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		rec := do(t, s, http.MethodDelete, "/movies/1", token, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if got := decode[errorResponse](t, rec).Error; got != MessageMovieNotFound {
			t.Errorf("unexpected error: %s", got)
		}
	})
}

func TestRequestIDEcho(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("expected 200 with echoed id, got %d %q", rec.Code, rec.Header().Get("X-Request-ID"))
	}
}
