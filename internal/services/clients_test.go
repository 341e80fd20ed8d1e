package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestMovieClient(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/movies" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.URL.Query().Get("watched") != "true" {
				t.Errorf("expected watched=true, got %q", r.URL.RawQuery)
			}
			w.Write([]byte(`[{"id":1,"title":"Alien","watched":true},{"id":"2","title":"Heat","year":1995,"watched":true}]`))
		}))
		defer server.Close()

		client := NewMovieClient(newTestGateway(server.URL, nil, "T1", nil))
		movies, err := client.List(context.Background(), models.Filter{Watched: ptr(true)})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.Movie{
			{ID: "1", Title: "Alien", Watched: true},
			{ID: "2", Title: "Heat", Year: ptr(1995), Watched: true},
		}
		if diff := cmp.Diff(want, movies); diff != "" {
			t.Errorf("List mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("List Empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`null`))
		}))
		defer server.Close()

		movies, err := NewMovieClient(newTestGateway(server.URL, nil, "", nil)).List(context.Background(), models.Filter{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if movies == nil || len(movies) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", movies)
		}
	})

	t.Run("List Malformed Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"movies":`))
		}))
		defer server.Close()

		_, err := NewMovieClient(newTestGateway(server.URL, nil, "", nil)).List(context.Background(), models.Filter{})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Create", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"title":"Alien","watched":false}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":7,"title":"Alien","watched":false}`))
		}))
		defer server.Close()

		movie, err := NewMovieClient(newTestGateway(server.URL, nil, "", nil)).Create(context.Background(), models.MovieDraft{Title: "Alien"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if movie.ID != "7" {
			t.Errorf("expected id 7, got %s", movie.ID)
		}
	})

	t.Run("Create Response Without ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title":"Alien"}`))
		}))
		defer server.Close()

		_, err := NewMovieClient(newTestGateway(server.URL, nil, "", nil)).Create(context.Background(), models.MovieDraft{Title: "Alien"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch || r.URL.Path != "/movies/5" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var fields map[string]any
			json.NewDecoder(r.Body).Decode(&fields)
			if len(fields) != 1 || fields["rating"] != 9.5 {
				t.Errorf("expected only rating in body, got %v", fields)
			}
			w.Write([]byte(`{"id":5,"title":"Alien","rating":9.5,"watched":true}`))
		}))
		defer server.Close()

		movie, err := NewMovieClient(newTestGateway(server.URL, nil, "", nil)).
			Update(context.Background(), "5", models.MovieFields{Rating: ptr(9.5)})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if *movie.Rating != 9.5 {
			t.Errorf("expected rating 9.5, got %v", *movie.Rating)
		}
	})

	t.Run("Update Without ID", func(t *testing.T) {
		client := NewMovieClient(newTestGateway("http://example.com", nil, "", nil))
		if _, err := client.Update(context.Background(), "", models.MovieFields{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != "/movies/5" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		if err := NewMovieClient(newTestGateway(server.URL, nil, "", nil)).Delete(context.Background(), "5"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Delete Not Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Filme não encontrado."}`))
		}))
		defer server.Close()

		err := NewMovieClient(newTestGateway(server.URL, nil, "", nil)).Delete(context.Background(), "99")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 APIError, got %v", err)
		}
	})
}

func TestAuthClient(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/login" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "a@x.com" || body["password"] != "pw" {
				t.Errorf("unexpected body %v", body)
			}
			w.Write([]byte(`{"token":"T1"}`))
		}))
		defer server.Close()

		cred, err := NewAuthClient(newTestGateway(server.URL, nil, "", nil)).Login(context.Background(), "a@x.com", "pw")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cred != "T1" {
			t.Errorf("expected T1, got %s", cred)
		}
	})

	t.Run("Login Without Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := NewAuthClient(newTestGateway(server.URL, nil, "", nil)).Login(context.Background(), "a@x.com", "pw")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Register", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["name"] != "Ana" {
				t.Errorf("unexpected body %v", body)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		if err := NewAuthClient(newTestGateway(server.URL, nil, "", nil)).Register(context.Background(), "Ana", "a@x.com", "pw"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}
