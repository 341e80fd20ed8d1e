package server

import (
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/watchlist/internal/shared"
)

// User is an account on the mock API.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"-"`
}

// Movie is the wire representation served by the mock API. Ids are sequential integers per server.
type Movie struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Director string   `json:"director,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Watched  bool     `json:"watched"`
	owner    string
}

// MovieQuery filters a listing. Genre matches case-insensitive substrings.
type MovieQuery struct {
	Genre   string
	Watched *bool
}

func (q MovieQuery) match(m *Movie) bool {
	if q.Genre != "" && !strings.Contains(strings.ToLower(m.Genre), strings.ToLower(q.Genre)) {
		return false
	}
	return q.Watched == nil || m.Watched == *q.Watched
}

// Store holds users and their movies in memory.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*User // by id
	emails map[string]string
	movies map[int]*Movie
	nextID int
}

func NewStore() *Store {
	return &Store{
		users:  map[string]*User{},
		emails: map[string]string{},
		movies: map[int]*Movie{},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser adds a user, failing with [shared.ErrInvalidInput] when the email is taken.
func (s *Store) CreateUser(name, email string, hash []byte) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(email)
	if _, ok := s.emails[key]; ok {
		return User{}, shared.ErrInvalidInput
	}

	u := &User{ID: shared.GenerateID(), Name: strings.TrimSpace(name), Email: key, PasswordHash: hash}
	s.users[u.ID] = u
	s.emails[key] = u.ID
	return *u, nil
}

func (s *Store) UserByEmail(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return User{}, false
	}
	return *s.users[id], true
}

func (s *Store) UserByID(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Movies lists the owner's movies matching q, in creation order.
func (s *Store) Movies(owner string, q MovieQuery) []Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Movie{}
	for _, m := range s.movies {
		if m.owner == owner && q.match(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateMovie assigns the next id to m and stores it for owner.
func (s *Store) CreateMovie(owner string, m Movie) Movie {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m.ID = s.nextID
	m.owner = owner
	s.movies[m.ID] = &m
	return m
}

// UpdateMovie applies fn to the owner's movie and returns the result.
//
// fn works on a copy; returning an error leaves the stored movie unchanged.
func (s *Store) UpdateMovie(owner string, id int, fn func(*Movie) error) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[id]
	if !ok || m.owner != owner {
		return Movie{}, shared.ErrMovieNotFound
	}

	updated := *m
	if err := fn(&updated); err != nil {
		return Movie{}, err
	}
	s.movies[id] = &updated
	return updated, nil
}

// DeleteMovie removes the owner's movie.
func (s *Store) DeleteMovie(owner string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[id]
	if !ok || m.owner != owner {
		return shared.ErrMovieNotFound
	}
	delete(s.movies, id)
	return nil
}
