package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/watchlist/internal/shared"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Error texts returned by the handlers.
const (
	MessageInvalidCredentials = "Credenciais inválidas."
	MessageEmailTaken         = "E-mail já cadastrado."
	MessageRegisterRequired   = "Nome, e-mail e senha são obrigatórios."
	MessageLoginRequired      = "E-mail e senha são obrigatórios."
	MessageTitleRequired      = "Título é obrigatório."
	MessageRatingRange        = "A nota deve estar entre 0 e 10."
	MessageMovieNotFound      = "Filme não encontrado."
	MessageInvalidBody        = "Corpo da requisição inválido."
	MessageInvalidWatched     = "Parâmetro watched inválido."
	MessageInternal           = "Erro interno do servidor."
)

type errorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type movieRequest struct {
	Title    *string  `json:"title"`
	Director *string  `json:"director"`
	Genre    *string  `json:"genre"`
	Year     *int     `json:"year"`
	Rating   *float64 `json:"rating"`
	Watched  *bool    `json:"watched"`
}

func (req movieRequest) validate(partial bool) string {
	if (req.Title != nil && strings.TrimSpace(*req.Title) == "") || (!partial && req.Title == nil) {
		return MessageTitleRequired
	}
	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 10) {
		return MessageRatingRange
	}
	return ""
}

func (req movieRequest) apply(m *Movie) {
	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.Director != nil {
		m.Director = *req.Director
	}
	if req.Genre != nil {
		m.Genre = *req.Genre
	}
	if req.Year != nil {
		m.Year = req.Year
	}
	if req.Rating != nil {
		m.Rating = req.Rating
	}
	if req.Watched != nil {
		m.Watched = *req.Watched
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, MessageRegisterRequired)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, MessageInternal)
		return
	}

	user, err := s.store.CreateUser(req.Name, req.Email, hash)
	if err != nil {
		writeError(w, http.StatusConflict, MessageEmailTaken)
		return
	}

	s.logger.Info("user registered", "id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, MessageLoginRequired)
		return
	}

	user, ok := s.store.UserByEmail(req.Email)
	if !ok || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: MessageInvalidCredentials, Message: MessageInvalidCredentials})
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, MessageInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	q := MovieQuery{Genre: strings.TrimSpace(r.URL.Query().Get("genre"))}
	if raw := r.URL.Query().Get("watched"); raw != "" {
		watched, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, MessageInvalidWatched)
			return
		}
		q.Watched = &watched
	}

	writeJSON(w, http.StatusOK, s.store.Movies(userFrom(r.Context()), q))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var m Movie
	req.apply(&m)
	writeJSON(w, http.StatusCreated, s.store.CreateMovie(userFrom(r.Context()), m))
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	var req movieRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	m, err := s.store.UpdateMovie(userFrom(r.Context()), id, func(m *Movie) error {
		req.apply(m)
		return nil
	})
	if errors.Is(err, shared.ErrMovieNotFound) {
		writeError(w, http.StatusNotFound, MessageMovieNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteMovie(userFrom(r.Context()), id); err != nil {
		writeError(w, http.StatusNotFound, MessageMovieNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func movieID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, MessageMovieNotFound)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, MessageInvalidBody)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
