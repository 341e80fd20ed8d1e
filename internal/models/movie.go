package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MovieID is the server-assigned identifier of a movie.
//
// The API may encode it as a JSON number or string; it is kept as an opaque string either way.
type MovieID string

func (id MovieID) String() string { return string(id) }

// UnmarshalJSON accepts both `5` and `"5"`.
func (id *MovieID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = MovieID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("movie id must be a string or number: %w", err)
	}
	*id = MovieID(n.String())
	return nil
}

// Movie is a movie as returned by the API.
type Movie struct {
	ID       MovieID  `json:"id"`
	Title    string   `json:"title"`
	Director string   `json:"director,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Watched  bool     `json:"watched"`
}

// Pending reports whether the movie has not been created server-side yet.
func (m Movie) Pending() bool { return m.ID == "" }

// MovieDraft is a movie waiting to be created. It has no ID.
type MovieDraft struct {
	Title    string   `json:"title" validate:"required"`
	Director string   `json:"director,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Rating   *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Watched  bool     `json:"watched"`
}

// Validate checks the draft before any network call is made.
func (d MovieDraft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	return validationError(validate.Struct(d))
}

// MovieFields is a partial update. Nil fields are left unchanged by the server.
type MovieFields struct {
	Title    *string  `json:"title,omitempty"`
	Director *string  `json:"director,omitempty"`
	Genre    *string  `json:"genre,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Rating   *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Watched  *bool    `json:"watched,omitempty"`
}

// Empty reports whether no field is set.
func (f MovieFields) Empty() bool {
	return f == MovieFields{}
}

// Validate rejects blank titles and out-of-range ratings.
func (f MovieFields) Validate() error {
	if f.Empty() {
		return fmt.Errorf("%w: no fields to update", shared.ErrValidation)
	}
	if f.Title != nil && strings.TrimSpace(*f.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", shared.ErrValidation)
	}
	return validationError(validate.Struct(f))
}

// Apply returns m with every set field of f copied over.
func (f MovieFields) Apply(m Movie) Movie {
	if f.Title != nil {
		m.Title = *f.Title
	}
	if f.Director != nil {
		m.Director = *f.Director
	}
	if f.Genre != nil {
		m.Genre = *f.Genre
	}
	if f.Year != nil {
		y := *f.Year
		m.Year = &y
	}
	if f.Rating != nil {
		r := *f.Rating
		m.Rating = &r
	}
	if f.Watched != nil {
		m.Watched = *f.Watched
	}
	return m
}

// DraftInput holds raw form text for a movie.
type DraftInput struct {
	Title    string
	Director string
	Genre    string
	Year     string
	Rating   string
	Watched  bool
}

// ParseDraft converts form text into a [MovieDraft].
//
// Blank numeric fields are omitted rather than sent as zero.
func ParseDraft(in DraftInput) (MovieDraft, error) {
	year, err := ParseYear(in.Year)
	if err != nil {
		return MovieDraft{}, err
	}
	rating, err := ParseRating(in.Rating)
	if err != nil {
		return MovieDraft{}, err
	}

	draft := MovieDraft{
		Title:    strings.TrimSpace(in.Title),
		Director: strings.TrimSpace(in.Director),
		Genre:    strings.TrimSpace(in.Genre),
		Year:     year,
		Rating:   rating,
		Watched:  in.Watched,
	}
	return draft, draft.Validate()
}

// DraftInputFrom fills a [DraftInput] from an existing movie, for editing.
func DraftInputFrom(m Movie) DraftInput {
	in := DraftInput{Title: m.Title, Director: m.Director, Genre: m.Genre, Watched: m.Watched}
	if m.Year != nil {
		in.Year = strconv.Itoa(*m.Year)
	}
	if m.Rating != nil {
		in.Rating = strconv.FormatFloat(*m.Rating, 'f', -1, 64)
	}
	return in
}

// FieldsFromInput builds a full-replacement [MovieFields] from form text.
//
// Blank numeric fields stay nil so the server keeps its current values.
func FieldsFromInput(in DraftInput) (MovieFields, error) {
	year, err := ParseYear(in.Year)
	if err != nil {
		return MovieFields{}, err
	}
	rating, err := ParseRating(in.Rating)
	if err != nil {
		return MovieFields{}, err
	}

	title := strings.TrimSpace(in.Title)
	director := strings.TrimSpace(in.Director)
	genre := strings.TrimSpace(in.Genre)
	watched := in.Watched

	fields := MovieFields{
		Title:    &title,
		Director: &director,
		Genre:    &genre,
		Year:     year,
		Rating:   rating,
		Watched:  &watched,
	}
	return fields, fields.Validate()
}

// ParseYear parses an optional year. Blank input yields nil.
func ParseYear(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: year %q is not a whole number", shared.ErrValidation, s)
	}
	return &y, nil
}

// ParseRating parses an optional rating between 0 and 10. Blank input yields nil.
func ParseRating(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	r, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: rating %q is not a number", shared.ErrValidation, s)
	}
	if r < 0 || r > 10 {
		return nil, fmt.Errorf("%w: rating must be between 0 and 10", shared.ErrValidation)
	}
	return &r, nil
}

// Filter narrows a movie listing. The zero value matches everything.
type Filter struct {
	Genre   string
	Watched *bool
}

// Query encodes only the set fields of the filter.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if g := strings.TrimSpace(f.Genre); g != "" {
		q.Set("genre", g)
	}
	if f.Watched != nil {
		q.Set("watched", strconv.FormatBool(*f.Watched))
	}
	return q
}

// Equal reports whether both filters select the same movies.
func (f Filter) Equal(o Filter) bool {
	if strings.TrimSpace(f.Genre) != strings.TrimSpace(o.Genre) {
		return false
	}
	if (f.Watched == nil) != (o.Watched == nil) {
		return false
	}
	return f.Watched == nil || *f.Watched == *o.Watched
}

// WatchedLabel describes the watched part of the filter.
func (f Filter) WatchedLabel() string {
	switch {
	case f.Watched == nil:
		return "all"
	case *f.Watched:
		return "watched"
	default:
		return "unwatched"
	}
}

// ParseWatched parses the tri-state watched filter.
func ParseWatched(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return nil, nil
	case "true", "yes", "watched":
		v := true
		return &v, nil
	case "false", "no", "unwatched":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: watched must be one of all, watched, unwatched", shared.ErrInvalidFlag)
	}
}

func validationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be between 0 and 10", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(msgs, "; "))
}

// LoginInput is the email and password submitted on the login screen.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in LoginInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	return validationError(validate.Struct(in))
}

// RegisterInput is the account form submitted on the register screen.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in RegisterInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return validationError(validate.Struct(in))
}
