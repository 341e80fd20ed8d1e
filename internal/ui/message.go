package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgMoviesFetched
	MsgMovieSaved
	MsgMovieDeleted
	MsgAuthDone
)

type fetchResult struct {
	movies []models.Movie
	err    error
}

type saveResult struct {
	op    tasks.Op
	movie models.Movie
	err   error
}

type deleteResult struct {
	id  models.MovieID
	err error
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}

// moviesFetchedMsg is the constructor for [MsgMoviesFetched]
func moviesFetchedMsg(movies []models.Movie, err error) Msg {
	return Msg{kind: MsgMoviesFetched, data: fetchResult{movies, err}}
}

// movieSavedMsg is the constructor for [MsgMovieSaved]
func movieSavedMsg(op tasks.Op, movie models.Movie, err error) Msg {
	return Msg{kind: MsgMovieSaved, data: saveResult{op, movie, err}}
}

// movieDeletedMsg is the constructor for [MsgMovieDeleted]
func movieDeletedMsg(id models.MovieID, err error) Msg {
	return Msg{kind: MsgMovieDeleted, data: deleteResult{id, err}}
}

// authDoneMsg is the constructor for [MsgAuthDone]
func authDoneMsg(err error) Msg {
	return Msg{kind: MsgAuthDone, data: err}
}
