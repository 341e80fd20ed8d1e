package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/session"
	"github.com/desertthunder/watchlist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	LoginView
	RegisterView
	ListView
	FormView
	ConfirmView
	FilterView
)

const (
	defaultPollInterval = 100 * time.Millisecond
	maxToasts           = 3
	toastTTL            = 4 * time.Second
)

// Movie form field order.
const (
	fieldTitle = iota
	fieldDirector
	fieldGenre
	fieldYear
	fieldRating
)

// Options holds the collaborators the TUI drives.
type Options struct {
	Session    *session.Machine
	Inbox      *session.Inbox // must be the notifier and navigator the session, auth flow and collection use
	Auth       *tasks.AuthFlow
	Collection *tasks.Collection
	Logger     *log.Logger
	// PollInterval is how often the inbox is drained. Zero uses a default; negative disables polling.
	PollInterval time.Duration
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	session    *session.Machine
	inbox      *session.Inbox
	auth       *tasks.AuthFlow
	collection *tasks.Collection
	logger     *log.Logger
	poll       time.Duration

	view     ViewState
	width    int
	height   int
	login    form
	register form
	movie    form
	watched  bool
	editing  models.MovieID
	genre    form
	movies   list.Model
	filter   models.Filter
	target   models.MovieID
	toasts   []toast
	authBusy bool
	pending  map[tasks.Op]int
	help     help.Model
	keys     keyMap
}

// toast is a notification on screen since at.
type toast struct {
	note session.Notification
	at   time.Time
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}

	movies := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	movies.Title = "Watchlist"
	movies.SetFilteringEnabled(false)
	movies.SetShowHelp(false)
	movies.SetStatusBarItemName("movie", "movies")
	movies.DisableQuitKeybindings()

	return &Model{
		ctx:        ctx,
		session:    opts.Session,
		inbox:      opts.Inbox,
		auth:       opts.Auth,
		collection: opts.Collection,
		logger:     opts.Logger,
		poll:       opts.PollInterval,
		view:       LoadingView,
		login: newForm("Log in",
			field{label: "Email", placeholder: "you@example.com"},
			field{label: "Password", secret: true},
		),
		register: newForm("Create account",
			field{label: "Name", placeholder: "Ana"},
			field{label: "Email", placeholder: "you@example.com"},
			field{label: "Password", secret: true},
		),
		movie: newForm("Add movie",
			field{label: "Title", placeholder: "required"},
			field{label: "Director"},
			field{label: "Genre"},
			field{label: "Year", placeholder: "1979"},
			field{label: "Rating", placeholder: "0 - 10"},
		),
		genre:  newForm("Filter by genre", field{label: "Genre", placeholder: "empty shows all"}),
		movies:  movies,
		pending: map[tasks.Op]int{},
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Current reports the active view.
func (m *Model) Current() ViewState { return m.view }

// Init routes to the protected root, which the session guard may turn into the login screen.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.navigate(session.RouteHome), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.movies.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case LoginView:
			return m, m.handleLoginKeys(msg)
		case RegisterView:
			return m, m.handleRegisterKeys(msg)
		case ListView:
			return m.handleListKeys(msg)
		case FormView:
			return m, m.handleFormKeys(msg)
		case ConfirmView:
			return m, m.handleConfirmKeys(msg)
		case FilterView:
			return m, m.handleFilterKeys(msg)
		}
		return m, nil

	case Msg:
		return m, m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgTick:
		m.expireToasts(time.Now())
		return tea.Batch(m.drain(), m.tick())

	case MsgAuthDone:
		m.authBusy = false
		return m.drain()

	case MsgMoviesFetched:
		m.settle(tasks.OpList)
		if res := msg.data.(fetchResult); res.err == nil {
			m.filter = m.collection.Filter()
		}
		m.syncList()
		return m.drain()

	case MsgMovieSaved:
		res := msg.data.(saveResult)
		m.settle(res.op)
		if res.err == nil {
			m.view = ListView
			m.syncList()
		}
		return m.drain()

	case MsgMovieDeleted:
		m.settle(tasks.OpDelete)
		m.view = ListView
		m.syncList()
		return m.drain()
	}
	return nil
}

// drain applies queued notifications and navigations.
func (m *Model) drain() tea.Cmd {
	notes, routes := m.inbox.Drain()
	for _, n := range notes {
		m.pushToast(n)
	}

	var cmds []tea.Cmd
	for _, r := range routes {
		cmds = append(cmds, m.navigate(r))
	}
	return tea.Batch(cmds...)
}

// navigate switches to the view for route after the session guard has resolved it.
func (m *Model) navigate(route session.Route) tea.Cmd {
	resolved, ok := m.session.Resolve(route)
	if !ok {
		return nil
	}
	m.logger.Debug("navigate", "route", route, "resolved", resolved)

	switch resolved {
	case session.RouteLogin:
		m.view = LoginView
		m.collection.Reset()
		m.syncList()
		m.login.reset()
	case session.RouteRegister:
		m.view = RegisterView
		m.register.reset()
	case session.RouteHome:
		m.view = ListView
		return m.fetchMovies(m.filter)
	}
	return nil
}

// pushToast stacks n under the current toasts, keeping the newest [maxToasts].
func (m *Model) pushToast(n session.Notification) {
	m.toasts = append(m.toasts, toast{note: n, at: time.Now()})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) expireToasts(now time.Time) {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Sub(t.at) < toastTTL {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// busy reports whether any of ops was sent by the TUI and has not answered yet, or is in flight in the collection.
func (m *Model) busy(ops ...tasks.Op) bool {
	for _, op := range ops {
		if m.pending[op] > 0 || m.collection.Busy(op) {
			return true
		}
	}
	return false
}

func (m *Model) settle(op tasks.Op) {
	if m.pending[op] > 0 {
		m.pending[op]--
	}
}

func (m *Model) tick() tea.Cmd {
	if m.poll < 0 {
		return nil
	}
	return tea.Tick(m.poll, func(time.Time) tea.Msg { return tickMsg() })
}

func (m *Model) syncList() {
	m.movies.SetItems(movieItems(m.collection.Movies()))
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.account):
		return m.navigate(session.RouteRegister)
	case key.Matches(msg, m.keys.submit):
		return m.submitLogin()
	case key.Matches(msg, m.keys.next):
		m.login.next()
		return nil
	case key.Matches(msg, m.keys.prev):
		m.login.prev()
		return nil
	case msg.String() == "esc":
		return tea.Quit
	}
	return m.login.update(msg)
}

func (m *Model) handleRegisterKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.account), key.Matches(msg, m.keys.back):
		return m.navigate(session.RouteLogin)
	case key.Matches(msg, m.keys.submit):
		return m.submitRegister()
	case key.Matches(msg, m.keys.next):
		m.register.next()
		return nil
	case key.Matches(msg, m.keys.prev):
		m.register.prev()
		return nil
	}
	return m.register.update(msg)
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.add):
		m.openForm(nil)
		return m, nil
	case key.Matches(msg, m.keys.edit):
		if mv, ok := m.selected(); ok {
			m.openForm(&mv)
		}
		return m, nil
	case key.Matches(msg, m.keys.delete):
		if mv, ok := m.selected(); ok {
			m.target = mv.ID
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.filter):
		m.genre.reset()
		m.genre.setValues(m.filter.Genre)
		m.view = FilterView
		return m, nil
	case key.Matches(msg, m.keys.watched):
		f := m.filter
		f.Watched = nextWatched(f.Watched)
		return m, m.fetchMovies(f)
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchMovies(m.filter)
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.movies, cmd = m.movies.Update(msg)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = ListView
		return nil
	case key.Matches(msg, m.keys.submit):
		return m.submitMovie()
	case key.Matches(msg, m.keys.toggle):
		m.watched = !m.watched
		return nil
	case key.Matches(msg, m.keys.next):
		m.movie.next()
		return nil
	case key.Matches(msg, m.keys.prev):
		m.movie.prev()
		return nil
	}
	return m.movie.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.yes):
		return m.deleteMovie(m.target)
	case key.Matches(msg, m.keys.no):
		m.view = ListView
	}
	return nil
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = ListView
		return nil
	case key.Matches(msg, m.keys.submit):
		f := m.filter
		f.Genre = strings.TrimSpace(m.genre.value(0))
		m.view = ListView
		return m.fetchMovies(f)
	}
	return m.genre.update(msg)
}

func (m *Model) selected() (models.Movie, bool) {
	item, ok := m.movies.SelectedItem().(movieItem)
	if !ok {
		return models.Movie{}, false
	}
	return item.movie, true
}

// openForm prepares the movie form, prefilled when editing.
func (m *Model) openForm(mv *models.Movie) {
	m.movie.reset()
	m.watched = false
	m.editing = ""
	m.movie.title = "Add movie"

	if mv != nil {
		in := models.DraftInputFrom(*mv)
		m.movie.setValues(in.Title, in.Director, in.Genre, in.Year, in.Rating)
		m.watched = in.Watched
		m.editing = mv.ID
		m.movie.title = "Edit movie"
	}
	m.view = FormView
}

func (m *Model) formInput() models.DraftInput {
	return models.DraftInput{
		Title:    m.movie.value(fieldTitle),
		Director: m.movie.value(fieldDirector),
		Genre:    m.movie.value(fieldGenre),
		Year:     m.movie.value(fieldYear),
		Rating:   m.movie.value(fieldRating),
		Watched:  m.watched,
	}
}

func (m *Model) submitLogin() tea.Cmd {
	if m.authBusy {
		return nil
	}
	m.authBusy = true
	in := models.LoginInput{Email: m.login.value(0), Password: m.login.value(1)}
	return func() tea.Msg {
		return authDoneMsg(m.auth.Login(m.ctx, in))
	}
}

func (m *Model) submitRegister() tea.Cmd {
	if m.authBusy {
		return nil
	}
	m.authBusy = true
	in := models.RegisterInput{Name: m.register.value(0), Email: m.register.value(1), Password: m.register.value(2)}
	return func() tea.Msg {
		return authDoneMsg(m.auth.Register(m.ctx, in))
	}
}

// submitMovie parses the form and creates or updates. Parse errors are shown without a request.
func (m *Model) submitMovie() tea.Cmd {
	if m.busy(tasks.OpCreate, tasks.OpUpdate) {
		return nil
	}

	in := m.formInput()
	if m.editing == "" {
		draft, err := models.ParseDraft(in)
		if err != nil {
			m.showError(err)
			return nil
		}
		m.pending[tasks.OpCreate]++
		return func() tea.Msg {
			mv, err := m.collection.Create(m.ctx, draft)
			return movieSavedMsg(tasks.OpCreate, mv, err)
		}
	}

	fields, err := models.FieldsFromInput(in)
	if err != nil {
		m.showError(err)
		return nil
	}
	id := m.editing
	m.pending[tasks.OpUpdate]++
	return func() tea.Msg {
		mv, err := m.collection.Update(m.ctx, id, fields)
		return movieSavedMsg(tasks.OpUpdate, mv, err)
	}
}

func (m *Model) deleteMovie(id models.MovieID) tea.Cmd {
	if m.busy(tasks.OpDelete) {
		return nil
	}
	m.pending[tasks.OpDelete]++
	return func() tea.Msg {
		return movieDeletedMsg(id, m.collection.Delete(m.ctx, id))
	}
}

// fetchMovies is a no-op while another fetch is outstanding.
func (m *Model) fetchMovies(filter models.Filter) tea.Cmd {
	if m.busy(tasks.OpList) {
		return nil
	}
	m.pending[tasks.OpList]++
	return func() tea.Msg {
		movies, err := m.collection.List(m.ctx, filter)
		return moviesFetchedMsg(movies, err)
	}
}

func (m *Model) logout() tea.Cmd {
	if err := m.auth.Logout(); err != nil {
		m.logger.Warn("logout failed", "error", err)
	}
	return m.drain()
}

func (m *Model) showError(err error) {
	m.pushToast(session.Notification{Level: session.LevelError, Message: strings.TrimPrefix(err.Error(), "validation failed: ")})
}

func nextWatched(w *bool) *bool {
	switch {
	case w == nil:
		v := true
		return &v
	case *w:
		v := false
		return &v
	default:
		return nil
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LoadingView:
		body = "Loading..."
	case LoginView:
		body = m.renderAuth(&m.login, "ctrl+r: create an account")
	case RegisterView:
		body = m.renderAuth(&m.register, "esc: back to log in")
	case ListView:
		body = m.renderList()
	case FormView:
		body = m.renderForm()
	case ConfirmView:
		body = m.renderConfirm()
	case FilterView:
		body = styles.box.Render(m.genre.view())
	}

	if m.session.RedirectPending() {
		body += "\n\n" + styles.help.Render("Redirecting to log in...")
	}
	if len(m.toasts) > 0 {
		lines := make([]string, len(m.toasts))
		for i, t := range m.toasts {
			lines[i] = styles.Toast(t.note)
		}
		body += "\n\n" + strings.Join(lines, "\n")
	}
	return body
}

func (m *Model) renderAuth(f *form, hint string) string {
	status := ""
	if m.authBusy {
		status = "\n" + styles.help.Render("Submitting...")
	}
	return styles.box.Render(f.view()+status) + "\n" + styles.help.Render(hint)
}

func (m *Model) renderList() string {
	filter := fmt.Sprintf("genre: %s · status: %s", orAll(m.filter.Genre), m.filter.WatchedLabel())
	if m.busy(tasks.OpList) {
		filter += " · loading..."
	}

	helpKeys := []key.Binding{m.keys.add, m.keys.edit, m.keys.delete, m.keys.filter, m.keys.watched, m.keys.logout, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", m.movies.View(), styles.help.Render(filter), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderForm() string {
	watched := "[ ] Watched"
	if m.watched {
		watched = "[x] Watched"
	}

	submit := "enter: save"
	if m.busy(tasks.OpCreate, tasks.OpUpdate) {
		submit = "Saving..."
	}

	helpKeys := []key.Binding{m.keys.next, m.keys.toggle, m.keys.submit, m.keys.back}
	return styles.box.Render(m.movie.view()+"\n  "+watched+"\n\n"+styles.help.Render(submit)) + "\n" + m.help.ShortHelpView(helpKeys)
}

func (m *Model) renderConfirm() string {
	name := fmt.Sprintf("movie %s", m.target)
	if mv, ok := m.collection.Find(m.target); ok {
		name = fmt.Sprintf("%q", mv.Title)
	}
	status := "This cannot be undone."
	if m.busy(tasks.OpDelete) {
		status = "Deleting..."
	}

	title := styles.warn.Render("Delete " + name + "?")
	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, status, m.help.ShortHelpView(helpKeys))
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
