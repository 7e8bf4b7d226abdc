package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/curly/log"
	"github.com/ardnew/curly/tmpl"
)

// editDataMsg is sent when the data bindings were edited successfully.
type editDataMsg struct{ data *tmpl.Mapping }

// editCancelledMsg is sent when the user emptied the editor buffer.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a decode
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the editor could not be run.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

const helpMessage = `
: Commands (press Esc to toggle mode):

  help            Print this cruft
  list [path]     List data bindings, or the members of path
  funcs [name]    List template functions, fuzzy-filtered by name
  set path=value  Bind value at path
  edit            Edit data bindings as YAML in external $EDITOR
  clear           Clear screen
  quit            Exit REPL

Usage:
  Type a template to render it against the data bindings
  A line without a tag is rendered as a single tag, so "user.name" and
    "{user.name}" are the same
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between template and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to switch to command mode and navigate command history
    (restores original mode when reaching end of history)
  Press Ctrl+C on empty line or Ctrl+D to exit
`

// inputMode is the interpretation of a submitted line.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc          func() context.Context
	engine           *tmpl.Engine
	data             *tmpl.Mapping
	history          *History
	logger           log.Logger
	input            textinput.Model
	matches          fuzzy.Matches // ranked matches for the current word
	candidates       []string
	evalText         string
	ctrlText         string
	preTabText       string // input before tab-cycling began
	altNavOrigText   string // input before Alt navigation began
	historyIdx       int
	wordStart        int // byte offsets of the word at the cursor
	wordEnd          int
	suggIdx          int
	preTabCursor     int
	altNavOrigCursor int
	width            int
	evalCursor       int
	ctrlCursor       int
	mode             inputMode
	altNavOrigMode   inputMode
	tabActive        bool
	altNavActive     bool
	quitting         bool
}

// Run starts an interactive session that renders each submitted line with e
// against data. History is kept in cacheDir.
func Run(
	ctx context.Context,
	e *tmpl.Engine,
	data *tmpl.Mapping,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if e == nil {
		return ErrNoEngine
	}

	if data == nil {
		data = tmpl.NewMapping()
	}

	logger.TraceContext(ctx, "repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("data_keys", data.Len()),
		slog.Int("funcs", len(e.Functions().Names())),
	)

	history := NewHistory("")
	if cacheDir != "" {
		history = NewHistory(filepath.Join(cacheDir, baseHistory))
	}

	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "history unavailable", slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl history loaded",
		slog.Int("entry_count", history.Len()),
	)

	p := tea.NewProgram(
		newModel(ctx, e, data, history, logger),
		tea.WithContext(ctx),
	)

	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	e *tmpl.Engine,
	data *tmpl.Mapping,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		engine:     e,
		data:       data,
		history:    history,
		logger:     logger,
		input:      ti,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) funcs() *tmpl.Registry {
	if m.engine == nil {
		return nil
	}

	return m.engine.Functions()
}

func (m model) isFunction(name string) bool {
	if reg := m.funcs(); reg != nil {
		_, ok := reg.Lookup(name)

		return ok
	}

	return false
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - lipgloss.Width(evalPrompt) - 2

		return m, nil

	case editDataMsg:
		m.data = msg.data
		m.logger.TraceContext(m.ctxFunc(), "repl edit complete",
			slog.Int("data_keys", m.data.Len()),
		)

		return m, tea.Println(resultStyle.Render("✔ data updated"))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("🗴 error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	return m.input.View() + "\n" + m.hintLine() + "\n"
}

// hintLine returns the line shown below the input: the history position,
// a usage hint, the signature of the enclosing call, or completions.
func (m model) hintLine() string {
	input := m.input.Value()

	if m.historyIdx < m.history.Len() {
		pos := lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx + 1))

		return hintStyle.Render(pos + "/" + strconv.Itoa(m.history.Len()))
	}

	if strings.TrimSpace(input) == "" {
		if m.mode == modeEval {
			return hintStyle.Render("Type a template or press Esc for commands")
		}

		return hintStyle.Render(
			"Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)",
		)
	}

	if m.mode == modeEval {
		if call := detectFunctionCall(input, m.input.Position()); call.inCall {
			if sig, params := getSignature(m.funcs(), call.name); sig != "" {
				hint := renderSignatureHint(sig, params, call.argIndex)
				if f, ok := m.funcs().Lookup(call.name); ok && f.Doc != "" {
					hint += "  " + docStyle.Render(f.Doc)
				}

				return hint
			}
		}
	}

	return renderCandidateBar(m.matches, m.isFunction, m.suggIdx, m.tabActive, m.width)
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.tabActive = false
		m.altNavActive = false
		m.historyIdx = m.history.Len()
		m.setInput("")

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNavActive = false

		if !m.tabActive || len(m.matches) == 0 {
			return m.submit()
		}

		// Lock in the current candidate without submitting.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyCtrl(-1), nil
		}

		return m.historyAny(-1), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyCtrl(1), nil
		}

		return m.historyAny(1), nil

	case tea.KeyShiftUp:
		return m.historyInMode(-1), nil

	case tea.KeyShiftDown:
		return m.historyInMode(1), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNavActive = false

		if m.mode == modeEval {
			return m.switchToMode(modeCtrl), nil
		}

		return m.switchToMode(modeEval), nil

	case tea.KeyRunes, tea.KeySpace:
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	var cmd tea.Cmd

	m.tabActive = false
	m.altNavActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the completion selection by step, wrapping at either end.
// A lone candidate is accepted immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)

	switch {
	case n == 0:
		return m

	case n == 1:
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m

	case m.tabActive:
		m.suggIdx = (m.suggIdx + step + n) % n

	default:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = n - 1
		}
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord substitutes replacement for the word at the cursor.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes the completions for the current input. With
// autoConfirm, a word that already equals its only candidate is accepted.
// Deletions and cursor motion pass false so editing never completes
// unexpectedly.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m *model) setInput(s string) {
	m.input.SetValue(s)
	m.input.SetCursor(len(s))
	refreshMatches(m, false)
}

func (m model) submit() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")

	if err := m.history.Add(input, m.mode); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "history write failed",
			slog.Any("error", err),
		)
	}

	m.historyIdx = m.history.Len()

	if m.mode == modeCtrl {
		m.logger.TraceContext(m.ctxFunc(), "repl command", slog.String("input", input))

		return m.executeCommand(input)
	}

	m.logger.TraceContext(m.ctxFunc(), "repl render", slog.String("input", input))

	echo := tea.Println(promptStyle.Render(evalPrompt) + inputStyle.Render(input))

	out, err := renderLine(m.ctxFunc(), m.engine, m.data, input)
	if err != nil {
		m.logger.TraceContext(m.ctxFunc(), "repl render failed",
			slog.String("error", err.Error()),
		)

		return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	return m, tea.Sequence(echo, tea.Println(resultStyle.Render(out)))
}

// renderLine renders line against data. A line holding no opening delimiter
// is treated as the body of a single tag.
func renderLine(
	ctx context.Context,
	e *tmpl.Engine,
	data *tmpl.Mapping,
	line string,
) (string, error) {
	if e == nil {
		return "", ErrNoEngine
	}

	lhs, rhs := e.Delimiters()
	if !strings.Contains(line, lhs) {
		line = lhs + line + rhs
	}

	return e.Render(ctx, line, data)
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	echo := tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))

	m.logger.TraceContext(m.ctxFunc(), "repl exec command",
		slog.String("command", name),
		slog.String("arg", arg),
	)

	switch name {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echo, tea.Printf("%s", helpMessage))

	case "l", "list":
		return m, tea.Sequence(echo, tea.Println(listData(m.data, arg)))

	case "f", "funcs":
		return m, tea.Sequence(echo, tea.Println(listFuncs(m.funcs(), arg)))

	case "s", "set":
		data, err := setData(m.data, arg)
		if err != nil {
			return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
		}

		m.data = data

		return m, echo

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echo, m.editData())

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + name + " (try 'help')"),
		)
	}
}

// listData renders one line per member of the mapping at path, or of data
// itself when path is empty.
func listData(data *tmpl.Mapping, path string) string {
	v := tmpl.MappingValue(data)
	if path != "" {
		v = tmpl.ParsePath(path).Resolve(tmpl.NewScope(v))
	}

	var b strings.Builder

	switch v.Kind() {
	case tmpl.KindMapping:
		for k, item := range v.Mapping().All() {
			fmt.Fprintf(&b, "  %s %s\n", k, hintStyle.Render(formatPreview(item)))
		}

	case tmpl.KindSequence:
		for i, item := range v.Items() {
			fmt.Fprintf(&b, "  %d %s\n", i, hintStyle.Render(formatPreview(item)))
		}

	default:
		fmt.Fprintf(&b, "  %s\n", hintStyle.Render(formatPreview(v)))
	}

	return strings.TrimRight(b.String(), "\n")
}

// listFuncs renders the usage and description of each registered function
// whose name fuzzy-matches pattern, or of every function when pattern is
// empty.
func listFuncs(reg *tmpl.Registry, pattern string) string {
	if reg == nil {
		return ""
	}

	names := reg.Names()

	if pattern != "" {
		matches := fuzzy.Find(pattern, names)

		names = make([]string, len(matches))
		for i, match := range matches {
			names[i] = match.Str
		}
	}

	width := 0

	for _, name := range names {
		if f, ok := reg.Lookup(name); ok {
			width = max(width, lipgloss.Width(f.Usage))
		}
	}

	usage := lipgloss.NewStyle().Width(width)

	var b strings.Builder

	for _, name := range names {
		f, _ := reg.Lookup(name)
		fmt.Fprintf(&b, "  %s  %s\n",
			signatureNameStyle.Render(usage.Render(f.Usage)),
			docStyle.Render(f.Doc),
		)
	}

	return strings.TrimRight(b.String(), "\n")
}

// setData returns a copy of data with the "path=value" assignment applied.
func setData(data *tmpl.Mapping, assignment string) (*tmpl.Mapping, error) {
	path, v, err := tmpl.ParseAssignment(assignment)
	if err != nil {
		return data, err
	}

	return data.SetPath(path, v), nil
}

func (m model) editData() tea.Cmd {
	cmd := &editDataCommand{
		data:    m.data,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}

		case err != nil:
			return editErrorMsg{err: err}

		case cmd.updated == nil:
			return editCancelledMsg{}

		default:
			return editDataMsg{data: cmd.updated}
		}
	})
}

// seekHistory moves the history cursor by step to the nearest entry accepted
// by match and loads it, switching modes to the entry's. It reports whether
// an entry was found.
func (m model) seekHistory(step int, match func(HistoryEntry) bool) (model, bool) {
	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		entry, err := m.history.Entry(i)
		if err != nil || !match(entry) {
			continue
		}

		if entry.Mode != m.mode {
			m = m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.setInput(entry.Line)

		return m, true
	}

	return m, false
}

// parkHistory moves the history cursor past the newest entry.
func (m model) parkHistory() model {
	if m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.setInput("")
	}

	return m
}

func (m model) historyAny(step int) model {
	m, found := m.seekHistory(step, func(HistoryEntry) bool { return true })
	if !found && step > 0 {
		return m.parkHistory()
	}

	return m
}

func (m model) historyInMode(step int) model {
	mode := m.mode

	m, found := m.seekHistory(step, func(e HistoryEntry) bool { return e.Mode == mode })
	if !found && step > 0 {
		return m.parkHistory()
	}

	return m
}

// historyCtrl walks command history only. The first step switches to command
// mode; running off either end restores the line and mode it started from.
func (m model) historyCtrl(step int) model {
	if !m.altNavActive {
		m.altNavActive = true
		m.altNavOrigMode = m.mode
		m.altNavOrigText = m.input.Value()
		m.altNavOrigCursor = m.input.Position()

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	m, found := m.seekHistory(step, func(e HistoryEntry) bool { return e.Mode == modeCtrl })
	if found {
		return m
	}

	m.altNavActive = false

	if m.altNavOrigMode != m.mode {
		m = m.switchToMode(m.altNavOrigMode)
	}

	m.historyIdx = m.history.Len()
	m.input.SetValue(m.altNavOrigText)
	m.input.SetCursor(m.altNavOrigCursor)
	refreshMatches(&m, false)

	return m
}

// switchToMode saves the current mode's input and restores the input last
// seen in mode.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeEval {
		m.evalText, m.evalCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m
}
