package repl

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/curly/log"
	"github.com/ardnew/curly/tmpl"
)

func newTestModel(t *testing.T, history *History) model {
	t.Helper()

	e, err := tmpl.New()
	if err != nil {
		t.Fatal(err)
	}

	if history == nil {
		history = NewHistory("")
	}

	return newModel(t.Context(), e, testData(), history, log.Logger{})
}

func TestRenderLine(t *testing.T) {
	t.Parallel()

	e, err := tmpl.New()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		line string
		want string
	}{
		{"bare_path", "user.name", "John"},
		{"template", "{user.name} in {user.address.city}", "John in Paris"},
		{"bare_call", "upper(title)", "REPORT"},
		{"length", "items.length", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := renderLine(t.Context(), e, testData(), tt.line)
			if err != nil {
				t.Fatalf("renderLine(%q) error = %v", tt.line, err)
			}

			if got != tt.want {
				t.Errorf("renderLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}

	if _, err := renderLine(t.Context(), nil, testData(), "x"); !errors.Is(err, ErrNoEngine) {
		t.Errorf("renderLine(nil engine) error = %v, want %v", err, ErrNoEngine)
	}
}

func TestListData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want []string
	}{
		{"", []string{"user", "{ 2 keys }", "items", "[ 2 items ]", "title", `"Report"`}},
		{"user", []string{"name", `"John"`, "address"}},
		{"items", []string{"0", "1"}},
		{"title", []string{`"Report"`}},
		{"missing", []string{"null"}},
	}

	for _, tt := range tests {
		got := listData(testData(), tt.path)

		for _, want := range tt.want {
			if !strings.Contains(got, want) {
				t.Errorf("listData(%q) = %q, missing %q", tt.path, got, want)
			}
		}
	}
}

func TestListFuncs(t *testing.T) {
	t.Parallel()

	e, err := tmpl.New()
	if err != nil {
		t.Fatal(err)
	}

	all := listFuncs(e.Functions(), "")
	for _, want := range []string{"upper(s)", "truncate(s, n, suffix?)", "path_join(elem...)"} {
		if !strings.Contains(all, want) {
			t.Errorf("listFuncs() missing %q", want)
		}
	}

	filtered := listFuncs(e.Functions(), "trunc")
	if !strings.Contains(filtered, "truncate(") || strings.Contains(filtered, "upper(") {
		t.Errorf("listFuncs(trunc) = %q", filtered)
	}

	if got := listFuncs(nil, ""); got != "" {
		t.Errorf("listFuncs(nil) = %q, want empty", got)
	}
}

func TestSetData(t *testing.T) {
	t.Parallel()

	data := testData()

	got, err := setData(data, "user.age=42")
	if err != nil {
		t.Fatal(err)
	}

	age := tmpl.Resolve("user.age", tmpl.NewScope(tmpl.MappingValue(got)))
	if n, ok := age.Number(); !ok || n != 42 {
		t.Errorf("user.age = %v, want 42", age)
	}

	if _, ok := data.Get("user"); !ok {
		t.Fatal("original data lost user")
	}

	if v := tmpl.Resolve("user.age", tmpl.NewScope(tmpl.MappingValue(data))); !v.IsNull() {
		t.Errorf("original data modified: user.age = %v", v)
	}

	if _, err := setData(data, "no assignment"); !errors.Is(err, tmpl.ErrDecodeData) {
		t.Errorf("setData() error = %v, want %v", err, tmpl.ErrDecodeData)
	}
}

func TestModel_Cycle(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil)
	m.input.SetValue("{user.")
	m.input.SetCursor(6)
	refreshMatches(&m, false)

	if len(m.matches) != 2 {
		t.Fatalf("matches = %v, want name and address", m.matches)
	}

	steps := []struct {
		step int
		want string
	}{
		{1, "{user.name"},
		{1, "{user.address"},
		{1, "{user.name"},
		{-1, "{user.address"},
	}

	for _, s := range steps {
		m = m.cycle(s.step)

		if got := m.input.Value(); got != s.want {
			t.Fatalf("cycle(%d) input = %q, want %q", s.step, got, s.want)
		}
	}

	if !m.tabActive {
		t.Error("tabActive = false while cycling")
	}
}

func TestModel_History(t *testing.T) {
	t.Parallel()

	history := func(t *testing.T) *History {
		t.Helper()

		h := NewHistory("")
		for _, e := range []HistoryEntry{
			{"{a}", modeEval}, {"list", modeCtrl}, {"{b}", modeEval},
		} {
			if err := h.Add(e.Line, e.Mode); err != nil {
				t.Fatal(err)
			}
		}

		return h
	}

	type step struct {
		move     func(model) model
		wantLine string
		wantMode inputMode
	}

	prev := func(m model) model { return m.historyAny(-1) }
	next := func(m model) model { return m.historyAny(1) }
	prevMode := func(m model) model { return m.historyInMode(-1) }
	nextMode := func(m model) model { return m.historyInMode(1) }
	prevCtrl := func(m model) model { return m.historyCtrl(-1) }

	tests := []struct {
		name  string
		draft string
		steps []step
	}{
		{"any", "", []step{
			{prev, "{b}", modeEval},
			{prev, "list", modeCtrl},
			{prev, "{a}", modeEval},
			{prev, "{a}", modeEval},
			{next, "list", modeCtrl},
			{next, "{b}", modeEval},
			{next, "", modeEval},
		}},
		{"in_mode", "", []step{
			{prevMode, "{b}", modeEval},
			{prevMode, "{a}", modeEval},
			{nextMode, "{b}", modeEval},
			{nextMode, "", modeEval},
		}},
		{"ctrl_restores", "draft", []step{
			{prevCtrl, "list", modeCtrl},
			{prevCtrl, "draft", modeEval},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newTestModel(t, history(t))
			m.input.SetValue(tt.draft)

			for i, s := range tt.steps {
				m = s.move(m)

				if got := m.input.Value(); got != s.wantLine || m.mode != s.wantMode {
					t.Fatalf("step %d: (%q, %d), want (%q, %d)",
						i, got, m.mode, s.wantLine, s.wantMode)
				}
			}
		})
	}
}

func TestModel_Submit(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil)
	m.input.SetValue("  user.name ")

	m, cmd := m.submit()
	if cmd == nil {
		t.Error("submit() returned no command")
	}

	if got := m.input.Value(); got != "" {
		t.Errorf("input after submit = %q, want empty", got)
	}

	if e, err := m.history.Entry(0); err != nil || e.Line != "user.name" || e.Mode != modeEval {
		t.Errorf("history entry = (%+v, %v)", e, err)
	}
}

func TestModel_ExecuteCommand(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil)

	m, _ = m.executeCommand("set user.name=Jane")

	if got, err := renderLine(t.Context(), m.engine, m.data, "user.name"); err != nil || got != "Jane" {
		t.Errorf("after set: (%q, %v), want Jane", got, err)
	}

	m, _ = m.executeCommand("set broken")

	if got, _ := renderLine(t.Context(), m.engine, m.data, "user.name"); got != "Jane" {
		t.Errorf("failed set changed data: %q", got)
	}

	if m.quitting {
		t.Fatal("quitting before quit")
	}

	m, _ = m.executeCommand("quit")

	if !m.quitting {
		t.Error("quit did not set quitting")
	}
}
