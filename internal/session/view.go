package session

import (
	"fmt"
	"strings"

	"github.com/jask/hwexplorer/internal/deepdive"
)

// Indicator is the visual class of the status dot.
type Indicator string

const (
	IndicatorNeutral Indicator = "neutral"
	IndicatorRunning Indicator = "running"
	IndicatorSuccess Indicator = "success"
	IndicatorError   Indicator = "error"
)

// TerminalClass styles the output terminal.
type TerminalClass string

const (
	TerminalPlain   TerminalClass = "plain"
	TerminalSuccess TerminalClass = "success"
	TerminalError   TerminalClass = "error"
)

const (
	hintPressRun  = "Press RUN to execute the binary →"
	hintExecuting = "Executing…"
	hintNoOutput  = "(no output)"
)

// Terminal is the output view. Exactly one of Text and Hint is non-empty once
// a language has been selected, so adapters never render an empty terminal.
type Terminal struct {
	Command    string        `json:"command"`
	Text       string        `json:"text,omitempty"`
	Hint       string        `json:"hint,omitempty"`
	Class      TerminalClass `json:"class"`
	ShowMeta   bool          `json:"show_meta"`
	ExitCode   *int          `json:"exit_code,omitempty"`
	DurationMs *int64        `json:"duration_ms,omitempty"`
}

// Meta formats the exit code and duration line, or "" when hidden.
func (t Terminal) Meta() string {
	if !t.ShowMeta || t.ExitCode == nil || t.DurationMs == nil {
		return ""
	}
	return fmt.Sprintf("EXIT: %d  TIME: %dms", *t.ExitCode, *t.DurationMs)
}

// ViewModel is an immutable snapshot of everything a render adapter shows.
type ViewModel struct {
	Status     Status            `json:"status"`
	StatusText string            `json:"status_text"`
	Indicator  Indicator         `json:"indicator"`
	ActiveTab  Tab               `json:"active_tab"`
	Current    string            `json:"current_language,omitempty"`
	Pending    string            `json:"pending_language,omitempty"`
	Language   *LanguageBundle   `json:"language,omitempty"`
	Document   deepdive.Document `json:"document"`
	LastRun    *RunResult        `json:"last_run,omitempty"`
	Terminal   Terminal          `json:"terminal"`
	RunEnabled bool              `json:"run_enabled"`
	Error      string            `json:"error,omitempty"`
}

// View builds a snapshot of the current state.
func (c *Controller) View() ViewModel {
	st := c.State()
	vm := ViewModel{
		Status:     st.Status,
		ActiveTab:  st.ActiveTab,
		Current:    st.CurrentLanguage,
		LastRun:    st.LastRunResult,
		Document:   c.store.Document(),
		RunEnabled: c.CanRun(),
		Error:      c.loadErr,
	}
	if st.Status == StatusLoading {
		vm.Pending = c.pending
	}
	if b, ok := c.store.Bundle(); ok {
		vm.Language = &b
	}
	if c.runErr && st.LastRunResult != nil {
		vm.Error = st.LastRunResult.Stderr
	}
	vm.Indicator, vm.StatusText = c.statusLine(vm.Language)
	vm.Terminal = c.terminal(st)
	return vm
}

func (c *Controller) statusLine(b *LanguageBundle) (Indicator, string) {
	switch c.state.Status {
	case StatusLoading:
		return IndicatorNeutral, fmt.Sprintf("LOADING %s…", strings.ToUpper(c.pending))
	case StatusReady:
		name := c.state.CurrentLanguage
		if b != nil && b.DisplayName != "" {
			name = b.DisplayName
		}
		return IndicatorNeutral, strings.ToUpper(name) + " READY"
	case StatusLoadError:
		return IndicatorError, "LOAD FAILED"
	case StatusRunning:
		return IndicatorRunning, "RUNNING…"
	case StatusRunSuccess:
		return IndicatorSuccess, "EXECUTED OK"
	case StatusRunFailure:
		if c.runErr {
			return IndicatorError, "EXEC FAILED"
		}
		if r := c.state.LastRunResult; r != nil && r.ExitCode != nil {
			return IndicatorError, fmt.Sprintf("EXIT %d", *r.ExitCode)
		}
		return IndicatorError, "EXEC FAILED"
	}
	return IndicatorNeutral, "SELECT A LANGUAGE"
}

// CommandLabel is the shell command shown above a language's output.
func CommandLabel(lang string) string {
	if lang == "" {
		return ""
	}
	return "./hello_" + lang
}

func (c *Controller) terminal(st SessionState) Terminal {
	t := Terminal{Command: CommandLabel(st.CurrentLanguage), Class: TerminalPlain}
	switch st.Status {
	case StatusIdle:
		return t
	case StatusRunning:
		t.Hint = hintExecuting
		return t
	}
	r := st.LastRunResult
	if r == nil {
		if c.CanRun() {
			t.Hint = hintPressRun
		}
		return t
	}
	if c.runErr {
		t.Class = TerminalError
		t.Text = fmt.Sprintf("Error: %s\n\nMake sure the binary exists in %s/", r.Stderr, strings.TrimRight(c.binDir, "/"))
		return t
	}

	t.ShowMeta = true
	t.ExitCode = r.ExitCode
	t.DurationMs = r.DurationMs
	ok := r.ExitCode != nil && *r.ExitCode == 0
	if r.Stdout != "" {
		t.Text = r.Stdout
		if ok {
			t.Class = TerminalSuccess
		}
	}
	if r.Stderr != "" {
		t.Text += r.Stderr
		t.Class = TerminalError
	}
	if t.Text == "" {
		t.Hint = hintNoOutput
	}
	return t
}
