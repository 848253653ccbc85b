// Package tui is the terminal render adapter: a bubbletea program that
// forwards key presses to the session controller and draws its snapshots.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/hwexplorer/internal/deepdive"
	"github.com/jask/hwexplorer/internal/provider"
	"github.com/jask/hwexplorer/internal/session"
)

// App ties the language list, tab views and controller together.
type App struct {
	ctx    context.Context
	ctrl   *session.Controller
	lister provider.Lister
	keys   *KeyRegistry
	help   help.Model

	langs    []provider.Summary
	cursor   int
	vm       session.ViewModel
	modal    modalState
	status   string
	width    int
	unsubscr func()
}

type modalState string

const (
	modalNone modalState = ""
	modalInfo modalState = "info"
)

// New returns an App rendering ctrl. lister feeds the language list.
func New(ctx context.Context, ctrl *session.Controller, lister provider.Lister) *App {
	a := &App{ctx: ctx, ctrl: ctrl, lister: lister, keys: NewKeyRegistry(), help: help.New(), vm: ctrl.View()}
	a.unsubscr = ctrl.Subscribe(func(vm session.ViewModel) { a.vm = vm })
	return a
}

func (a *App) Init() tea.Cmd {
	return a.loadLanguages()
}

func (a *App) loadLanguages() tea.Cmd {
	return func() tea.Msg {
		if a.lister == nil {
			return languagesMsg(nil)
		}
		list, err := a.lister.Languages(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return languagesMsg(list)
	}
}

// job turns a controller job into a command whose result is fed back
// through Update.
func (a *App) job(j session.Job) tea.Cmd {
	if j == nil {
		return nil
	}
	return func() tea.Msg {
		return completionMsg{j(a.ctx)}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		return a.handleKey(m)
	case tea.WindowSizeMsg:
		a.width = m.Width
	case languagesMsg:
		a.langs = []provider.Summary(m)
		if a.cursor >= len(a.langs) {
			a.cursor = 0
		}
	case completionMsg:
		a.ctrl.Complete(m.Completion)
	case errMsg:
		a.status = "error: " + m.Error()
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := a.keys.Lookup(m.String(), scopeMain)
	if b == nil {
		return a, nil
	}
	switch b.Action {
	case actionQuit:
		a.close()
		return a, tea.Quit
	case actionNavigate:
		switch m.String() {
		case "up", "k":
			if a.cursor > 0 {
				a.cursor--
			}
		default:
			if a.cursor < len(a.langs)-1 {
				a.cursor++
			}
		}
	case actionSelect:
		if len(a.langs) == 0 {
			return a, nil
		}
		return a, a.job(a.ctrl.SelectLanguage(a.langs[a.cursor].ID))
	case actionRun:
		return a, a.job(a.ctrl.Run())
	case actionInfo:
		a.modal = modalInfo
	case actionNextTab:
		a.ctrl.SetTab(a.shiftTab(1))
	case actionPrevTab:
		a.ctrl.SetTab(a.shiftTab(-1))
	case actionJumpTab:
		a.ctrl.SetTab(session.Tabs[int(m.String()[0]-'1')])
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := a.keys.Lookup(m.String(), scopeModal)
	if b == nil {
		return a, nil
	}
	switch b.Action {
	case actionQuit:
		a.close()
		return a, tea.Quit
	case actionClose:
		a.modal = modalNone
	}
	return a, nil
}

func (a *App) shiftTab(delta int) session.Tab {
	idx := 0
	for i, t := range session.Tabs {
		if t == a.vm.ActiveTab {
			idx = i
		}
	}
	n := len(session.Tabs)
	return session.Tabs[((idx+delta)%n+n)%n]
}

func (a *App) close() {
	if a.unsubscr != nil {
		a.unsubscr()
		a.unsubscr = nil
	}
}

func (a *App) View() string {
	header := a.renderHeader()
	pane := a.renderPane()
	if w := a.width - listStyle.GetWidth() - 2; a.width > 0 && w > 20 {
		pane = lipgloss.NewStyle().Width(w).Render(pane)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, a.renderLanguages(), "  ", pane)
	out := header + "\n\n" + body + "\n\n" + a.renderFooter()
	if a.modal != modalNone {
		out += "\n\n" + a.renderModal()
	}
	return out
}

// messages
type languagesMsg []provider.Summary

type completionMsg struct {
	session.Completion
}

type errMsg struct{ error }

// styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeTab    = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	inactiveTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	listStyle    = lipgloss.NewStyle().Width(18)
)

var tabLabels = map[session.Tab]string{
	session.TabOutput:      "OUTPUT",
	session.TabSource:      "SOURCE",
	session.TabCompile:     "COMPILE",
	session.TabDisassembly: "DISASM",
	session.TabHex:         "HEX",
	session.TabBits:        "BITS",
	session.TabDeepDive:    "DEEP DIVE",
}

func indicatorStyle(i session.Indicator) lipgloss.Style {
	switch i {
	case session.IndicatorRunning:
		return runningStyle
	case session.IndicatorSuccess:
		return successStyle
	case session.IndicatorError:
		return errorStyle
	}
	return dimStyle
}

func (a *App) renderHeader() string {
	dot := indicatorStyle(a.vm.Indicator).Render("●")
	return fmt.Sprintf("%s   %s %s", titleStyle.Render("Hello World Explorer"), dot, a.vm.StatusText)
}

func (a *App) renderLanguages() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Languages") + "\n")
	if len(a.langs) == 0 {
		b.WriteString(dimStyle.Render("(none)") + "\n")
	}
	for i, l := range a.langs {
		marker := " "
		if i == a.cursor {
			marker = "▶"
		}
		name := l.DisplayName
		if l.ID == a.vm.Current {
			name = headingStyle.Render(name)
		}
		fmt.Fprintf(&b, "%s %s\n", marker, name)
	}
	return listStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (a *App) renderTabs() string {
	parts := make([]string, 0, len(session.Tabs))
	for i, t := range session.Tabs {
		label := fmt.Sprintf("%d %s", i+1, tabLabels[t])
		if t == a.vm.ActiveTab {
			parts = append(parts, activeTab.Render(label))
		} else {
			parts = append(parts, inactiveTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *App) renderPane() string {
	out := a.renderTabs() + "\n\n"
	if a.vm.Error != "" && a.vm.Status == session.StatusLoadError {
		out += errorStyle.Render("Load failed: "+a.vm.Error) + "\n\n"
	}
	if a.vm.ActiveTab == session.TabOutput {
		return out + a.renderOutput()
	}
	l := a.vm.Language
	if l == nil {
		return out + dimStyle.Render("Select a language to begin.")
	}
	switch a.vm.ActiveTab {
	case session.TabSource:
		out += titleStyle.Render(l.SourceFilename) + "\n" + l.SourceText
	case session.TabCompile:
		out += renderSteps(l.CompileSteps)
	case session.TabDisassembly:
		out += l.Disassembly
	case session.TabHex:
		out += l.HexView
	case session.TabBits:
		out += l.BitsExplanation
	case session.TabDeepDive:
		out += renderDocument(a.vm.Document)
	}
	return out
}

func (a *App) renderOutput() string {
	t := a.vm.Terminal
	if t.Command == "" {
		return dimStyle.Render("Select a language to begin.")
	}
	out := dimStyle.Render("$ "+t.Command) + "\n"
	switch {
	case t.Hint != "":
		out += dimStyle.Render(t.Hint)
	case t.Class == session.TerminalSuccess:
		out += successStyle.Render(t.Text)
	case t.Class == session.TerminalError:
		out += errorStyle.Render(t.Text)
	default:
		out += t.Text
	}
	if meta := t.Meta(); meta != "" {
		out += "\n" + dimStyle.Render(meta)
	}
	return out
}

func renderSteps(steps []session.CompileStep) string {
	if len(steps) == 0 {
		return dimStyle.Render("No compile step; the source runs as is.")
	}
	var b strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", s.Step, codeStyle.Render("$ "+s.Command))
		if s.Explanation != "" {
			fmt.Fprintf(&b, "   %s\n", s.Explanation)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDocument(d deepdive.Document) string {
	parts := make([]string, 0, len(d.Blocks))
	for _, blk := range d.Blocks {
		if blk.Kind == deepdive.Heading {
			parts = append(parts, headingStyle.Render(blk.Text))
			continue
		}
		var b strings.Builder
		for _, s := range blk.Spans {
			if s.Kind == deepdive.Code {
				b.WriteString(codeStyle.Render(s.Content))
			} else {
				b.WriteString(s.Content)
			}
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

func (a *App) renderFooter() string {
	var disabled []Action
	if !a.vm.RunEnabled {
		disabled = append(disabled, actionRun)
	}
	out := a.help.ShortHelpView(a.keys.HelpBindings(scopeMain, disabled...))
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalInfo:
		return modalStyle.Render(titleStyle.Render("About") + "\n" +
			"Pick a language to see its hello world program from source to bits.\n" +
			"OUTPUT runs the program, COMPILE shows how it is built, and DEEP DIVE explains it.\n\n" +
			a.help.ShortHelpView(a.keys.HelpBindings(scopeModal)))
	default:
		return ""
	}
}
