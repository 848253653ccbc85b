package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Action is what a key press asks the app to do.
type Action string

// Binding maps keys to an action within one or more scopes. The first key is
// the one shown in help; it may be a display-only label such as "j/k".
type Binding struct {
	Action Action
	Keys   []string
	Help   string
	Scopes []string
}

const (
	scopeMain  = "main"
	scopeModal = "modal"
)

const (
	actionQuit     Action = "quit"
	actionNavigate Action = "navigate"
	actionSelect   Action = "select"
	actionRun      Action = "run"
	actionInfo     Action = "info"
	actionNextTab  Action = "next_tab"
	actionPrevTab  Action = "prev_tab"
	actionJumpTab  Action = "jump_tab"
	actionClose    Action = "close"
)

// KeyRegistry indexes bindings by scope and key.
type KeyRegistry struct {
	bindingsByScope map[string][]*Binding
	indexByScope    map[string]map[string]*Binding
}

// NewKeyRegistry returns the default key map.
func NewKeyRegistry() *KeyRegistry {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}
	reg := func(scope string, action Action, keys []string, help string) {
		r.Register(Binding{Action: action, Keys: keys, Help: help, Scopes: []string{scope}})
	}

	reg(scopeMain, actionNavigate, []string{"↑/↓", "up", "down", "j", "k"}, "move")
	reg(scopeMain, actionSelect, []string{"enter"}, "select")
	reg(scopeMain, actionJumpTab, []string{"1-7", "1", "2", "3", "4", "5", "6", "7"}, "views")
	reg(scopeMain, actionNextTab, []string{"tab"}, "next view")
	reg(scopeMain, actionPrevTab, []string{"shift+tab"}, "prev view")
	reg(scopeMain, actionRun, []string{"r"}, "run")
	reg(scopeMain, actionInfo, []string{"i"}, "info")
	reg(scopeMain, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeModal, actionClose, []string{"esc", "i", "q", "enter"}, "close")
	reg(scopeModal, actionQuit, []string{"ctrl+c"}, "quit")
	return r
}

// Register adds b to each of its scopes. Keys already bound in a scope keep
// their first binding.
func (r *KeyRegistry) Register(b Binding) {
	for _, scope := range b.Scopes {
		scope = strings.TrimSpace(scope)
		keys := normalizeKeyList(b.Keys)
		if scope == "" || len(keys) == 0 {
			continue
		}
		if _, ok := r.indexByScope[scope]; !ok {
			r.indexByScope[scope] = make(map[string]*Binding)
		}
		if r.scopeHasAnyKey(scope, keys) {
			continue
		}
		copyBinding := b
		copyBinding.Keys = keys
		copyBinding.Scopes = []string{scope}
		r.bindingsByScope[scope] = append(r.bindingsByScope[scope], &copyBinding)
		for _, k := range keys {
			r.indexByScope[scope][k] = &copyBinding
		}
	}
}

// BindingsForScope returns the bindings of scope in registration order.
func (r *KeyRegistry) BindingsForScope(scope string) []Binding {
	items := r.bindingsByScope[scope]
	out := make([]Binding, 0, len(items))
	for _, b := range items {
		out = append(out, *b)
	}
	return out
}

// Lookup finds the binding for keyName in scope, or nil.
func (r *KeyRegistry) Lookup(keyName, scope string) *Binding {
	keyName = normalizeKeyName(keyName)
	if keyName == "" {
		return nil
	}
	return r.indexByScope[scope][keyName]
}

// HelpBindings converts scope's bindings for the bubbles help view. disabled
// lists actions to leave out.
func (r *KeyRegistry) HelpBindings(scope string, disabled ...Action) []key.Binding {
	items := r.BindingsForScope(scope)
	out := make([]key.Binding, 0, len(items))
	for _, b := range items {
		kb := key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(b.Keys[0], b.Help))
		for _, a := range disabled {
			if a == b.Action {
				kb.SetEnabled(false)
			}
		}
		out = append(out, kb)
	}
	return out
}

func (r *KeyRegistry) scopeHasAnyKey(scope string, keys []string) bool {
	lookup := r.indexByScope[scope]
	for _, k := range keys {
		if _, exists := lookup[k]; exists {
			return true
		}
	}
	return false
}

func normalizeKeyList(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		n := normalizeKeyName(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	trimmed := strings.TrimSpace(k)
	if len(trimmed) == 1 && trimmed[0] >= 'A' && trimmed[0] <= 'Z' {
		return trimmed
	}
	return strings.ReplaceAll(strings.ToLower(trimmed), " ", "")
}
