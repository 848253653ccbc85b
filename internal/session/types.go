// Package session owns the explorer's single language session: the selected
// language's bundle, the load/run status machine, the active tab, and the
// last run result. A Controller is the only writer; render adapters read
// immutable ViewModel snapshots.
package session

import "context"

// Status is the controller's lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusLoadError  Status = "load_error"
	StatusRunning    Status = "running"
	StatusRunSuccess Status = "run_success"
	StatusRunFailure Status = "run_failure"
)

// Tab identifies one of the explorer views.
type Tab string

const (
	TabOutput      Tab = "output"
	TabSource      Tab = "source"
	TabCompile     Tab = "compile"
	TabDisassembly Tab = "disasm"
	TabHex         Tab = "hex"
	TabBits        Tab = "bits"
	TabDeepDive    Tab = "deepdive"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabOutput, TabSource, TabCompile, TabDisassembly, TabHex, TabBits, TabDeepDive}

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	for _, x := range Tabs {
		if x == t {
			return true
		}
	}
	return false
}

// CompileStep is one command in a language's build pipeline.
type CompileStep struct {
	Step        int    `json:"step"`
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
}

// LanguageBundle is everything the explorer shows for one language.
type LanguageBundle struct {
	ID              string        `json:"id"`
	DisplayName     string        `json:"display_name"`
	SourceFilename  string        `json:"source_filename"`
	SourceText      string        `json:"source_text"`
	CompileSteps    []CompileStep `json:"compile_steps"`
	Disassembly     string        `json:"disassembly"`
	HexView         string        `json:"hex_view"`
	BitsExplanation string        `json:"bits_explanation"`
	DeepDiveText    string        `json:"deep_dive_text"`
}

// Clone returns a copy that shares no slices with b.
func (b LanguageBundle) Clone() LanguageBundle {
	out := b
	out.CompileSteps = append([]CompileStep{}, b.CompileSteps...)
	return out
}

// Execution is a completed backend call. A non-zero ExitCode is a normal
// result describing the executed program, not an invocation failure.
type Execution struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	DurationMs int64
}

// RunResult is the outcome of the last run as shown to the user. ExitCode
// and DurationMs are nil when the backend could not be invoked at all.
type RunResult struct {
	ExitCode   *int   `json:"exit_code,omitempty"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
}

func (r RunResult) clone() RunResult {
	out := r
	if r.ExitCode != nil {
		v := *r.ExitCode
		out.ExitCode = &v
	}
	if r.DurationMs != nil {
		v := *r.DurationMs
		out.DurationMs = &v
	}
	return out
}

// SessionState is the mutable state owned by the Controller.
// CurrentLanguage is empty until the first successful selection.
type SessionState struct {
	CurrentLanguage string
	Status          Status
	ActiveTab       Tab
	LastRunResult   *RunResult
}

// Provider supplies language bundles.
type Provider interface {
	Fetch(ctx context.Context, lang string) (LanguageBundle, error)
}

// Backend runs a language's hello-world program.
type Backend interface {
	Execute(ctx context.Context, lang string) (Execution, error)
}
