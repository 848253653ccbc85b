package session

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type completionKind int

const (
	completionFetch completionKind = iota + 1
	completionRun
)

// Completion is the result of a Job, fed back through Controller.Complete.
type Completion struct {
	kind   completionKind
	gen    uint64
	lang   string
	bundle LanguageBundle
	exec   Execution
	err    error
	req    string
}

// Lang is the language the completed request was issued for.
func (c Completion) Lang() string { return c.lang }

// Err is the provider or backend error, if any.
func (c Completion) Err() error { return c.err }

// Job performs the IO half of a command. It may run on any goroutine; it
// touches no controller state.
type Job func(ctx context.Context) Completion

// Controller drives language selection and program runs. It is not safe for
// concurrent use: commands and completions must be applied from a single
// owner (a bubbletea Update loop, or a caller holding a lock). Jobs are the
// only part meant to run elsewhere.
type Controller struct {
	provider Provider
	backend  Backend
	log      *slog.Logger
	binDir   string

	state   SessionState
	store   Store
	pending string
	loadErr string
	runErr  bool
	gen     uint64

	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(ViewModel)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBinaryDir names the directory shown in invocation failure hints.
func WithBinaryDir(dir string) Option {
	return func(c *Controller) { c.binDir = dir }
}

// NewController returns a controller in the Idle state.
func NewController(p Provider, b Backend, opts ...Option) *Controller {
	c := &Controller{
		provider: p,
		backend:  b,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		binDir:   "binaries",
		state:    SessionState{Status: StatusIdle, ActiveTab: TabOutput},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the session state.
func (c *Controller) State() SessionState {
	s := c.state
	if s.LastRunResult != nil {
		r := s.LastRunResult.clone()
		s.LastRunResult = &r
	}
	return s
}

// target is the language the most recent selection points at.
func (c *Controller) target() string {
	if c.state.Status == StatusLoading {
		return c.pending
	}
	return c.state.CurrentLanguage
}

// SelectLanguage starts loading lang. It returns nil when lang is already the
// current (or currently loading) language. Any outstanding load or run is
// superseded and its completion will be discarded.
func (c *Controller) SelectLanguage(lang string) Job {
	if lang == c.target() {
		return nil
	}
	c.gen++
	gen := c.gen
	c.pending = lang
	c.loadErr = ""
	c.runErr = false
	c.state.Status = StatusLoading
	c.state.ActiveTab = TabOutput
	c.state.LastRunResult = nil
	c.log.Debug("select language", "lang", lang, "status", c.state.Status)
	c.notify()

	provider := c.provider
	return func(ctx context.Context) Completion {
		b, err := provider.Fetch(ctx, lang)
		return Completion{kind: completionFetch, gen: gen, lang: lang, bundle: b, err: err}
	}
}

// CanRun reports whether Run would start a run. A failed load keeps the
// previous language, which stays runnable.
func (c *Controller) CanRun() bool {
	if c.state.CurrentLanguage == "" {
		return false
	}
	switch c.state.Status {
	case StatusReady, StatusRunSuccess, StatusRunFailure, StatusLoadError:
		return true
	}
	return false
}

// Run starts executing the current language's program. It returns nil and
// changes nothing when no language is loaded or a load or run is underway.
func (c *Controller) Run() Job {
	if !c.CanRun() {
		return nil
	}
	c.gen++
	gen := c.gen
	lang := c.state.CurrentLanguage
	c.loadErr = ""
	c.runErr = false
	c.state.Status = StatusRunning
	c.state.ActiveTab = TabOutput
	c.state.LastRunResult = nil
	c.log.Debug("run", "lang", lang, "status", c.state.Status)
	c.notify()

	backend := c.backend
	reqID := uuid.NewString()
	log := c.log
	return func(ctx context.Context) Completion {
		log.Debug("execute", "lang", lang, "request", reqID)
		res, err := backend.Execute(ctx, lang)
		return Completion{kind: completionRun, gen: gen, lang: lang, exec: res, err: err, req: reqID}
	}
}

// SetTab focuses a view. It has no effect on load or run state.
func (c *Controller) SetTab(t Tab) {
	if !t.Valid() || t == c.state.ActiveTab {
		return
	}
	c.state.ActiveTab = t
	c.notify()
}

// Complete applies a job's result. It reports false when the completion was
// stale, i.e. a newer command was issued after the job started.
func (c *Controller) Complete(cmp Completion) bool {
	if cmp.gen != c.gen {
		c.log.Debug("discard stale completion", "lang", cmp.lang, "request", cmp.req, "status", c.state.Status)
		return false
	}
	switch cmp.kind {
	case completionFetch:
		if c.state.Status != StatusLoading || cmp.lang != c.pending {
			return false
		}
		c.completeFetch(cmp)
	case completionRun:
		if c.state.Status != StatusRunning || cmp.lang != c.state.CurrentLanguage {
			c.log.Debug("discard run for superseded language", "lang", cmp.lang, "request", cmp.req)
			return false
		}
		c.completeRun(cmp)
	default:
		return false
	}
	c.notify()
	return true
}

func (c *Controller) completeFetch(cmp Completion) {
	c.pending = ""
	if cmp.err != nil {
		fe := asFetchError(cmp.lang, cmp.err)
		c.loadErr = fe.Error()
		c.state.Status = StatusLoadError
		c.log.Warn("load failed", "lang", cmp.lang, "err", fe)
		return
	}
	b := cmp.bundle
	if b.ID == "" {
		b.ID = cmp.lang
	}
	c.store.Replace(b)
	c.state.CurrentLanguage = cmp.lang
	c.state.Status = StatusReady
	c.log.Info("language ready", "lang", cmp.lang, "status", c.state.Status)
}

func (c *Controller) completeRun(cmp Completion) {
	if cmp.err != nil {
		ee := asExecutionError(cmp.lang, cmp.err)
		c.runErr = true
		c.state.LastRunResult = &RunResult{Stderr: ee.Error()}
		c.state.Status = StatusRunFailure
		c.log.Warn("execution failed", "lang", cmp.lang, "request", cmp.req, "err", ee)
		return
	}
	code := cmp.exec.ExitCode
	dur := cmp.exec.DurationMs
	if dur < 0 {
		dur = 0
	}
	c.state.LastRunResult = &RunResult{
		ExitCode:   &code,
		Stdout:     cmp.exec.Stdout,
		Stderr:     cmp.exec.Stderr,
		DurationMs: &dur,
	}
	if code == 0 {
		c.state.Status = StatusRunSuccess
	} else {
		c.state.Status = StatusRunFailure
	}
	c.log.Info("run complete", "lang", cmp.lang, "request", cmp.req, "exit_code", code, "duration_ms", dur)
}

// Drive runs job synchronously and applies its completion. A nil job is a
// no-op and reports false.
func (c *Controller) Drive(ctx context.Context, job Job) bool {
	if job == nil {
		return false
	}
	return c.Complete(job(ctx))
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(ViewModel)) (cancel func()) {
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Controller) notify() {
	if len(c.subs) == 0 {
		return
	}
	for _, s := range append([]subscriber(nil), c.subs...) {
		s.fn(c.View())
	}
}
