// Package runner executes a language's hello-world program for the explorer.
// Native binaries and interpreters run as child processes; WASI modules run
// in-process on a shared wazero runtime.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/jask/hwexplorer/internal/session"
)

var (
	// ErrNotRunnable marks languages that have no way to run here.
	ErrNotRunnable = errors.New("language not runnable")
	// ErrUnknownLanguage marks ids missing from the catalog.
	ErrUnknownLanguage = errors.New("language not in catalog")
	// ErrTimeout marks programs killed for exceeding the run timeout.
	ErrTimeout = errors.New("run timed out")
)

// runError carries a user-facing message while still matching sentinels.
type runError struct {
	msg   string
	kinds []error
}

func (e *runError) Error() string   { return e.msg }
func (e *runError) Unwrap() []error { return e.kinds }

func fail(lang, msg string, kinds ...error) error {
	return &session.ExecutionError{Lang: lang, Err: &runError{msg: msg, kinds: kinds}}
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each run. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// Runner implements session.Backend.
type Runner struct {
	catalog *Catalog
	binDir  string
	timeout time.Duration
	log     *slog.Logger

	mu       sync.Mutex
	rt       wazero.Runtime
	compiled map[string]wazero.CompiledModule
}

// New returns a Runner resolving programs under binDir.
func New(catalog *Catalog, binDir string, opts ...Option) *Runner {
	r := &Runner{
		catalog:  catalog,
		binDir:   binDir,
		log:      slog.New(slog.DiscardHandler),
		compiled: make(map[string]wazero.CompiledModule),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BinDir is the directory programs are resolved against.
func (r *Runner) BinDir() string { return r.binDir }

// Catalog returns the catalog the runner was built with.
func (r *Runner) Catalog() *Catalog { return r.catalog }

// Execute runs lang's program and reports its exit code and output. A
// program exiting non-zero is a normal result; an ExecutionError means the
// program could not be run at all.
func (r *Runner) Execute(ctx context.Context, lang string) (session.Execution, error) {
	e, ok := r.catalog.Lookup(lang)
	if !ok || e.Mode() == ModeUnavailable {
		kinds := []error{ErrNotRunnable}
		if !ok {
			kinds = append(kinds, ErrUnknownLanguage)
		}
		return session.Execution{}, fail(lang, fmt.Sprintf(
			"Language '%s' requires a full build toolchain and cannot be run directly here.", lang), kinds...)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Debug("execute", "lang", lang, "mode", e.Mode())
	if e.Mode() == ModeWasm {
		return r.runWasm(ctx, e)
	}
	return r.runProcess(ctx, e)
}

func (r *Runner) runProcess(ctx context.Context, e Entry) (session.Execution, error) {
	var (
		name    string
		args    []string
		failMsg func(error) string
	)
	switch e.Mode() {
	case ModeBinary:
		name = filepath.Join(r.binDir, e.Binary)
		args = e.Args
		failMsg = func(err error) string {
			return fmt.Sprintf("Failed to run '%s': %v\nRun build-binaries.sh first.", e.Binary, err)
		}
	case ModeInterpreter:
		name = e.Interpreter
		args = append([]string{filepath.Join(r.binDir, e.Script)}, e.Args...)
		failMsg = func(err error) string {
			return fmt.Sprintf("Failed to launch '%s': %v\nMake sure '%s' is installed and on your PATH.",
				e.Interpreter, err, e.Interpreter)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return session.Execution{}, r.contextFailure(ctx, e.Lang)
		case errors.As(err, &exitErr):
			code = exitErr.ExitCode()
		default:
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
				err = unwrapPathError(err)
			}
			return session.Execution{}, fail(e.Lang, failMsg(err))
		}
	}
	return execution(code, stdout.String(), stderr.String(), elapsed), nil
}

func (r *Runner) runWasm(ctx context.Context, e Entry) (session.Execution, error) {
	path := filepath.Join(r.binDir, e.Wasm)
	rt, mod, err := r.module(ctx, path)
	if err != nil {
		return session.Execution{}, fail(e.Lang, fmt.Sprintf("Failed to load '%s': %v", e.Wasm, err))
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithArgs(append([]string{e.Wasm}, e.Args...)...).
		WithName("")

	start := time.Now()
	inst, err := rt.InstantiateModule(ctx, mod, cfg)
	elapsed := time.Since(start)
	if inst != nil {
		_ = inst.Close(context.Background())
	}

	code := 0
	if err != nil {
		var exitErr *sys.ExitError
		switch {
		case ctx.Err() != nil:
			return session.Execution{}, r.contextFailure(ctx, e.Lang)
		case errors.As(err, &exitErr):
			code = int(exitErr.ExitCode())
		default:
			return session.Execution{}, fail(e.Lang, fmt.Sprintf("Failed to run '%s': %v", e.Wasm, err))
		}
	}
	return execution(code, stdout.String(), stderr.String(), elapsed), nil
}

func (r *Runner) contextFailure(ctx context.Context, lang string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && r.timeout > 0 {
		return fail(lang, fmt.Sprintf("Program timed out after %s", r.timeout), ErrTimeout, ctx.Err())
	}
	return fail(lang, "Run cancelled", ctx.Err())
}

// module returns the shared runtime and the compiled module at path,
// creating and caching both on first use.
func (r *Runner) module(ctx context.Context, path string) (wazero.Runtime, wazero.CompiledModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rt == nil {
		rt := wazero.NewRuntimeWithConfig(context.Background(), wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
		if _, err := wasi_snapshot_preview1.Instantiate(context.Background(), rt); err != nil {
			_ = rt.Close(context.Background())
			return nil, nil, fmt.Errorf("instantiate WASI: %w", err)
		}
		r.rt = rt
	}
	if mod, ok := r.compiled[path]; ok {
		return r.rt, mod, nil
	}

	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, unwrapPathError(err)
	}
	mod, err := r.rt.CompileModule(ctx, bin)
	if err != nil {
		return nil, nil, fmt.Errorf("compile: %w", err)
	}
	r.compiled[path] = mod
	return r.rt, mod, nil
}

// Close releases the wasm runtime, if one was created.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rt == nil {
		return nil
	}
	err := r.rt.Close(ctx)
	r.rt = nil
	r.compiled = make(map[string]wazero.CompiledModule)
	return err
}

func execution(code int, stdout, stderr string, elapsed time.Duration) session.Execution {
	return session.Execution{
		ExitCode:   code,
		Stdout:     strings.ToValidUTF8(stdout, "�"),
		Stderr:     strings.ToValidUTF8(stderr, "�"),
		DurationMs: elapsed.Milliseconds(),
	}
}

// unwrapPathError drops the operation and path prefix so messages read like
// "no such file or directory".
func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	var ee *exec.Error
	if errors.As(err, &ee) {
		return ee.Err
	}
	return err
}
