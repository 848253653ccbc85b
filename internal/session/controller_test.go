package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/hwexplorer/internal/deepdive"
)

type fakeProvider struct {
	mu      sync.Mutex
	bundles map[string]LanguageBundle
	calls   map[string]int
}

func newFakeProvider(bundles ...LanguageBundle) *fakeProvider {
	p := &fakeProvider{bundles: map[string]LanguageBundle{}, calls: map[string]int{}}
	for _, b := range bundles {
		p.bundles[b.ID] = b
	}
	return p
}

func (p *fakeProvider) Fetch(_ context.Context, lang string) (LanguageBundle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[lang]++
	b, ok := p.bundles[lang]
	if !ok {
		return LanguageBundle{}, &FetchError{Lang: lang, Err: errors.New("unknown language")}
	}
	return b, nil
}

func (p *fakeProvider) count(lang string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[lang]
}

type fakeBackend struct {
	results map[string]Execution
	errs    map[string]error
	calls   int
}

func (b *fakeBackend) Execute(_ context.Context, lang string) (Execution, error) {
	b.calls++
	if err, ok := b.errs[lang]; ok {
		return Execution{}, err
	}
	return b.results[lang], nil
}

func bundle(id string) LanguageBundle {
	return LanguageBundle{
		ID:             id,
		DisplayName:    id + "-lang",
		SourceFilename: "hello." + id,
		SourceText:     "source of " + id,
		CompileSteps:   []CompileStep{{Step: 1, Command: "build " + id, Explanation: "builds it"}},
		DeepDiveText:   "INTRO:\nabout `" + id + "`",
	}
}

func newTestController(p Provider, b Backend) *Controller {
	return NewController(p, b, WithBinaryDir("bin"))
}

func TestInitialState(t *testing.T) {
	t.Parallel()

	c := newTestController(newFakeProvider(), &fakeBackend{})
	st := c.State()
	require.Equal(t, StatusIdle, st.Status)
	require.Equal(t, TabOutput, st.ActiveTab)
	require.Empty(t, st.CurrentLanguage)
	require.Nil(t, st.LastRunResult)

	vm := c.View()
	require.Equal(t, IndicatorNeutral, vm.Indicator)
	require.Equal(t, "SELECT A LANGUAGE", vm.StatusText)
	require.False(t, vm.RunEnabled)
	require.Nil(t, vm.Language)
}

func TestRunFromIdleIsNoop(t *testing.T) {
	t.Parallel()

	be := &fakeBackend{}
	c := newTestController(newFakeProvider(), be)
	var notified int
	c.Subscribe(func(ViewModel) { notified++ })

	require.Nil(t, c.Run())
	require.False(t, c.Drive(context.Background(), c.Run()))
	require.Equal(t, StatusIdle, c.State().Status)
	require.Zero(t, be.calls)
	require.Zero(t, notified)
}

func TestSelectLanguageLoadsBundle(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(bundle("c"))
	c := newTestController(p, &fakeBackend{})
	c.SetTab(TabHex)

	var seen []Status
	c.Subscribe(func(vm ViewModel) { seen = append(seen, vm.Status) })

	job := c.SelectLanguage("c")
	require.NotNil(t, job)
	st := c.State()
	require.Equal(t, StatusLoading, st.Status)
	require.Equal(t, TabOutput, st.ActiveTab)
	require.Empty(t, st.CurrentLanguage, "current language is set only on success")
	require.Equal(t, "LOADING C…", c.View().StatusText)
	require.Equal(t, "c", c.View().Pending)

	require.True(t, c.Complete(job(context.Background())))
	st = c.State()
	require.Equal(t, StatusReady, st.Status)
	require.Equal(t, "c", st.CurrentLanguage)
	require.Equal(t, []Status{StatusLoading, StatusReady}, seen)

	vm := c.View()
	require.Equal(t, "C-LANG READY", vm.StatusText)
	require.True(t, vm.RunEnabled)
	require.NotNil(t, vm.Language)
	require.Equal(t, "hello.c", vm.Language.SourceFilename)
	require.Equal(t, "./hello_c", vm.Terminal.Command)
	require.Equal(t, "Press RUN to execute the binary →", vm.Terminal.Hint)
	require.Equal(t, deepdive.Format("INTRO:\nabout `c`"), vm.Document)
}

func TestSelectLanguageIdempotent(t *testing.T) {
	t.Parallel()

	for _, lang := range []string{"c", "asm", "python"} {
		p := newFakeProvider(bundle(lang))
		c := newTestController(p, &fakeBackend{})

		first := c.SelectLanguage(lang)
		second := c.SelectLanguage(lang)
		require.NotNil(t, first)
		require.Nil(t, second, "reselecting a loading language is a no-op")
		c.Drive(context.Background(), first)
		require.Nil(t, c.SelectLanguage(lang), "reselecting the current language is a no-op")
		require.Equal(t, 1, p.count(lang))
	}
}

func TestRunSuccessAndFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := &fakeBackend{results: map[string]Execution{
		"c":  {ExitCode: 0, Stdout: "Hello, World!\n", DurationMs: 4},
		"go": {ExitCode: 1, Stdout: "partial\n", Stderr: "panic\n", DurationMs: 7},
	}}
	c := newTestController(newFakeProvider(bundle("c"), bundle("go")), be)

	c.Drive(ctx, c.SelectLanguage("c"))
	job := c.Run()
	require.NotNil(t, job)
	require.Equal(t, StatusRunning, c.State().Status)
	require.Equal(t, "Executing…", c.View().Terminal.Hint)
	require.False(t, c.View().RunEnabled)
	require.Nil(t, c.Run(), "no second run while one is outstanding")

	require.True(t, c.Complete(job(ctx)))
	st := c.State()
	require.Equal(t, StatusRunSuccess, st.Status)
	require.NotNil(t, st.LastRunResult)
	require.Equal(t, 0, *st.LastRunResult.ExitCode)
	require.Equal(t, int64(4), *st.LastRunResult.DurationMs)

	vm := c.View()
	require.Equal(t, IndicatorSuccess, vm.Indicator)
	require.Equal(t, "EXECUTED OK", vm.StatusText)
	require.Equal(t, TerminalSuccess, vm.Terminal.Class)
	require.Equal(t, "Hello, World!\n", vm.Terminal.Text)
	require.Equal(t, "EXIT: 0  TIME: 4ms", vm.Terminal.Meta())

	c.Drive(ctx, c.SelectLanguage("go"))
	require.Nil(t, c.State().LastRunResult)
	c.Drive(ctx, c.Run())
	st = c.State()
	require.Equal(t, StatusRunFailure, st.Status)
	vm = c.View()
	require.Equal(t, "EXIT 1", vm.StatusText)
	require.Equal(t, IndicatorError, vm.Indicator)
	require.Equal(t, TerminalError, vm.Terminal.Class)
	require.Equal(t, "partial\npanic\n", vm.Terminal.Text)
	require.Empty(t, vm.Error)

	require.NotNil(t, c.Run(), "a failed run can be retried")
}

func TestRunAgainFromSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := &fakeBackend{results: map[string]Execution{"c": {Stdout: "hi\n"}}}
	c := newTestController(newFakeProvider(bundle("c")), be)
	c.Drive(ctx, c.SelectLanguage("c"))
	c.Drive(ctx, c.Run())
	c.SetTab(TabDeepDive)

	job := c.Run()
	require.NotNil(t, job)
	require.Equal(t, TabOutput, c.State().ActiveTab)
	require.Nil(t, c.State().LastRunResult)
	c.Complete(job(ctx))
	require.Equal(t, 2, be.calls)
}

func TestRunInvocationFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := &fakeBackend{errs: map[string]error{"c": errors.New("spawn failed")}}
	c := newTestController(newFakeProvider(bundle("c")), be)
	c.Drive(ctx, c.SelectLanguage("c"))
	c.Drive(ctx, c.Run())

	st := c.State()
	require.Equal(t, StatusRunFailure, st.Status)
	require.NotNil(t, st.LastRunResult)
	require.Nil(t, st.LastRunResult.ExitCode)
	require.Nil(t, st.LastRunResult.DurationMs)
	require.Empty(t, st.LastRunResult.Stdout)
	require.Equal(t, "spawn failed", st.LastRunResult.Stderr)

	vm := c.View()
	require.Equal(t, "EXEC FAILED", vm.StatusText)
	require.Equal(t, TerminalError, vm.Terminal.Class)
	require.Equal(t, "Error: spawn failed\n\nMake sure the binary exists in bin/", vm.Terminal.Text)
	require.False(t, vm.Terminal.ShowMeta)
	require.Equal(t, "spawn failed", vm.Error)
}

func TestNoOutputHint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := &fakeBackend{results: map[string]Execution{"c": {ExitCode: 3}}}
	c := newTestController(newFakeProvider(bundle("c")), be)
	c.Drive(ctx, c.SelectLanguage("c"))
	c.Drive(ctx, c.Run())

	term := c.View().Terminal
	require.Empty(t, term.Text)
	require.Equal(t, "(no output)", term.Hint)
	require.True(t, term.ShowMeta)
	require.Equal(t, TerminalPlain, term.Class)
}

func TestLoadFailureKeepsPreviousSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newFakeProvider(bundle("c"))
	c := newTestController(p, &fakeBackend{})
	c.Drive(ctx, c.SelectLanguage("c"))

	require.True(t, c.Drive(ctx, c.SelectLanguage("cobol")))
	st := c.State()
	require.Equal(t, StatusLoadError, st.Status)
	require.Equal(t, "c", st.CurrentLanguage)

	vm := c.View()
	require.Equal(t, "LOAD FAILED", vm.StatusText)
	require.Equal(t, IndicatorError, vm.Indicator)
	require.NotNil(t, vm.Language)
	require.Equal(t, "c", vm.Language.ID)
	require.Contains(t, vm.Error, "cobol")
	require.NotNil(t, c.SelectLanguage("cobol"), "a failed language can be retried")
}

func TestLoadFailureLeavesKeptLanguageRunnable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newFakeProvider(bundle("c"))
	be := &fakeBackend{results: map[string]Execution{"c": {ExitCode: 0, Stdout: "hi\n", DurationMs: 3}}}
	c := newTestController(p, be)
	c.Drive(ctx, c.SelectLanguage("c"))
	c.Drive(ctx, c.SelectLanguage("cobol"))
	require.Equal(t, StatusLoadError, c.State().Status)

	vm := c.View()
	require.True(t, vm.RunEnabled)
	require.Equal(t, "Press RUN to execute the binary →", vm.Terminal.Hint)
	require.Equal(t, "./hello_c", vm.Terminal.Command)

	require.Nil(t, c.SelectLanguage("c"), "the kept language is still current")
	require.Equal(t, 1, p.count("c"))

	require.True(t, c.Drive(ctx, c.Run()))
	require.Equal(t, 1, be.calls)
	st := c.State()
	require.Equal(t, StatusRunSuccess, st.Status)
	require.Equal(t, "c", st.CurrentLanguage)
	vm = c.View()
	require.Empty(t, vm.Error)
	require.Equal(t, "EXECUTED OK", vm.StatusText)
	require.Equal(t, "hi\n", vm.Terminal.Text)
}

func TestFirstLoadFailureOffersNoRun(t *testing.T) {
	t.Parallel()

	c := newTestController(newFakeProvider(), &fakeBackend{})
	c.Drive(context.Background(), c.SelectLanguage("cobol"))

	vm := c.View()
	require.Equal(t, StatusLoadError, vm.Status)
	require.False(t, vm.RunEnabled)
	require.Empty(t, vm.Terminal.Hint)
	require.Nil(t, c.Run())
}

func TestLoadFailureWrapsForeignErrors(t *testing.T) {
	t.Parallel()

	c := newTestController(providerFunc(func(context.Context, string) (LanguageBundle, error) {
		return LanguageBundle{}, errors.New("offline")
	}), &fakeBackend{})
	c.Drive(context.Background(), c.SelectLanguage("c"))
	require.Equal(t, StatusLoadError, c.State().Status)
	require.Equal(t, "fetch c: offline", c.View().Error)
}

type providerFunc func(context.Context, string) (LanguageBundle, error)

func (f providerFunc) Fetch(ctx context.Context, lang string) (LanguageBundle, error) {
	return f(ctx, lang)
}

func TestStaleRunDiscardedAfterNewSelection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := &fakeBackend{results: map[string]Execution{"a": {ExitCode: 0, Stdout: "from a"}}}
	c := newTestController(newFakeProvider(bundle("a"), bundle("b")), be)
	c.Drive(ctx, c.SelectLanguage("a"))

	runA := c.Run()
	selB := c.SelectLanguage("b")
	require.NotNil(t, selB)

	// a's result arrives while b is still loading
	require.False(t, c.Complete(runA(ctx)))
	st := c.State()
	require.Equal(t, StatusLoading, st.Status)
	require.Nil(t, st.LastRunResult)

	require.True(t, c.Complete(selB(ctx)))
	st = c.State()
	require.Equal(t, StatusReady, st.Status)
	require.Equal(t, "b", st.CurrentLanguage)
	require.Nil(t, st.LastRunResult)
}

func TestStaleRunDiscardedAfterSelectionCompletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := &fakeBackend{results: map[string]Execution{"a": {ExitCode: 0, Stdout: "from a"}}}
	c := newTestController(newFakeProvider(bundle("a"), bundle("b")), be)
	c.Drive(ctx, c.SelectLanguage("a"))

	runA := c.Run()
	c.Drive(ctx, c.SelectLanguage("b"))
	require.False(t, c.Complete(runA(ctx)))

	st := c.State()
	require.Equal(t, StatusReady, st.Status)
	require.Equal(t, "b", st.CurrentLanguage)
	require.Nil(t, st.LastRunResult)
}

func TestStaleLoadDiscarded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestController(newFakeProvider(bundle("a"), bundle("b")), &fakeBackend{})
	selA := c.SelectLanguage("a")
	selB := c.SelectLanguage("b")

	require.True(t, c.Complete(selB(ctx)))
	require.False(t, c.Complete(selA(ctx)))
	require.Equal(t, "b", c.State().CurrentLanguage)
	require.Equal(t, "b", c.View().Language.ID)
}

func TestReselectCurrentWhileOtherLoading(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newFakeProvider(bundle("a"), bundle("b"))
	c := newTestController(p, &fakeBackend{})
	c.Drive(ctx, c.SelectLanguage("a"))

	selB := c.SelectLanguage("b")
	selA := c.SelectLanguage("a")
	require.NotNil(t, selA, "going back to a supersedes the pending b load")
	require.False(t, c.Complete(selB(ctx)))
	require.True(t, c.Complete(selA(ctx)))
	require.Equal(t, "a", c.State().CurrentLanguage)
}

func TestConcurrentJobsStayOrdered(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	be := backendFunc(func(ctx context.Context, lang string) (Execution, error) {
		<-gate
		return Execution{Stdout: lang}, nil
	})
	c := newTestController(newFakeProvider(bundle("a"), bundle("b")), be)
	ctx := context.Background()
	c.Drive(ctx, c.SelectLanguage("a"))

	results := make(chan Completion, 1)
	job := c.Run()
	go func() { results <- job(ctx) }()

	c.Drive(ctx, c.SelectLanguage("b"))
	close(gate)
	require.False(t, c.Complete(<-results))
	require.Equal(t, StatusReady, c.State().Status)
}

type backendFunc func(context.Context, string) (Execution, error)

func (f backendFunc) Execute(ctx context.Context, lang string) (Execution, error) {
	return f(ctx, lang)
}

func TestSetTab(t *testing.T) {
	t.Parallel()

	c := newTestController(newFakeProvider(), &fakeBackend{})
	var n int
	cancel := c.Subscribe(func(ViewModel) { n++ })

	c.SetTab(TabBits)
	require.Equal(t, TabBits, c.State().ActiveTab)
	c.SetTab(TabBits)
	c.SetTab(Tab("nope"))
	require.Equal(t, TabBits, c.State().ActiveTab)
	require.Equal(t, 1, n)

	cancel()
	cancel()
	c.SetTab(TabSource)
	require.Equal(t, 1, n)
}

func TestViewModelIsSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := &fakeBackend{results: map[string]Execution{"c": {ExitCode: 0, DurationMs: 2}}}
	c := newTestController(newFakeProvider(bundle("c")), be)
	c.Drive(ctx, c.SelectLanguage("c"))
	c.Drive(ctx, c.Run())

	vm := c.View()
	vm.Language.CompileSteps[0].Command = "mutated"
	*vm.LastRun.ExitCode = 99
	vm.Document.Blocks[0].Text = "mutated"

	fresh := c.View()
	require.Equal(t, "build c", fresh.Language.CompileSteps[0].Command)
	require.Equal(t, 0, *fresh.LastRun.ExitCode)
	require.Equal(t, "INTRO:", fresh.Document.Blocks[0].Text)
}

func TestEndToEndDeepDive(t *testing.T) {
	t.Parallel()

	b := bundle("c")
	b.DeepDiveText = "WHY XOR?:\nXOR is used because `xor eax,eax` is shorter.\n"
	c := newTestController(newFakeProvider(b), &fakeBackend{})
	c.Drive(context.Background(), c.SelectLanguage("c"))

	require.Equal(t, StatusReady, c.State().Status)
	doc := c.View().Document
	require.Len(t, doc.Blocks, 2)
	require.Equal(t, deepdive.Block{Kind: deepdive.Heading, Text: "WHY XOR?:"}, doc.Blocks[0])
	require.Equal(t, deepdive.Paragraph, doc.Blocks[1].Kind)
	require.Contains(t, doc.Blocks[1].Spans, deepdive.Span{Kind: deepdive.Code, Content: "xor eax,eax"})
}

func TestRunLogsCarryRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()
	be := &fakeBackend{results: map[string]Execution{"c": {ExitCode: 0, Stdout: "ok"}}}
	c := NewController(newFakeProvider(bundle("c"), bundle("go")), be, WithLogger(logger))
	c.Drive(ctx, c.SelectLanguage("c"))

	stale := c.Run()
	c.Drive(ctx, c.SelectLanguage("go"))
	require.False(t, c.Complete(stale(ctx)))
	require.True(t, c.Drive(ctx, c.Run()))

	requests := map[string][]string{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if id, ok := rec["request"].(string); ok {
			requests[id] = append(requests[id], rec["msg"].(string))
		}
	}
	require.Len(t, requests, 2)
	var seen []string
	for _, msgs := range requests {
		require.Len(t, msgs, 2)
		require.Equal(t, "execute", msgs[0])
		seen = append(seen, msgs[1])
	}
	require.ElementsMatch(t, []string{"discard stale completion", "run complete"}, seen)
}
