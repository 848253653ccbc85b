package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/hwexplorer/internal/deepdive"
	"github.com/jask/hwexplorer/internal/session"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <lang>",
		Short: "Print one view of a language",
		Long: `Print one view of a language's bundle.

Views: output, source, compile, disasm, hex, bits, deepdive.
With --html the deep dive is printed as escaped HTML.`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}
	cmd.Flags().String("view", string(session.TabSource), "View to print")
	cmd.Flags().Bool("html", false, "Render the deep dive as HTML")
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	view, _ := cmd.Flags().GetString("view")
	asHTML, _ := cmd.Flags().GetBool("html")
	tab := session.Tab(view)
	if !tab.Valid() {
		return fmt.Errorf("unknown view %q", view)
	}

	a, err := setup(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := selectLanguage(cmd, a, args[0]); err != nil {
		return err
	}
	a.ctrl.SetTab(tab)
	printView(cmd.OutOrStdout(), tab, a.ctrl.View(), asHTML)
	return nil
}

// selectLanguage drives a selection to completion and reports load failures.
func selectLanguage(cmd *cobra.Command, a *app, lang string) (session.ViewModel, error) {
	a.ctrl.Drive(cmd.Context(), a.ctrl.SelectLanguage(lang))
	vm := a.ctrl.View()
	if vm.Status == session.StatusLoadError {
		return vm, errors.New(vm.Error)
	}
	return vm, nil
}

func printView(w io.Writer, tab session.Tab, vm session.ViewModel, asHTML bool) {
	l := vm.Language
	switch tab {
	case session.TabOutput:
		printTerminal(w, vm.Terminal)
	case session.TabSource:
		fmt.Fprintf(w, "// %s\n%s\n", l.SourceFilename, strings.TrimRight(l.SourceText, "\n"))
	case session.TabCompile:
		if len(l.CompileSteps) == 0 {
			fmt.Fprintln(w, "No compile step; the source runs as is.")
		}
		for _, s := range l.CompileSteps {
			fmt.Fprintf(w, "%d. $ %s\n", s.Step, s.Command)
			if s.Explanation != "" {
				fmt.Fprintf(w, "   %s\n", s.Explanation)
			}
		}
	case session.TabDisassembly:
		fmt.Fprintln(w, strings.TrimRight(l.Disassembly, "\n"))
	case session.TabHex:
		fmt.Fprintln(w, strings.TrimRight(l.HexView, "\n"))
	case session.TabBits:
		fmt.Fprintln(w, strings.TrimRight(l.BitsExplanation, "\n"))
	case session.TabDeepDive:
		if asHTML {
			fmt.Fprintln(w, deepdive.RenderHTML(vm.Document))
			return
		}
		fmt.Fprintln(w, documentText(vm.Document))
	}
}

// documentText lays a document out for a plain terminal, keeping code spans
// in backticks.
func documentText(d deepdive.Document) string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Kind == deepdive.Heading {
			parts = append(parts, b.Text)
			continue
		}
		var sb strings.Builder
		for _, s := range b.Spans {
			if s.Kind == deepdive.Code {
				sb.WriteString("`" + s.Content + "`")
			} else {
				sb.WriteString(s.Content)
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

func printTerminal(w io.Writer, t session.Terminal) {
	fmt.Fprintf(w, "$ %s\n", t.Command)
	if t.Hint != "" {
		fmt.Fprintln(w, t.Hint)
	} else {
		fmt.Fprintln(w, strings.TrimRight(t.Text, "\n"))
	}
	if meta := t.Meta(); meta != "" {
		fmt.Fprintln(w, meta)
	}
}
