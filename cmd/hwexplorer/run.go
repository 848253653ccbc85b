package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jask/hwexplorer/internal/session"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <lang>",
		Short: "Run a language's hello world program",
		Long: `Load a language, run its hello world program and print the terminal view.

The command exits with the program's exit code, or 1 when the language cannot
be loaded or the program cannot be started.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := selectLanguage(cmd, a, args[0]); err != nil {
		return err
	}
	a.ctrl.Drive(cmd.Context(), a.ctrl.Run())
	vm := a.ctrl.View()

	out := cmd.OutOrStdout()
	if vm.Status == session.StatusRunFailure && vm.LastRun != nil && vm.LastRun.ExitCode == nil {
		out = cmd.ErrOrStderr()
	}
	printTerminal(out, vm.Terminal)
	fmt.Fprintln(cmd.ErrOrStderr(), vm.StatusText)

	switch {
	case vm.Status == session.StatusRunSuccess:
		return nil
	case vm.LastRun != nil && vm.LastRun.ExitCode != nil && *vm.LastRun.ExitCode > 0:
		return &exitCodeError{code: *vm.LastRun.ExitCode}
	default:
		return &exitCodeError{code: 1}
	}
}
