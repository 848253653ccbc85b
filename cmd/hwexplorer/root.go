package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitCodeError ends the process with code and no further message.
type exitCodeError struct{ code int }

func (e *exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hwexplorer",
		Short: "Explore hello world programs from source to bits",
		Long: `hwexplorer - see what a hello world program really is.

Pick a language to browse its source, compile pipeline, disassembly, hex dump,
bit-level explanation and a deep dive, then run the real program.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				return os.Setenv("HWEXPLORER_CONFIG", path)
			}
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "Config file (default ~/.config/hwexplorer/config.toml)")
	root.PersistentFlags().Bool("mock", false, "Serve placeholder bundles instead of the language database")
	root.PersistentFlags().String("bin-dir", "", "Directory holding the hello world programs")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(newTUICmd(), newLanguagesCmd(), newShowCmd(), newRunCmd(), newServeCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			return ec.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
