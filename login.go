package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and cache credentials",
		Long: `Authenticate against the Microsoft identity platform.

Uses the cached session silently when one exists; otherwise opens a browser
for interactive sign-in. The resulting session state is cached on disk so
subsequent commands run without prompting.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if _, err := newManager(cmd.Context(), logger); err != nil {
		return err
	}

	statusf("Signed in. Session cached at %s\n", resolvedCfg.CacheFile)

	return nil
}

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
