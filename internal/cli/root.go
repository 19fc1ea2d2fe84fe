package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/pkg/version"
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitErr wraps an error with an exit code.
func exitErr(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

var rootCmd = &cobra.Command{
	Use:   "hooksd",
	Short: "Per-project dispatcher daemon for Claude Code hooks",
	Long: `hooksd runs one background daemon per project that receives Claude Code
hook events over a Unix socket, dispatches them through prioritized
handlers, and answers with allow/deny/ask decisions.

Claude Code invokes "hooksd forward <event>" from its hook configuration;
the forwarder starts the daemon on demand and fails open on any fault.`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			if ee.Err != nil {
				fmt.Fprintln(rootCmd.ErrOrStderr(), errorLine(ee.Err.Error()))
			}
			return ee.Code
		}
		fmt.Fprintln(rootCmd.ErrOrStderr(), errorLine(err.Error()))
		return 1
	}
	return 0
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("hooksd %s\n", version.GetFullVersion()))
}
