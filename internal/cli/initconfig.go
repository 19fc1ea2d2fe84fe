package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/internal/config"
)

var (
	initMinimal bool
	initFull    bool
	initForce   bool
)

// minimalConfig is the smallest useful config: defaults plus a place to
// put handler overrides.
const minimalConfig = `version: "1.0"
daemon:
  idle_timeout_seconds: 300
  log_level: INFO
handlers:
  PreToolUse:
    destructive_git:
      enabled: true
      priority: 10
`

// fullConfig documents every knob with its default.
const fullConfig = `version: "1.0"

daemon:
  idle_timeout_seconds: 300
  request_timeout_seconds: 60
  max_request_bytes: 1048576
  log_level: INFO
  input_validation:
    enabled: true
    strict_mode: false
    log_validation_errors: true

handlers:
  PreToolUse:
    destructive_git:
      enabled: true
      priority: 10
      terminal: true
      # extra_patterns:
      #   - 'rm\s+-rf\s+/'
    secret_files:
      enabled: true
      priority: 15
      terminal: true
    british_english:
      enabled: false
      priority: 56
  SessionStart:
    session_log:
      enabled: true
      priority: 20

# plugins:
#   - name: team_rules
#     handlers:
#       PreToolUse:
#         my_handler:
#           enabled: true
#           priority: 30
`

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if initMinimal && initFull {
			return errors.New("--minimal and --full are mutually exclusive")
		}
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return runInitConfig(cmd, root)
	},
}

func init() {
	initConfigCmd.Flags().BoolVar(&initMinimal, "minimal", false, "write the minimal config")
	initConfigCmd.Flags().BoolVar(&initFull, "full", false, "write the fully documented config")
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, root string) error {
	path := config.Path(root)

	if _, err := os.Stat(path); err == nil && !initForce {
		if !confirmOverwrite(path) {
			return exitErr(1, fmt.Errorf("%s already exists (use --force to overwrite)", path))
		}
	}

	content := fullConfig
	if initMinimal {
		content = minimalConfig
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), successLine("wrote "+path))
	return nil
}

// confirmOverwrite asks interactively when a terminal is attached;
// non-interactive runs never overwrite without --force.
func confirmOverwrite(path string) bool {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false
	}
	overwrite := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%s exists. Overwrite?", path)).
			Value(&overwrite),
	))
	if err := form.Run(); err != nil {
		return false
	}
	return overwrite
}
