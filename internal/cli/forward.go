package cli

import (
	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/internal/forwarder"
	"github.com/hooksd/hooksd/internal/hook"
	"github.com/hooksd/hooksd/internal/logging"
)

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Forward a hook event to the daemon",
	Long: `Forward a Claude Code hook event to the project daemon. Called from
Claude Code's hook configuration; reads the hook payload from stdin and
prints the hook output to stdout. Always exits zero so a daemon fault
never blocks the assistant.`,
}

func init() {
	rootCmd.AddCommand(forwardCmd)

	subcommands := []struct {
		use   string
		event hook.EventType
	}{
		{"pre-tool-use", hook.EventPreToolUse},
		{"post-tool-use", hook.EventPostToolUse},
		{"session-start", hook.EventSessionStart},
		{"session-end", hook.EventSessionEnd},
		{"stop", hook.EventStop},
		{"subagent-stop", hook.EventSubagentStop},
		{"pre-compact", hook.EventPreCompact},
		{"user-prompt-submit", hook.EventUserPromptSubmit},
		{"permission-request", hook.EventPermissionRequest},
		{"notification", hook.EventNotification},
		{"status", hook.EventStatus},
	}

	for _, sub := range subcommands {
		event := sub.event // capture for closure
		forwardCmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: "Forward a " + string(event) + " event",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runForward(cmd, event)
			},
		})
	}
}

func runForward(cmd *cobra.Command, event hook.EventType) error {
	// The forwarder's stdout is parsed by Claude Code; keep logs out.
	logging.Discard()

	root, err := projectRoot()
	if err != nil {
		// Even this falls open: print the neutral output and succeed.
		_, werr := cmd.OutOrStdout().Write([]byte("{}\n"))
		return werr
	}
	return forwarder.New(root).Run(event, cmd.InOrStdin(), cmd.OutOrStdout())
}
