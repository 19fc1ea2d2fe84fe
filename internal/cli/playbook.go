package cli

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/internal/playbook"
)

var playbookFormat string

var playbookCmd = &cobra.Command{
	Use:   "generate-playbook",
	Short: "Generate an acceptance playbook from the registered handlers",
	Long: `Generate an acceptance playbook describing every handler the current
configuration would register: event, priority, terminal behavior, and
what the handler does. The output is ephemeral; regenerate it after
config changes instead of checking it in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		deps, err := buildDependencies(root)
		if err != nil {
			return exitErr(2, err)
		}

		pb := playbook.Collect(filepath.Base(root), deps.Registry)
		out, err := playbook.Render(pb, playbookFormat)
		if err != nil {
			return err
		}

		if playbookFormat == playbook.FormatMarkdown && stdoutIsTTY() {
			if rendered, err := renderMarkdownTTY(out); err == nil {
				out = rendered
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	playbookCmd.Flags().StringVar(&playbookFormat, "format", playbook.FormatMarkdown, "output format: md, json, or yaml")
	rootCmd.AddCommand(playbookCmd)
}

// renderMarkdownTTY pretty-prints markdown for interactive terminals.
func renderMarkdownTTY(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
