package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/internal/bugreport"
)

var bugReportOutput string

var bugReportCmd = &cobra.Command{
	Use:   "bug-report <description>",
	Short: "Generate a diagnostic bundle for an issue report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		report := bugreport.Generate(root, args[0])
		if bugReportOutput == "" || bugReportOutput == "-" {
			fmt.Fprint(cmd.OutOrStdout(), report)
			return nil
		}
		if err := os.WriteFile(bugReportOutput, []byte(report), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successLine("wrote "+bugReportOutput))
		return nil
	},
}

func init() {
	bugReportCmd.Flags().StringVar(&bugReportOutput, "output", "-", "output file, or - for stdout")
	rootCmd.AddCommand(bugReportCmd)
}
