package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/internal/bugreport"
	"github.com/hooksd/hooksd/internal/paths"
)

var logsTail int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recent daemon log lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		logPath, err := paths.LogPath(root)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(logPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "no log file yet at "+logPath)
				return nil
			}
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), bugreport.Tail(string(data), logsTail))
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsTail, "tail", 100, "number of trailing lines to print")
	rootCmd.AddCommand(logsCmd)
}
