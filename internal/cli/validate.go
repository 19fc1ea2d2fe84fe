package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hooksd/hooksd/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config [path]",
	Short: "Validate a hooks-daemon configuration file",
	Long: `Validate a configuration file and print every problem found, not just
the first. Without an argument, validates the current project's config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			path = config.Path(root)
		}
		return runValidateConfig(cmd, path)
	},
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
}

func runValidateConfig(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.LoadFile(path)
	if err != nil {
		var verrs *config.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintln(out, errorLine(fmt.Sprintf("%s: %d problem(s)", path, len(verrs.Errors))))
			for _, ve := range verrs.Errors {
				fmt.Fprintf(out, "  [%s] %s: %s\n", ve.Category(), ve.Field, ve.Message)
			}
			return exitErr(2, nil)
		}
		return exitErr(2, err)
	}

	// The file may be shape-valid yet name handlers that do not exist;
	// building the registry catches that too.
	if _, err := buildRegistry(cfg); err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(out, errorLine(fmt.Sprintf("%s: 1 problem(s)", path)))
			fmt.Fprintf(out, "  [%s] %s: %s\n", ve.Category(), ve.Field, ve.Message)
		} else {
			fmt.Fprintln(out, errorLine(err.Error()))
		}
		return exitErr(2, nil)
	}

	fmt.Fprintln(out, successLine(path+" is valid"))
	return nil
}
