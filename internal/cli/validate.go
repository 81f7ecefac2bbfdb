package cli

import (
	"errors"
	"fmt"

	"github.com/me/workmaster/pkg/model"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				sc, err := loadScenario(path, vars)
				if err != nil {
					invalid++
					fmt.Fprintf(out, "%s: invalid\n", path)
					var apiErr *model.APIError
					if errors.As(err, &apiErr) && len(apiErr.Details) > 0 {
						for _, d := range apiErr.Details {
							fmt.Fprintf(out, "  - %s: %s\n", d.Field, d.Message)
						}
					} else {
						fmt.Fprintf(out, "  - %v\n", err)
					}
					continue
				}
				fmt.Fprintf(out, "%s: ok (%d agents, %d events, %d ticks)\n",
					path, len(sc.Agents), len(sc.Events), sc.Ticks)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d scenarios invalid", invalid, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Scenario variable key=value (repeatable, HCL only)")
	return cmd
}
