package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pluginkit/pkg/edition"
)

func newEditionCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edition",
		Short: "Work with plugin editions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "compare <a> <op> <b>",
		Short: "Evaluate an edition comparison, e.g. pro '>=' lite",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			left, err := edition.Parse(args[0])
			if err != nil {
				return err
			}
			right, err := edition.Parse(args[2])
			if err != nil {
				return err
			}
			ok, err := left.Compare(right, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List editions in ascending order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, e := range edition.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", e.Rank(), e, e.Label())
			}
			return nil
		},
	})
	return cmd
}
