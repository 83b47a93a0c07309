package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pluginkit/pkg/settings"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect plugin settings",
	}
	overrides := &cobra.Command{
		Use:   "overrides <handle>",
		Short: "List settings pinned by config files or environment variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := args[0]
			o, err := settings.LoadOverrides(a.v.GetString("settings.dir"), handle, a.v.GetString("settings.env"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if o.Empty() {
				fmt.Fprintf(out, "%s: no overrides\n", settings.DisplayName(handle, ""))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, k := range o.Keys() {
				v, _ := o.Value(k)
				fmt.Fprintf(tw, "%s\t%v\t%s\n", k, v, o.SourceOf(k))
			}
			return tw.Flush()
		},
	}
	overrides.Flags().String("dir", "config", "config directory")
	overrides.Flags().String("env", "", "environment name for multi-environment files")
	_ = a.v.BindPFlag("settings.dir", overrides.Flags().Lookup("dir"))
	_ = a.v.BindPFlag("settings.env", overrides.Flags().Lookup("env"))
	cmd.AddCommand(overrides)
	return cmd
}
