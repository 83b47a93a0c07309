package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pluginkit/pkg/color"
)

func newColorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colors [set]",
		Short: "Show the palette, or the badges of a colour set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := color.NewRegistry()
			if path := a.v.GetString("colors.file"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				err = reg.LoadSets(f)
				_ = f.Close()
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range color.Names() {
					hex, _ := color.Hex(name)
					fmt.Fprintf(out, "%s %-8s %s\n", swatch(hex), name, hex)
				}
				fmt.Fprintf(out, "\nsets: %v\n", reg.SetNames())
				return nil
			}
			set, ok := reg.Set(args[0])
			if !ok {
				return fmt.Errorf("unknown colour set %q (have %v)", args[0], reg.SetNames())
			}
			values := make([]string, 0, len(set))
			for v := range set {
				values = append(values, v)
			}
			sort.Strings(values)
			for _, v := range values {
				b := reg.Badge(args[0], v)
				fmt.Fprintf(out, "%s %-10s %s\n", badge(b), v, b.Color)
			}
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML file of extra colour sets")
	_ = a.v.BindPFlag("colors.file", cmd.Flags().Lookup("file"))
	return cmd
}

func swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("    ")
}

func badge(b color.Badge) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(b.Background)).
		Foreground(lipgloss.Color(b.Text)).
		Padding(0, 1).
		Render(b.Label)
}
