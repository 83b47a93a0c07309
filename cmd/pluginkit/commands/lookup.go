package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"pluginkit/pkg/geo"
)

func newCountriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "countries",
		Short: "List countries with dial codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			search := strings.ToLower(a.v.GetString("countries.search"))
			lang := a.v.GetString("countries.lang")
			var tag language.Tag
			if lang != "" {
				t, err := language.Parse(lang)
				if err != nil {
					return fmt.Errorf("invalid language %q: %w", lang, err)
				}
				tag = t
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			n := 0
			for _, c := range geo.Countries() {
				name := c.Name
				if lang != "" {
					name, _ = geo.LocalizedCountryName(c.Code, tag)
				}
				if search != "" &&
					!strings.Contains(strings.ToLower(name), search) &&
					!strings.EqualFold(c.Code, search) &&
					!strings.Contains(c.DialCode, search) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Code, name, c.DialCode)
				n++
			}
			a.log.Debug().Int("count", n).Str("search", search).Msg("countries listed")
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("search", "s", "", "filter by name, code or dial code")
	cmd.Flags().String("lang", "", "localize names (BCP 47 tag, e.g. de)")
	_ = a.v.BindPFlag("countries.search", cmd.Flags().Lookup("search"))
	_ = a.v.BindPFlag("countries.lang", cmd.Flags().Lookup("lang"))
	return cmd
}

func newPhoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "phone <number>",
		Short: "Detect the country of an international phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := geo.CountryByPhone(args[0])
			if !ok {
				return fmt.Errorf("no country matches %q", args[0])
			}
			normalized, _ := geo.NormalizePhone(args[0])
			a.log.Debug().Str("number", normalized).Str("country", c.Code).Msg("phone matched")
			return writeJSON(cmd, struct {
				Number  string      `json:"number"`
				Flag    string      `json:"flag"`
				Country geo.Country `json:"country"`
			}{normalized, geo.Flag(c.Code), c})
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
