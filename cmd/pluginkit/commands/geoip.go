package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pluginkit/internal/logging"
	"pluginkit/pkg/geoip"
)

func newGeoIPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geoip <ip>",
		Short: "Look up the location of an IP address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := geoip.NewProvider(a.v.GetString("geoip.provider"), a.v.GetString("geoip.key"))
			if err != nil {
				return err
			}
			if endpoint := a.v.GetString("geoip.endpoint"); endpoint != "" {
				setBaseURL(provider, endpoint)
			}
			client, err := geoip.New(geoip.Options{
				Provider:  provider,
				Timeout:   a.v.GetDuration("geoip.timeout"),
				CacheSize: -1,
				Logger:    logging.Component("geoip"),
			})
			if err != nil {
				return err
			}
			loc, err := client.Lookup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("lookup %s: %w", args[0], err)
			}
			return writeJSON(cmd, loc)
		},
	}
	flags := cmd.Flags()
	flags.String("provider", geoip.ProviderIPAPI, fmt.Sprintf("provider %v", geoip.ProviderNames()))
	flags.String("key", "", "provider API key or token")
	flags.Duration("timeout", geoip.DefaultTimeout, "request timeout")
	flags.String("endpoint", "", "override the provider base URL")
	_ = flags.MarkHidden("endpoint")
	for _, name := range []string{"provider", "key", "timeout", "endpoint"} {
		_ = a.v.BindPFlag("geoip."+name, flags.Lookup(name))
	}
	return cmd
}

func setBaseURL(p geoip.Provider, base string) {
	switch p := p.(type) {
	case *geoip.IPAPI:
		p.BaseURL = base
	case *geoip.IPAPICo:
		p.BaseURL = base
	case *geoip.IPInfo:
		p.BaseURL = base
	}
}
