// Package commands implements the pluginkit CLI.
//
// Configuration precedence, highest first: flags, PLUGINKIT_* environment
// variables (PLUGINKIT_GEOIP_KEY, PLUGINKIT_SETTINGS_DIR, ...), then the
// config file given by --config or ./pluginkit.yaml.
package commands

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pluginkit/internal/logging"
)

// EnvPrefix prefixes environment variables read by the CLI.
const EnvPrefix = "PLUGINKIT"

type app struct {
	v         *viper.Viper
	log       zerolog.Logger
	closeLog  func() error
	finish    func()
	verbosity int
	cfgFile   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop(), closeLog: func() error { return nil }, finish: func() {}}

	root := &cobra.Command{
		Use:   "pluginkit",
		Short: "Developer tools for pluginkit-based plugins",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			a.log, a.closeLog = logging.Setup(logging.Options{
				Verbosity: a.verbosity,
				Console:   cmd.ErrOrStderr(),
				NoFile:    a.v.GetBool("no-log-file"),
				Dir:       a.v.GetString("log-dir"),
			})
			a.finish = logging.OperationStart(a.log, cmd.CommandPath())
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			a.finish()
			return a.closeLog()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errors.New("no command specified")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./pluginkit.yaml)")
	flags.Bool("no-log-file", false, "log to the console only")
	flags.String("log-dir", "", "log directory (default $XDG_STATE_HOME/pluginkit)")
	_ = a.v.BindPFlag("no-log-file", flags.Lookup("no-log-file"))
	_ = a.v.BindPFlag("log-dir", flags.Lookup("log-dir"))

	root.AddCommand(
		newCountriesCmd(a),
		newPhoneCmd(a),
		newGeoIPCmd(a),
		newExportCmd(a),
		newColorsCmd(a),
		newSettingsCmd(a),
		newEditionCmd(a),
	)
	return root
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("pluginkit")
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && a.cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}
