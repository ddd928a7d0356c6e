package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nimbus/internal/app"
)

// appVersion is stamped by the release build.
var appVersion = "0.1.0-dev"

var (
	home       string
	passphrase string
	verbose    bool
	wire       *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:           "nimbus",
		Short:         "Zero-knowledge storage client",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".nimbus")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()

			var err error
			wire, err = app.NewWire(app.Config{
				Home:       home,
				Passphrase: passphrase,
				AppVersion: appVersion,
			}, log)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if wire != nil {
				wire.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.nimbus)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting local secrets")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(initCmd(), recoveryCmd(), deviceIDCmd())
	return root.Execute()
}
