package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nimbus/internal/sysid"
)

const deviceIDKey = "device_id"

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialise the config home for this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if existing, ok, err := wire.Auth.Get(deviceIDKey); err != nil {
				return err
			} else if ok {
				fmt.Printf("already initialised, device %s\n", existing)
				return nil
			}

			id := sysid.Identifier(appVersion)
			if err := wire.Auth.Set(deviceIDKey, id); err != nil {
				return err
			}
			color.Green("Initialised %s", home)
			fmt.Printf("device %s registered as %s\n", sysid.DisplayName(), id)
			return nil
		},
	}
}
