package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nimbus/internal/sysid"
)

func deviceIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device-id",
		Short: "Print this device's identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s %s\n", color.New(color.Bold).Sprint(sysid.DisplayName()), sysid.Identifier(appVersion))
			return nil
		},
	}
}
