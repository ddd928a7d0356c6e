package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nimbus/internal/recovery"
	"nimbus/internal/store"
)

const (
	secretService    = "nimbus"
	recoverySeedName = "recovery_seed"
	seedSaltKey      = "recovery_salt"
)

func recoveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Manage the account recovery phrase",
	}
	cmd.AddCommand(recoveryNewCmd(), recoveryVerifyCmd(), recoverySeedCmd())
	return cmd
}

func recoveryNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Generate a recovery phrase and store its seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			s.Suffix = " generating recovery phrase..."
			s.Start()
			phrase, seed, err := recovery.NewPhrase()
			s.Stop()
			if err != nil {
				return err
			}

			if err := wire.Credentials.SetSecret(secretService, recoverySeedName, seed); err != nil {
				return err
			}

			fmt.Println(color.New(color.Bold).Sprint("Write these twelve words down and keep them offline:"))
			fmt.Println()
			for i, word := range strings.Fields(phrase) {
				fmt.Printf("  %2d. %s\n", i+1, word)
			}
			fmt.Println()
			color.Yellow("Anyone with this phrase can recover your account.")
			return nil
		},
	}
}

func recoveryVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <word>...",
		Short: "Check a recovery phrase against the stored seed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase := strings.ToLower(strings.Join(args, " "))
			ok, seed := recovery.VerifyPhrase(phrase)
			if !ok {
				return errors.New("not a valid recovery phrase")
			}

			stored, err := wire.Credentials.GetSecret(secretService, recoverySeedName)
			if errors.Is(err, store.ErrSecretNotFound) {
				return errors.New("no recovery seed stored on this device")
			}
			if err != nil {
				return err
			}
			if stored != seed {
				return errors.New("phrase does not match this account")
			}
			color.Green("Recovery phrase verified.")
			return nil
		},
	}
}

func recoverySeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <password>",
		Short: "Derive the password recovery seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			salt, _, err := wire.Auth.Get(seedSaltKey)
			if err != nil {
				return err
			}

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			s.Suffix = " deriving seed..."
			s.Start()
			seed, usedSalt, err := recovery.DeriveSeed(args[0], salt)
			s.Stop()
			if err != nil {
				return err
			}

			if salt == "" {
				if err := wire.Auth.Set(seedSaltKey, usedSalt); err != nil {
					return err
				}
			}
			fmt.Println(seed)
			return nil
		},
	}
}
