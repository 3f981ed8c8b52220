package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jarvisboard/jarvisboard/internal/sec"
)

func hashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a dashboard password",
		Long: "Prints the bcrypt hash of a password for auth.password_hash. The password\n" +
			"may be provided via stdin or through the interactive prompt.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			passwd, err := prompt("password: ", true)
			if err != nil {
				return err
			} else if len(passwd) == 0 {
				return errors.New("password must not be empty")
			}
			hash, err := sec.HashPassword(passwd, cfg.Auth.BcryptCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return err
		},
	}
}
