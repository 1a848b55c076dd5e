// cmd/user.go
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/autopilot/internal/store"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage stored portal credentials",
	}
	cmd.AddCommand(newUserSetCmd(a), newUserShowCmd(a), newUserDeleteCmd(a))
	return cmd
}

// withStore opens the configured repository for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(store.Repository) error) error {
	repo, err := store.New(cmd.Context(), a.cfg.Database, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()
	return fn(repo)
}

func newUserSetCmd(a *app) *cobra.Command {
	var cfg store.UserConfig
	cmd := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Store credentials and pacing for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Normalize()
			if !cfg.Valid() {
				return errors.New("both --username and --password are required")
			}
			return a.withStore(cmd, func(repo store.Repository) error {
				if err := repo.PutUserConfig(cmd.Context(), args[0], cfg); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Stored configuration for %s\n", args[0])
				return err
			})
		},
	}
	cmd.Flags().StringVar(&cfg.Username, "username", "", "portal username")
	cmd.Flags().StringVar(&cfg.Password, "password", "", "portal password")
	cmd.Flags().Float64Var(&cfg.TimePerWord, "time-per-word", 1, "seconds of reading time per word of lesson text")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's stored configuration with the password masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(repo store.Repository) error {
				cfg, err := repo.GetUserConfig(cmd.Context(), args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no configuration stored for %s", args[0])
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "username:      %s\n", cfg.Username)
				fmt.Fprintf(out, "password:      %s\n", maskSecret(cfg.Password))
				_, err = fmt.Fprintf(out, "time per word: %g\n", cfg.TimePerWord)
				return err
			})
		},
	}
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user's stored configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(repo store.Repository) error {
				if err := repo.DeleteUserConfig(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted configuration for %s\n", args[0])
				return err
			})
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", 8)
}
