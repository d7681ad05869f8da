package cli

import (
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasker/pkg/auth"
	"github.com/harrisonrobin/tasker/pkg/config"
)

func authCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Calendar",
		Long: fmt.Sprintf(`Run the OAuth browser flow and cache the token.

Place the OAuth client file %s in the config directory first.`, auth.ClientSecretsFile),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dir, err := g.loadConfig()
			if err != nil {
				return err
			}
			log.Printf("Removing any existing token in '%s'", dir)
			if err := auth.ResetToken(dir); err != nil {
				return err
			}
			if err := auth.Authorize(cmd.Context(), dir); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", filepath.Join(dir, auth.TokenFile))
			return nil
		},
	}
}

func configCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			a := &app{cfg: cfg, out: cmd.OutOrStdout(), json: g.jsonOut}
			return a.emit(cfg, func(w io.Writer) {
				fmt.Fprintf(w, "config:      %s\n", path)
				fmt.Fprintf(w, "db_path:     %s\n", cfg.DBPath)
				fmt.Fprintf(w, "backup_path: %s\n", cfg.BackupPath)
				fmt.Fprintf(w, "calendar:    %s\n", cfg.Calendar)
				fmt.Fprintf(w, "listen:      %s\n", cfg.Listen)
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-calendar <name>",
		Short: "Set the default Google Calendar name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := config.Update(func(cfg *config.Config) {
				cfg.Calendar = args[0]
			})
			if err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default calendar set to: %s\n", args[0])
			return nil
		},
	})
	return cmd
}
