package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/phdlabs/admind/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage admind configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default admind.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Set auth.jwt_secret (or ADMIND_AUTH_JWT_SECRET), then run 'admind serve'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", "admind.yaml", "Path of the file to create")

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f := viper.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "# Config file: %s\n", f)
			} else {
				fmt.Fprintln(out, "# Config file: (none found, using defaults)")
			}
			fmt.Fprintf(out, "# Data dir:    %s\n", resolveDataDir())

			if !showSecrets {
				cfg.Auth.JWTSecret = redact(cfg.Auth.JWTSecret)
				cfg.Database.DSN = redact(cfg.Database.DSN)
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the JWT secret and database DSN")

	return cmd
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
