package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/bookdesk/internal/config"
	"github.com/blackwell-systems/bookdesk/internal/util"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Create or inspect the config file",
		Annotations: map[string]string{annotOffline: "true"},
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file pointing at the backend",
		Long: `Write ~/.config/bookdesk/config.yml (or --config) with the backend
base URL and the current defaults for everything else.

The base URL can also come from BOOKDESK_API_BASE_URL or a .env file, in
which case no config file is needed.`,
		Example: `  bookdesk config init --base-url https://api.example.com/api`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if baseURL == "" {
				baseURL = cfg.API.BaseURL
			}
			if baseURL == "" && isInteractive() {
				fmt.Print("Backend base URL (e.g. https://api.example.com/api): ")
				line, err := readLine(cmd.Context(), os.Stdin)
				if err != nil {
					return err
				}
				baseURL = strings.TrimSpace(line)
			}
			if baseURL == "" {
				return fmt.Errorf("--base-url is required")
			}

			next := *cfg
			next.API.BaseURL = strings.TrimRight(baseURL, "/")
			if timeout > 0 {
				next.API.Timeout = timeout
			}
			if err := next.Validate(); err != nil {
				return err
			}
			if err := config.Save(&next); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			ok("Wrote %s", path)
			fmt.Println()
			fmt.Println("Next:")
			fmt.Printf("  %s\n", color.CyanString("bookdesk login --email you@example.com"))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Backend API base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (default 60s)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			header("# %s", config.Path())
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

func isInteractive() bool {
	return !flagNoInteractive && !flagJSON && util.StdinIsTTY()
}
