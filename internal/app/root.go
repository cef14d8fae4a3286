package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/cache"
	"github.com/blackwell-systems/bookdesk/internal/config"
	"github.com/blackwell-systems/bookdesk/internal/dashboards"
	"github.com/blackwell-systems/bookdesk/internal/logging"
	"github.com/blackwell-systems/bookdesk/internal/session"
	"github.com/blackwell-systems/bookdesk/internal/tui"
	"github.com/blackwell-systems/bookdesk/internal/util"
)

var (
	cfg      *config.Config
	logger   = zap.NewNop()
	sess     *session.Session
	sessDB   *session.SQLiteStore
	client   *api.Client
	cacheMgr *cache.Manager
	settings = dashboards.DefaultSettings()

	flagNoColor       bool
	flagNoInteractive bool
	flagConfig        string
	flagJSON          bool
)

// annotOffline marks commands that never touch the backend.
const annotOffline = "bookdesk/offline"

var rootCmd = &cobra.Command{
	Use:   "bookdesk",
	Short: "Administer the bookstore catalogue, content and orders",
	Long: `bookdesk is the admin console for the bookstore backend.

Every dashboard (books, offers, banners, reviews, orders, ...) is a
command group with list, stats, create, edit, delete and export.

Run 'bookdesk' with no arguments to launch the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tui.ShouldUseTUI(cmd) {
			return runHub(cmd.Context())
		}
		return cmd.Help()
	},
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		if api.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "  sign in again with", color.CyanString("bookdesk login"))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagNoInteractive, "no-interactive", false, "Disable interactive TUI mode")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/bookdesk/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		util.InitColor(flagNoColor)
		if flagConfig != "" {
			if err := os.Setenv("BOOKDESK_CONFIG", flagConfig); err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger, err = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			Encoding:   cfg.Log.Encoding,
			OutputPath: cfg.Log.Output,
		})
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		settings = dashboards.FromConfig(cfg)

		if offline(cmd) {
			return nil
		}
		return connect(cmd.Context())
	}

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newCacheCmd(),
		newConfigCmd(),
		newVersionCmd(),
		newCompletionCmd(),
	)
	for _, name := range dashboards.Names {
		def, err := dashboards.Lookup(name, settings)
		if err != nil {
			panic(err)
		}
		rootCmd.AddCommand(newDashboardCmd(def))
	}
}

func offline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotOffline]; ok {
			return true
		}
	}
	return false
}

// connect opens the session store, the API client and the preview cache.
func connect(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		if cfg.API.BaseURL == "" {
			return fmt.Errorf("no API base URL configured - set BOOKDESK_API_BASE_URL or run 'bookdesk config init'")
		}
		return err
	}

	var err error
	sessDB, err = session.OpenSQLite(ctx, cfg.Session.DBPath)
	if err != nil {
		return err
	}
	sess, err = session.Open(ctx, sessDB)
	if err != nil {
		return err
	}

	client, err = api.New(cfg.API.BaseURL,
		api.WithCredentials(sess),
		api.WithTimeout(cfg.API.EffectiveTimeout()),
		api.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	cacheMgr = cache.New(cfg.Media.CacheDir)
	for _, area := range []string{cache.Previews, cache.Downloads} {
		n, err := cacheMgr.Sweep(area)
		if err != nil {
			logger.Warn("sweeping cache", zap.String("area", area), zap.Error(err))
			continue
		}
		if n > 0 {
			logger.Debug("removed stale cache files", zap.String("area", area), zap.Int("files", n))
		}
	}
	return nil
}

func shutdown() {
	if sessDB != nil {
		if err := sessDB.Close(); err != nil {
			logger.Warn("closing session store", zap.Error(err))
		}
	}
	_ = logger.Sync()
}

// requireLogin fails fast when no admin is signed in.
func requireLogin() error {
	if sess == nil || !sess.Authenticated() {
		return fmt.Errorf("not signed in - run 'bookdesk login'")
	}
	return nil
}
