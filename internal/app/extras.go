package app

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bookdesk/internal/dashboards"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/migrate"
	"github.com/blackwell-systems/bookdesk/internal/shell"
)

func newBannerToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Activate or deactivate a banner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := loadShell(cmd.Context(), "banners")
			if err != nil {
				return err
			}
			defer sh.Close()

			banner, found := sh.Store().Get(args[0])
			if !found {
				return fmt.Errorf("banner %s: %w", args[0], shell.ErrNotFound)
			}
			_, err = sh.Run(cmd.Context(), dashboards.ToggleMessage(banner), dashboards.ToggleBanner(banner))
			return err
		},
	}
}

func newRemoveVideoCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove-video <id>",
		Short: "Detach the video from a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sh, err := loadShell(ctx, "books")
			if err != nil {
				return err
			}
			defer sh.Close()

			book, found := sh.Store().Get(args[0])
			if !found {
				return fmt.Errorf("book %s: %w", args[0], shell.ErrNotFound)
			}
			if book.String("video") == "" {
				warn("%s has no video", sh.Label(book))
				return nil
			}
			if !yes {
				sure, err := promptConfirm(os.Stdin)(ctx, fmt.Sprintf("Remove the video from %q?", sh.Label(book)))
				if err != nil {
					return err
				}
				if !sure {
					fmt.Println(color.YellowString("Cancelled."))
					return nil
				}
			}
			_, err = sh.Run(ctx, "Video removed", dashboards.RemoveBookVideo(book))
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newShippingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipping",
		Short: "Show or change the shipping charge rule",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Show the current rule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requireLogin(); err != nil {
					return err
				}
				s, set, err := dashboards.FetchShipping(cmd.Context(), client)
				if err != nil {
					return err
				}
				if flagJSON {
					return export.JSON(os.Stdout, []entity.Record{{
						"minimumordervalue": s.MinimumOrderValue,
						"shippingcharges":   s.Charges,
						"set":               set,
					}})
				}
				if !set {
					warn("No shipping rule set")
					return nil
				}
				header("Shipping")
				fmt.Printf("  %-22s %s\n", "minimum order value:", color.WhiteString("%.2f", s.MinimumOrderValue))
				fmt.Printf("  %-22s %s\n", "charges:", color.WhiteString("%.2f", s.Charges))
				return nil
			},
		},
		newShippingSetCmd(),
	)
	return cmd
}

func newShippingSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <minimum-order-value> <charges>",
		Short:   "Replace the rule",
		Example: "  bookdesk orders shipping set 499 40",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			minimum, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("minimum order value %q: not a number", args[0])
			}
			charges, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("charges %q: not a number", args[1])
			}
			msg, err := dashboards.SaveShipping(cmd.Context(), client, dashboards.Shipping{
				MinimumOrderValue: minimum,
				Charges:           charges,
			})
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "Shipping charges updated"
			}
			ok("%s", msg)
			return nil
		},
	}
}

func newMigrateBooksCmd() *cobra.Command {
	var (
		dryRun     bool
		ledgerPath string
	)

	cmd := &cobra.Command{
		Use:   "migrate-books",
		Short: "Rewrite offers that still use the legacy 'boooks' field",
		Long: `Find offers whose book references live only under the misspelled
legacy field 'boooks' and save them again under 'books'.

Each rewritten offer is recorded in a ledger so a rerun skips it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			if ledgerPath == "" {
				ledgerPath = migrate.DefaultLedgerPath()
			}
			ledger, err := migrate.OpenLedger(ledgerPath)
			if err != nil {
				return err
			}

			r := &migrate.Runner{Client: client, Ledger: ledger, Logger: logger, DryRun: dryRun}
			results, err := r.Run(cmd.Context(), migrate.OfferBooks)
			for _, res := range results {
				switch res.Outcome {
				case migrate.Migrated:
					fmt.Printf("  %s %s (%d books)\n", color.GreenString("✓"), res.Label, len(res.Values))
				case migrate.Planned:
					fmt.Printf("  %s %s would get %d books\n", color.CyanString("•"), res.Label, len(res.Values))
				case migrate.Skipped:
					fmt.Printf("  %s %s already migrated\n", color.HiBlackString("-"), res.Label)
				case migrate.Failed:
					fmt.Printf("  %s %s: %v\n", color.RedString("✗"), res.Label, res.Err)
				}
			}
			if err != nil {
				return err
			}

			n := migrate.Count(results)
			if len(results) == 0 {
				ok("No offers use the legacy field")
				return nil
			}
			fmt.Println()
			if dryRun {
				header("Dry run: %d to migrate, %d already done", n[migrate.Planned], n[migrate.Skipped])
				return nil
			}
			header("Migrated %d, skipped %d, failed %d", n[migrate.Migrated], n[migrate.Skipped], n[migrate.Failed])
			if n[migrate.Failed] > 0 {
				return fmt.Errorf("%d offers could not be migrated", n[migrate.Failed])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without saving")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Ledger file (default ~/.local/share/bookdesk/migrated.jsonl)")
	return cmd
}
