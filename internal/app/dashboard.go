package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/bookdesk/internal/dashboards"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/ingest"
	"github.com/blackwell-systems/bookdesk/internal/media"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// newDashboardCmd builds the command group for one dashboard. Which
// subcommands exist follows the definition's endpoints.
func newDashboardCmd(def *shell.Definition) *cobra.Command {
	cmd := &cobra.Command{
		Use:   def.Name,
		Short: fmt.Sprintf("Manage %s", strings.ToLower(def.Title)),
	}

	cmd.AddCommand(
		newListCmd(def.Name),
		newStatsCmd(def.Name),
		newShowCmd(def.Name),
		newExportCmd(def.Name),
	)
	if def.CanCreate() {
		cmd.AddCommand(newSaveCmd(def.Name, false))
	}
	if def.CanUpdate() {
		cmd.AddCommand(newSaveCmd(def.Name, true))
	}
	if def.CanDelete() {
		cmd.AddCommand(newDeleteCmd(def.Name))
	}

	switch def.Name {
	case "banners":
		cmd.AddCommand(newBannerToggleCmd())
	case "books":
		cmd.AddCommand(newRemoveVideoCmd())
	case "orders":
		cmd.AddCommand(newShippingCmd())
	case "offers":
		cmd.AddCommand(newMigrateBooksCmd())
	}
	return cmd
}

// openShell resolves the dashboard against the loaded settings and
// returns a shell wired to the shared client and preview cache.
func openShell(name string, n shell.Notifier) (*shell.Shell, error) {
	def, err := dashboards.Lookup(name, settings)
	if err != nil {
		return nil, err
	}
	return shell.New(def, client,
		shell.WithNotifier(n),
		shell.WithLogger(logger),
		shell.WithPreviewer(media.NewThumbnailPreviewer(cacheMgr, cfg.Media.PreviewWidth)),
	), nil
}

// loadShell opens a shell and fetches its list.
func loadShell(ctx context.Context, name string) (*shell.Shell, error) {
	if err := requireLogin(); err != nil {
		return nil, err
	}
	sh, err := openShell(name, colorNotifier{})
	if err != nil {
		return nil, err
	}
	if err := sh.Refresh(ctx); err != nil {
		sh.Close()
		return nil, err
	}
	return sh, nil
}

// buildFilter turns --search and --filter flags into a list filter.
func buildFilter(def *shell.Definition, search string, filters []string) (store.Filter, error) {
	f := store.Filter{Search: search}
	values, order, err := parseAssignments(filters)
	if err != nil {
		return f, err
	}
	for _, name := range order {
		nf, found := def.Filter(name)
		if !found {
			return f, fmt.Errorf("unknown filter %q for %s (have %s)", name, def.Name, filterNames(def))
		}
		v := values[name]
		if len(nf.Choices) > 0 && !containsFold(nf.Choices, v) {
			return f, fmt.Errorf("filter %s: %q is not one of %s", nf.Name, v, strings.Join(nf.Choices, ", "))
		}
		if p := nf.Build(v); p != nil {
			f.Where = append(f.Where, p)
		}
	}
	return f, nil
}

func filterNames(def *shell.Definition) string {
	if len(def.Filters) == 0 {
		return "none"
	}
	names := make([]string, 0, len(def.Filters))
	for _, f := range def.Filters {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func newListCmd(name string) *cobra.Command {
	var (
		search  string
		filters []string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List records",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := loadShell(cmd.Context(), name)
			if err != nil {
				return err
			}
			defer sh.Close()

			def := sh.Definition()
			f, err := buildFilter(def, search, filters)
			if err != nil {
				return err
			}
			rows := sh.List(f)
			if flagJSON {
				return export.JSON(os.Stdout, rows)
			}
			if len(rows) == 0 {
				warn("No %s found", strings.ToLower(def.Title))
				return nil
			}
			if err := printTable(os.Stdout, def.Columns, rows); err != nil {
				return err
			}
			fmt.Printf("%s\n", color.HiBlackString("%d of %d", len(rows), sh.Store().Len()))
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Free-text search")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as name=value (repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("filter", completeFilter(name))
	return cmd
}

func newStatsCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show summary figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := loadShell(cmd.Context(), name)
			if err != nil {
				return err
			}
			defer sh.Close()

			stats := sh.Stats()
			if flagJSON {
				out := make([]entity.Record, 0, len(stats))
				for _, s := range stats {
					out = append(out, entity.Record{"label": s.Label, "value": s.Value})
				}
				return export.JSON(os.Stdout, out)
			}
			header("%s", sh.Definition().Title)
			for _, s := range stats {
				fmt.Printf("  %-16s %s\n", s.Label+":", color.WhiteString(s.Value))
			}
			return nil
		},
	}
}

func newShowCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := loadShell(cmd.Context(), name)
			if err != nil {
				return err
			}
			defer sh.Close()

			rec, found := sh.Store().Get(args[0])
			if !found {
				return fmt.Errorf("%s %s: %w", name, args[0], shell.ErrNotFound)
			}
			if flagJSON {
				return export.JSON(os.Stdout, []entity.Record{rec})
			}
			header("%s %s", sh.Definition().Title, rec.ID())
			for _, k := range recordKeys(sh.Definition(), rec) {
				fmt.Printf("  %-18s %s\n", k+":", oneLine(entity.Format(rec[k])))
			}
			return nil
		},
	}
}

// recordKeys lists schema fields first, then any remaining keys sorted.
// Internal keys are left out.
func recordKeys(def *shell.Definition, rec entity.Record) []string {
	hidden := map[string]bool{"_id": true, "__v": true, "password": true}
	var keys []string
	if def.Schema != nil {
		for _, f := range def.Schema.Fields {
			if _, found := rec[f.Name]; found {
				keys = append(keys, f.Name)
				hidden[f.Name] = true
			}
		}
	}
	var rest []string
	for k := range rec {
		if !hidden[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func newSaveCmd(name string, edit bool) *cobra.Command {
	var (
		sets  []string
		files []string
	)

	use, short, nargs := "create", "Create a record", cobra.NoArgs
	if edit {
		use, short, nargs = "edit <id>", "Edit a record", cobra.ExactArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Fields are set with --set name=value. List and reference fields take
comma-separated values. Media is attached with --file field=path, where
path may also be an http(s) URL.`,
		Example: fmt.Sprintf("  bookdesk %s %s --set title=Physics --file image=./cover.jpg", name, strings.Fields(use)[0]),
		Args:    nargs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sh, err := loadShell(ctx, name)
			if err != nil {
				return err
			}
			defer sh.Close()

			if edit {
				err = sh.OpenEdit(args[0])
			} else {
				err = sh.OpenCreate()
			}
			if err != nil {
				return err
			}
			if err := applySets(sh, sets); err != nil {
				return err
			}
			if err := stageFiles(ctx, sh, files); err != nil {
				return err
			}

			rec, err := sh.Submit(ctx)
			if err != nil {
				var verr *shell.ValidationError
				if errors.As(err, &verr) {
					for _, f := range verr.Order {
						fmt.Fprintf(os.Stderr, "  %s %s: %s\n", color.RedString("✗"), f, verr.Result.Errors[f])
					}
				}
				return err
			}
			if flagJSON {
				return export.JSON(os.Stdout, []entity.Record{rec})
			}
			if id := rec.ID(); id != "" {
				fmt.Printf("  %-6s %s\n", "id:", id)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field value as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "Media as field=path or field=url (repeatable)")
	return cmd
}

// applySets writes --set pairs into the open draft.
func applySets(sh *shell.Shell, sets []string) error {
	values, order, err := parseAssignments(sets)
	if err != nil {
		return err
	}
	schema := sh.Definition().Schema
	for _, name := range order {
		f, found := schema.Field(name)
		if !found {
			return fmt.Errorf("unknown field %q (have %s)", name, strings.Join(schema.Names(), ", "))
		}
		if f.Kind == form.Media {
			return fmt.Errorf("%s is a media field, use --file %s=path", name, name)
		}
		if err := sh.UpdateField(name, fieldValue(f, values[name])); err != nil {
			return err
		}
	}
	return nil
}

// fieldValue converts a flag value for a field. List and reference fields
// are comma-separated unless given as a JSON array.
func fieldValue(f form.Field, raw string) any {
	switch f.Kind {
	case form.List, form.Refs:
		if strings.HasPrefix(strings.TrimSpace(raw), "[") {
			return raw
		}
		out := []string{}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return raw
}

// stageFiles resolves --file arguments and stages them per field. A PDF
// field also fills an empty pdfName from the document title.
func stageFiles(ctx context.Context, sh *shell.Shell, files []string) error {
	byField, order, err := parseFiles(files)
	if err != nil {
		return err
	}
	if len(order) == 0 {
		return nil
	}
	res := ingest.NewResolver(cacheMgr, ingest.WithLogger(logger))
	def := sh.Definition()
	for _, field := range order {
		mf, found := def.MediaField(field)
		if !found {
			return fmt.Errorf("%s has no media field %q", def.Name, field)
		}
		resolved, err := res.ResolveAll(ctx, byField[field])
		if err != nil {
			return err
		}
		if err := sh.Stage(ctx, field, resolved); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if mf.Limits.Category == media.PDF {
			defaultPDFName(sh, resolved)
		}
	}
	return nil
}

const pdfNameField = "pdfName"

func defaultPDFName(sh *shell.Shell, files []media.File) {
	d := sh.Draft()
	if d == nil || len(files) == 0 {
		return
	}
	if _, found := sh.Definition().Schema.Field(pdfNameField); !found || d.String(pdfNameField) != "" {
		return
	}
	name := ingest.DefaultPDFName(files[0])
	if err := sh.UpdateField(pdfNameField, name); err == nil {
		logger.Debug("pdf name from document", zap.String("name", name))
	}
}

func newDeleteCmd(name string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := loadShell(cmd.Context(), name)
			if err != nil {
				return err
			}
			defer sh.Close()

			var c shell.Confirmer = promptConfirm(os.Stdin)
			if yes {
				c = shell.AlwaysConfirm
			}
			err = sh.Delete(cmd.Context(), args[0], c)
			if errors.Is(err, shell.ErrConfirmationAborted) {
				fmt.Println(color.YellowString("Cancelled."))
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newExportCmd(name string) *cobra.Command {
	var (
		format  string
		out     string
		search  string
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the list to a spreadsheet, JSON or CSV file",
		Long: `Export the (optionally filtered) list. The default file name is
<Title>_<YYYY-MM-DD>.<ext> in the current directory; --out - writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := loadShell(cmd.Context(), name)
			if err != nil {
				return err
			}
			defer sh.Close()

			def := sh.Definition()
			if format == "" {
				format = defaultExportFormat(def.Name)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			filter, err := buildFilter(def, search, filters)
			if err != nil {
				return err
			}
			rows := sh.List(filter)

			if out == "-" {
				return export.Write(os.Stdout, f, def.Title, def.Columns, rows)
			}
			if out == "" {
				out = exportFilename(def, f, time.Now())
			}
			path, err := writeExport(out, f, def, rows)
			if err != nil {
				return err
			}
			ok("Exported %d %s to %s", len(rows), strings.ToLower(def.Title), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "xlsx, json or csv (default xlsx; json for users)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout")
	cmd.Flags().StringVar(&search, "search", "", "Free-text search")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as name=value (repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("filter", completeFilter(name))
	return cmd
}

func defaultExportFormat(name string) string {
	if name == "users" {
		return string(export.JSONFormat)
	}
	return string(export.XLSXFormat)
}

// exportFilename names JSON dumps by dashboard key and spreadsheets by
// title, e.g. users_2024-05-01.json and Inquiries_2024-05-01.xlsx.
func exportFilename(def *shell.Definition, f export.Format, now time.Time) string {
	if f == export.JSONFormat {
		return export.Filename(def.Name, f, now)
	}
	return export.Filename(def.Title, f, now)
}

// writeExport writes rows to path and returns its absolute form.
func writeExport(path string, f export.Format, def *shell.Definition, rows []entity.Record) (string, error) {
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := export.Write(file, f, def.Title, def.Columns, rows); err != nil {
		file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs, nil
	}
	return path, nil
}
