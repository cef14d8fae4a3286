package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/blackwell-systems/bookdesk/internal/dashboards"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/ingest"
	"github.com/blackwell-systems/bookdesk/internal/session"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/tui"
	"github.com/blackwell-systems/bookdesk/internal/tui/multiselect"
	"github.com/blackwell-systems/bookdesk/internal/util"
)

// hubDescriptions are the sidebar subtitles.
var hubDescriptions = map[string]string{
	"orders":       "Orders, statuses and shipping charges",
	"books":        "Catalogue, images and videos",
	"inquiries":    "Customer inquiries, refreshed every few minutes",
	"users":        "Registered users",
	"banners":      "Home page banners",
	"offers":       "Discount offers on book sets",
	"testimonials": "Customer testimonials",
	"pdfs":         "Downloadable PDFs per book",
	"reviews":      "Book reviews",
	"videos":       "Review videos",
	"referrals":    "Referral codes",
}

// runHub shows the sidebar, mounts the chosen dashboard, and comes back
// to the sidebar when the user leaves it.
func runHub(ctx context.Context) error {
	if !sess.Authenticated() {
		signedIn, err := welcome(ctx)
		if err != nil || !signedIn {
			return err
		}
	}

	status := tui.NewStatusBar()
	cancel := sess.Subscribe(func(st session.State) {
		if !st.Authenticated {
			status.Notify(shell.Notice{Level: shell.Failure, Message: "Signed out"})
		}
	})
	defer cancel()

	last := ""
	for {
		if !sess.Authenticated() {
			return fmt.Errorf("session expired - run 'bookdesk login'")
		}

		action, err := tui.RunHub(buildHubContext(last))
		if err != nil {
			return err
		}

		switch action {
		case "", tui.QuitItem.Key:
			return nil
		case tui.LogoutItem.Key:
			if err := sess.Logout(ctx); err != nil {
				return err
			}
			ok("Signed out")
			return nil
		}

		last = action
		quit, err := runDashboard(ctx, action, status)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		// Clear screen to reduce flicker between TUI transitions
		fmt.Print("\033[2J\033[H")
	}
}

func buildHubContext(last string) tui.HubContext {
	hc := tui.HubContext{
		User:    adminName(),
		BaseURL: client.BaseURL(),
		Last:    last,
	}
	for _, name := range dashboards.Names {
		def, err := dashboards.Lookup(name, settings)
		if err != nil {
			continue
		}
		hc.Items = append(hc.Items, tui.MenuItem{Key: name, Label: def.Title, Description: hubDescriptions[name]})
	}
	return hc
}

// welcome explains the missing session and offers to sign in.
func welcome(ctx context.Context) (bool, error) {
	fmt.Println(color.YellowString("⚠ Welcome to bookdesk!"))
	fmt.Println()
	fmt.Printf("  %s backend %s\n", color.GreenString("✓"), client.BaseURL())
	fmt.Printf("  %s not signed in\n", color.RedString("✗"))
	fmt.Println()

	if !util.StdinIsTTY() {
		fmt.Println("Next step: sign in")
		fmt.Printf("  %s\n", color.CyanString("bookdesk login --email you@example.com"))
		return false, nil
	}

	fmt.Print("Email: ")
	email, err := readLine(ctx, os.Stdin)
	if err != nil {
		return false, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	password, err := readPassword(false, os.Stdin)
	if err != nil {
		return false, err
	}
	if err := sess.Login(ctx, client, email, password); err != nil {
		return false, fmt.Errorf("login failed: %w", err)
	}
	ok("Signed in as %s", adminName())
	return true, nil
}

// runDashboard mounts one dashboard until the user goes back or quits.
// Forms run as their own programs between list views.
func runDashboard(ctx context.Context, name string, status *tui.StatusBar) (bool, error) {
	sh, err := openShell(name, status)
	if err != nil {
		return false, err
	}
	defer sh.Close()
	sh.StartRefresh()

	def := sh.Definition()
	opts := tui.DashboardOptions{
		Status:  status,
		Actions: rowActions(name),
		Export: func(rows []entity.Record) (string, error) {
			f := export.XLSXFormat
			if name == "users" {
				f = export.JSONFormat
			}
			return writeExport(exportFilename(def, f, time.Now()), f, def, rows)
		},
	}

	for {
		res, err := tui.RunDashboard(ctx, sh, opts)
		if err != nil {
			return false, err
		}

		switch res.Action {
		case tui.ActionBack:
			return false, nil
		case tui.ActionQuit, tui.ActionNone:
			return true, nil
		case tui.ActionCreate:
			err = sh.OpenCreate()
		case tui.ActionEdit:
			err = sh.OpenEdit(res.ID)
		}
		if err != nil {
			status.Notify(shell.Notice{Level: shell.Failure, Message: err.Error()})
			continue
		}

		if _, err := tui.RunForm(ctx, sh, formOptions(ctx, sh, status)); err != nil {
			if errors.Is(err, context.Canceled) {
				return true, nil
			}
			return false, err
		}
	}
}

// rowActions are the dashboard-specific keys of the list view.
func rowActions(name string) []tui.RowAction {
	switch name {
	case "banners":
		return []tui.RowAction{{
			Key:   "t",
			Label: "toggle",
			Build: func(r entity.Record) (string, shell.Action) {
				return dashboards.ToggleMessage(r), dashboards.ToggleBanner(r)
			},
		}}
	case "books":
		return []tui.RowAction{{
			Key:   "v",
			Label: "remove video",
			Build: func(r entity.Record) (string, shell.Action) {
				return "Video removed", dashboards.RemoveBookVideo(r)
			},
		}}
	}
	return nil
}

// bookFields are the fields that reference books by ID.
var bookFields = map[string]bool{"books": true, "book": true, "bookId": true}

// formOptions loads book choices for fields that reference books and
// resolves media arguments through the download cache. A failed book
// fetch leaves those fields as typed IDs.
func formOptions(ctx context.Context, sh *shell.Shell, status *tui.StatusBar) tui.FormOptions {
	res := ingest.NewResolver(cacheMgr, ingest.WithLogger(logger))
	opts := tui.FormOptions{Status: status, Resolve: res.Resolve}

	var wanted []form.Field
	for _, f := range sh.Definition().Schema.Fields {
		if bookFields[f.Name] && (f.Kind == form.Refs || f.Kind == form.Select) {
			wanted = append(wanted, f)
		}
	}
	if len(wanted) == 0 {
		return opts
	}

	books, err := dashboards.FetchBooks(ctx, client)
	if err != nil {
		logger.Warn("loading book choices", zap.Error(err))
		status.Notify(shell.Notice{Level: shell.Failure, Message: "Could not load books, enter IDs instead"})
		return opts
	}
	opts.Choices = make(map[string][]multiselect.Option, len(wanted))
	for _, f := range wanted {
		choices := dashboards.BookOptions(books)
		if f.Name == "bookId" && sh.Definition().Name == "pdfs" {
			if free, err := dashboards.PDFBookOptions(ctx, client, books); err == nil {
				choices = free
			} else {
				logger.Warn("filtering books with a PDF", zap.Error(err))
			}
		}
		opts.Choices[f.Name] = choices
	}
	return opts
}
