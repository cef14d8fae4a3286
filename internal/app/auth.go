package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blackwell-systems/bookdesk/internal/session"
)

func newLoginCmd() *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as an admin",
		Long: `Sign in with an admin email and password. The token is kept in the
local session store until 'bookdesk logout'.

Examples:
  bookdesk login --email admin@example.com
  echo "$PASS" | bookdesk login --email admin@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if email == "" {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("--email is required")
				}
				fmt.Fprint(os.Stderr, "Email: ")
				line, err := readLine(ctx, os.Stdin)
				if err != nil {
					return err
				}
				email = strings.TrimSpace(line)
			}

			password, err := readPassword(passwordStdin, os.Stdin)
			if err != nil {
				return err
			}

			if err := sess.Login(ctx, client, email, password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			ok("Signed in as %s", adminName())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

// readPassword reads from stdin when asked to, else prompts without echo.
func readPassword(fromStdin bool, in *os.File) (string, error) {
	if fromStdin {
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for the password prompt (use --password-stdin)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.Logout(cmd.Context()); err != nil {
				return err
			}
			ok("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := sess.State()
			if flagJSON {
				out := map[string]any{
					"authenticated": st.Authenticated,
					"admin":         st.Admin,
					"baseUrl":       client.BaseURL(),
				}
				if exp, found := session.Expiry(st.Token); found {
					out["expires"] = exp.Format(time.RFC3339)
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if !st.Authenticated {
				fmt.Printf("%s not signed in (%s)\n", color.YellowString("!"), client.BaseURL())
				return nil
			}
			fmt.Printf("%s %s\n", color.GreenString("✓"), adminName())
			fmt.Printf("  %-10s %s\n", "server:", client.BaseURL())
			if e := st.Admin.String("email"); e != "" {
				fmt.Printf("  %-10s %s\n", "email:", e)
			}
			if exp, found := session.Expiry(st.Token); found {
				fmt.Printf("  %-10s %s (%s)\n", "expires:", exp.Local().Format("2006-01-02 15:04"),
					humanUntil(time.Until(exp)))
			}
			return nil
		},
	}
}

// adminName is the best display name of the signed-in admin.
func adminName() string {
	if sess == nil {
		return ""
	}
	a := sess.Admin()
	for _, k := range []string{"name", "fullName", "email"} {
		if v := a.String(k); v != "" {
			return v
		}
	}
	return "admin"
}

func humanUntil(d time.Duration) string {
	switch {
	case d <= 0:
		return "expired"
	case d < time.Hour:
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("in %dh", int(d.Hours()))
	}
	return fmt.Sprintf("in %dd", int(d.Hours()/24))
}
