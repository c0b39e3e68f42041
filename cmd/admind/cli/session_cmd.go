package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/client"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/tui"
)

// ---------- login ----------

func newLoginCmd() *cobra.Command {
	var (
		serverURL string
		email     string
		password  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an admind server",
		Long: `Sign in to an admind server and keep the session in the data directory for
whoami, browse and logout.`,
		Example: `  admind login --url http://localhost:8080 --email admin@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = readLine("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = readPassword("Password: "); err != nil {
					return err
				}
			}

			c, err := openClient(serverURL)
			if err != nil {
				return err
			}
			res, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			name := email
			if res.Admin != nil {
				name = fmt.Sprintf("%s <%s>", res.Admin.Name, res.Admin.Email)
			}
			fmt.Fprintf(out, "Signed in as %s\n", name)
			fmt.Fprintf(out, "Start page: %s\n", authz.FirstAccessible(authz.Privileges(res.Privileges)))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "", "Server URL (default: last server, or "+defaultServerURL+")")
	cmd.Flags().StringVar(&email, "email", "", "Admin email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")

	return cmd
}

// ---------- logout ----------

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient("")
			if err != nil {
				return err
			}
			if c.Session().RefreshToken() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err := c.Logout(cmd.Context()); err != nil {
				// The local session is gone either way.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server did not confirm logout: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// ---------- whoami ----------

func newWhoamiCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in admin and their privilege matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient("")
			if err != nil {
				return err
			}
			admin, err := c.Me(cmd.Context())
			if err != nil {
				return signInHint(err)
			}
			privs, err := c.Privileges(cmd.Context())
			if err != nil {
				return signInHint(err)
			}
			return printWhoami(cmd.OutOrStdout(), admin, privs, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printWhoami(w io.Writer, admin *model.Admin, privs []model.Privilege, jsonOutput bool) error {
	first := authz.FirstAccessible(authz.Privileges(privs))
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"admin":           admin,
			"privileges":      privs,
			"firstAccessible": first,
		})
	}

	role := "super admin"
	if admin.AdminType != nil {
		role = admin.AdminType.Name
	}
	fmt.Fprintf(w, "%s <%s> (%s)\n", admin.Name, admin.Email, role)
	fmt.Fprintf(w, "Start page: %s\n\n", first)

	fmt.Fprintf(w, "%-14s %-5s %-5s %-6s %-6s\n", "FUNCTION", "READ", "WRITE", "UPDATE", "DELETE")
	for _, p := range privs {
		fmt.Fprintf(w, "%-14s %-5s %-5s %-6s %-6s\n", p.Function.Key, mark(p.Read), mark(p.Write), mark(p.Update), mark(p.Delete))
	}
	return nil
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return "-"
}

// ---------- browse ----------

func newBrowseCmd() *cobra.Command {
	names := make([]string, len(client.Resources))
	for i, r := range client.Resources {
		names[i] = r.Name
	}

	return &cobra.Command{
		Use:       "browse <" + strings.Join(names, "|") + ">",
		Short:     "Browse a list in the terminal",
		Long:      "Page, search and sort a list of the signed-in server in an interactive table.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, ok := client.LookupResource(args[0])
			if !ok {
				return fmt.Errorf("unknown resource %q; choose one of %s", args[0], strings.Join(names, ", "))
			}
			c, err := openClient("")
			if err != nil {
				return err
			}
			// Refresh the cached matrix so the privilege check is current.
			privs, err := c.Privileges(cmd.Context())
			if err != nil {
				return signInHint(err)
			}
			return signInHint(tui.Run(cmd.Context(), c, res, authz.Privileges(privs)))
		},
	}
}

func signInHint(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%w (run 'admind login')", err)
	}
	return err
}
