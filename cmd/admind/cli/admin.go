package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/service"
	"github.com/phdlabs/admind/internal/table"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long:  "Create and list the administrators who sign in to the console and the API.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

type adminCreateOptions struct {
	Email     string
	Password  string
	Name      string
	AdminType string
}

func newAdminCreateCmd() *cobra.Command {
	var opts adminCreateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		Long: `Create an active admin account. Without --admin-type the account is a super
admin holding every privilege.`,
		Example: `  admind admin create --email admin@example.com --password secret123
  admind admin create --email auditor@example.com --admin-type Auditor  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Password == "" {
				pw, err := readPassword("Password: ")
				if err != nil {
					return err
				}
				confirm, err := readPassword("Confirm password: ")
				if err != nil {
					return err
				}
				if pw != confirm {
					return fmt.Errorf("passwords do not match")
				}
				opts.Password = pw
			}

			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			admin, err := createAdmin(cmd.Context(), store, opts)
			if err != nil {
				return err
			}
			role := "super admin"
			if admin.AdminType != nil {
				role = admin.AdminType.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %q (%s)\n", admin.Email, role)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Admin display name (defaults to the email's local part)")
	cmd.Flags().StringVar(&opts.AdminType, "admin-type", "", "Name of the admin type to assign")
	cmd.MarkFlagRequired("email")

	return cmd
}

func createAdmin(ctx context.Context, store *config.Store, opts adminCreateOptions) (*model.Admin, error) {
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return nil, fmt.Errorf("invalid email address: %q", opts.Email)
	}
	if len(opts.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = local
	}

	admin := &model.Admin{
		Email:    email,
		Name:     name,
		IsActive: true,
	}
	if opts.AdminType != "" {
		at, err := store.GetAdminTypeByName(ctx, opts.AdminType)
		if err != nil {
			return nil, fmt.Errorf("admin type %q: %w", opts.AdminType, err)
		}
		admin.AdminTypeID = &at.ID
	} else {
		admin.IsSuperAdmin = true
	}

	hash, err := service.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}
	admin.PasswordHash = hash

	if err := store.CreateAdmin(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var (
		jsonOutput bool
		term       string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			admins, err := listAll(cmd.Context(), term, store.ListAdmins)
			if err != nil {
				return err
			}
			return printAdmins(cmd.OutOrStdout(), admins, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&term, "search", "", "Only list admins matching this term")

	return cmd
}

func printAdmins(w io.Writer, admins []model.Admin, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Fprintln(w, "No admins found. Use 'admind admin create' to create one.")
		return nil
	}

	fmt.Fprintf(w, "%-5s %-30s %-24s %-16s %-8s %s\n", "ID", "EMAIL", "NAME", "TYPE", "ACTIVE", "LAST LOGIN")
	fmt.Fprintf(w, "%-5s %-30s %-24s %-16s %-8s %s\n", "--", "-----", "----", "----", "------", "----------")
	for _, a := range admins {
		role := "super admin"
		if a.AdminType != nil {
			role = a.AdminType.Name
		}
		active := "yes"
		switch {
		case a.Pending():
			active = "pending"
		case !a.IsActive:
			active = "no"
		}
		last := "never"
		if a.LastLoginAt != nil {
			last = a.LastLoginAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%-5d %-30s %-24s %-16s %-8s %s\n", a.ID, a.Email, a.Name, role, active, last)
	}
	return nil
}

// listAll walks every page of a store list.
func listAll[T any](ctx context.Context, term string, list func(context.Context, *table.State) ([]T, int64, error)) ([]T, error) {
	st := table.New(true)
	st.SetPageSize(table.MaxPageSize)
	st.SetSearch(term)

	var out []T
	for {
		rows, total, err := list(ctx, st)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		st.SetTotal(int(total))
		if !st.Next() {
			return out, nil
		}
	}
}
