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
)

func newAdminTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "admin-type",
		Aliases: []string{"admin-types"},
		Short:   "Manage admin types and their privilege matrices",
	}

	cmd.AddCommand(newAdminTypeListCmd())
	cmd.AddCommand(newAdminTypeCreateCmd())

	return cmd
}

// ---------- admin-type list ----------

func newAdminTypeListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List admin types with their grants",
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

			types, err := listAll(cmd.Context(), "", store.ListAdminTypes)
			if err != nil {
				return err
			}
			return printAdminTypes(cmd.OutOrStdout(), types, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printAdminTypes(w io.Writer, types []model.AdminType, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(types)
	}

	if len(types) == 0 {
		fmt.Fprintln(w, "No admin types. Use 'admind admin-type create' to add one.")
		return nil
	}

	fmt.Fprintf(w, "%-5s %-20s %s\n", "ID", "NAME", "GRANTS")
	fmt.Fprintf(w, "%-5s %-20s %s\n", "--", "----", "------")
	for _, at := range types {
		fmt.Fprintf(w, "%-5d %-20s %s\n", at.ID, at.Name, formatGrants(at.Privileges))
	}
	return nil
}

// ---------- admin-type create ----------

type adminTypeCreateOptions struct {
	Name        string
	Description string
	Grants      []string
}

func newAdminTypeCreateCmd() *cobra.Command {
	var opts adminTypeCreateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin type",
		Long: `Create an admin type. Each --grant names a function and the access letters
it allows: r(ead), w(rite), u(pdate), d(elete). Functions without a grant are
denied.`,
		Example: `  admind admin-type create --name Auditor --description "Read only access for audits" \
    --grant admins=r --grant userLogs=r`,
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

			at, err := createAdminType(cmd.Context(), store, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin type %q (id %d): %s\n", at.Name, at.ID, formatGrants(at.Privileges))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Admin type name (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "What admins of this type do (required)")
	cmd.Flags().StringArrayVar(&opts.Grants, "grant", nil, "Grant as function=letters, e.g. admins=rw (repeatable)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("description")

	return cmd
}

func createAdminType(ctx context.Context, store *config.Store, opts adminTypeCreateOptions) (*model.AdminType, error) {
	name := strings.TrimSpace(opts.Name)
	desc := strings.TrimSpace(opts.Description)
	if len(name) < 3 {
		return nil, fmt.Errorf("name must be at least 3 characters")
	}
	if len(desc) < 12 {
		return nil, fmt.Errorf("description must be at least 12 characters")
	}

	at := &model.AdminType{Name: name, Description: desc}
	for _, g := range opts.Grants {
		p, err := parseGrant(g)
		if err != nil {
			return nil, err
		}
		at.Privileges = append(at.Privileges, p)
	}

	if err := store.CreateAdminType(ctx, at); err != nil {
		return nil, fmt.Errorf("create admin type: %w", err)
	}
	return at, nil
}

// parseGrant parses "function=rwud".
func parseGrant(s string) (model.Privilege, error) {
	key, letters, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return model.Privilege{}, fmt.Errorf("invalid grant %q: want function=letters", s)
	}
	p := model.Privilege{Function: model.Function{Key: key}}
	for _, c := range strings.ToLower(strings.TrimSpace(letters)) {
		switch c {
		case 'r':
			p.Read = true
		case 'w':
			p.Write = true
		case 'u':
			p.Update = true
		case 'd':
			p.Delete = true
		default:
			return model.Privilege{}, fmt.Errorf("invalid grant %q: unknown access %q", s, c)
		}
	}
	return p, nil
}

// formatGrants renders the granted part of a matrix, e.g. "admins:rw userLogs:r".
func formatGrants(privs []model.Privilege) string {
	var parts []string
	for _, p := range privs {
		if letters := accessLetters(p); letters != "" {
			parts = append(parts, p.Function.Key+":"+letters)
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}

func accessLetters(p model.Privilege) string {
	var b strings.Builder
	for _, g := range []struct {
		on bool
		c  byte
	}{{p.Read, 'r'}, {p.Write, 'w'}, {p.Update, 'u'}, {p.Delete, 'd'}} {
		if g.on {
			b.WriteByte(g.c)
		}
	}
	return b.String()
}
