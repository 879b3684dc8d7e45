package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/editor"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/render"
	"github.com/kalambet/folio/internal/tui"
)

// --- view / edit ---

var viewCmd = &cobra.Command{
	Use:   "view <username>",
	Short: "Open a profile page in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, editor.ProfileRoute(strings.TrimPrefix(args[0], "/")))
	},
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open your own profile in edit mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, editor.ParseRoute(editor.SettingsPath))
	},
}

func runTUI(cmd *cobra.Command, start editor.Route) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logFile, err := tui.OpenLog(filepath.Join(cfg.Storage.DataDir, "folio.log"), parseLevel(cfg.Log.Level))
	if err != nil {
		return err
	}
	defer logFile.Close()

	c, err := newAPIClient()
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), tui.Options{
		Loader:  c,
		Gateway: c,
		Start:   start,
	})
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Read or update profiles through the API",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		p, err := c.GetProfile(cmd.Context(), args[0])
		if err != nil {
			return explain(err)
		}
		return printProfile(cmd.OutOrStdout(), p, asJSON)
	},
}

var profileSetBioCmd = &cobra.Command{
	Use:   "set-bio [text]",
	Short: "Replace your biography",
	Long: `Replace the signed-in user's biography. Markdown is supported.

Examples:
  folio profile set-bio "Gopher. Writes **small** tools."
  folio profile set-bio --file ./bio.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var bio string
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			bio = strings.TrimRight(string(data), "\n")
		case len(args) == 1:
			bio = args[0]
		default:
			return fmt.Errorf("bio text or --file is required")
		}

		if n := profile.Remaining(bio); n < 0 {
			printWarning("bio is %d characters over the limit; the server will reject it", -n)
		}

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		viewer, err := c.Whoami(cmd.Context())
		if err != nil {
			return err
		}
		if viewer == "" {
			return errNotSignedIn
		}

		doc, err := c.UpdateProfile(cmd.Context(), viewer, bio)
		if err != nil {
			return explain(err)
		}
		printSuccess("Updated bio for %s", viewer)
		fmt.Fprintln(cmd.OutOrStdout(), render.PlainText(doc.HTML, 0))
		return nil
	},
}

func init() {
	profileShowCmd.Flags().Bool("json", false, "print the profile as JSON")
	profileSetBioCmd.Flags().String("file", "", "read the biography from a file")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetBioCmd)
}

func printProfile(w io.Writer, p profile.Profile, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	name := p.Name
	if name == "" {
		name = p.Username
	}
	if p.Verified {
		name += " " + colorize(colorGreen, "✓")
	}
	fmt.Fprintln(w, colorize(colorBold, name))
	fmt.Fprintf(w, "@%s\n\n", p.Username)

	md := p.BioRendered.Markdown
	if strings.TrimSpace(md) == "" {
		fmt.Fprintln(w, "No bio yet.")
		return nil
	}

	style := "dark"
	if noColor {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(80))
	if err != nil {
		// Fall back to plain text rather than failing the command.
		fmt.Fprintln(w, render.PlainText(p.BioRendered.HTML, 0))
		return nil
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprintln(w, render.PlainText(p.BioRendered.HTML, 0))
		return nil
	}
	fmt.Fprint(w, out)
	return nil
}

// --- user ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users in the local database",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create or replace a user and issue a session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		image, _ := cmd.Flags().GetString("image")
		bio, _ := cmd.Flags().GetString("bio")
		verified, _ := cmd.Flags().GetBool("verified")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, mgr, err := openManager(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer closeStore(store)

		p, err := mgr.CreateProfile(profile.Profile{
			Username: args[0],
			Name:     name,
			Image:    image,
			Verified: verified,
			Bio:      bio,
		})
		if err != nil {
			return err
		}
		token, err := store.CreateSession(p.Username)
		if err != nil {
			return fmt.Errorf("issuing session: %w", err)
		}

		printSuccess("Created %s", p.Username)
		fmt.Fprintln(cmd.OutOrStdout(), token)
		printStep("Sign in with: folio login %s", token)
		return nil
	},
}

var userImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create users from a YAML seed file",
	Long: `Create users from a YAML seed file.

Example file:
  users:
    - username: alice
      name: Alice Liddell
      verified: true
      bio: |
        Falls down **rabbit holes** for a living.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, _ := cmd.Flags().GetBool("tokens")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening seed file: %w", err)
		}
		defer f.Close()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, mgr, err := openManager(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer closeStore(store)

		var sessions sessionIssuer
		if tokens {
			sessions = store
		}
		results, err := importUsers(mgr, sessions, f)
		for _, r := range results {
			if r.Token != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Username, r.Token)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), r.Username)
			}
		}
		if err != nil {
			return err
		}
		printSuccess("Imported %d users", len(results))
		return nil
	},
}

var userRevokeCmd = &cobra.Command{
	Use:   "revoke <username>",
	Short: "Revoke every session token of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, _, err := openManager(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer closeStore(store)

		n, err := store.RevokeSessions(args[0])
		if err != nil {
			return fmt.Errorf("revoking sessions: %w", err)
		}
		printSuccess("Revoked %d sessions for %s", n, args[0])
		return nil
	},
}

func init() {
	userAddCmd.Flags().String("name", "", "display name")
	userAddCmd.Flags().String("image", "", "avatar image URL")
	userAddCmd.Flags().String("bio", "", "initial biography (Markdown)")
	userAddCmd.Flags().Bool("verified", false, "mark the account as verified")
	userImportCmd.Flags().Bool("tokens", false, "issue a session token for every imported user")
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userImportCmd)
	userCmd.AddCommand(userRevokeCmd)
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Image    string `yaml:"image"`
	Verified bool   `yaml:"verified"`
	Bio      string `yaml:"bio"`
}

type profileCreator interface {
	CreateProfile(p profile.Profile) (profile.Profile, error)
}

type sessionIssuer interface {
	CreateSession(username string) (string, error)
}

type importResult struct {
	Username string
	Token    string
}

// importUsers creates every user in the seed document. It stops at the first
// failure and returns the users created so far. sessions may be nil.
func importUsers(profiles profileCreator, sessions sessionIssuer, r io.Reader) ([]importResult, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	var out []importResult
	for i, u := range seed.Users {
		p, err := profiles.CreateProfile(profile.Profile{
			Username: u.Username,
			Name:     u.Name,
			Image:    u.Image,
			Verified: u.Verified,
			Bio:      strings.TrimRight(u.Bio, "\n"),
		})
		if err != nil {
			return out, fmt.Errorf("user %d (%q): %w", i+1, u.Username, err)
		}
		res := importResult{Username: p.Username}
		if sessions != nil {
			token, err := sessions.CreateSession(p.Username)
			if err != nil {
				return out, fmt.Errorf("issuing session for %q: %w", p.Username, err)
			}
			res.Token = token
		}
		out = append(out, res)
	}
	return out, nil
}

// --- login ---

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Store the session token used by view, edit and profile commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetClientToken(args[0]); err != nil {
			return err
		}

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		viewer, err := c.Whoami(cmd.Context())
		switch {
		case err != nil:
			printWarning("Token saved, but the server could not be reached: %v", err)
		case viewer == "":
			printWarning("Token saved, but the server does not recognise it")
		default:
			printSuccess("Signed in as %s", viewer)
		}
		return nil
	},
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve read-only profile tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, mgr, err := openManager(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer closeStore(store)

		srv := server.NewStdioServer(api.NewMCPServer(api.MCPDeps{
			Profiles: mgr,
			Lister:   store,
		}))
		return srv.Listen(cmd.Context(), os.Stdin, os.Stdout)
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
