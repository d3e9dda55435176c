package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmerrifield20/realtyhost/internal/identity"
	"github.com/jmerrifield20/realtyhost/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

const defaultServer = "http://localhost:8080"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries the resolved persistent flags for one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	server  string
	token   string
	format  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	o := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "domainctl",
		Short: "Operate tenant custom domains",
		Long: `domainctl attaches, inspects and removes tenant custom domains through
the domain service API.

Settings are read from flags, then DOMAINCTL_* environment variables, then
~/.domainctl/config.yaml (keys: server, token, token_secret, issuer).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "config file (default ~/.domainctl/config.yaml)")
	pf.StringVar(&o.server, "server", "", "domain service URL (default "+defaultServer+")")
	pf.StringVar(&o.token, "token", "", "operator bearer token")
	pf.StringVar(&o.format, "format", "text", "output format: text or json")
	pf.DurationVar(&o.timeout, "timeout", 90*time.Second, "request timeout")

	root.AddCommand(
		newProvisionCmd(o),
		newStatusCmd(o),
		newDeprovisionCmd(o),
		newResolveCmd(o),
		newTokenCmd(o),
		newVersionCmd(),
	)
	return root
}

func (o *cli) load() error {
	v := o.v
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".domainctl"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("domainctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("issuer", "realtyhost-domains")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if o.server == "" {
		o.server = v.GetString("server")
	}
	if o.server == "" {
		o.server = defaultServer
	}
	if o.token == "" {
		o.token = v.GetString("token")
	}
	switch o.format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown --format %q (want text or json)", o.format)
	}
	return nil
}

func (o *cli) client() (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(o.timeout)}
	if o.token != "" {
		opts = append(opts, client.WithBearerToken(o.token))
	}
	return client.New(o.server, opts...)
}

// ── provision ───────────────────────────────────────────────────────────────

func newProvisionCmd(o *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "provision <tenant-id> <domain>",
		Short: "Attach a custom domain to a tenant",
		Long: `Provision registers the domain with the DNS and hosting providers and
prints the DNS records the domain owner must publish.

  domainctl provision tenant-42 www.example.com`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			rec, err := c.Provision(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rec == nil {
				if o.format == "json" {
					return printJSON(out, map[string]string{"status": "accepted"})
				}
				fmt.Fprintln(out, "Accepted: the DNS provider returned no hostname; nothing stored. Retry later.")
				return nil
			}
			if o.format == "json" {
				return printJSON(out, rec)
			}
			printRecord(out, rec)
			return nil
		},
	}
}

// ── status ──────────────────────────────────────────────────────────────────

func newStatusCmd(o *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <tenant-id>",
		Short: "Refresh and show a tenant's custom domain status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if o.format == "json" {
				return printJSON(cmd.OutOrStdout(), st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

// ── deprovision ─────────────────────────────────────────────────────────────

func newDeprovisionCmd(o *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "deprovision <tenant-id>",
		Short: "Remove a tenant's custom domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			if err := c.Deprovision(cmd.Context(), args[0]); err != nil {
				return err
			}
			if o.format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"tenant_id": args[0], "status": "removed"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Custom domain removed from %s\n", args[0])
			return nil
		},
	}
}

// ── resolve ─────────────────────────────────────────────────────────────────

func newResolveCmd(o *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <host>",
		Short: "Show which tenant serves a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			res, err := c.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if o.format == "json" {
				return printJSON(out, res)
			}
			fmt.Fprintf(out, "Host:    %s\n", res.Domain)
			fmt.Fprintf(out, "Tenant:  %s\n", res.TenantID)
			fmt.Fprintf(out, "Status:  %s\n", res.Status)
			return nil
		},
	}
}

// ── token ───────────────────────────────────────────────────────────────────

func newTokenCmd(o *cli) *cobra.Command {
	var (
		subject string
		admin   bool
		ttl     time.Duration
		secret  string
	)
	cmd := &cobra.Command{
		Use:   "token [tenant-id]...",
		Short: "Mint an operator token from the shared secret",
		Long: `Token signs an operator token locally with the service's auth.token_secret.
The secret comes from --secret, DOMAINCTL_TOKEN_SECRET or token_secret in the
config file.

  domainctl token tenant-42 tenant-43
  domainctl token --admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = o.v.GetString("token_secret")
			}
			if !admin && len(args) == 0 {
				return fmt.Errorf("name at least one tenant or pass --admin")
			}
			role := ""
			if admin {
				role = identity.RoleAdmin
			}
			issuer := identity.NewOperatorTokenIssuer([]byte(secret), o.v.GetString("issuer"), ttl)
			tok, err := issuer.Issue(subject, args, role)
			if err != nil {
				return err
			}
			if o.format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"token":      tok,
					"expires_in": int(ttl.Seconds()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "domainctl", "token subject")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant access to every tenant")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (auth.token_secret of the service)")
	return cmd
}

// ── version ─────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the domainctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "domainctl %s\n", version)
		},
	}
}
