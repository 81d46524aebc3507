package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/rolegate/config"
	"github.com/target/rolegate/internal/adapters/authroles"
	"github.com/target/rolegate/internal/bootstrap"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/ports"
)

const commandTimeout = time.Minute

// roleLoader reads the role document the same way the server does, using an application
// token from the client-credentials grant.
type roleLoader struct {
	token   func(ctx context.Context) (string, error)
	fetcher ports.RoleFetcher
}

func (l roleLoader) load(ctx context.Context) ([]domainauth.Role, error) {
	var tok string
	if l.token != nil {
		var err error
		if tok, err = l.token(ctx); err != nil {
			return nil, fmt.Errorf("acquire storage token: %w", err)
		}
	}
	roles, err := l.fetcher.FetchRoles(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("fetch roles: %w", err)
	}
	return roles, nil
}

func newRoleLoader(cmdCtx *commandContext) (roleLoader, error) {
	cfg := &cmdCtx.Config
	hc := bootstrap.NewHTTPClient(cfg)

	fetcher, err := bootstrap.BuildRoleSource(cmdCtx.Ctx, cfg, hc, nil, cmdCtx.Logger)
	if err != nil {
		return roleLoader{}, err
	}
	loader := roleLoader{fetcher: fetcher}
	if cfg.Roles.Backend == config.RolesBackendS3 {
		return loader, nil
	}

	provider, err := bootstrap.BuildIdentityProvider(cmdCtx.Ctx, cfg, hc, nil, cmdCtx.Logger)
	if err != nil {
		return roleLoader{}, err
	}
	loader.token = func(ctx context.Context) (string, error) {
		return provider.ClientCredentialsToken(ctx, cfg.Roles.StorageScope)
	}
	return loader, nil
}

type rolesOptions struct {
	JSON bool
}

func parseRolesFlags(args []string) (rolesOptions, error) {
	var opts rolesOptions
	fs := flag.NewFlagSet("roles", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.JSON, "json", false, "print the role list as JSON")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func runRoles(cmdCtx *commandContext, args []string) error {
	opts, err := parseRolesFlags(args)
	if err != nil {
		return err
	}
	loader, err := newRoleLoader(cmdCtx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	roles, err := loader.load(ctx)
	if err != nil {
		return err
	}
	return printRoles(cmdCtx.Out, roles, opts.JSON)
}

func printRoles(w io.Writer, roles []domainauth.Role, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(roles)
	}
	if len(roles) == 0 {
		return writef(w, "role document contains no roles\n")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "#\tROLE\tGROUP\tMAY SEE APP\n"); err != nil {
		return err
	}
	for i, r := range roles {
		if err := writef(tw, "%d\t%s\t%s\t%t\n", i+1, r.RoleName, r.ADGroup, r.MaySeeApp); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type resolveOptions struct {
	Groups []string
}

func parseResolveFlags(args []string) (resolveOptions, error) {
	var (
		opts   resolveOptions
		groups string
	)
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&groups, "groups", "", "comma-separated group display names")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Groups = splitGroups(groups)
	if len(opts.Groups) == 0 {
		return opts, errors.New("-groups is required")
	}
	return opts, nil
}

func splitGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func runResolve(cmdCtx *commandContext, args []string) error {
	opts, err := parseResolveFlags(args)
	if err != nil {
		return err
	}
	loader, err := newRoleLoader(cmdCtx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	roles, err := loader.load(ctx)
	if err != nil {
		return err
	}
	return printResolution(cmdCtx.Out, authroles.Resolve(opts.Groups, roles))
}

func printResolution(w io.Writer, role domainauth.Role) error {
	return writef(w, "role: %s\nmay_see_app: %t\n", role.RoleName, role.MaySeeApp)
}

func runAuthURL(cmdCtx *commandContext, args []string) error {
	var state string
	fs := flag.NewFlagSet("auth-url", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&state, "state", "", "optional state value to embed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := &cmdCtx.Config
	provider, err := bootstrap.BuildIdentityProvider(cmdCtx.Ctx, cfg, bootstrap.NewHTTPClient(cfg), nil, cmdCtx.Logger)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "%s\n", provider.AuthorizationURL(cfg.OAuth.LoginScope, state))
}
