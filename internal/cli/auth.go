package cli

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/Makepad-fr/tarefas/internal/auth"
	"github.com/Makepad-fr/tarefas/internal/ui"
	"github.com/spf13/cobra"
)

func newAuthCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Token authentication for remote sync",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: tarefas auth <login|logout|status|whoami>")
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login [token]",
			Short: "Store a bearer token (prompts when omitted)",
			Args: func(cmd *cobra.Command, args []string) error {
				if len(args) > 1 {
					return usagef("usage: %s", cmd.UseLine())
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.withTokens(cmd, func(src *auth.Source) error {
					token := ""
					if len(args) == 1 {
						token = args[0]
					} else {
						fmt.Fprint(ui.Stdout, "Paste your token: ")
						line, err := bufio.NewReader(stdin).ReadString('\n')
						if err != nil && line == "" {
							return fmt.Errorf("read token: %w", err)
						}
						token = line
					}
					if err := src.Set(cmd.Context(), token); err != nil {
						return fmt.Errorf("save token: %w", err)
					}
					ui.OK("logged in")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the stored token",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.withTokens(cmd, func(src *auth.Source) error {
					if ti, _ := src.Token(cmd.Context()); ti != nil && ti.Source == "env" {
						ui.OK("token is provided by " + auth.EnvVar + " env var (nothing to delete)")
						return nil
					}
					if err := src.Delete(cmd.Context()); err != nil {
						return fmt.Errorf("logout: %w", err)
					}
					ui.OK("logged out")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show where the token comes from and when it expires",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.withTokens(cmd, func(src *auth.Source) error {
					ti, err := src.Token(cmd.Context())
					if err != nil && !errors.Is(err, auth.ErrNoToken) {
						return err
					}
					out := cmd.OutOrStdout()
					if ti == nil {
						fmt.Fprintln(out, ui.Current().Muted.Render("not logged in"))
						fmt.Fprintln(out, "Run: tarefas auth login")
						return nil
					}
					fmt.Fprintf(out, "source: %s\n", ti.Source)
					if ti.ExpiresAt != nil {
						fmt.Fprintf(out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
					} else {
						fmt.Fprintln(out, "expires: (unknown)")
					}
					fmt.Fprintf(out, "env override: %s\n", auth.EnvVar)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Decode the token locally (JWT payloads only, unverified)",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.withTokens(cmd, func(src *auth.Source) error {
					ti, err := src.Token(cmd.Context())
					if errors.Is(err, auth.ErrNoToken) {
						return usagef("not logged in. Run: tarefas auth login")
					}
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					if payload, err := auth.JWTPayload(ti.Token); err == nil {
						fmt.Fprintln(out, "JWT payload:")
						fmt.Fprintln(out, payload)
						return nil
					}
					fmt.Fprintln(out, "Opaque token (cannot introspect locally).")
					fmt.Fprintln(out, "source:", ti.Source)
					return nil
				})
			},
		},
	)
	return cmd
}

// withTokens opens only the local store; auth never touches the task list.
func (g *globals) withTokens(cmd *cobra.Command, fn func(*auth.Source) error) error {
	local, err := openKV(cmd.Context(), g.cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", g.cfg.Backend, err)
	}
	defer local.Close()
	return fn(auth.NewSource(local))
}
