package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatbees/chatbees-go/internal/middleware"
)

func newTokenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage gateway access tokens",
	}

	var (
		secret string
		tenant string
		user   string
		ttl    time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for the gateway API",
		Example: `  chatbees token issue --tenant acme --user alice --ttl 24h
  curl -H "Authorization: Bearer $(chatbees token issue --tenant acme)" localhost:8080/api/v1/sessions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenant == "" {
				return errors.New("--tenant is required")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive, got %s", ttl)
			}
			if secret == "" {
				secret = a.cfg.JWTSecret
			}
			if secret == "" {
				return errors.New("no signing secret: set JWT_SECRET or --secret")
			}
			token, err := middleware.IssueToken(secret, tenant, user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&secret, "secret", "", "HMAC secret shared with the gateway (default $JWT_SECRET)")
	issue.Flags().StringVar(&tenant, "tenant", "", "tenant id claim")
	issue.Flags().StringVar(&user, "user", "", "subject (user id) claim")
	issue.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	cmd.AddCommand(issue)
	return cmd
}
