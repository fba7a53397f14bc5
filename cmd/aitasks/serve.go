package main

import (
	"context"
	"time"

	"aitasks/internal/credentials"
	"aitasks/internal/server"
	"aitasks/internal/utils"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API over HTTP",
		Long: `Serve the JSON API. Requests carrying 'Authorization: Bearer <JWT>' act
as the token's sub claim; requests without one are anonymous and use the
local store.

Tokens are verified with server.jwt_secret (HS256, also read from the
keyring entry 'jwt' or AITASKS_JWT_SECRET) or server.jwks_url (RS256).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := application.Config().Server
			if addr == "" {
				addr = cfg.Addr
			}
			secret := application.Secrets().Lookup(credentials.SecretJWT, cfg.JWTSecret)
			auth, err := server.NewAuthFromConfig(cfg, secret)
			if err != nil {
				return utils.WrapWithSuggestion(err, "Check server.jwks_url or store a secret with 'aitasks credentials set jwt'")
			}

			var authenticator server.Authenticator
			if auth != nil {
				authenticator = auth
			} else {
				utils.Warnf("No jwt_secret or jwks_url configured: only anonymous requests will be served")
			}

			srv := server.New(application.Repository(), application.Gateway(), authenticator)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				if err != nil {
					return utils.WrapWithSuggestion(err, "Pick a free address with --addr or change server.addr")
				}
				return nil
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}
