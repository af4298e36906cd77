package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	jwttoken "certverify/internal/jwt_token"
	authmw "certverify/pkg/platform/middleware/auth"
)

// TokenOutput is what the token command prints.
type TokenOutput struct {
	AccessToken string    `json:"access_token" yaml:"access_token"`
	TokenType   string    `json:"token_type" yaml:"token_type"`
	ExpiresAt   time.Time `json:"expires_at" yaml:"expires_at"`
}

func newTokenCmd(a *app) *cobra.Command {
	var subject, scope string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token --subject NAME",
		Short: "Mint a development bearer token for the verification API",
		Long: `Signs an HS256 access token with $CERTVERIFY_JWT_SIGNING_KEY, the same key
the server validates against when CERTVERIFY_REQUIRE_AUTH=true.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			svc := jwttoken.NewJWTService(a.env.Server.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)
			token, err := svc.GenerateAccessToken(subject, scope, ttl)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), a.outputFormat, TokenOutput{
				AccessToken: token,
				TokenType:   "Bearer",
				ExpiresAt:   time.Now().Add(ttl).UTC().Truncate(time.Second),
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "calling system the token is issued to")
	cmd.Flags().StringVar(&scope, "scope", authmw.ScopeVerify, "space separated scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
