package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"signal-engine/internal/auth"
)

var (
	tokenClient string
	tokenScopes []string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long: `Signs an HS256 token with the configured auth secret.

Examples:
  evaluate token --client desk-1
  evaluate token --client dashboard --scope history:read --ttl 720h`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "", "client id the token is issued to")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{auth.ScopeEvaluate, auth.ScopeHistoryRead}, "granted scopes ("+auth.ScopeAdmin+" allows cache invalidation)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("client")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AuthConfig.JWTSecret == "" {
		return errors.New("no JWT secret configured; set AUTH_JWT_SECRET")
	}
	if tokenTTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", tokenTTL)
	}

	m := auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.Issuer, tokenTTL)
	token, err := m.GenerateToken(auth.ClientClaims{ClientID: tokenClient, Scopes: tokenScopes})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
