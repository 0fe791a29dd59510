package cli

import (
	"fmt"
	"time"

	authUsecase "pmchat-backend/internal/auth/usecase"
	"pmchat-backend/pkg/config"

	"github.com/spf13/cobra"
)

var tokenExpiry time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Issue a bearer token for AUTH_MODE=jwt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}

		token, err := authUsecase.NewJWTAuth(cfg.JWTSecret, tokenExpiry).IssueToken(args[0])
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 24*time.Hour, "token lifetime")
}
