package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/adapters/http/middleware"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	UserID   string
	TenantID string
	Role     string
	TTL      time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for local testing",
		Long: `Sign an HS256 bearer token with the configured jwt_secret.

Refused when env is production.

Example:
  studioctl token --user a1 --tenant t1 --role admin --ttl 8h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "subject user ID (required)")
	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringVar(&opts.Role, "role", middleware.RoleMember, "member|admin|owner")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runToken(cmd *cobra.Command, opts *TokenOptions) error {
	if opts.Config.IsProduction() {
		return NewExitError(ExitCommandError, "token signing is disabled in production")
	}
	if opts.Config.JWTSecret == "" {
		return NewExitError(ExitCommandError, "jwt_secret is not configured")
	}
	switch opts.Role {
	case middleware.RoleMember, middleware.RoleAdmin, middleware.RoleOwner:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown role %q", opts.Role))
	}

	token, err := middleware.IssueToken([]byte(opts.Config.JWTSecret), middleware.Principal{
		UserID:   opts.UserID,
		TenantID: opts.TenantID,
		Role:     opts.Role,
	}, opts.TTL)
	if err != nil {
		return WrapExitError(ExitCommandError, "sign token", err)
	}
	return opts.formatter(cmd).Success(map[string]string{"token": token}, func(w io.Writer) {
		fmt.Fprintln(w, token)
	})
}
