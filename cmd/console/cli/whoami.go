package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/kompello/kompello-console/internal/auth"
	"github.com/kompello/kompello-console/internal/kompello"
)

type whoamiEnv struct {
	BaseURL  string        `envconfig:"KOMPELLO_BASE_URL" default:"http://127.0.0.1:8000"`
	Timeout  time.Duration `envconfig:"KOMPELLO_TIMEOUT" default:"10s"`
	Password string        `envconfig:"KOMPELLO_PASSWORD"`
}

// WhoamiOptions configures the whoami command.
type WhoamiOptions struct {
	Identifier string
	JSON       bool
}

// NewWhoamiCommand signs in with the given identifier, prints the resolved
// principal and signs out again.
func NewWhoamiCommand() *cobra.Command {
	opts := &WhoamiOptions{}
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Check credentials against the Kompello API",
		Long:  "Signs in with --identifier and the password from KOMPELLO_PASSWORD, prints the profile and signs out.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var env whoamiEnv
			if err := envconfig.Process("", &env); err != nil {
				return err
			}
			return runWhoami(cmd.Context(), env, *opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.Identifier, "identifier", "", "email address to sign in with")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the profile as JSON")
	_ = cmd.MarkFlagRequired("identifier")
	return cmd
}

type whoamiOutput struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

var errNoPassword = errors.New("KOMPELLO_PASSWORD must be set")

func runWhoami(ctx context.Context, env whoamiEnv, opts WhoamiOptions, out io.Writer) error {
	if env.Password == "" {
		return errNoPassword
	}
	client, err := kompello.NewClient(kompello.Options{BaseURL: env.BaseURL, Timeout: env.Timeout})
	if err != nil {
		return err
	}

	if err := client.Login(ctx, opts.Identifier, env.Password); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	defer func() {
		_ = client.Logout(context.WithoutCancel(ctx))
	}()

	principal := auth.NewFetcher(client, nil, nil).Check(ctx)
	if principal == nil {
		return errors.New("signed in, but no usable profile is bound to the session")
	}

	result := whoamiOutput{ID: principal.ID.String(), DisplayName: principal.DisplayName, Email: principal.Email}
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err = fmt.Fprintf(out, "%s <%s>\nid: %s\n", result.DisplayName, result.Email, result.ID)
	return err
}
