package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/service"
)

var (
	superUsername string
	superEmail    string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an administrator account",
	Long: `Create a user with the admin role and the superuser flag, and print a
confirmation code that can be exchanged for a token at /api/v1/auth/token/.

Examples:
  yamdb createsuperuser --username root --email root@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateSuperuser(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)

	createSuperuserCmd.Flags().StringVar(&superUsername, "username", "", "Username (required)")
	createSuperuserCmd.Flags().StringVar(&superEmail, "email", "", "Email address (required)")
	_ = createSuperuserCmd.MarkFlagRequired("username")
	_ = createSuperuserCmd.MarkFlagRequired("email")
}

func runCreateSuperuser(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.RequireSecret(); err != nil {
		return err
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	svc := service.NewAuthService(db, auth.NewCodeService(), tokens, auth.LogSender{Logger: logger}, logger)
	user, code, err := svc.CreateSuperuser(ctx, superUsername, superEmail)
	if err != nil {
		return err
	}

	fmt.Printf("Superuser %q created.\n", user.Username)
	fmt.Printf("Confirmation code: %s\n", code)
	return nil
}
