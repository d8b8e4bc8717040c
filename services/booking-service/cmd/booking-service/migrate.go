package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/barberia/libs/runtime"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	var admin accounts.RegisterRequest
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and optionally seed the first admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if s.StoreDriver != driverPostgres {
				return errors.New("migrate needs STORE_DRIVER=postgres")
			}
			logger := runtime.NewLoggerWithOptions(s.Service, s.Log)
			ctx, stop := runtime.SignalContext()
			defer stop()

			a, err := newApp(ctx, s, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			applied, err := storage.Migrate(ctx, a.pool, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)

			if admin.Email == "" {
				return nil
			}
			return seedAdmin(ctx, a, admin)
		},
	}
	cmd.Flags().StringVar(&admin.Email, "admin-email", "", "create an admin with this email if it does not exist")
	cmd.Flags().StringVar(&admin.Password, "admin-password", "", "password for --admin-email")
	cmd.Flags().StringVar(&admin.Name, "admin-name", "Administrador", "display name for --admin-email")
	return cmd
}

// seedAdmin creates the first admin. An already registered email is not an error.
func seedAdmin(ctx context.Context, a *app, req accounts.RegisterRequest) error {
	req.Role = model.RoleAdmin
	_, err := a.accounts.Register(ctx, model.Actor{Role: model.RoleAdmin}, req)
	if errors.Is(err, storage.ErrDuplicate) {
		return nil
	}
	return err
}
