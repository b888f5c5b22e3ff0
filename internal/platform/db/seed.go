package db

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"openpay/internal/domain/auth"
	"openpay/internal/platform/config"
)

// Seed makes sure the configured admin account exists and can log in with
// the configured password.
func Seed(ctx context.Context, users *auth.Service, cfg config.Config, log *logrus.Logger) error {
	if cfg.SeedAdminPassword == "" {
		return errors.New("SEED_ADMIN_PASSWORD is required to seed the admin user")
	}
	id, err := users.EnsureUser(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword, auth.RoleAdmin)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"userId": id, "email": cfg.SeedAdminEmail}).Info("admin user seeded")
	return nil
}
