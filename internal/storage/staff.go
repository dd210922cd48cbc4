package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrAdminCredentials = errors.New("admin username and password must be set")

// EnsureAdmin seeds the staff admin account unless it already exists.
func EnsureAdmin(ctx context.Context, users UserRepository, username, password string, logger *zap.Logger) error {
	if username == "" || password == "" {
		return ErrAdminCredentials
	}

	exists, err := users.Exists(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}
	if exists {
		logger.Info("Admin user already exists", zap.String("username", username))
		return nil
	}

	if err := users.CreateUser(ctx, username, password); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	logger.Info("Admin user created", zap.String("username", username))
	return nil
}
