package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/felixgeelhaar/gptutor/internal/auth"
	"github.com/felixgeelhaar/gptutor/internal/config"
	"github.com/felixgeelhaar/gptutor/internal/daemon"
)

// cmdMigrate applies pending schema migrations to the configured store
func cmdMigrate(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load(ctx, configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := daemon.Migrate(ctx, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %s schema is up to date\n", cfg.Storage.Driver)
	return nil
}

// cmdAddUser creates an account from an interactive prompt
func cmdAddUser(ctx context.Context, args []string, in *bufio.Reader, out io.Writer) error {
	cfg, err := config.Load(ctx, configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	username, err := prompt(in, out, "Username: ")
	if err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	email, err := prompt(in, out, "E-mail: ")
	if err != nil {
		return fmt.Errorf("read email: %w", err)
	}
	password, err := promptPassword(out, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(out, "Confirm password: ")
	if err != nil {
		return err
	}
	if err := auth.ConfirmPassword(password, confirm); err != nil {
		return err
	}

	accounts, closeStores, err := daemon.Accounts(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	user, err := accounts.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Created user %s (%s)\n", user.Username, user.ID)
	return nil
}
