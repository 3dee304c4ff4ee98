package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
//
// A freshly created file holds the defaults, which [Runner.Before] has already loaded.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)

	if err := r.config.Provider.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set provider.client_id and provider.issuer (or auth_url) in %s\n", configPath)
		r.writePlain("2. Run 'loopauth login' to sign in\n")
	}
	return nil
}
