// Command seed-admin creates an ADMIN account, or promotes an existing one.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"

	"taskmaker/backend/internal/config"
	"taskmaker/backend/internal/logging"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/repositories"
	"taskmaker/backend/internal/server"
	"taskmaker/backend/internal/services"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.WithError(err).Fatal("failed to load .env")
	}

	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password; an existing user keeps theirs when empty")
	name := flag.String("name", os.Getenv("SEED_ADMIN_NAME"), "full name")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("failed to set up logging")
	}

	pool, err := server.OpenDatabase(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	if err := seed(context.Background(), repositories.NewStore(pool.DB), cfg.Auth.BCryptCost, *email, *password, *name); err != nil {
		log.WithError(err).Fatal("seeding admin failed")
	}
	log.WithField("email", strings.ToLower(strings.TrimSpace(*email))).Info("admin account ready")
}

func seed(ctx context.Context, store *repositories.Store, cost int, email, password, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("email is required")
	}

	var hash string
	if password != "" {
		h, err := services.HashPassword(password, cost)
		if err != nil {
			return err
		}
		hash = h
	}

	return store.Transaction(ctx, func(tx *repositories.Store) error {
		user, err := tx.Users.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			if hash == "" {
				return errors.New("password is required for a new admin")
			}
			user = &models.User{Email: email, PasswordHash: hash, Role: models.RoleAdmin}
			if name = strings.TrimSpace(name); name != "" {
				user.FullName = &name
			}
			return tx.Users.Create(ctx, user)
		case err != nil:
			return err
		}

		if err := tx.Users.UpdateRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return err
		}
		if hash != "" {
			return tx.Users.UpdatePassword(ctx, user.ID, hash)
		}
		return nil
	})
}
