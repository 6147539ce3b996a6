// Command create_user seeds an account into the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"nean/internal/config"
	"nean/internal/logging"
	tokenrepository "nean/internal/token/repository"
	"nean/internal/user"
	"nean/internal/user/repository"
	userservice "nean/internal/user/service"
	"nean/pkg/db"
	"nean/pkg/jwt"
)

func main() {
	login := flag.String("login", "", "account login")
	password := flag.String("password", "", "account password")
	roles := flag.String("roles", "USER", "comma separated roles")
	flag.Parse()

	if err := run(*login, *password, *roles); err != nil {
		fmt.Fprintln(os.Stderr, "create_user:", err)
		os.Exit(1)
	}
}

func run(login, password, roles string) error {
	if login == "" || password == "" {
		return errors.New("-login and -password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required to persist accounts")
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.Migrate(ctx, database.DB); err != nil {
		return err
	}

	jwtManager, err := jwt.NewManager(cfg.TokenSecret, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}
	svc := userservice.NewUserService(
		repository.NewPostgresUserRepository(database),
		tokenrepository.NewRefreshTokenRepository(database),
		jwtManager,
		cfg.SaltFactor,
		logger,
	)

	u, err := svc.Register(ctx, login, password, parseRoles(roles))
	if errors.Is(err, user.ErrAlreadyExists) {
		return fmt.Errorf("login %q is already taken", login)
	}
	if err != nil {
		return err
	}

	fmt.Printf("created user %q (id %d, roles %v)\n", u.Login, u.ID, u.Roles)
	return nil
}

func parseRoles(v string) []string {
	roles := []string{}
	for _, r := range strings.Split(v, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
