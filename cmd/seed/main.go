// Seeds the first admin account: creates it at the identity provider, then
// marks the profile row as admin and active.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"flash-code/internal/config"
	"flash-code/internal/domain"
	"flash-code/internal/domain/model"
	pg "flash-code/internal/infra/db/postgres"
	"flash-code/internal/infra/identity"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	email := flag.String("email", "", "admin email (required)")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	provider, err := identity.NewGoTrueProvider(cfg.Identity.BaseURL, cfg.Identity.ServiceKey, cfg.Identity.Timeout)
	if err != nil {
		log.Fatalf("identity: %v", err)
	}

	account, err := provider.CreateAccount(ctx, *email, *password, "Admin")
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			log.Fatalf("account already exists for %s; promote it by hand if intended", *email)
		}
		log.Fatalf("create account: %v", err)
	}
	fmt.Printf("Account created: %s\n", account.ID)

	profile, err := model.NewProfile(account.ID, account.Email)
	if err != nil {
		log.Fatalf("build profile: %v", err)
	}
	profile.DisplayName = "Admin"
	profile.IsAdmin = true
	profile.IsActive = true

	profileRepo := pg.NewProfileRepo(pool)
	if err := profileRepo.Save(ctx, nil, profile); err != nil {
		log.Fatalf("save profile: %v", err)
	}

	fmt.Println("Admin profile set successfully!")
	fmt.Printf("Email: %s\n", profile.Email)
	fmt.Println("is_admin: true, is_active: true")
}
