package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/odyssey-erp/odyssey-identity/internal/app"
	"github.com/odyssey-erp/odyssey-identity/internal/catalog"
	"github.com/odyssey-erp/odyssey-identity/internal/credentials"
	"github.com/odyssey-erp/odyssey-identity/internal/identity"
	"github.com/odyssey-erp/odyssey-identity/internal/platform/db"
	"github.com/odyssey-erp/odyssey-identity/internal/platform/kv"
	"github.com/odyssey-erp/odyssey-identity/internal/users"
)

type demoAccount struct {
	email    string
	password string
}

var demoAccounts = []demoAccount{
	{email: "admin@odyssey.local", password: "Admin123!"},
	{email: "alice@example.com", password: "Passw0rd!"},
	{email: "bob@example.com", password: "B0bSecret?"},
}

func main() {
	withCatalog := flag.Bool("catalog", false, "also generate a batch of catalog products (requires PG_DSN)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)

	client, err := kv.New(ctx, cfg.RedisOptions())
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer client.Close()

	hasher, err := credentials.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}
	svc := users.NewService(identity.NewStore(client, identity.Options{Logger: logger}), hasher, logger, nil)

	fmt.Println("→ Seeding users...")
	for _, acct := range demoAccounts {
		reg, err := svc.Register(ctx, acct.email, acct.password)
		switch {
		case err == nil:
			fmt.Printf("  created %s (%s)\n", acct.email, reg.UserID)
		case errors.Is(err, users.ErrDuplicateLoginKey):
			fmt.Printf("  skipped %s (already registered)\n", acct.email)
		default:
			log.Fatalf("seed %s: %v", acct.email, err)
		}
	}

	if *withCatalog {
		if !cfg.CatalogEnabled() {
			fmt.Fprintln(os.Stderr, "PG_DSN is not set, skipping catalog")
		} else {
			fmt.Println("→ Seeding catalog...")
			pool, err := db.New(ctx, cfg.PGDSN)
			if err != nil {
				log.Fatalf("connect postgres: %v", err)
			}
			defer pool.Close()

			repo := catalog.NewRepository(pool)
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Fatalf("migrate catalog: %v", err)
			}
			res, err := catalog.NewService(repo, logger).Generate(ctx)
			if err != nil {
				log.Fatalf("generate products: %v", err)
			}
			fmt.Printf("  %s (%d)\n", res.Message, res.Count)
		}
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}
