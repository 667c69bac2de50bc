// seed creates a development project with a fresh ingestion API key and prints
// the key once; it is never recoverable afterwards. Idempotent: if the dev
// project already exists, nothing is inserted (and no key can be reprinted).
// With JWT_PRIVATE_KEY set, it also mints a dashboard access token for local use.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"pulsewatch/internal/config"
	"pulsewatch/internal/db"
	projectdomain "pulsewatch/internal/project/domain"
	projectrepo "pulsewatch/internal/project/repository"
	"pulsewatch/internal/security"
)

const devProjectID = "dev-project-001"

func main() {
	name := flag.String("name", "Dev Project", "project name")
	retentionDays := flag.Int("retention-days", 30, "page-visit retention in days (0 disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	projects := projectrepo.NewPostgresRepository(conn)

	existing, err := projects.GetByID(ctx, devProjectID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev project exists). Skipping.")
		return
	}

	plaintext, keyID, secretHash, err := security.GenerateAPIKey()
	if err != nil {
		log.Fatalf("generate api key: %v", err)
	}

	p := &projectdomain.Project{
		ID:         devProjectID,
		Name:       *name,
		APIKeyID:   keyID,
		APIKeyHash: secretHash,
		CreatedAt:  time.Now().UTC(),
	}
	if *retentionDays > 0 {
		p.VisitsRetentionDays = retentionDays
	}
	if err := projects.Create(ctx, p); err != nil {
		log.Fatalf("create project: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Project ID: %s\n", p.ID)
	fmt.Printf("API key (shown once, store it now): %s\n", plaintext)

	if cfg.JWTPrivateKey != "" {
		signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			log.Fatalf("jwt private key: %v", err)
		}
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			log.Fatalf("jwt public key: %v", err)
		}
		tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
		token, _, expiresAt, err := tokens.IssueAccess("dev-user-" + uuid.NewString()[:8])
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Printf("Dashboard token (expires %s): %s\n", expiresAt.Format(time.RFC3339), token)
	}
}
