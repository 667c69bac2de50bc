// Command migrate applies or rolls back the schema migrations embedded in
// internal/db.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"pulsewatch/internal/config"
	"pulsewatch/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction (up or down)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// Schema already at the target version.
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
