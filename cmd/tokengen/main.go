// Command tokengen mints a bearer token signed with the configured JWT secret,
// standing in for the session layer during local development.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/service"
	"github.com/noah-isme/campus-monitor-api/pkg/config"
)

func main() {
	email := flag.StringP("email", "e", "", "user email (required)")
	name := flag.StringP("name", "n", "", "display name")
	role := flag.StringP("role", "r", string(models.RoleStaff), "ADMIN, STAFF, EDITOR or VIEWER")
	expiry := flag.Duration("expiry", 0, "token lifetime, defaults to JWT_EXPIRATION")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lifetime := cfg.JWT.Expiration
	if *expiry > 0 {
		lifetime = *expiry
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: lifetime,
	})
	token, expiresAt, err := tokens.Issue(*email, *name, models.ParseRole(*role))
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
