// Command billed-token prints a signed session token and the link that turns
// it into a session cookie. It is meant for local development, where no
// identity provider fronts the application.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"billed/internal/cli"
	"billed/internal/config"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
)

func main() {
	cli.LoadEnvFile()

	email := flag.String("email", "", "Email of the session user (required)")
	admin := flag.Bool("admin", false, "Issue an admin session")
	ttl := flag.Duration("ttl", 0, "Token lifetime (default SESSION_TTL)")
	baseURL := flag.String("base-url", "", "Server base URL (default http://localhost:$PORT)")
	flag.Parse()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentSession)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: billed-token -email user@example.com [-admin] [-ttl 12h]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateSession)
	lifetime := cfg.SessionTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	user := core.User{Type: core.UserEmployee, Email: *email}
	if *admin {
		user.Type = core.UserAdmin
	}

	raw, err := session.NewTokenManager(cfg.SessionSecret, cfg.SessionIssuer, lifetime).Issue(user)
	if err != nil {
		logger.Error("Failed to sign token", log.FieldError, err)
		os.Exit(1)
	}

	base := *baseURL
	if base == "" {
		base = "http://localhost:" + cfg.Port
	}
	fmt.Println(raw)
	fmt.Printf("\nOpen this URL to start a session (expires %s):\n%s/session?token=%s\n",
		time.Now().Add(lifetime).Format(time.RFC3339), base, url.QueryEscape(raw))
}

