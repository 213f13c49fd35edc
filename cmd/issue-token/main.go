package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tourexplorer/booking-engine/pkg/jwt"
)

// issue-token mints an access token for local testing. Token issuance is
// otherwise left to the identity provider in front of the API.
func main() {
	var (
		email    string
		roles    string
		secret   string
		validFor time.Duration
		newKey   bool
	)
	flag.StringVar(&email, "email", "", "email of the caller (required)")
	flag.StringVar(&roles, "roles", jwt.RoleCustomer, "comma separated roles: customer, operator")
	flag.StringVar(&secret, "secret", "", "signing secret (overrides JWT_SECRET)")
	flag.DurationVar(&validFor, "valid-for", 24*time.Hour, "token lifetime")
	flag.BoolVar(&newKey, "new-secret", false, "print a fresh JWT_SECRET and exit")
	flag.Parse()

	if newKey {
		secret, err := jwt.GenerateSecret(32)
		if err != nil {
			log.Fatalf("failed to generate secret: %v", err)
		}
		fmt.Printf("JWT_SECRET=%s\n", secret)
		return
	}

	_ = godotenv.Load()

	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		log.Fatal("JWT_SECRET is not set and -secret was not provided")
	}
	if email == "" {
		log.Fatal("-email is required")
	}

	var roleList []string
	for _, r := range strings.Split(roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	token, err := jwt.NewService(secret, validFor).GenerateAccessToken(email, roleList)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(token)
}
