// issue_token prints a signed development session token.
//
//	go run ./scripts -user user_123 -role admin
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"p9e.in/energydesk/middleware"
	"p9e.in/energydesk/pkg/authz"
)

func main() {
	userID := flag.String("user", "dev_user", "user id placed in the sub claim")
	role := flag.String("role", string(authz.RoleMember), "role placed in metadata.role (admin or member)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if authz.ParseRole(*role) == "" {
		log.Fatalf("unknown role %q", *role)
	}

	token, err := middleware.GenerateToken([]byte(secret), *userID, *role, os.Getenv("JWT_ISSUER"), *ttl)
	if err != nil {
		log.Fatal("Failed to sign token:", err)
	}
	fmt.Println(token)
}
