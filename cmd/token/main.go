package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/huddleapp/huddle/internal/auth"
)

func main() {
	userID := flag.String("user", "", "User ID to mint a token for")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "Signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *userID == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: token -user <user-id> [-secret <secret>] [-ttl 24h]")
		fmt.Fprintln(os.Stderr, "  Secret falls back to the JWT_SECRET environment variable")
		os.Exit(1)
	}

	token, err := auth.GenerateToken([]byte(*secret), *userID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
