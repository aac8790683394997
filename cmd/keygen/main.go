package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/course-planner-api/pkg/auth"
	"github.com/arnavshah/course-planner-api/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET is not configured")
		os.Exit(1)
	}

	userID := os.Args[1]
	apiKey := auth.NewAuthenticator(cfg.Auth).GenerateHMACKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, apiKey)
}
