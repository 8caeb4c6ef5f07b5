// Command token mints an access token for a user ID using the server's auth
// configuration, for calling the API from scripts and curl.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/service/auth"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	userID := flag.String("user", "", "user ID to embed in the token")
	flag.Parse()

	token, err := mint(*configPath, *userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(configPath, userID string) (string, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	svc, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return "", fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	return svc.GenerateToken(context.Background(), userID)
}
