// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	Long: `Token signs an HS256 token for --user with the configured JWT secret.
Send it as "Authorization: Bearer <token>".`,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if user == "" {
		return fmt.Errorf("--user is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := &app{cfg: cfg}
	tokens, err := a.tokens()
	if err != nil {
		return err
	}
	tok, err := tokens.Mint(user, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func init() {
	tokenCmd.Flags().String("user", "", "user ID to embed in the token (required)")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(tokenCmd)
}
