// Command apikey is an operator tool for application API keys:
// create a key out of band, list previews, or revoke one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/logwell/logwell/internal/config"
	"github.com/logwell/logwell/internal/keyring"
	"github.com/logwell/logwell/internal/model"
	"github.com/logwell/logwell/internal/repository"
)

func main() {
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createApp := createCmd.String("application", "", "Application UUID")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listApp := listCmd.String("application", "", "Application UUID")

	revokeCmd := flag.NewFlagSet("revoke", flag.ExitOnError)
	revokeID := revokeCmd.String("id", "", "API key UUID to revoke")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "expected 'create', 'list' or 'revoke' subcommands")
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}
	kr, err := keyring.New(cfg.Auth.KeySecret)
	if err != nil {
		fatal("keyring: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		fatal("database: %v", err)
	}
	defer pool.Close()
	keys := repository.NewKeyRepository(pool)

	switch os.Args[1] {
	case "create":
		if err := createCmd.Parse(os.Args[2:]); err != nil {
			fatal("parse: %v", err)
		}
		createKey(ctx, keys, kr, *createApp)
	case "list":
		if err := listCmd.Parse(os.Args[2:]); err != nil {
			fatal("parse: %v", err)
		}
		listKeys(ctx, keys, *listApp)
	case "revoke":
		if err := revokeCmd.Parse(os.Args[2:]); err != nil {
			fatal("parse: %v", err)
		}
		revokeKey(ctx, keys, *revokeID)
	default:
		fmt.Fprintln(os.Stderr, "expected 'create', 'list' or 'revoke' subcommands")
		os.Exit(1)
	}
}

func createKey(ctx context.Context, keys *repository.KeyRepository, kr *keyring.Keyring, appID string) {
	id, err := uuid.Parse(appID)
	if err != nil {
		fatal("-application must be a UUID")
	}
	raw, hash, preview, err := kr.IssueKey()
	if err != nil {
		fatal("issue key: %v", err)
	}
	key := &model.APIKey{ApplicationID: id, KeyHash: hash, KeyPreview: preview}
	if err := keys.Insert(ctx, key); err != nil {
		fatal("save key: %v", err)
	}

	fmt.Println("API key created")
	fmt.Println("---------------------------")
	fmt.Printf("ID:          %s\n", key.ID)
	fmt.Printf("Application: %s\n", id)
	fmt.Printf("Preview:     %s\n", preview)
	fmt.Printf("VALUE:       %s\n", raw)
	fmt.Println("---------------------------")
	fmt.Println("CAUTION: this is the only time the key will be shown.")
}

func listKeys(ctx context.Context, keys *repository.KeyRepository, appID string) {
	id, err := uuid.Parse(appID)
	if err != nil {
		fatal("-application must be a UUID")
	}
	list, err := keys.ListByApplication(ctx, id)
	if err != nil {
		fatal("list keys: %v", err)
	}
	for _, k := range list {
		state := "active"
		if k.Revoked {
			state = "revoked"
		}
		fmt.Printf("%s  %-14s %s  created %s\n", k.ID, k.KeyPreview, state, k.CreatedAt.Format("2006-01-02"))
	}
}

func revokeKey(ctx context.Context, keys *repository.KeyRepository, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		fatal("-id must be a UUID")
	}
	if err := keys.Revoke(ctx, id); err != nil {
		fatal("revoke: %v", err)
	}
	fmt.Println("revoked", id)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
