// Command catalogctl performs one-off administrative tasks against the catalog database and SES.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/productcatalog/catalog/internal/auth"
	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/notify"
	"github.com/productcatalog/catalog/internal/repository"
	"github.com/productcatalog/catalog/internal/service"
)

const usage = `usage: catalogctl <command> [flags]

commands:
  migrate          apply pending database migrations
  rollback         revert every migration
  create-admin     create an admin user
  upload-template  create the SES notification template
`

type adminOutput struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "migrate":
		databaseURL, err := parseDatabaseFlags("migrate", args[1:])
		if err != nil {
			return err
		}
		return repository.Migrate(ctx, databaseURL)
	case "rollback":
		databaseURL, err := parseDatabaseFlags("rollback", args[1:])
		if err != nil {
			return err
		}
		return repository.Rollback(ctx, databaseURL)
	case "create-admin":
		return createAdmin(ctx, args[1:], stdout)
	case "upload-template":
		return uploadTemplate(ctx, args[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func parseDatabaseFlags(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	databaseURL := fs.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *databaseURL == "" {
		return "", errors.New("DATABASE_URL is required")
	}
	return *databaseURL, nil
}

func createAdmin(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	var (
		databaseURL = fs.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = fs.String("email", "", "admin email")
		password    = fs.String("password", os.Getenv("CATALOG_ADMIN_PASSWORD"), "admin password (defaults to $CATALOG_ADMIN_PASSWORD)")
		format      = fs.String("format", "plain", "output format: plain or json")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}
	outFormat := strings.ToLower(*format)
	if outFormat != "plain" && outFormat != "json" {
		return errors.New("invalid format; use plain or json")
	}

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	hasher, err := auth.NewPasswordHasher(auth.DefaultArgon2Params)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := service.NewUserService(repo, hasher, logger, metrics.NewNoop())

	isAdmin := true
	user, err := users.Create(ctx, service.CreateUserInput{Email: *email, Password: *password, IsAdmin: &isAdmin})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	out := adminOutput{ID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}
	if outFormat == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err = fmt.Fprintf(stdout, "%d\n", out.ID)
	return err
}

func uploadTemplate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("upload-template", flag.ContinueOnError)
	var (
		name     = fs.String("name", envOr("NOTIFY_TEMPLATE", notify.DefaultTemplateName), "SES template name")
		region   = fs.String("region", os.Getenv("AWS_REGION"), "AWS region")
		endpoint = fs.String("endpoint", os.Getenv("SES_ENDPOINT"), "SES endpoint override")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := notify.NewSESClient(ctx, notify.SESConfig{
		Region:          *region,
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:        *endpoint,
	})
	if err != nil {
		return err
	}

	if err := notify.UploadTemplate(ctx, client, *name); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "template %s uploaded\n", *name)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
