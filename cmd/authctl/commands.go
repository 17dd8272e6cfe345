package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/go-auth-api/internal/app"
	"github.com/redmonkez12/go-auth-api/internal/auth"
	"github.com/redmonkez12/go-auth-api/internal/config"
	"github.com/redmonkez12/go-auth-api/internal/database"
	"github.com/redmonkez12/go-auth-api/internal/logging"
	"github.com/redmonkez12/go-auth-api/internal/user"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "authctl",
		Short:        "Operate the auth service",
		Long:         "Operator tooling for the auth service: schema migrations, hashing and account management.",
		SilenceUsage: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations against the configured Postgres",
	}
	migrateCmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: runMigrate(database.MigrateUp, "migrations applied")},
		&cobra.Command{Use: "down", Short: "Roll back the latest migration", Args: cobra.NoArgs, RunE: runMigrate(database.MigrateDown, "latest migration rolled back")},
		&cobra.Command{Use: "status", Short: "Show migration status", Args: cobra.NoArgs, RunE: runMigrate(database.MigrateStatus, "")},
	)

	hashCmd := &cobra.Command{
		Use:   "hash [secret]",
		Short: "Print the argon2id hash of a secret (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHash,
	}

	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	disableCmd := &cobra.Command{
		Use:   "disable",
		Short: "Soft-delete an account and end its session",
		Args:  cobra.NoArgs,
		RunE:  runDisable,
	}
	disableCmd.Flags().String("email", "", "Account email")
	disableCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
	_ = disableCmd.MarkFlagRequired("email")
	userCmd.AddCommand(disableCmd)

	rootCmd.AddCommand(migrateCmd, hashCmd, userCmd)
	return rootCmd
}

func runMigrate(migrate func(context.Context, *sql.DB) error, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := app.OpenPostgres(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrate(cmd.Context(), db); err != nil {
			return err
		}
		if done != "" {
			printSuccess(cmd.OutOrStdout(), done)
		}
		return nil
	}
}

func runHash(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var secret string
	if len(args) == 1 {
		secret = args[0]
	} else {
		secret, err = readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}
	if secret == "" {
		return errors.New("secret must not be empty")
	}

	hasher, err := app.NewHasher(cfg.Hashing)
	if err != nil {
		return err
	}
	encoded, err := hasher.Hash(cmd.Context(), secret)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), encoded)
	return nil
}

func runDisable(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	yes, _ := cmd.Flags().GetBool("yes")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !yes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Disable %s and end its session?", email))
		if err != nil {
			return err
		}
		if !ok {
			printSubtle(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	logger := logging.NewLoggerWithWriter(cmd.ErrOrStderr(), cfg.Server.IsDevelopment())
	store, closeStore, err := app.OpenStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	issuer, err := app.NewIssuer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	hasher, err := app.NewHasher(cfg.Hashing)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	service := auth.NewService(store, hasher, issuer, logger)
	id, err := service.Disable(cmd.Context(), email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return fmt.Errorf("no active account for %s", email)
		}
		return err
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Disabled %s (%s)", email, id))
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
