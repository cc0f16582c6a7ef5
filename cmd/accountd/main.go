// Command accountd runs the account service.
//
// @title                       Account Service API
// @version                     1.0
// @description                 User accounts with JWT authentication and role-based access.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-service/internal/api"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/config"
	httpserver "github.com/99minutos/account-service/internal/infrastructure/http"
)

const (
	appName     = "accountd"
	serviceName = "account-service"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "User account service with JWT auth and role-based access",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), migrateCmd(), hashPasswordCmd(), versionCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply store migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			log := initLogger(cfg)
			return migrateStore(cmd.Context(), cfg, log)
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash, reading the password from stdin when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}

			hash, err := service.NewBcryptHasher(cost).Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}
}

func serve(ctx context.Context, migrate bool) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := initLogger(cfg)

	if migrate {
		if err := migrateStore(ctx, cfg, log); err != nil {
			return err
		}
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens := service.NewTokenService(st.repo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log,
		service.WithIssuer(cfg.Auth.Issuer),
	)
	users := service.NewUserService(st.repo, service.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, log,
		service.WithOpenAdminSignup(cfg.Auth.OpenAdminSignup),
	)

	if b := cfg.Bootstrap; b.Username != "" {
		created, err := users.EnsureAdmin(ctx, b.Username, b.Email, b.Password)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info().Str("username", b.Username).Bool("created", created).Msg("bootstrap admin checked")
	}

	router := api.NewRouter(api.RouterConfig{
		Users:            users,
		Tokens:           tokens,
		Readiness:        st.readiness,
		TokenErrorStatus: cfg.Auth.TokenErrorStatus,
		Log:              log,
	})

	err = httpserver.NewServer(router, cfg.Port, log).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("bye")
	return nil
}
