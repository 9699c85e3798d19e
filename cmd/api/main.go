// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/infrastructure/database/gormdb"
	"github.com/your-org/storefront-api/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-api/internal/interfaces/http"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"github.com/your-org/storefront-api/internal/pkg/webhook"
)

func main() {
	cmd := &cli.Command{
		Name:   "storefront-api",
		Usage:  "Storefront cart, order and stock API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run migrations and start the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations and create indexes",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "Seed sample categories and products",
				Action: seed,
			},
			{
				Name:  "carts",
				Usage: "Cart maintenance",
				Commands: []*cli.Command{
					{
						Name:  "abandon",
						Usage: "Mark active carts untouched for a while as abandoned",
						Flags: []cli.Flag{
							&cli.DurationFlag{
								Name:  "older-than",
								Value: 7 * 24 * time.Hour,
								Usage: "minimum idle time before a cart is abandoned",
							},
						},
						Action: abandonCarts,
					},
				},
			},
			{
				Name:  "token",
				Usage: "Issue an access token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id placed in the token subject", Required: true},
					&cli.BoolFlag{Name: "admin", Usage: "grant the admin role"},
				},
				Action: issueToken,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and connects to the database
func bootstrap() (*config.Config, *logrus.Logger, *gormdb.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	log := logger.New(cfg.Logging)

	db, err := gormdb.NewConnection(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	log.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("Starting %s", cfg.App.Name)

	if err := db.Health(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, rate limiting and catalog caching disabled")
	} else {
		defer redisClient.Close()
	}

	migration := gormdb.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(ctx); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
	}

	notifier := webhook.New(cfg.Webhook, log)
	if !notifier.Enabled() {
		log.Info("Webhook URL not configured, order events are not delivered")
	}

	var server *http.Server
	if redisClient != nil {
		server = http.NewServer(cfg, db.GetDB(), redisClient.GetClient(), notifier, log)
	} else {
		server = http.NewServer(cfg, db.GetDB(), nil, notifier, log)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	if err := notifier.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("Pending webhook deliveries abandoned")
	}

	log.Info("Server shutdown completed")
	return nil
}

func migrate(_ context.Context, _ *cli.Command) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	migration := gormdb.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		return err
	}
	if err := migration.CreateIndexes(); err != nil {
		return err
	}

	log.Info("Migration complete")
	return nil
}

func seed(ctx context.Context, _ *cli.Command) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	migration := gormdb.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		return err
	}
	return migration.SeedInitialData(ctx)
}

func abandonCarts(ctx context.Context, cmd *cli.Command) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	olderThan := cmd.Duration("older-than")
	abandoned, err := cart.NewService(db.GetDB(), log).AbandonStale(ctx, olderThan)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"abandoned":  abandoned,
		"older_than": olderThan.String(),
	}).Info("Stale carts abandoned")
	return nil
}

func issueToken(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(cmd.String("user"), cmd.Bool("admin"))
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
