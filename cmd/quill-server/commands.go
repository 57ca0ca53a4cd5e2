package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/config"
	"github.com/mikepea/quill/pkg/quill/database"
	"github.com/mikepea/quill/pkg/quill/events"
	"github.com/mikepea/quill/pkg/quill/likes"
	"github.com/mikepea/quill/pkg/quill/models"
	"github.com/mikepea/quill/pkg/quill/server"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// setup loads config and opens a migrated database
func setup(c *cli.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	if err := database.Connect(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		return nil, nil, err
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Println("Database migrations completed")

	if _, err := auth.EnsureDefaultGroup(db); err != nil {
		return nil, nil, fmt.Errorf("ensure default group: %w", err)
	}
	return cfg, db, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "listen port (overrides server.port)"},
		},
		Action: func(c *cli.Context) error {
			cfg, db, err := setup(c)
			if err != nil {
				return err
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.String("port")
			}
			gin.SetMode(cfg.Server.Mode)

			if err := auth.EnsureAdminExists(db, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
				return fmt.Errorf("ensure admin user: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ranking, err := openRanking(ctx, cfg, db)
			if err != nil {
				return err
			}

			publisher, err := events.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
			if err != nil {
				return fmt.Errorf("connect to rabbitmq: %w", err)
			}
			defer publisher.Close()

			engine, err := server.New(db, server.Options{
				Ranking:      ranking,
				Publisher:    publisher,
				CookieSecure: cfg.Auth.CookieSecure,
				AllowOrigins: cfg.CORS.AllowOrigins,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           server.Handler(engine),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("Starting Quill server on :%s (%s)", cfg.Server.Port, cfg.Server.BaseURL)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Println("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// openRanking uses Redis when configured and rebuilds it from the likes table
func openRanking(ctx context.Context, cfg *config.Config, db *gorm.DB) (likes.Ranking, error) {
	if cfg.Redis.Addr == "" {
		log.Println("redis addr empty, ranking from the database")
		return likes.NewDBRanking(db), nil
	}

	client, err := likes.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	ranking := likes.NewRedisRanking(client)
	if err := ranking.Rebuild(ctx, db); err != nil {
		return nil, fmt.Errorf("rebuild ranking: %w", err)
	}
	log.Printf("Like ranking stored in redis at %s", cfg.Redis.Addr)
	return ranking, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply schema and data migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback-legacy-tags",
				Usage: "copy current tags back into " + models.LegacyTagsTable + " and unrecord the transfer",
			},
		},
		Action: func(c *cli.Context) error {
			_, db, err := setup(c)
			if err != nil {
				return err
			}
			if !c.Bool("rollback-legacy-tags") {
				return nil
			}
			if err := models.RevertDataMigration(db, models.MigrationTransferTags); err != nil {
				return fmt.Errorf("rollback %s: %w", models.MigrationTransferTags, err)
			}
			log.Printf("Reverted data migration %s", models.MigrationTransferTags)
			return nil
		},
	}
}

func createSuperuserCommand() *cli.Command {
	return &cli.Command{
		Name:  "createsuperuser",
		Usage: "create an admin account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"QUILL_SUPERUSER_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			_, db, err := setup(c)
			if err != nil {
				return err
			}
			user, err := auth.CreateSuperuser(db, c.String("email"), c.String("username"), c.String("name"), c.String("password"))
			if err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errors.New("a user with that email or username already exists")
				}
				return err
			}
			log.Printf("Created superuser %s (ID: %d)", user.Username, user.ID)
			return nil
		},
	}
}

func grantCommand() *cli.Command {
	return &cli.Command{
		Name:      "grant",
		Usage:     "grant permissions to a user",
		ArgsUsage: "<email|username>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "perm", Aliases: []string{"p"}, Usage: "permission such as " + models.PermChangeArticle},
			&cli.BoolFlag{Name: "list", Usage: "print the user's effective permissions"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("grant needs exactly one user", 2)
			}
			_, db, err := setup(c)
			if err != nil {
				return err
			}

			var user models.User
			login := c.Args().First()
			if err := db.Where("email = ? OR username = ?", login, login).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("no user %q", login)
				}
				return err
			}

			for _, perm := range c.StringSlice("perm") {
				if err := auth.GrantPermission(db, user.ID, perm); err != nil {
					return fmt.Errorf("grant %s: %w", perm, err)
				}
				log.Printf("Granted %s to %s", perm, user.Username)
			}

			if c.Bool("list") {
				perms, err := auth.UserPermissions(db, user.ID)
				if err != nil {
					return err
				}
				for _, perm := range perms {
					fmt.Fprintln(c.App.Writer, perm)
				}
			}
			return nil
		},
	}
}
