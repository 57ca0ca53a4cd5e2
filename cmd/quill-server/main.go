package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

// @title Quill API
// @version 1.0
// @description Articles, likes and comments with a JSON API.

// @contact.name Quill Support
// @contact.url https://github.com/mikepea/quill

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token or API key. Format: "Bearer {token}"

func main() {
	app := &cli.App{
		Name:  "quill-server",
		Usage: "articles, likes and comments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file (default: ./quill.yaml if present)",
				EnvVars: []string{"QUILL_CONFIG"},
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			createSuperuserCommand(),
			grantCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
