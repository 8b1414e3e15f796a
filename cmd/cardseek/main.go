// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/cardseek/config"
	"github.com/urfave/cli/v2"
)

// tokenEnv holds the API token sent to hosted model endpoints.
const tokenEnv = "OPENAI_API_KEY"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cardseek",
		Usage: "Semantic search over Magic: The Gathering cards",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML configuration file",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "File with environment variables such as " + tokenEnv,
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnv(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Embed the card source and store the searchable corpus",
				Action: buildCommand,
				Flags:  flags(storeFlags(), aiFlags(), buildFlags()),
			},
			{
				Name:      "search",
				Usage:     "Run a single search and print the results",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags:     flags(storeFlags(), aiFlags(), queryFlags()),
			},
			{
				Name:   "shell",
				Usage:  "Search interactively",
				Action: shellCommand,
				Flags:  flags(storeFlags(), aiFlags(), queryFlags()),
			},
			{
				Name:   "serve",
				Usage:  "Serve the search form over HTTP",
				Action: serveCommand,
				Flags: flags(storeFlags(), aiFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on",
					},
					&cli.BoolFlag{
						Name:  "no-artwork",
						Usage: "Do not look up card images on Scryfall",
					},
				}),
			},
			{
				Name:   "init-config",
				Usage:  "Write the default configuration file",
				Action: initConfigCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var all []cli.Flag
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// Flags without a Value fall back to the configuration file.

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB corpus directory",
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:  "reranker-host",
			Usage: "Relevance model host URL",
		},
		&cli.StringFlag{
			Name:  "reranker-model",
			Usage: "Relevance model name",
		},
	}
}

func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Usage:   "Path to the AllPrintings.json card source",
		},
		&cli.StringFlag{
			Name:  "granularity",
			Usage: "Index one unit per card (record) or per paragraph (paragraph)",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of units to embed in each request",
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Usage: "Number of batches embedded concurrently",
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N units",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for failed batches",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
		},
		&cli.BoolFlag{
			Name:  "normalize",
			Usage: "L2-normalize vectors before indexing",
		},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "Interpret the query as a card name (name) or a description (text)",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:  "ranking",
			Usage: "Second stage ranking (rerank, hybrid)",
		},
		&cli.IntFlag{
			Name:  "k",
			Usage: "Number of results",
		},
		&cli.IntFlag{
			Name:  "fetch-k",
			Usage: "Candidates fetched before re-ranking",
		},
		&cli.Float64Flag{
			Name:  "alpha",
			Usage: "Hybrid semantic weight in [0, 1]",
		},
	}
}

// loadConfig reads the configuration file and applies every flag the user
// set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	setString("db", &cfg.Store.Dir)
	setString("embedding-host", &cfg.AI.EmbeddingHost)
	setString("embedding-model", &cfg.AI.EmbeddingModel)
	setString("reranker-host", &cfg.AI.RerankerHost)
	setString("reranker-model", &cfg.AI.RerankerModel)
	setString("source", &cfg.Build.Source)
	setString("granularity", &cfg.Build.Granularity)
	setInt("batch-size", &cfg.Build.BatchSize)
	setInt("pool-size", &cfg.Build.PoolSize)
	setInt("report-interval", &cfg.Build.ReportInterval)
	setInt("max-retries", &cfg.Build.MaxRetries)
	if c.IsSet("retry-delay") {
		cfg.Build.RetryDelay = c.Duration("retry-delay").String()
	}
	if c.IsSet("normalize") {
		cfg.Build.Normalize = c.Bool("normalize")
	}
	setString("ranking", &cfg.Search.Ranking)
	setInt("k", &cfg.Search.K)
	setInt("fetch-k", &cfg.Search.FetchK)
	if c.IsSet("alpha") {
		cfg.Search.Alpha = float32(c.Float64("alpha"))
	}
	setString("listen", &cfg.Web.Listen)
	if c.IsSet("no-artwork") {
		cfg.Web.Artwork = !c.Bool("no-artwork")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnv reads KEY=value pairs from path into the environment. A missing
// file is not an error and variables already set win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
