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
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/vitae"
	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/storage/pgvector"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vitae",
		Usage: "Evidence segmentation and retrieval for a career knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML tuning config (defaults apply otherwise)",
				EnvVars: []string{"VITAE_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnv(c)
		},
		Commands: []*cli.Command{
			ingestCommand(),
			forgetCommand(),
			segmentsCommand(),
			searchCommand(),
			reembedCommand(),
			diagnoseCommand(),
			configCommand(),
		},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "./vitae_db",
			EnvVars: []string{"VITAE_DB"},
		},
		&cli.StringFlag{
			Name:    "postgres",
			Usage:   "PostgreSQL connection string; stores segments with pgvector instead of BadgerDB",
			EnvVars: []string{"VITAE_POSTGRES_URL"},
		},
		&cli.IntFlag{
			Name:    "vector-dimension",
			Usage:   "Fixed embedding width for new PostgreSQL tables (0 leaves it unconstrained)",
			EnvVars: []string{"VITAE_VECTOR_DIMENSION"},
		},
	}
}

func aiFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   defaults.EmbeddingHost,
			EnvVars: []string{"VITAE_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   defaults.EmbeddingModel,
			EnvVars: []string{"VITAE_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "expander-host",
			Usage:   "Query expansion service host URL (defaults to embedding-host)",
			EnvVars: []string{"VITAE_EXPANDER_HOST"},
		},
		&cli.StringFlag{
			Name:    "expander-model",
			Usage:   "Chat model used to expand queries",
			Value:   defaults.ExpanderModel,
			EnvVars: []string{"VITAE_EXPANDER_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the AI services",
			EnvVars: []string{"VITAE_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "query-prefix",
			Usage:   "Instruction prefix for query embeddings",
			EnvVars: []string{"VITAE_QUERY_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "document-prefix",
			Usage:   "Instruction prefix for document embeddings",
			EnvVars: []string{"VITAE_DOCUMENT_PREFIX"},
		},
		&cli.Float64Flag{
			Name:    "requests-per-second",
			Usage:   "Limit embedding calls per second (0 is unlimited)",
			EnvVars: []string{"VITAE_REQUESTS_PER_SECOND"},
		},
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// openDatabase is replaced in tests.
var openDatabase = func(c *cli.Context, opts ...vitae.DatabaseOption) (*vitae.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	aiConfig, err := aiConfigFrom(c)
	if err != nil {
		return nil, err
	}

	base := []vitae.DatabaseOption{
		vitae.WithConfig(cfg),
		vitae.WithAIConfig(aiConfig),
		vitae.WithLogger(slog.Default()),
	}
	if url := c.String("postgres"); url != "" {
		base = append(base, vitae.WithPostgres(pgvector.Config{
			ConnectionString: url,
			VectorDimension:  c.Int("vector-dimension"),
			CreateSchema:     true,
		}))
	}

	db, err := vitae.NewDatabase(c.String("db"), append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func aiConfigFrom(c *cli.Context) (*ai.Config, error) {
	expanderHost := c.String("expander-host")
	if expanderHost == "" {
		expanderHost = c.String("embedding-host")
	}
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithExpanderHost(expanderHost),
		ai.WithExpanderModel(c.String("expander-model")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithPrefixes(c.String("query-prefix"), c.String("document-prefix")),
		ai.WithRequestsPerSecond(c.Float64("requests-per-second")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

// loadConfig reads the --config file, or the defaults, then applies VITAE_*
// overrides from the environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnv loads the --env-file. A missing default file is ignored.
func loadEnv(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		slog.Debug("loaded environment file", "path", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !c.IsSet("env-file") {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
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
