package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/cardseek"
	"github.com/poiesic/cardseek/artwork"
	"github.com/poiesic/cardseek/config"
	"github.com/poiesic/cardseek/core"
	"github.com/poiesic/cardseek/ingestion"
	"github.com/poiesic/cardseek/web"
	"github.com/urfave/cli/v2"
)

// resultSearcher is the part of search.Searcher the commands use.
type resultSearcher interface {
	Search(ctx context.Context, q core.Query) (*core.Result, error)
}

func buildCommand(c *cli.Context) error {
	ctx := c.Context
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	buildOpts := []ingestion.Option{
		ingestion.WithGranularity(cfg.Granularity()),
		ingestion.WithBatchSize(cfg.Build.BatchSize),
		ingestion.WithRetry(cfg.Build.MaxRetries, cfg.RetryDelayDuration()),
		ingestion.WithNormalize(cfg.Build.Normalize),
	}
	if cfg.Build.ReportInterval > 0 {
		buildOpts = append(buildOpts, ingestion.WithProgress(c.App.Writer, cfg.Build.ReportInterval))
	}
	if cfg.Build.PoolSize > 0 {
		buildOpts = append(buildOpts, ingestion.WithPoolSize(cfg.Build.PoolSize))
	}

	snap, err := cardseek.Build(ctx, cfg.Store.Dir, cfg.Build.Source, buildOpts,
		cardseek.WithAIConfig(cfg.AIConfig(os.Getenv(tokenEnv))))
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Stored %d cards (%d %s units, dimension %d) in %s\n",
		snap.Manifest.CardCount, snap.Manifest.UnitCount, snap.Manifest.Granularity,
		snap.Manifest.Dimension, cfg.Store.Dir)
	return nil
}

func openEngine(c *cli.Context, cfg *config.Config) (*cardseek.Engine, error) {
	engine, err := cardseek.Open(c.Context, cfg.Store.Dir,
		cardseek.WithAIConfig(cfg.AIConfig(os.Getenv(tokenEnv))))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", cfg.Store.Dir, err)
	}
	return engine, nil
}

func searchCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	mode, err := core.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}
	q := cfg.Query(strings.Join(c.Args().Slice(), " "))
	q.Mode = mode
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("a query is required")
	}

	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}

	result, err := searcher.Search(c.Context, q)
	if err != nil {
		return err
	}
	printResult(c.App.Writer, q.Text, result)
	return nil
}

func shellCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}

	return runShell(c.Context, c.App.Reader, c.App.Writer, searcher, cfg.Query(""))
}

// runShell asks for a search kind and a query until the user quits or the
// input ends. Search failures are reported and the loop continues.
func runShell(ctx context.Context, in io.Reader, out io.Writer, searcher resultSearcher, base core.Query) error {
	scanner := bufio.NewScanner(in)
	read := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		choice, ok := read("\nSearch by card name (n) or description (t)? ('quit' to exit): ")
		if !ok {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		var mode core.Mode
		switch strings.ToLower(choice) {
		case "quit", "q", "exit":
			return nil
		case "n", "name":
			mode = core.ModeByName
		case "t", "text":
			mode = core.ModeByDescription
		default:
			fmt.Fprintln(out, "Invalid option. Please choose 'n' or 't'.")
			continue
		}

		prompt := "Enter the description: "
		if mode == core.ModeByName {
			prompt = "Enter the card name: "
		}
		text, ok := read(prompt)
		if !ok {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if text == "" {
			fmt.Fprintln(out, "Please enter a card name or a description.")
			continue
		}

		q := base
		q.Text = text
		q.Mode = mode
		result, err := searcher.Search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Search failed: %v\n", err)
			continue
		}
		printResult(out, text, result)
	}
}

// printResult writes one line per hit. Rules text is flattened onto the line.
func printResult(out io.Writer, query string, result *core.Result) {
	if result.Notice != "" {
		fmt.Fprintln(out, result.Notice)
	}
	if result.Matched != nil {
		fmt.Fprintf(out, "Searching for cards similar to '%s'...\n", result.Matched.Name)
	}

	fmt.Fprintf(out, "\nResults for query: '%s'\n", query)
	if len(result.Hits) == 0 {
		fmt.Fprintln(out, "No cards found.")
		return
	}
	for _, h := range result.Hits {
		text := strings.ReplaceAll(h.Card.Text, "\n", " ")
		fmt.Fprintf(out, "- Score: %.2f | %s: '%s'\n", h.Score, h.Card.Name, text)
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}

	opts := []web.Option{web.WithDefaults(cfg.Query(""))}
	if cfg.Web.Artwork {
		opts = append(opts, web.WithImages(artwork.NewClient(artwork.WithBaseURL(cfg.Web.ScryfallURL))))
	}
	server := web.NewServer(searcher, opts...)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = server.Shutdown()
	}()

	return server.Listen(cfg.Web.Listen)
}

func initConfigCommand(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote default configuration to %s\n", path)
	return nil
}
