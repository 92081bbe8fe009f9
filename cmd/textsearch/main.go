package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/editdistance"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/loadtest"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func corpusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "corpus",
			Aliases: []string{"f"},
			Usage:   "Corpus file(s); overrides the configured corpus source",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Index build workers (0 uses the configured value)",
		},
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "textsearch",
		Usage:  "TF-IDF search with exact and fuzzy term matching",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"TS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "Search the corpus and print ranked documents",
				ArgsUsage: "<query text>",
				Action:    queryCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Term matching mode (exact, fuzzy)",
						Value:   "exact",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Return every document when the query has no tokens",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum results to print (0 for all)",
						Value:   10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full result as JSON",
					},
				}, corpusFlags()...),
			},
			{
				Name:      "distance",
				Usage:     "Print the edit distance between two strings",
				ArgsUsage: "<a> <b>",
				Action:    distanceCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "ops",
						Usage: "Print the edit operations turning b into a",
					},
					&cli.BoolFlag{
						Name:  "matrix",
						Usage: "Print the dynamic-programming matrix",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Build the index and print its statistics",
				Action: statsCommand,
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "top",
						Usage: "Print the N terms with the highest document frequency",
						Value: 10,
					},
				}, corpusFlags()...),
			},
			{
				Name:   "loadtest",
				Usage:  "Drive search traffic at a running service",
				Action: loadtestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Base URL of the search service",
						Value: "http://localhost:8080",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of concurrent workers",
						Value: 10,
					},
					&cli.DurationFlag{
						Name:  "duration",
						Usage: "Test duration",
						Value: 30 * time.Second,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Query mode sent with every request",
						Value: "fuzzy",
					},
					&cli.StringSliceFlag{
						Name:  "query",
						Usage: "Query to send (repeatable; defaults to a built-in mix)",
					},
				},
			},
			{
				Name:   "analytics",
				Usage:  "Aggregate search events from Kafka and report them",
				Action: analyticsCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "report-interval",
						Usage: "How often to print aggregated stats",
						Value: 10 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "persist",
						Usage: "Write periodic snapshots to Postgres",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	slog.SetDefault(logger.New(os.Stderr, c.String("log-level"), "text"))
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if paths := c.StringSlice("corpus"); len(paths) > 0 {
		cfg.Corpus.Source = corpus.SourceFile
		cfg.Corpus.Paths = paths
	}
	if w := c.Int("workers"); w > 0 {
		cfg.Search.BuildWorkers = w
	}
	return cfg, nil
}

func buildEngine(c *cli.Context, cfg *config.Config) (*indexer.Engine, error) {
	var db corpus.Querier
	if cfg.Corpus.Source == corpus.SourcePostgres {
		pg, err := postgres.New(c.Context, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		defer pg.Close()
		db = pg.DB
	}
	return indexer.Load(c.Context, cfg, db, nil)
}

func queryCommand(c *cli.Context) error {
	mode, err := parser.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := buildEngine(c, cfg)
	if err != nil {
		return err
	}
	exec, err := engine.Executor(cfg.Search, cfg.Tracing.Enabled)
	if err != nil {
		return err
	}

	text := strings.Join(c.Args().Slice(), " ")
	plan := parser.Parse(text, mode == parser.ModeExact, c.Bool("all"))
	result, err := exec.Execute(c.Context, plan, c.Int("limit"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "%d hit(s) for %q (%s)\n", result.TotalHits, text, result.Mode)
	for i, hit := range result.Results {
		fmt.Fprintf(out, "%3d. [%d] %.4f  %s\n", i+1, hit.Doc, hit.Score, hit.Text)
	}
	return nil
}

func distanceCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("distance takes exactly two arguments, got %d", c.NArg())
	}
	a, b := c.Args().Get(0), c.Args().Get(1)
	needMatrix := c.Bool("ops") || c.Bool("matrix")
	res := editdistance.Compute(a, b, needMatrix)

	out := c.App.Writer
	fmt.Fprintf(out, "distance(%q, %q) = %d\n", a, b, res.Distance)
	if c.Bool("ops") {
		ops, err := res.Operations()
		if err != nil {
			return err
		}
		for _, op := range ops {
			fmt.Fprintf(out, "  %-12s pos=%d char=%q\n", op.Kind, op.Position, op.Char)
		}
		summary, err := res.Summary()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "summary: %s\n", summary)
	}
	if c.Bool("matrix") {
		for _, row := range res.Matrix() {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprintf("%3d", v)
			}
			fmt.Fprintln(out, strings.Join(cells, " "))
		}
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := buildEngine(c, cfg)
	if err != nil {
		return err
	}
	st := engine.Stats()
	out := c.App.Writer
	fmt.Fprintf(out, "documents: %d\nterms:     %d\nsize:      %d bytes\nbuild:     %s\n",
		st.Documents, st.Terms, st.SizeBytes, st.BuildDuration)

	entries := engine.Index().Snapshot()
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Postings) > len(entries[j].Postings)
	})
	top := c.Int("top")
	if top > len(entries) {
		top = len(entries)
	}
	if top > 0 {
		fmt.Fprintln(out, "top terms:")
	}
	for _, e := range entries[:max(top, 0)] {
		fmt.Fprintf(out, "  %-20s df=%d idf=%.4f\n", e.Term, len(e.Postings), e.IDF)
	}
	return nil
}

func loadtestCommand(c *cli.Context) error {
	cfg := loadtest.Config{
		BaseURL:     c.String("url"),
		Concurrency: c.Int("concurrency"),
		Duration:    c.Duration("duration"),
		Queries:     c.StringSlice("query"),
		Mode:        c.String("mode"),
	}
	fmt.Fprintf(c.App.Writer, "load test: %s, %d workers, %s\n\n", cfg.BaseURL, cfg.Concurrency, cfg.Duration)
	report, err := loadtest.Run(c.Context, cfg, nil)
	if err != nil {
		return err
	}
	report.Print(c.App.Writer)
	return nil
}

func analyticsCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	interval := c.Duration("report-interval")
	if interval <= 0 {
		return fmt.Errorf("report-interval must be positive, got %s", interval)
	}
	ctx := c.Context
	log := logger.WithComponent("analytics")

	aggregator := analytics.NewAggregator()
	if c.Bool("persist") {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		store := analytics.NewStore(pg, cfg.Analytics.SnapshotKeep)
		done := make(chan struct{})
		go func() {
			defer close(done)
			store.RunPeriodic(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		}()
		defer func() { <-done }()
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.SearchTopic, aggregator.HandleMessage)
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Start(ctx) }()
	log.Info("consuming search events", "topic", cfg.Kafka.SearchTopic, "brokers", cfg.Kafka.Brokers)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	enc := json.NewEncoder(c.App.Writer)
	for {
		select {
		case <-ticker.C:
			if err := enc.Encode(aggregator.Stats()); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			if err := <-errCh; err != nil {
				return err
			}
			return enc.Encode(aggregator.Stats())
		}
	}
}
