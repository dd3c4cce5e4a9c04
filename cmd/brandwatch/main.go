package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/haileyok/brandwatch"
	"github.com/haileyok/brandwatch/sqlite_store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "brandwatch",
		Usage: "keyword sentiment monitor for public posts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bearer-token",
				EnvVars: []string{"BRANDWATCH_BEARER_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "bearer-token-file",
				EnvVars: []string{"BRANDWATCH_BEARER_TOKEN_FILE"},
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				EnvVars: []string{"BRANDWATCH_WEBHOOK_URL"},
			},
			&cli.StringFlag{
				Name:    "query",
				EnvVars: []string{"BRANDWATCH_QUERY"},
				Value:   `Nestle India OR Maggi OR KitKat OR Nescafe OR "Nestle milk"`,
			},
			&cli.IntFlag{
				Name:    "max-results",
				EnvVars: []string{"BRANDWATCH_MAX_RESULTS"},
				Value:   10,
			},
			&cli.StringFlag{
				Name:    "db-path",
				EnvVars: []string{"BRANDWATCH_DB_PATH"},
				Value:   "social_monitor.db",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				EnvVars: []string{"BRANDWATCH_METRICS_ADDR"},
				Value:   ":8000",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"BRANDWATCH_LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "fetch, classify, store, and alert on one window of posts",
				Action: run,
			},
			{
				Name:   "watch",
				Usage:  "run the pipeline on a fixed interval with metrics",
				Action: watch,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "interval",
						EnvVars: []string{"BRANDWATCH_INTERVAL"},
						Value:   5 * time.Minute,
					},
				},
			},
			{
				Name:   "view",
				Usage:  "show recently stored posts",
				Action: view,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
					},
				},
			},
			{
				Name:   "summary",
				Usage:  "show stored post counts by sentiment label",
				Action: summary,
			},
		},
		ErrWriter: os.Stderr,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var run = func(cmd *cli.Context) error {
	b, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.RunOnce(cmd.Context)
}

var watch = func(cmd *cli.Context) error {
	b, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(cmd.Context)
	defer cancel()

	l := newLogger(cmd)

	go func() {
		exitSignals := make(chan os.Signal, 1)
		signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)

		sig := <-exitSignals

		l.Info("received os exit signal", "signal", sig)
		cancel()
	}()

	return b.Watch(ctx, cmd.Duration("interval"))
}

var view = func(cmd *cli.Context) error {
	store, err := sqlite_store.Open(cmd.String("db-path"))
	if err != nil {
		return err
	}
	defer store.Close()

	posts, err := store.ListRecent(cmd.Context, cmd.Int("limit"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FETCHED AT\tID\tLABEL\tSCORE\tTEXT")
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", p.FetchedAt, p.ID, p.SentimentLabel, p.SentimentScore, oneline(p.Text, 60))
	}

	return w.Flush()
}

var summary = func(cmd *cli.Context) error {
	store, err := sqlite_store.Open(cmd.String("db-path"))
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.SummaryByLabel(cmd.Context)
	if err != nil {
		return err
	}

	total := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tCOUNT")
	for _, lc := range counts {
		fmt.Fprintf(w, "%s\t%d\n", lc.Label, lc.Count)
		total += lc.Count
	}
	fmt.Fprintf(w, "total\t%d\n", total)

	return w.Flush()
}

func newPipeline(cmd *cli.Context) (*brandwatch.Brandwatch, error) {
	token, err := bearerToken(cmd)
	if err != nil {
		return nil, err
	}

	return brandwatch.New(cmd.Context, &brandwatch.Args{
		Logger:      newLogger(cmd),
		BearerToken: token,
		WebhookURL:  cmd.String("webhook-url"),
		Query:       cmd.String("query"),
		MaxResults:  cmd.Int("max-results"),
		DBPath:      cmd.String("db-path"),
		MetricsAddr: cmd.String("metrics-addr"),
	})
}

func bearerToken(cmd *cli.Context) (string, error) {
	if t := cmd.String("bearer-token"); t != "" {
		return t, nil
	}

	if f := cmd.String("bearer-token-file"); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("failed to read bearer token file: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	return "", errors.New("no bearer token provided, set BRANDWATCH_BEARER_TOKEN or --bearer-token-file")
}

func newLogger(cmd *cli.Context) *slog.Logger {
	var level slog.Level
	switch cmd.String("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func oneline(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return s
}
