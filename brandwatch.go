package brandwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/haileyok/brandwatch/models"
	"github.com/haileyok/brandwatch/sentiment"
	"github.com/haileyok/brandwatch/slack"
	"github.com/haileyok/brandwatch/sqlite_store"
	"github.com/haileyok/brandwatch/twitter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AlertThreshold is the score at or below which a post triggers an outbound
// alert.
const AlertThreshold = -0.7

const defaultMaxResults = 10

// Fetcher is the subset of the search client used by the pipeline.
type Fetcher interface {
	SearchRecent(ctx context.Context, query string, max int) ([]models.Post, error)
}

// Classifier is the subset of the sentiment classifier used by the pipeline.
type Classifier interface {
	Classify(text string) (float64, sentiment.Label)
}

// Store is the subset of store operations used by the pipeline.
type Store interface {
	InsertIfAbsent(ctx context.Context, post *models.Post) (bool, error)
	Close() error
}

// Notifier is the subset of the alert client used by the pipeline. A nil
// Notifier means alerting is disabled.
type Notifier interface {
	Notify(ctx context.Context, text string, score float64, postID string) error
}

type Brandwatch struct {
	logger *slog.Logger

	query       string
	maxResults  int
	metricsAddr string

	fetcher    Fetcher
	classifier Classifier
	store      Store
	notifier   Notifier
}

type Args struct {
	Logger      *slog.Logger
	BearerToken string
	WebhookURL  string
	Query       string
	MaxResults  int
	DBPath      string
	MetricsAddr string
}

var (
	runsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandwatch_runs",
		Help: "total pipeline passes started",
	})

	fetchFailuresCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandwatch_fetch_failures",
		Help: "total failed search calls",
	})

	postsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandwatch_posts",
		Help: "total fetched posts by outcome",
	}, []string{"outcome"})

	alertsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandwatch_alerts",
		Help: "total alert dispatches by status",
	}, []string{"status"})

	runHist = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brandwatch_run_time",
		Help:    "histogram of pipeline pass durations",
		Buckets: prometheus.ExponentialBucketsRange(0.01, 120, 15),
	})
)

func New(ctx context.Context, args *Args) (*Brandwatch, error) {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	if args.BearerToken == "" {
		return nil, errors.New("no bearer token provided")
	}

	if args.Query == "" {
		return nil, errors.New("no search query provided")
	}

	if args.MaxResults <= 0 {
		args.MaxResults = defaultMaxResults
	}

	store, err := sqlite_store.Open(args.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open post store: %w", err)
	}

	b := &Brandwatch{
		logger:      args.Logger,
		query:       args.Query,
		maxResults:  args.MaxResults,
		metricsAddr: args.MetricsAddr,
		fetcher:     twitter.NewClient(twitter.DefaultEndpoint, args.BearerToken),
		classifier:  sentiment.NewClassifier(),
		store:       store,
	}

	if args.WebhookURL != "" {
		b.notifier = slack.NewClient(args.WebhookURL)
	} else {
		args.Logger.Info("no webhook url configured, alerting disabled")
	}

	return b, nil
}

// RunOnce executes a single pass of the pipeline: one fetch, then classify,
// persist, and conditionally alert for each candidate in fetch order. A
// fetch failure or an empty window ends the pass cleanly with nothing
// processed.
func (b *Brandwatch) RunOnce(ctx context.Context) error {
	runsCounter.Inc()

	start := time.Now()
	defer func() {
		runHist.Observe(time.Since(start).Seconds())
	}()

	b.logger.Info("searching for posts", "query", b.query)

	posts, err := b.fetcher.SearchRecent(ctx, b.query, b.maxResults)
	if err != nil {
		fetchFailuresCounter.Inc()
		return fmt.Errorf("failed to search recent posts: %w", err)
	}

	if len(posts) == 0 {
		b.logger.Info("no posts found for query", "query", b.query)
		return nil
	}

	for _, post := range posts {
		b.processPost(ctx, post)
	}

	return nil
}

// processPost handles one candidate. Failures are logged and isolated so a
// bad post never blocks the rest of the window.
func (b *Brandwatch) processPost(ctx context.Context, post models.Post) {
	score, label := b.classifier.Classify(post.Text)
	post.SentimentScore = score
	post.SentimentLabel = string(label)

	inserted, err := b.store.InsertIfAbsent(ctx, &post)
	if err != nil {
		postsCounter.WithLabelValues("failed").Inc()
		b.logger.Error("failed to save post", "id", post.ID, "error", err)
		return
	}

	if inserted {
		postsCounter.WithLabelValues("inserted").Inc()
		b.logger.Info("saved post", "id", post.ID, "label", post.SentimentLabel, "score", post.SentimentScore)
	} else {
		postsCounter.WithLabelValues("duplicate").Inc()
		b.logger.Debug("post already stored", "id", post.ID)
	}

	if post.SentimentScore > AlertThreshold || b.notifier == nil {
		return
	}

	if err := b.notifier.Notify(ctx, post.Text, post.SentimentScore, post.ID); err != nil {
		alertsCounter.WithLabelValues("failed").Inc()
		b.logger.Error("failed to send alert", "id", post.ID, "error", err)
		return
	}

	alertsCounter.WithLabelValues("sent").Inc()
	b.logger.Info("sent alert", "id", post.ID, "score", post.SentimentScore)
}

// Watch re-invokes the pipeline on a fixed interval until ctx ends, serving
// prometheus metrics alongside. Each pass is independent: a failed pass is
// logged and the next one still runs.
func (b *Brandwatch) Watch(ctx context.Context, interval time.Duration) error {
	metricsServer := http.NewServeMux()
	metricsServer.Handle("/metrics", promhttp.Handler())

	go func() {
		b.logger.Info("starting metrics server", "addr", b.metricsAddr)
		if err := http.ListenAndServe(b.metricsAddr, metricsServer); err != nil {
			b.logger.Error("metrics server failed", "error", err)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := b.RunOnce(ctx); err != nil {
			b.logger.Error("run failed", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close releases the post store.
func (b *Brandwatch) Close() error {
	return b.store.Close()
}
