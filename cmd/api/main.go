// Package main implements the fitment API server: applicability-group CRUD,
// criteria validation and classification, compatible-vehicle resolution, and
// semantic vehicle search.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/partshub/fitment/engine/catalog"
	"github.com/partshub/fitment/engine/fitment"
	"github.com/partshub/fitment/engine/groups"
	"github.com/partshub/fitment/engine/search"
	"github.com/partshub/fitment/pkg/config"
	"github.com/partshub/fitment/pkg/metrics"
	"github.com/partshub/fitment/pkg/mid"
	"github.com/partshub/fitment/pkg/natsutil"
	"github.com/partshub/fitment/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	Neo4jURL   string `env:"NEO4J_URL" envDefault:"neo4j://localhost:7687"`
	Neo4jUser  string `env:"NEO4J_USER" envDefault:"neo4j"`
	Neo4jPass  string `env:"NEO4J_PASS" envDefault:"password"`
	NATSURL    string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	QdrantURL  string `env:"QDRANT_URL" envDefault:"localhost:6334"`
	Collection string `env:"QDRANT_COLLECTION" envDefault:"vehicles"`
	EmbedURL   string `env:"EMBED_URL" envDefault:"http://localhost:11434"`
	EmbedModel string `env:"EMBED_MODEL" envDefault:"nomic-embed-text"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`
	// WriteRate caps mutating requests per second across all clients.
	WriteRate  float64 `env:"WRITE_RATE" envDefault:"20"`
	WriteBurst int     `env:"WRITE_BURST" envDefault:"40"`
	// SearchEnabled turns semantic vehicle search off when no embedding
	// endpoint is deployed.
	SearchEnabled bool `env:"SEARCH_ENABLED" envDefault:"true"`
	SeedCatalog   bool `env:"SEED_CATALOG" envDefault:"false"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		logger.Error("bad configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Neo4j ---
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	store := catalog.New(driver, logger)
	if cfg.SeedCatalog {
		n, err := store.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		logger.Info("catalog seeded", "vehicles", n)
	}

	// --- NATS ---
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("fitment-api"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	reg := metrics.New()
	publisher := &natsPublisher{
		nc:        nc,
		published: reg.Counter("events_published_total", "Domain events published to NATS"),
		failed:    reg.Counter("events_publish_failures_total", "Domain events that failed to publish"),
	}

	// --- Semantic search (optional) ---
	var searcher groups.Searcher
	if cfg.SearchEnabled {
		vectors, err := search.NewVectorStore(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer vectors.Close()
		embedder := search.NewHTTPEmbedder(cfg.EmbedURL, cfg.EmbedModel)
		searcher = search.NewService(embedder, vectors, store.Vehicles(), logger)
	}

	svc := groups.NewService(store, store.Vehicles(), searcher, publisher, fitment.New(fitment.DefaultOptions()), logger)

	writeLimiter := resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.WriteRate, Burst: cfg.WriteBurst})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: mid.Chain(newServer(svc, searcher, store, reg, logger).routes(),
			mid.Recover(logger),
			mid.Logger(logger),
			mid.CORS(cfg.CORSOrigin),
			mid.Throttle(writeLimiter),
			mid.OTel("fitment-api"),
		),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// natsPublisher bridges the groups event port to NATS. Subjects follow the
// event type, e.g. fitment.group.created.
type natsPublisher struct {
	nc        *nats.Conn
	published *metrics.Counter
	failed    *metrics.Counter
}

func (p *natsPublisher) Publish(ctx context.Context, e groups.Event) error {
	if err := natsutil.Publish(ctx, p.nc, "fitment."+e.Type, e); err != nil {
		p.failed.Inc()
		return err
	}
	p.published.Inc()
	return nil
}
