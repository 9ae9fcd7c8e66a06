// Command indexer backfills the vehicle vector index. It pages every vehicle
// out of Neo4j, embeds its index text, and upserts the points into Qdrant so
// that fuzzy search stays in sync with the catalog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/partshub/fitment/engine/catalog"
	"github.com/partshub/fitment/engine/domain"
	"github.com/partshub/fitment/engine/search"
	"github.com/partshub/fitment/pkg/config"
	"github.com/partshub/fitment/pkg/fn"
)

// Config holds all environment-based configuration.
type Config struct {
	Neo4jURL  string `env:"NEO4J_URL" envDefault:"neo4j://localhost:7687"`
	Neo4jUser string `env:"NEO4J_USER" envDefault:"neo4j"`
	Neo4jPass string `env:"NEO4J_PASS" envDefault:"fitment123"`

	QdrantURL        string `env:"QDRANT_URL" envDefault:"localhost:6334"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"vehicles"`

	EmbedURL   string `env:"EMBED_URL" envDefault:"http://localhost:11434"`
	EmbedModel string `env:"EMBED_MODEL" envDefault:"nomic-embed-text"`

	PageSize    int  `env:"PAGE_SIZE" envDefault:"50"`
	Workers     int  `env:"WORKERS" envDefault:"4"`
	SeedCatalog bool `env:"SEED_CATALOG" envDefault:"false"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j connect: %w", err)
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

	vectors, err := search.NewVectorStore(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		return err
	}
	defer vectors.Close()

	embedder := search.NewHTTPEmbedder(cfg.EmbedURL, cfg.EmbedModel)

	start := time.Now()
	indexed, failed, err := reindex(ctx, logger, store, embedder, vectors, cfg.PageSize, cfg.Workers)
	if err != nil {
		return err
	}

	logger.Info("backfill complete",
		"indexed", indexed,
		"failed", failed,
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	if failed > 0 {
		return fmt.Errorf("%d vehicles failed to index", failed)
	}
	return nil
}

// vehiclePager pages vehicles out of the catalog ordered by id.
type vehiclePager interface {
	AllVehicles(ctx context.Context, afterID string, limit int) ([]domain.Vehicle, error)
}

// pointSink receives the embedded points.
type pointSink interface {
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, points []search.VehiclePoint) error
}

// reindex walks the catalog in pages, embedding each page in parallel and
// upserting the successful points. Collection dimensions are taken from the
// first embedding returned.
func reindex(ctx context.Context, logger *slog.Logger, store vehiclePager, embedder search.Embedder, vectors pointSink, pageSize, workers int) (indexed, failed int, err error) {
	ensured := false
	afterID := ""

	for {
		page, err := store.AllVehicles(ctx, afterID, pageSize)
		if err != nil {
			return indexed, failed, fmt.Errorf("list vehicles after %q: %w", afterID, err)
		}
		if len(page) == 0 {
			return indexed, failed, nil
		}
		afterID = page[len(page)-1].ID

		results := fn.ParMapResult(page, workers, func(v domain.Vehicle) fn.Result[search.VehiclePoint] {
			return embedVehicle(ctx, embedder, v)
		})

		var points []search.VehiclePoint
		for i, r := range results {
			point, err := r.Unwrap()
			if err != nil {
				logger.Warn("embedding failed", "vehicle_id", page[i].ID, "error", err)
				failed++
				continue
			}
			points = append(points, point)
		}
		if len(points) == 0 {
			continue
		}

		if !ensured {
			if err := vectors.EnsureCollection(ctx, len(points[0].Embedding)); err != nil {
				return indexed, failed, err
			}
			ensured = true
		}

		if err := vectors.Upsert(ctx, points); err != nil {
			return indexed, failed, fmt.Errorf("upsert %d points: %w", len(points), err)
		}
		indexed += len(points)
		logger.Info("page indexed", "after_id", afterID, "page", len(points), "total", indexed)
	}
}

func embedVehicle(ctx context.Context, embedder search.Embedder, v domain.Vehicle) fn.Result[search.VehiclePoint] {
	return fn.Retry(ctx, fn.RetryOpts{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Jitter:      true,
	}, func(ctx context.Context) fn.Result[search.VehiclePoint] {
		embedding, err := embedder.Embed(ctx, search.IndexText(v))
		if err != nil {
			return fn.Err[search.VehiclePoint](err)
		}
		return fn.Ok(search.PointFor(v, embedding))
	})
}
