// Package main implements the realtime notifier: it consumes domain events
// from NATS, debounces bursts per entity, and pushes the surviving
// notifications to dashboard clients over websockets.
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

	"github.com/partshub/fitment/engine/groups"
	"github.com/partshub/fitment/engine/notify"
	"github.com/partshub/fitment/pkg/config"
	"github.com/partshub/fitment/pkg/metrics"
	"github.com/partshub/fitment/pkg/mid"
	"github.com/partshub/fitment/pkg/natsutil"
)

// Config holds all environment-based configuration.
type Config struct {
	Port    string `env:"PORT" envDefault:"8081"`
	NATSURL string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	Subject string `env:"EVENT_SUBJECT" envDefault:"fitment.>"`

	DebounceDelay time.Duration `env:"DEBOUNCE_DELAY" envDefault:"3s"`
	RecentWindow  time.Duration `env:"RECENT_WINDOW" envDefault:"8s"`
}

// notification is the JSON frame pushed to websocket clients.
type notification struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id,omitempty"`
	Name    string `json:"name,omitempty"`
	SentAt  string `json:"sent_at"`
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
		logger.Error("notifier exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("fitment-notifier"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	reg := metrics.New()
	hub := NewHub(logger, reg.Gauge("ws_clients_connected", "Connected websocket clients"))
	defer hub.Close()

	deb := notify.New(
		notify.Options{Delay: cfg.DebounceDelay, RecentWindow: cfg.RecentWindow},
		notify.NewTimerScheduler(),
		notify.WithLogger(logger),
		notify.WithCounters(
			reg.Counter("notifications_emitted_total", "Notifications delivered after debouncing"),
			reg.Counter("notifications_suppressed_total", "Notifications dropped inside the recent window"),
		),
	)

	sub, err := natsutil.Subscribe(nc, cfg.Subject, func(_ context.Context, e groups.Event) {
		deb.Notify(e.Type, e.GroupID, e, func() {
			hub.Broadcast(notification{
				Type:    e.Type,
				GroupID: e.GroupID,
				Name:    e.Name,
				SentAt:  time.Now().UTC().Format(time.RFC3339),
			})
		})
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}
	defer sub.Unsubscribe()

	mux := http.NewServeMux()
	mux.Handle("GET /ws", hub)
	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","clients":%d,"pending":%d}`, hub.Len(), deb.Active())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mid.Chain(mux, mid.Recover(logger), mid.Logger(logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("notifier starting", "port", cfg.Port, "subject", cfg.Subject)
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
