// Command statecraft runs the presidential crisis-management game server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/tmorland/statecraft/internal/advisors"
	"github.com/tmorland/statecraft/internal/api"
	"github.com/tmorland/statecraft/internal/archive"
	"github.com/tmorland/statecraft/internal/entropy"
	"github.com/tmorland/statecraft/internal/game"
	"github.com/tmorland/statecraft/internal/news"
	"github.com/tmorland/statecraft/internal/oracle"
)

type config struct {
	Port            int      `env:"PORT" envDefault:"8080"`
	AnthropicAPIKey string   `env:"ANTHROPIC_API_KEY"`
	OracleModel     string   `env:"ORACLE_MODEL"`
	OracleCallRate  int      `env:"ORACLE_CALLS_PER_MINUTE"`
	RandomOrgAPIKey string   `env:"RANDOM_ORG_API_KEY"`
	DBPath          string   `env:"STATECRAFT_DB" envDefault:"data/statecraft.db"`
	RosterPath      string   `env:"STATECRAFT_ROSTER"`
	CORSOrigins     []string `env:"CORS_ORIGINS"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "parse env:", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("STATECRAFT — presidential crisis management")

	roster, err := advisors.LoadRoster(cfg.RosterPath)
	if err != nil {
		slog.Error("load roster failed", "path", cfg.RosterPath, "error", err)
		os.Exit(1)
	}
	slog.Info("roster loaded", "mode", roster.Mode, "advisors", len(roster.Advisors))

	llm := oracle.NewClient(cfg.AnthropicAPIKey, oracle.Options{
		Model:          cfg.OracleModel,
		CallsPerMinute: cfg.OracleCallRate,
	})
	if !llm.Enabled() {
		slog.Warn("ANTHROPIC_API_KEY not set: event generation and advisor speech are disabled")
	}

	rng := entropy.NewClient(cfg.RandomOrgAPIKey)
	if rng.Enabled() {
		slog.Info("entropy source: random.org pool with crypto fallback")
	} else {
		slog.Info("entropy source: crypto/rand")
	}

	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := archive.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open archive failed", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("archive opened", "path", cfg.DBPath)

	reporter := news.NewReporter(llm)
	defer reporter.Close()

	orc := oracle.New(llm, rng)
	engine := game.New(game.Config{
		Roster:    roster,
		Events:    orc,
		Evaluator: orc,
		Advisers:  orc,
		Archive:   db,
		News:      reporter,
		RNG:       rng,
	})

	server := &api.Server{
		Engine:         engine,
		News:           reporter,
		AllowedOrigins: cfg.CORSOrigins,
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		slog.Info("HTTP API starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Archive an abandoned live session before exit.
	if sess, ok := engine.EndSession(); ok {
		slog.Info("archived live session on shutdown", "session", sess.SessionID)
	}
}
