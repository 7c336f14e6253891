package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/olympiad/internal/config"
	"github.com/udisondev/olympiad/internal/db"
	"github.com/udisondev/olympiad/internal/metrics"
	"github.com/udisondev/olympiad/internal/olympiad"
)

const ConfigPath = "config/olympiad.yaml"

// shutdownTimeout — потолок на graceful shutdown (включая drain драйвера).
const shutdownTimeout = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("OLYMPIAD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadService(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("olympiad service starting", "log_level", cfg.LogLevel)

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	m := metrics.New()
	oly := olympiad.NewOlympiad()
	repo := db.NewNobleRepository(database.Pool())

	// Драйвер матчей — внешний коллаборатор: арена подключается через
	// olympiad.MatchDriver. Standalone-запуск работает с простаивающим
	// драйвером, расписание и rollover при этом живут полноценно.
	ctrl := olympiad.NewController(
		rulesFromConfig(cfg.Olympiad),
		oly,
		repo,
		idleDriver{},
		logAnnouncer{},
		logHeroPublisher{},
		m,
	)

	if err := ctrl.Load(ctx); err != nil {
		return fmt.Errorf("loading olympiad: %w", err)
	}
	ctrl.Start()

	g, ctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	g.Go(func() error {
		slog.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		ctrl.Stop(shutdownCtx)
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	})

	return g.Wait()
}

func rulesFromConfig(cfg config.OlympiadConfig) olympiad.Rules {
	rules := olympiad.DefaultRules()
	if cfg.LegacyRuleset {
		rules = olympiad.LegacyRules()
	}
	rules.StartHour = cfg.CompStartHour
	rules.StartMinute = cfg.CompStartMinute
	if cfg.CompPeriod > 0 {
		rules.CompPeriod = cfg.CompPeriod.Std()
	}
	if cfg.WeeklyPeriod > 0 {
		rules.WeeklyPeriod = cfg.WeeklyPeriod.Std()
	}
	if cfg.WeeklyPoints > 0 {
		rules.WeeklyGrant = cfg.WeeklyPoints
	}
	if cfg.ValidationPeriod > 0 {
		rules.ValidationPeriod = cfg.ValidationPeriod.Std()
	}
	if cfg.DrainPollInterval > 0 {
		rules.DrainPollInterval = cfg.DrainPollInterval.Std()
	}
	if cfg.DrainTimeout > 0 {
		rules.DrainTimeout = cfg.DrainTimeout.Std()
	}
	if cfg.MatchmakingInterval > 0 {
		rules.MatchmakingInterval = cfg.MatchmakingInterval.Std()
	}
	rules.AnnounceGames = cfg.AnnounceGames
	return rules
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logAnnouncer пишет объявления в лог. Игровой broadcast подключается
// вместо него через olympiad.Announcer.
type logAnnouncer struct{}

func (logAnnouncer) Broadcast(message string) {
	slog.Info("announce", "message", message)
}

// logHeroPublisher логирует новый набор героев. Выдача наград/скиллов —
// забота игрового коллаборатора.
type logHeroPublisher struct{}

func (logHeroPublisher) PublishHeroes(heroes []*olympiad.Hero) error {
	for _, h := range heroes {
		slog.Info("new hero", "char_id", h.CharID, "class_id", h.ClassID,
			"name", h.Name, "points", h.Points, "count", h.Count)
	}
	return nil
}

// idleDriver — драйвер без боёв: всегда quiescent.
type idleDriver struct{}

func (idleDriver) Start(func(olympiad.MatchResult)) {}
func (idleDriver) Stop()                            {}
func (idleDriver) IsQuiescent() bool                { return true }
