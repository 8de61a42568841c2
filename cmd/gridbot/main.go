package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"gridbot/internal/broker"
	"gridbot/internal/config"
	"gridbot/internal/database"
	"gridbot/internal/grid"
	"gridbot/internal/notify"
	"gridbot/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	repo, err := database.NewRepository(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("cannot open lot store: %v", err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("cannot migrate lot store: %v", err)
	}
	logger.Info("lot store ready", "driver", cfg.Database.Driver)

	brk := broker.NewClient(logger, cfg.Trading, cfg.Broker)
	notifier := notify.NewNotifier(logger, cfg.Notifier)

	reconciler := grid.NewReconciler(logger, brk, notifier)
	engine := grid.NewEngine(logger, brk, notifier, cfg.Trading)
	orchestrator := grid.NewOrchestrator(logger, repo, brk, reconciler, engine, &cfg)

	logger.Info("bot started",
		"broker", brk.GetName(),
		"paper_mode", cfg.Trading.PaperMode,
		"trading_enabled", cfg.Trading.Enabled,
		"symbols", len(cfg.Symbols),
	)

	srv := server.NewServer(logger, orchestrator, cfg.Trading.RunToken, cfg.Server.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
