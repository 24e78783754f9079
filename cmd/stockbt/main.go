package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"stockbt/internal/api"
	"stockbt/internal/config"
	"stockbt/internal/engine"
	"stockbt/internal/report"
	"stockbt/internal/store"
	"stockbt/internal/strategy"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("main | %v", err)
	}

	switch cfg.Mode {
	case "backtest":
		if err := runBacktest(cfg); err != nil {
			log.Fatalf("main | %v", err)
		}
	case "serve":
		if err := serve(cfg); err != nil {
			log.Fatalf("main | %v", err)
		}
	default:
		log.Fatalf("main | unknown mode %q, want backtest or serve", cfg.Mode)
	}
}

func runBacktest(cfg config.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(store.Config{
		Backend:     cfg.Storage.Backend,
		DataDir:     cfg.Storage.DataDir,
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return err
	}

	strat, err := strategy.New(cfg.Strategy)
	if err != nil {
		return err
	}

	sess, err := engine.NewSession(ctx, cfg, st)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Report.Dir, 0o755); err != nil {
		return err
	}
	w, err := report.NewWriter(filepath.Join(cfg.Report.Dir, "report.txt"))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := sess.Run(strat, w); err != nil {
		return err
	}

	stats, points, err := sess.Report()
	if err != nil {
		return err
	}
	if err := w.WriteSummary(report.FormatSummary(stats, sess.Meta(strat))); err != nil {
		return err
	}

	if cfg.Report.EquityCSV {
		path := filepath.Join(cfg.Report.Dir, "equity.csv")
		if err := report.WriteEquityCSV(path, points, sess.BenchmarkCurve()); err != nil {
			return err
		}
	}
	if cfg.Report.EquityParquet {
		path := filepath.Join(cfg.Report.Dir, "equity.parquet")
		if err := report.WriteEquityParquet(path, points); err != nil {
			return err
		}
	}

	log.Printf("runBacktest | %s done, final equity %.2f, report in %s", strat.Name(), stats.FinalEquity, cfg.Report.Dir)
	if sess.AbortErr() != nil {
		log.Printf("runBacktest | run ended early: %v", sess.AbortErr())
	}
	return nil
}

func serve(cfg config.Settings) error {
	srv, err := api.NewServer(cfg)
	if err != nil {
		return err
	}
	log.Printf("serve | listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
	return srv.Run()
}
