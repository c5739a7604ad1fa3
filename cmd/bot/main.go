package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"TradePilot/internal/broker"
	"TradePilot/internal/config"
	"TradePilot/internal/engine"
	"TradePilot/internal/ledger"
	"TradePilot/internal/news"
	"TradePilot/internal/notifier"
	"TradePilot/internal/report"
	"TradePilot/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] TradePilot starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init brokerage client
	client := broker.NewClient(broker.ClientConfig{
		BaseURL:            cfg.Broker.BaseURL,
		AppKey:             cfg.Broker.AppKey,
		AppSecret:          cfg.Broker.AppSecret,
		AccountNo:          cfg.Broker.AccountNo,
		AccountProductCode: cfg.Broker.AccountProductCode,
		QuoteExchange:      cfg.Broker.QuoteExchange,
		OrderExchange:      cfg.Broker.OrderExchange,
		Proxy:              cfg.Proxy,
	}, cfg.Broker.TokenFile)

	// Init news pipeline
	fetcher := news.NewYahooFetcher(cfg.Proxy)
	log.Printf("[INFO] news source: %s", fetcher.Name())
	var scorer news.Scorer
	if cfg.News.SentimentURL != "" {
		scorer = news.NewRemoteScorer(cfg.News.SentimentURL)
	} else {
		log.Println("[WARN] no sentiment service configured, sentiment factor is neutral")
		scorer = &news.StaticScorer{}
	}

	// Init Discord notifier
	dn := notifier.NewDiscordNotifier(cfg.Discord.WebhookURL, cfg.Proxy)

	// Init ledger
	var led ledger.Ledger = ledger.NewNoopLedger()
	var sqlLedger *ledger.SQLiteLedger
	switch {
	case cfg.Ledger.SQLitePath != "":
		sl, err := ledger.NewSQLiteLedger(cfg.Ledger.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite ledger failed, using noop: %v", err)
		} else {
			led = sl
			sqlLedger = sl
			defer sl.Close()
		}
	case cfg.Ledger.CSVDir != "":
		cash, err := client.OrderableCashUSD(ctx)
		if err != nil {
			log.Printf("[WARN] starting cash lookup failed, seeding CSV ledger at 0: %v", err)
		}
		cl, err := ledger.NewCSVLedger(cfg.Ledger.CSVDir, cash)
		if err != nil {
			log.Printf("[WARN] init csv ledger failed, using noop: %v", err)
		} else {
			led = cl
			defer cl.Close()
		}
	}

	// Daily report runs off the sqlite ledger only
	if sqlLedger != nil {
		sched := report.NewScheduler(ctx, sqlLedger, dn)
		if err := sched.Register(cfg.Report.DailyCron); err != nil {
			log.Fatalf("[FATAL] register report task: %v", err)
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("REPORT_ON_START") == "true" {
			log.Println("[INFO] REPORT_ON_START enabled, executing daily report now")
			go sched.RunDailyNow()
		}
	}

	opts := engine.Options{
		Symbols:    cfg.Trading.Symbols,
		BuyUnitUSD: cfg.Trading.BuyUnitUSD,
		Params: strategy.Params{
			MomentumWindow:   cfg.Trading.MomentumWindow,
			OscillatorPeriod: cfg.Trading.OscillatorPeriod,
			Weights:          cfg.ScoreWeights(),
		},
		CycleInterval:    cfg.CycleInterval(),
		SymbolSpacing:    cfg.SymbolSpacing(),
		IdleNotifyEvery:  cfg.IdleNotifyEvery(),
		EnforceCashCheck: cfg.EnforceCashCheck(),
		Simulate:         cfg.Trading.Simulation,
	}
	if cfg.Trading.Simulation {
		log.Println("[INFO] simulation mode: orders will not reach the brokerage")
	}

	sup := &engine.Supervisor{
		Backoff:  cfg.RestartBackoff(),
		Notifier: dn,
		Build: func() *engine.Orchestrator {
			exec := &engine.Executor{
				Broker:   client,
				Ledger:   led,
				Notifier: dn,
				Simulate: cfg.Trading.Simulation,
			}
			return engine.New(opts, client, fetcher, scorer, exec, led, dn)
		},
	}

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	if err := dn.Send("TradePilot started"); err != nil {
		log.Printf("[WARN] startup notification: %v", err)
	}
	log.Println("[INFO] TradePilot is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	<-done
	log.Println("[INFO] TradePilot stopped")
}
