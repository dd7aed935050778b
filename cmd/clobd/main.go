package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cairnex/clob/params"
	"github.com/cairnex/clob/pkg/api"
	"github.com/cairnex/clob/pkg/engine"
	"github.com/cairnex/clob/pkg/feed"
	"github.com/cairnex/clob/pkg/journal"
	"github.com/cairnex/clob/pkg/settlement"
	"github.com/cairnex/clob/pkg/util"
)

func main() {
	// Priority: ENV > .env in the working directory > defaults.
	cfg := params.LoadFromEnv("")

	logger, err := newLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Settlement: on-chain ERC-20 transfers ----
	if cfg.Chain.RPCURL == "" || cfg.Chain.PrivateKey == "" {
		sugar.Fatal("RPC_URL and PRIVATE_KEY must be set")
	}
	settle, err := settlement.DialEth(ctx, cfg.Chain.RPCURL, cfg.Chain.PrivateKey, cfg.Chain.GasLimit, sugar)
	if err != nil {
		sugar.Fatalw("settlement_init_failed", "err", err)
	}
	defer settle.Close()
	sugar.Infow("settlement_ready", "signer", settle.Signer().Hex(), "rpc", cfg.Chain.RPCURL)

	// ---- Matching engine ----
	eng := engine.New(settle, sugar, engine.WithSettlementTimeout(cfg.Chain.SettleTimeout))

	// ---- Trade journal (optional) ----
	var jrnl journal.Journal = journal.Nop{}
	if cfg.Journal.Dir != "" {
		pj, err := journal.OpenPebble(cfg.Journal.Dir)
		if err != nil {
			sugar.Fatalw("journal_init_failed", "err", err)
		}
		defer pj.Close()
		jrnl = pj
		sugar.Infow("journal_ready", "dir", cfg.Journal.Dir)
	}

	// ---- Kafka trade feed (optional) ----
	var pub *feed.Publisher
	if len(cfg.Feed.Brokers) > 0 {
		pub = feed.NewPublisher(cfg.Feed.Brokers, cfg.Feed.Topic, sugar)
		defer pub.Close()
		sugar.Infow("feed_ready", "brokers", cfg.Feed.Brokers, "topic", cfg.Feed.Topic)
	}

	// ---- API Server ----
	server := api.NewServer(eng, jrnl, sugar)

	// Every settlement attempt hits the journal; only settled trades go to
	// the WebSocket clients and the Kafka feed.
	eng.OnTrade = func(t engine.Trade) {
		if err := jrnl.Append(journal.FromTrade(t)); err != nil {
			sugar.Warnw("journal_append_failed", "err", err)
		}
		if t.Err != nil {
			return
		}
		server.BroadcastTrade(t)
		if pub != nil {
			pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = pub.PublishTrade(pctx, t)
			cancel()
		}
	}

	go func() {
		if err := server.Start(cfg.HTTP.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()
	sugar.Infow("clob_started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	sugar.Info("shutting down")
}

func newLogger(logFile string) (*zap.Logger, error) {
	if logFile != "" {
		return util.NewLoggerWithFile(logFile)
	}
	return util.NewLogger()
}
