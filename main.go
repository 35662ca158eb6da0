package main

import (
	"fmt"
	"net/rpc"
	"time"

	"github.com/wfunc/quotebot/bot"
	"github.com/wfunc/quotebot/config"
	"github.com/wfunc/quotebot/engine"
	"github.com/wfunc/quotebot/logger"
	"github.com/wfunc/quotebot/monitor"
	"github.com/wfunc/quotebot/persistence"
	"github.com/wfunc/quotebot/quote"
	quotebot_rpc "github.com/wfunc/quotebot/rpc"
	"github.com/wfunc/quotebot/scheduler"
	"github.com/wfunc/quotebot/transport"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Load the quote corpus; an empty corpus is fatal at startup
	source, err := quote.LoadCSV(cfg.Game.CorpusPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load quote corpus: %v", err)
	}
	if source.Len() == 0 {
		logger.Log.Fatalf("Quote corpus %s has no records", cfg.Game.CorpusPath)
	}
	logger.Log.Infof("Loaded %d quotes from %s", source.Len(), cfg.Game.CorpusPath)

	// Open persistence
	rounds, scores, err := openStores(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to open storage: %v", err)
	}
	defer rounds.Close()

	eng := engine.NewEngine(source, rounds, scores)

	// Metrics endpoint; the open-round gauge starts from what the
	// store still has unanswered, not from zero
	mon := monitor.NewMonitor("quotebot")
	if open, err := rounds.CountOpen(); err != nil {
		logger.Log.Errorf("Failed to count open rounds: %v", err)
	} else {
		mon.SetOpenRounds(open)
	}
	if cfg.Monitor.Address != "" {
		mon.StartServer(cfg.Monitor.Address)
	}

	// Admin RPC
	if cfg.RPC.Address != "" {
		rpcServer, err := quotebot_rpc.NewServer(cfg.RPC.Address)
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		rpc.Register(quotebot_rpc.NewAdminService(eng, rounds))
		go rpcServer.Start()
		defer rpcServer.Stop()
	}

	// Connect to the chat gateway
	client, err := transport.Dial(cfg.Gateway.URL, cfg.Gateway.Token)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to gateway %s: %v", cfg.Gateway.URL, err)
	}
	defer client.Close()
	logger.Log.Infof("Connected to gateway %s", cfg.Gateway.URL)

	b := bot.NewBot(client, eng, cfg.Game.ChannelID, mon)

	// Post a quote immediately, then every N hours
	sched := scheduler.NewManager()
	defer sched.Stop()
	interval := time.Duration(cfg.Game.IntervalHours) * time.Hour
	sched.Schedule(0, interval, func() {
		logger.Log.Info("Sending new quote on timer")
		if err := b.PostQuote(); err != nil {
			logger.Log.Errorf("Failed to post quote: %v", err)
		}
	})

	// Blocks until the gateway connection dies
	b.Run()
	logger.Log.Fatal("Gateway connection lost")
}

// openStores selects the persistence backend. The JSON backend serves
// rounds and scores from one store; the SQL backends do the same via
// a single connection.
func openStores(cfg *config.Config) (persistence.RoundStore, persistence.ScoreStore, error) {
	switch cfg.Storage.Backend {
	case "", "json":
		store, err := persistence.NewJSONFileStore(cfg.Storage.RoundsPath, cfg.Storage.ScoresPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case "postgres":
		pg := cfg.Storage.Postgres
		store, err := persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case "gorm":
		pg := cfg.Storage.Postgres
		store, err := persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
