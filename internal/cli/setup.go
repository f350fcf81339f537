package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"futsim/config"
	"futsim/journal"
	"futsim/market/data"
	"futsim/persist"
	"futsim/sim"
	"futsim/strategies"
)

// buildSession assembles a session from a loaded config: candle series,
// strategy providers, journal, and optional snapshot store. The returned
// cleanup closes whatever was opened, in reverse order.
func buildSession(ctx context.Context, cfg *config.Config, rc *RootConfig) (*sim.Session, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	candles, err := data.LoadCSV(cfg.Data.CandlesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load candles: %w", err)
	}

	var providers []strategies.Provider
	for _, name := range cfg.Data.Strategies {
		p, err := strategies.ByName(name)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, p)
	}

	jnl, err := buildJournal(ctx, cfg, rc, &cleanup)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	session, err := sim.New(cfg.Sim, candles, providers, jnl)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	if err := attachStore(cfg, session, &cleanup); err != nil {
		closeAll()
		return nil, nil, err
	}

	return session, closeAll, nil
}

func buildJournal(ctx context.Context, cfg *config.Config, rc *RootConfig, cleanup *[]func()) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
		if err != nil {
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		*cleanup = append(*cleanup, func() { j.Close() })
		return j, nil

	case "sqlite":
		path := cfg.Journal.DBPath
		if path == "" {
			path = rc.DBPath
		}
		j, err := journal.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		*cleanup = append(*cleanup, func() { j.Close() })
		return j, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Journal.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		*cleanup = append(*cleanup, pool.Close)
		j, err := journal.NewPostgres(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("init postgres journal: %w", err)
		}
		return j, nil

	case "none", "":
		return journal.Nop{}, nil

	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Journal.Type)
	}
}

func attachStore(cfg *config.Config, session *sim.Session, cleanup *[]func()) error {
	key := cfg.Snapshot.Key
	if key == "" {
		key = "default"
	}

	switch cfg.Snapshot.Type {
	case "file":
		st, err := persist.NewFileStore(cfg.Snapshot.Path)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		session.SetStore(st, key)

	case "redis":
		opt, err := redis.ParseURL(cfg.Snapshot.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid snapshot redis_url: %w", err)
		}
		rdb := redis.NewClient(opt)
		*cleanup = append(*cleanup, func() { rdb.Close() })
		session.SetStore(persist.NewRedisStore(rdb, "futsim:snapshot"), key)

	case "none", "":

	default:
		return fmt.Errorf("unknown snapshot type %q", cfg.Snapshot.Type)
	}
	return nil
}

// loadConfig reads the configured file or falls back to defaults.
func loadConfig(rc *RootConfig) (*config.Config, error) {
	if rc.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(rc.ConfigPath)
}
