package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"ojcli/internal/cli/config"
	"ojcli/internal/cli/problems"
	"ojcli/internal/cli/repl"
	"ojcli/internal/cli/state"
	"ojcli/internal/execution"
	"ojcli/internal/orchestrator"
	"ojcli/internal/realtime"
	"ojcli/internal/solutioncache"
	"ojcli/pkg/utils/logger"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override execution service base URL")
	wsURL := flag.String("ws", "", "Override push channel URL")
	userID := flag.String("user", "", "Override push channel identity")
	problemsPath := flag.String("problems", "", "Override problems file path")
	statePath := flag.String("state", "", "Override session state path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
			return
		}
		cfg = config.Default()
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *wsURL != "" {
		cfg.WSURL = *wsURL
	}
	if *userID != "" {
		cfg.UserID = *userID
	}
	if *problemsPath != "" {
		cfg.ProblemsPath = *problemsPath
	}
	if *statePath != "" {
		cfg.HistoryPath = *statePath
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer logger.Sync()

	catalog, err := problems.Load(cfg.ProblemsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load problems failed: %v\n", err)
		return
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init solution store failed: %v\n", err)
		return
	}
	defer closeStore()
	cache := solutioncache.New(store)

	ctx := context.Background()
	if removed := cache.Sweep(ctx); removed > 0 {
		fmt.Printf("swept %d stale solution cache entries\n", removed)
	}

	exec := execution.New(cfg.BaseURL, cfg.Timeout)
	channel := realtime.New(cfg.WSURL)
	defer channel.Close()

	orch := orchestrator.New(exec, channel, cache, orchestrator.Config{
		UserID: cfg.UserID,
		Poll:   cfg.Poll,
	})
	orch.Start(ctx)
	defer orch.Stop()

	st, err := state.Load(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load session state failed: %v\n", err)
		return
	}

	session := repl.New(orch, exec, cache, catalog, st, cfg.HistoryPath, cfg.AutosaveInterval)
	if err := session.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "session failed: %v\n", err)
	}
}

func buildStore(cfg config.Config) (solutioncache.KeyValueStore, func(), error) {
	if cfg.Redis != nil {
		store, err := solutioncache.NewRedisStore(*cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return solutioncache.NewFileStore(cfg.CachePath), func() {}, nil
}
