package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hvu/crmdesk/internal/api"
	"github.com/hvu/crmdesk/internal/app"
	"github.com/hvu/crmdesk/internal/feed"
	"github.com/hvu/crmdesk/internal/model"
	"github.com/hvu/crmdesk/internal/session"
	"github.com/hvu/crmdesk/internal/store"
	appsync "github.com/hvu/crmdesk/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "crmdesk:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}
	if cfg.API.BaseURL == "" {
		return fmt.Errorf(
			"no api.base_url configured; set it in %s",
			model.DefaultConfigPath(),
		)
	}

	dataDir := model.DefaultDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	cache, err := store.NewFeedCache(filepath.Join(dataDir, "feed.db"))
	if err != nil {
		return err
	}
	defer cache.Close()

	sess := session.NewStore(session.NewKeyringStorage())

	client := api.NewClient(cfg.API.BaseURL, sess)
	f := feed.New(client, cache, cfg.API.PageSize)
	poller := appsync.New(f, time.Duration(cfg.Feed.PollIntervalSec)*time.Second)

	root := app.New(sess, client, f, poller, cfg.API.BaseURL)

	program := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}

	return nil
}
