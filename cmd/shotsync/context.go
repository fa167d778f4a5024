package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shotsync/internal/batch"
	"shotsync/internal/config"
	"shotsync/internal/history"
	"shotsync/internal/layout"
	"shotsync/internal/logging"
	"shotsync/internal/notifications"
	"shotsync/internal/reconcile"
	"shotsync/internal/tracker/kitsu"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, c.verbose())
	})
	return c.logger, c.loggerErr
}

// pipeline bundles the components one command invocation needs.
type pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	reconciler *reconcile.Reconciler
	layout     *layout.Builder
	notifier   notifications.Service
}

func (c *commandContext) newPipeline() (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateTracker(); err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := kitsu.New(cfg.Tracker.BaseURL, cfg.Tracker.Token, cfg.RequestTimeout(), kitsu.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &pipeline{
		cfg:    cfg,
		logger: logger,
		reconciler: reconcile.New(client, logger, reconcile.Options{
			StrictMatching: cfg.Tracker.StrictMatching,
			TaskTypes:      cfg.Tracker.TaskTypes,
		}),
		layout:   layout.NewBuilder(cfg, logger),
		notifier: notifications.NewService(cfg),
	}, nil
}

func (p *pipeline) runner(opts ...batch.Option) *batch.Runner {
	opts = append([]batch.Option{batch.WithLockPath(p.cfg.LockPath())}, opts...)
	return batch.NewRunner(p.reconciler, p.layout, p.logger, opts...)
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
