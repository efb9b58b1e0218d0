package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"plarchive/internal/config"
	"plarchive/internal/ledger"
	"plarchive/internal/logging"
	"plarchive/internal/services"
	"plarchive/internal/services/ytdlp"
)

type commandContext struct {
	configFlag *string
	urlFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, urlFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		urlFlag:    urlFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.urlFlag != nil {
			if url := strings.TrimSpace(*c.urlFlag); url != "" {
				cfg.Source.PlaylistURL = url
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// runEnv is what a mode body receives: the loaded config, an open ledger
// store and a logger. ctx carries the run id and mode.
type runEnv struct {
	cfg    *config.Config
	store  ledger.Store
	logger *slog.Logger
}

// ytdlpClient builds a yt-dlp client logging through the run logger.
func (e *runEnv) ytdlpClient() (*ytdlp.Client, error) {
	return ytdlp.New(e.cfg, ytdlp.WithLogger(e.logger))
}

// runMode wraps a mode body with a run id, the ledger lock for mutating
// modes and the ledger store lifecycle.
func (c *commandContext) runMode(cmd *cobra.Command, mode string, mutating bool, fn func(context.Context, *runEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	runID := uuid.NewString()
	ctx := services.WithMode(services.WithRunID(parent, runID), mode)
	runLogger := logging.WithContext(ctx, logger)

	if mutating {
		lock := ledger.NewLock(cfg.LockPath())
		if err := lock.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logging.WarnWithContext(runLogger, "failed to release ledger lock", "lock_release_failed",
					logging.Error(err),
					logging.String("lock", lock.Path()),
					logging.String(logging.FieldErrorHint, "remove the lock file if no plarchive process is running"),
				)
			}
		}()
	}

	store, err := ledger.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	started := time.Now()
	runLogger.Info("run started", logging.String("ledger", store.Path()))
	if err := fn(ctx, &runEnv{cfg: cfg, store: store, logger: logger}); err != nil {
		logging.ErrorWithContext(runLogger, "run failed", "run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
		return err
	}
	runLogger.Info("run finished", logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)))
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
