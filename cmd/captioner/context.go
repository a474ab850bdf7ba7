package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"captioner/internal/config"
	"captioner/internal/logging"
	"captioner/internal/media"
	"captioner/internal/pipeline"
	"captioner/internal/preflight"
	"captioner/internal/transcribe"
)

// toolkit supplies the external collaborators commands build. Tests swap
// them for fakes.
type toolkit struct {
	newExtractor   func(cfg *config.Config) pipeline.Extractor
	newTranscriber func(cfg *config.Config, logger *slog.Logger) (pipeline.Transcriber, error)
	inspect        media.CommandRunner
	newLogger      func(cfg *config.Config) (*slog.Logger, error)
	preflight      func(ctx context.Context, cfg *config.Config) []preflight.Result
}

func defaultToolkit() toolkit {
	return toolkit{
		newExtractor: func(cfg *config.Config) pipeline.Extractor {
			return media.NewExtractor(media.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
		},
		newTranscriber: transcribe.New,
		inspect:        media.ExecRunner,
		newLogger:      logging.NewFromConfig,
		preflight:      runPreflight,
	}
}

type commandContext struct {
	configFlag *string
	rt         toolkit

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, rt toolkit) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		rt:         rt,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
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
		c.logger, c.loggerErr = c.rt.newLogger(cfg)
	})
	return c.logger, c.loggerErr
}

// runPreflight gathers directory, backend and binary checks into one list.
func runPreflight(ctx context.Context, cfg *config.Config) []preflight.Result {
	results := preflight.RunAll(ctx, cfg)
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if status.Optional {
			continue
		}
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, preflight.Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	return results
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
