package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"captioner/internal/artifacts"
	"captioner/internal/config"
	"captioner/internal/fileutil"
	"captioner/internal/history"
	"captioner/internal/logging"
	"captioner/internal/pipeline"
	"captioner/internal/preflight"
	"captioner/internal/runlock"
	"captioner/internal/services"
	"captioner/internal/srt"
	"captioner/internal/transcribe"
)

// stdinArg selects standard input as the media source.
const stdinArg = "-"

type transcribeOptions struct {
	outputDir     string
	modelTier     string
	suffix        string
	language      string
	name          string
	jobs          int
	timeout       time.Duration
	jsonOutput    bool
	skipPreflight bool
	noWait        bool
}

type runReport struct {
	RunID     string          `json:"run_id"`
	Source    string          `json:"source"`
	Base      string          `json:"base"`
	Status    history.Status  `json:"status"`
	Step      string          `json:"failed_step,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
	Artifacts artifacts.Names `json:"artifacts"`
	Segments  int             `json:"segments"`
	Elapsed   string          `json:"elapsed"`
	err       error
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <media>...",
		Short: "Extract audio, transcribe it, and write transcript and SRT files",
		Long: "Transcribe one or more media files. Each file produces {base}.wav, " +
			"{base}{suffix} and {base}.srt in the output directory; existing files with " +
			"the same names are overwritten. Pass - to read media from stdin together with --name.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg, err := applyTranscribeOverrides(*cfg, opts)
			if err != nil {
				return err
			}
			if err := runCfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runTranscribe(cmd, ctx.rt, &runCfg, logger, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Directory for generated artifacts (default from config)")
	cmd.Flags().StringVarP(&opts.modelTier, "model", "m", "", "Model tier: tiny, base, small, medium or large")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "Transcript file suffix (default _transcricao.txt)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Spoken language tag, or auto")
	cmd.Flags().StringVar(&opts.name, "name", "", "File name for media read from stdin")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 1, "Number of assets to process in parallel")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-asset time limit (overrides transcription.timeout_seconds)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Do not check tools and directories before starting")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Fail an asset instead of waiting when another run is writing its artifacts")
	return cmd
}

func applyTranscribeOverrides(cfg config.Config, opts transcribeOptions) (config.Config, error) {
	if dir := strings.TrimSpace(opts.outputDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return cfg, err
		}
		cfg.Output.Dir = expanded
	}
	if tier := strings.ToLower(strings.TrimSpace(opts.modelTier)); tier != "" {
		cfg.Transcription.ModelTier = tier
	}
	if suffix := strings.TrimSpace(opts.suffix); suffix != "" {
		cfg.Output.TranscriptSuffix = suffix
	}
	if opts.language != "" {
		lang, err := config.NormalizeLanguage(opts.language)
		if err != nil {
			return cfg, fmt.Errorf("%w: --language: %w", services.ErrConfiguration, err)
		}
		cfg.Transcription.Language = lang
	}
	if opts.timeout > 0 {
		cfg.Transcription.TimeoutSeconds = int(opts.timeout.Round(time.Second) / time.Second)
		if cfg.Transcription.TimeoutSeconds == 0 {
			cfg.Transcription.TimeoutSeconds = 1
		}
	}
	if opts.jobs < 1 {
		return cfg, fmt.Errorf("%w: --jobs must be at least 1", services.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}
	return cfg, nil
}

func runTranscribe(cmd *cobra.Command, rt toolkit, cfg *config.Config, logger *slog.Logger, opts transcribeOptions, args []string) error {
	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	if !opts.skipPreflight {
		if failed := preflight.Failed(rt.preflight(baseCtx, cfg)); len(failed) > 0 {
			parts := make([]string, 0, len(failed))
			for _, result := range failed {
				parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
			}
			return fmt.Errorf("%w: preflight failed (%s); run `captioner check` for details", services.ErrConfiguration, strings.Join(parts, "; "))
		}
	}

	assets, cleanup, err := resolveAssets(cmd, cfg, opts, args)
	defer cleanup()
	if err != nil {
		return err
	}

	transcriber, err := rt.newTranscriber(cfg, logger)
	if err != nil {
		return err
	}
	namer := artifacts.Namer{OutputDir: cfg.Output.Dir, TranscriptSuffix: cfg.Output.TranscriptSuffix}
	orch, err := pipeline.NewOrchestrator(rt.newExtractor(cfg), transcriber, namer, logger)
	if err != nil {
		return err
	}

	store := openHistory(baseCtx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	r := &assetRunner{
		cfg:     cfg,
		orch:    orch,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "transcribe"),
		noWait:  opts.noWait,
		timeout: time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
		model:   modelLabel(cfg),
	}
	reports := r.runAll(baseCtx, assets, opts.jobs)

	if opts.jsonOutput {
		if err := writeJSON(cmd, reports); err != nil {
			return err
		}
	} else {
		printReports(cmd, reports)
	}

	failed := 0
	var firstErr error
	for _, report := range reports {
		if report.err != nil {
			failed++
			if firstErr == nil {
				firstErr = report.err
			}
		}
	}
	switch {
	case failed == 0:
		return nil
	case len(reports) == 1:
		return firstErr
	default:
		return fmt.Errorf("%d of %d assets failed: %w", failed, len(reports), firstErr)
	}
}

// resolveAssets turns arguments into assets, staging stdin to
// {work_dir}/temp_{name}. The returned cleanup removes staged files.
func resolveAssets(cmd *cobra.Command, cfg *config.Config, opts transcribeOptions, args []string) ([]pipeline.Asset, func(), error) {
	var staged []string
	cleanup := func() {
		for _, path := range staged {
			_ = os.Remove(path)
		}
	}

	assets := make([]pipeline.Asset, 0, len(args))
	seenStdin := false
	for _, arg := range args {
		if arg != stdinArg {
			source, err := filepath.Abs(arg)
			if err != nil {
				return nil, cleanup, fmt.Errorf("resolve %s: %w", arg, err)
			}
			asset, err := pipeline.NewAsset(source)
			if err != nil {
				return nil, cleanup, fmt.Errorf("%w: %w", services.ErrInvalidInput, err)
			}
			assets = append(assets, asset)
			continue
		}

		if seenStdin {
			return nil, cleanup, fmt.Errorf("%w: stdin can only be read once", services.ErrInvalidInput)
		}
		seenStdin = true
		name := artifacts.SanitizeUploadName(filepath.Base(strings.TrimSpace(opts.name)))
		if name == "" {
			return nil, cleanup, fmt.Errorf("%w: --name is required when reading media from stdin", services.ErrInvalidInput)
		}
		path := filepath.Join(cfg.Paths.WorkDir, "temp_"+name)
		if _, err := fileutil.CopyReader(path, cmd.InOrStdin()); err != nil {
			return nil, cleanup, fmt.Errorf("stage stdin: %w", err)
		}
		staged = append(staged, path)
		asset, err := pipeline.NewNamedAsset(path, artifacts.BaseName(name))
		if err != nil {
			return nil, cleanup, fmt.Errorf("%w: %w", services.ErrInvalidInput, err)
		}
		assets = append(assets, asset)
	}
	return assets, cleanup, nil
}

func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *history.Store {
	if strings.TrimSpace(cfg.Paths.HistoryDB) == "" {
		return nil
	}
	store, err := history.Open(ctx, cfg.Paths.HistoryDB)
	if err != nil {
		logging.WarnWithContext(ctx, logger, "run history unavailable", "history_open_failed",
			logging.String(logging.FieldErrorHint, "delete or fix "+cfg.Paths.HistoryDB),
			logging.String(logging.FieldImpact, "runs will not be recorded"),
			logging.Error(err),
		)
		return nil
	}
	return store
}

func modelLabel(cfg *config.Config) string {
	if cfg.Transcription.Backend == config.BackendOpenAI {
		return cfg.Transcription.OpenAIModel
	}
	return transcribe.WhisperXModel(cfg.Transcription.ModelTier)
}

type assetRunner struct {
	cfg     *config.Config
	orch    *pipeline.Orchestrator
	store   *history.Store
	logger  *slog.Logger
	timeout time.Duration
	model   string
	noWait  bool
}

// runAll processes assets with at most jobs in flight and returns reports in
// argument order.
func (r *assetRunner) runAll(ctx context.Context, assets []pipeline.Asset, jobs int) []runReport {
	reports := make([]runReport, len(assets))
	sem := make(chan struct{}, max(jobs, 1))
	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reports[i] = r.runOne(ctx, asset)
		}()
	}
	wg.Wait()
	return reports
}

func (r *assetRunner) runOne(ctx context.Context, asset pipeline.Asset) runReport {
	started := time.Now()
	report := runReport{Source: asset.Source, Base: asset.Base}

	runID := uuid.NewString()
	var record *history.Run
	if r.store != nil {
		var err error
		record, err = r.store.Begin(ctx, asset.Source, asset.Base, r.cfg.Transcription.Backend, r.model)
		if err != nil {
			logging.WarnWithContext(ctx, r.logger, "failed to record run start", "history_write_failed",
				logging.String(logging.FieldImpact, "run will be missing from history"),
				logging.Error(err),
			)
		} else {
			runID = record.ID
		}
	}
	report.RunID = runID
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithAsset(ctx, asset.Base)
	logger := logging.WithContext(ctx, r.logger)

	names, err := r.runLocked(ctx, logger, asset)
	report.Elapsed = time.Since(started).Round(time.Millisecond).String()
	report.err = err
	if err != nil {
		report.Status = history.StatusFailed
		report.Step = string(pipeline.FailedStep(err))
		report.ErrorKind = services.Kind(err)
		report.Error = errorText(err)
	} else {
		report.Status = history.StatusSucceeded
		report.Artifacts = names
		if cues, err := srt.ParseFile(names.Subtitle); err == nil {
			report.Segments = len(cues)
		}
	}

	if record != nil {
		outcome := history.Outcome{
			Status:       report.Status,
			FailedStep:   report.Step,
			ErrorKind:    report.ErrorKind,
			ErrorMessage: report.Error,
			Artifacts:    report.Artifacts,
			Segments:     report.Segments,
		}
		// Record the outcome even when ctx was cancelled.
		if err := r.store.Finish(context.WithoutCancel(ctx), record.ID, outcome); err != nil {
			logging.WarnWithContext(ctx, logger, "failed to record run outcome", "history_write_failed",
				logging.String(logging.FieldImpact, "run stays marked as running in history"),
				logging.Error(err),
			)
		}
	}
	return report
}

func (r *assetRunner) runLocked(ctx context.Context, logger *slog.Logger, asset pipeline.Asset) (artifacts.Names, error) {
	var (
		lock *runlock.Lock
		err  error
	)
	if r.noWait {
		lock, err = runlock.TryAcquire(r.cfg.Output.Dir, asset.Base)
	} else {
		lock, err = runlock.Acquire(ctx, r.cfg.Output.Dir, asset.Base)
	}
	if err != nil {
		return artifacts.Names{}, &pipeline.StepError{
			Step:  pipeline.StepExtracting,
			Asset: asset,
			Err:   services.Wrap(services.ErrArtifactWrite, "transcribe", "lock outputs", asset.Base, err),
		}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", logging.String("lock", lock.Path()), logging.Error(err))
		}
	}()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	names, err := r.orch.Run(runCtx, asset)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		if rmErr := r.orch.Discard(asset, names); rmErr != nil {
			logger.Warn("failed to discard partial artifacts", logging.Error(rmErr))
		}
		err = &pipeline.StepError{
			Step:  pipeline.FailedStep(err),
			Asset: asset,
			Err: services.Wrap(services.ErrTranscription, "transcribe", "time limit",
				fmt.Sprintf("run exceeded %s; partial artifacts were discarded", r.timeout), err),
		}
		names = artifacts.Names{}
	}
	return names, err
}

func printReports(cmd *cobra.Command, reports []runReport) {
	printer := newStatusPrinter(cmd.OutOrStdout())
	for _, report := range reports {
		if report.err != nil {
			printer.result(report.Base, statusError, report.Error)
			continue
		}
		printer.result(report.Base, statusOK, fmt.Sprintf("%d segments in %s", report.Segments, report.Elapsed))
		printer.detail("transcript", report.Artifacts.Transcript)
		printer.detail("subtitles", report.Artifacts.Subtitle)
		printer.detail("audio", report.Artifacts.Audio)
	}
}
