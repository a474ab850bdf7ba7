package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"captioner/internal/artifacts"
	"captioner/internal/fileutil"
	"captioner/internal/logging"
	"captioner/internal/services"
	"captioner/internal/srt"
)

const artifactMode = 0o644

// Orchestrator runs the extraction, transcription and writing steps for an asset.
type Orchestrator struct {
	extractor   Extractor
	transcriber Transcriber
	namer       artifacts.Namer
	logger      *slog.Logger
}

// NewOrchestrator wires an orchestrator. A nil logger discards output.
func NewOrchestrator(extractor Extractor, transcriber Transcriber, namer artifacts.Namer, logger *slog.Logger) (*Orchestrator, error) {
	if extractor == nil {
		return nil, fmt.Errorf("%w: extractor required", services.ErrConfiguration)
	}
	if transcriber == nil {
		return nil, fmt.Errorf("%w: transcriber required", services.ErrConfiguration)
	}
	return &Orchestrator{
		extractor:   extractor,
		transcriber: transcriber,
		namer:       namer,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Names returns the artifact paths Run would use for asset.
func (o *Orchestrator) Names(asset Asset) artifacts.Names {
	return o.namer.Derive(asset.Base)
}

// Run processes asset and returns the paths of the three artifacts it wrote.
// On failure the returned Names lists only the artifacts this run wrote, so
// callers can discard them without touching files from earlier runs.
func (o *Orchestrator) Run(ctx context.Context, asset Asset) (artifacts.Names, error) {
	if asset.Source == "" || asset.Base == "" {
		return artifacts.Names{}, &StepError{
			Step:  StepExtracting,
			Asset: asset,
			Err:   services.Wrap(services.ErrMediaExtraction, string(StepExtracting), "resolve asset", "asset has no source or base name", services.ErrInvalidInput),
		}
	}
	ctx = services.WithAsset(ctx, asset.Base)
	names := o.namer.Derive(asset.Base)
	var written artifacts.Names
	started := time.Now()

	var result Result
	err := o.step(ctx, asset, StepExtracting, func(ctx context.Context) error {
		if fileutil.SamePath(asset.Source, names.Audio) {
			return services.Wrap(services.ErrMediaExtraction, string(StepExtracting), "extract audio",
				"source is the audio artifact path; choose a different output directory", services.ErrInvalidInput)
		}
		_, statErr := os.Stat(names.Audio)
		audioExisted := statErr == nil
		path, err := o.extractor.ExtractAudio(ctx, asset.Source, names.Audio)
		if err != nil {
			if !audioExisted {
				removePartial(names.Audio)
			}
			return services.Wrap(services.ErrMediaExtraction, string(StepExtracting), "extract audio", asset.Source, err)
		}
		if path != "" {
			names.Audio = path
		}
		written.Audio = names.Audio
		return nil
	})
	if err == nil {
		err = o.step(ctx, asset, StepTranscribing, func(ctx context.Context) error {
			var err error
			result, err = o.transcriber.Transcribe(ctx, Audio{Path: names.Audio})
			if err != nil {
				return services.Wrap(services.ErrTranscription, string(StepTranscribing), "transcribe", names.Audio, err)
			}
			return nil
		})
	}
	if err == nil {
		err = o.step(ctx, asset, StepWritingTranscript, func(context.Context) error {
			if err := fileutil.WriteFileAtomic(names.Transcript, []byte(result.TranscriptText()), artifactMode); err != nil {
				return services.Wrap(services.ErrArtifactWrite, string(StepWritingTranscript), "write transcript", names.Transcript, err)
			}
			written.Transcript = names.Transcript
			return nil
		})
	}
	if err == nil {
		err = o.step(ctx, asset, StepWritingSubtitles, func(context.Context) error {
			err := fileutil.WriteAtomic(names.Subtitle, artifactMode, func(w io.Writer) error {
				return srt.Write(w, result.Segments)
			})
			if err != nil {
				return services.Wrap(services.ErrArtifactWrite, string(StepWritingSubtitles), "write subtitles", names.Subtitle, err)
			}
			return nil
		})
	}
	if err != nil {
		return written, err
	}

	o.logger.InfoContext(services.WithStep(ctx, string(StepDone)), "transcription complete",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("segments", len(result.Segments)),
		logging.String("transcript", names.Transcript),
		logging.String("subtitle", names.Subtitle),
		logging.Duration("elapsed", time.Since(started)),
	)
	return names, nil
}

func (o *Orchestrator) step(ctx context.Context, asset Asset, step Step, fn func(context.Context) error) error {
	ctx = services.WithStep(ctx, string(step))
	o.logger.DebugContext(ctx, "step started", logging.String(logging.FieldEventType, "step_start"))

	started := time.Now()
	err := ctx.Err()
	if err != nil {
		err = services.Wrap(markerFor(step), string(step), "check context", "run cancelled before step", err)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		logging.ErrorWithContext(ctx, o.logger, "step failed", "step_failure",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(step)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return &StepError{Step: step, Asset: asset, Err: err}
	}
	o.logger.InfoContext(ctx, "step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func markerFor(step Step) error {
	switch step {
	case StepExtracting:
		return services.ErrMediaExtraction
	case StepTranscribing:
		return services.ErrTranscription
	default:
		return services.ErrArtifactWrite
	}
}

func hintFor(step Step) string {
	switch step {
	case StepExtracting:
		return "check that the source is readable media with an audio track and that ffmpeg is installed"
	case StepTranscribing:
		return "check transcription backend settings and credentials"
	default:
		return "check that the output directory exists and is writable"
	}
}

// Discard removes the artifacts listed in names, skipping any path that is
// the asset's source media.
func (o *Orchestrator) Discard(asset Asset, names artifacts.Names) error {
	if fileutil.SamePath(asset.Source, names.Audio) {
		names.Audio = ""
	}
	if fileutil.SamePath(asset.Source, names.Transcript) {
		names.Transcript = ""
	}
	if fileutil.SamePath(asset.Source, names.Subtitle) {
		names.Subtitle = ""
	}
	return names.Remove()
}

func removePartial(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
