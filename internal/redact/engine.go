package redact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidredact/internal/artifacts"
	"vidredact/internal/blobstore"
	"vidredact/internal/detect"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/services"
	"vidredact/internal/transcode"
)

const (
	defaultFrameRate = transcode.DefaultFrameRate
	stageName        = "redact"
)

// Job is the input of one engine run.
type Job struct {
	WorkID      string
	SourcePath  string
	DisplayName string
	Threshold   float64
	Strength    int
}

// JobFromOrder builds the engine input for a stored work order.
func JobFromOrder(order *jobs.WorkOrder) Job {
	return Job{
		WorkID:      order.WorkID,
		SourcePath:  order.SourcePath,
		DisplayName: order.DisplayName,
		Threshold:   order.ConfidenceThreshold,
		Strength:    order.MosaicStrength,
	}
}

// Result is the outcome of a successful run.
type Result struct {
	ResultURL    string
	Durations    jobs.Durations
	RawDurations map[string]float64
	FinalPath    string
	Frames       int
	Redactions   int
	Skipped      int
	FrameRate    float64
}

// Engine wires the detector, transcoder and blob store together.
type Engine struct {
	Transcoder   transcode.Transcoder
	Detector     detect.Detector
	Blobs        blobstore.Store
	ProcessedDir string
	CompleteDir  string
	Logger       *slog.Logger
}

// SetLogger replaces the logger used by subsequent runs. The workflow calls it
// with the per-order logger before each job.
func (e *Engine) SetLogger(logger *slog.Logger) {
	e.Logger = logger
}

// FinalFileName returns the delivered file name for a display name: its base
// name with ".mp4" appended unless already present.
func FinalFileName(displayName string) string {
	name := filepath.Base(strings.TrimSpace(displayName))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "output"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".mp4") {
		name += ".mp4"
	}
	return name
}

// Run executes the full redaction stage for job. Every file it creates is
// registered in set before it is written so the caller can clean up after
// success or failure.
func (e *Engine) Run(ctx context.Context, job Job, set *artifacts.Set) (Result, error) {
	ctx = services.WithStage(services.WithWorkID(ctx, job.WorkID), stageName)
	base := e.Logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, base)

	variant, err := detect.VariantFor(job.WorkID)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(job.SourcePath); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "open source", "source unreadable", err)
	}

	info, err := e.Transcoder.Probe(ctx, job.SourcePath)
	if err != nil {
		return Result{}, err
	}
	if info.FrameRate <= 0 {
		info.FrameRate = defaultFrameRate
	}
	logger.Info("redaction started",
		logging.String("model", variant.Model),
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Float64("fps", info.FrameRate),
		logging.Float64("threshold", job.Threshold),
		logging.Int("mosaic_strength", job.Strength),
		logging.String(logging.FieldEventType, "redaction_started"),
	)

	intermediate := filepath.Join(e.ProcessedDir, "processed_"+job.WorkID+".mp4")
	encoded := filepath.Join(e.ProcessedDir, "encoded_"+job.WorkID+".mp4")
	dump := filepath.Join(e.ProcessedDir, "detection_results_"+job.WorkID+".json")
	final := filepath.Join(e.CompleteDir, FinalFileName(job.DisplayName))

	set.Add(artifacts.KindIntermediate, intermediate, true)
	result, events, err := e.scan(ctx, logger, job, variant, info, intermediate)
	if err != nil {
		return Result{}, err
	}

	set.Add(artifacts.KindDetections, dump, true)
	if err := WriteDump(dump, events); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stageName, "dump detections", "", err)
	}
	stored, err := ReadDump(dump)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stageName, "load detections", "", err)
	}
	result.RawDurations = Aggregate(stored, info.FrameRate)
	var unknown []string
	result.Durations, unknown = PersistedDurations(variant, result.RawDurations)
	if len(unknown) > 0 {
		logging.WarnWithContext(logger, "detector reported labels outside the model vocabulary", "unknown_labels",
			logging.String("labels", strings.Join(unknown, ",")),
			logging.String(logging.FieldErrorHint, "check the detector model matches the work id prefix"),
			logging.String(logging.FieldImpact, "durations for these labels are not stored"),
		)
	}

	set.Add(artifacts.KindEncoded, encoded, true)
	started := time.Now()
	if err := e.Transcoder.Encode(ctx, intermediate, encoded); err != nil {
		return Result{}, err
	}
	logger.Info("stream encoded", logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)))

	set.Add(artifacts.KindFinal, final, true)
	if err := e.Transcoder.Remux(ctx, encoded, job.SourcePath, final); err != nil {
		return Result{}, err
	}
	result.FinalPath = final

	url, err := e.Blobs.Upload(ctx, blobstore.ObjectKey(job.WorkID, final), final)
	if err != nil {
		return Result{}, err
	}
	result.ResultURL = url

	logger.Info("redaction finished",
		logging.Int("frames", result.Frames),
		logging.Int("redactions", result.Redactions),
		logging.Int("skipped_regions", result.Skipped),
		logging.Any("durations", result.RawDurations),
		logging.String("result_url", url),
		logging.String(logging.FieldEventType, "redaction_finished"),
	)
	return result, nil
}

// scan decodes every frame, redacts detections in place and writes the frame
// to the intermediate stream.
func (e *Engine) scan(ctx context.Context, logger *slog.Logger, job Job, variant detect.Variant, info transcode.StreamInfo, intermediate string) (Result, []DetectionEvent, error) {
	result := Result{FrameRate: info.FrameRate}

	reader, err := e.Transcoder.OpenReader(ctx, job.SourcePath, info)
	if err != nil {
		return result, nil, err
	}
	defer reader.Close()

	writer, err := e.Transcoder.OpenWriter(ctx, intermediate, info)
	if err != nil {
		return result, nil, err
	}
	writerClosed := false
	defer func() {
		if !writerClosed {
			_ = writer.Close()
		}
	}()

	var events []DetectionEvent
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return result, nil, err
		}
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, nil, err
		}
		result.Frames++
		timestamp := float64(index) / info.FrameRate

		detections, err := e.Detector.Detect(ctx, variant, frame, job.Threshold)
		if err != nil {
			return result, nil, services.Wrap(services.ErrExternalTool, stageName, "detect",
				fmt.Sprintf("frame %d", index), err)
		}

		var recorded []EventDetection
		for _, d := range detections {
			if d.Confidence < job.Threshold {
				continue
			}
			logger.Debug("object detected",
				logging.String("class", d.Class),
				logging.Float64("confidence", d.Confidence),
				logging.Int("frame", index),
				logging.Any("box", [4]int{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2}),
			)
			applied, mosaicErr := Mosaic(frame, d.Box.Rect(), job.Strength)
			switch {
			case mosaicErr == nil:
				result.Redactions++
				if applied != job.Strength {
					logger.Debug("mosaic strength reduced to fit region",
						logging.Int("requested", job.Strength),
						logging.Int("applied", applied),
					)
				}
			case errors.Is(mosaicErr, ErrDegenerateBox), errors.Is(mosaicErr, ErrStrengthExhausted):
				result.Skipped++
				logging.WarnWithContext(logger, "region left unredacted", "mosaic_skipped",
					logging.String("reason", mosaicErr.Error()),
					logging.String("class", d.Class),
					logging.Int("frame", index),
					logging.Any("box", [4]int{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2}),
					logging.String(logging.FieldErrorHint, "box is empty or smaller than the mosaic block"),
					logging.String(logging.FieldImpact, "object may remain visible in this frame"),
				)
			default:
				return result, nil, mosaicErr
			}
			recorded = append(recorded, newEventDetection(d))
		}
		if len(recorded) > 0 {
			events = append(events, DetectionEvent{
				Timestamp:  timestamp,
				Frame:      index + 1,
				Detections: recorded,
			})
		}

		if err := writer.Write(frame); err != nil {
			return result, nil, err
		}
	}

	writerClosed = true
	if err := writer.Close(); err != nil {
		return result, nil, err
	}
	if result.Frames == 0 {
		return result, nil, services.Wrap(services.ErrValidation, stageName, "decode", "source has no frames", nil)
	}
	return result, events, nil
}
