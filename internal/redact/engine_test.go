package redact

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidredact/internal/artifacts"
	"vidredact/internal/blobstore"
	"vidredact/internal/detect"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/services"
	"vidredact/internal/transcode"
)

// fakeTranscoder serves a fixed number of blank frames and writes small
// marker files for every output it is asked to produce.
type fakeTranscoder struct {
	info      transcode.StreamInfo
	frames    int
	written   int
	encodeErr error
}

func (f *fakeTranscoder) Probe(context.Context, string) (transcode.StreamInfo, error) {
	return f.info, nil
}

func (f *fakeTranscoder) OpenReader(context.Context, string, transcode.StreamInfo) (transcode.FrameReader, error) {
	return &fakeReader{remaining: f.frames, w: f.info.Width, h: f.info.Height}, nil
}

func (f *fakeTranscoder) OpenWriter(_ context.Context, path string, _ transcode.StreamInfo) (transcode.FrameWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &fakeWriter{file: file, owner: f}, nil
}

func (f *fakeTranscoder) Encode(_ context.Context, src, dst string) error {
	if f.encodeErr != nil {
		return f.encodeErr
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (f *fakeTranscoder) Remux(_ context.Context, videoPath, _ string, dst string) error {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, append(data, []byte("+audio")...), 0o644)
}

type fakeReader struct {
	remaining int
	w, h      int
}

func (r *fakeReader) Next() (*image.RGBA, error) {
	if r.remaining == 0 {
		return nil, io.EOF
	}
	r.remaining--
	return image.NewRGBA(image.Rect(0, 0, r.w, r.h)), nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	file  *os.File
	owner *fakeTranscoder
}

func (w *fakeWriter) Write(*image.RGBA) error {
	w.owner.written++
	_, err := fmt.Fprintln(w.file, "frame")
	return err
}

func (w *fakeWriter) Close() error { return w.file.Close() }

// frameDetector returns the configured detections for the n-th call.
func frameDetector(byFrame map[int][]detect.Detection) detect.Detector {
	call := 0
	return detect.Func(func(context.Context, detect.Variant, image.Image, float64) ([]detect.Detection, error) {
		defer func() { call++ }()
		return byFrame[call], nil
	})
}

func newTestEngine(t *testing.T, tc *fakeTranscoder, det detect.Detector) (*Engine, *blobstore.Memory, string) {
	t.Helper()
	base := t.TempDir()
	processed := filepath.Join(base, "processed")
	complete := filepath.Join(base, "complete")
	for _, dir := range []string{processed, complete} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	source := filepath.Join(base, "M001.mp4")
	if err := os.WriteFile(source, []byte("source"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	blobs := blobstore.NewMemory("results")
	return &Engine{
		Transcoder:   tc,
		Detector:     det,
		Blobs:        blobs,
		ProcessedDir: processed,
		CompleteDir:  complete,
		Logger:       logging.NewNop(),
	}, blobs, source
}

func TestRunEndToEnd(t *testing.T) {
	tc := &fakeTranscoder{info: transcode.StreamInfo{Width: 64, Height: 48, FrameRate: 30}, frames: 3}
	det := frameDetector(map[int][]detect.Detection{
		1: {
			{Class: "knife", Confidence: 0.9, Box: detect.Box{X1: 4, Y1: 4, X2: 40, Y2: 40}},
			{Class: "handgun", Confidence: 0.2, Box: detect.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		},
	})
	engine, blobs, source := newTestEngine(t, tc, det)
	set := artifacts.NewSet("M001")

	result, err := engine.Run(context.Background(), Job{
		WorkID:      "M001",
		SourcePath:  source,
		DisplayName: "clip",
		Threshold:   0.5,
		Strength:    15,
	}, set)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Frames != 3 || tc.written != 3 {
		t.Fatalf("expected 3 frames processed and written, got %d/%d", result.Frames, tc.written)
	}
	if result.Redactions != 1 {
		t.Fatalf("expected one redaction, got %d", result.Redactions)
	}
	if result.Durations[jobs.ClassKnife] != 0.03 {
		t.Fatalf("expected knife 0.03, got %v", result.Durations[jobs.ClassKnife])
	}
	if result.Durations[jobs.ClassGun] != 0 {
		t.Fatalf("expected below-threshold gun ignored, got %v", result.Durations[jobs.ClassGun])
	}
	if result.ResultURL == "" || !strings.HasSuffix(result.ResultURL, "M001/clip.mp4") {
		t.Fatalf("unexpected result url %q", result.ResultURL)
	}
	if _, ok := blobs.Object("M001/clip.mp4"); !ok {
		t.Fatal("expected final artifact uploaded")
	}

	kinds := map[string]bool{}
	for _, entry := range set.Entries() {
		kinds[entry.Kind] = true
		if _, err := os.Stat(entry.Path); err != nil {
			t.Fatalf("expected tracked %s at %s: %v", entry.Kind, entry.Path, err)
		}
	}
	for _, kind := range []string{artifacts.KindIntermediate, artifacts.KindDetections, artifacts.KindEncoded, artifacts.KindFinal} {
		if !kinds[kind] {
			t.Fatalf("expected %s tracked, got %v", kind, kinds)
		}
	}
}

func TestRunUnknownPrefix(t *testing.T) {
	tc := &fakeTranscoder{info: transcode.StreamInfo{Width: 8, Height: 8, FrameRate: 30}, frames: 1}
	engine, _, source := newTestEngine(t, tc, frameDetector(nil))
	_, err := engine.Run(context.Background(), Job{WorkID: "Z1", SourcePath: source, DisplayName: "x", Threshold: 0.5, Strength: 5}, artifacts.NewSet("Z1"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunMissingSource(t *testing.T) {
	tc := &fakeTranscoder{info: transcode.StreamInfo{Width: 8, Height: 8, FrameRate: 30}, frames: 1}
	engine, _, _ := newTestEngine(t, tc, frameDetector(nil))
	_, err := engine.Run(context.Background(), Job{WorkID: "M1", SourcePath: "/nonexistent/M1.mp4", DisplayName: "x", Threshold: 0.5, Strength: 5}, artifacts.NewSet("M1"))
	if err == nil || !strings.Contains(err.Error(), "source unreadable") {
		t.Fatalf("expected source unreadable error, got %v", err)
	}
}

func TestRunDetectorFailureIsFatal(t *testing.T) {
	tc := &fakeTranscoder{info: transcode.StreamInfo{Width: 8, Height: 8, FrameRate: 30}, frames: 2}
	det := detect.Func(func(context.Context, detect.Variant, image.Image, float64) ([]detect.Detection, error) {
		return nil, errors.New("connection refused")
	})
	engine, _, source := newTestEngine(t, tc, det)
	set := artifacts.NewSet("M001")
	_, err := engine.Run(context.Background(), Job{WorkID: "M001", SourcePath: source, DisplayName: "x", Threshold: 0.5, Strength: 5}, set)
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped detector error, got %v", err)
	}
	if len(set.Entries()) == 0 {
		t.Fatal("expected intermediate tracked even on failure")
	}
}

func TestRunDegenerateBoxIsNonFatal(t *testing.T) {
	tc := &fakeTranscoder{info: transcode.StreamInfo{Width: 16, Height: 16, FrameRate: 25}, frames: 1}
	det := frameDetector(map[int][]detect.Detection{
		0: {{Class: "Receipt", Confidence: 0.8, Box: detect.Box{X1: 5, Y1: 5, X2: 5, Y2: 9}}},
	})
	engine, _, source := newTestEngine(t, tc, det)
	result, err := engine.Run(context.Background(), Job{WorkID: "P7", SourcePath: source, DisplayName: "r", Threshold: 0.5, Strength: 5}, artifacts.NewSet("P7"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Skipped != 1 || result.Redactions != 0 {
		t.Fatalf("expected one skipped region, got %+v", result)
	}
	if result.Durations[jobs.ClassReceipt] != 0.04 {
		t.Fatalf("expected receipt still counted (1/25), got %v", result.Durations[jobs.ClassReceipt])
	}
}

func TestRunEncodeFailure(t *testing.T) {
	tc := &fakeTranscoder{
		info:      transcode.StreamInfo{Width: 8, Height: 8, FrameRate: 30},
		frames:    1,
		encodeErr: services.Wrap(services.ErrExternalTool, "transcode", "encode", "boom", nil),
	}
	engine, _, source := newTestEngine(t, tc, frameDetector(nil))
	if _, err := engine.Run(context.Background(), Job{WorkID: "M2", SourcePath: source, DisplayName: "x", Threshold: 0.5, Strength: 5}, artifacts.NewSet("M2")); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected encode failure, got %v", err)
	}
}
