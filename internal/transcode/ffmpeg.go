package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"vidredact/internal/media/ffprobe"
	"vidredact/internal/services"
)

const stderrLimit = 4096

// FFmpeg implements Transcoder with the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegBinary     string
	FFprobeBinary    string
	DefaultFrameRate float64
}

// NewFFmpeg returns a transcoder using the given binaries.
func NewFFmpeg(ffmpegBinary, ffprobeBinary string, defaultFrameRate float64) *FFmpeg {
	if defaultFrameRate <= 0 {
		defaultFrameRate = DefaultFrameRate
	}
	return &FFmpeg{FFmpegBinary: ffmpegBinary, FFprobeBinary: ffprobeBinary, DefaultFrameRate: defaultFrameRate}
}

func (f *FFmpeg) ffmpeg() string {
	if b := strings.TrimSpace(f.FFmpegBinary); b != "" {
		return b
	}
	return "ffmpeg"
}

// Probe implements Transcoder.
func (f *FFmpeg) Probe(ctx context.Context, path string) (StreamInfo, error) {
	result, err := ffprobe.Inspect(ctx, f.FFprobeBinary, path)
	if err != nil {
		return StreamInfo{}, services.Wrap(services.ErrExternalTool, "transcode", "probe", path, err)
	}
	video, err := result.Video()
	if err != nil {
		return StreamInfo{}, services.Wrap(services.ErrValidation, "transcode", "probe", path, err)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return StreamInfo{}, services.Wrap(services.ErrValidation, "transcode", "probe",
			fmt.Sprintf("invalid frame size %dx%d", video.Width, video.Height), nil)
	}
	rate := video.FrameRate()
	if rate <= 0 {
		rate = f.DefaultFrameRate
	}
	return StreamInfo{
		Width:     video.Width,
		Height:    video.Height,
		FrameRate: rate,
		HasAudio:  result.HasAudio(),
	}, nil
}

// OpenReader implements Transcoder.
func (f *FFmpeg) OpenReader(ctx context.Context, path string, info StreamInfo) (FrameReader, error) {
	cmd := exec.CommandContext(ctx, f.ffmpeg(),
		"-v", "error", "-nostdin",
		"-i", path,
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-",
	)
	stderr := &limitedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "decode", "start ffmpeg", err)
	}
	return &pipeReader{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		width:  info.Width,
		height: info.Height,
		buf:    make([]byte, info.Width*info.Height*3),
	}, nil
}

// OpenWriter implements Transcoder. The intermediate stream is MPEG-4 Part 2
// at high quality; Encode produces the delivered codec.
func (f *FFmpeg) OpenWriter(ctx context.Context, path string, info StreamInfo) (FrameWriter, error) {
	cmd := exec.CommandContext(ctx, f.ffmpeg(),
		"-y", "-v", "error",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-r", formatRate(info.FrameRate),
		"-i", "-",
		"-an", "-c:v", "mpeg4", "-q:v", "2",
		path,
	)
	stderr := &limitedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "write", "start ffmpeg", err)
	}
	return &pipeWriter{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		buf:    make([]byte, info.Width*info.Height*3),
	}, nil
}

// Encode implements Transcoder.
func (f *FFmpeg) Encode(ctx context.Context, src, dst string) error {
	return f.run(ctx, "encode",
		"-y", "-v", "error", "-nostdin",
		"-i", src,
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-an",
		dst,
	)
}

// Remux implements Transcoder.
func (f *FFmpeg) Remux(ctx context.Context, videoPath, audioSource, dst string) error {
	return f.run(ctx, "remux",
		"-y", "-v", "error", "-nostdin",
		"-i", videoPath,
		"-i", audioSource,
		"-c:v", "copy", "-c:a", "aac",
		"-map", "0:v:0", "-map", "1:a:0?",
		"-movflags", "+faststart",
		dst,
	)
}

func (f *FFmpeg) run(ctx context.Context, op string, args ...string) error {
	cmd := exec.CommandContext(ctx, f.ffmpeg(), args...)
	stderr := &limitedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcode", op, stderr.String(), err)
	}
	return nil
}

func formatRate(rate float64) string {
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

type pipeReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *limitedBuffer
	width  int
	height int
	buf    []byte
	done   bool
}

func (r *pipeReader) Next() (*image.RGBA, error) {
	if r.done {
		return nil, io.EOF
	}
	if _, err := io.ReadFull(r.stdout, r.buf); err != nil {
		r.done = true
		if errors.Is(err, io.EOF) {
			if waitErr := r.cmd.Wait(); waitErr != nil {
				return nil, services.Wrap(services.ErrExternalTool, "transcode", "decode", r.stderr.String(), waitErr)
			}
			r.cmd = nil
			return nil, io.EOF
		}
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "decode", "truncated frame", err)
	}
	frame := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if err := RGB24ToRGBA(r.buf, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (r *pipeReader) Close() error {
	if r.cmd == nil {
		return nil
	}
	cmd := r.cmd
	r.cmd = nil
	_ = r.stdout.Close()
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
	return nil
}

type pipeWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *limitedBuffer
	buf    []byte
	closed bool
}

func (w *pipeWriter) Write(frame *image.RGBA) error {
	if w.closed {
		return errors.New("frame writer closed")
	}
	if err := RGBAToRGB24(frame, w.buf); err != nil {
		return err
	}
	if _, err := w.stdin.Write(w.buf); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcode", "write", w.stderr.String(), err)
	}
	return nil
}

func (w *pipeWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcode", "write", w.stderr.String(), err)
	}
	return nil
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
