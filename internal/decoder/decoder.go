// Package decoder samples frames from a video file via an ffmpeg
// subprocess and delivers them as grayscale luma tiles ready for hashing.
// Grounded on the teacher's exec.CommandContext + stdout-pipe transcode
// pattern, and on the pack's GoonHub fingerprint package's fixed-size
// rawvideo frame reads.
package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/gwlsn/vdupes/internal/phash"
	"github.com/gwlsn/vdupes/internal/prober"
	"github.com/gwlsn/vdupes/internal/settings"
)

// frameBytes returns the size of one gray8 raw frame at width x height.
// ffmpeg is asked for native-resolution luma only; phash.Reduce performs
// the spec's own box-filter + nearest-neighbor reduction to TileSize, so a
// frame smaller than the tile is never requested from ffmpeg directly.
func frameBytes(width, height int) int {
	return width * height
}

// nativeDims returns the probed frame dimensions, falling back to TileSize
// (skipping phash.Reduce's box filter on a tile that's already that size)
// when ffprobe could not report them.
func nativeDims(probed *prober.Result) (int, int) {
	if probed.Width <= 0 || probed.Height <= 0 {
		return phash.TileSize, phash.TileSize
	}
	return probed.Width, probed.Height
}

// ErrDurationUnknown is returned by Fast mode when the prober could not
// determine a duration; percentage-based seeking is impossible.
var ErrDurationUnknown = errors.New("decoder: duration unknown, cannot seek by percent")

// ErrDecodeFailed wraps a fatal per-file ffmpeg failure. Callers treat this
// as FileSkipped: log, discard this video's hashes, continue the run.
var ErrDecodeFailed = errors.New("decoder: failed to extract frames")

// Sampler extracts luma tiles from a video file.
type Sampler interface {
	Sample(ctx context.Context, path string, probed *prober.Result, cfg *settings.Settings) ([]*phash.Tile, error)
}

// NewSampler maps a settings.Method to its concrete Sampler implementation.
func NewSampler(ffmpegPath string, method settings.Method) Sampler {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	switch method {
	case settings.Fast:
		return &fastSampler{ffmpegPath: ffmpegPath}
	default:
		return &slowSampler{ffmpegPath: ffmpegPath}
	}
}

// fastSampler takes exactly two samples, at 30% and 70% of duration.
type fastSampler struct {
	ffmpegPath string
}

func (s *fastSampler) Sample(ctx context.Context, path string, probed *prober.Result, cfg *settings.Settings) ([]*phash.Tile, error) {
	if probed.DurationUnknown || probed.Duration <= 0 {
		return nil, ErrDurationUnknown
	}

	width, height := nativeDims(probed)

	targets := []float64{0.30 * probed.Duration, 0.70 * probed.Duration}
	tiles := make([]*phash.Tile, 0, len(targets))

	for _, target := range targets {
		tile, err := s.sampleAt(ctx, path, target, cfg, width, height)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		tiles = append(tiles, tile)
	}

	if len(tiles) != len(targets) {
		return nil, ErrDecodeFailed
	}
	return tiles, nil
}

func (s *fastSampler) sampleAt(ctx context.Context, path string, seekSeconds float64, cfg *settings.Settings, width, height int) (*phash.Tile, error) {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", seekSeconds),
	}
	if cfg.UseKeyframesOnly {
		args = append(args, "-noaccurate_seek")
	}
	args = append(args,
		"-i", path,
		"-vframes", "1",
		"-vf", "format=gray",
		"-f", "rawvideo",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	want := frameBytes(width, height)
	if stdout.Len() < want {
		return nil, fmt.Errorf("short frame read: got %d bytes, want %d", stdout.Len(), want)
	}

	return phash.Reduce(stdout.Bytes()[:want], width, height), nil
}

// slowSampler emits roughly one frame per second across the
// [skip_percent, 1-skip_percent] window of the video, bounded by
// max_frames.
type slowSampler struct {
	ffmpegPath string
}

func (s *slowSampler) Sample(ctx context.Context, path string, probed *prober.Result, cfg *settings.Settings) ([]*phash.Tile, error) {
	width, height := nativeDims(probed)

	skipFrac := cfg.SkipPercent / 100
	var seek, window string
	if !probed.DurationUnknown && probed.Duration > 0 {
		start := skipFrac * probed.Duration
		end := probed.Duration * (1 - skipFrac)
		if end <= start {
			end = probed.Duration
		}
		seek = fmt.Sprintf("%.3f", start)
		window = fmt.Sprintf("%.3f", end-start)
	}

	args := []string{}
	if seek != "" {
		args = append(args, "-ss", seek)
	}
	args = append(args, "-i", path)
	if window != "" {
		args = append(args, "-t", window)
	}
	args = append(args,
		"-vf", "fps=1,format=gray",
		"-frames:v", fmt.Sprintf("%d", cfg.MaxFrames),
		"-f", "rawvideo",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	var tiles []*phash.Tile
	buf := make([]byte, frameBytes(width, height))
	for len(tiles) < cfg.MaxFrames {
		if ctx.Err() != nil {
			break
		}
		_, err := io.ReadFull(stdout, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			break
		}
		tiles = append(tiles, phash.Reduce(buf, width, height))
	}

	// Drain and wait regardless of whether we read every frame: the
	// pipe must be fully consumed before Wait, and partial results from
	// an early ctx cancellation are still usable (not fatal).
	io.Copy(io.Discard, stdout)
	_ = cmd.Wait()

	return tiles, nil
}
