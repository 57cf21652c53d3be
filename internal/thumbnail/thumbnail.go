// Package thumbnail generates preview images for a video — the optional,
// UI-facing collaborator named in the system overview. Only its interface
// to the core is specified; this is a thin, directly testable
// implementation built the way the teacher shells out to ffmpeg for any
// other frame-extraction task.
package thumbnail

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Generator produces n preview images for the video at path, returning
// their output file paths. durationSeconds lets implementations space
// samples across the video; 0 means unknown (implementations may fall
// back to a single early-frame sample).
type Generator interface {
	Generate(ctx context.Context, path string, durationSeconds float64, n int) ([]string, error)
}

// FFmpegGenerator extracts evenly-spaced JPEG frames via ffmpeg.
type FFmpegGenerator struct {
	ffmpegPath string
	outputDir  string
}

// New returns a Generator that writes thumbnails into outputDir using the
// given ffmpeg binary (or "ffmpeg" if empty).
func New(ffmpegPath, outputDir string) *FFmpegGenerator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegGenerator{ffmpegPath: ffmpegPath, outputDir: outputDir}
}

// Generate extracts n evenly-spaced frames from path as JPEGs under
// outputDir.
func (g *FFmpegGenerator) Generate(ctx context.Context, path string, durationSeconds float64, n int) ([]string, error) {
	if n < 1 {
		n = 1
	}

	base := filepath.Base(path)
	var out []string
	for i := 0; i < n; i++ {
		seek := 0.0
		if durationSeconds > 0 {
			seek = durationSeconds * float64(i+1) / float64(n+1)
		}
		dest := filepath.Join(g.outputDir, fmt.Sprintf("%s.%d.jpg", base, i))

		cmd := exec.CommandContext(ctx, g.ffmpegPath,
			"-ss", fmt.Sprintf("%.3f", seek),
			"-i", path,
			"-vframes", "1",
			"-q:v", "4",
			"-y",
			dest,
		)
		if err := cmd.Run(); err != nil {
			return out, fmt.Errorf("generate thumbnail %d: %w", i, err)
		}
		out = append(out, dest)
	}
	return out, nil
}
