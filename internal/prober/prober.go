// Package prober fills container and stream metadata for a video file by
// shelling out to ffprobe, mirroring the teacher's ffmpeg-probing package
// with transcode-only fields (HDR, tonemap, codec-compatibility flags)
// trimmed and the sample_rate field the spec asks for added.
package prober

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Result holds everything the duplicate-detection pipeline needs from
// ffprobe. DurationUnknown is set when neither stream- nor container-level
// duration could be determined, which disables percentage-based seeking.
type Result struct {
	Duration        float64 // seconds; 0 when DurationUnknown
	DurationUnknown bool
	Bitrate         int64
	VideoCodec      string
	AudioCodec      string
	PixelFormat     string
	Profile         string
	Width           int
	Height          int
	AvgFrameRate    float64
	SampleRate      int
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Profile      string `json:"profile"`
	PixFmt       string `json:"pix_fmt"`
	Duration     string `json:"duration"`
	SampleRate   string `json:"sample_rate"`
}

// Prober wraps ffprobe subprocess invocation.
type Prober struct {
	ffprobePath string
}

// New returns a Prober that invokes the given ffprobe binary (or "ffprobe"
// if path is empty, relying on PATH resolution).
func New(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Probe runs ffprobe against path and parses its JSON output.
func (p *Prober) Probe(ctx context.Context, path string) (*Result, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var raw ffprobeOutput
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	res := &Result{}

	containerDuration, hasContainerDuration := parseFloat(raw.Format.Duration)
	if raw.Format.BitRate != "" {
		res.Bitrate, _ = strconv.ParseInt(raw.Format.BitRate, 10, 64)
	}

	var streamDuration float64
	var hasStreamDuration bool

	for _, stream := range raw.Streams {
		switch stream.CodecType {
		case "video":
			if res.VideoCodec == "" {
				res.VideoCodec = stream.CodecName
				res.Width = stream.Width
				res.Height = stream.Height
				res.Profile = stream.Profile
				res.PixelFormat = stream.PixFmt
				res.AvgFrameRate = parseFrameRate(stream.RFrameRate)
				if res.AvgFrameRate == 0 {
					res.AvgFrameRate = parseFrameRate(stream.AvgFrameRate)
				}
				if d, ok := parseFloat(stream.Duration); ok {
					streamDuration = d
					hasStreamDuration = true
				}
			}
		case "audio":
			if res.AudioCodec == "" {
				res.AudioCodec = stream.CodecName
				if sr, err := strconv.Atoi(stream.SampleRate); err == nil {
					res.SampleRate = sr
				}
			}
		}
	}

	switch {
	case hasStreamDuration && streamDuration > 0:
		res.Duration = streamDuration
	case hasContainerDuration && containerDuration > 0:
		res.Duration = containerDuration
	default:
		res.Duration = 0
		res.DurationUnknown = true
	}

	return res, nil
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseFrameRate parses a frame rate string like "30000/1001" or "30/1".
func parseFrameRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	num, _ := strconv.ParseFloat(parts[0], 64)
	den, _ := strconv.ParseFloat(parts[1], 64)
	if den == 0 {
		return 0
	}
	return num / den
}
