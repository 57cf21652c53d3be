package thumbnail

import "testing"

func TestNewDefaultsEmptyFFmpegPath(t *testing.T) {
	g := New("", "/tmp")
	if g.ffmpegPath != "ffmpeg" {
		t.Fatalf("expected default ffmpeg path, got %q", g.ffmpegPath)
	}
}

func TestNewKeepsExplicitFFmpegPath(t *testing.T) {
	g := New("/opt/bin/ffmpeg", "/tmp")
	if g.ffmpegPath != "/opt/bin/ffmpeg" {
		t.Fatalf("expected explicit ffmpeg path preserved, got %q", g.ffmpegPath)
	}
	if g.outputDir != "/tmp" {
		t.Fatalf("expected output dir preserved, got %q", g.outputDir)
	}
}
