package decoder

import (
	"context"
	"errors"
	"testing"

	"github.com/gwlsn/vdupes/internal/prober"
	"github.com/gwlsn/vdupes/internal/settings"
)

func TestNewSamplerSelectsByMethod(t *testing.T) {
	fast := NewSampler("ffmpeg", settings.Fast)
	if _, ok := fast.(*fastSampler); !ok {
		t.Fatalf("expected *fastSampler for Fast method")
	}

	slow := NewSampler("ffmpeg", settings.Slow)
	if _, ok := slow.(*slowSampler); !ok {
		t.Fatalf("expected *slowSampler for Slow method")
	}
}

func TestNativeDimsFallsBackToTileSizeWhenUnknown(t *testing.T) {
	w, h := nativeDims(&prober.Result{Width: 0, Height: 0})
	if w != 32 || h != 32 {
		t.Fatalf("expected 32x32 fallback, got %dx%d", w, h)
	}
}

func TestNativeDimsUsesProbedResolution(t *testing.T) {
	w, h := nativeDims(&prober.Result{Width: 1920, Height: 1080})
	if w != 1920 || h != 1080 {
		t.Fatalf("expected probed resolution preserved, got %dx%d", w, h)
	}
}

func TestFastSamplerFailsOnUnknownDuration(t *testing.T) {
	s := NewSampler("ffmpeg", settings.Fast)
	probed := &prober.Result{DurationUnknown: true}
	cfg := settings.Default()

	_, err := s.Sample(context.Background(), "nonexistent.mp4", probed, cfg)
	if !errors.Is(err, ErrDurationUnknown) {
		t.Fatalf("expected ErrDurationUnknown, got %v", err)
	}
}
