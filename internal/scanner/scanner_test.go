package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gwlsn/vdupes/internal/settings"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	data := make([]byte, size)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"), 100)
	writeFile(t, filepath.Join(root, "b.txt"), 100)

	cfg := settings.Default()
	cfg.Directories = []settings.Directory{{Path: root, Recursive: true}}
	cfg.Compile()

	s := New()
	infos, err := s.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 video, got %d: %+v", len(infos), infos)
	}
}

func TestScanRespectsSizeBounds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.mp4"), 10)
	writeFile(t, filepath.Join(root, "big.mp4"), 1000)

	min := int64(500)
	cfg := settings.Default()
	cfg.Directories = []settings.Directory{{Path: root, Recursive: true}}
	cfg.MinBytes = &min
	cfg.Compile()

	s := New()
	infos, err := s.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 video above min_bytes, got %d", len(infos))
	}
}

func TestScanNonRecursiveSkipsSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.mp4"), 100)
	writeFile(t, filepath.Join(root, "sub", "nested.mp4"), 100)

	cfg := settings.Default()
	cfg.Directories = []settings.Directory{{Path: root, Recursive: false}}
	cfg.Compile()

	s := New()
	infos, err := s.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 top-level video, got %d", len(infos))
	}
}

func TestScanEmptyDirectoriesProducesNothing(t *testing.T) {
	cfg := settings.Default()
	cfg.Compile()

	s := New()
	infos, err := s.Scan(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no videos for empty directory list, got %d", len(infos))
	}
}
