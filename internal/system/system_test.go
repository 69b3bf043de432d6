package system

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindScripts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.srt", "a.txt", "notes.md", "c.TXT"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
	}
	os.Mkdir(filepath.Join(dir, "sub.txt"), 0755)

	scripts, err := FindScripts(dir)
	if err != nil {
		t.Fatalf("FindScripts failed: %v", err)
	}

	want := []string{"a.txt", "b.srt", "c.TXT"}
	if len(scripts) != len(want) {
		t.Fatalf("Expected %d scripts, got %v", len(want), scripts)
	}
	for i, w := range want {
		if filepath.Base(scripts[i]) != w {
			t.Errorf("scripts[%d] = %s, want %s", i, scripts[i], w)
		}
	}
}

func TestFindScriptsEmpty(t *testing.T) {
	if _, err := FindScripts(t.TempDir()); err == nil {
		t.Error("Expected error for directory without scripts")
	}
}

func TestRecommendedWorkers(t *testing.T) {
	if n := RecommendedWorkers(0); n < 1 {
		t.Errorf("RecommendedWorkers(0) = %d", n)
	}
	if n := RecommendedWorkers(1); n != 1 {
		t.Errorf("RecommendedWorkers(1) = %d, want 1", n)
	}
}

func TestDefaultQuality(t *testing.T) {
	tests := map[string]int{
		"h264_videotoolbox": 75,
		"h264_nvenc":        28,
		"libx264":           23,
		"":                  23,
	}
	for enc, want := range tests {
		if got := DefaultQuality(enc); got != want {
			t.Errorf("DefaultQuality(%q) = %d, want %d", enc, got, want)
		}
	}
}

func TestFramePoolReuse(t *testing.T) {
	img := GetFrame(64, 32)
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Fatalf("Unexpected bounds %v", img.Bounds())
	}
	PutFrame(img)

	again := GetFrame(64, 32)
	if again.Bounds() != img.Bounds() {
		t.Errorf("Expected same size buffer, got %v", again.Bounds())
	}

	other := GetFrame(10, 10)
	if other.Bounds().Dx() != 10 {
		t.Errorf("Expected 10px buffer, got %v", other.Bounds())
	}
}

func TestFileLimitTarget(t *testing.T) {
	tests := []struct {
		cur, hard, need uint64
		want            uint64
	}{
		{1024, 65536, 264, 1024},
		{256, 65536, 2064, 2064},
		{256, 1000, 2064, 1000},
		{4096, 4096, 4096, 4096},
	}
	for _, tt := range tests {
		if got := fileLimitTarget(tt.cur, tt.hard, tt.need); got != tt.want {
			t.Errorf("fileLimitTarget(%d, %d, %d) = %d, want %d", tt.cur, tt.hard, tt.need, got, tt.want)
		}
	}
}

func TestEnsureFileLimitNeverLowers(t *testing.T) {
	before, err := EnsureFileLimit(0)
	if err != nil {
		t.Skipf("rlimit not available: %v", err)
	}
	after, err := EnsureFileLimit(1)
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Errorf("limit changed from %d to %d for a smaller need", before, after)
	}
}
