package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// EnsureFileLimit raises the soft RLIMIT_NOFILE to at least need, capped at
// the hard limit. It never lowers the limit and returns the limit in effect.
func EnsureFileLimit(need uint64) (uint64, error) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, fmt.Errorf("не удалось получить лимит файлов: %w", err)
	}

	target := fileLimitTarget(uint64(rLimit.Cur), uint64(rLimit.Max), need)
	if target == uint64(rLimit.Cur) {
		return target, nil
	}

	rLimit.Cur = target
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return uint64(rLimit.Cur), fmt.Errorf("не удалось установить лимит файлов: %w", err)
	}
	fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", target)
	return target, nil
}

func fileLimitTarget(cur, hard, need uint64) uint64 {
	if need <= cur {
		return cur
	}
	return min(need, hard)
}

// FindScripts returns every .txt and .srt script in dir in lexical order.
func FindScripts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var scripts []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(f.Name())) {
		case ".txt", ".srt":
			scripts = append(scripts, filepath.Join(dir, f.Name()))
		}
	}
	sort.Strings(scripts)

	if len(scripts) == 0 {
		return nil, fmt.Errorf("в папке %s не найдено сценариев (.txt, .srt)", dir)
	}
	return scripts, nil
}

// GetAudioDuration measures a media file with ffprobe.
func GetAudioDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

func GetBestH264Encoder() (string, string) {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264", ""
	}
	for _, enc := range encoders {
		if strings.Contains(string(out), enc.name) {
			return enc.name, enc.args
		}
	}

	return "libx264", ""
}

// DefaultQuality picks a quality value for the encoder when none is configured.
func DefaultQuality(encoderName string) int {
	switch encoderName {
	case "h264_videotoolbox":
		return 75 // битрейт = Q*100 кбит/с
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

var (
	filterOnce sync.Once
	filterList string
)

// CheckFilterSupport reports whether the local ffmpeg build has the named filter.
func CheckFilterSupport(name string) bool {
	filterOnce.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-filters").CombinedOutput()
		if err == nil {
			filterList = string(out)
		}
	})
	for _, line := range strings.Split(filterList, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
