package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/script2video/internal/binder"
	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/effects"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/source"
	"github.com/ivlev/script2video/internal/system"
	"github.com/ivlev/script2video/internal/timeline"
	"github.com/ivlev/script2video/internal/tts"
	"github.com/ivlev/script2video/internal/video"
)

// MeasureFunc measures the playable length of a media file.
type MeasureFunc func(ctx context.Context, path string) (time.Duration, error)

type Project struct {
	Config      *config.Config
	Synthesizer tts.Synthesizer
	Encoder     video.Encoder
	Effect      effects.Effect
	Measure     MeasureFunc
}

func NewProject(cfg *config.Config, synth tts.Synthesizer, enc video.Encoder) *Project {
	return &Project{
		Config:      cfg,
		Synthesizer: synth,
		Encoder:     enc,
		Effect:      &effects.DefaultEffect{},
		Measure:     system.GetAudioDuration,
	}
}

// Report summarizes one script run.
type Report struct {
	ScriptID     string
	ScriptPath   string
	Kind         script.SourceKind
	Segments     int
	Duration     time.Duration
	SubtitlePath string
	ManifestPath string
	Results      []video.RenderResult
	Elapsed      time.Duration
}

// Failed reports whether any profile failed to render.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

func (p *Project) measure(ctx context.Context, path string) (time.Duration, error) {
	if p.Measure == nil {
		return system.GetAudioDuration(ctx, path)
	}
	return p.Measure(ctx, path)
}

// ScriptID is the script file name without its extension.
func ScriptID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run takes one script through parse, bind, synthesis, timeline and render.
// Errors before rendering are returned as *StageError; render failures are
// reported per profile in Report.Results.
func (p *Project) Run(ctx context.Context, scriptPath string) (*Report, error) {
	startTime := time.Now()
	cfg := p.Config
	report := &Report{ScriptID: ScriptID(scriptPath), ScriptPath: scriptPath}

	// 1. Разбор сценария
	segs, kind, err := script.ParseFile(scriptPath, script.Options{Boundary: cfg.Script.Boundary})
	if err != nil {
		return nil, stageErr(StageParse, err)
	}
	report.Kind = kind
	report.Segments = len(segs)

	// Каждая картинка и каждая реплика - отдельный вход ffmpeg
	need := openFilesFor(len(segs))
	if limit, err := system.EnsureFileLimit(need); err != nil {
		log.Printf("[!] %v", err)
	} else if limit < need {
		log.Printf("[!] Лимит открытых файлов %d меньше нужного %d", limit, need)
	}

	fmt.Println("--- [PROJECT: SCRIPT2VIDEO] ---")
	fmt.Printf("[*] Сценарий: %s | Тип: %s | Реплик: %d\n", scriptPath, kind, len(segs))
	fmt.Printf("[*] Изображения: %s | Музыка: %s\n", cfg.Images, orNone(cfg.Music))
	fmt.Println("-----------------------------")

	workDir, err := p.makeWorkDir(report.ScriptID)
	if err != nil {
		return nil, err
	}
	if cfg.KeepWorkDir {
		fmt.Printf("[*] Рабочая папка сохранится: %s\n", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	// 2. Привязка изображений (до синтеза речи)
	images, err := p.bind(segs, workDir)
	if err != nil {
		return nil, stageErr(StageBind, err)
	}

	// 3. Озвучка
	synthStart := time.Now()
	narrations, err := p.narrate(ctx, segs, workDir)
	if err != nil {
		return nil, stageErr(StageSynthesize, err)
	}
	synthTime := time.Since(synthStart)

	// 4. Таймлайн
	music := p.backgroundMusic(ctx)
	tl, err := timeline.Build(segs, narrations, images, music, timeline.Options{MinCueDuration: cfg.Timeline.MinCueDuration})
	if err != nil {
		return nil, stageErr(StageTimeline, err)
	}
	report.Duration = tl.Duration()
	fmt.Printf("[*] Таймлайн: %d отрезков, %.2fs\n", tl.Len(), tl.Duration().Seconds())

	report.SubtitlePath = filepath.Join(cfg.OutputDir, report.ScriptID+".generated.srt")
	if err := tl.WriteSRT(report.SubtitlePath); err != nil {
		return nil, stageErr(StageTimeline, err)
	}
	report.ManifestPath = filepath.Join(cfg.OutputDir, report.ScriptID+".timeline.yaml")
	if err := tl.WriteManifest(report.ManifestPath); err != nil {
		return nil, stageErr(StageTimeline, err)
	}

	// 5. Рендер профилей
	renderStart := time.Now()
	r := &video.Renderer{
		Encoder:    p.Encoder,
		OutputDir:  cfg.OutputDir,
		WorkDir:    filepath.Join(workDir, "render"),
		Timeout:    cfg.Render.Timeout,
		Sequential: cfg.Render.Sequential || system.LowMemory(),
		Spec: video.SpecOptions{
			FPS:       cfg.Render.FPS,
			Motion:    cfg.Render.Motion,
			ZoomSpeed: cfg.Render.ZoomSpeed,
			Effect:    p.Effect,
		},
		QR: cfg.Render.QR,
	}
	if r.Sequential && !cfg.Render.Sequential {
		fmt.Println("[!] Мало свободной памяти, профили рендерятся по очереди")
	}
	report.Results = r.RenderAll(ctx, tl, cfg.Render.Profiles, report.ScriptID)
	renderTime := time.Since(renderStart)

	for _, res := range report.Results {
		if res.Err != nil {
			log.Printf("[!] Ошибка рендера %s: %v", res.Profile, res.Err)
			continue
		}
		fmt.Printf("[+] %s: %s (%.2fs)\n", res.Profile, res.OutputPath, res.Elapsed.Seconds())
	}

	report.Elapsed = time.Since(startTime)
	if cfg.ShowStats {
		p.printStats(report, synthTime, renderTime)
	}
	return report, nil
}

// RunAll runs every script found in inputDir. A failed script is logged and
// does not stop the batch; the joined errors are returned at the end.
func (p *Project) RunAll(ctx context.Context, inputDir string) ([]*Report, error) {
	scripts, err := system.FindScripts(inputDir)
	if err != nil {
		return nil, err
	}
	if err := uniqueScriptIDs(scripts); err != nil {
		return nil, err
	}

	var reports []*Report
	var errs []error
	for i, path := range scripts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		fmt.Printf("[>] Сценарий %d/%d: %s\n", i+1, len(scripts), filepath.Base(path))

		report, err := p.Run(ctx, path)
		if err != nil {
			log.Printf("[!] %s: %v", filepath.Base(path), err)
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		if report.Failed() {
			errs = append(errs, fmt.Errorf("%s: не все профили отрендерены", filepath.Base(path)))
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// uniqueScriptIDs fails when two scripts would write to the same outputs,
// e.g. a.txt and a.srt.
func uniqueScriptIDs(scripts []string) error {
	seen := make(map[string]string, len(scripts))
	for _, path := range scripts {
		id := ScriptID(path)
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("сценарии %s и %s дают одинаковые имена результатов (%s)",
				filepath.Base(prev), filepath.Base(path), id)
		}
		seen[id] = path
	}
	return nil
}

func (p *Project) makeWorkDir(scriptID string) (string, error) {
	runID := strings.Split(uuid.NewString(), "-")[0]
	if p.Config.WorkDir == "" {
		return os.MkdirTemp("", fmt.Sprintf("script2video_%s_%s_", scriptID, runID))
	}
	dir := filepath.Join(p.Config.WorkDir, scriptID+"_"+runID)
	return dir, os.MkdirAll(dir, 0755)
}

func (p *Project) bind(segs []script.Segment, workDir string) ([]binder.ImageResource, error) {
	cfg := p.Config
	src, err := source.Open(cfg.Images, source.Options{DPI: cfg.Render.PDFDPI, MaxEdge: maxEdge(cfg.Render.Profiles)})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := binder.CheckCount(len(segs), src.PageCount()); err != nil {
		return nil, err
	}
	pool, err := src.Materialize(workDir)
	if err != nil {
		return nil, err
	}
	return binder.Bind(segs, pool)
}

// backgroundMusic is nil when no music is configured or the file is missing.
func (p *Project) backgroundMusic(ctx context.Context) *timeline.BackgroundMusic {
	path := p.Config.Music
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Printf("[!] Фоновая музыка не найдена (%s), видео будет без неё", path)
		return nil
	}

	music := &timeline.BackgroundMusic{Path: path, Loop: true, GainDB: p.Config.Timeline.MusicGainDB}
	d, err := p.measure(ctx, path)
	if err != nil {
		log.Printf("[!] Не удалось измерить длительность музыки: %v", err)
		return music
	}
	music.SourceDuration = d
	fmt.Printf("[*] Фоновая музыка: %.1fs, %.1f dB (x%.2f)\n", d.Seconds(), music.GainDB, music.Volume())
	return music
}

// openFilesFor estimates descriptors one ffmpeg process needs: an image and a
// narration input per segment plus music, QR, output and ffmpeg's own files.
func openFilesFor(segments int) uint64 {
	return uint64(2*segments) + 64
}

func (p *Project) printStats(r *Report, synthTime, renderTime time.Duration) {
	fmt.Printf("--- [PERFORMANCE REPORT] ---\n"+
		"Build: %s\n"+
		"Script: %s (%d segments, %.2fs)\n"+
		"Total Time: %.2fs\n"+
		"Synthesis: %.2fs\n"+
		"Rendering: %.2fs\n"+
		"----------------------------\n",
		p.Config.BuildVersion, r.ScriptID, r.Segments, r.Duration.Seconds(),
		r.Elapsed.Seconds(), synthTime.Seconds(), renderTime.Seconds(),
	)

	logEntry := fmt.Sprintf("[%s] Build: %s | Script: %s | Segments: %d | Video: %.2fs | Total: %.2fs | Synthesis: %.2fs | Render: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		r.ScriptID,
		r.Segments,
		r.Duration.Seconds(),
		r.Elapsed.Seconds(),
		synthTime.Seconds(),
		renderTime.Seconds(),
	)

	f, err := os.OpenFile(filepath.Join(p.Config.OutputDir, "benchmark.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}

func maxEdge(profiles []config.AspectProfile) int {
	edge := 0
	for _, p := range profiles {
		edge = max(edge, p.Width, p.Height)
	}
	return edge
}

func orNone(s string) string {
	if s == "" {
		return "нет"
	}
	return s
}
