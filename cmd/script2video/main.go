package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/engine"
	"github.com/ivlev/script2video/internal/system"
	"github.com/ivlev/script2video/internal/tts"
	"github.com/ivlev/script2video/internal/video"
)

// version задаётся при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPtr := flag.String("config", "config.yaml", "Путь к YAML конфигурации")
	envPtr := flag.String("env", ".env", "Файл с переменными окружения S2V_*")
	inputPtr := flag.String("input", "", "Сценарий (.txt/.srt) или папка со сценариями (по умолчанию: input_dir из конфигурации)")
	imagesPtr := flag.String("images", "", "Папка с изображениями или PDF")
	musicPtr := flag.String("music", "", "Фоновая музыка")
	outputPtr := flag.String("output", "", "Папка для результатов")
	narrationPtr := flag.String("narration", "", "Папка с готовой озвучкой (001.wav, 002.mp3, ...)")
	profilesPtr := flag.String("profiles", "", "Профили через запятую, например: landscape,vertical")
	fpsPtr := flag.Int("fps", 0, "FPS")
	workersPtr := flag.Int("workers", 0, "Потоки синтеза речи (0 - авто)")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	keepPtr := flag.Bool("keep-work", false, "Не удалять рабочую папку")
	statsPtr := flag.Bool("stats", false, "Показать отчёт о производительности")

	flag.Parse()

	if err := godotenv.Load(*envPtr); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[!] Не удалось прочитать %s: %v", *envPtr, err)
	}

	cfg, err := config.Load(*configPtr, true)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.ApplyEnv()
	cfg.BuildVersion = version

	if *imagesPtr != "" {
		cfg.Images = *imagesPtr
	}
	if *musicPtr != "" {
		cfg.Music = *musicPtr
	}
	if *outputPtr != "" {
		cfg.OutputDir = *outputPtr
	}
	if *narrationPtr != "" {
		cfg.NarrationDir = *narrationPtr
	}
	if *fpsPtr > 0 {
		cfg.Render.FPS = *fpsPtr
	}
	if *workersPtr > 0 {
		cfg.Synthesis.Workers = *workersPtr
	}
	if *qualityPtr > 0 {
		cfg.Render.Quality = *qualityPtr
	}
	cfg.KeepWorkDir = cfg.KeepWorkDir || *keepPtr
	cfg.ShowStats = cfg.ShowStats || *statsPtr

	if *profilesPtr != "" {
		cfg.Render.Profiles, err = selectProfiles(cfg.Render.Profiles, *profilesPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка: %v", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	encoderName := cfg.Render.VideoEncoder
	if encoderName == "" {
		encoderName, _ = system.GetBestH264Encoder()
		if encoderName != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
		}
	}
	quality := cfg.Render.Quality
	if quality == 0 {
		quality = system.DefaultQuality(encoderName)
	}

	burnSubtitles := system.CheckFilterSupport("subtitles")
	if !burnSubtitles {
		log.Printf("[!] ffmpeg собран без libass: субтитры не будут вшиты, остаётся только .srt")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}

	// Инициализируем зависимости
	synth := tts.NewClient(cfg.Synthesis)
	ve := &video.FFmpegEncoder{VideoEncoder: encoderName, Quality: quality, BurnSubtitles: burnSubtitles}
	project := engine.NewProject(cfg, synth, ve)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input := *inputPtr
	if input == "" {
		input = cfg.InputDir
	}

	fi, err := os.Stat(input)
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}

	if fi.IsDir() {
		reports, err := project.RunAll(ctx, input)
		fmt.Printf("[*] Обработано сценариев: %d\n", len(reports))
		if err != nil {
			log.Fatalf("[-] Ошибка пакетной обработки: %v", err)
		}
		fmt.Println("[+++] Успех! Все сценарии отрендерены")
		return
	}

	report, err := project.Run(ctx, input)
	if err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}
	if report.Failed() {
		os.Exit(1)
	}
	fmt.Printf("[+++] Успех! Результаты в %s\n", cfg.OutputDir)
}

func selectProfiles(all []config.AspectProfile, list string) ([]config.AspectProfile, error) {
	byName := make(map[string]config.AspectProfile, len(all))
	for _, p := range all {
		byName[p.Name] = p
	}

	var out []config.AspectProfile
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("неизвестный профиль %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}
