package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/toyscene/internal/config"
	"github.com/ivlev/toyscene/internal/engine"
	"github.com/ivlev/toyscene/internal/export"
	"github.com/ivlev/toyscene/internal/metrics"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	configPtr := flag.String("config", "", "Путь к YAML-конфигурации (по умолчанию: встроенные значения)")
	outputPtr := flag.String("output", "", "Каталог результата (переопределяет output из конфигурации)")
	encodingPtr := flag.String("encoding", "", "Формат кадров: raw, jpg, png, tiff")
	seedPtr := flag.Int64("seed", 0, "Зерно генератора (0 - из конфигурации)")
	scenesPtr := flag.Int("scenes", 0, "Количество сцен")
	workersPtr := flag.Int("workers", 0, "Потоки")
	horizonPtr := flag.Int("horizon", 0, "Количество временных шагов")
	overwritePtr := flag.Bool("overwrite", false, "Перезаписать существующий каталог")
	metricsPtr := flag.String("metrics-addr", "", "Адрес для /metrics (например, :9100)")
	writeConfigPtr := flag.String("write-config", "", "Сохранить итоговую конфигурацию в файл и выйти")
	logLevelPtr := flag.String("log-level", "", "Уровень логов: debug, info, warn, error")
	previewPtr := flag.String("preview", "", "Сохранить первый кадр сцены 0 в .npy и выйти")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Конфигурация: %s\n", *configPtr)
	}

	// Флаги имеют приоритет над файлом
	if *outputPtr != "" {
		cfg.Output = *outputPtr
	}
	if *encodingPtr != "" {
		cfg.Encoding = *encodingPtr
	}
	if *seedPtr != 0 {
		cfg.Seed = *seedPtr
	}
	if *scenesPtr > 0 {
		cfg.Scenes = *scenesPtr
	}
	if *workersPtr > 0 {
		cfg.Workers = *workersPtr
	}
	if *horizonPtr > 0 {
		cfg.Scene.Horizon = *horizonPtr
	}
	if *overwritePtr {
		cfg.Overwrite = true
	}
	if *metricsPtr != "" {
		cfg.MetricsAddr = *metricsPtr
	}
	if *logLevelPtr != "" {
		cfg.LogLevel = *logLevelPtr
	}

	if *writeConfigPtr != "" {
		if err := config.Save(cfg, *writeConfigPtr); err != nil {
			log.Fatalf("[-] Ошибка записи конфигурации: %v", err)
		}
		fmt.Printf("[+++] Конфигурация сохранена: %s\n", *writeConfigPtr)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	project, err := engine.NewProject(cfg, logger)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	if *previewPtr != "" {
		s, err := project.BuildScene(0)
		if err != nil {
			log.Fatalf("[-] Ошибка построения сцены: %v", err)
		}
		view, err := s.View()
		if err != nil {
			log.Fatalf("[-] Ошибка предпросмотра: %v", err)
		}
		if err := export.SaveNPY(*previewPtr, view); err != nil {
			log.Fatalf("[-] Ошибка записи предпросмотра: %v", err)
		}
		fmt.Printf("[+++] Предпросмотр (%d объектов) сохранен: %s\n", s.Len(), *previewPtr)
		return
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listen error", "error", err)
			}
		}()
		defer srv.Close()
		fmt.Printf("[*] Метрики: http://%s/metrics\n", cfg.MetricsAddr)
	}

	// Прерывание между шагами не портит уже записанные кадры
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("--- [TOYSCENE] ---")
	fmt.Printf("[*] Сцен: %d | Размер: %dx%d | Каналов: %d | Шагов: %d\n",
		cfg.Scenes, cfg.Scene.Width, cfg.Scene.Height, cfg.Scene.Bands, cfg.Scene.Horizon)
	fmt.Printf("[*] Размещение: %s | Объектов: %d (%s) | Формат: %s\n",
		cfg.Scene.Placement, cfg.Objects.Count, cfg.Objects.Kind, cfg.Encoding)
	fmt.Println("------------------")

	start := time.Now()
	results, err := project.Run(ctx)
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("[!] Сцена %d: %v\n", r.Index, r.Err)
		case r.Dir != "":
			fmt.Printf("[>] Сцена %d: %d кадров -> %s (%.2fs)\n", r.Index, r.Frames, r.Dir, r.Duration.Seconds())
		}
	}
	if err != nil {
		log.Fatalf("[-] Ошибка генерации: %v", err)
	}

	fmt.Printf("[+++] Успех! %d сцен за %.2fs: %s\n", len(results), time.Since(start).Seconds(), cfg.Output)
}
