// Command app polls Todoist and keeps the most urgent task on an e-paper panel.
//
// Usage:
//
//	app [run]                         poll and render until SIGINT/SIGTERM
//	app clear                         blank the panel and put it to sleep
//	app text -title T [-subtitle S]   draw text once
//	app image -file PATH              draw an image once
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/config"
	"github.com/BuzzLyutic/todo-display/internal/gate"
	"github.com/BuzzLyutic/todo-display/internal/handler"
	"github.com/BuzzLyutic/todo-display/internal/render"
	"github.com/BuzzLyutic/todo-display/internal/repo"
	"github.com/BuzzLyutic/todo-display/internal/service"
	"github.com/BuzzLyutic/todo-display/internal/todoist"
	"github.com/BuzzLyutic/todo-display/internal/worker"
)

func main() {
	cmd, args := "run", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	if cmd == "help" {
		printUsage()
		return
	}

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "todo-display: %v\n", err)
		os.Exit(1)
	}

	// Подключаем логгер
	logger := newLogger(cfg.LogDevelopment)
	defer logger.Sync()

	// Сигналы отменяют контекст, и панель засыпает через defer в каждой команде
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		err = runDaemon(ctx, cfg, logger)
	case "clear":
		err = runClear(ctx, cfg, logger)
	case "text":
		err = runText(ctx, cfg, logger, args)
	case "image":
		err = runImage(ctx, cfg, logger, args)
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("interrupted", zap.String("command", cmd), zap.Error(err))
			return
		}
		logger.Fatal("todo-display failed", zap.String("command", cmd), zap.Error(err))
	}
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runDaemon(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// Без токена работа теряет смысл: падаем до первого цикла
	client, err := todoist.NewClient(cfg.TodoistToken,
		todoist.WithBaseURL(cfg.TodoistBaseURL),
		// Запрос не должен пережить интервал опроса
		todoist.WithHTTPClient(&http.Client{Timeout: cfg.PollInterval}),
		todoist.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("todoist client (set TODOIST_PERSONAL_TOKEN): %w", err)
	}

	fonts, err := render.LoadFonts(cfg.FontPath)
	if err != nil {
		return err
	}
	defer fonts.Close()

	panel, err := openPanel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownPanel(panel, logger)

	// Журнал отрисовок опционален
	var journal repo.RenderJournal
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		logger.Info("Successfully connected to the Database!")
		journal = repo.NewJournalRepo(pool)
	}

	g := gate.New()
	renderer := render.NewRenderer(panel, fonts, logger)
	cycle := service.NewCycle(
		service.NewTaskSource(client),
		g,
		renderer,
		journal,
		service.IdleScreen{Title: cfg.IdleTitle, ImagePath: cfg.IdleImage},
		logger,
	)

	poller := worker.NewPoller(cycle, logger, cfg.PollInterval)
	poller.Start(ctx)

	r := handler.NewStatusHandler(g, journal, logger).Routes()
	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logger(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Status server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	logger.Info("Shutting down...")
	poller.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Stopped successfully!")
	return nil
}

func runClear(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	panel, err := openPanel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownPanel(panel, logger)

	return panel.Clear(ctx)
}

func runText(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("text", flag.ContinueOnError)
	title := fs.String("title", "", "Title (required)")
	subtitle := fs.String("subtitle", "", "Optional subtitle")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*title) == "" {
		return errors.New("-title is required")
	}

	fonts, err := render.LoadFonts(cfg.FontPath)
	if err != nil {
		return err
	}
	defer fonts.Close()

	panel, err := openPanel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownPanel(panel, logger)

	return render.NewRenderer(panel, fonts, logger).RenderTitle(ctx, *title, *subtitle)
}

func runImage(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("image", flag.ContinueOnError)
	file := fs.String("file", "", "Path to a PNG, JPEG, GIF, BMP or WebP image (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" {
		return errors.New("-file is required")
	}

	panel, err := openPanel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownPanel(panel, logger)

	return render.NewRenderer(panel, nil, logger).RenderImageFile(ctx, *file)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  app [run]                         poll Todoist and keep the display current
  app clear                         blank the panel and put it to sleep
  app text -title T [-subtitle S]   draw text once
  app image -file PATH              draw an image once

Configuration comes from TODO_DISPLAY_CONFIG (YAML) and environment variables.
`)
}
