package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-display/internal/config"
	"github.com/BuzzLyutic/todo-display/internal/display"
)

// newPanel constructs the configured panel without touching the hardware.
var newPanel = func(cfg config.Config, logger *zap.Logger) (display.Panel, error) {
	if cfg.Panel == config.PanelPNG {
		return display.NewPNGPanel(cfg.PNGPath, cfg.PNGWidth, cfg.PNGHeight, logger), nil
	}
	pins := display.EPDPins{SPIPort: cfg.SPIPort, DC: cfg.DCPin, RST: cfg.RSTPin, BUSY: cfg.BUSYPin}
	return display.OpenEPD7in5V2(pins, logger)
}

// openPanel opens and initialises the configured panel. The caller owns it
// and must release it with shutdownPanel. A failed or interrupted Init still
// puts the panel to sleep.
func openPanel(ctx context.Context, cfg config.Config, logger *zap.Logger) (display.Panel, error) {
	panel, err := newPanel(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := panel.Init(ctx); err != nil {
		shutdownPanel(panel, logger)
		return nil, fmt.Errorf("init panel: %w", err)
	}
	w, h := panel.Size()
	logger.Info("Panel ready", zap.String("panel", cfg.Panel), zap.Int("width", w), zap.Int("height", h))
	return panel, nil
}

// shutdownPanel puts the panel into deep sleep and releases it. It uses its
// own deadline so it still runs after the command's context was cancelled.
func shutdownPanel(panel display.Panel, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := panel.Sleep(ctx); err != nil {
		logger.Warn("failed to put panel to sleep", zap.Error(err))
	}
	if err := panel.Close(); err != nil {
		logger.Warn("failed to close panel", zap.Error(err))
	}
}
