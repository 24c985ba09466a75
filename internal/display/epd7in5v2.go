package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/BuzzLyutic/todo-display/internal/bitmap"
)

// Waveshare 7.5" V2 geometry.
const (
	EPD7in5V2Width  = 800
	EPD7in5V2Height = 480
)

const (
	cmdPanelSetting   = 0x00
	cmdPowerSetting   = 0x01
	cmdPowerOff       = 0x02
	cmdPowerOn        = 0x04
	cmdBoosterSoft    = 0x06
	cmdDeepSleep      = 0x07
	cmdOldData        = 0x10
	cmdRefresh        = 0x12
	cmdNewData        = 0x13
	cmdDualSPI        = 0x15
	cmdVCOMInterval   = 0x50
	cmdTCON           = 0x60
	cmdResolution     = 0x61
	cmdGetStatus      = 0x71
	deepSleepCheck    = 0xA5
	maxTxChunk        = 4096
	defaultBusyPoll   = 20 * time.Millisecond
	defaultBusyWait   = 40 * time.Second
	defaultSPIFreq    = 4 * physic.MegaHertz
	defaultSPIBitsPer = 8
)

// Transport is the subset of spi.Conn the driver needs.
type Transport interface {
	Tx(w, r []byte) error
}

type OutputPin interface {
	Out(l gpio.Level) error
}

type InputPin interface {
	Read() gpio.Level
}

// EPDPins names the GPIO lines wired to the panel (BCM numbering by default).
type EPDPins struct {
	SPIPort string
	DC      string
	RST     string
	BUSY    string
}

// DefaultEPDPins matches the Waveshare e-Paper HAT on a Raspberry Pi.
var DefaultEPDPins = EPDPins{SPIPort: "", DC: "GPIO25", RST: "GPIO17", BUSY: "GPIO24"}

// EPD7in5V2 drives a Waveshare 7.5" V2 black/white e-paper panel over SPI.
type EPD7in5V2 struct {
	conn   Transport
	dc     OutputPin
	rst    OutputPin
	busy   InputPin
	port   io.Closer
	logger *zap.Logger

	delay    func(ctx context.Context, d time.Duration) error
	busyPoll time.Duration
	busyWait time.Duration
}

// EPDOption tweaks the driver, mostly for tests.
type EPDOption func(*EPD7in5V2)

// WithDelay replaces the sleep used for reset pulses and busy polling.
func WithDelay(fn func(ctx context.Context, d time.Duration) error) EPDOption {
	return func(e *EPD7in5V2) { e.delay = fn }
}

// WithBusyTimeout bounds how long the driver waits for the BUSY line.
func WithBusyTimeout(d time.Duration) EPDOption {
	return func(e *EPD7in5V2) { e.busyWait = d }
}

// NewEPD7in5V2 wires a driver to already opened lines.
func NewEPD7in5V2(conn Transport, dc, rst OutputPin, busy InputPin, logger *zap.Logger, opts ...EPDOption) *EPD7in5V2 {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &EPD7in5V2{
		conn:     conn,
		dc:       dc,
		rst:      rst,
		busy:     busy,
		logger:   logger,
		delay:    sleepCtx,
		busyPoll: defaultBusyPoll,
		busyWait: defaultBusyWait,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// OpenEPD7in5V2 initialises the periph.io host drivers and opens the SPI port
// and GPIO lines named in pins.
func OpenEPD7in5V2(pins EPDPins, logger *zap.Logger, opts ...EPDOption) (*EPD7in5V2, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %w", ErrHardware, err)
	}
	port, err := spireg.Open(pins.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("%w: open SPI port %q: %w", ErrHardware, pins.SPIPort, err)
	}
	conn, err := port.Connect(defaultSPIFreq, spi.Mode0, defaultSPIBitsPer)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: connect SPI: %w", ErrHardware, err)
	}

	dc := gpioreg.ByName(pins.DC)
	rst := gpioreg.ByName(pins.RST)
	busy := gpioreg.ByName(pins.BUSY)
	if dc == nil || rst == nil || busy == nil {
		port.Close()
		return nil, fmt.Errorf("%w: GPIO lines not found (dc=%s rst=%s busy=%s)", ErrHardware, pins.DC, pins.RST, pins.BUSY)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: configure BUSY: %w", ErrHardware, err)
	}

	e := NewEPD7in5V2(conn, dc, rst, busy, logger, opts...)
	e.port = port
	return e, nil
}

func (e *EPD7in5V2) Size() (int, int) { return EPD7in5V2Width, EPD7in5V2Height }

func (e *EPD7in5V2) bufferSize() int { return EPD7in5V2Width / 8 * EPD7in5V2Height }

// Init resets the controller and loads the power and panel settings.
func (e *EPD7in5V2) Init(ctx context.Context) error {
	e.logger.Info("Initialising 7.5 inch e-paper panel")
	if err := e.reset(ctx); err != nil {
		return err
	}
	steps := []struct {
		cmd  byte
		data []byte
	}{
		{cmdBoosterSoft, []byte{0x17, 0x17, 0x28, 0x17}},
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3f, 0x3f}},
	}
	for _, s := range steps {
		if err := e.command(s.cmd, s.data...); err != nil {
			return err
		}
	}
	if err := e.command(cmdPowerOn); err != nil {
		return err
	}
	if err := e.wait(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	if err := e.waitIdle(ctx); err != nil {
		return err
	}

	steps = []struct {
		cmd  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x1F}},
		{cmdResolution, []byte{0x03, 0x20, 0x01, 0xE0}},
		{cmdDualSPI, []byte{0x00}},
		{cmdVCOMInterval, []byte{0x10, 0x07}},
		{cmdTCON, []byte{0x22}},
	}
	for _, s := range steps {
		if err := e.command(s.cmd, s.data...); err != nil {
			return err
		}
	}
	return nil
}

// Write sends a full frame and triggers a refresh. The controller expects a
// set bit for black, so the bitmap is inverted on the way out.
func (e *EPD7in5V2) Write(ctx context.Context, frame *bitmap.Bitmap) error {
	if frame.Width() != EPD7in5V2Width || frame.Height() != EPD7in5V2Height {
		return fmt.Errorf("%w: frame %dx%d does not match panel %dx%d",
			ErrHardware, frame.Width(), frame.Height(), EPD7in5V2Width, EPD7in5V2Height)
	}
	src := frame.Bytes()
	black := make([]byte, len(src))
	old := make([]byte, len(src))
	for i, b := range src {
		black[i] = ^b
		old[i] = b
	}
	return e.refresh(ctx, old, black)
}

// Clear blanks the panel to white.
func (e *EPD7in5V2) Clear(ctx context.Context) error {
	blank := make([]byte, e.bufferSize())
	return e.refresh(ctx, blank, blank)
}

func (e *EPD7in5V2) refresh(ctx context.Context, old, cur []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrHardware, err)
	}
	if err := e.command(cmdOldData, old...); err != nil {
		return err
	}
	if err := e.command(cmdNewData, cur...); err != nil {
		return err
	}
	if err := e.command(cmdRefresh); err != nil {
		return err
	}
	if err := e.wait(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	return e.waitIdle(ctx)
}

// Sleep powers the panel down into deep sleep. A reset (Init) is required
// before the next write.
func (e *EPD7in5V2) Sleep(ctx context.Context) error {
	e.logger.Info("Putting e-paper panel to sleep")
	if err := e.command(cmdVCOMInterval, 0xF7); err != nil {
		return err
	}
	if err := e.command(cmdPowerOff); err != nil {
		return err
	}
	if err := e.waitIdle(ctx); err != nil {
		return err
	}
	if err := e.command(cmdDeepSleep, deepSleepCheck); err != nil {
		return err
	}
	return e.wait(ctx, 2*time.Second)
}

// Close releases the SPI port, if the driver opened it.
func (e *EPD7in5V2) Close() error {
	if e.port == nil {
		return nil
	}
	err := e.port.Close()
	e.port = nil
	return err
}

func (e *EPD7in5V2) reset(ctx context.Context) error {
	pulses := []struct {
		level gpio.Level
		hold  time.Duration
	}{
		{gpio.High, 20 * time.Millisecond},
		{gpio.Low, 2 * time.Millisecond},
		{gpio.High, 20 * time.Millisecond},
	}
	for _, p := range pulses {
		if err := e.rst.Out(p.level); err != nil {
			return fmt.Errorf("%w: reset line: %w", ErrHardware, err)
		}
		if err := e.wait(ctx, p.hold); err != nil {
			return err
		}
	}
	return nil
}

// command sends one command byte followed by its data bytes.
func (e *EPD7in5V2) command(cmd byte, data ...byte) error {
	if err := e.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("%w: DC line: %w", ErrHardware, err)
	}
	if err := e.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("%w: command 0x%02X: %w", ErrHardware, cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := e.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("%w: DC line: %w", ErrHardware, err)
	}
	for start := 0; start < len(data); start += maxTxChunk {
		end := min(start+maxTxChunk, len(data))
		if err := e.conn.Tx(data[start:end], nil); err != nil {
			return fmt.Errorf("%w: data for 0x%02X: %w", ErrHardware, cmd, err)
		}
	}
	return nil
}

// waitIdle polls the controller status until BUSY goes high.
func (e *EPD7in5V2) waitIdle(ctx context.Context) error {
	deadline := time.Now().Add(e.busyWait)
	for {
		if err := e.command(cmdGetStatus); err != nil {
			return err
		}
		if e.busy.Read() == gpio.High {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: panel still busy after %s", ErrHardware, e.busyWait)
		}
		if err := e.wait(ctx, e.busyPoll); err != nil {
			return err
		}
	}
}

func (e *EPD7in5V2) wait(ctx context.Context, d time.Duration) error {
	if err := e.delay(ctx, d); err != nil {
		if errors.Is(err, ErrHardware) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrHardware, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
