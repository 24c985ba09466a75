package display

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/BuzzLyutic/todo-display/internal/bitmap"
)

type fakePin struct {
	level  gpio.Level
	writes []gpio.Level
}

func (p *fakePin) Out(l gpio.Level) error {
	p.level = l
	p.writes = append(p.writes, l)
	return nil
}

type busyPin struct {
	// busyReads is how many reads report busy before going idle.
	busyReads int
	reads     int
}

func (p *busyPin) Read() gpio.Level {
	p.reads++
	if p.reads <= p.busyReads {
		return gpio.Low
	}
	return gpio.High
}

type transfer struct {
	data   bool
	packet []byte
}

type fakeBus struct {
	dc        *fakePin
	transfers []transfer
	failOn    byte
}

func (b *fakeBus) Tx(w, r []byte) error {
	isData := b.dc.level == gpio.High
	if !isData && b.failOn != 0 && w[0] == b.failOn {
		return errors.New("spi: transfer failed")
	}
	b.transfers = append(b.transfers, transfer{data: isData, packet: append([]byte(nil), w...)})
	return nil
}

// commands returns the command bytes in order, skipping status polls.
func (b *fakeBus) commands() []byte {
	var out []byte
	for _, t := range b.transfers {
		if !t.data && t.packet[0] != cmdGetStatus {
			out = append(out, t.packet[0])
		}
	}
	return out
}

// payload concatenates the data bytes that followed the n-th occurrence of cmd.
func (b *fakeBus) payload(cmd byte) []byte {
	var out []byte
	collecting := false
	for _, t := range b.transfers {
		if !t.data {
			collecting = t.packet[0] == cmd
			continue
		}
		if collecting {
			out = append(out, t.packet...)
		}
	}
	return out
}

func noDelay(context.Context, time.Duration) error { return nil }

func newFakeEPD(busyReads int) (*EPD7in5V2, *fakeBus, *fakePin, *busyPin) {
	dc := &fakePin{}
	rst := &fakePin{}
	busy := &busyPin{busyReads: busyReads}
	bus := &fakeBus{dc: dc}
	e := NewEPD7in5V2(bus, dc, rst, busy, nil, WithDelay(noDelay))
	return e, bus, rst, busy
}

func TestEPD_Init(t *testing.T) {
	e, bus, rst, busy := newFakeEPD(2)

	require.NoError(t, e.Init(context.Background()))

	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, rst.writes)
	assert.Equal(t, []byte{
		cmdBoosterSoft, cmdPowerSetting, cmdPowerOn,
		cmdPanelSetting, cmdResolution, cmdDualSPI, cmdVCOMInterval, cmdTCON,
	}, bus.commands())
	assert.Equal(t, []byte{0x03, 0x20, 0x01, 0xE0}, bus.payload(cmdResolution))
	assert.Equal(t, 3, busy.reads, "two busy polls then idle")
}

func TestEPD_WriteInvertsAndChunks(t *testing.T) {
	e, bus, _, _ := newFakeEPD(0)
	frame := bitmap.New(EPD7in5V2Width, EPD7in5V2Height)
	frame.SetWhite(0, 0, false)

	require.NoError(t, e.Write(context.Background(), frame))

	assert.Equal(t, []byte{cmdOldData, cmdNewData, cmdRefresh}, bus.commands())
	cur := bus.payload(cmdNewData)
	old := bus.payload(cmdOldData)
	require.Len(t, cur, EPD7in5V2Width/8*EPD7in5V2Height)
	require.Len(t, old, len(cur))
	assert.Equal(t, byte(0x80), cur[0], "black pixel is a set bit")
	assert.Equal(t, byte(0x00), cur[1])
	assert.Equal(t, byte(0x7F), old[0])

	for _, tr := range bus.transfers {
		assert.LessOrEqual(t, len(tr.packet), maxTxChunk)
	}
}

func TestEPD_WriteRejectsWrongSize(t *testing.T) {
	e, bus, _, _ := newFakeEPD(0)

	err := e.Write(context.Background(), bitmap.New(10, 10))
	assert.ErrorIs(t, err, ErrHardware)
	assert.Empty(t, bus.transfers)
}

func TestEPD_TransferFailureIsHardwareError(t *testing.T) {
	e, bus, _, _ := newFakeEPD(0)
	bus.failOn = cmdRefresh

	err := e.Write(context.Background(), bitmap.New(EPD7in5V2Width, EPD7in5V2Height))
	assert.ErrorIs(t, err, ErrHardware)
}

func TestEPD_BusyTimeout(t *testing.T) {
	dc := &fakePin{}
	bus := &fakeBus{dc: dc}
	busy := &busyPin{busyReads: 1 << 30}
	e := NewEPD7in5V2(bus, dc, &fakePin{}, busy, nil,
		WithDelay(noDelay), WithBusyTimeout(5*time.Millisecond))

	err := e.Clear(context.Background())
	assert.ErrorIs(t, err, ErrHardware)
}

func TestEPD_CanceledContext(t *testing.T) {
	e, _, _, _ := newFakeEPD(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Clear(ctx)
	assert.ErrorIs(t, err, ErrHardware)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEPD_Sleep(t *testing.T) {
	e, bus, _, _ := newFakeEPD(0)

	require.NoError(t, e.Sleep(context.Background()))
	assert.Equal(t, []byte{cmdVCOMInterval, cmdPowerOff, cmdDeepSleep}, bus.commands())
	assert.Equal(t, []byte{deepSleepCheck}, bus.payload(cmdDeepSleep))
	assert.NoError(t, e.Close())
}

func TestEPD_ClearSendsWhite(t *testing.T) {
	e, bus, _, _ := newFakeEPD(0)

	require.NoError(t, e.Clear(context.Background()))
	for _, b := range bus.payload(cmdNewData) {
		if b != 0x00 {
			t.Fatalf("clear frame must be all white, got byte 0x%02X", b)
		}
	}
}

func TestEPD7in5V2_SPIClock(t *testing.T) {
	assert.Equal(t, "4MHz", defaultSPIFreq.String())
}
