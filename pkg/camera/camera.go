package camera

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrBusy is returned when the camera is already held by a session.
// Acquisition fails fast; callers must not queue behind the holder.
var ErrBusy = errors.New("camera: device busy")

// Params describes the capture configuration for a session.
type Params struct {
	ID     int
	FPS    int
	Width  int
	Height int
}

// Frame is a single captured video frame.
type Frame struct {
	Data       []byte
	Seq        uint64
	CapturedAt time.Time
}

// Device hands out exclusive capture handles. Exactly one handle may be
// live at a time per device.
type Device interface {
	Acquire(ctx context.Context, params Params) (Handle, error)
}

// Handle is an acquired camera. Release returns the device to other
// sessions; ReadFrame blocks until the next frame or context end.
type Handle interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Release() error
}

// SyntheticDevice generates test-pattern frames without hardware. It
// enforces the same exclusivity contract as a real capture device, so
// session and ownership logic can be exercised anywhere. Real capture
// backends plug in behind the Device interface.
type SyntheticDevice struct {
	held atomic.Bool
}

// NewSyntheticDevice creates an unheld synthetic camera.
func NewSyntheticDevice() *SyntheticDevice {
	return &SyntheticDevice{}
}

// Acquire claims the device. Fails fast with ErrBusy while another
// handle is live.
func (d *SyntheticDevice) Acquire(ctx context.Context, params Params) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.Width <= 0 || params.Height <= 0 || params.FPS <= 0 {
		return nil, fmt.Errorf("camera: invalid parameters %dx%d@%d", params.Width, params.Height, params.FPS)
	}
	if !d.held.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	return &syntheticHandle{device: d, params: params}, nil
}

// Held reports whether a handle is currently live.
func (d *SyntheticDevice) Held() bool {
	return d.held.Load()
}

type syntheticHandle struct {
	device   *SyntheticDevice
	params   Params
	seq      uint64
	released atomic.Bool
}

// ReadFrame produces the next test-pattern frame. The luma value cycles
// with the sequence number so consecutive frames differ.
func (h *syntheticHandle) ReadFrame(ctx context.Context) (Frame, error) {
	if h.released.Load() {
		return Frame{}, errors.New("camera: handle released")
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	h.seq++
	data := make([]byte, h.params.Width*h.params.Height)
	shade := byte(h.seq % 256)
	for i := range data {
		data[i] = shade
	}

	return Frame{
		Data:       data,
		Seq:        h.seq,
		CapturedAt: time.Now(),
	}, nil
}

// Release returns the device. Safe to call more than once.
func (h *syntheticHandle) Release() error {
	if h.released.CompareAndSwap(false, true) {
		h.device.held.Store(false)
	}
	return nil
}
