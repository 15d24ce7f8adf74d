package camera

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{ID: 0, FPS: 10, Width: 64, Height: 48}

// TestSyntheticDevice_ExclusiveAcquisition verifies a second acquire
// fails fast with ErrBusy and release makes the device available again.
func TestSyntheticDevice_ExclusiveAcquisition(t *testing.T) {
	device := NewSyntheticDevice()
	ctx := context.Background()

	handle, err := device.Acquire(ctx, testParams)
	require.NoError(t, err)
	assert.True(t, device.Held())

	_, err = device.Acquire(ctx, testParams)
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, handle.Release())
	assert.False(t, device.Held())

	handle, err = device.Acquire(ctx, testParams)
	require.NoError(t, err)
	require.NoError(t, handle.Release())
}

// TestSyntheticDevice_InvalidParams verifies bad capture parameters are
// rejected without claiming the device.
func TestSyntheticDevice_InvalidParams(t *testing.T) {
	device := NewSyntheticDevice()

	_, err := device.Acquire(context.Background(), Params{FPS: 0, Width: 640, Height: 480})

	assert.Error(t, err)
	assert.False(t, device.Held())
}

// TestSyntheticHandle_FrameSequence verifies frames carry increasing
// sequence numbers, differ in content, and match the configured size.
func TestSyntheticHandle_FrameSequence(t *testing.T) {
	device := NewSyntheticDevice()
	handle, err := device.Acquire(context.Background(), testParams)
	require.NoError(t, err)
	defer handle.Release()

	first, err := handle.ReadFrame(context.Background())
	require.NoError(t, err)
	second, err := handle.ReadFrame(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Len(t, first.Data, testParams.Width*testParams.Height)
	assert.NotEqual(t, first.Data[0], second.Data[0])
}

// TestSyntheticHandle_ReadAfterRelease verifies a released handle refuses
// further reads and double-release is harmless.
func TestSyntheticHandle_ReadAfterRelease(t *testing.T) {
	device := NewSyntheticDevice()
	handle, err := device.Acquire(context.Background(), testParams)
	require.NoError(t, err)

	require.NoError(t, handle.Release())
	require.NoError(t, handle.Release())

	_, err = handle.ReadFrame(context.Background())
	assert.Error(t, err)
	assert.False(t, device.Held())
}

// TestSyntheticHandle_ReadHonorsContext verifies a cancelled context stops
// frame reads.
func TestSyntheticHandle_ReadHonorsContext(t *testing.T) {
	device := NewSyntheticDevice()
	handle, err := device.Acquire(context.Background(), testParams)
	require.NoError(t, err)
	defer handle.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = handle.ReadFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
