package dashboard

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_Coalesces(t *testing.T) {
	var calls atomic.Int32
	d := newDebouncer(SizeNotifierFunc(func() { calls.Add(1) }))

	for i := 0; i < 5; i++ {
		d.schedule(20 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	var calls atomic.Int32
	d := newDebouncer(SizeNotifierFunc(func() { calls.Add(1) }))

	d.schedule(10 * time.Millisecond)
	d.stop()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestProgress(t *testing.T) {
	assert.Equal(t, "loading", loading().Status.String())
	assert.False(t, loading().Done())
	assert.True(t, succeeded().Done())
	assert.True(t, failed(nil).Done())
	assert.Equal(t, "Status(9)", Status(9).String())
}
