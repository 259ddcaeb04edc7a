package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_RunsJobAndReturnsItsError(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	err := p.Submit(context.Background(), func() error { return nil })
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = p.Submit(context.Background(), func() error { return sentinel })
	assert.Equal(t, sentinel, err)
}

func TestSubmit_TimesOutWithoutBlockingCaller(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.Submit(ctx, func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_SerializesOnSingleWorker(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	var concurrent int32
	var maxConcurrent int32
	run := func() error {
		n := atomic.AddInt32(&concurrent, 1)
		if n > atomic.LoadInt32(&maxConcurrent) {
			atomic.StoreInt32(&maxConcurrent, n)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		return nil
	}

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			_ = p.Submit(context.Background(), run)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}

func TestSubmit_RecoversFromJobPanic(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	err := p.Submit(context.Background(), func() error { panic("kaboom") })
	require.Error(t, err)

	err = p.Submit(context.Background(), func() error { return nil })
	assert.NoError(t, err, "worker must survive a prior job's panic")
}
