package loop

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsCallbacksInOrder(t *testing.T) {
	l := New()
	defer l.Close()

	const n = 100
	got := make([]int, 0, n)
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		l.Invoke(func() {
			got = append(got, i)
			if i == n-1 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callbacks did not run")
	}
	for i := 0; i < n; i++ {
		require.Equal(t, i, got[i])
	}
}

func TestLoop_CallbacksRunOffCallerGoroutine(t *testing.T) {
	l := New()
	defer l.Close()

	block := make(chan struct{})
	ran := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		l.Invoke(func() {
			<-block
			close(ran)
		})
		close(returned)
	}()

	// A callback run inline would hold the calling goroutine inside Invoke
	// until block is closed.
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Invoke ran the callback on the calling goroutine")
	}
	select {
	case <-ran:
		t.Fatal("callback finished before it was unblocked")
	default:
	}

	close(block)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}
}

func TestLoop_CloseDrainsQueue(t *testing.T) {
	l := New()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 10; i++ {
		l.Invoke(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	l.Close()
	l.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 10, count)
}

func TestLoop_InvokeAfterCloseRunsInline(t *testing.T) {
	l := New()
	l.Close()

	ran := false
	l.Invoke(func() { ran = true })
	require.True(t, ran)
}

func TestLoop_RecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := zerolog.New(zerolog.SyncWriter(&lockedWriter{w: &buf, mu: &mu}))

	l := New(WithLogger(logger))
	defer l.Close()

	done := make(chan struct{})
	l.Invoke(func() { panic("boom") })
	l.Invoke(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop stopped after a panicking callback")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, buf.String(), "loop callback panicked")
	require.Contains(t, buf.String(), "boom")
}

func TestDefault_IsShared(t *testing.T) {
	require.Same(t, Default(), Default())

	done := make(chan struct{})
	Default().Invoke(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("default loop did not run callback")
	}
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
