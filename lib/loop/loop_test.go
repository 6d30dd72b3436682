package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRunsInOrder(t *testing.T) {
	l := New()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		l.Push(func() { order = append(order, i) })
	}

	require.Equal(t, 3, l.Len())
	assert.Equal(t, 3, l.Drain())
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 0, l.Len())
}

func TestDrainIncludesNestedPushes(t *testing.T) {
	l := New()

	var nested bool
	l.Push(func() {
		l.NextTick(func() { nested = true })
	})

	assert.Equal(t, 2, l.Drain())
	assert.True(t, nested, "task enqueued during drain should run")
}

func TestDrainEmpty(t *testing.T) {
	assert.Equal(t, 0, New().Drain())
}

func TestRunServesUntilClose(t *testing.T) {
	l := New()

	var mu sync.Mutex
	var got []int

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	for i := 0; i < 3; i++ {
		i := i
		l.Push(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	l.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestRunStopsOnContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestPushAfterCloseDropped(t *testing.T) {
	l := New()
	l.Close()
	l.Push(func() { t.Error("task ran after Close") })
	assert.Equal(t, 0, l.Drain())
}
