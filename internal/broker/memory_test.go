package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PushPopOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Push(ctx, "pending", "a"))
	require.NoError(t, m.Push(ctx, "pending", "b"))
	require.NoError(t, m.Push(ctx, "pending", "c"))

	// Push prepends, pop takes the tail: FIFO.
	for _, want := range []string{"a", "b", "c"} {
		got, err := m.PopAndMoveBlocking(ctx, "pending", "in-flight", 10*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	n, err := m.Length(ctx, "in-flight")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMemory_PopMovesAtomically(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Push(ctx, "src", "v"))

	got, err := m.PopAndMoveBlocking(ctx, "src", "dst", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	srcLen, err := m.Length(ctx, "src")
	require.NoError(t, err)
	dstLen, err := m.Length(ctx, "dst")
	require.NoError(t, err)
	assert.Equal(t, int64(0), srcLen)
	assert.Equal(t, int64(1), dstLen)
}

func TestMemory_PopBlocksUntilPush(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	result := make(chan string, 1)
	go func() {
		got, err := m.PopAndMoveBlocking(ctx, "src", "dst", 2*time.Second)
		if err == nil {
			result <- got
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Push(ctx, "src", "late"))

	select {
	case got := <-result:
		assert.Equal(t, "late", got)
	case <-time.After(time.Second):
		t.Fatal("blocked pop never woke up")
	}
}

func TestMemory_PopTimeout(t *testing.T) {
	m := NewMemory()

	got, err := m.PopAndMoveBlocking(context.Background(), "src", "dst", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_PopCancelled(t *testing.T) {
	m := NewMemory()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := m.PopAndMoveBlocking(ctx, "src", "dst", 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_RemoveFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Push(ctx, "list", "x"))
	require.NoError(t, m.Push(ctx, "list", "y"))
	require.NoError(t, m.Push(ctx, "list", "x"))

	removed, err := m.RemoveFirst(ctx, "list", "x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := m.Length(ctx, "list")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	removed, err = m.RemoveFirst(ctx, "list", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}
