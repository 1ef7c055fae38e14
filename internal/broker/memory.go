package broker

import (
	"context"
	"sync"
	"time"
)

// Memory implements Broker on in-process slices. It honors the same
// semantics as the Redis implementation, including blocking pop-and-move,
// so the queue and worker can be exercised without a Redis server.
type Memory struct {
	mu     sync.Mutex
	lists  map[string][]string
	wakeup chan struct{}
}

func NewMemory() *Memory {
	return &Memory{
		lists:  make(map[string][]string),
		wakeup: make(chan struct{}),
	}
}

func (m *Memory) Push(ctx context.Context, list, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.lists[list] = append([]string{value}, m.lists[list]...)
	// Wake every blocked pop; losers go back to waiting.
	close(m.wakeup)
	m.wakeup = make(chan struct{})
	m.mu.Unlock()

	return nil
}

func (m *Memory) PopAndMoveBlocking(ctx context.Context, source, dest string, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		m.mu.Lock()
		if src := m.lists[source]; len(src) > 0 {
			val := src[len(src)-1]
			m.lists[source] = src[:len(src)-1]
			m.lists[dest] = append([]string{val}, m.lists[dest]...)
			m.mu.Unlock()
			return val, nil
		}
		wakeup := m.wakeup
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", nil
		case <-wakeup:
		}
	}
}

func (m *Memory) RemoveFirst(ctx context.Context, list, value string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, v := range m.lists[list] {
		if v == value {
			m.lists[list] = append(m.lists[list][:i], m.lists[list][i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *Memory) Length(ctx context.Context, list string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[list])), nil
}
