package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeRounds struct {
	mu  sync.Mutex
	n   int
	err error
}

func (f *fakeRounds) RunRound(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return f.err
}

func (f *fakeRounds) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func TestLoop_RunsImmediatelyAndOnTicks(t *testing.T) {
	rounds := &fakeRounds{err: errors.New("storage down")}
	l := NewLoop(zap.NewNop(), rounds, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for rounds.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 rounds, got %d", rounds.count())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestLoop_DisabledWithZeroInterval(t *testing.T) {
	rounds := &fakeRounds{}
	NewLoop(zap.NewNop(), rounds, 0).Run(context.Background())
	if rounds.count() != 0 {
		t.Fatalf("disabled loop should not run rounds, got %d", rounds.count())
	}
}
