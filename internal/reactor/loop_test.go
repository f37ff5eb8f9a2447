package reactor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestCall_RunsOnLoopAndReturnsError(t *testing.T) {
	l, _ := newTestLoop(t)
	want := errors.New("boom")
	err := l.Call(context.Background(), func() error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestPost_PreservesOrderAndDefersNestedPosts(t *testing.T) {
	l, _ := newTestLoop(t)

	var got []string
	err := l.Call(context.Background(), func() error {
		got = append(got, "a")
		_ = l.Post(func() { got = append(got, "nested") })
		got = append(got, "b")
		return nil
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	// A second Call queues behind the nested post.
	_ = l.Call(context.Background(), func() error { return nil })

	want := []string{"a", "b", "nested"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRun_RecoversTaskPanic(t *testing.T) {
	l, _ := newTestLoop(t)
	_ = l.Post(func() { panic("bad task") })
	if err := l.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("loop should survive a panicking task, got %v", err)
	}
}

func TestPost_AfterStopFails(t *testing.T) {
	l, cancel := newTestLoop(t)
	cancel()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop")
	}
	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if err := l.Call(context.Background(), func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped from Call, got %v", err)
	}
}
