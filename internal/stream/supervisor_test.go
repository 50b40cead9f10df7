package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"racebot/internal/service"
)

type fakeSession struct {
	mu        sync.Mutex
	runs      int
	active    int
	maxActive int
	block     bool
}

func (f *fakeSession) Run(ctx context.Context, marketIDs []string, consumer Consumer) error {
	f.mu.Lock()
	f.runs++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return errors.New("feed dropped")
}

func (f *fakeSession) stats() (runs, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs, f.maxActive
}

func TestSupervisor_Run(t *testing.T) {
	t.Run("Scheduled Restart Replaces Session", func(t *testing.T) {
		sess := &fakeSession{block: true}
		sup := NewSupervisor(sess, service.NewCache(), nil, 30*time.Millisecond, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			sup.Run(ctx)
			close(done)
		}()

		time.Sleep(200 * time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Supervisor did not stop after cancel")
		}

		runs, maxActive := sess.stats()
		if runs < 3 {
			t.Errorf("Expected several scheduled restarts, got %d runs", runs)
		}
		if maxActive != 1 {
			t.Errorf("At most one session may stream at a time, saw %d", maxActive)
		}
	})

	t.Run("Failed Session Retried With Backoff", func(t *testing.T) {
		sess := &fakeSession{}
		sup := NewSupervisor(sess, service.NewCache(), nil, time.Hour, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			sup.Run(ctx)
			close(done)
		}()

		// First attempt is immediate, the second lands after the base
		// backoff elapses.
		deadline := time.Now().Add(5 * time.Second)
		for {
			if runs, _ := sess.stats(); runs >= 2 {
				break
			}
			if time.Now().After(deadline) {
				runs, _ := sess.stats()
				t.Fatalf("Expected a retry within the deadline, got %d runs", runs)
			}
			time.Sleep(20 * time.Millisecond)
		}
		cancel()
		<-done
	})

	t.Run("Cancel Stops Blocking Session", func(t *testing.T) {
		sess := &fakeSession{block: true}
		sup := NewSupervisor(sess, service.NewCache(), nil, time.Hour, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			sup.Run(ctx)
			close(done)
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Supervisor did not return after context cancel")
		}
	})
}
