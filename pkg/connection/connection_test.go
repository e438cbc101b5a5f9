package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			800 * time.Millisecond,
			1600 * time.Millisecond,
			3200 * time.Millisecond,
			5 * time.Second,
			5 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			base := b.Current()
			_ = b.Next()
			if base < exp-time.Millisecond || base > exp+time.Millisecond {
				t.Errorf("Attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()
		upper := time.Duration(float64(InitialBackoff)*(1+JitterFactor)) + time.Millisecond
		for i := 0; i < 10; i++ {
			b.Reset()
			if d := b.Next(); d < InitialBackoff || d > upper {
				t.Errorf("Sample %d: %v out of expected range [%v, %v]", i, d, InitialBackoff, upper)
			}
		}
	})

	t.Run("ResetAndAttempts", func(t *testing.T) {
		b := NewBackoff()
		for i := 1; i <= 5; i++ {
			b.Next()
			if b.Attempts() != i {
				t.Errorf("After %d calls, Attempts() = %d", i, b.Attempts())
			}
		}

		b.Reset()
		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    10 * time.Millisecond,
			Max:        50 * time.Millisecond,
			Multiplier: 2.0,
		})

		expected := []time.Duration{
			10 * time.Millisecond,
			20 * time.Millisecond,
			40 * time.Millisecond,
			50 * time.Millisecond,
			50 * time.Millisecond,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("WaitCancelled", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Initial: time.Hour, Max: time.Hour})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Wait() = %v, want context.Canceled", err)
		}
	})

	t.Run("WaitElapses", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Initial: time.Millisecond})
		if err := b.Wait(context.Background()); err != nil {
			t.Errorf("Wait() = %v, want nil", err)
		}
	})
}

func TestLifecycle(t *testing.T) {
	t.Run("Transitions", func(t *testing.T) {
		l := NewLifecycle()
		var transitions []string
		l.OnStateChange(func(oldState, newState State) {
			transitions = append(transitions, oldState.String()+"->"+newState.String())
		})

		if l.State() != StateCreated {
			t.Fatalf("State() = %v, want CREATED", l.State())
		}
		if _, _, err := l.Acquire(context.Background()); !errors.Is(err, ErrNotOpen) {
			t.Errorf("Acquire before Open = %v, want ErrNotOpen", err)
		}
		if err := l.Open(); err != nil {
			t.Fatalf("Open() = %v", err)
		}
		if err := l.Open(); !errors.Is(err, ErrAlreadyOpen) {
			t.Errorf("second Open() = %v, want ErrAlreadyOpen", err)
		}
		if err := l.Close(nil); err != nil {
			t.Fatalf("Close() = %v", err)
		}
		if err := l.Open(); !errors.Is(err, ErrClosed) {
			t.Errorf("Open after Close = %v, want ErrClosed", err)
		}

		want := []string{"CREATED->OPEN", "OPEN->CLOSED"}
		if len(transitions) != len(want) {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
		for i := range want {
			if transitions[i] != want[i] {
				t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
			}
		}
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		l := NewLifecycle()
		_ = l.Open()

		var frees atomic.Int32
		free := func() error {
			frees.Add(1)
			return errors.New("release failed")
		}

		if err := l.Close(free); err == nil {
			t.Error("first Close should return the release error")
		}
		if err := l.Close(free); err != nil {
			t.Errorf("second Close = %v, want nil", err)
		}
		if n := frees.Load(); n != 1 {
			t.Errorf("free called %d times, want 1", n)
		}
		if _, _, err := l.Acquire(context.Background()); !errors.Is(err, ErrClosed) {
			t.Errorf("Acquire after Close = %v, want ErrClosed", err)
		}
		select {
		case <-l.Done():
		default:
			t.Error("Done() should be closed after Close")
		}
	})

	t.Run("CloseCancelsAndWaits", func(t *testing.T) {
		l := NewLifecycle()
		_ = l.Open()

		ctx, release, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() = %v", err)
		}

		var finished atomic.Bool
		go func() {
			<-ctx.Done()
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			release()
		}()

		var freedAfterRelease bool
		_ = l.Close(func() error {
			freedAfterRelease = finished.Load()
			return nil
		})
		if !freedAfterRelease {
			t.Error("free ran before the in-flight operation released")
		}
	})

	t.Run("ReleaseTwice", func(t *testing.T) {
		l := NewLifecycle()
		_ = l.Open()
		_, release, _ := l.Acquire(context.Background())
		release()
		release()
		if err := l.Close(nil); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})

	t.Run("ConcurrentAcquireAndClose", func(t *testing.T) {
		l := NewLifecycle()
		_ = l.Open()

		var wg sync.WaitGroup
		var acquired, rejected atomic.Int32
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, release, err := l.Acquire(context.Background())
				if err != nil {
					if !errors.Is(err, ErrClosed) {
						t.Errorf("Acquire() = %v, want nil or ErrClosed", err)
					}
					rejected.Add(1)
					return
				}
				acquired.Add(1)
				<-ctx.Done()
				release()
			}()
		}

		time.Sleep(5 * time.Millisecond)
		if err := l.Close(nil); err != nil {
			t.Errorf("Close() = %v", err)
		}
		wg.Wait()

		if acquired.Load()+rejected.Load() != 50 {
			t.Errorf("acquired %d + rejected %d != 50", acquired.Load(), rejected.Load())
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "CREATED"},
		{StateOpen, "OPEN"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
