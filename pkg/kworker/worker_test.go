package kworker

import (
	"errors"
	"sync"
	"testing"

	"kestrel/pkg/ksignal"

	"kestrel/pkg/kid"
)

func TestStartTerminatesOnNormalReturn(t *testing.T) {
	w := New(kid.NewRef())
	if err := w.Start(func(sig *ksignal.Signal) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Status() != Terminated {
		t.Fatalf("expected terminated, got %v", w.Status())
	}
}

func TestStartFailsOnNonAbortError(t *testing.T) {
	w := New(kid.NewRef())
	boom := errors.New("boom")
	err := w.Start(func(sig *ksignal.Signal) error { return boom })

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom re-raised, got %v", err)
	}
	if w.Status() != Failed {
		t.Fatalf("expected failed, got %v", w.Status())
	}
	if !errors.Is(w.Err(), boom) {
		t.Fatalf("expected captured error, got %v", w.Err())
	}
}

func TestTerminateDuringRunSwallowsAbortError(t *testing.T) {
	w := New(kid.NewRef())
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		_ = w.Start(func(sig *ksignal.Signal) error {
			<-sig.Done()
			return errors.New("abort error")
		})
	}()

	w.Terminate()
	wg.Wait()

	if w.Status() != Terminated {
		t.Fatalf("expected terminated after abort-triggered error, got %v", w.Status())
	}
	if !w.Signal().Aborted() {
		t.Fatalf("expected signal aborted")
	}
}

func TestTerminateIsIdempotentAndNeverDowngradesFailed(t *testing.T) {
	w := New(kid.NewRef())
	_ = w.Start(func(sig *ksignal.Signal) error { return errors.New("boom") })

	if w.Status() != Failed {
		t.Fatalf("precondition failed: expected failed, got %v", w.Status())
	}

	w.Terminate()
	w.Terminate()

	if w.Status() != Failed {
		t.Fatalf("expected terminate to never downgrade failed, got %v", w.Status())
	}
}

func TestStartRequiresIdle(t *testing.T) {
	w := New(kid.NewRef())
	_ = w.Start(func(sig *ksignal.Signal) error { return nil })

	if err := w.Start(func(sig *ksignal.Signal) error { return nil }); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle on second start, got %v", err)
	}
}
