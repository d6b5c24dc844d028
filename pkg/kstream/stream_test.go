package kstream

import (
	"testing"

	"kestrel/pkg/kid"
)

func TestReplayToLateSubscriber(t *testing.T) {
	s := New[int](kid.NewRef())
	s.Emit(1)
	s.Emit(2)
	s.Emit(3)

	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected replay [1 2 3], got %v", got)
	}

	s.Emit(4)
	if len(got) != 4 || got[3] != 4 {
		t.Fatalf("expected live emission appended after replay, got %v", got)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	s := New[int](kid.NewRef())
	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })

	s.Close()
	s.Emit(5)

	if len(got) != 0 {
		t.Fatalf("expected no delivery after close, got %v", got)
	}
	if s.Status() != Closed {
		t.Fatalf("expected status closed, got %v", s.Status())
	}
}

func TestAbortDoesNotDowngradeFromClosed(t *testing.T) {
	s := New[int](kid.NewRef())
	s.Close()
	s.Abort()

	if s.Status() != Closed {
		t.Fatalf("expected close to win over a later abort, got %v", s.Status())
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := New[int](kid.NewRef())
	var got []int
	unsub := s.Subscribe(func(v int) { got = append(got, v) })

	s.Emit(1)
	unsub()
	s.Emit(2)

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only pre-unsubscribe emission delivered, got %v", got)
	}
}

func TestSubscriberPanicDoesNotBlockOthers(t *testing.T) {
	s := New[int](kid.NewRef())
	var secondGot []int

	s.Subscribe(func(v int) { panic("boom") })
	s.Subscribe(func(v int) { secondGot = append(secondGot, v) })

	s.Emit(1)

	if len(secondGot) != 1 {
		t.Fatalf("expected second subscriber to still receive emission, got %v", secondGot)
	}
}

func TestSubscribeAfterCloseIsNoop(t *testing.T) {
	s := New[int](kid.NewRef())
	s.Close()

	called := false
	unsub := s.Subscribe(func(v int) { called = true })
	unsub()

	s2 := New[int](kid.NewRef())
	s2.Emit(1)
	s2.Close()
	s2.Subscribe(func(v int) { called = true })

	if called {
		t.Fatalf("expected no registration/delivery for subscribe on a non-open stream")
	}
}
