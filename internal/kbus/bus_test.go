package kbus

import "testing"

func TestBroadcastDeliversInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	b.Subscribe("ch", func(any) { order = append(order, 1) })
	b.Subscribe("ch", func(any) { order = append(order, 2) })
	b.Subscribe("ch", func(any) { order = append(order, 3) })

	b.Broadcast("ch", nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected delivery in subscription order, got %v", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	unsub := b.Subscribe("ch", func(any) { calls++ })
	unsub()
	b.Broadcast("ch", nil)
	if calls != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d calls", calls)
	}
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	b := New()
	secondCalled := false
	b.Subscribe("ch", func(any) { panic("boom") })
	b.Subscribe("ch", func(any) { secondCalled = true })

	b.Broadcast("ch", nil)

	if !secondCalled {
		t.Fatalf("expected second listener to still be called after first panicked")
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	b := New()
	var a, c int
	b.Subscribe("a", func(any) { a++ })
	b.Subscribe("c", func(any) { c++ })

	b.Broadcast("a", nil)

	if a != 1 || c != 0 {
		t.Fatalf("expected only channel a listeners to fire, got a=%d c=%d", a, c)
	}
}

func TestDoubleUnsubscribeIsSafe(t *testing.T) {
	b := New()
	unsub := b.Subscribe("ch", func(any) {})
	unsub()
	unsub()
}
