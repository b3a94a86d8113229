package dispatch

import "testing"

func TestSubscribeEmitOrder(t *testing.T) {
	var sig Signal[int]
	var order []int
	sig.Subscribe(func(v int) { order = append(order, v*10+1) })
	sig.Subscribe(func(v int) { order = append(order, v*10+2) })
	sig.Emit(5)
	want := []int{51, 52}
	if len(order) != len(want) || order[0] != want[0] || order[1] != want[1] {
		t.Fatalf("got %v, want %v", order, want)
	}
}

func TestUnsubscribeRemovesOnlyThatSubscriber(t *testing.T) {
	var sig Signal[int]
	var a, b int
	tokA := sig.Subscribe(func(v int) { a += v })
	sig.Subscribe(func(v int) { b += v })
	sig.Unsubscribe(tokA)
	sig.Emit(3)
	if a != 0 || b != 3 {
		t.Fatalf("a=%d b=%d, want a=0 b=3", a, b)
	}
	if sig.Len() != 1 {
		t.Fatalf("expected 1 remaining subscriber, got %d", sig.Len())
	}
}

func TestUnsubscribeUnknownTokenIsNoop(t *testing.T) {
	var sig Signal[int]
	sig.Subscribe(func(int) {})
	sig.Unsubscribe(Token(9999))
	if sig.Len() != 1 {
		t.Fatalf("expected subscriber list untouched, got len %d", sig.Len())
	}
}
