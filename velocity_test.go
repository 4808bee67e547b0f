package main

import "testing"

func TestRingBuffer(t *testing.T) {
	b := NewRingBuffer(3)
	if _, err := b.Average(); err == nil {
		t.Fatal("Average of an empty buffer succeeded")
	}
	for _, v := range []int{1, 2, 3, 4} {
		b.Insert(v)
	}
	if !b.Full() || b.Len() != 3 {
		t.Fatalf("Full() = %v, Len() = %d", b.Full(), b.Len())
	}
	for i, want := range []int{2, 3, 4} {
		if got := b.Get(i); got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
	if avg, err := b.Average(); err != nil || avg != 3 {
		t.Fatalf("Average() = %v, %v, want 3", avg, err)
	}
	b.Reset()
	b.Insert(10)
	if avg, _ := b.Average(); avg != 10 || b.Full() {
		t.Fatalf("after Reset: Average() = %v, Full() = %v", avg, b.Full())
	}
	if _, err := NewRingBuffer(0).Average(); err == nil {
		t.Fatal("Average of a zero size buffer succeeded")
	}
}

func TestVelocityMonitor(t *testing.T) {
	m := NewVelocityMonitor(3)
	for _, d := range []int64{800, -800} {
		if m.Observe(d) {
			t.Fatal("tripped before the window filled")
		}
	}
	if !m.Observe(700) {
		t.Fatal("fast motion did not trip")
	}
	if m.Observe(800) {
		t.Fatal("tripped again while still fast")
	}
	for range 3 {
		m.Observe(10)
	}
	// 10, 10, 2100 averages just over the limit.
	if !m.Observe(2100) || m.Observe(2100) {
		t.Fatal("second burst not reported exactly once")
	}
	if m.Warnings() != 2 {
		t.Fatalf("Warnings() = %d, want 2", m.Warnings())
	}
	m.Reset()
	if m.Observe(900) {
		t.Fatal("tripped right after Reset")
	}
}
