package relay

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPendingConsumeOnce(t *testing.T) {
	p := NewPendingTable()
	p.Set(100, 7)

	target, ok := p.Consume(100)
	if !ok || target != 7 {
		t.Fatalf("first Consume = (%d, %v), want (7, true)", target, ok)
	}
	if target, ok := p.Consume(100); ok {
		t.Fatalf("second Consume = (%d, true), want empty", target)
	}
	if p.Len() != 0 {
		t.Errorf("Len = %d, want 0", p.Len())
	}
}

func TestPendingLastWriteWins(t *testing.T) {
	p := NewPendingTable()
	p.Set(100, 1)
	p.Set(100, 2)

	target, ok := p.Consume(100)
	if !ok || target != 2 {
		t.Fatalf("Consume = (%d, %v), want (2, true)", target, ok)
	}
	if _, ok := p.Consume(100); ok {
		t.Fatal("overwritten entry must not be consumable twice")
	}
}

func TestPendingPerAdmin(t *testing.T) {
	p := NewPendingTable()
	p.Set(100, 7)
	p.Set(101, 8)

	if _, ok := p.Consume(102); ok {
		t.Error("admin without entry consumed something")
	}
	if target, _ := p.Consume(101); target != 8 {
		t.Errorf("Consume(101) = %d, want 8", target)
	}
	if target, _ := p.Consume(100); target != 7 {
		t.Errorf("Consume(100) = %d, want 7", target)
	}
}

func TestPendingConcurrentConsume(t *testing.T) {
	p := NewPendingTable()
	p.Set(100, 7)

	var (
		wg  sync.WaitGroup
		got atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := p.Consume(100); ok {
				got.Add(1)
			}
		}()
	}
	wg.Wait()

	if got.Load() != 1 {
		t.Fatalf("entry consumed %d times, want 1", got.Load())
	}
}
