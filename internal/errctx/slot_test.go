package errctx

import (
	"sync"
	"testing"
)

func TestSlotIsPerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]ErrorContext, 8)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Bind("worker")
			defer Release()
			<-start
			ctx := New()
			for j := 0; j <= i%MaxThreadCallStack; j++ {
				ctx.AddCall(Screen(ScreenContext(i)))
			}
			results[i] = Current()
		}(i)
	}
	close(start)
	wg.Wait()

	for i, ctx := range results {
		calls := ctx.Calls()
		if len(calls) != i%MaxThreadCallStack+1 {
			t.Fatalf("goroutine %d: %d calls, want %d", i, len(calls), i%MaxThreadCallStack+1)
		}
		for _, c := range calls {
			if c != Screen(ScreenContext(i)) {
				t.Fatalf("goroutine %d saw foreign call %s", i, c.Plain())
			}
		}
	}
}

func TestBindNamesAndRelease(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if ThreadName() != "" {
			t.Errorf("unbound goroutine should have no name")
		}
		Bind("pty_thread")
		if ThreadName() != "pty_thread" {
			t.Errorf("ThreadName() = %q", ThreadName())
		}
		ctx := New()
		ctx.AddCall(Pty(PtyNewTab))
		if Current().Len() != 1 {
			t.Errorf("AddCall should publish")
		}
		Publish(New())
		if Current().Len() != 0 || ThreadName() != "pty_thread" {
			t.Errorf("Publish should replace the context and keep the name")
		}
		Release()
		if ThreadName() != "" || Current().Len() != 0 {
			t.Errorf("Release should drop the slot")
		}
	}()
	<-done
}

func TestGoroutineIDDiffers(t *testing.T) {
	here := GoroutineID()
	if here == 0 {
		t.Fatalf("goroutine id should parse")
	}
	other := make(chan uint64)
	go func() { other <- GoroutineID() }()
	if id := <-other; id == here || id == 0 {
		t.Fatalf("ids should be distinct and non-zero: %d vs %d", here, id)
	}
}

func slotCount() int {
	n := 0
	slots.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func TestUnboundGoroutinesLeaveNoSlots(t *testing.T) {
	before := slotCount()
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := New()
			ctx.AddCall(AsyncTask)
			if ctx.Len() != 1 {
				t.Errorf("the value should still record the call")
			}
			if Current().Len() != 0 {
				t.Errorf("an unbound goroutine should have no published context")
			}
		}()
	}
	wg.Wait()
	if after := slotCount(); after != before {
		t.Fatalf("slots before=%d after=%d", before, after)
	}
}

func TestBoundGoroutineReleasesSlot(t *testing.T) {
	before := slotCount()
	done := make(chan struct{})
	go func() {
		defer close(done)
		Bind("pty_thread")
		defer Release()
		ctx := New()
		ctx.AddCall(Pty(PtyNewTab))
	}()
	<-done
	if after := slotCount(); after != before {
		t.Fatalf("slots before=%d after=%d", before, after)
	}
}
