package chain

import "testing"

func TestBlockTimesDropsBlocksBehindWindow(t *testing.T) {
	times := newBlockTimes(3)
	for n := uint64(1); n <= 6; n++ {
		times.put(n, 1700000000+n)
	}

	for n := uint64(3); n <= 6; n++ {
		ts, ok := times.get(n)
		if !ok || ts != 1700000000+n {
			t.Fatalf("block %d: ts=%d ok=%v", n, ts, ok)
		}
	}
	for n := uint64(1); n <= 2; n++ {
		if _, ok := times.get(n); ok {
			t.Fatalf("block %d should have left the window", n)
		}
	}

	times.put(1, 1)
	if _, ok := times.get(1); ok {
		t.Fatalf("a block behind the window must not be cached")
	}
	if len(times.byNum) > 4 {
		t.Fatalf("cache holds %d blocks", len(times.byNum))
	}
}
