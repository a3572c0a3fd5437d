package profiling

import (
	"strings"
	"testing"
	"time"
)

func TestTrackAndReset(t *testing.T) {
	ResetFrame()
	stop := Track("test.slow")
	time.Sleep(2 * time.Millisecond)
	stop()
	Track("test.fast")()

	snap := Snapshot()
	if snap["test.slow"] < 2*time.Millisecond {
		t.Fatalf("slow: got %v", snap["test.slow"])
	}
	if top := TopN(1); !strings.HasPrefix(top, "test.slow:") {
		t.Fatalf("TopN(1): got %q", top)
	}
	if got := TopN(10); strings.Count(got, ",") != len(snap)-1 {
		t.Fatalf("TopN(10): got %q for %d entries", got, len(snap))
	}

	ResetFrame()
	if n := len(Snapshot()); n != 0 {
		t.Fatalf("after reset: %d entries", n)
	}
}

func TestCounters(t *testing.T) {
	ResetCounters()
	Count("test.events", 2)
	Count("test.events", 3)
	ResetFrame()
	if got := Counters()["test.events"]; got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
	ResetCounters()
	if _, ok := Counters()["test.events"]; ok {
		t.Fatalf("counter survives ResetCounters")
	}
}
