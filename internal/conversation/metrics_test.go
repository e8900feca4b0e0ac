package conversation

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/h1v3-io/inbox/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// counterDeltas snapshots the cache counters so a test can assert on what
// it alone added.
type counterDeltas struct {
	t      *testing.T
	before map[string]float64
}

var cacheCounters = map[string]prometheus.Counter{
	"hit":       metrics.ConversationCache.WithLabelValues("hit"),
	"miss":      metrics.ConversationCache.WithLabelValues("miss"),
	"joined":    metrics.ConversationCache.WithLabelValues("joined"),
	"ok":        metrics.ConversationFetches.WithLabelValues("ok"),
	"error":     metrics.ConversationFetches.WithLabelValues("error"),
	"discarded": metrics.ConversationFetches.WithLabelValues("discarded"),
}

func snapshotCounters(t *testing.T) counterDeltas {
	d := counterDeltas{t: t, before: make(map[string]float64)}
	for name, c := range cacheCounters {
		d.before[name] = counterValue(t, c)
	}
	return d
}

func (d counterDeltas) get(name string) float64 {
	return counterValue(d.t, cacheCounters[name]) - d.before[name]
}

func (d counterDeltas) match(want map[string]float64) bool {
	for name, w := range want {
		if d.get(name) != w {
			return false
		}
	}
	return true
}

func TestCacheCountsLookupsAndFetches(t *testing.T) {
	f := newFakeFetcher()
	c := New(f)
	d := snapshotCounters(t)

	// miss, then a join on the same in-flight fetch, then a hit.
	c.Get("1")
	c.Get("1")
	f.next(t).release <- fetchResult{msgs: msgs("1", "hi")}
	waitState(t, c, "1", StateLoaded)
	c.Get("1")

	// An invalidated in-flight fetch is discarded when it lands.
	c.Get("2")
	detached := f.next(t)
	c.Invalidate("2")
	detached.release <- fetchResult{msgs: msgs("2", "old")}
	deadline := time.Now().Add(2 * time.Second)
	for d.get("discarded") < 1 {
		if time.Now().After(deadline) {
			t.Fatal("detached fetch was never discarded")
		}
		time.Sleep(2 * time.Millisecond)
	}

	c.Get("3")
	f.next(t).release <- fetchResult{err: errors.New("boom")}
	waitState(t, c, "3", StateFailed)

	want := map[string]float64{
		"hit":       1,
		"miss":      3,
		"joined":    1,
		"ok":        1,
		"error":     1,
		"discarded": 1,
	}
	// Outcome counters are bumped just after the state change is visible.
	deadline = time.Now().Add(2 * time.Second)
	for !d.match(want) && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	for name, w := range want {
		if got := d.get(name); got != w {
			t.Errorf("%s delta = %v, want %v", name, got, w)
		}
	}
}
