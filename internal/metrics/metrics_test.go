package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendRequests.WithLabelValues("by_user", "ok"))
	RecordRecommendation("by_user", "ok", 3*time.Millisecond)
	after := testutil.ToFloat64(RecommendRequests.WithLabelValues("by_user", "ok"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(RecommendCacheHits.WithLabelValues("by_item"))
	misses := testutil.ToFloat64(RecommendCacheMisses.WithLabelValues("by_item"))

	RecordCache("by_item", true)
	RecordCache("by_item", false)
	RecordCache("by_item", false)

	if d := testutil.ToFloat64(RecommendCacheHits.WithLabelValues("by_item")) - hits; d != 1 {
		t.Errorf("hits delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(RecommendCacheMisses.WithLabelValues("by_item")) - misses; d != 2 {
		t.Errorf("misses delta = %v, want 2", d)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/stats", "200"))
	RecordAPIRequest("GET", "/stats", 200, time.Millisecond)
	if d := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/stats", "200")) - before; d != 1 {
		t.Errorf("delta = %v, want 1", d)
	}
}

func TestSetDataSizes(t *testing.T) {
	SetDataSizes(120, 45)
	if got := testutil.ToFloat64(CatalogItems); got != 120 {
		t.Errorf("CatalogItems = %v", got)
	}
	if got := testutil.ToFloat64(KnownUsers); got != 45 {
		t.Errorf("KnownUsers = %v", got)
	}
}

func TestMetricsLint(t *testing.T) {
	RecordNodeBatch("node-a:9000", "ok", time.Millisecond)
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		if len(p.Metric) > 8 && p.Metric[:8] == "bookrec_" {
			t.Errorf("lint %s: %s", p.Metric, p.Text)
		}
	}
}
