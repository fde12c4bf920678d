package metrics

import (
	"encoding/json"
	"expvar"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	StatsPath     = "/stats"
	DebugVarsPath = "/debug/vars"
)

// Counter names recorded by the tour service.
const (
	ToursCacheHit    = "tours_cache_hit"
	ToursCacheMiss   = "tours_cache_miss"
	ToursStaleServed = "tours_stale_served"
	MediaCacheHit    = "media_cache_hit"
	MediaCacheMiss   = "media_cache_miss"
	UpstreamErrors   = "upstream_errors"
)

var (
	st       = newState()
	initOnce sync.Once
)

// Init publishes the expvar variables. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		expvar.Publish("touren_started_at", expvar.Func(func() any {
			return st.snapshot().StartedAt
		}))
		expvar.Publish("touren_requests", expvar.Func(func() any {
			s := st.snapshot()
			return map[string]any{
				"total":     s.TotalRequests,
				"errors":    s.TotalErrors,
				"by_status": s.RequestsByMethodAndStatus,
				"latency":   s.LatencyBuckets,
			}
		}))
		expvar.Publish("touren_counters", expvar.Func(func() any {
			return st.snapshot().Counters
		}))
	})
}

// Inc bumps a named counter.
func Inc(name string) {
	st.mu.Lock()
	st.counters[name]++
	st.mu.Unlock()
}

// Count returns the current value of a named counter.
func Count(name string) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.counters[name]
}

// Reset clears all recorded values; used by tests.
func Reset() {
	fresh := newState()
	st.mu.Lock()
	st.startedAt = fresh.startedAt
	st.totalReq, st.totalErr, st.totalLatency = 0, 0, 0
	st.byMethodStatus = fresh.byMethodStatus
	st.durationBuckets = fresh.durationBuckets
	st.counters = fresh.counters
	st.mu.Unlock()
}

// Instrument wraps an http.Handler to record request count, status codes
// and latency buckets.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		st.record(r.Method, sw.status, time.Since(start))
	})
}

// StatsHandler returns a compact JSON snapshot.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st.snapshot())
}

type Stats struct {
	StartedAt                 string                      `json:"started_at"`
	UptimeSeconds             int64                       `json:"uptime_seconds"`
	TotalRequests             int64                       `json:"total_requests"`
	TotalErrors               int64                       `json:"total_errors"`
	AverageLatencyMs          float64                     `json:"avg_latency_ms"`
	RequestsByMethodAndStatus map[string]map[string]int64 `json:"requests_by_method_status"`
	LatencyBuckets            map[string]int64            `json:"latency_buckets"`
	Counters                  map[string]int64            `json:"counters"`
}

type metricsState struct {
	mu sync.Mutex

	startedAt    time.Time
	totalReq     int64
	totalErr     int64
	totalLatency time.Duration

	// method -> statusCode -> count
	byMethodStatus  map[string]map[int]int64
	durationBuckets map[string]int64
	counters        map[string]int64
}

func newState() *metricsState {
	return &metricsState{
		startedAt:       time.Now(),
		byMethodStatus:  make(map[string]map[int]int64),
		durationBuckets: make(map[string]int64),
		counters:        make(map[string]int64),
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (s *metricsState) record(method string, statusCode int, d time.Duration) {
	if method == "" {
		method = "UNKNOWN"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalReq++
	if statusCode >= 500 {
		s.totalErr++
	}
	s.totalLatency += d

	if _, ok := s.byMethodStatus[method]; !ok {
		s.byMethodStatus[method] = make(map[int]int64)
	}
	s.byMethodStatus[method][statusCode]++
	s.durationBuckets[bucketLabel(d)]++
}

func (s *metricsState) snapshot() Stats {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	avg := float64(0)
	if s.totalReq > 0 {
		avg = float64(s.totalLatency.Milliseconds()) / float64(s.totalReq)
	}

	methodStatus := make(map[string]map[string]int64, len(s.byMethodStatus))
	for m, inner := range s.byMethodStatus {
		o2 := make(map[string]int64, len(inner))
		for code, c := range inner {
			o2[strconv.Itoa(code)] = c
		}
		methodStatus[m] = o2
	}
	buckets := make(map[string]int64, len(s.durationBuckets))
	for k, v := range s.durationBuckets {
		buckets[k] = v
	}
	counters := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		counters[k] = v
	}

	return Stats{
		StartedAt:                 s.startedAt.UTC().Format(time.RFC3339),
		UptimeSeconds:             int64(now.Sub(s.startedAt).Seconds()),
		TotalRequests:             s.totalReq,
		TotalErrors:               s.totalErr,
		AverageLatencyMs:          avg,
		RequestsByMethodAndStatus: methodStatus,
		LatencyBuckets:            buckets,
		Counters:                  counters,
	}
}

var bucketBounds = []time.Duration{
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	1000 * time.Millisecond,
	5000 * time.Millisecond,
}

func bucketLabel(d time.Duration) string {
	for _, b := range bucketBounds {
		if d <= b {
			return "le_" + strconv.FormatInt(b.Milliseconds(), 10) + "ms"
		}
	}
	return "gt_5000ms"
}
