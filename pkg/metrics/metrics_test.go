package metrics

import (
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentRecordsStatus(t *testing.T) {
	Reset()

	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))

	for _, path := range []string{"/", "/", "/fail", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	StatsHandler(rec, httptest.NewRequest(http.MethodGet, StatsPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 4, stats.TotalRequests)
	assert.EqualValues(t, 1, stats.TotalErrors)
	assert.EqualValues(t, 2, stats.RequestsByMethodAndStatus["GET"]["200"])
	assert.EqualValues(t, 1, stats.RequestsByMethodAndStatus["GET"]["404"])
	assert.EqualValues(t, 1, stats.RequestsByMethodAndStatus["GET"]["503"])
}

func TestCounters(t *testing.T) {
	Reset()
	Inc(ToursCacheHit)
	Inc(ToursCacheHit)
	Inc(UpstreamErrors)

	assert.EqualValues(t, 2, Count(ToursCacheHit))
	assert.EqualValues(t, 1, Count(UpstreamErrors))
	assert.EqualValues(t, 0, Count(MediaCacheMiss))

	Reset()
	assert.EqualValues(t, 0, Count(ToursCacheHit))
}

func TestInitPublishesOnce(t *testing.T) {
	Init()
	Init()
	assert.NotNil(t, expvar.Get("touren_counters"))
	assert.NotNil(t, expvar.Get("touren_requests"))
}

func TestBucketLabel(t *testing.T) {
	assert.Equal(t, "le_10ms", bucketLabel(3*time.Millisecond))
	assert.Equal(t, "le_250ms", bucketLabel(200*time.Millisecond))
	assert.Equal(t, "gt_5000ms", bucketLabel(6*time.Second))
}
