package tour

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deingipfel/touren-finder/pkg/cache"
	"github.com/deingipfel/touren-finder/pkg/filter"
	"github.com/deingipfel/touren-finder/pkg/models"
	"github.com/deingipfel/touren-finder/pkg/wordpress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWP struct {
	mu         sync.Mutex
	tours      []models.Tour
	toursErr   error
	media      map[int]models.Media
	listCalls  atomic.Int32
	mediaCalls atomic.Int32
	block      chan struct{}
}

func (f *fakeWP) ListTours(ctx context.Context) ([]models.Tour, error) {
	f.listCalls.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toursErr != nil {
		return nil, f.toursErr
	}
	return append([]models.Tour(nil), f.tours...), nil
}

func (f *fakeWP) GetMedia(ctx context.Context, id int) (models.Media, error) {
	f.mediaCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.media[id]
	if !ok {
		return models.Media{}, wordpress.ErrNotFound
	}
	return m, nil
}

func (f *fakeWP) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toursErr = err
}

func fullSize(id int) models.Media {
	return models.Media{ID: id, Sizes: map[string]models.MediaSize{
		"full": {SourceURL: "https://wp/" + string(rune('0'+id)) + ".jpg", Width: 1600},
	}}
}

func newFake() *fakeWP {
	return &fakeWP{
		tours: []models.Tour{
			{ID: 1, Slug: "watzmann", FeaturedMedia: 1, Attributes: models.Attributes{Land: "Deutschland", Schwierigkeit: "mittel", Bilder: [models.MaxImages]int{2, 9}}},
			{ID: 2, Slug: "ortler", FeaturedMedia: 3, Attributes: models.Attributes{Land: "Italien", Schwierigkeit: "mittel/schwer"}},
			{ID: 3, Slug: "ohne-bild", Attributes: models.Attributes{Land: "Deutschland", Schwierigkeit: "leicht"}},
		},
		media: map[int]models.Media{1: fullSize(1), 2: fullSize(2), 3: fullSize(3)},
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, wp wordpress.Client, mode filter.MatchMode) (*Service, *clock) {
	t.Helper()
	media, err := cache.NewBoltMediaStore(filepath.Join(t.TempDir(), "media.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = media.Close() })

	svc := NewService(wp, cache.NewMemoryTourStore(), media, time.Minute, mode)
	c := &clock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	svc.now = c.now
	return svc, c
}

func TestToursServedFromCacheWithinTTL(t *testing.T) {
	wp := newFake()
	svc, clk := newTestService(t, wp, filter.Contains)
	ctx := context.Background()

	first, err := svc.Tours(ctx)
	require.NoError(t, err)
	require.Len(t, first, 3)

	clk.t = clk.t.Add(30 * time.Second)
	_, err = svc.Tours(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, wp.listCalls.Load())

	clk.t = clk.t.Add(time.Minute)
	_, err = svc.Tours(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, wp.listCalls.Load())
}

func TestToursServesStaleOnUpstreamError(t *testing.T) {
	wp := newFake()
	svc, clk := newTestService(t, wp, filter.Contains)
	ctx := context.Background()

	_, err := svc.Tours(ctx)
	require.NoError(t, err)

	wp.fail(errors.New("upstream down"))
	clk.t = clk.t.Add(time.Hour)

	tours, err := svc.Tours(ctx)
	require.NoError(t, err)
	assert.Len(t, tours, 3)
}

func TestToursErrorWithoutSnapshot(t *testing.T) {
	wp := newFake()
	wp.fail(errors.New("upstream down"))
	svc, _ := newTestService(t, wp, filter.Contains)

	_, err := svc.Tours(context.Background())
	assert.Error(t, err)

	_, err = svc.List(context.Background(), filter.Selection{})
	assert.Error(t, err)
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	wp := newFake()
	wp.block = make(chan struct{})
	svc, _ := newTestService(t, wp, filter.Contains)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tours, err := svc.Tours(context.Background())
			assert.NoError(t, err)
			assert.Len(t, tours, 3)
		}()
	}

	require.Eventually(t, func() bool { return wp.listCalls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(wp.block)
	wg.Wait()

	assert.EqualValues(t, 1, wp.listCalls.Load())
}

func TestListFiltersAndDerivesOptions(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(t, newFake(), filter.Contains)
	l, err := svc.List(ctx, filter.Selection{"schwierigkeit": "mittel"})
	require.NoError(t, err)
	assert.Equal(t, 3, l.Total)
	assert.Len(t, l.Tours, 2)
	assert.Equal(t, []string{"Deutschland", "Italien"}, l.Options["land"])

	exact, _ := newTestService(t, newFake(), filter.Exact)
	l, err = exact.List(ctx, filter.Selection{"schwierigkeit": "mittel"})
	require.NoError(t, err)
	require.Len(t, l.Tours, 1)
	assert.Equal(t, "watzmann", l.Tours[0].Slug)
	assert.Equal(t, filter.Exact, exact.MatchMode())
}

func TestBySlug(t *testing.T) {
	svc, _ := newTestService(t, newFake(), filter.Contains)

	tour, found, err := svc.BySlug(context.Background(), "ortler")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, tour.ID)

	_, found, err = svc.BySlug(context.Background(), "nirgendwo")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestImageCachesAndDegrades(t *testing.T) {
	wp := newFake()
	svc, _ := newTestService(t, wp, filter.Contains)
	ctx := context.Background()

	img, ok := svc.Image(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "https://wp/1.jpg", img.Src)

	_, ok = svc.Image(ctx, 1)
	require.True(t, ok)
	assert.EqualValues(t, 1, wp.mediaCalls.Load())

	_, ok = svc.Image(ctx, 0)
	assert.False(t, ok)
	assert.EqualValues(t, 1, wp.mediaCalls.Load())

	_, ok = svc.Image(ctx, 404)
	assert.False(t, ok)
}

func TestImageRefetchesUnusableCacheEntry(t *testing.T) {
	wp := newFake()
	svc, _ := newTestService(t, wp, filter.Contains)
	require.NoError(t, svc.media.Set(models.Media{ID: 2}))

	img, ok := svc.Image(context.Background(), 2)
	require.True(t, ok)
	assert.Equal(t, "https://wp/2.jpg", img.Src)
	assert.EqualValues(t, 1, wp.mediaCalls.Load())
}

func TestGalleryDropsMissingImages(t *testing.T) {
	wp := newFake()
	svc, _ := newTestService(t, wp, filter.Contains)

	images := svc.Gallery(context.Background(), wp.tours[0])
	require.Len(t, images, 2)
	assert.Equal(t, 1, images[0].ID)
	assert.Equal(t, 2, images[1].ID)
}

func TestWarmup(t *testing.T) {
	wp := newFake()
	svc, _ := newTestService(t, wp, filter.Contains)

	res, err := svc.Warmup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WarmupResult{Tours: 3, Images: 2}, res)

	stats := svc.Statistics(context.Background())
	assert.Equal(t, 3, stats["tours"])
	assert.Equal(t, map[string]int{"total_entries": 2, "with_sizes": 2, "without_sizes": 0}, stats["media"])

	wp.fail(errors.New("down"))
	_, err = svc.Warmup(context.Background())
	assert.Error(t, err)
}
