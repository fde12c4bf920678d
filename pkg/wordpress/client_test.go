package wordpress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deingipfel/touren-finder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.WordPressConfig{
		BaseURL:  srv.URL + "/",
		ParentID: 12472,
		PerPage:  2,
		Timeout:  5 * time.Second,
	})
}

func TestListToursReadsAllPages(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(pagesPath, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "12472", q.Get("parent"))
		assert.Equal(t, "2", q.Get("per_page"))
		assert.Equal(t, pageFields, q.Get("_fields"))

		page, _ := strconv.Atoi(q.Get("page"))
		w.Header().Set("X-WP-TotalPages", "3")
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case 1:
			fmt.Fprint(w, `[
				{"id": 1, "slug": "watzmann", "link": "https://wp/watzmann/", "title": {"rendered": "Watzmann &#8211; &Uuml;berschreitung"}, "featured_media": 11, "acf": {"land": "Deutschland", "dauer": "2 Tage", "bild1": 12}},
				{"id": 2, "slug": "leer", "title": {"rendered": "Leer"}, "featured_media": 0, "acf": false}
			]`)
		case 2:
			fmt.Fprint(w, `[{"id": 3, "slug": "ortler", "title": {"rendered": "Ortler"}, "acf": {"hoehenmeter": 1900}}]`)
		case 3:
			fmt.Fprint(w, `[{"id": 4, "slug": "piz-palue", "title": {"rendered": "Piz Palü"}, "acf": []}]`)
		default:
			t.Errorf("unexpected page %d", page)
		}
	})

	tours, err := testClient(t, mux).ListTours(context.Background())
	require.NoError(t, err)
	require.Len(t, tours, 4)
	assert.EqualValues(t, 3, calls.Load())

	assert.Equal(t, []string{"watzmann", "leer", "ortler", "piz-palue"}, []string{tours[0].Slug, tours[1].Slug, tours[2].Slug, tours[3].Slug})
	assert.Equal(t, "Watzmann – Überschreitung", tours[0].Title)
	assert.Equal(t, 11, tours[0].FeaturedMedia)
	assert.Equal(t, "Deutschland", tours[0].Attributes.Land)
	assert.Equal(t, 12, tours[0].Attributes.Bilder[0])
	assert.Empty(t, tours[1].Attributes.Land)
	assert.Equal(t, "1900", tours[2].Attributes.Hoehenmeter)
}

func TestListToursWithoutPaginationHeader(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	tours, err := c.ListTours(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tours)
}

func TestListToursFailsOnLaterPage(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "2")
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"id": 1, "slug": "a", "title": {"rendered": "A"}}]`)
	}))
	_, err := c.ListTours(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP error: 500 Internal Server Error")
	assert.NotContains(t, err.Error(), "500 500")
}

func TestGetMedia(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(mediaPath+"7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": 7,
			"source_url": "https://wp/7.jpg",
			"media_details": {
				"width": 640, "height": 480,
				"sizes": {"medium_large": {"source_url": "https://wp/7-768.jpg", "width": 768, "height": 512}}
			}
		}`)
	})
	c := testClient(t, mux)

	m, err := c.GetMedia(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, m.ID)
	assert.Equal(t, "https://wp/7-768.jpg", m.Sizes["medium_large"].SourceURL)
	assert.Equal(t, "https://wp/7.jpg", m.Sizes["full"].SourceURL)
	assert.Equal(t, 640, m.Sizes["full"].Width)

	_, err = c.GetMedia(context.Background(), 8)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestGetMediaSkipsZeroID(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL)
	}))
	_, err := c.GetMedia(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoMedia)
}

func TestPlainText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Zugspitze", "Zugspitze"},
		{"  Hoher   Göll ", "Hoher Göll"},
		{"Großvenediger &amp; Kleinvenediger", "Großvenediger & Kleinvenediger"},
		{"<em>Piz</em> Bernina", "Piz Bernina"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PlainText(tc.in), tc.in)
	}
}
