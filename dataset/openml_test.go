package dataset

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenMLServer(t *testing.T, body string) (*httptest.Server, *int32) {
	t.Helper()
	var downloads int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	mux.HandleFunc(fmt.Sprintf("/api/v1/json/data/%d", BikeSharingDataID), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data_set_description":{"id":"%d","name":"Bike_Sharing_Demand","version":"2","format":"ARFF","file_id":"1","url":"%s/data/v1/download/1/Bike_Sharing_Demand.arff"}}`,
			BikeSharingDataID, srv.URL)
	})
	mux.HandleFunc("/data/v1/download/1/Bike_Sharing_Demand.arff", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downloads, 1)
		_, _ = w.Write([]byte(body))
	})
	t.Cleanup(srv.Close)
	return srv, &downloads
}

func TestFetcherDownloadsOnceAndCaches(t *testing.T) {
	srv, downloads := newOpenMLServer(t, bikeARFF(24))

	f := NewFetcher(t.TempDir())
	f.BaseURL = srv.URL

	a, err := f.Fetch(context.Background(), BikeSharingDataID)
	require.NoError(t, err)
	assert.Equal(t, 24, a.Frame.Len())

	_, err = os.Stat(f.CachePath(BikeSharingDataID))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), BikeSharingDataID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(downloads))
}

func TestFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	f.BaseURL = srv.URL
	_, err := f.Fetch(context.Background(), BikeSharingDataID)
	assert.Error(t, err)

	_, statErr := os.Stat(f.CachePath(BikeSharingDataID))
	assert.True(t, os.IsNotExist(statErr), "failed downloads must not leave a cache file")
}

func TestFetcherContextCanceled(t *testing.T) {
	srv, _ := newOpenMLServer(t, bikeARFF(1))
	f := NewFetcher(t.TempDir())
	f.BaseURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, BikeSharingDataID)
	assert.Error(t, err)
}

func TestLoadBikeSharingAndSplitTarget(t *testing.T) {
	srv, _ := newOpenMLServer(t, bikeARFF(72))

	frame, err := LoadBikeSharing(context.Background(), Source{CacheDir: t.TempDir(), BaseURL: srv.URL})
	require.NoError(t, err)

	X, y, err := SplitTarget(frame)
	require.NoError(t, err)
	assert.False(t, X.Has(ColCount))
	assert.Equal(t, 12, X.NCols())
	require.Len(t, y, 72)

	count, err := frame.Column(ColCount)
	require.NoError(t, err)
	assert.InDelta(t, count.Float[5]/1000, y[5], 1e-15)
}

func TestLoadBikeSharingRejectsWrongSchema(t *testing.T) {
	path := t.TempDir() + "/bad.csv"
	require.NoError(t, os.WriteFile(path, []byte("season,count\n1,2\n"), 0o644))
	_, err := LoadBikeSharing(context.Background(), Source{Path: path})
	assert.Error(t, err)
}
