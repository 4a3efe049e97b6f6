package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const withRecovered = "FIPS,Admin2,Province_State,Country_Region,Last_Update,Lat,Long_,Confirmed,Deaths,Recovered,Active,Combined_Key\n" +
	"45001,Abbeville,South Carolina,US,2020-06-01 02:32:51,34.22,-82.46,47,0,0,47,\"Abbeville, South Carolina, US\"\n" +
	",,,Mexico,2020-06-01 02:32:51,23.63,-102.55,90664,9930,63493,17241,Mexico\n"

const withoutRecovered = "Province_State,Country_Region,Last_Update,Confirmed,Deaths,Combined_Key\n" +
	"California,US,2022-09-10 04:21:00,100,5,\"California, US\"\n" +
	"Texas,US,2022-09-10 04:21:00,80,3,\"Texas, US\"\n" +
	",Mexico,2022-09-10 04:21:00,50,2,Mexico\n"

type countingSource struct {
	mu      sync.Mutex
	calls   map[string]int
	content map[string]string
	err     error
}

func newCountingSource(content map[string]string) *countingSource {
	return &countingSource{calls: map[string]int{}, content: content}
}

func (s *countingSource) Fetch(_ context.Context, location string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[location]++
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.content[location]
	if !ok {
		return nil, &DataUnavailableError{Location: location, Status: http.StatusNotFound}
	}
	return []byte(body), nil
}

func (s *countingSource) count(location string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[location]
}

func fixedClock() time.Time { return time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestLocation(t *testing.T) {
	got := Location("https://example.test/daily/", day(2022, time.September, 9))
	assert.Equal(t, "https://example.test/daily/09-09-2022.csv", got)
	got = Location("base", day(2020, time.March, 1))
	assert.Equal(t, "base/03-01-2020.csv", got)
}

func TestLoadCachesByDate(t *testing.T) {
	date := day(2022, time.September, 9)
	loc := Location("base", date)
	src := newCountingSource(map[string]string{loc: withRecovered})
	l := NewLoader(src, "base", WithClock(fixedClock))

	first, err := l.Load(context.Background(), date)
	require.NoError(t, err)
	second, err := l.Load(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, 1, src.count(loc), "second load must be served from cache")
	assert.Same(t, first, second)
	assert.Equal(t, first.Frame().Records(), second.Frame().Records())
	assert.Equal(t, loc, first.Location)
	assert.Equal(t, "2022-09-09", first.Key)
	assert.NotEmpty(t, first.FetchID)
	assert.Equal(t, []string{"2022-09-09"}, l.Cache().Keys())
}

func TestLoadConcurrentSameDateFetchesOnce(t *testing.T) {
	date := day(2021, time.January, 1)
	loc := Location("base", date)
	src := newCountingSource(map[string]string{loc: withRecovered})
	l := NewLoader(src, "base", WithClock(fixedClock))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background(), date)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.count(loc))
	assert.Equal(t, 1, l.Cache().Len())
}

// blockingSource holds every fetch until release is closed.
type blockingSource struct {
	calls   atomic.Int32
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSource) Fetch(ctx context.Context, _ string) ([]byte, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return []byte(withoutRecovered), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLoadCancelledCallerDoesNotFailOthers(t *testing.T) {
	date := day(2022, time.September, 9)
	src := newBlockingSource()
	l := NewLoader(src, "base", WithClock(fixedClock))

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, date)
		firstErr <- err
	}()
	<-src.started

	type result struct {
		snap *Snapshot
		err  error
	}
	second := make(chan result, 1)
	go func() {
		snap, err := l.Load(context.Background(), date)
		second <- result{snap, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(src.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 3, res.snap.Rows())
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, l.Cache().Len())
}

func TestLoadResolvesColumns(t *testing.T) {
	date := day(2022, time.September, 9)
	src := newCountingSource(map[string]string{Location("base", date): withoutRecovered})
	l := NewLoader(src, "base", WithClock(fixedClock))

	snap, err := l.Load(context.Background(), date)
	require.NoError(t, err)
	cols := snap.Columns()

	name, ok := cols.Lookup(Country)
	require.True(t, ok)
	assert.Equal(t, "Country_Region", name)
	assert.True(t, cols.Has(Confirmed))
	assert.True(t, cols.Has(Deaths))
	assert.False(t, cols.Has(Recovered))
	assert.False(t, cols.Has(Active))
	assert.False(t, cols.Has(County))
	assert.Equal(t, []Key{Confirmed, Deaths}, cols.Metrics())
	assert.Equal(t, 3, snap.Rows())
}

func TestLoadCountryColumnMissing(t *testing.T) {
	date := day(2022, time.September, 9)
	body := "Province_State,Confirmed,Deaths\nCalifornia,100,5\n"
	src := newCountingSource(map[string]string{Location("base", date): body})
	l := NewLoader(src, "base", WithClock(fixedClock))

	snap, err := l.Load(context.Background(), date)
	require.Error(t, err)
	assert.Nil(t, snap)
	var cm *CountryColumnMissingError
	require.ErrorAs(t, err, &cm)
	assert.Equal(t, "2022-09-09", cm.Date)
	assert.Equal(t, KindCountryColumnMissing, Kind(err))
	assert.Equal(t, 0, l.Cache().Len())
}

func TestLoadDataUnavailableIsNotCached(t *testing.T) {
	date := day(2022, time.September, 9)
	loc := Location("base", date)
	src := newCountingSource(map[string]string{})
	l := NewLoader(src, "base", WithClock(fixedClock))

	_, err := l.Load(context.Background(), date)
	require.Error(t, err)
	assert.Equal(t, KindDataUnavailable, Kind(err))
	assert.Contains(t, Hint(err), "pick another date")

	src.mu.Lock()
	src.content[loc] = withRecovered
	src.mu.Unlock()

	snap, err := l.Load(context.Background(), date)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, 2, src.count(loc), "failed loads must be retried with a fresh fetch")
}

func TestLoadRejectsDatesOutsideSeries(t *testing.T) {
	src := newCountingSource(map[string]string{})
	l := NewLoader(src, "base", WithClock(fixedClock))

	for _, d := range []time.Time{day(2023, time.March, 11), day(2019, time.December, 31)} {
		_, err := l.Load(context.Background(), d)
		var du *DataUnavailableError
		require.ErrorAs(t, err, &du, d.String())
		assert.Equal(t, 0, src.count(Location("base", d)))
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"bad quoting": "Country_Region,Confirmed\n\"US,1\n",
		"wide row":    "Country_Region,Confirmed\nUS,1,2\n",
		"whitespace":  "  \n\n",
		"header only": "Country_Region,Confirmed\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			date := day(2022, time.September, 9)
			src := newCountingSource(map[string]string{Location("base", date): body})
			l := NewLoader(src, "base", WithClock(fixedClock))
			snap, err := l.Load(context.Background(), date)
			assert.Nil(t, snap)
			var md *MalformedDataError
			require.ErrorAs(t, err, &md)
			assert.Equal(t, KindMalformedData, Kind(err))
		})
	}
}

func TestLoadUntypedSourceErrorIsUnavailable(t *testing.T) {
	date := day(2022, time.September, 9)
	src := newCountingSource(nil)
	src.err = errors.New("boom")
	l := NewLoader(src, "base", WithClock(fixedClock))

	_, err := l.Load(context.Background(), date)
	var du *DataUnavailableError
	require.ErrorAs(t, err, &du)
	assert.Equal(t, "2022-09-09", du.Date)
}

func TestLegacyHeaderSpellings(t *testing.T) {
	body := "\xef\xbb\xbfProvince/State,Country/Region,Last Update,Confirmed,Deaths,Recovered\n" +
		"Hubei,Mainland China,1/22/2020 17:00,444,17,28\n"
	date := day(2020, time.January, 22)
	src := newCountingSource(map[string]string{Location("base", date): body})
	l := NewLoader(src, "base", WithClock(fixedClock))

	snap, err := l.Load(context.Background(), date)
	require.NoError(t, err)
	name, _ := snap.Columns().Lookup(Country)
	assert.Equal(t, "Country/Region", name)
	name, _ = snap.Columns().Lookup(Province)
	assert.Equal(t, "Province/State", name)
	assert.True(t, snap.Columns().Has(Recovered))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/09-09-2022.csv":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprint(w, withoutRecovered)
		case "/09-10-2022.csv":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html>maintenance</html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(NewHTTPSourceWithClient(srv.Client()), srv.URL, WithClock(fixedClock))

	snap, err := l.Load(context.Background(), day(2022, time.September, 9))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/09-09-2022.csv", snap.Location)

	_, err = l.Load(context.Background(), day(2022, time.September, 10))
	assert.Equal(t, KindMalformedData, Kind(err))

	_, err = l.Load(context.Background(), day(2022, time.September, 11))
	var du *DataUnavailableError
	require.ErrorAs(t, err, &du)
	assert.Equal(t, http.StatusNotFound, du.Status)
}

func TestHTTPSourceRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, withoutRecovered)
	}))
	defer srv.Close()

	src := NewHTTPSourceWithClient(srv.Client())
	src.maxBytes = int64(len(withoutRecovered)) - 8
	_, err := src.Fetch(context.Background(), srv.URL+"/09-09-2022.csv")
	var md *MalformedDataError
	require.ErrorAs(t, err, &md)
	assert.Contains(t, err.Error(), "exceeds")

	src.maxBytes = int64(len(withoutRecovered))
	body, err := src.Fetch(context.Background(), srv.URL+"/09-09-2022.csv")
	require.NoError(t, err)
	assert.Equal(t, withoutRecovered, string(body))
}

func TestFSSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mirror/09-09-2022.csv", []byte(withRecovered), 0o644))

	l := NewLoader(NewFSSource(fs, "/mirror"), "", WithClock(fixedClock), WithCache(NewCache()))
	snap, err := l.Load(context.Background(), day(2022, time.September, 9))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Rows())
	assert.True(t, snap.Columns().Has(Recovered))

	_, err = l.Load(context.Background(), day(2022, time.September, 8))
	assert.Equal(t, KindDataUnavailable, Kind(err))
}
