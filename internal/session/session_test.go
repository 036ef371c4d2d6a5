package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/skyhue-weather/internal/citystore"
	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/kvstore"
	"github.com/kjstillabower/skyhue-weather/internal/models"
	"github.com/kjstillabower/skyhue-weather/internal/preferences"
	"github.com/kjstillabower/skyhue-weather/internal/weather"
)

var (
	paris  = models.SavedCity{ID: "48.8566_2.3522", Name: "Paris", Country: "FR", Lat: 48.8566, Lon: 2.3522}
	tokyo  = models.SavedCity{ID: "35.6762_139.6503", Name: "Tokyo", Country: "JP", Lat: 35.6762, Lon: 139.6503}
	london = models.SavedCity{ID: "51.5074_-0.1278", Name: "London", Country: "GB", Lat: 51.5074, Lon: -0.1278}
)

type coords struct{ lat, lon float64 }

// fakeFetcher returns a snapshot whose temperature identifies the call count,
// or the configured error for specific coordinates.
type fakeFetcher struct {
	mu    sync.Mutex
	temps map[coords]int
	fail  map[coords]error
	calls int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{temps: map[coords]int{}, fail: map[coords]error{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, lat, lon float64, units string) (models.WeatherSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[coords{lat, lon}]; err != nil {
		return models.WeatherSnapshot{}, err
	}
	temp, ok := f.temps[coords{lat, lon}]
	if !ok {
		temp = 70
	}
	return models.WeatherSnapshot{
		Current: models.CurrentSnapshot{Temperature: temp, Condition: models.ConditionSunny},
	}, nil
}

func (f *fakeFetcher) setFail(c models.SavedCity, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[coords{c.Lat, c.Lon}] = err
}

func (f *fakeFetcher) setTemp(c models.SavedCity, temp int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.temps[coords{c.Lat, c.Lon}] = temp
}

type fakeGeocoder struct {
	place *models.CityCandidate
	err   error
}

func (g fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (*models.CityCandidate, error) {
	return g.place, g.err
}

type fixture struct {
	session *Session
	fetcher *fakeFetcher
	cities  *citystore.Store
	prefs   *preferences.Store
}

func newFixture(t *testing.T, geo ReverseGeocoder, saved ...models.SavedCity) fixture {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	cities := citystore.New(kv, nil)
	require.NoError(t, cities.Save(context.Background(), saved))
	prefs := preferences.New(kv, nil)
	fetcher := newFakeFetcher()
	return fixture{
		session: New(fetcher, geo, cities, prefs, client.UnitsImperial, nil),
		fetcher: fetcher,
		cities:  cities,
		prefs:   prefs,
	}
}

func names(list []models.CityWithWeather) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Name
	}
	return out
}

func TestSession_StartLoadsAndRefreshes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakeGeocoder{}, paris, tokyo)
	require.NoError(t, f.prefs.SaveTemperatureUnit(ctx, models.Celsius))
	f.fetcher.setTemp(tokyo, 55)

	res := f.session.Start(ctx)
	assert.Equal(t, RefreshResult{Refreshed: 2}, res)
	assert.Equal(t, models.Celsius, f.session.Unit())

	list := f.session.Cities()
	require.Equal(t, []string{"Paris", "Tokyo"}, names(list))
	require.NotNil(t, list[1].Temperature)
	assert.Equal(t, 55, *list[1].Temperature)
	assert.Equal(t, models.ConditionSunny, *list[1].Condition)

	cur, idx, ok := f.session.Current()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "Paris", cur.Name)
}

func TestSession_RefreshAllKeepsPriorDataOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakeGeocoder{}, paris, tokyo, london)
	f.fetcher.setTemp(tokyo, 60)
	f.session.Start(ctx)

	f.fetcher.setTemp(paris, 50)
	f.fetcher.setTemp(london, 40)
	f.fetcher.setFail(tokyo, weather.ErrFetchFailed)

	res := f.session.RefreshAll(ctx)
	assert.Equal(t, RefreshResult{Refreshed: 2, Failed: 1}, res)

	list := f.session.Cities()
	assert.Equal(t, 50, *list[0].Temperature)
	assert.Equal(t, 60, *list[1].Temperature, "failed city keeps its previous weather")
	assert.Equal(t, 40, *list[2].Temperature)
}

func TestSession_RefreshSingle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakeGeocoder{}, paris)
	f.session.Start(ctx)

	f.fetcher.setFail(paris, weather.ErrFetchFailed)
	assert.ErrorIs(t, f.session.Refresh(ctx, 0), weather.ErrFetchFailed)
	assert.ErrorIs(t, f.session.Refresh(ctx, 3), ErrIndexOutOfRange)
}

func TestSession_AddCity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakeGeocoder{})
	f.session.Start(ctx)

	idx, err := f.session.AddCity(ctx, paris)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = f.session.AddCity(ctx, tokyo)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, cur, _ := f.session.Current()
	assert.Equal(t, 1, cur, "new city becomes the selection")

	// Same coordinates selects the existing entry.
	dup := paris
	dup.ID = "something-else"
	idx, err = f.session.AddCity(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Len(t, f.session.Cities(), 2)
	assert.Len(t, f.cities.Load(ctx), 2)
}

func TestSession_AddCityWithoutWeather(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakeGeocoder{})
	f.fetcher.setFail(london, weather.ErrFetchFailed)

	idx, err := f.session.AddCity(ctx, london)
	require.NoError(t, err)
	list := f.session.Cities()
	assert.Nil(t, list[idx].Weather)
	assert.Len(t, f.cities.Load(ctx), 1, "city is saved even without weather")
}

// interleavingFetcher calls during before the first fetch of target, simulating
// another list change landing while AddCity waits on the network.
type interleavingFetcher struct {
	*fakeFetcher
	target models.SavedCity
	during func()
	once   sync.Once
}

func (f *interleavingFetcher) Fetch(ctx context.Context, lat, lon float64, units string) (models.WeatherSnapshot, error) {
	if lat == f.target.Lat && lon == f.target.Lon {
		f.once.Do(f.during)
	}
	return f.fakeFetcher.Fetch(ctx, lat, lon, units)
}

func TestSession_AddCityKeepsWeatherAfterConcurrentRebuild(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	cities := citystore.New(kv, nil)
	require.NoError(t, cities.Save(ctx, []models.SavedCity{paris, london}))

	fetcher := &interleavingFetcher{fakeFetcher: newFakeFetcher(), target: tokyo}
	fetcher.setTemp(tokyo, 58)
	sess := New(fetcher, fakeGeocoder{}, cities, preferences.New(kv, nil), client.UnitsImperial, nil)
	sess.Start(ctx)
	fetcher.during = func() { require.NoError(t, sess.RemoveCity(ctx, london.ID)) }

	idx, err := sess.AddCity(ctx, tokyo)
	require.NoError(t, err)

	list := sess.Cities()
	require.Equal(t, []string{"Paris", "Tokyo"}, names(list))
	assert.Equal(t, 1, idx)
	require.NotNil(t, list[idx].Temperature, "fetched weather must survive the rebuild")
	assert.Equal(t, 58, *list[idx].Temperature)
}

func TestSession_RemoveCity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakeGeocoder{}, paris, tokyo, london)
	f.session.Start(ctx)

	require.NoError(t, f.session.Select(2))
	require.NoError(t, f.session.RemoveCity(ctx, tokyo.ID))

	assert.Equal(t, []string{"Paris", "London"}, names(f.session.Cities()))
	cur, idx, _ := f.session.Current()
	assert.Equal(t, "London", cur.Name, "selection follows the selected city")
	assert.Equal(t, 1, idx)
	assert.NotNil(t, cur.Weather, "weather survives a rebuild")

	require.NoError(t, f.session.RemoveCity(ctx, london.ID))
	cur, idx, _ = f.session.Current()
	assert.Equal(t, "Paris", cur.Name, "selection clamps when the selected city goes")
	assert.Equal(t, 0, idx)

	assert.ErrorIs(t, f.session.RemoveCity(ctx, "missing"), ErrCityNotFound)
}

func TestSession_UseDeviceLocation(t *testing.T) {
	ctx := context.Background()
	geo := fakeGeocoder{place: &models.CityCandidate{Name: "Boulder", State: "Colorado", Country: "US"}}
	f := newFixture(t, geo, paris)
	f.session.Start(ctx)

	got, err := f.session.UseDeviceLocation(ctx, StaticLocator{Lat: 40.015, Lon: -105.2705})
	require.NoError(t, err)
	assert.Equal(t, models.CurrentLocationID, got.ID)
	assert.Equal(t, "Boulder", got.Name)
	assert.True(t, got.IsCurrentLocation)
	assert.NotNil(t, got.Weather)

	assert.Equal(t, []string{"Boulder", "Paris"}, names(f.session.Cities()))
	_, idx, _ := f.session.Current()
	assert.Equal(t, 0, idx)

	// Moving replaces the record rather than adding another.
	_, err = f.session.UseDeviceLocation(ctx, StaticLocator{Lat: 39.7392, Lon: -104.9903})
	require.NoError(t, err)
	saved := f.cities.Load(ctx)
	require.Len(t, saved, 2)
	assert.True(t, saved[0].IsCurrentLocation)
	assert.Equal(t, 39.7392, saved[0].Lat)

	assert.ErrorIs(t, f.session.RemoveCity(ctx, models.CurrentLocationID), ErrCannotRemoveCurrentLocation)
}

func TestSession_UseDeviceLocationFallbacks(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, fakeGeocoder{err: errors.New("geocoding down")})
	got, err := f.session.UseDeviceLocation(ctx, StaticLocator{Lat: 1, Lon: 2})
	require.NoError(t, err)
	assert.Equal(t, CurrentLocationName, got.Name)

	f = newFixture(t, fakeGeocoder{})
	got, err = f.session.UseDeviceLocation(ctx, StaticLocator{Lat: 1, Lon: 2})
	require.NoError(t, err)
	assert.Equal(t, CurrentLocationName, got.Name, "no match falls back too")

	_, err = f.session.UseDeviceLocation(ctx, DeniedLocator{})
	assert.ErrorIs(t, err, ErrLocationPermissionDenied)
}

func TestSession_SetUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakeGeocoder{})
	f.session.Start(ctx)

	assert.Equal(t, models.Fahrenheit, f.session.Unit())
	require.NoError(t, f.session.SetUnit(ctx, models.Celsius))
	assert.Equal(t, models.Celsius, f.session.Unit())
	assert.Equal(t, models.Celsius, f.prefs.LoadTemperatureUnit(ctx))
}

func TestSession_SelectBounds(t *testing.T) {
	f := newFixture(t, fakeGeocoder{}, paris)
	f.session.Start(context.Background())

	assert.NoError(t, f.session.Select(0))
	assert.ErrorIs(t, f.session.Select(1), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.session.Select(-1), ErrIndexOutOfRange)
}

func TestSession_EmptyCurrent(t *testing.T) {
	f := newFixture(t, fakeGeocoder{})
	_, _, ok := f.session.Current()
	assert.False(t, ok)
	assert.Equal(t, RefreshResult{}, f.session.RefreshAll(context.Background()))
}

func TestSession_RefreshPeriodic(t *testing.T) {
	f := newFixture(t, fakeGeocoder{}, paris)
	f.session.Start(context.Background())
	f.fetcher.setTemp(paris, 55)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := f.session.RefreshPeriodic(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	city, _, ok := f.session.Current()
	require.True(t, ok)
	require.NotNil(t, city.Temperature)
	assert.Equal(t, 55, *city.Temperature)
}
