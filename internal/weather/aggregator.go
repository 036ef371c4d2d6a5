package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/models"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

// ErrFetchFailed is returned when any upstream call of an aggregation fails.
// The underlying cause stays reachable through errors.Is.
var ErrFetchFailed = errors.New("weather fetch failed")

// Fetcher produces weather snapshots. Aggregator is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64, units string) (models.WeatherSnapshot, error)
}

// Aggregator merges current conditions and the 3-hour forecast into one snapshot.
// The hourly and daily views of one Fetch share a single forecast call. Separate
// Fetch calls never share upstream work, so one caller's cancellation cannot fail another.
type Aggregator struct {
	client client.WeatherClient
	logger *zap.Logger
	now    func() time.Time
}

func NewAggregator(c client.WeatherClient, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		client: c,
		logger: observability.OrNop(logger),
		now:    time.Now,
	}
}

// SetClock replaces the wall clock used for moon phase and FetchedAt.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Fetch runs the current, hourly and daily builds concurrently. Any failure
// aborts the whole aggregation; no partial snapshot is returned and nothing is retried.
func (a *Aggregator) Fetch(ctx context.Context, lat, lon float64, units string) (models.WeatherSnapshot, error) {
	logger := observability.LoggerFromContext(ctx, a.logger)
	start := time.Now()

	var (
		current client.CurrentConditions
		hourly  []models.HourSlice
		daily   []models.DaySummary
	)

	var forecasts singleflight.Group
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := a.client.GetCurrent(gctx, lat, lon, units)
		if err != nil {
			return err
		}
		current = c
		return nil
	})
	g.Go(func() error {
		f, err := a.forecast(gctx, &forecasts, lat, lon, units)
		if err != nil {
			return err
		}
		hourly = BuildHourly(f.List, f.City.Timezone)
		return nil
	})
	g.Go(func() error {
		f, err := a.forecast(gctx, &forecasts, lat, lon, units)
		if err != nil {
			return err
		}
		daily = BuildDaily(f.List, f.City.Timezone)
		return nil
	})

	if err := g.Wait(); err != nil {
		observability.SnapshotsTotal.WithLabelValues("failure").Inc()
		logger.Warn("weather fetch failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return models.WeatherSnapshot{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	snap := models.WeatherSnapshot{
		Current:   buildCurrent(current),
		Hourly:    hourly,
		Daily:     daily,
		FetchedAt: a.now(),
	}
	snap.Details = buildDetails(current, snap.Current.Temperature, lat, snap.FetchedAt)

	observability.SnapshotsTotal.WithLabelValues("success").Inc()
	logger.Debug("weather snapshot built",
		zap.String("city", snap.Current.City),
		zap.Int("hours", len(hourly)),
		zap.Int("days", len(daily)),
		zap.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

// forecast coalesces the forecast requests made within one Fetch through group.
func (a *Aggregator) forecast(ctx context.Context, group *singleflight.Group, lat, lon float64, units string) (client.Forecast, error) {
	key := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64) + "," + units
	v, err, shared := group.Do(key, func() (interface{}, error) {
		return a.client.GetForecast(ctx, lat, lon, units)
	})
	if shared {
		observability.ForecastCoalescedTotal.Inc()
	}
	if err != nil {
		return client.Forecast{}, err
	}
	return v.(client.Forecast), nil
}

func buildCurrent(c client.CurrentConditions) models.CurrentSnapshot {
	cond := c.PrimaryCondition()
	return models.CurrentSnapshot{
		City:          c.Name,
		Time:          FormatClock(c.Dt, c.Timezone),
		Date:          FormatLongDate(c.Dt, c.Timezone),
		Temperature:   models.Round(c.Main.Temp),
		Condition:     MapConditionIcon(cond.ID, cond.Icon),
		ConditionText: cond.Main,
		FeelsLike:     models.Round(c.Main.FeelsLike),
		High:          models.Round(c.Main.TempMax),
		Low:           models.Round(c.Main.TempMin),
		Timezone:      c.Timezone,
	}
}

// buildDetails derives UV from the requested latitude, not the provider's echo.
func buildDetails(c client.CurrentConditions, temperature int, lat float64, now time.Time) models.WeatherDetails {
	humidity := models.Round(c.Main.Humidity)
	return models.WeatherDetails{
		Humidity:      humidity,
		WindSpeed:     models.Round(c.Wind.Speed),
		WindDirection: WindDirection(c.Wind.Deg),
		UVIndex:       UVIndex(lat),
		Visibility:    VisibilityMiles(c.Visibility),
		Pressure:      models.Round(c.Main.Pressure),
		PressureTrend: models.PressureTrendSteady,
		DewPoint:      DewPoint(temperature, humidity),
		Sunrise:       FormatClock(c.Sys.Sunrise, c.Timezone),
		Sunset:        FormatClock(c.Sys.Sunset, c.Timezone),
		MoonPhase:     MoonPhase(now),
	}
}
