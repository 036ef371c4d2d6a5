package session

import (
	"context"
	"errors"
)

// ErrLocationPermissionDenied is returned by a Locator when the user refuses
// access to the device position.
var ErrLocationPermissionDenied = errors.New("location permission denied")

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Locator yields the device position.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// StaticLocator reports fixed coordinates, for callers that already know the
// position (the HTTP gateway receives it in the request body).
type StaticLocator Coordinates

func (l StaticLocator) Locate(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	return Coordinates(l), nil
}

// DeniedLocator always refuses.
type DeniedLocator struct{}

func (DeniedLocator) Locate(context.Context) (Coordinates, error) {
	return Coordinates{}, ErrLocationPermissionDenied
}
