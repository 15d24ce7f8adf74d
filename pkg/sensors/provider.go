package sensors

import "context"

// Position is a geographic fix from one of the providers.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Provider reads one position fix. Implementations: NMEA GPS over a
// serial port, or the Google geolocation API.
type Provider interface {
	Name() string
	Read(ctx context.Context) (Position, error)
}
