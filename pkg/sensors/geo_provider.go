package sensors

import (
	"context"

	"googlemaps.github.io/maps"
)

// GeoProvider resolves an approximate position through the Google
// geolocation API. Fallback for devices without a GPS sensor; accuracy
// is whatever IP-based geolocation yields.
type GeoProvider struct {
	client *maps.Client
}

// NewGeoProvider creates a provider using the given API key.
func NewGeoProvider(apiKey string) (*GeoProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeoProvider{client: c}, nil
}

func (g *GeoProvider) Name() string {
	return "geo"
}

// Read requests a geolocation fix.
func (g *GeoProvider) Read(ctx context.Context) (Position, error) {
	resp, err := g.client.Geolocate(ctx, &maps.GeolocationRequest{
		ConsiderIP: true,
	})
	if err != nil {
		return Position{}, err
	}

	return Position{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}
