package sensors

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// GPSProvider reads position fixes from an NMEA GPS device on a serial
// port. The port is opened per read and closed afterwards so the device
// stays free between telemetry commands.
type GPSProvider struct {
	port     string
	baudRate int
}

// NewGPSProvider creates a provider for the given serial port.
func NewGPSProvider(port string, baudRate int) *GPSProvider {
	return &GPSProvider{
		port:     port,
		baudRate: baudRate,
	}
}

func (g *GPSProvider) Name() string {
	return "gps"
}

// Read scans NMEA sentences until a GGA fix is found. Respects ctx
// between lines; a closed or silent device surfaces as a scanner error.
func (g *GPSProvider) Read(ctx context.Context) (Position, error) {
	s, err := serial.OpenPort(&serial.Config{Name: g.port, Baud: g.baudRate})
	if err != nil {
		return Position{}, err
	}
	defer s.Close()

	scanner := bufio.NewScanner(s)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Position{}, err
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "$GPGGA") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			return Position{}, err
		}

		if gga, ok := sentence.(nmea.GGA); ok {
			return Position{
				Latitude:  gga.Latitude,
				Longitude: gga.Longitude,
				Accuracy:  float64(gga.HDOP), // HDOP as accuracy proxy
			}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return Position{}, err
	}

	return Position{}, errors.New("sensors: no valid GPS fix found")
}
