package explorer

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parkrun-transit/internal/model"
)

const (
	// DefaultLocateTimeout bounds a single position request.
	DefaultLocateTimeout = 10 * time.Second
	// DefaultLocateMaxAge is the oldest cached position a locator may return.
	DefaultLocateMaxAge = 60 * time.Second
)

// ErrLocationUnavailable is returned when no position can be determined.
var ErrLocationUnavailable = eris.New("location unavailable")

// ValidateLocation rejects coordinates outside the WGS84 ranges.
func ValidateLocation(loc model.Location) error {
	if math.IsNaN(loc.Lat) || loc.Lat < -90 || loc.Lat > 90 {
		return eris.Errorf("invalid lat %g", loc.Lat)
	}
	if math.IsNaN(loc.Lon) || loc.Lon < -180 || loc.Lon > 180 {
		return eris.Errorf("invalid lon %g", loc.Lon)
	}
	return nil
}

// Locator resolves the user's position.
type Locator interface {
	Locate(ctx context.Context, maxAge time.Duration) (model.Location, error)
}

// StaticLocator returns a fixed position, or ErrLocationUnavailable when Loc
// is nil. The CLI and HTTP surfaces use it for --lat/--lon style input.
type StaticLocator struct {
	Loc *model.Location
}

func (l StaticLocator) Locate(ctx context.Context, _ time.Duration) (model.Location, error) {
	if err := ctx.Err(); err != nil {
		return model.Location{}, eris.Wrap(err, "locate")
	}
	if l.Loc == nil {
		return model.Location{}, ErrLocationUnavailable
	}
	return *l.Loc, nil
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, maxAge time.Duration) (model.Location, error)

func (f LocatorFunc) Locate(ctx context.Context, maxAge time.Duration) (model.Location, error) {
	return f(ctx, maxAge)
}
