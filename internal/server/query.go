package server

import (
	"math"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parkrun-transit/internal/explorer"
	"github.com/sells-group/parkrun-transit/internal/geo"
	"github.com/sells-group/parkrun-transit/internal/model"
)

// parseQuery overlays request parameters onto defaults.
func parseQuery(v url.Values, defaults explorer.Query) (explorer.Query, error) {
	q := defaults
	q.Modes = append([]string(nil), defaults.Modes...)

	if s := v.Get("radius_km"); s != "" {
		km, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(km) || math.IsInf(km, 0) {
			return q, eris.Errorf("invalid radius_km %q", s)
		}
		q.RadiusKM = km
	}
	if v.Has("modes") {
		q.Modes = explorer.SplitModes(v.Get("modes"))
	}
	if s := v.Get("sort"); s != "" {
		by, err := geo.ParseSortBy(s)
		if err != nil {
			return q, err
		}
		q.SortBy = by
	}
	if s := v.Get("order"); s != "" {
		order, err := geo.ParseSortOrder(s)
		if err != nil {
			return q, err
		}
		q.Order = order
	}
	loc, err := parseLocation(v.Get("lat"), v.Get("lon"))
	if err != nil {
		return q, err
	}
	if loc != nil {
		q.Location = loc
	}
	if s := v.Get("all"); s != "" {
		all, err := strconv.ParseBool(s)
		if err != nil {
			return q, eris.Errorf("invalid all %q", s)
		}
		q.All = all
	}
	return q, q.Validate()
}

func parseLocation(latS, lonS string) (*model.Location, error) {
	if latS == "" && lonS == "" {
		return nil, nil
	}
	if latS == "" || lonS == "" {
		return nil, eris.New("lat and lon must be given together")
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return nil, eris.Errorf("invalid lat %q", latS)
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil {
		return nil, eris.Errorf("invalid lon %q", lonS)
	}
	loc := model.Location{Lat: lat, Lon: lon}
	if err := explorer.ValidateLocation(loc); err != nil {
		return nil, err
	}
	return &loc, nil
}
