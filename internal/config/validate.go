package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	validDrivers = map[string]bool{"sqlite": true, "postgres": true, "memory": true}
	validSortBy  = map[string]bool{"nearest-stop": true, "my-location": true}
	validOrders  = map[string]bool{"asc": true, "desc": true}
)

// Validate checks the settings a command needs. mode is one of "events",
// "cache" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "events", "cache", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validateFetch()...)

	if mode == "events" || mode == "serve" {
		errs = append(errs, c.validateView()...)
	}
	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateCache() []string {
	var errs []string
	if !validDrivers[c.Cache.Driver] {
		errs = append(errs, "cache.driver must be one of sqlite, postgres, memory")
	}
	if c.Cache.Driver == "postgres" && c.Cache.DatabaseURL == "" {
		errs = append(errs, "cache.database_url is required for the postgres driver")
	}
	if c.Cache.Driver == "sqlite" && c.Cache.Path == "" {
		errs = append(errs, "cache.path is required for the sqlite driver")
	}
	if c.Cache.TTLHours <= 0 {
		errs = append(errs, "cache.ttl_hours must be > 0")
	}
	if c.Cache.MaxEntryBytes <= 0 {
		errs = append(errs, "cache.max_entry_bytes must be > 0")
	}
	return errs
}

func (c *Config) validateFetch() []string {
	var errs []string
	if c.Fetch.TimeoutSecs <= 0 {
		errs = append(errs, "fetch.timeout_secs must be > 0")
	}
	if c.Fetch.MaxRetries < 1 {
		errs = append(errs, "fetch.max_retries must be >= 1")
	}
	if c.Source.EventsURL == "" || c.Source.StopsURL == "" {
		errs = append(errs, "source.events_url and source.stops_url are required")
	}
	return errs
}

func (c *Config) validateView() []string {
	var errs []string
	if c.View.RadiusKM < 0 {
		errs = append(errs, "view.radius_km must be >= 0")
	}
	if len(c.View.Modes) == 0 {
		errs = append(errs, "view.modes must name at least one transport mode")
	}
	if !validSortBy[c.View.SortBy] {
		errs = append(errs, "view.sort_by must be nearest-stop or my-location")
	}
	if !validOrders[c.View.SortOrder] {
		errs = append(errs, "view.sort_order must be asc or desc")
	}
	if c.Locate.TimeoutSecs <= 0 {
		errs = append(errs, "locate.timeout_secs must be > 0")
	}
	return errs
}
